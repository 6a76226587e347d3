package models

import "errors"

var (
	InvalidOrderSideErr     = errors.New("invalid order side")
	InvalidPriceErr         = errors.New("price must be greater than 0")
	InvalidVolumeErr        = errors.New("volume must be greater than 0")
	InsufficientMarginErr   = errors.New("insufficient free margin")
	OrderAlreadyExecutedErr = errors.New("order has already been executed")
	PositionClosedErr       = errors.New("position has already been closed")
)
