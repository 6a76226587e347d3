package simulator

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gridlabs/gridtrader/src/engine"
	"github.com/gridlabs/gridtrader/src/eventpubsub"
	"github.com/gridlabs/gridtrader/src/models"
	"github.com/gridlabs/gridtrader/src/pricing"
)

// Thresholds for the account health warnings the report loop emits.
const (
	lowMarginFraction    = 0.10
	floatingLossFraction = 0.05
)

// GridSettings is the settings payload the host can apply between ticks.
type GridSettings struct {
	GridSize   float64 `json:"grid_size" schema:"grid_size"`
	Volatility float64 `json:"volatility" schema:"volatility"`
}

// Simulator drives the engine: each tick it draws the next synthetic price,
// feeds it to the order manager, and records account history for charting.
// Every external mutation (manual orders, settings, snapshots) is serialized
// against tick processing under one mutex, so the engine itself stays
// single-owner.
type Simulator struct {
	mutex sync.Mutex

	orderManager *engine.OrderManager
	walk         *pricing.RandomWalk

	currentPrice float64
	interval     time.Duration

	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	balanceHistory    []float64
	freeMarginHistory []float64
	marginHistory     []float64
}

func New(orderManager *engine.OrderManager, walk *pricing.RandomWalk, startPrice float64, interval time.Duration) *Simulator {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}

	return &Simulator{
		orderManager: orderManager,
		walk:         walk,
		currentPrice: startPrice,
		interval:     interval,
	}
}

// Start launches the periodic tick loop. A second Start while running is a
// no-op.
func (s *Simulator) Start() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.run(ctx)

	log.Info("simulation started")
}

// Stop cancels the tick source and waits for the in-flight tick, if any, to
// finish.
func (s *Simulator) Stop() {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return
	}

	s.running = false
	cancel := s.cancel
	done := s.done
	s.mutex.Unlock()

	cancel()
	<-done

	log.Info("simulation stopped")
}

func (s *Simulator) Running() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.running
}

func (s *Simulator) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Step()
		}
	}
}

// Step processes exactly one tick. The ticker loop calls it; headless
// drivers can call it directly.
func (s *Simulator) Step() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.step()
}

// RunTicks processes n ticks back to back, for headless runs.
func (s *Simulator) RunTicks(n int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i := 0; i < n; i++ {
		s.step()
	}
}

func (s *Simulator) step() {
	price := s.walk.Step(s.currentPrice)
	s.currentPrice = price

	s.orderManager.CheckOrders(price)

	balance := s.orderManager.Balance()
	freeMargin := s.orderManager.FreeMargin()
	floatingProfit := s.orderManager.FloatingProfit()

	s.balanceHistory = append(s.balanceHistory, balance)
	s.freeMarginHistory = append(s.freeMarginHistory, freeMargin)
	s.marginHistory = append(s.marginHistory, balance-freeMargin)

	s.report(balance, freeMargin, floatingProfit)

	eventpubsub.Publish("Simulator", eventpubsub.TickProcessedEvent, s.stateLocked())
}

func (s *Simulator) report(balance, freeMargin, floatingProfit float64) {
	tick := s.orderManager.Tick()

	log.WithFields(log.Fields{
		"tick":            tick,
		"price":           s.currentPrice,
		"balance":         balance,
		"profit":          s.orderManager.Profit(),
		"floating_profit": floatingProfit,
		"free_margin":     freeMargin,
	}).Debug("tick processed")

	if freeMargin < balance*lowMarginFraction {
		log.Warnf("low free margin: %.2f of balance %.2f", freeMargin, balance)

		eventpubsub.Publish("Simulator", eventpubsub.MarginWarningEvent, eventpubsub.AccountWarningEvent{
			Tick:           tick,
			Balance:        balance,
			FreeMargin:     freeMargin,
			FloatingProfit: floatingProfit,
		})
	}

	if floatingProfit < -balance*floatingLossFraction {
		log.Warnf("high floating loss: %.2f against balance %.2f", floatingProfit, balance)

		eventpubsub.Publish("Simulator", eventpubsub.FloatingLossWarningEvent, eventpubsub.AccountWarningEvent{
			Tick:           tick,
			Balance:        balance,
			FreeMargin:     freeMargin,
			FloatingProfit: floatingProfit,
		})
	}
}

// SetGridSettings applies a settings change between ticks.
func (s *Simulator) SetGridSettings(settings GridSettings) error {
	if settings.GridSize <= 0 {
		return fmt.Errorf("Simulator.SetGridSettings: grid size must be positive, got %v", settings.GridSize)
	}

	if settings.Volatility <= 0 {
		return fmt.Errorf("Simulator.SetGridSettings: volatility must be positive, got %v", settings.Volatility)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.orderManager.SetGridStepPercent(settings.GridSize)
	s.walk.SetVolatility(settings.Volatility)

	log.Infof("grid settings updated: grid_size=%v, volatility=%v", settings.GridSize, settings.Volatility)

	return nil
}

// PlaceOrder places a manual order, serialized against tick processing.
func (s *Simulator) PlaceOrder(side models.OrderSide, price, volume float64) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.orderManager.PlaceOrder(side, price, volume)
}

func (s *Simulator) ClearOrders() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.orderManager.ClearOrders()
}

func (s *Simulator) InitializeGrid() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.orderManager.InitializeGrid()
}

// StateSnapshot is the per-tick view the display collaborator renders.
type StateSnapshot struct {
	Tick           int64              `json:"tick"`
	Price          float64            `json:"price"`
	Ema            *float64           `json:"ema,omitempty"`
	Balance        float64            `json:"balance"`
	Profit         float64            `json:"profit"`
	FloatingProfit float64            `json:"floating_profit"`
	FreeMargin     float64            `json:"free_margin"`
	Margin         float64            `json:"margin"`
	Orders         []*models.Order    `json:"orders"`
	Positions      []*models.Position `json:"positions"`
}

func (s *Simulator) State() StateSnapshot {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.stateLocked()
}

func (s *Simulator) stateLocked() StateSnapshot {
	state := StateSnapshot{
		Tick:           s.orderManager.Tick(),
		Price:          s.orderManager.CurrentPrice(),
		Balance:        s.orderManager.Balance(),
		Profit:         s.orderManager.Profit(),
		FloatingProfit: s.orderManager.FloatingProfit(),
		FreeMargin:     s.orderManager.FreeMargin(),
		Orders:         s.orderManager.Orders(),
		Positions:      s.orderManager.OpenPositions(),
	}

	state.Margin = state.Balance - state.FreeMargin

	if ema, ok := s.orderManager.Ema(); ok {
		state.Ema = &ema
	}

	return state
}

func (s *Simulator) OrderHistory() []*models.Order {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.orderManager.OrderHistory()
}

func (s *Simulator) OpenPositions() []*models.Position {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.orderManager.OpenPositions()
}

func (s *Simulator) ClosedPositions() []*models.Position {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.orderManager.ClosedPositions()
}

func (s *Simulator) GetProfitSummary() engine.ProfitSummary {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.orderManager.GetProfitSummary()
}

func (s *Simulator) Distribution(bins int) *engine.PriceDistribution {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.orderManager.GetPriceDistributionData(bins)
}

// Histories returns the balance, free margin, and reserved margin series
// recorded once per tick.
func (s *Simulator) Histories() (balance, freeMargin, margin []float64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	balance = append([]float64(nil), s.balanceHistory...)
	freeMargin = append([]float64(nil), s.freeMarginHistory...)
	margin = append([]float64(nil), s.marginHistory...)

	return balance, freeMargin, margin
}

// SaveSnapshot writes the engine state to a file.
func (s *Simulator) SaveSnapshot(filename string) error {
	s.mutex.Lock()
	snapshot := s.orderManager.Snapshot()
	s.mutex.Unlock()

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("Simulator.SaveSnapshot: create %s: %w", filename, err)
	}
	defer f.Close()

	if err := snapshot.Write(f); err != nil {
		return fmt.Errorf("Simulator.SaveSnapshot: %w", err)
	}

	return nil
}

// RestoreFromSnapshot swaps in an engine restored from a snapshot file. The
// simulation must be stopped.
func (s *Simulator) RestoreFromSnapshot(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("Simulator.RestoreFromSnapshot: open %s: %w", filename, err)
	}
	defer f.Close()

	snapshot, err := engine.ReadSnapshot(f)
	if err != nil {
		return fmt.Errorf("Simulator.RestoreFromSnapshot: %w", err)
	}

	orderManager, err := engine.RestoreOrderManager(snapshot)
	if err != nil {
		return fmt.Errorf("Simulator.RestoreFromSnapshot: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return fmt.Errorf("Simulator.RestoreFromSnapshot: simulation is running")
	}

	s.orderManager = orderManager
	s.currentPrice = snapshot.CurrentPrice

	return nil
}
