package indicators

import (
	"github.com/montanaflynn/stats"
)

// Ema is a streaming exponential moving average. The first value is seeded
// with the simple mean of the first Period prices; until then the EMA is
// undefined and Update reports false.
type Ema struct {
	Period int
	warmup []float64
	value  *float64
}

func (e *Ema) Update(price float64) (bool, float64) {
	if e.value == nil {
		e.warmup = append(e.warmup, price)
		if len(e.warmup) < e.Period {
			return false, 0
		}

		seed, err := stats.Mean(e.warmup)
		if err != nil {
			return false, 0
		}

		e.value = &seed
		e.warmup = nil
		return true, seed
	}

	k := 2.0 / (float64(e.Period) + 1.0)
	next := price*k + *e.value*(1.0-k)
	e.value = &next

	return true, next
}

func (e *Ema) Ready() bool {
	return e.value != nil
}

func (e *Ema) Value() float64 {
	if e.value == nil {
		return 0
	}

	return *e.value
}

// EmaState is the serializable form of the indicator.
type EmaState struct {
	Period int       `json:"period"`
	Warmup []float64 `json:"warmup,omitempty"`
	Value  *float64  `json:"value,omitempty"`
}

func (e *Ema) State() EmaState {
	state := EmaState{
		Period: e.Period,
		Warmup: append([]float64(nil), e.warmup...),
	}

	if e.value != nil {
		v := *e.value
		state.Value = &v
	}

	return state
}

func NewEmaFromState(state EmaState) *Ema {
	ema := &Ema{
		Period: state.Period,
		warmup: append([]float64(nil), state.Warmup...),
	}

	if state.Value != nil {
		v := *state.Value
		ema.value = &v
	}

	return ema
}

func NewEma(period int) *Ema {
	return &Ema{
		Period: period,
	}
}
