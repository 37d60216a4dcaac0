package indicators

import (
	"fmt"

	"github.com/montanaflynn/stats"
)

// SimpleMA is a streaming Simple Moving Average indicator
type SimpleMA struct {
	period int
	window []float64
}

// NewMA creates a new Simple Moving Average indicator with the given period
func NewMA(period int) *SimpleMA {
	return &SimpleMA{
		period: period,
		window: make([]float64, 0, period),
	}
}

func (m *SimpleMA) Name() string { return fmt.Sprintf("MA(%d)", m.period) }
func (m *SimpleMA) Warmup() int  { return m.period }
func (m *SimpleMA) Reset()       { m.window = m.window[:0] }
func (m *SimpleMA) Ready() bool  { return len(m.window) >= m.period }

func (m *SimpleMA) Update(price float64) {
	m.window = append(m.window, price)
	// Keep only the last 'period' prices
	if len(m.window) > m.period {
		m.window = m.window[len(m.window)-m.period:]
	}
}

func (m *SimpleMA) Value() float64 {
	if !m.Ready() {
		return 0
	}
	mean, err := stats.Mean(m.window)
	if err != nil {
		return 0
	}
	return mean
}

// ExponentialMA is a streaming Exponential Moving Average indicator. It is
// seeded with the simple average of its first period prices.
type ExponentialMA struct {
	period     int
	multiplier float64
	ema        float64
	count      int
	warmupSum  float64
}

// NewEMA creates a new Exponential Moving Average indicator with the given period
func NewEMA(period int) *ExponentialMA {
	return &ExponentialMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *ExponentialMA) Name() string { return fmt.Sprintf("EMA(%d)", e.period) }
func (e *ExponentialMA) Warmup() int  { return e.period }
func (e *ExponentialMA) Ready() bool  { return e.count >= e.period }

func (e *ExponentialMA) Reset() {
	e.ema = 0
	e.count = 0
	e.warmupSum = 0
}

func (e *ExponentialMA) Update(price float64) {
	if e.count < e.period {
		e.warmupSum += price
		e.count++
		if e.count == e.period {
			e.ema = e.warmupSum / float64(e.period)
		}
		return
	}
	e.ema = (price-e.ema)*e.multiplier + e.ema
}

func (e *ExponentialMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.ema
}
