// Package indicators provides streaming price indicators for strategies.
package indicators

import (
	"fmt"
	"strings"
)

// Indicator computes a single streaming value from prices.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next price.
	Update(price float64)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current value, or 0 before Ready().
	Value() float64
}

// New builds a moving average by kind: "sma" (or "ma") and "ema".
func New(kind string, period int) (Indicator, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period must be positive, got %d", period)
	}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "sma", "ma":
		return NewMA(period), nil
	case "ema":
		return NewEMA(period), nil
	}
	return nil, fmt.Errorf("unknown moving average %q", kind)
}
