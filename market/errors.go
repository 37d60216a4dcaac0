package market

import (
	"errors"
	"fmt"
)

var (
	// ErrInstrumentMismatch is matched by *InstrumentMismatchError.
	ErrInstrumentMismatch = errors.New("instrument mismatch")
	// ErrNoPrice is returned when no quote is known for an instrument at a time.
	ErrNoPrice = errors.New("price not found")
	// ErrClockBackwards is returned when a clock is asked to move into the past.
	ErrClockBackwards = errors.New("clock cannot move backwards")
)

// InstrumentMismatchError reports arithmetic or comparison between assets of
// different instruments.
type InstrumentMismatchError struct {
	Op    string
	Left  Instrument
	Right Instrument
}

func (e *InstrumentMismatchError) Error() string {
	return fmt.Sprintf("%s: %v: %s(prec %d) vs %s(prec %d)",
		e.Op, ErrInstrumentMismatch, e.Left.Symbol, e.Left.Precision, e.Right.Symbol, e.Right.Precision)
}

func (e *InstrumentMismatchError) Is(target error) bool { return target == ErrInstrumentMismatch }
