package portfolio

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/merchant/market"
)

var (
	// ErrInsufficientBalance is matched by *InsufficientBalanceError.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInsufficientLots is matched by *InsufficientLotsError.
	ErrInsufficientLots = errors.New("insufficient lots")
	// ErrInvalidBenchmarkArguments is matched by *InvalidBenchmarkArgumentsError.
	ErrInvalidBenchmarkArguments = errors.New("invalid benchmark arguments")

	ErrSameInstrument   = errors.New("trade buys and sells the same instrument")
	ErrNegativeQuantity = errors.New("negative quantity")
	ErrUnknownBenchmark = errors.New("unknown benchmark")
)

// InsufficientBalanceError reports a removal larger than what is held.
type InsufficientBalanceError struct {
	Held      market.Asset
	Requested market.Asset
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("remove %s: %v: holding %s", e.Requested, ErrInsufficientBalance, e.Held)
}

func (e *InsufficientBalanceError) Is(target error) bool { return target == ErrInsufficientBalance }

// InsufficientLotsError reports a sale that open lots cannot cover. It means
// holdings and lot bookkeeping diverged.
type InsufficientLotsError struct {
	Requested market.Asset
	Open      market.Asset
}

func (e *InsufficientLotsError) Error() string {
	return fmt.Sprintf("close %s: %v: %s open", e.Requested, ErrInsufficientLots, e.Open)
}

func (e *InsufficientLotsError) Is(target error) bool { return target == ErrInsufficientLots }

// InvalidBenchmarkArgumentsError reports declared benchmark arguments that the
// bound benchmark rejects.
type InvalidBenchmarkArgumentsError struct {
	Benchmark string
	Args      Args
	Err       error
}

func (e *InvalidBenchmarkArgumentsError) Error() string {
	return fmt.Sprintf("benchmark %s: %v %v: %v", e.Benchmark, ErrInvalidBenchmarkArguments, e.Args, e.Err)
}

func (e *InvalidBenchmarkArgumentsError) Is(target error) bool {
	return target == ErrInvalidBenchmarkArguments
}

func (e *InvalidBenchmarkArgumentsError) Unwrap() error { return e.Err }
