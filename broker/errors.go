package broker

import "errors"

var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInsufficientShares  = errors.New("insufficient shares")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrStorage             = errors.New("storage failure")
)

// Retryable reports whether the operation that returned err may be retried
// unchanged.
func Retryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}

// Kind returns the taxonomy sentinel err wraps, or nil when err carries none.
func Kind(err error) error {
	for _, k := range []error{
		ErrValidation,
		ErrNotFound,
		ErrInsufficientFunds,
		ErrInsufficientShares,
		ErrConcurrencyConflict,
		ErrStorage,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
