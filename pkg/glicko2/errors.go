package glicko2

import "errors"

// Sentinel error kinds for this package. These allow errors.Is from callers.
var (
	ErrInvalidRating      = errors.New("invalid rating")
	ErrInvalidResult      = errors.New("invalid match result")
	ErrInvalidParams      = errors.New("invalid glicko-2 parameters")
	ErrConvergenceFailure = errors.New("volatility solver did not converge")
)
