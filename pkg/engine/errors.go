package engine

import (
	"errors"

	"github.com/okian/glicko2/pkg/glicko2"
)

// Sentinel error kinds for the engine. Math errors are re-exported so callers
// can match every failure against this package alone.
var (
	ErrUnknownPlayer   = errors.New("unknown player")
	ErrInvalidSettings = errors.New("invalid settings")
	ErrSealedPeriod    = errors.New("rating period already sealed")
	ErrSamePlayer      = errors.New("player cannot play against itself")

	ErrInvalidRating      = glicko2.ErrInvalidRating
	ErrConvergenceFailure = glicko2.ErrConvergenceFailure
)
