package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/okian/glicko2/pkg/glicko2"
)

// Default settings constants.
const (
	defaultStartRating     = 1500
	defaultStartDeviation  = 350
	defaultStartVolatility = 0.06
	defaultRatingPeriod    = 7 * 24 * time.Hour
)

// Settings are fixed at engine construction.
type Settings struct {
	// StartRating is suggested to callers registering a new player.
	StartRating glicko2.Rating
	// VolatilityChange is tau, the constraint on volatility movement.
	VolatilityChange float64
	// ConvergenceTolerance is epsilon for the volatility solver.
	ConvergenceTolerance float64
	// RatingPeriodDuration is the width of every rating period.
	RatingPeriodDuration time.Duration
}

// DefaultSettings returns 1500/350/0.06 players, tau 0.5 and one-week periods.
func DefaultSettings() Settings {
	return Settings{
		StartRating:          glicko2.NewRating(defaultStartRating, defaultStartDeviation, defaultStartVolatility),
		VolatilityChange:     glicko2.DefaultTau,
		ConvergenceTolerance: glicko2.DefaultEpsilon,
		RatingPeriodDuration: defaultRatingPeriod,
	}
}

// Validate reports ErrInvalidSettings for non-positive tau, epsilon or period
// duration and for a malformed start rating.
func (s Settings) Validate() error {
	switch {
	case !positive(s.VolatilityChange):
		return fmt.Errorf("%w: volatility change %v must be positive", ErrInvalidSettings, s.VolatilityChange)
	case !positive(s.ConvergenceTolerance):
		return fmt.Errorf("%w: convergence tolerance %v must be positive", ErrInvalidSettings, s.ConvergenceTolerance)
	case s.RatingPeriodDuration <= 0:
		return fmt.Errorf("%w: rating period duration %v must be positive", ErrInvalidSettings, s.RatingPeriodDuration)
	}
	if err := s.StartRating.Validate(); err != nil {
		return fmt.Errorf("%w: start rating: %w", ErrInvalidSettings, err)
	}
	return nil
}

func (s Settings) params(maxIterations int) glicko2.Params {
	return glicko2.Params{
		Tau:           s.VolatilityChange,
		Epsilon:       s.ConvergenceTolerance,
		MaxIterations: maxIterations,
	}
}

func positive(x float64) bool { return x > 0 && !math.IsInf(x, 1) }
