// Package glicko2 implements the Glicko-2 rating update as pure functions.
//
// Variables follow the naming in Glickman's paper:
//   - Mu, Phi: rating and deviation on the internal Glicko-2 scale.
//   - Sigma: rating volatility.
//   - Tau: the volatility change constraint.
//   - G: weighting that discounts opponents with high deviation.
//   - E: expected score against an opponent.
//   - V: estimated variance of the rating from game outcomes only.
//   - Delta: estimated improvement from game outcomes.
//
// See https://www.glicko.net/glicko/glicko2.pdf for details.
package glicko2

import (
	"fmt"
	"math"
	"strings"
)

// Rating is a player's public (1500-centred) strength estimate. Values are
// replaced, never mutated in place.
type Rating struct {
	Rating     float64 `json:"rating" yaml:"rating"`
	Deviation  float64 `json:"deviation" yaml:"deviation"`
	Volatility float64 `json:"volatility" yaml:"volatility"`
}

// NewRating returns a Rating from its three public components.
func NewRating(rating, deviation, volatility float64) Rating {
	return Rating{Rating: rating, Deviation: deviation, Volatility: volatility}
}

// Validate reports ErrInvalidRating for non-finite components or a
// non-positive deviation or volatility.
func (r Rating) Validate() error {
	switch {
	case !finite(r.Rating):
		return fmt.Errorf("%w: rating %v is not finite", ErrInvalidRating, r.Rating)
	case !finite(r.Deviation) || r.Deviation <= 0:
		return fmt.Errorf("%w: deviation %v must be positive", ErrInvalidRating, r.Deviation)
	case !finite(r.Volatility) || r.Volatility <= 0:
		return fmt.Errorf("%w: volatility %v must be positive", ErrInvalidRating, r.Volatility)
	}
	return nil
}

// Interval returns the approximate 95% confidence band of the rating.
func (r Rating) Interval() (low, high float64) {
	const z = 1.96
	return r.Rating - z*r.Deviation, r.Rating + z*r.Deviation
}

// String renders the rating as "r/RD/σ".
func (r Rating) String() string {
	return fmt.Sprintf("%.2f/%.2f/%.5f", r.Rating, r.Deviation, r.Volatility)
}

// Outcome is one game of a rating period: the opponent as they were when the
// game was played, and the score from the rated player's side.
type Outcome struct {
	Opponent Rating
	Score    float64
}

// MatchResult is the outcome of a game from the first named player's side.
type MatchResult uint8

// Match results. The zero value is a loss.
const (
	ResultLoss MatchResult = iota
	ResultDraw
	ResultWin
)

// Win returns the result where the first player won.
func Win() MatchResult { return ResultWin }

// Draw returns the drawn result.
func Draw() MatchResult { return ResultDraw }

// Loss returns the result where the first player lost.
func Loss() MatchResult { return ResultLoss }

// Score is the Glicko-2 score of the result: 1, 0.5 or 0.
func (m MatchResult) Score() float64 {
	switch m {
	case ResultWin:
		return 1
	case ResultDraw:
		return 0.5
	default:
		return 0
	}
}

// Invert returns the result as seen by the second player.
func (m MatchResult) Invert() MatchResult {
	switch m {
	case ResultWin:
		return ResultLoss
	case ResultLoss:
		return ResultWin
	default:
		return ResultDraw
	}
}

func (m MatchResult) String() string {
	switch m {
	case ResultWin:
		return "win"
	case ResultDraw:
		return "draw"
	default:
		return "loss"
	}
}

// ParseMatchResult parses "win", "draw" or "loss" (case-insensitive).
func ParseMatchResult(s string) (MatchResult, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "win":
		return ResultWin, nil
	case "draw":
		return ResultDraw, nil
	case "loss":
		return ResultLoss, nil
	default:
		return ResultLoss, fmt.Errorf("%w: %q", ErrInvalidResult, s)
	}
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
