// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/okian/glicko2/pkg/engine"
	"github.com/okian/glicko2/pkg/glicko2"
)

// ErrInvalidReport is returned by MatchReport.Validate.
var ErrInvalidReport = errors.New("invalid match report")

// MatchReport is one finished game submitted for rating.
type MatchReport struct {
	ID      string              // unique id for idempotency
	PlayerA engine.Handle       // first named player
	PlayerB engine.Handle       // second named player
	Result  glicko2.MatchResult // outcome from PlayerA's side
	At      time.Time           // event time
}

// Validate rejects reports that can never be applied.
func (r MatchReport) Validate() error {
	switch {
	case r.PlayerA == r.PlayerB:
		return fmt.Errorf("%w: player %d paired with itself", ErrInvalidReport, r.PlayerA)
	case r.At.IsZero():
		return fmt.Errorf("%w: missing event time", ErrInvalidReport)
	case r.Result > glicko2.ResultWin:
		return fmt.Errorf("%w: result %d", ErrInvalidReport, r.Result)
	}
	return nil
}

// Standing is one row of a ranked snapshot.
type Standing struct {
	Rank   int            `json:"rank"`
	Handle engine.Handle  `json:"handle"`
	Rating glicko2.Rating `json:"rating"`
	// Pending counts open-period results already reflected in Rating.
	Pending int `json:"pending"`
}
