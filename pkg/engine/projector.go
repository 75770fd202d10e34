package engine

import (
	"fmt"
	"time"

	"github.com/okian/glicko2/pkg/glicko2"
)

// Projection is a player's rating as of an instant.
type Projection struct {
	// Rating is the projected rating.
	Rating glicko2.Rating `json:"rating"`
	// PriorDeviation is the deviation at the query instant before any result
	// of the open period is applied, i.e. the inactivity-decayed deviation.
	PriorDeviation float64 `json:"prior_deviation"`
	// Pending counts the open-period results included in Rating.
	Pending int `json:"pending"`
	// Period is the index of the period containing the query instant.
	Period int64 `json:"period"`
	// Elapsed is the number of periods, fractional, between the committed
	// rating and the query instant.
	Elapsed float64 `json:"elapsed"`
}

// fold carries rec forward to the start of period until. Idle spans decay in
// closed form; each period holding results is applied in its own right, oldest
// first. It returns the folded rating and the instant it is valid at.
func (e *Engine) fold(rec playerRecord, until int64) (glicko2.Rating, time.Time, error) {
	r, at := rec.rating, rec.asOf
	for _, k := range e.ledger.periods(rec.handle, until) {
		start := e.sched.periodStart(k)
		r = glicko2.DecayUpdate(r, e.sched.span(at, start))
		if at.Before(start) {
			at = start
		}
		end := e.sched.periodStart(k + 1)
		next, err := glicko2.UpdateOver(r, outcomes(e.ledger.entries(rec.handle, k)), e.sched.span(at, end), e.params)
		if err != nil {
			return glicko2.Rating{}, time.Time{}, fmt.Errorf("player %d period %d: %w", rec.handle, k, err)
		}
		r, at = next, end
	}

	boundary := e.sched.periodStart(until)
	r = glicko2.DecayUpdate(r, e.sched.span(at, boundary))
	if at.Before(boundary) {
		at = boundary
	}
	return r, at, nil
}

// project answers "what is rec's rating at t" without touching engine state.
// Callers hold at least the read lock.
func (e *Engine) project(rec playerRecord, t time.Time) (Projection, error) {
	target := e.sched.periodIndex(t)
	r, at, err := e.fold(rec, target)
	if err != nil {
		return Projection{}, err
	}

	elapsed := e.sched.span(at, t)
	prior := glicko2.DecayUpdate(r, elapsed)
	p := Projection{
		Rating:         prior,
		PriorDeviation: prior.Deviation,
		Period:         target,
		Elapsed:        e.sched.span(rec.asOf, t),
	}

	open := e.ledger.entriesBefore(rec.handle, target, t)
	if len(open) == 0 {
		return p, nil
	}
	p.Rating, err = glicko2.UpdateOver(r, outcomes(open), elapsed, e.params)
	if err != nil {
		return Projection{}, fmt.Errorf("player %d open period %d: %w", rec.handle, target, err)
	}
	p.Pending = len(open)
	return p, nil
}
