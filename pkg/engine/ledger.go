package engine

import (
	"fmt"
	"slices"
	"time"

	"github.com/okian/glicko2/pkg/glicko2"
)

// PendingResult is one game waiting for its period to seal.
type PendingResult struct {
	// Opponent is the other player's handle.
	Opponent Handle
	// OpponentRating is the opponent's projected rating when the game was
	// registered; later changes to the opponent do not alter it.
	OpponentRating glicko2.Rating
	// Score is 1, 0.5 or 0 from the owning player's side.
	Score float64
	// At is the event time.
	At time.Time
}

// ledger buffers pending results per player and per period.
type ledger struct {
	byPlayer map[Handle]map[int64][]PendingResult
	size     int
}

func newLedger() *ledger {
	return &ledger{byPlayer: make(map[Handle]map[int64][]PendingResult)}
}

// append records e for h in period. Periods below floor are sealed and
// immutable.
func (l *ledger) append(h Handle, period, floor int64, e PendingResult) error {
	if period < floor {
		return fmt.Errorf("%w: period %d, first open period is %d", ErrSealedPeriod, period, floor)
	}
	periods, ok := l.byPlayer[h]
	if !ok {
		periods = make(map[int64][]PendingResult)
		l.byPlayer[h] = periods
	}
	periods[period] = append(periods[period], e)
	l.size++
	return nil
}

// entries returns every result of h in period. Callers must not modify it.
func (l *ledger) entries(h Handle, period int64) []PendingResult {
	return l.byPlayer[h][period]
}

// entriesBefore returns the results of h in period stamped at or before cutoff.
func (l *ledger) entriesBefore(h Handle, period int64, cutoff time.Time) []PendingResult {
	all := l.byPlayer[h][period]
	out := make([]PendingResult, 0, len(all))
	for _, e := range all {
		if !e.At.After(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// periods lists, oldest first, the periods below before that hold results for h.
func (l *ledger) periods(h Handle, before int64) []int64 {
	out := make([]int64, 0, len(l.byPlayer[h]))
	for p := range l.byPlayer[h] {
		if p < before {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out
}

// drain removes and returns the results of h in period.
func (l *ledger) drain(h Handle, period int64) []PendingResult {
	periods := l.byPlayer[h]
	out := periods[period]
	delete(periods, period)
	if len(periods) == 0 {
		delete(l.byPlayer, h)
	}
	l.size -= len(out)
	return out
}

// pending counts every buffered result of h.
func (l *ledger) pending(h Handle) int {
	n := 0
	for _, es := range l.byPlayer[h] {
		n += len(es)
	}
	return n
}

func outcomes(entries []PendingResult) []glicko2.Outcome {
	out := make([]glicko2.Outcome, len(entries))
	for i, e := range entries {
		out[i] = glicko2.Outcome{Opponent: e.OpponentRating, Score: e.Score}
	}
	return out
}
