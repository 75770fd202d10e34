package engine

import (
	"fmt"
	"time"

	"github.com/okian/glicko2/pkg/glicko2"
)

// Handle identifies a registered player. Handles are allocated in order from
// zero and never reused.
type Handle uint64

// playerRecord is a player's committed state.
type playerRecord struct {
	handle       Handle
	rating       glicko2.Rating
	registeredAt time.Time
	// period is the first period not yet folded into rating.
	period int64
	// asOf is the instant rating is valid at: the registration time or the
	// boundary of the last close.
	asOf time.Time
}

// store owns player records.
type store struct {
	records []playerRecord
}

func newStore() *store {
	return &store{}
}

func (s *store) register(r glicko2.Rating, at time.Time, period int64) Handle {
	h := Handle(len(s.records))
	s.records = append(s.records, playerRecord{
		handle:       h,
		rating:       r,
		registeredAt: at,
		period:       period,
		asOf:         at,
	})
	return h
}

func (s *store) committed(h Handle) (playerRecord, error) {
	if uint64(h) >= uint64(len(s.records)) {
		return playerRecord{}, fmt.Errorf("%w: %d", ErrUnknownPlayer, h)
	}
	return s.records[h], nil
}

// commit replaces the committed rating of h. Only the close path calls it.
func (s *store) commit(h Handle, r glicko2.Rating, period int64, asOf time.Time) {
	rec := &s.records[h]
	rec.rating = r
	rec.period = period
	rec.asOf = asOf
}

func (s *store) count() int {
	return len(s.records)
}

func (s *store) handles() []Handle {
	out := make([]Handle, len(s.records))
	for i := range s.records {
		out[i] = Handle(i)
	}
	return out
}
