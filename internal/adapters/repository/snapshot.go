package repository

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/okian/glicko2/internal/domain/model"
	"github.com/okian/glicko2/pkg/engine"
	"github.com/okian/glicko2/pkg/metrics"
)

// Ordering: rating DESC, then handle ASC (deterministic).

var _ Store = (*SnapshotStore)(nil)

// Snapshot is an immutable ranking of the pool at one instant.
type Snapshot struct {
	// Standings in rank order.
	Standings []model.Standing
	// Index into Standings by handle.
	ByHandle map[engine.Handle]int
	// At is the instant the ratings were projected to.
	At time.Time
}

// SnapshotStore publishes standings as atomically swapped snapshots, so
// readers never take a lock.
type SnapshotStore struct {
	topCacheSize int
	snapshot     atomic.Pointer[Snapshot]
}

// NewSnapshotStore constructs an empty store with configuration options.
func NewSnapshotStore(opts ...Option) *SnapshotStore {
	s := &SnapshotStore{
		topCacheSize: 500,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	s.snapshot.Store(&Snapshot{ByHandle: map[engine.Handle]int{}})
	return s
}

// Publish ranks players and swaps the snapshot in.
func (s *SnapshotStore) Publish(_ context.Context, at time.Time, players []engine.PlayerProjection) error {
	start := time.Now()

	standings := make([]model.Standing, len(players))
	for i, p := range players {
		standings[i] = model.Standing{
			Handle:  p.Handle,
			Rating:  p.Projection.Rating,
			Pending: p.Projection.Pending,
		}
	}
	sortStandings(standings)
	assignRanksWithTies(standings)

	byHandle := make(map[engine.Handle]int, len(standings))
	for i, st := range standings {
		byHandle[st.Handle] = i
	}

	s.snapshot.Store(&Snapshot{Standings: standings, ByHandle: byHandle, At: at})

	metrics.RecordStandingsPublished(len(standings))
	metrics.RecordStandingsRebuildDuration(float64(time.Since(start).Microseconds()) / 1000)
	return nil
}

// Snapshot returns the last published snapshot.
func (s *SnapshotStore) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// Rank returns the standing of h in O(1).
func (s *SnapshotStore) Rank(_ context.Context, h engine.Handle) (model.Standing, error) {
	snap := s.snapshot.Load()
	i, ok := snap.ByHandle[h]
	if !ok {
		return model.Standing{}, ErrNotFound
	}
	return snap.Standings[i], nil
}

// TopN returns the top n standings. n is capped by the top cache size.
func (s *SnapshotStore) TopN(_ context.Context, n int) ([]model.Standing, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	n = min(n, s.topCacheSize)

	snap := s.snapshot.Load()
	n = min(n, len(snap.Standings))
	out := make([]model.Standing, n)
	copy(out, snap.Standings[:n])
	return out, nil
}

// Count returns the number of ranked players.
func (s *SnapshotStore) Count(_ context.Context) int {
	return len(s.snapshot.Load().Standings)
}

// sortStandings sorts by rating (descending) and handle (ascending).
func sortStandings(standings []model.Standing) {
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Rating.Rating != standings[j].Rating.Rating {
			return standings[i].Rating.Rating > standings[j].Rating.Rating
		}
		return standings[i].Handle < standings[j].Handle
	})
}

// assignRanksWithTies gives equal ratings the same rank. Ranks are
// consecutive: the rank after a tie is one more than the tied rank.
func assignRanksWithTies(standings []model.Standing) {
	rank := 0
	for i := range standings {
		if i == 0 || standings[i].Rating.Rating != standings[i-1].Rating.Rating {
			rank++
		}
		standings[i].Rank = rank
	}
}
