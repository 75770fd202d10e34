// Package engine provides an incremental, time-aware Glicko-2 rating engine.
//
// Results are stamped with event times and buffered per rating period.
// Ratings can be projected to any instant, including one inside a period that
// is still open, and periods are sealed independently of queries. Every
// operation takes an explicit time; the untimed variants read the wall clock
// once and delegate.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/glicko2/pkg/glicko2"
	"github.com/okian/glicko2/pkg/logger"
	"github.com/okian/glicko2/pkg/metrics"
)

// CloseReport describes a call to MaybeCloseRatingPeriods.
type CloseReport struct {
	// Closed is the number of periods sealed by the call.
	Closed int64 `json:"closed"`
	// Sealed is the first period still open after the call.
	Sealed int64 `json:"sealed"`
	// Elapsed is the fractional number of periods since the last sealed boundary.
	Elapsed float64 `json:"elapsed"`
}

// PlayerProjection pairs a handle with its projection.
type PlayerProjection struct {
	Handle     Handle     `json:"handle"`
	Projection Projection `json:"projection"`
}

// Engine is the rating engine. Player records, the ledger and the sealed
// period index form one unit of state guarded by mu: mutations take the write
// lock and projections the read lock, so a reader never sees a period half
// sealed.
type Engine struct {
	mu sync.RWMutex

	settings      Settings
	params        glicko2.Params
	maxIterations int
	epoch         time.Time

	store  *store
	ledger *ledger
	sched  *scheduler

	now    func() time.Time
	logger logger.Logger
}

// New validates settings and constructs an Engine.
func New(settings Settings, opts ...Option) (*Engine, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		settings:      settings,
		maxIterations: glicko2.DefaultMaxIterations,
		store:         newStore(),
		ledger:        newLedger(),
		now:           time.Now,
		logger:        logger.Nop(),
	}

	// Apply all options
	for _, opt := range opts {
		opt(e)
	}

	if e.epoch.IsZero() {
		e.epoch = e.now()
	}
	e.params = settings.params(e.maxIterations)
	e.sched = newScheduler(e.epoch, settings.RatingPeriodDuration)
	return e, nil
}

// Settings returns the settings the engine was built with.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Epoch returns the start of period zero.
func (e *Engine) Epoch() time.Time {
	return e.epoch
}

// RegisterPlayer registers a player now.
func (e *Engine) RegisterPlayer(ctx context.Context, r glicko2.Rating) (Handle, error) {
	return e.RegisterPlayerAt(ctx, r, e.now())
}

// RegisterPlayerAt registers a player with rating r at t. The player receives
// no decay for time before t.
func (e *Engine) RegisterPlayerAt(ctx context.Context, r glicko2.Rating, t time.Time) (Handle, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}

	e.mu.Lock()
	h := e.store.register(r, t, e.sched.periodIndex(t))
	total := e.store.count()
	e.mu.Unlock()

	metrics.RecordPlayerRegistered()
	metrics.UpdatePlayersTotal(total)
	e.logger.Debug(ctx, "player registered",
		logger.Any("handle", h),
		logger.String("rating", r.String()),
		logger.Time("at", t),
	)
	return h, nil
}

// RegisterResult records a game played now.
func (e *Engine) RegisterResult(ctx context.Context, a, b Handle, result glicko2.MatchResult) error {
	return e.RegisterResultAt(ctx, a, b, result, e.now())
}

// RegisterResultAt records result for a, and its complement for b, in the
// period containing t. Each side stores the other's rating as projected at t.
func (e *Engine) RegisterResultAt(ctx context.Context, a, b Handle, result glicko2.MatchResult, t time.Time) error {
	if a == b {
		metrics.RecordResultRejected("same_player")
		return fmt.Errorf("%w: %d", ErrSamePlayer, a)
	}

	e.mu.Lock()
	pending, err := e.registerResultLocked(a, b, result, t)
	e.mu.Unlock()
	if err != nil {
		metrics.RecordResultRejected(rejectReason(err))
		e.logger.Warn(ctx, "result rejected",
			logger.Any("player_a", a),
			logger.Any("player_b", b),
			logger.Time("at", t),
			logger.Error(err),
		)
		return err
	}

	metrics.RecordResultRegistered()
	metrics.UpdatePendingResults(pending)
	return nil
}

func (e *Engine) registerResultLocked(a, b Handle, result glicko2.MatchResult, t time.Time) (int, error) {
	recA, err := e.store.committed(a)
	if err != nil {
		return 0, err
	}
	recB, err := e.store.committed(b)
	if err != nil {
		return 0, err
	}

	period := e.sched.periodIndex(t)
	floorA, floorB := e.floor(recA), e.floor(recB)
	if period < floorA || period < floorB {
		return 0, fmt.Errorf("%w: period %d, first open period is %d", ErrSealedPeriod, period, max(floorA, floorB))
	}

	// Snapshot both sides before either entry lands.
	snapA, err := e.project(recA, t)
	if err != nil {
		return 0, err
	}
	snapB, err := e.project(recB, t)
	if err != nil {
		return 0, err
	}

	if err := e.ledger.append(a, period, floorA, PendingResult{
		Opponent:       b,
		OpponentRating: snapB.Rating,
		Score:          result.Score(),
		At:             t,
	}); err != nil {
		return 0, err
	}
	if err := e.ledger.append(b, period, floorB, PendingResult{
		Opponent:       a,
		OpponentRating: snapA.Rating,
		Score:          result.Invert().Score(),
		At:             t,
	}); err != nil {
		return 0, err
	}
	return e.ledger.size, nil
}

// floor is the first period rec may still receive results in.
func (e *Engine) floor(rec playerRecord) int64 {
	return max(rec.period, e.sched.sealed)
}

// PlayerRating projects h to now.
func (e *Engine) PlayerRating(ctx context.Context, h Handle) (Projection, error) {
	return e.PlayerRatingAt(ctx, h, e.now())
}

// PlayerRatingAt projects h to t without changing any state. Identical
// arguments give identical results until the next mutation.
func (e *Engine) PlayerRatingAt(ctx context.Context, h Handle, t time.Time) (Projection, error) {
	start := time.Now()
	defer func() {
		metrics.RecordProjectionLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	e.mu.RLock()
	defer e.mu.RUnlock()

	rec, err := e.store.committed(h)
	if err != nil {
		return Projection{}, err
	}
	p, err := e.project(rec, t)
	if err != nil {
		metrics.RecordConvergenceFailure()
		e.logger.Warn(ctx, "projection failed", logger.Any("handle", h), logger.Error(err))
		return Projection{}, err
	}
	return p, nil
}

// Players projects every registered player to t, in handle order.
func (e *Engine) Players(ctx context.Context, t time.Time) ([]PlayerProjection, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]PlayerProjection, 0, e.store.count())
	for _, h := range e.store.handles() {
		rec, _ := e.store.committed(h)
		p, err := e.project(rec, t)
		if err != nil {
			e.logger.Warn(ctx, "projection failed", logger.Any("handle", h), logger.Error(err))
			return nil, err
		}
		out = append(out, PlayerProjection{Handle: h, Projection: p})
	}
	return out, nil
}

// PlayerHandles lists every registered handle in allocation order.
func (e *Engine) PlayerHandles() []Handle {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.handles()
}

// Pending counts the results buffered for h across open periods.
func (e *Engine) Pending(h Handle) (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if _, err := e.store.committed(h); err != nil {
		return 0, err
	}
	return e.ledger.pending(h), nil
}

// ElapsedPeriods is ElapsedPeriodsAt now.
func (e *Engine) ElapsedPeriods() float64 {
	return e.ElapsedPeriodsAt(e.now())
}

// ElapsedPeriodsAt returns the fractional number of periods between the last
// sealed boundary and t.
func (e *Engine) ElapsedPeriodsAt(t time.Time) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sched.sinceSealed(t)
}

// MaybeCloseRatingPeriods seals every period that ended before now.
func (e *Engine) MaybeCloseRatingPeriods(ctx context.Context) (CloseReport, error) {
	return e.MaybeCloseRatingPeriodsAt(ctx, e.now())
}

// MaybeCloseRatingPeriodsAt seals every period that ended at or before t.
// Each player is carried forward oldest period first and committed at the new
// boundary; their ledgers for the sealed periods are drained. Nothing is
// committed if any player fails, and a call that crosses no new boundary is a
// no-op.
func (e *Engine) MaybeCloseRatingPeriodsAt(ctx context.Context, t time.Time) (CloseReport, error) {
	start := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	target := e.sched.periodIndex(t)
	if target <= e.sched.sealed {
		return CloseReport{Sealed: e.sched.sealed, Elapsed: e.sched.sinceSealed(t)}, nil
	}

	type commit struct {
		rec    playerRecord
		rating glicko2.Rating
		asOf   time.Time
	}
	commits := make([]commit, 0, e.store.count())
	for _, h := range e.store.handles() {
		rec, _ := e.store.committed(h)
		if rec.period >= target {
			continue
		}
		r, asOf, err := e.fold(rec, target)
		if err != nil {
			metrics.RecordConvergenceFailure()
			e.logger.Warn(ctx, "rating period close failed",
				logger.Any("handle", h),
				logger.Int64("target", target),
				logger.Error(err),
			)
			return CloseReport{Sealed: e.sched.sealed, Elapsed: e.sched.sinceSealed(t)}, fmt.Errorf("close periods before %d: %w", target, err)
		}
		commits = append(commits, commit{rec: rec, rating: r, asOf: asOf})
	}

	for _, c := range commits {
		for _, k := range e.ledger.periods(c.rec.handle, target) {
			e.ledger.drain(c.rec.handle, k)
		}
		e.store.commit(c.rec.handle, c.rating, target, c.asOf)
	}

	closed := target - e.sched.sealed
	e.sched.sealed = target

	metrics.RecordPeriodsClosed(int(closed))
	metrics.RecordCloseDuration(float64(time.Since(start).Microseconds()) / 1000)
	metrics.UpdatePendingResults(e.ledger.size)
	e.logger.Info(ctx, "rating periods sealed",
		logger.Int64("closed", closed),
		logger.Int64("sealed", target),
		logger.Int("players", len(commits)),
	)
	return CloseReport{Closed: closed, Sealed: target, Elapsed: e.sched.sinceSealed(t)}, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrUnknownPlayer):
		return "unknown_player"
	case errors.Is(err, ErrSealedPeriod):
		return "sealed_period"
	case errors.Is(err, ErrConvergenceFailure):
		return "convergence"
	default:
		return "other"
	}
}
