// Package simulate generates synthetic leagues with known player strengths
// and scores how well a ranking recovers them.
package simulate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/glicko2/internal/history"
	"github.com/okian/glicko2/pkg/glicko2"
)

// ErrInvalidConfig is returned for leagues that cannot be generated.
var ErrInvalidConfig = errors.New("invalid simulation config")

// Default league shape.
const (
	defaultPlayers  = 32
	defaultMatches  = 500
	defaultPeriods  = 10
	defaultPeriod   = 24 * time.Hour
	defaultSpread   = 200.0
	defaultDrawRate = 0.1
	// Logistic scale of the game model, in rating points.
	eloScale = 400.0
)

// Config describes a league to generate.
type Config struct {
	Players  int
	Matches  int
	Periods  int
	Period   time.Duration
	Start    time.Time
	Seed     uint64
	Spread   float64
	DrawRate float64
}

// NewConfig returns the default league with options applied.
func NewConfig(opts ...Option) Config {
	c := Config{
		Players:  defaultPlayers,
		Matches:  defaultMatches,
		Periods:  defaultPeriods,
		Period:   defaultPeriod,
		Start:    time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Spread:   defaultSpread,
		DrawRate: defaultDrawRate,
	}

	// Apply all options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Generate builds a league: players with hidden strengths drawn around the
// rating center, and games between random pairs spread uniformly over the
// configured periods, in time order. The same config always yields the same
// league, match IDs included.
func Generate(ctx context.Context, cfg Config) (*history.History, error) {
	switch {
	case cfg.Players < 2:
		return nil, fmt.Errorf("%w: need at least two players", ErrInvalidConfig)
	case cfg.Matches < 0:
		return nil, fmt.Errorf("%w: negative match count", ErrInvalidConfig)
	case cfg.Periods < 1 || cfg.Period <= 0:
		return nil, fmt.Errorf("%w: need at least one period of positive length", ErrInvalidConfig)
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	h := &history.History{
		Epoch:   cfg.Start,
		Players: make([]history.Player, cfg.Players),
		Matches: make([]history.Match, 0, cfg.Matches),
	}

	width := len(strconv.Itoa(cfg.Players - 1))
	for i := range h.Players {
		strength := math.Round(glicko2.Center + rng.NormFloat64()*cfg.Spread)
		h.Players[i] = history.Player{
			Name:     fmt.Sprintf("p%0*d", width, i),
			Strength: &strength,
		}
	}

	span := time.Duration(cfg.Periods) * cfg.Period
	offsets := make([]time.Duration, cfg.Matches)
	for i := range offsets {
		offsets[i] = time.Duration(rng.Int64N(int64(span))).Truncate(time.Second)
	}
	slices.Sort(offsets)

	for i, off := range offsets {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		a := rng.IntN(cfg.Players)
		b := rng.IntN(cfg.Players - 1)
		if b >= a {
			b++
		}
		pa, pb := h.Players[a], h.Players[b]
		h.Matches = append(h.Matches, history.Match{
			ID:     matchID(cfg.Seed, i),
			A:      pa.Name,
			B:      pb.Name,
			Result: play(rng, *pa.Strength, *pb.Strength, cfg.DrawRate).String(),
			At:     cfg.Start.Add(off),
		})
	}
	return h, nil
}

// play draws a result from A's side. Draws are likeliest between equals.
func play(rng *rand.Rand, a, b, drawRate float64) glicko2.MatchResult {
	p := 1 / (1 + math.Pow(10, (b-a)/eloScale))
	if rng.Float64() < drawRate*4*p*(1-p) {
		return glicko2.ResultDraw
	}
	if rng.Float64() < p {
		return glicko2.ResultWin
	}
	return glicko2.ResultLoss
}

func matchID(seed uint64, i int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("glicko2-sim:"+strconv.FormatUint(seed, 10)+":"+strconv.Itoa(i))).String()
}

// Agreement is the share of player pairs that order lists in the same order
// as strengths. Names missing from strengths are skipped. It is 1 when
// fewer than two names can be compared.
func Agreement(strengths map[string]float64, order []string) float64 {
	known := make([]float64, 0, len(order))
	for _, name := range order {
		if s, ok := strengths[name]; ok {
			known = append(known, s)
		}
	}

	var pairs, concordant int
	for i := range known {
		for j := i + 1; j < len(known); j++ {
			if known[i] == known[j] {
				continue
			}
			pairs++
			if known[i] > known[j] {
				concordant++
			}
		}
	}
	if pairs == 0 {
		return 1
	}
	return float64(concordant) / float64(pairs)
}
