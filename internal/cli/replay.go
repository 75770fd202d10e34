package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	service "github.com/okian/glicko2/internal/app"
	"github.com/okian/glicko2/internal/config"
	"github.com/okian/glicko2/internal/domain/model"
	"github.com/okian/glicko2/internal/history"
	"github.com/okian/glicko2/internal/simulate"
	"github.com/okian/glicko2/pkg/engine"
	"github.com/okian/glicko2/pkg/glicko2"
	"github.com/okian/glicko2/pkg/logger"
	"github.com/okian/glicko2/pkg/metrics"
)

const (
	backpressureWait = time.Millisecond
	drainTimeout     = time.Minute
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	History    string
	At         string // RFC 3339; defaults to the last instant in the history
	Workers    int
	Top        int
	MetricsOut string
}

// ReplayResult is what a replay prints.
type ReplayResult struct {
	Epoch         time.Time     `json:"epoch"`
	At            time.Time     `json:"at"`
	Players       int           `json:"players"`
	Matches       int           `json:"matches"`
	Applied       int64         `json:"applied"`
	Failed        int64         `json:"failed"`
	Duplicates    int           `json:"duplicates"`
	PeriodsClosed int64         `json:"periods_closed"`
	Standings     []StandingRow `json:"standings"`

	// Agreement is the share of ranked pairs ordered like the hidden
	// strengths of a generated history.
	Agreement *float64 `json:"agreement,omitempty"`
}

// StandingRow is one ranked player in a replay result.
type StandingRow struct {
	Rank       int     `json:"rank"`
	Name       string  `json:"name"`
	Rating     float64 `json:"rating"`
	Deviation  float64 `json:"deviation"`
	Volatility float64 `json:"volatility"`
	Low        float64 `json:"low"`
	High       float64 `json:"high"`
	Pending    int     `json:"pending"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a match history and print standings",
		Long: `Replay a YAML match history through the rating service and print the
standings projected to an instant.

Every player is registered at its join time, every match is submitted through
the ingestion queue, and all periods that ended by --at are sealed. Games in
the period containing --at are applied provisionally.

Examples:
  glicko2 replay --history league.yaml
  glicko2 replay --history league.yaml --at 2024-03-01T12:00:00Z --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.History, "history", "", "path to YAML match history (required)")
	_ = cmd.MarkFlagRequired("history")
	cmd.Flags().StringVar(&opts.At, "at", "", "instant to project to, RFC 3339 (default: last event)")
	// Each result snapshots the opponent as projected when it is applied, so
	// more than one worker makes same-period order, and thus output, vary.
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "ingestion workers; above 1, results within a period apply in no fixed order and standings may differ between runs")
	cmd.Flags().IntVar(&opts.Top, "top", 50, "number of standings to print")
	cmd.Flags().StringVar(&opts.MetricsOut, "metrics-out", "", "write Prometheus metrics to this file")

	return cmd
}

func runReplay(ctx context.Context, opts *ReplayOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if opts.Workers > 0 {
		cfg.WorkerCount = opts.Workers
	}
	// Replay seals periods once, at the end.
	cfg.CloseIntervalMS = 0

	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	if err := logger.Init(
		logger.WithWriter(cmd.ErrOrStderr()),
		logger.WithFormat(cfg.LogFormat),
		logger.WithLevel(level),
	); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	log := logger.Named("replay")

	hist, err := history.Load(opts.History)
	if err != nil {
		return err
	}
	epoch, at := hist.Span()
	if !hist.Epoch.IsZero() {
		epoch = hist.Epoch
	}
	if opts.At != "" {
		if at, err = time.Parse(time.RFC3339, opts.At); err != nil {
			return fmt.Errorf("parse --at: %w", err)
		}
	}
	if at.IsZero() {
		at = time.Now()
	}
	if epoch.IsZero() {
		epoch = at
	}

	svc, err := service.New(cfg,
		service.WithLogger(logger.Get()),
		service.WithClock(func() time.Time { return at }),
		service.WithEngineOptions(engine.WithEpoch(epoch)),
	)
	if err != nil {
		return err
	}

	handles, names, err := registerPlayers(ctx, svc, cfg, hist, epoch)
	if err != nil {
		return err
	}

	if err := svc.Start(ctx); err != nil {
		return err
	}
	duplicates, submitErr := submitMatches(ctx, svc, hist, handles)

	stopCtx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()
	if err := svc.Stop(stopCtx); err != nil {
		return err
	}
	if submitErr != nil {
		return submitErr
	}

	report, err := svc.CloseAndPublish(ctx, at)
	if err != nil {
		return err
	}
	stats := svc.Stats(ctx)
	if stats.Failed > 0 {
		log.Warn(ctx, "some matches were not applied", logger.Int64("failed", stats.Failed))
	}

	result := ReplayResult{
		Epoch:         epoch,
		At:            at,
		Players:       len(hist.Players),
		Matches:       len(hist.Matches),
		Applied:       stats.Applied,
		Failed:        stats.Failed,
		Duplicates:    duplicates,
		PeriodsClosed: report.Closed,
		Standings:     []StandingRow{},
	}
	if opts.Top > 0 && stats.Ranked > 0 {
		top, err := svc.Standings().TopN(ctx, opts.Top)
		if err != nil {
			return err
		}
		for _, st := range top {
			low, high := st.Rating.Interval()
			result.Standings = append(result.Standings, StandingRow{
				Rank:       st.Rank,
				Name:       names[st.Handle],
				Rating:     st.Rating.Rating,
				Deviation:  st.Rating.Deviation,
				Volatility: st.Rating.Volatility,
				Low:        low,
				High:       high,
				Pending:    st.Pending,
			})
		}
	}

	if strengths := hist.Strengths(); strengths != nil {
		order := make([]string, len(result.Standings))
		for i, s := range result.Standings {
			order[i] = s.Name
		}
		agreement := simulate.Agreement(strengths, order)
		result.Agreement = &agreement
	}

	if opts.MetricsOut != "" {
		if err := metrics.WriteTextfile(opts.MetricsOut); err != nil {
			return err
		}
	}

	log.Info(ctx, "replay finished",
		logger.Int("players", result.Players),
		logger.Int64("applied", result.Applied),
		logger.Int64("periods_closed", result.PeriodsClosed),
	)

	if opts.Format == "json" {
		return outputJSON(cmd, result)
	}
	return outputReplayText(cmd, result)
}

func registerPlayers(ctx context.Context, svc *service.Service, cfg *config.Config, h *history.History, epoch time.Time) (map[string]engine.Handle, map[engine.Handle]string, error) {
	start := cfg.Settings().StartRating
	handles := make(map[string]engine.Handle, len(h.Players))
	names := make(map[engine.Handle]string, len(h.Players))
	for _, p := range h.Players {
		joined := p.Joined
		if joined.IsZero() {
			joined = epoch
		}
		handle, err := svc.Engine().RegisterPlayerAt(ctx, p.StartRating(start), joined)
		if err != nil {
			return nil, nil, fmt.Errorf("register %q: %w", p.Name, err)
		}
		handles[p.Name] = handle
		names[handle] = p.Name
	}
	return handles, names, nil
}

// submitMatches feeds every match to the service, waiting out backpressure.
func submitMatches(ctx context.Context, svc *service.Service, h *history.History, handles map[string]engine.Handle) (int, error) {
	duplicates := 0
	for _, m := range h.Matches {
		result, _ := glicko2.ParseMatchResult(m.Result)
		report := model.MatchReport{
			ID:      m.ID,
			PlayerA: handles[m.A],
			PlayerB: handles[m.B],
			Result:  result,
			At:      m.At,
		}
		for {
			dup, err := svc.Submit(ctx, report)
			if errors.Is(err, service.ErrBackpressure) {
				select {
				case <-ctx.Done():
					return duplicates, ctx.Err()
				case <-time.After(backpressureWait):
				}
				continue
			}
			if err != nil {
				return duplicates, fmt.Errorf("submit %s vs %s at %s: %w", m.A, m.B, m.At.Format(time.RFC3339), err)
			}
			if dup {
				duplicates++
			}
			break
		}
	}
	return duplicates, nil
}
