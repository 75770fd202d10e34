// Package repository keeps ranked standings snapshots of the rating pool.
package repository

import (
	"context"
	"time"

	"github.com/okian/glicko2/internal/domain/model"
	"github.com/okian/glicko2/pkg/engine"
)

// Store provides read/write access to published standings.
type Store interface {
	// Publish replaces the current standings with a ranking of players
	// projected to at.
	Publish(ctx context.Context, at time.Time, players []engine.PlayerProjection) error

	// Rank returns the standing of a player.
	// Returns ErrNotFound if the player is not in the last snapshot.
	Rank(ctx context.Context, h engine.Handle) (model.Standing, error)

	// TopN returns the top-N standings ordered by rating desc.
	TopN(ctx context.Context, n int) ([]model.Standing, error)

	// Count returns the number of players in the last snapshot.
	Count(ctx context.Context) int
}
