package repository

import "errors"

// Sentinel kinds for standings errors.
var (
	ErrNotFound     = errors.New("player not in standings")
	ErrInvalidLimit = errors.New("invalid standings limit")
)
