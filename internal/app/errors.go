package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrBackpressure = errors.New("report queue is full")
	ErrStopped      = errors.New("service stopped")
)
