package logger

import "io"

// Output formats understood by Init.
const (
	FormatText = "text"
	FormatJSON = "json"
)

type options struct {
	writer io.Writer
	format string
	level  string
}

// Option applies a configuration option to Init.
type Option func(*options)

// WithWriter sets the destination of log entries.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.writer = w
		}
	}
}

// WithFormat selects FormatText or FormatJSON.
func WithFormat(format string) Option {
	return func(o *options) {
		if format != "" {
			o.format = format
		}
	}
}

// WithLevel sets the initial level by name.
func WithLevel(level string) Option {
	return func(o *options) {
		o.level = level
	}
}
