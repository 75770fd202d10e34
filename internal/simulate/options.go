package simulate

import "time"

// Option applies a configuration option to the Config.
type Option func(*Config)

// WithPlayers sets the pool size.
func WithPlayers(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.Players = n
		}
	}
}

// WithMatches sets the number of games.
func WithMatches(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.Matches = n
		}
	}
}

// WithPeriods spreads the games over n periods of length d.
func WithPeriods(n int, d time.Duration) Option {
	return func(c *Config) {
		if n > 0 {
			c.Periods = n
		}
		if d > 0 {
			c.Period = d
		}
	}
}

// WithStart sets the first instant of the league.
func WithStart(t time.Time) Option {
	return func(c *Config) {
		if !t.IsZero() {
			c.Start = t
		}
	}
}

// WithSeed makes the league reproducible.
func WithSeed(seed uint64) Option {
	return func(c *Config) {
		c.Seed = seed
	}
}

// WithSpread sets the standard deviation of hidden strengths.
func WithSpread(spread float64) Option {
	return func(c *Config) {
		if spread > 0 {
			c.Spread = spread
		}
	}
}

// WithDrawRate sets the chance that an even game is drawn.
func WithDrawRate(rate float64) Option {
	return func(c *Config) {
		if rate >= 0 && rate < 1 {
			c.DrawRate = rate
		}
	}
}
