// Package history reads and writes recorded match histories as YAML.
package history

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okian/glicko2/pkg/glicko2"
)

// ErrInvalidHistory is returned for histories that cannot be replayed.
var ErrInvalidHistory = errors.New("invalid match history")

// History is a recorded pool of players and the games they played.
type History struct {
	// Epoch fixes the first period boundary. Defaults to the earliest
	// instant in the file.
	Epoch   time.Time `yaml:"epoch,omitempty"`
	Players []Player  `yaml:"players"`
	Matches []Match   `yaml:"matches"`
}

// Player is one player. Unset rating fields take the configured start
// values.
type Player struct {
	Name       string    `yaml:"name"`
	Rating     *float64  `yaml:"rating,omitempty"`
	Deviation  *float64  `yaml:"deviation,omitempty"`
	Volatility *float64  `yaml:"volatility,omitempty"`
	Joined     time.Time `yaml:"joined,omitempty"`
	// Strength is the hidden true rating of a simulated player. Replays
	// score their standings against it when every player has one.
	Strength *float64 `yaml:"strength,omitempty"`
}

// Match is one game, with Result given from A's side.
type Match struct {
	ID     string    `yaml:"id,omitempty"`
	A      string    `yaml:"a"`
	B      string    `yaml:"b"`
	Result string    `yaml:"result"`
	At     time.Time `yaml:"at"`
}

// Load reads and checks a history file.
func Load(path string) (*History, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Save writes h to path.
func Save(path string, h *History) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create history: %w", err)
	}
	if err := Encode(f, h); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Encode writes h as YAML.
func Encode(w io.Writer, h *History) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(h); err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	return enc.Close()
}

// Decode decodes a YAML history. Unknown keys are rejected.
func Decode(r io.Reader) (*History, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var h History
	if err := dec.Decode(&h); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHistory, err)
	}
	if err := h.validate(); err != nil {
		return nil, err
	}
	return &h, nil
}

func (h *History) validate() error {
	names := make(map[string]bool, len(h.Players))
	for i, p := range h.Players {
		if p.Name == "" {
			return fmt.Errorf("%w: player %d has no name", ErrInvalidHistory, i)
		}
		if names[p.Name] {
			return fmt.Errorf("%w: player %q listed twice", ErrInvalidHistory, p.Name)
		}
		names[p.Name] = true
	}
	for i, m := range h.Matches {
		if !names[m.A] || !names[m.B] {
			return fmt.Errorf("%w: match %d names an unknown player", ErrInvalidHistory, i)
		}
		if m.A == m.B {
			return fmt.Errorf("%w: match %d pairs %q with itself", ErrInvalidHistory, i, m.A)
		}
		if m.At.IsZero() {
			return fmt.Errorf("%w: match %d has no time", ErrInvalidHistory, i)
		}
		if _, err := glicko2.ParseMatchResult(m.Result); err != nil {
			return fmt.Errorf("%w: match %d: %w", ErrInvalidHistory, i, err)
		}
	}
	return nil
}

// Span returns the earliest and latest instants the history mentions.
func (h *History) Span() (first, last time.Time) {
	see := func(t time.Time) {
		if t.IsZero() {
			return
		}
		if first.IsZero() || t.Before(first) {
			first = t
		}
		if t.After(last) {
			last = t
		}
	}
	see(h.Epoch)
	for _, p := range h.Players {
		see(p.Joined)
	}
	for _, m := range h.Matches {
		see(m.At)
	}
	return first, last
}

// Strengths maps names to hidden strengths, or returns nil unless every
// player has one.
func (h *History) Strengths() map[string]float64 {
	if len(h.Players) == 0 {
		return nil
	}
	out := make(map[string]float64, len(h.Players))
	for _, p := range h.Players {
		if p.Strength == nil {
			return nil
		}
		out[p.Name] = *p.Strength
	}
	return out
}

// StartRating fills unset rating fields of p from start.
func (p Player) StartRating(start glicko2.Rating) glicko2.Rating {
	r := start
	if p.Rating != nil {
		r.Rating = *p.Rating
	}
	if p.Deviation != nil {
		r.Deviation = *p.Deviation
	}
	if p.Volatility != nil {
		r.Volatility = *p.Volatility
	}
	return r
}
