package history

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/glicko2/pkg/glicko2"
	. "github.com/smartystreets/goconvey/convey"
)

const league = `
epoch: 2024-01-01T00:00:00Z
players:
  - name: alice
  - name: bob
    rating: 1400
    deviation: 30
    joined: 2024-01-01T00:05:00Z
matches:
  - {id: m1, a: alice, b: bob, result: win, at: 2024-01-01T00:10:00Z}
  - {a: bob, b: alice, result: Draw, at: 2024-01-01T01:30:00Z}
`

func TestDecode(t *testing.T) {
	Convey("Given a league file", t, func() {
		h, err := Decode(strings.NewReader(league))
		So(err, ShouldBeNil)

		Convey("Then players and matches are read", func() {
			So(h.Players, ShouldHaveLength, 2)
			So(h.Matches, ShouldHaveLength, 2)
			So(h.Players[0].Rating, ShouldBeNil)
			So(*h.Players[1].Rating, ShouldEqual, 1400)
			So(h.Matches[0].ID, ShouldEqual, "m1")
		})

		Convey("Then the span covers every instant", func() {
			first, last := h.Span()
			So(first.Equal(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
			So(last.Equal(time.Date(2024, time.January, 1, 1, 30, 0, 0, time.UTC)), ShouldBeTrue)
		})

		Convey("Then unset rating fields take the start values", func() {
			start := h.Players[1].StartRating(glicko2.NewRating(1500, 350, 0.06))
			So(start.Rating, ShouldEqual, 1400)
			So(start.Deviation, ShouldEqual, 30)
			So(start.Volatility, ShouldEqual, 0.06)
		})

		Convey("Then strengths are absent", func() {
			So(h.Strengths(), ShouldBeNil)
		})
	})
}

func TestDecodeErrors(t *testing.T) {
	cases := map[string]string{
		"unknown key":    "players: [{name: a, elo: 3}]",
		"unnamed player": "players: [{rating: 1500}]",
		"duplicate name": "players: [{name: a}, {name: a}]",
		"unknown player": "players: [{name: a}]\nmatches: [{a: a, b: z, result: win, at: 2024-01-01T00:00:00Z}]",
		"self match":     "players: [{name: a}]\nmatches: [{a: a, b: a, result: win, at: 2024-01-01T00:00:00Z}]",
		"missing time":   "players: [{name: a}, {name: b}]\nmatches: [{a: a, b: b, result: win}]",
		"bad result":     "players: [{name: a}, {name: b}]\nmatches: [{a: a, b: b, result: forfeit, at: 2024-01-01T00:00:00Z}]",
	}

	Convey("Given malformed histories", t, func() {
		for name, body := range cases {
			Convey("When the history has "+name, func() {
				_, err := Decode(strings.NewReader(body))
				So(errors.Is(err, ErrInvalidHistory), ShouldBeTrue)
			})
		}
	})
}

func TestEncodeRoundTrip(t *testing.T) {
	Convey("Given a decoded league", t, func() {
		h, err := Decode(strings.NewReader(league))
		So(err, ShouldBeNil)
		strength := 1620.0
		h.Players[0].Strength = &strength

		Convey("When it is saved and loaded again", func() {
			path := filepath.Join(t.TempDir(), "league.yaml")
			So(Save(path, h), ShouldBeNil)
			again, err := Load(path)

			Convey("Then it is unchanged", func() {
				So(err, ShouldBeNil)
				So(again.Players, ShouldHaveLength, 2)
				So(*again.Players[0].Strength, ShouldEqual, 1620)
				So(again.Players[1].Joined.Equal(h.Players[1].Joined), ShouldBeTrue)
				So(again.Matches[1].Result, ShouldEqual, "Draw")
				So(again.Matches[0].At.Equal(h.Matches[0].At), ShouldBeTrue)
			})
		})

		Convey("When it is encoded", func() {
			var buf bytes.Buffer
			So(Encode(&buf, h), ShouldBeNil)

			Convey("Then unset fields are left out", func() {
				So(buf.String(), ShouldNotContainSubstring, "volatility")
				So(buf.String(), ShouldContainSubstring, "strength: 1620")
			})
		})
	})

	Convey("Given a missing file", t, func() {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		So(err, ShouldNotBeNil)
	})
}
