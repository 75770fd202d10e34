package glicko2

import (
	"errors"
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func glickmanParams() Params {
	return Params{Tau: 0.5, Epsilon: 1e-6, MaxIterations: DefaultMaxIterations}
}

func TestFullUpdate_GlickmanExample(t *testing.T) {
	Convey("Given the worked example from Glickman's paper", t, func() {
		player := NewRating(1500, 200, 0.06)
		outcomes := []Outcome{
			{Opponent: NewRating(1400, 30, 0.06), Score: Win().Score()},
			{Opponent: NewRating(1550, 100, 0.06), Score: Loss().Score()},
			{Opponent: NewRating(1700, 300, 0.06), Score: Loss().Score()},
		}

		Convey("When one full period is applied", func() {
			got, err := FullUpdate(player, outcomes, glickmanParams())

			Convey("Then it should reproduce the published values", func() {
				So(err, ShouldBeNil)
				So(got.Rating, ShouldAlmostEqual, 1464.06, 0.05)
				So(got.Deviation, ShouldAlmostEqual, 151.52, 0.15)
				So(got.Volatility, ShouldAlmostEqual, 0.05999, 1e-4)
			})
		})

		Convey("When the outcomes are reordered", func() {
			reordered := []Outcome{outcomes[2], outcomes[0], outcomes[1]}
			a, errA := FullUpdate(player, outcomes, glickmanParams())
			b, errB := FullUpdate(player, reordered, glickmanParams())

			Convey("Then the update should not depend on order", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(b.Rating, ShouldAlmostEqual, a.Rating, 1e-9)
				So(b.Deviation, ShouldAlmostEqual, a.Deviation, 1e-9)
				So(b.Volatility, ShouldAlmostEqual, a.Volatility, 1e-9)
			})
		})
	})
}

func TestFullUpdate_SingleGame(t *testing.T) {
	Convey("Given two players with equal priors", t, func() {
		a := NewRating(1500, 300, 0.06)
		b := NewRating(1500, 300, 0.06)

		Convey("When they draw", func() {
			na, errA := FullUpdate(a, []Outcome{{Opponent: b, Score: Draw().Score()}}, glickmanParams())
			nb, errB := FullUpdate(b, []Outcome{{Opponent: a, Score: Draw().Invert().Score()}}, glickmanParams())

			Convey("Then neither rating should move", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(na.Rating, ShouldAlmostEqual, 1500, 1e-4)
				So(nb.Rating, ShouldAlmostEqual, 1500, 1e-4)
			})
		})

		Convey("When the first player wins", func() {
			na, errA := FullUpdate(a, []Outcome{{Opponent: b, Score: Win().Score()}}, glickmanParams())
			nb, errB := FullUpdate(b, []Outcome{{Opponent: a, Score: Win().Invert().Score()}}, glickmanParams())

			Convey("Then the winner gains and the loser drops", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(na.Rating, ShouldBeGreaterThan, 1500)
				So(nb.Rating, ShouldBeLessThan, 1500)
				So(na.Rating-1500, ShouldAlmostEqual, 1500-nb.Rating, 1e-9)
			})

			Convey("And volatility should stay close to its prior", func() {
				So(na.Volatility, ShouldAlmostEqual, 0.06, 1e-4)
				So(nb.Volatility, ShouldAlmostEqual, 0.06, 1e-4)
			})

			Convey("And the deviation should shrink", func() {
				So(na.Deviation, ShouldBeLessThan, 300)
				So(nb.Deviation, ShouldBeLessThan, 300)
			})
		})
	})

	Convey("Given players with different ratings", t, func() {
		high := NewRating(1600, 200, 0.06)
		low := NewRating(1400, 200, 0.06)

		Convey("When they draw", func() {
			nh, _ := FullUpdate(high, []Outcome{{Opponent: low, Score: 0.5}}, glickmanParams())
			nl, _ := FullUpdate(low, []Outcome{{Opponent: high, Score: 0.5}}, glickmanParams())

			Convey("Then the favourite loses points and the underdog gains", func() {
				So(nh.Rating, ShouldBeLessThan, 1600)
				So(nl.Rating, ShouldBeGreaterThan, 1400)
			})
		})
	})
}

func TestFullUpdate_Volatility(t *testing.T) {
	Convey("Given a player facing results against expectation", t, func() {
		params := glickmanParams()

		Convey("When wins, losses and a draw alternate against an equal opponent", func() {
			opp := NewRating(1500, 300, 0.06)
			outcomes := []Outcome{
				{Opponent: opp, Score: 1},
				{Opponent: opp, Score: 0},
				{Opponent: opp, Score: 0.5},
				{Opponent: opp, Score: 1},
				{Opponent: opp, Score: 0},
			}
			got, err := FullUpdate(NewRating(1500, 300, 0.06), outcomes, params)

			Convey("Then volatility should move", func() {
				So(err, ShouldBeNil)
				So(math.Abs(got.Volatility-0.06), ShouldBeGreaterThan, 1e-7)
			})
		})

		Convey("When a settled player keeps losing to much weaker opponents", func() {
			r := NewRating(1500, 50, 0.06)
			weak := NewRating(1100, 50, 0.06)
			strong := NewRating(1900, 50, 0.06)
			var err error
			for period := 0; period < 5 && err == nil; period++ {
				outcomes := make([]Outcome, 0, 5)
				for i := 0; i < 5; i++ {
					if period%2 == 0 {
						outcomes = append(outcomes, Outcome{Opponent: weak, Score: 0})
					} else {
						outcomes = append(outcomes, Outcome{Opponent: strong, Score: 1})
					}
				}
				r, err = FullUpdate(r, outcomes, params)
			}

			Convey("Then volatility should rise noticeably", func() {
				So(err, ShouldBeNil)
				So(r.Volatility-0.06, ShouldBeGreaterThan, 1e-4)
			})
		})
	})
}

func TestDecayUpdate(t *testing.T) {
	Convey("Given an idle player", t, func() {
		r := NewRating(1620, 80, 0.06)

		Convey("When periods elapse", func() {
			prev := r.Deviation
			monotone := true
			for n := 1; n <= 50; n++ {
				d := DecayUpdate(r, float64(n)).Deviation
				if d <= prev {
					monotone = false
				}
				prev = d
			}

			Convey("Then the deviation should strictly increase", func() {
				So(monotone, ShouldBeTrue)
			})

			Convey("And rating and volatility should not change", func() {
				d := DecayUpdate(r, 7)
				So(d.Rating, ShouldEqual, r.Rating)
				So(d.Volatility, ShouldEqual, r.Volatility)
			})
		})

		Convey("When decayed in one step or period by period", func() {
			once := DecayUpdate(r, 4)
			stepwise := r
			for i := 0; i < 4; i++ {
				stepwise = DecayUpdate(stepwise, 1)
			}

			Convey("Then the closed form should match the compounded steps", func() {
				So(once.Deviation, ShouldAlmostEqual, stepwise.Deviation, 1e-9)
			})
		})

		Convey("When no time elapses", func() {
			Convey("Then the rating should be returned unchanged", func() {
				So(DecayUpdate(r, 0), ShouldResemble, r)
				So(DecayUpdate(r, -3), ShouldResemble, r)
			})
		})
	})
}

func TestUpdateOver(t *testing.T) {
	Convey("Given a player and a set of outcomes", t, func() {
		r := NewRating(1500, 200, 0.06)
		outcomes := []Outcome{{Opponent: NewRating(1450, 120, 0.06), Score: 1}}

		Convey("When no outcomes are supplied", func() {
			got, err := UpdateOver(r, nil, 0.5, glickmanParams())

			Convey("Then it should equal a decay over the same span", func() {
				So(err, ShouldBeNil)
				So(got, ShouldResemble, DecayUpdate(r, 0.5))
			})
		})

		Convey("When the elapsed span grows", func() {
			early, err1 := UpdateOver(r, outcomes, 0.1, glickmanParams())
			late, err2 := UpdateOver(r, outcomes, 0.9, glickmanParams())
			full, err3 := FullUpdate(r, outcomes, glickmanParams())
			exact, err4 := UpdateOver(r, outcomes, 1, glickmanParams())

			Convey("Then the deviation should grow with it", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(err3, ShouldBeNil)
				So(err4, ShouldBeNil)
				So(early.Deviation, ShouldBeLessThan, late.Deviation)
				So(late.Deviation, ShouldBeLessThan, full.Deviation)
				So(exact, ShouldResemble, full)
			})
		})
	})
}

func TestFullUpdate_Errors(t *testing.T) {
	Convey("Given malformed input", t, func() {
		good := NewRating(1500, 200, 0.06)

		Convey("When the player's deviation is not positive", func() {
			_, err := FullUpdate(NewRating(1500, 0, 0.06), nil, glickmanParams())
			So(errors.Is(err, ErrInvalidRating), ShouldBeTrue)
		})

		Convey("When an opponent rating is not finite", func() {
			_, err := FullUpdate(good, []Outcome{{Opponent: NewRating(math.NaN(), 100, 0.06), Score: 1}}, glickmanParams())
			So(errors.Is(err, ErrInvalidRating), ShouldBeTrue)
		})

		Convey("When a score is out of range", func() {
			_, err := FullUpdate(good, []Outcome{{Opponent: good, Score: 2}}, glickmanParams())
			So(errors.Is(err, ErrInvalidResult), ShouldBeTrue)
		})

		Convey("When tau is not positive", func() {
			_, err := FullUpdate(good, nil, Params{Tau: 0, Epsilon: 1e-6, MaxIterations: 10})
			So(errors.Is(err, ErrInvalidParams), ShouldBeTrue)
		})

		Convey("When the solver is given too few iterations", func() {
			outcomes := []Outcome{
				{Opponent: NewRating(1400, 30, 0.06), Score: 1},
				{Opponent: NewRating(1550, 100, 0.06), Score: 0},
				{Opponent: NewRating(1700, 300, 0.06), Score: 0},
			}
			_, err := FullUpdate(good, outcomes, Params{Tau: 0.5, Epsilon: 1e-12, MaxIterations: 1})
			So(errors.Is(err, ErrConvergenceFailure), ShouldBeTrue)
		})

		Convey("When every opponent is infinitely far away", func() {
			far := NewRating(1e9, 1, 0.06)
			_, err := FullUpdate(good, []Outcome{{Opponent: far, Score: 1}}, glickmanParams())
			So(errors.Is(err, ErrConvergenceFailure), ShouldBeTrue)
		})
	})
}

func TestMatchResult(t *testing.T) {
	Convey("Given the match result factories", t, func() {
		So(Win().Score(), ShouldEqual, 1.0)
		So(Draw().Score(), ShouldEqual, 0.5)
		So(Loss().Score(), ShouldEqual, 0.0)

		Convey("Then inverting gives the complementary score", func() {
			for _, m := range []MatchResult{Win(), Draw(), Loss()} {
				So(m.Score()+m.Invert().Score(), ShouldEqual, 1.0)
			}
		})

		Convey("Then text forms round-trip", func() {
			for _, m := range []MatchResult{Win(), Draw(), Loss()} {
				parsed, err := ParseMatchResult(m.String())
				So(err, ShouldBeNil)
				So(parsed, ShouldEqual, m)
			}
			_, err := ParseMatchResult("forfeit")
			So(errors.Is(err, ErrInvalidResult), ShouldBeTrue)
		})
	})
}

func TestRating_Interval(t *testing.T) {
	Convey("Given a rating", t, func() {
		lo, hi := NewRating(1500, 100, 0.06).Interval()
		So(lo, ShouldAlmostEqual, 1304, 1e-9)
		So(hi, ShouldAlmostEqual, 1696, 1e-9)
	})
}
