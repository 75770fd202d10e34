package glicko2

import (
	"fmt"
	"math"
)

// Scale constants between the public and the internal Glicko-2 scale.
// Scale is 400/ln(10), so q = ln(10)/400 is folded into mu and phi.
const (
	Scale  = 173.7178
	Center = 1500.0
)

// Default solver configuration constants.
const (
	DefaultTau           = 0.5
	DefaultEpsilon       = 1e-6
	DefaultMaxIterations = 100
)

// Params configures a rating update.
type Params struct {
	// Tau constrains volatility change between periods.
	Tau float64
	// Epsilon is the convergence tolerance of the volatility solver.
	Epsilon float64
	// MaxIterations bounds both the bracket search and the Illinois iteration.
	MaxIterations int
}

// DefaultParams returns the values recommended in Glickman's paper.
func DefaultParams() Params {
	return Params{Tau: DefaultTau, Epsilon: DefaultEpsilon, MaxIterations: DefaultMaxIterations}
}

// Validate reports ErrInvalidParams for non-positive tau, epsilon or iterations.
func (p Params) Validate() error {
	switch {
	case !finite(p.Tau) || p.Tau <= 0:
		return fmt.Errorf("%w: tau %v must be positive", ErrInvalidParams, p.Tau)
	case !finite(p.Epsilon) || p.Epsilon <= 0:
		return fmt.Errorf("%w: epsilon %v must be positive", ErrInvalidParams, p.Epsilon)
	case p.MaxIterations <= 0:
		return fmt.Errorf("%w: max iterations %d must be positive", ErrInvalidParams, p.MaxIterations)
	}
	return nil
}

func toMu(rating float64) float64     { return (rating - Center) / Scale }
func toPhi(deviation float64) float64 { return deviation / Scale }
func fromMu(mu float64) float64       { return mu*Scale + Center }
func fromPhi(phi float64) float64     { return phi * Scale }

// G discounts an opponent by their internal-scale deviation.
func G(phi float64) float64 {
	return 1 / math.Sqrt(1+3*phi*phi/(math.Pi*math.Pi))
}

// E is the expected score of a player at mu against an opponent at (muj, phij).
func E(mu, muj, phij float64) float64 {
	return 1 / (1 + math.Exp(-G(phij)*(mu-muj)))
}

// FullUpdate applies one complete rating period of outcomes to old.
func FullUpdate(old Rating, outcomes []Outcome, p Params) (Rating, error) {
	return UpdateOver(old, outcomes, 1, p)
}

// UpdateOver applies outcomes to old as if elapsed periods had passed since
// old was valid. elapsed = 1 is the textbook update; a fraction previews a
// period that is still open. With no outcomes it is DecayUpdate.
func UpdateOver(old Rating, outcomes []Outcome, elapsed float64, p Params) (Rating, error) {
	if err := old.Validate(); err != nil {
		return Rating{}, err
	}
	if err := p.Validate(); err != nil {
		return Rating{}, err
	}
	if !(elapsed > 0) {
		elapsed = 0
	}
	if len(outcomes) == 0 {
		return DecayUpdate(old, elapsed), nil
	}

	// Step 2.
	mu := toMu(old.Rating)
	phi := toPhi(old.Deviation)

	// Steps 3 and 4.
	var vInv, sum float64
	for i := range outcomes {
		o := outcomes[i]
		if err := o.Opponent.Validate(); err != nil {
			return Rating{}, fmt.Errorf("opponent %d: %w", i, err)
		}
		if !(o.Score >= 0 && o.Score <= 1) {
			return Rating{}, fmt.Errorf("%w: score %v outside [0, 1]", ErrInvalidResult, o.Score)
		}
		phij := toPhi(o.Opponent.Deviation)
		gj := G(phij)
		ej := E(mu, toMu(o.Opponent.Rating), phij)
		vInv += gj * gj * ej * (1 - ej)
		sum += gj * (o.Score - ej)
	}
	if !(vInv > 0) || !finite(vInv) || !finite(sum) {
		return Rating{}, fmt.Errorf("%w: outcomes carry no information (1/v = %v)", ErrConvergenceFailure, vInv)
	}
	v := 1 / vInv
	delta := v * sum

	// Step 5.
	sigma, err := volatility(phi, old.Volatility, v, delta, p)
	if err != nil {
		return Rating{}, err
	}

	// Steps 6 and 7.
	phiStar := math.Sqrt(phi*phi + elapsed*sigma*sigma)
	phiNew := 1 / math.Sqrt(1/(phiStar*phiStar)+1/v)
	muNew := mu + phiNew*phiNew*sum

	// Step 8.
	return Rating{
		Rating:     fromMu(muNew),
		Deviation:  fromPhi(phiNew),
		Volatility: sigma,
	}, nil
}

// DecayUpdate grows the deviation of a player who played nothing for elapsed
// periods. Rating and volatility are unchanged.
func DecayUpdate(old Rating, elapsed float64) Rating {
	if !(elapsed > 0) {
		return old
	}
	phi := toPhi(old.Deviation)
	phiStar := math.Sqrt(phi*phi + elapsed*old.Volatility*old.Volatility)
	return Rating{
		Rating:     old.Rating,
		Deviation:  fromPhi(phiStar),
		Volatility: old.Volatility,
	}
}

// volatility solves for the new sigma with the Illinois method.
func volatility(phi, sigma, v, delta float64, p Params) (float64, error) {
	a := math.Log(sigma * sigma)
	phi2 := phi * phi
	tau2 := p.Tau * p.Tau
	f := func(x float64) float64 {
		ex := math.Exp(x)
		d := phi2 + v + ex
		return ex*(delta*delta-phi2-v-ex)/(2*d*d) - (x-a)/tau2
	}

	A := a
	var B float64
	if delta*delta > phi2+v {
		B = math.Log(delta*delta - phi2 - v)
	} else {
		k := 1
		for f(a-float64(k)*p.Tau) < 0 {
			if k >= p.MaxIterations {
				return 0, fmt.Errorf("%w: no lower bracket within %d steps", ErrConvergenceFailure, k)
			}
			k++
		}
		B = a - float64(k)*p.Tau
	}

	fA, fB := f(A), f(B)
	for i := 0; math.Abs(B-A) > p.Epsilon; i++ {
		if i >= p.MaxIterations {
			return 0, fmt.Errorf("%w: |B-A| = %g after %d iterations", ErrConvergenceFailure, math.Abs(B-A), i)
		}
		C := A + (A-B)*fA/(fB-fA)
		fC := f(C)
		if !finite(fC) {
			return 0, fmt.Errorf("%w: non-finite f(%v)", ErrConvergenceFailure, C)
		}
		if fC*fB <= 0 {
			A, fA = B, fB
		} else {
			fA /= 2
		}
		B, fB = C, fC
	}
	return math.Exp(A / 2), nil
}
