// Package rating implements the Glicko-2 rating update used to keep
// the user's skill estimate in step with graded puzzle outcomes.
// https://en.wikipedia.org/wiki/Glicko_rating_system
// http://www.glicko.net/glicko/glicko2.pdf
package rating

import (
	"math"

	"github.com/example/bettertactics/internal/apperror"
	"github.com/example/bettertactics/pkg/models"
)

const (
	glickoScale = 173.7178
	glickoShift = 1500.0

	// tau constrains how much volatility can move in one period.
	tau = 0.5

	volatilityEpsilon  = 1e-6
	maxBisectionRounds = 100

	minDeviation  = 30.0
	maxDeviation  = 500.0
	maxVolatility = 0.1
)

// Rating is a (rating, deviation, volatility) triple on the original
// (non-Glicko) scale, the form persisted on the User row.
type Rating struct {
	Value      int
	Deviation  int
	Volatility float64
}

// Outcome is a single graded result against a puzzle's rating.
type Outcome struct {
	OpponentRating    int
	OpponentDeviation int
	// Score is a real in [0,1]: the spec-mandated weight mapping from
	// difficulty grade to Glicko outcome.
	Score float64
}

// ScoreForDifficulty maps a review grade to its Glicko-2 outcome
// weight, per the fixed mapping {Again:0, Hard:0.5, Good:0.8, Easy:1.0}.
func ScoreForDifficulty(d models.Difficulty) float64 {
	switch d {
	case models.DifficultyAgain:
		return 0.0
	case models.DifficultyHard:
		return 0.5
	case models.DifficultyGood:
		return 0.8
	case models.DifficultyEasy:
		return 1.0
	default:
		return 0.0
	}
}

// Update computes the new rating after a single-period batch of
// outcomes (in practice, one outcome per call: each puzzle attempt is
// its own rating period).
func Update(r Rating, outcomes []Outcome) (Rating, error) {
	if len(outcomes) == 0 {
		return r, nil
	}

	mu := toGlickoMu(r.Value)
	phi := toGlickoPhi(float64(r.Deviation))

	variance, err := estimatedVariance(mu, outcomes)
	if err != nil {
		return Rating{}, err
	}

	delta := estimatedDelta(mu, variance, outcomes)

	newVolatility, err := updatedVolatility(r.Volatility, phi, variance, delta)
	if err != nil {
		return Rating{}, err
	}

	phiStar := math.Sqrt(phi*phi + newVolatility*newVolatility)
	phiNew := 1.0 / math.Sqrt(1.0/(phiStar*phiStar)+1.0/variance)

	muSum := 0.0
	for _, o := range outcomes {
		muOther := toGlickoMu(o.OpponentRating)
		phiOther := toGlickoPhi(float64(o.OpponentDeviation))
		g := gFunc(phiOther)
		e := eFunc(mu, muOther, phiOther)
		muSum += g * (o.Score - e)
	}
	muNew := mu + phiNew*phiNew*muSum

	out := Rating{
		Value:      int(math.Round(fromGlickoMu(muNew))),
		Deviation:  int(math.Round(fromGlickoPhi(phiNew))),
		Volatility: newVolatility,
	}
	return clamp(out), nil
}

func estimatedVariance(mu float64, outcomes []Outcome) (float64, error) {
	sum := 0.0
	for _, o := range outcomes {
		muOther := toGlickoMu(o.OpponentRating)
		phiOther := toGlickoPhi(float64(o.OpponentDeviation))
		g := gFunc(phiOther)
		e := eFunc(mu, muOther, phiOther)
		sum += g * g * e * (1.0 - e)
	}
	if sum == 0 {
		return 0, apperror.Internal("glicko2: zero variance denominator", nil)
	}
	return 1.0 / sum, nil
}

func estimatedDelta(mu, variance float64, outcomes []Outcome) float64 {
	sum := 0.0
	for _, o := range outcomes {
		muOther := toGlickoMu(o.OpponentRating)
		phiOther := toGlickoPhi(float64(o.OpponentDeviation))
		g := gFunc(phiOther)
		e := eFunc(mu, muOther, phiOther)
		sum += g * (o.Score - e)
	}
	return variance * sum
}

// updatedVolatility solves for the new volatility via the Illinois
// variant of regula falsi bracketing, capped at maxBisectionRounds
// iterations past which an Internal error is reported instead of
// looping forever.
func updatedVolatility(volatility, phi, variance, delta float64) (float64, error) {
	f := func(x float64) float64 {
		a := math.Log(volatility * volatility)
		ex := math.Exp(x)
		numerator := ex * (delta*delta - phi*phi - variance - ex)
		denominator := 2.0 * (phi*phi + variance + ex) * (phi*phi + variance + ex)
		return numerator/denominator - (x-a)/(tau*tau)
	}

	a := math.Log(volatility * volatility)
	var b float64
	if delta*delta > phi*phi+variance {
		b = math.Log(delta*delta - phi*phi - variance)
	} else {
		k := 1.0
		for f(a-k*tau) < 0.0 {
			k++
			if k > float64(maxBisectionRounds) {
				return 0, apperror.Internal("glicko2: volatility bracket search did not converge", nil)
			}
		}
		b = a - k*tau
	}

	fa := f(a)
	fb := f(b)

	for i := 0; math.Abs(b-a) > volatilityEpsilon; i++ {
		if i >= maxBisectionRounds {
			return 0, apperror.Internal("glicko2: volatility iteration exceeded bound", nil)
		}
		c := a + (a-b)*fa/(fb-fa)
		fc := f(c)

		if fc*fb <= 0.0 {
			a = b
			fa = fb
		} else {
			fa = fa / 2.0
		}
		b = c
		fb = fc
	}

	return math.Exp(a / 2.0), nil
}

func gFunc(phi float64) float64 {
	return 1.0 / math.Sqrt(1.0+(3.0*phi*phi)/(math.Pi*math.Pi))
}

func eFunc(mu, muOther, phiOther float64) float64 {
	return 1.0 / (1.0 + math.Exp(-gFunc(phiOther)*(mu-muOther)))
}

func toGlickoMu(rating int) float64 {
	return (float64(rating) - glickoShift) / glickoScale
}

func fromGlickoMu(mu float64) float64 {
	return mu*glickoScale + glickoShift
}

func toGlickoPhi(deviation float64) float64 {
	return deviation / glickoScale
}

func fromGlickoPhi(phi float64) float64 {
	return phi * glickoScale
}

func clamp(r Rating) Rating {
	if r.Value < 0 {
		r.Value = 0
	}
	if float64(r.Deviation) < minDeviation {
		r.Deviation = int(math.Round(minDeviation))
	}
	if float64(r.Deviation) > maxDeviation {
		r.Deviation = int(math.Round(maxDeviation))
	}
	if r.Volatility <= 0 {
		r.Volatility = 1e-6
	}
	if r.Volatility > maxVolatility {
		r.Volatility = maxVolatility
	}
	return r
}
