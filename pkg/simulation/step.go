package simulation

import (
	"fmt"
	"math"
	"math/rand/v2"

	"railsim/pkg/types"
)

// Rand is the randomness capability the step function draws from.
// Float64 must return values in [0, 1).
type Rand interface {
	Float64() float64
}

// NewRand returns a seeded PCG generator so runs can be replayed.
func NewRand(seed uint64) Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Params tunes the random walk. DefaultParams matches the dashboard behaviour.
type Params struct {
	// MaxPositionDelta bounds the per-tick position change, in percentage points.
	MaxPositionDelta float64
	// Drift is added to the delta of up trains and subtracted for down trains.
	Drift float64

	DelayProbability float64
	MaxDelay         int // exclusive upper bound of a refreshed delay

	SpeedProbability float64
	SpeedJitter      int // a refreshed speed moves by an integer in [-SpeedJitter, SpeedJitter)

	// FloorSpeed keeps a refreshed speed at or above MinSpeed. With it off the
	// compounding walk is unbounded and speeds can go negative.
	FloorSpeed bool
	MinSpeed   float64
}

// DefaultParams returns the dashboard's constants: a +/-1 point position walk,
// a 10% chance of a new delay below 15 minutes and a 20% chance of a speed
// change of up to 10 km/h, floored at 0.
func DefaultParams() Params {
	return Params{
		MaxPositionDelta: 1,
		DelayProbability: 0.1,
		MaxDelay:         15,
		SpeedProbability: 0.2,
		SpeedJitter:      10,
		FloorSpeed:       true,
		MinSpeed:         0,
	}
}

// Validate rejects negative bounds and probabilities outside [0,1].
func (p Params) Validate() error {
	if p.MaxPositionDelta < 0 {
		return fmt.Errorf("max position delta must be non-negative, got %v", p.MaxPositionDelta)
	}
	if p.DelayProbability < 0 || p.DelayProbability > 1 {
		return fmt.Errorf("delay probability must be in [0,1], got %v", p.DelayProbability)
	}
	if p.SpeedProbability < 0 || p.SpeedProbability > 1 {
		return fmt.Errorf("speed probability must be in [0,1], got %v", p.SpeedProbability)
	}
	if p.MaxDelay < 1 {
		return fmt.Errorf("max delay must be at least 1, got %d", p.MaxDelay)
	}
	if p.SpeedJitter < 0 {
		return fmt.Errorf("speed jitter must be non-negative, got %d", p.SpeedJitter)
	}
	if p.FloorSpeed && p.MinSpeed < 0 {
		return fmt.Errorf("min speed must be non-negative, got %v", p.MinSpeed)
	}
	return nil
}

const (
	MinPosition = 0.0
	MaxPosition = 100.0
)

// Step advances every train by one tick and returns a new slice of the same
// length and order. The input slice is never modified.
//
// Draw order per train: position delta, delay coin, delay value (only when the
// coin hits), speed coin, speed delta (only when the coin hits).
func Step(trains []types.Train, rng Rand, params Params) []types.Train {
	out := make([]types.Train, len(trains))
	for i, t := range trains {
		out[i] = stepTrain(t, rng, params)
	}
	return out
}

func stepTrain(t types.Train, rng Rand, p Params) types.Train {
	delta := rng.Float64()*2*p.MaxPositionDelta - p.MaxPositionDelta
	switch t.Direction {
	case types.DirectionUp:
		delta += p.Drift
	case types.DirectionDown:
		delta -= p.Drift
	}
	t.Position = clamp(t.Position+delta, MinPosition, MaxPosition)

	if rng.Float64() < p.DelayProbability {
		t.Delay = int(math.Floor(rng.Float64() * float64(p.MaxDelay)))
	}

	if rng.Float64() < p.SpeedProbability {
		jitter := float64(p.SpeedJitter)
		t.Speed += math.Floor(rng.Float64()*2*jitter - jitter)
		if p.FloorSpeed {
			t.Speed = math.Max(p.MinSpeed, t.Speed)
		}
	}

	return t
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
