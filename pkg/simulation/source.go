package simulation

import (
	"context"

	"railsim/pkg/types"
)

// Source feeds Step into the refresh driver. It never fails.
// It is not safe for concurrent use; the driver calls it from a single loop.
type Source struct {
	rng    Rand
	params Params
}

// NewSource validates params and returns a Source drawing from rng.
func NewSource(rng Rand, params Params) (*Source, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Source{rng: rng, params: params}, nil
}

// Next returns the fleet one step after prev.
func (s *Source) Next(_ context.Context, prev types.Snapshot) ([]types.Train, error) {
	return Step(prev.Trains, s.rng, s.params), nil
}
