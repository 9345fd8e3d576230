package simulation

import "railsim/pkg/types"

// FilterAll selects every train.
const FilterAll = "all"

// FilterByCategory returns a new slice holding the trains of the given
// category. An empty category or FilterAll returns a copy of the whole fleet.
func FilterByCategory(trains []types.Train, category types.Category) []types.Train {
	if category == "" || string(category) == FilterAll {
		return types.CloneTrains(trains)
	}
	out := make([]types.Train, 0, len(trains))
	for _, t := range trains {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out
}

// Conflicts returns the trains carrying the advisory conflict flag.
func Conflicts(trains []types.Train) []types.Train {
	out := make([]types.Train, 0)
	for _, t := range trains {
		if t.Conflict {
			out = append(out, t)
		}
	}
	return out
}
