package types

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidTrain marks a fleet that breaks the train field constraints.
var ErrInvalidTrain = errors.New("invalid train")

// validate caches struct metadata; it is safe for concurrent use.
var validate = validator.New()

// ValidateTrains checks every train against its struct tags (position in
// [0,100], non-negative delay and speed, known enums) and that IDs are
// unique. Errors wrap ErrInvalidTrain.
func ValidateTrains(trains []Train) error {
	seen := make(map[string]struct{}, len(trains))
	for i, t := range trains {
		if err := validate.Struct(t); err != nil {
			return fmt.Errorf("%w: trains[%d] %q: %w", ErrInvalidTrain, i, t.ID, err)
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("%w: duplicate train id %q", ErrInvalidTrain, t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	return nil
}

// ValidateStruct runs the struct tag constraints on a station, section or
// any other tagged value.
func ValidateStruct(v interface{}) error {
	return validate.Struct(v)
}
