package seed

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"railsim/pkg/types"

	"gopkg.in/yaml.v3"
)

// Seed is the literal starting state of a simulation run. It is passed
// explicitly to whatever builds the first snapshot.
type Seed struct {
	Trains   []types.Train        `yaml:"trains"`
	Stations []types.Station      `yaml:"stations"`
	Sections []types.TrackSection `yaml:"sections"`

	Recommendations []types.Recommendation `yaml:"recommendations"`
	Notifications   []types.Notification   `yaml:"notifications"`
}

// Clone returns a deep copy so independent consumers never share state.
func (s Seed) Clone() Seed {
	return Seed{
		Trains:   types.CloneTrains(s.Trains),
		Stations: types.CloneStations(s.Stations),
		Sections: types.CloneSections(s.Sections),

		Recommendations: types.CloneRecommendations(s.Recommendations),
		Notifications:   types.CloneNotifications(s.Notifications),
	}
}

// Validate checks field constraints and that train, recommendation and
// notification IDs are unique.
func (s Seed) Validate() error {
	if err := types.ValidateTrains(s.Trains); err != nil {
		return fmt.Errorf("invalid seed: %w", err)
	}

	for i, st := range s.Stations {
		if err := types.ValidateStruct(st); err != nil {
			return fmt.Errorf("invalid seed: stations[%d] %q: %w", i, st.ID, err)
		}
	}
	for i, sec := range s.Sections {
		if err := types.ValidateStruct(sec); err != nil {
			return fmt.Errorf("invalid seed: sections[%d] %q: %w", i, sec.ID, err)
		}
	}

	recIDs := make(map[string]struct{}, len(s.Recommendations))
	for i, rec := range s.Recommendations {
		if err := types.ValidateStruct(rec); err != nil {
			return fmt.Errorf("invalid seed: recommendations[%d] %q: %w", i, rec.ID, err)
		}
		if _, dup := recIDs[rec.ID]; dup {
			return fmt.Errorf("invalid seed: duplicate recommendation id %q", rec.ID)
		}
		recIDs[rec.ID] = struct{}{}
	}

	noteIDs := make(map[string]struct{}, len(s.Notifications))
	for i, n := range s.Notifications {
		if err := types.ValidateStruct(n); err != nil {
			return fmt.Errorf("invalid seed: notifications[%d] %q: %w", i, n.ID, err)
		}
		if _, dup := noteIDs[n.ID]; dup {
			return fmt.Errorf("invalid seed: duplicate notification id %q", n.ID)
		}
		noteIDs[n.ID] = struct{}{}
	}
	return nil
}

// Load reads a seed file. The format is chosen by extension: .yaml, .yml or .xml.
func Load(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("failed to read seed file: %w", err)
	}

	var s Seed
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Seed{}, fmt.Errorf("failed to parse YAML seed: %w", err)
		}
	case ".xml":
		s, err = ParseXML(data)
		if err != nil {
			return Seed{}, err
		}
	default:
		return Seed{}, fmt.Errorf("unsupported seed file extension %q", ext)
	}

	if err := s.Validate(); err != nil {
		return Seed{}, err
	}
	return s, nil
}

// Default returns the built-in fleet. Each call returns a fresh value;
// notification timestamps are relative to the time of the call.
func Default() Seed {
	now := time.Now()
	return Seed{
		Trains: []types.Train{
			{
				ID: "T001", Name: "Rajdhani Express", Category: types.CategoryExpress,
				Status: types.StatusDelayed, Delay: 9, Platform: "Platform-2", ETA: "14:28",
				Position: 25, Direction: types.DirectionUp, Priority: 1, Speed: 110,
				Location: "Platform-2", NextStation: "Kalyan",
			},
			{
				ID: "T002", Name: "Local Passenger", Category: types.CategoryLocal,
				Status: types.StatusDelayed, Delay: 2, Platform: "Station-C", ETA: "14:15",
				Position: 45, Direction: types.DirectionDown, Priority: 3, Speed: 60,
				Location: "Station-C", NextStation: "Junction-A",
			},
			{
				ID: "T003", Name: "Goods Special", Category: types.CategoryFreight,
				Status: types.StatusDelayed, Delay: 7, Platform: "Yard-B", ETA: "14:45",
				Position: 15, Direction: types.DirectionUp, Priority: 4, Speed: 45,
				Location: "Yard-B", NextStation: "Platform-1",
			},
			{
				ID: "T004", Name: "Shatabdi Express", Category: types.CategoryExpress,
				Status: types.StatusDelayed, Delay: 6, Platform: "Junction-A", ETA: "14:22",
				Position: 65, Direction: types.DirectionDown, Priority: 1, Speed: 130,
				Location: "Junction-A", NextStation: "Platform-1", Conflict: true,
			},
			{
				ID: "T005", Name: "EMU Local", Category: types.CategoryLocal,
				Status: types.StatusDelayed, Delay: 7, Platform: "Platform-1", ETA: "14:18",
				Position: 85, Direction: types.DirectionUp, Priority: 3, Speed: 55,
				Location: "Platform-1", NextStation: "Terminal",
			},
		},
		Stations: []types.Station{
			{
				ID: "st1", Name: "Junction-A", Position: 50, Platforms: []string{"1", "2", "3"},
				Capacity: 3, CurrentTrains: 2, Coordinates: [2]float64{28.6139, 77.2090},
			},
			{
				ID: "st2", Name: "Platform 2", Position: 25, Platforms: []string{"Platform 2"},
				Capacity: 1, CurrentTrains: 1, Coordinates: [2]float64{28.6129, 77.2080},
			},
			{
				ID: "st3", Name: "Platform 3", Position: 75, Platforms: []string{"Platform 3"},
				Capacity: 1, CurrentTrains: 0, Coordinates: [2]float64{28.6149, 77.2100},
			},
		},
		Sections: []types.TrackSection{
			{
				ID: "ts1", Name: "Main Line UP", Start: "Junction-A", End: "Platform 2",
				Length: 2.5, MaxSpeed: 110, Status: types.SectionOccupied, Trains: []string{"T001", "T003"},
			},
			{
				ID: "ts2", Name: "Main Line DOWN", Start: "Platform 3", End: "Junction-A",
				Length: 2.5, MaxSpeed: 110, Status: types.SectionOccupied, Trains: []string{"T002", "T004"},
			},
			{
				ID: "ts3", Name: "Loop Line", Start: "Junction-A", End: "Yard-B",
				Length: 1.2, MaxSpeed: 60, Status: types.SectionClear, Trains: []string{},
			},
		},
		Recommendations: []types.Recommendation{
			{
				ID: "rec-1", Algorithm: types.AlgorithmGA, Confidence: 82, Type: types.RecommendHold,
				Title:       "HOLD Train T003 at Yard-B",
				Description: "Genetic algorithm found alternative path with minimal overall delay",
				Impact:      "-20%", ImpactValue: "Delay", Urgency: types.UrgencyHigh,
				TrainID: "T003", ETA: "14:45", Delay: 2,
			},
			{
				ID: "rec-2", Algorithm: types.AlgorithmMILP, Confidence: 95, Type: types.RecommendReroute,
				Title:       "REROUTE Train T004 via Platform 3",
				Description: "Mathematically optimal solution ensuring safety constraints",
				Impact:      "+10%", ImpactValue: "Punctuality", Urgency: types.UrgencyMedium,
				TrainID: "T004", ETA: "14:22",
			},
			{
				ID: "rec-3", Algorithm: types.AlgorithmACO, Confidence: 78, Type: types.RecommendSpeed,
				Title:       "SPEED ADJUST Train T001",
				Description: "Ant Colony Optimization suggests speed reduction for optimal flow",
				Impact:      "+5%", ImpactValue: "Throughput", Urgency: types.UrgencyLow,
				TrainID: "T001", ETA: "14:28", Delay: 4,
			},
		},
		Notifications: []types.Notification{
			{
				ID: "n1", Type: types.NotifyCritical, Title: "High priority conflict detected",
				Message: "at Junction-A", Timestamp: now.Add(-2 * time.Minute),
			},
			{
				ID: "n2", Type: types.NotifyWarning, Title: "T002 Local running 5 minutes late",
				Message: "Platform assignment may need adjustment", Timestamp: now.Add(-5 * time.Minute),
			},
			{
				ID: "n3", Type: types.NotifyInfo, Title: "Track section maintenance",
				Message: "Scheduled for Platform 3 at 15:30", Timestamp: now.Add(-8 * time.Minute), Read: true,
			},
			{
				ID: "n4", Type: types.NotifySuccess, Title: "AI recommendation accepted",
				Message: "Train T001 successfully rerouted", Timestamp: now.Add(-12 * time.Minute), Read: true,
			},
		},
	}
}
