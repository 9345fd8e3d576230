package types

import (
	"fmt"
	"strings"
	"time"
)

// Category is the service class of a train
type Category string

const (
	CategoryPremium Category = "premium"
	CategoryExpress Category = "express"
	CategoryLocal   Category = "local"
	CategoryFreight Category = "freight"
	CategorySpecial Category = "special"
)

// AllCategories lists every category in display order
var AllCategories = []Category{
	CategoryPremium,
	CategoryExpress,
	CategoryLocal,
	CategoryFreight,
	CategorySpecial,
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory parses a category name case-insensitively
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown train category %q", s)
	}
	return c, nil
}

// Status is the operational status of a train
type Status string

const (
	StatusOnTime   Status = "on-time"
	StatusDelayed  Status = "delayed"
	StatusHolding  Status = "holding"
	StatusDeparted Status = "departed"
)

// Direction is the running direction on the line
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// SectionStatus is the occupancy state of a track section
type SectionStatus string

const (
	SectionClear       SectionStatus = "clear"
	SectionOccupied    SectionStatus = "occupied"
	SectionMaintenance SectionStatus = "maintenance"
	SectionBlocked     SectionStatus = "blocked"
)

type Train struct {
	ID          string    `json:"id" yaml:"id" validate:"required"`
	Name        string    `json:"name" yaml:"name"`
	Category    Category  `json:"type" yaml:"type" validate:"oneof=premium express local freight special"`
	Status      Status    `json:"status" yaml:"status" validate:"oneof=on-time delayed holding departed"`
	Delay       int       `json:"delay" yaml:"delay" validate:"gte=0"`
	Platform    string    `json:"platform,omitempty" yaml:"platform"`
	ETA         string    `json:"eta,omitempty" yaml:"eta"`
	Position    float64   `json:"position" yaml:"position" validate:"gte=0,lte=100"` // percent along the track
	Direction   Direction `json:"direction" yaml:"direction" validate:"oneof=up down"`
	Priority    int       `json:"priority" yaml:"priority" validate:"gte=1"` // lower is more important
	Speed       float64   `json:"speed" yaml:"speed" validate:"gte=0"`       // km/h
	Location    string    `json:"location" yaml:"location"`
	NextStation string    `json:"nextStation" yaml:"nextStation"`
	Conflict    bool      `json:"conflict" yaml:"conflict"`
}

type Station struct {
	ID            string     `json:"id" yaml:"id" validate:"required"`
	Name          string     `json:"name" yaml:"name" validate:"required"`
	Position      float64    `json:"position" yaml:"position" validate:"gte=0,lte=100"`
	Platforms     []string   `json:"platforms" yaml:"platforms"`
	Capacity      int        `json:"capacity" yaml:"capacity" validate:"gte=0"`
	CurrentTrains int        `json:"currentTrains" yaml:"currentTrains" validate:"gte=0"`
	Coordinates   [2]float64 `json:"coordinates" yaml:"coordinates"` // [lat, lng]
}

// TrackSection references its end stations by name only.
type TrackSection struct {
	ID       string        `json:"id" yaml:"id" validate:"required"`
	Name     string        `json:"name" yaml:"name"`
	Start    string        `json:"start" yaml:"start"`
	End      string        `json:"end" yaml:"end"`
	Length   float64       `json:"length" yaml:"length" validate:"gte=0"` // km
	MaxSpeed float64       `json:"maxSpeed" yaml:"maxSpeed" validate:"gte=0"`
	Status   SectionStatus `json:"status" yaml:"status" validate:"oneof=clear occupied maintenance blocked"`
	Trains   []string      `json:"trains" yaml:"trains"`
}

// Snapshot is the complete ordered fleet at one tick.
type Snapshot struct {
	ID        string    `json:"id"`
	Tick      uint64    `json:"tick"`
	Timestamp time.Time `json:"timestamp"`
	Trains    []Train   `json:"trains"`
}

// Clone returns a copy that shares no backing arrays with s.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Trains = CloneTrains(s.Trains)
	return out
}

// CloneTrains copies a train slice. A nil input yields an empty slice.
func CloneTrains(trains []Train) []Train {
	out := make([]Train, len(trains))
	copy(out, trains)
	return out
}

// CloneStations copies stations including their platform lists.
func CloneStations(stations []Station) []Station {
	out := make([]Station, len(stations))
	for i, st := range stations {
		st.Platforms = append([]string(nil), st.Platforms...)
		out[i] = st
	}
	return out
}

// CloneSections copies sections including their train ID lists.
func CloneSections(sections []TrackSection) []TrackSection {
	out := make([]TrackSection, len(sections))
	for i, sec := range sections {
		sec.Trains = append([]string(nil), sec.Trains...)
		out[i] = sec
	}
	return out
}
