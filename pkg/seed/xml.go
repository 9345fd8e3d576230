package seed

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"railsim/pkg/types"

	"github.com/clbanning/mxj/v2"
)

// ParseXML reads a seed document of the form
//
//	<Seed>
//	  <Trains><Train><ID>T001</ID>...</Train></Trains>
//	  <Stations><Station>...<Platforms><Platform>1</Platform></Platforms></Station></Stations>
//	  <Sections><Section>...<Trains><TrainRef>T001</TrainRef></Trains></Section></Sections>
//	  <Recommendations><Recommendation><ID>rec-1</ID>...</Recommendation></Recommendations>
//	  <Notifications><Notification><ID>n1</ID>...</Notification></Notifications>
//	</Seed>
func ParseXML(data []byte) (Seed, error) {
	xmlMap, err := mxj.NewMapXml(data)
	if err != nil {
		return Seed{}, fmt.Errorf("failed to parse XML seed: %w", err)
	}

	root, ok := xmlMap["Seed"].(map[string]interface{})
	if !ok {
		return Seed{}, fmt.Errorf("failed to parse XML seed: missing <Seed> root element")
	}

	var s Seed
	for i, item := range children(root, "Trains", "Train") {
		t, err := parseTrain(item)
		if err != nil {
			return Seed{}, fmt.Errorf("train %d: %w", i+1, err)
		}
		s.Trains = append(s.Trains, t)
	}
	for i, item := range children(root, "Stations", "Station") {
		st, err := parseStation(item)
		if err != nil {
			return Seed{}, fmt.Errorf("station %d: %w", i+1, err)
		}
		s.Stations = append(s.Stations, st)
	}
	for i, item := range children(root, "Sections", "Section") {
		sec, err := parseSection(item)
		if err != nil {
			return Seed{}, fmt.Errorf("section %d: %w", i+1, err)
		}
		s.Sections = append(s.Sections, sec)
	}
	for i, item := range children(root, "Recommendations", "Recommendation") {
		rec, err := parseRecommendation(item)
		if err != nil {
			return Seed{}, fmt.Errorf("recommendation %d: %w", i+1, err)
		}
		s.Recommendations = append(s.Recommendations, rec)
	}
	for i, item := range children(root, "Notifications", "Notification") {
		n, err := parseNotification(item)
		if err != nil {
			return Seed{}, fmt.Errorf("notification %d: %w", i+1, err)
		}
		s.Notifications = append(s.Notifications, n)
	}

	return s, nil
}

// children returns the repeated element under a wrapper. mxj yields a map for
// a single child and a slice for several.
func children(parent map[string]interface{}, wrapper, element string) []map[string]interface{} {
	container, ok := parent[wrapper].(map[string]interface{})
	if !ok {
		return nil
	}

	var out []map[string]interface{}
	switch v := container[element].(type) {
	case []interface{}:
		for _, item := range v {
			if m, ok := item.(map[string]interface{}); ok {
				out = append(out, m)
			}
		}
	case map[string]interface{}:
		out = append(out, v)
	}
	return out
}

func texts(parent map[string]interface{}, wrapper, element string) []string {
	container, ok := parent[wrapper].(map[string]interface{})
	if !ok {
		return []string{}
	}

	out := []string{}
	switch v := container[element].(type) {
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		out = append(out, strings.TrimSpace(v))
	}
	return out
}

func str(m map[string]interface{}, key string) string {
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func float(m map[string]interface{}, key string) (float64, error) {
	s := str(m, key)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return f, nil
}

func integer(m map[string]interface{}, key string) (int, error) {
	s := str(m, key)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func boolean(m map[string]interface{}, key string) (bool, error) {
	s := str(m, key)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}

func parseTrain(m map[string]interface{}) (types.Train, error) {
	t := types.Train{
		ID:          str(m, "ID"),
		Name:        str(m, "Name"),
		Category:    types.Category(strings.ToLower(str(m, "Type"))),
		Status:      types.Status(strings.ToLower(str(m, "Status"))),
		Platform:    str(m, "Platform"),
		ETA:         str(m, "ETA"),
		Direction:   types.Direction(strings.ToLower(str(m, "Direction"))),
		Location:    str(m, "Location"),
		NextStation: str(m, "NextStation"),
	}

	var err error
	if t.Delay, err = integer(m, "Delay"); err != nil {
		return t, err
	}
	if t.Position, err = float(m, "Position"); err != nil {
		return t, err
	}
	if t.Priority, err = integer(m, "Priority"); err != nil {
		return t, err
	}
	if t.Speed, err = float(m, "Speed"); err != nil {
		return t, err
	}
	if t.Conflict, err = boolean(m, "Conflict"); err != nil {
		return t, err
	}
	return t, nil
}

func parseStation(m map[string]interface{}) (types.Station, error) {
	st := types.Station{
		ID:        str(m, "ID"),
		Name:      str(m, "Name"),
		Platforms: texts(m, "Platforms", "Platform"),
	}

	var err error
	if st.Position, err = float(m, "Position"); err != nil {
		return st, err
	}
	if st.Capacity, err = integer(m, "Capacity"); err != nil {
		return st, err
	}
	if st.CurrentTrains, err = integer(m, "CurrentTrains"); err != nil {
		return st, err
	}
	if st.Coordinates[0], err = float(m, "Latitude"); err != nil {
		return st, err
	}
	if st.Coordinates[1], err = float(m, "Longitude"); err != nil {
		return st, err
	}
	return st, nil
}

func parseSection(m map[string]interface{}) (types.TrackSection, error) {
	sec := types.TrackSection{
		ID:     str(m, "ID"),
		Name:   str(m, "Name"),
		Start:  str(m, "Start"),
		End:    str(m, "End"),
		Status: types.SectionStatus(strings.ToLower(str(m, "Status"))),
		Trains: texts(m, "Trains", "TrainRef"),
	}

	var err error
	if sec.Length, err = float(m, "Length"); err != nil {
		return sec, err
	}
	if sec.MaxSpeed, err = float(m, "MaxSpeed"); err != nil {
		return sec, err
	}
	return sec, nil
}

func parseRecommendation(m map[string]interface{}) (types.Recommendation, error) {
	rec := types.Recommendation{
		ID:          str(m, "ID"),
		Algorithm:   types.Algorithm(strings.ToUpper(str(m, "Algorithm"))),
		Type:        types.RecommendationType(strings.ToLower(str(m, "Type"))),
		Title:       str(m, "Title"),
		Description: str(m, "Description"),
		Impact:      str(m, "Impact"),
		ImpactValue: str(m, "ImpactValue"),
		Urgency:     types.Urgency(strings.ToLower(str(m, "Urgency"))),
		TrainID:     str(m, "TrainID"),
		ETA:         str(m, "ETA"),
	}

	var err error
	if rec.Confidence, err = integer(m, "Confidence"); err != nil {
		return rec, err
	}
	if rec.Delay, err = integer(m, "Delay"); err != nil {
		return rec, err
	}
	return rec, nil
}

func parseNotification(m map[string]interface{}) (types.Notification, error) {
	n := types.Notification{
		ID:      str(m, "ID"),
		Type:    types.NotificationType(strings.ToLower(str(m, "Type"))),
		Title:   str(m, "Title"),
		Message: str(m, "Message"),
	}

	if ts := str(m, "Timestamp"); ts != "" {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return n, fmt.Errorf("invalid Timestamp %q: %w", ts, err)
		}
		n.Timestamp = t
	}

	var err error
	if n.Read, err = boolean(m, "Read"); err != nil {
		return n, err
	}
	return n, nil
}
