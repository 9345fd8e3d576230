package types

import "time"

// Algorithm names the optimiser that produced a recommendation
type Algorithm string

const (
	AlgorithmMILP Algorithm = "MILP"
	AlgorithmGA   Algorithm = "GA"
	AlgorithmACO  Algorithm = "ACO"
	AlgorithmRL   Algorithm = "RL"
)

type RecommendationType string

const (
	RecommendHold       RecommendationType = "hold"
	RecommendReroute    RecommendationType = "reroute"
	RecommendReplatform RecommendationType = "replatform"
	RecommendSpeed      RecommendationType = "speed"
)

type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

// Decision is the controller's answer to a recommendation. A recommendation
// is pending until it gets one and cannot be decided twice.
type Decision string

const (
	DecisionPending   Decision = "pending"
	DecisionAccepted  Decision = "accepted"
	DecisionModified  Decision = "modified"
	DecisionDismissed Decision = "dismissed"
)

// ParseDecision maps an action verb (accept, modify, dismiss) to its decision.
func ParseDecision(action string) (Decision, bool) {
	switch action {
	case "accept":
		return DecisionAccepted, true
	case "modify":
		return DecisionModified, true
	case "dismiss", "reject":
		return DecisionDismissed, true
	}
	return "", false
}

// Recommendation is an advisory action for one train. The train ID is a loose
// reference; nothing checks it against the fleet.
type Recommendation struct {
	ID          string             `json:"id" yaml:"id" validate:"required"`
	Algorithm   Algorithm          `json:"algorithm" yaml:"algorithm" validate:"oneof=MILP GA ACO RL"`
	Confidence  int                `json:"confidence" yaml:"confidence" validate:"gte=0,lte=100"` // percent
	Type        RecommendationType `json:"type" yaml:"type" validate:"oneof=hold reroute replatform speed"`
	Title       string             `json:"title" yaml:"title"`
	Description string             `json:"description" yaml:"description"`
	Impact      string             `json:"impact" yaml:"impact"`
	ImpactValue string             `json:"impactValue" yaml:"impactValue"`
	Urgency     Urgency            `json:"urgency" yaml:"urgency" validate:"oneof=high medium low"`
	TrainID     string             `json:"trainId" yaml:"trainId" validate:"required"`
	ETA         string             `json:"eta,omitempty" yaml:"eta"`
	Delay       int                `json:"delay,omitempty" yaml:"delay" validate:"gte=0"`

	Status    Decision   `json:"status" yaml:"status" validate:"omitempty,oneof=pending accepted modified dismissed"`
	Note      string     `json:"note,omitempty" yaml:"note"`
	DecidedAt *time.Time `json:"decidedAt,omitempty" yaml:"decidedAt"`
}

type NotificationType string

const (
	NotifyCritical NotificationType = "critical"
	NotifyWarning  NotificationType = "warning"
	NotifyInfo     NotificationType = "info"
	NotifySuccess  NotificationType = "success"
)

type Notification struct {
	ID        string           `json:"id" yaml:"id" validate:"required"`
	Type      NotificationType `json:"type" yaml:"type" validate:"oneof=critical warning info success"`
	Title     string           `json:"title" yaml:"title" validate:"required"`
	Message   string           `json:"message" yaml:"message"`
	Timestamp time.Time        `json:"timestamp" yaml:"timestamp"`
	Read      bool             `json:"read" yaml:"read"`
}

// ScheduleStatus compares a train's expected time against its timetable
type ScheduleStatus string

const (
	ScheduleOnTime  ScheduleStatus = "on-time"
	ScheduleDelayed ScheduleStatus = "delayed"
)

// ScheduleEntry is one row of the schedule board.
type ScheduleEntry struct {
	TrainID       string         `json:"trainId"`
	TrainName     string         `json:"trainName"`
	Category      Category       `json:"type"`
	Track         string         `json:"track"`
	From          string         `json:"from"`
	To            string         `json:"to"`
	ScheduledTime string         `json:"scheduledTime"` // HH:MM, empty when the train has no ETA
	ActualTime    string         `json:"actualTime"`
	Status        ScheduleStatus `json:"status"`
	Delay         int            `json:"delay"`
	Platform      string         `json:"platform"`
}

// CloneRecommendations copies a recommendation slice, including decision times.
func CloneRecommendations(recs []Recommendation) []Recommendation {
	out := make([]Recommendation, len(recs))
	for i, rec := range recs {
		if rec.DecidedAt != nil {
			at := *rec.DecidedAt
			rec.DecidedAt = &at
		}
		out[i] = rec
	}
	return out
}

func CloneNotifications(notes []Notification) []Notification {
	out := make([]Notification, len(notes))
	copy(out, notes)
	return out
}
