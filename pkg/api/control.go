package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"railsim/pkg/control"
	"railsim/pkg/schedule"
	"railsim/pkg/types"

	"github.com/go-chi/chi/v5"
)

// DecisionRequest is the optional body of POST /api/recommendations/{id}/{action}
type DecisionRequest struct {
	Note string `json:"note"`
}

type NotificationsResponse struct {
	Notifications []types.Notification `json:"notifications"`
	Count         int                  `json:"count"`
	Unread        int                  `json:"unread"`
}

type ScheduleResponse struct {
	Entries   []types.ScheduleEntry `json:"entries"`
	Count     int                   `json:"count"`
	Tick      uint64                `json:"tick"`
	Timestamp time.Time             `json:"timestamp"`
}

func writeDeskError(w http.ResponseWriter, err error, id string) {
	switch {
	case errors.Is(err, control.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", map[string]interface{}{"id": id})
	case errors.Is(err, control.ErrAlreadyDecided):
		writeError(w, http.StatusConflict, "Recommendation already decided", map[string]interface{}{"id": id})
	default:
		writeError(w, http.StatusBadRequest, err.Error(), map[string]interface{}{"id": id})
	}
}

// getRecommendations handles GET /api/recommendations?status=
func (s *Server) getRecommendations(w http.ResponseWriter, r *http.Request) {
	status := types.Decision(r.URL.Query().Get("status"))
	switch status {
	case "", types.DecisionPending, types.DecisionAccepted, types.DecisionModified, types.DecisionDismissed:
	default:
		writeError(w, http.StatusBadRequest, "Unknown recommendation status", map[string]interface{}{
			"status":  status,
			"allowed": []types.Decision{types.DecisionPending, types.DecisionAccepted, types.DecisionModified, types.DecisionDismissed},
		})
		return
	}

	recs := s.desk.Recommendations(status)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"recommendations": recs,
		"count":           len(recs),
	})
}

// getRecommendation handles GET /api/recommendations/{id}
func (s *Server) getRecommendation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.desk.Recommendation(id)
	if err != nil {
		writeDeskError(w, err, id)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// decideRecommendation handles POST /api/recommendations/{id}/{action}
// with action one of accept, modify or dismiss.
func (s *Server) decideRecommendation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	action := chi.URLParam(r, "action")

	decision, ok := types.ParseDecision(action)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown action", map[string]interface{}{
			"action":  action,
			"allowed": []string{"accept", "modify", "dismiss"},
		})
		return
	}

	// an empty body is fine, a malformed one is not
	var req DecisionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", map[string]interface{}{"internal": err.Error()})
		return
	}

	rec, err := s.desk.Decide(r.Context(), id, decision, req.Note)
	if err != nil {
		writeDeskError(w, err, id)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// getNotifications handles GET /api/notifications?unread=true
func (s *Server) getNotifications(w http.ResponseWriter, r *http.Request) {
	var unreadOnly bool
	if raw := r.URL.Query().Get("unread"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid unread filter", map[string]interface{}{"unread": raw})
			return
		}
		unreadOnly = v
	}

	notes := s.desk.Notifications(unreadOnly)
	writeJSON(w, http.StatusOK, NotificationsResponse{
		Notifications: notes,
		Count:         len(notes),
		Unread:        s.desk.UnreadCount(),
	})
}

// markNotificationRead handles POST /api/notifications/{id}/read
func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.desk.MarkRead(id); err != nil {
		writeDeskError(w, err, id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// dismissNotification handles DELETE /api/notifications/{id}
func (s *Server) dismissNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.desk.Dismiss(id); err != nil {
		writeDeskError(w, err, id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getSchedule handles GET /api/schedule
func (s *Server) getSchedule(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(r, "schedule")
	entries := schedule.Board(snap)
	writeJSON(w, http.StatusOK, ScheduleResponse{
		Entries:   entries,
		Count:     len(entries),
		Tick:      snap.Tick,
		Timestamp: snap.Timestamp,
	})
}
