// Package api serves an HTTP view over the live fleet and the controller's
// desk. Fleet routes are read-only; only recommendations and notifications
// accept writes.
package api

import (
	"net/http"
	"time"

	"railsim/pkg/control"
	"railsim/pkg/types"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// SnapshotReader is satisfied by *driver.Driver.
type SnapshotReader interface {
	Snapshot() types.Snapshot
}

type Options struct {
	// AllowedOrigins for CORS; empty allows any origin.
	AllowedOrigins []string
	// StaleAfter marks /health unavailable when the snapshot is older.
	// Zero disables the check.
	StaleAfter time.Duration
	// Desk backs the recommendation and notification routes. Nil starts an
	// empty desk.
	Desk *control.Desk
}

type Server struct {
	fleet    SnapshotReader
	stations []types.Station
	sections []types.TrackSection
	desk     *control.Desk
	opts     Options
	now      func() time.Time
}

// NewServer serves fleet snapshots from fleet. Stations and sections are
// static and copied once.
func NewServer(fleet SnapshotReader, stations []types.Station, sections []types.TrackSection, opts Options) *Server {
	desk := opts.Desk
	if desk == nil {
		desk = control.NewDesk(nil, nil)
	}
	return &Server{
		fleet:    fleet,
		stations: types.CloneStations(stations),
		sections: types.CloneSections(sections),
		desk:     desk,
		opts:     opts,
		now:      time.Now,
	}
}

// Handler returns the router wrapped in OpenTelemetry HTTP instrumentation.
func (s *Server) Handler() http.Handler {
	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/trains", s.getTrains)
		r.Get("/trains/{id}", s.getTrain)
		r.Get("/trains/{id}/badge.svg", s.getBadge)
		r.Get("/conflicts", s.getConflicts)
		r.Get("/stations", s.getStations)
		r.Get("/sections", s.getSections)
		r.Get("/kpis", s.getKPIs)
		r.Get("/gtfsrt/vehicle_positions.pb", s.getVehiclePositions)
		r.Get("/schedule", s.getSchedule)

		r.Get("/recommendations", s.getRecommendations)
		r.Get("/recommendations/{id}", s.getRecommendation)
		r.Post("/recommendations/{id}/{action}", s.decideRecommendation)

		r.Get("/notifications", s.getNotifications)
		r.Post("/notifications/{id}/read", s.markNotificationRead)
		r.Delete("/notifications/{id}", s.dismissNotification)
	})

	return otelhttp.NewHandler(r, "railsim-api",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
