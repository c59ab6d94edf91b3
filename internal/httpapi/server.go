package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/uptimetracker/uptimetracker/internal/alert"
	"github.com/uptimetracker/uptimetracker/internal/history"
	"github.com/uptimetracker/uptimetracker/internal/httpapi/middleware"
	"github.com/uptimetracker/uptimetracker/internal/monitor"
	"github.com/uptimetracker/uptimetracker/internal/notify"
	"github.com/uptimetracker/uptimetracker/internal/registry"
	"github.com/uptimetracker/uptimetracker/internal/stats"
)

type Server struct {
	Logger    *zap.Logger
	Sites     *registry.Registry
	History   *history.Log
	Stats     *stats.Engine
	Alerts    *alert.Machine
	Settings  *alert.SettingsStore
	Recorder  *notify.Recorder
	Scheduler *monitor.Scheduler

	Keys        middleware.Keys
	PublicRPM   int
	PublicBurst int
}

func NewServer(
	logger *zap.Logger,
	sites *registry.Registry,
	log *history.Log,
	engine *stats.Engine,
	alerts *alert.Machine,
	settings *alert.SettingsStore,
	recorder *notify.Recorder,
	scheduler *monitor.Scheduler,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		Logger:    logger,
		Sites:     sites,
		History:   log,
		Stats:     engine,
		Alerts:    alerts,
		Settings:  settings,
		Recorder:  recorder,
		Scheduler: scheduler,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)
	r.Use(middleware.RateLimit(s.PublicRPM, s.PublicBurst))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireAny(s.Keys))

		r.Get("/sites", s.handleListSites)
		r.Get("/sites/{id}/status", s.handleSiteStatus)
		r.Get("/sites/{id}/statistics", s.handleSiteStatistics)
		r.Get("/notifications/log", s.handleNotificationLog)
		r.Get("/settings/notifications", s.handleGetSettings)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(s.Keys))

			r.Post("/sites", s.handleAddSite)
			r.Put("/sites/{id}", s.handleUpdateSite)
			r.Delete("/sites/{id}", s.handleRemoveSite)
			r.Post("/sites/{id}/pause", s.handlePauseSite)
			r.Post("/sites/{id}/resume", s.handleResumeSite)
			r.Put("/settings/notifications", s.handlePutSettings)
			r.Post("/test/simulate-downtime", s.handleSimulateDowntime)
			r.Post("/test/simulate-recovery", s.handleSimulateRecovery)
			r.Post("/reset-data", s.handleResetData)
			r.Post("/clear-data", s.handleClearData)
		})
	})

	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Warn("response_encode_error", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, map[string]string{"error": msg})
}
