package httpapi

import (
	"context"
	"math/rand"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/uptimetracker/uptimetracker/internal/domain"
)

var demoSites = []struct {
	name, url, description string
	intervalMinutes        int
}{
	{"Google", "https://google.com", "Search engine", 5},
	{"Example Site", "https://example.com", "Example website", 15},
	{"Test Website", "https://test.example.org", "Test site", 30},
}

// handleResetData wipes everything and seeds demo sites with 30 days of
// hourly observations, then starts their monitors. The one-observation-
// per-hour cadence is what lets the stats engine report outage durations
// in hours.
func (s *Server) handleResetData(w http.ResponseWriter, r *http.Request) {
	s.clearAll(r.Context())

	for _, d := range demoSites {
		site := &domain.Site{
			Name:        d.name,
			URL:         d.url,
			Description: d.description,
			Interval:    time.Duration(d.intervalMinutes) * time.Minute,
		}
		if err := s.Sites.Add(r.Context(), site); err != nil {
			s.writeError(w, http.StatusInternalServerError, "seed failed")
			return
		}
		s.seedHistory(site.ID, 30*24)
		if err := s.Scheduler.Start(*site); err != nil {
			s.Logger.Warn("monitor_start_error", zap.String("site_id", string(site.ID)), zap.Error(err))
		}
	}

	s.Logger.Info("demo_data_seeded", zap.Int("sites", len(demoSites)))
	s.writeJSON(w, http.StatusOK, map[string]any{"seeded": len(demoSites)})
}

// handleClearData wipes sites, history, alert state and the notification
// log without re-seeding.
func (s *Server) handleClearData(w http.ResponseWriter, r *http.Request) {
	s.clearAll(r.Context())
	s.writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

func (s *Server) clearAll(ctx context.Context) {
	s.Scheduler.StopAll()
	s.Sites.Clear(ctx)
	s.History.ClearAll()
	s.Alerts.ResetAll()
	s.Recorder.Clear()
}

// seedHistory backfills one observation per hour, mostly up with
// realistic response times, so fresh demo sites have usable statistics.
func (s *Server) seedHistory(siteID domain.SiteID, hours int) {
	now := time.Now().UTC()
	for i := hours; i > 0; i-- {
		ts := now.Add(-time.Duration(i) * time.Hour)
		if rand.Float64() < 0.95 {
			s.History.Append(siteID, domain.Observation{
				Timestamp:      ts,
				Up:             true,
				ResponseTimeMS: 100 + rand.Intn(500),
				StatusCode:     http.StatusOK,
			})
		} else {
			s.History.Append(siteID, domain.Observation{
				Timestamp: ts,
				Up:        false,
				Error:     "connection timeout",
			})
		}
	}
}
