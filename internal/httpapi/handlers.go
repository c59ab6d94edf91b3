package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/uptimetracker/uptimetracker/internal/alert"
	"github.com/uptimetracker/uptimetracker/internal/domain"
	"github.com/uptimetracker/uptimetracker/internal/registry"
)

type sitePayload struct {
	Name            string `json:"name"`
	URL             string `json:"url"`
	Description     string `json:"description"`
	IntervalMinutes int    `json:"interval_minutes"`
}

type siteView struct {
	Site                domain.Site         `json:"site"`
	Latest              *domain.Observation `json:"latest,omitempty"`
	ConsecutiveFailures int                 `json:"consecutive_failures"`
	Monitored           bool                `json:"monitored"`
}

func (s *Server) siteView(site domain.Site) siteView {
	v := siteView{
		Site:                site,
		ConsecutiveFailures: s.Alerts.Failures(site.ID),
		Monitored:           s.Scheduler.Running(site.ID),
	}
	if latest, ok := s.History.Latest(site.ID); ok {
		v.Latest = &latest
	}
	return v
}

func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	sites := s.Sites.List(r.Context())
	out := make([]siteView, 0, len(sites))
	for _, site := range sites {
		out = append(out, s.siteView(site))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddSite(w http.ResponseWriter, r *http.Request) {
	var p sitePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.URL == "" {
		s.writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	if p.IntervalMinutes < 1 {
		s.writeError(w, http.StatusBadRequest, "interval_minutes must be >= 1")
		return
	}

	site := &domain.Site{
		Name:        p.Name,
		URL:         p.URL,
		Description: p.Description,
		Interval:    time.Duration(p.IntervalMinutes) * time.Minute,
	}
	if err := s.Sites.Add(r.Context(), site); err != nil {
		if errors.Is(err, registry.ErrInvalidURL) {
			s.writeError(w, http.StatusBadRequest, "invalid url")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "could not add site")
		return
	}

	if err := s.Scheduler.Start(*site); err != nil {
		s.Logger.Warn("monitor_start_error", zap.String("site_id", string(site.ID)), zap.Error(err))
	}

	s.Logger.Info("site_added",
		zap.String("site_id", string(site.ID)),
		zap.String("url", site.URL),
		zap.Duration("interval", site.Interval),
	)
	s.writeJSON(w, http.StatusCreated, s.siteView(*site))
}

func (s *Server) handleSiteStatus(w http.ResponseWriter, r *http.Request) {
	site, ok := s.lookupSite(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.siteView(site))
}

func (s *Server) handleSiteStatistics(w http.ResponseWriter, r *http.Request) {
	site, ok := s.lookupSite(w, r)
	if !ok {
		return
	}

	if p := r.URL.Query().Get("period"); p != "" {
		period := domain.Period(p)
		if !period.Valid() {
			s.writeError(w, http.StatusBadRequest, "unknown period")
			return
		}
		s.writeJSON(w, http.StatusOK, s.Stats.Compute(site.ID, period))
		return
	}
	s.writeJSON(w, http.StatusOK, s.Stats.ComputeAll(site.ID))
}

func (s *Server) handleUpdateSite(w http.ResponseWriter, r *http.Request) {
	site, ok := s.lookupSite(w, r)
	if !ok {
		return
	}
	var p sitePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.URL == "" {
		s.writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	if p.IntervalMinutes < 1 {
		s.writeError(w, http.StatusBadRequest, "interval_minutes must be >= 1")
		return
	}

	updated, err := s.Sites.Update(r.Context(), site.ID, p.Name, p.URL, p.Description,
		time.Duration(p.IntervalMinutes)*time.Minute)
	if err != nil {
		if errors.Is(err, registry.ErrInvalidURL) {
			s.writeError(w, http.StatusBadRequest, "invalid url")
			return
		}
		s.writeError(w, http.StatusNotFound, "site not found")
		return
	}

	// interval/url changes take effect through an explicit restart
	if updated.State == domain.SiteActive {
		if err := s.Scheduler.Start(updated); err != nil {
			s.Logger.Warn("monitor_restart_error", zap.String("site_id", string(updated.ID)), zap.Error(err))
		}
	}
	s.writeJSON(w, http.StatusOK, s.siteView(updated))
}

func (s *Server) handlePauseSite(w http.ResponseWriter, r *http.Request) {
	site, ok := s.lookupSite(w, r)
	if !ok {
		return
	}
	updated, err := s.Sites.SetState(r.Context(), site.ID, domain.SitePaused)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "site not found")
		return
	}
	s.Scheduler.Stop(site.ID)
	s.writeJSON(w, http.StatusOK, s.siteView(updated))
}

func (s *Server) handleResumeSite(w http.ResponseWriter, r *http.Request) {
	site, ok := s.lookupSite(w, r)
	if !ok {
		return
	}
	updated, err := s.Sites.SetState(r.Context(), site.ID, domain.SiteActive)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "site not found")
		return
	}
	if err := s.Scheduler.Start(updated); err != nil {
		s.Logger.Warn("monitor_start_error", zap.String("site_id", string(updated.ID)), zap.Error(err))
	}
	s.writeJSON(w, http.StatusOK, s.siteView(updated))
}

func (s *Server) handleRemoveSite(w http.ResponseWriter, r *http.Request) {
	site, ok := s.lookupSite(w, r)
	if !ok {
		return
	}
	s.Scheduler.Stop(site.ID)
	s.Sites.Remove(r.Context(), site.ID)
	s.History.Clear(site.ID)
	s.Alerts.Reset(site.ID)
	s.Settings.DisableSite(site.ID)

	s.Logger.Info("site_removed", zap.String("site_id", string(site.ID)))
	s.writeJSON(w, http.StatusOK, map[string]any{"removed": site.ID})
}

func (s *Server) handleNotificationLog(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Recorder.List())
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Settings.Get())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var p alert.Settings
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	if p.Threshold < 1 {
		s.writeError(w, http.StatusBadRequest, "consecutive_failures must be >= 1")
		return
	}
	s.Settings.Set(p)
	s.Logger.Info("notification_settings_updated",
		zap.Int("threshold", p.Threshold),
		zap.Int("enabled_sites", len(p.EnabledSites)),
	)
	s.writeJSON(w, http.StatusOK, s.Settings.Get())
}

type simulatePayload struct {
	SiteID domain.SiteID `json:"site_id"`
}

// handleSimulateDowntime feeds threshold-many down observations through
// the real pipeline (history + alert machine), so a down alert fires for
// enabled sites exactly as it would from failed checks.
func (s *Server) handleSimulateDowntime(w http.ResponseWriter, r *http.Request) {
	var p simulatePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.SiteID == "" {
		s.writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	site, err := s.Sites.Get(r.Context(), p.SiteID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "site not found")
		return
	}

	threshold := s.Settings.Get().Threshold
	now := time.Now().UTC()
	for i := 0; i < threshold; i++ {
		obs := domain.Observation{
			Timestamp: now.Add(time.Duration(i) * time.Second),
			Up:        false,
			Error:     "simulated outage",
		}
		s.History.Append(site.ID, obs)
		s.Alerts.OnObservation(r.Context(), site, obs)
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"message":              "downtime simulated",
		"site_id":              site.ID,
		"consecutive_failures": s.Alerts.Failures(site.ID),
	})
}

func (s *Server) handleSimulateRecovery(w http.ResponseWriter, r *http.Request) {
	var p simulatePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.SiteID == "" {
		s.writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	site, err := s.Sites.Get(r.Context(), p.SiteID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "site not found")
		return
	}

	obs := domain.Observation{
		Timestamp:      time.Now().UTC(),
		Up:             true,
		ResponseTimeMS: 120,
		StatusCode:     http.StatusOK,
	}
	s.History.Append(site.ID, obs)
	s.Alerts.OnObservation(r.Context(), site, obs)

	s.writeJSON(w, http.StatusOK, map[string]any{
		"message":              "recovery simulated",
		"site_id":              site.ID,
		"consecutive_failures": s.Alerts.Failures(site.ID),
	})
}

func (s *Server) lookupSite(w http.ResponseWriter, r *http.Request) (domain.Site, bool) {
	id := domain.SiteID(chi.URLParam(r, "id"))
	site, err := s.Sites.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "site not found")
		return domain.Site{}, false
	}
	return site, true
}
