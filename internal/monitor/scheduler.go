package monitor

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/uptimetracker/uptimetracker/internal/alert"
	"github.com/uptimetracker/uptimetracker/internal/domain"
	"github.com/uptimetracker/uptimetracker/internal/history"
	"github.com/uptimetracker/uptimetracker/internal/probe"
)

// Scheduler owns one recurring timer per monitored site. Each site ticks
// independently: a slow or hung check for one site never delays another.
type Scheduler struct {
	Logger  *zap.Logger
	Checker probe.Checker
	History *history.Log
	Alerts  *alert.Machine
	Timeout time.Duration

	// MinInterval is the floor applied when starting a monitor. Tests
	// lower it to run real tickers at millisecond intervals.
	MinInterval time.Duration

	mu       sync.Mutex
	monitors map[domain.SiteID]*siteMonitor
}

type siteMonitor struct {
	site domain.Site
	stop chan struct{}
}

func NewScheduler(logger *zap.Logger, checker probe.Checker, log *history.Log, alerts *alert.Machine, timeout time.Duration) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Scheduler{
		Logger:      logger,
		Checker:     checker,
		History:     log,
		Alerts:      alerts,
		Timeout:     timeout,
		MinInterval: time.Minute,
		monitors:    make(map[domain.SiteID]*siteMonitor),
	}
}

// Start arms a recurring monitor for the site: one immediate check, then
// one check per interval. If a monitor already exists for the site it is
// cancelled first, so Start doubles as restart after a config change.
// The interval is captured here; a later change needs Stop + Start.
func (s *Scheduler) Start(site domain.Site) error {
	if site.Interval < s.MinInterval {
		return fmt.Errorf("interval %v below minimum %v for site %s", site.Interval, s.MinInterval, site.ID)
	}

	s.mu.Lock()
	if prev, ok := s.monitors[site.ID]; ok {
		close(prev.stop)
	}
	m := &siteMonitor{
		site: site,
		stop: make(chan struct{}),
	}
	s.monitors[site.ID] = m
	s.mu.Unlock()

	go s.run(m)

	s.Logger.Info("monitor_started",
		zap.String("site_id", string(site.ID)),
		zap.String("url", site.URL),
		zap.Duration("interval", site.Interval),
	)
	return nil
}

// Stop cancels the site's timer. An in-flight check is left to complete;
// its result still lands in the history and the alert machine. No-op for
// unknown sites.
func (s *Scheduler) Stop(siteID domain.SiteID) {
	s.mu.Lock()
	m, ok := s.monitors[siteID]
	if ok {
		close(m.stop)
		delete(s.monitors, siteID)
	}
	s.mu.Unlock()
	if ok {
		s.Logger.Info("monitor_stopped", zap.String("site_id", string(siteID)))
	}
}

// StartAll starts monitors for every active site, collecting start
// failures without aborting the rest.
func (s *Scheduler) StartAll(sites []domain.Site) error {
	var errs error
	for _, site := range sites {
		if site.State != domain.SiteActive {
			continue
		}
		errs = multierr.Append(errs, s.Start(site))
	}
	return errs
}

// StopAll cancels every monitor.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	ids := make([]domain.SiteID, 0, len(s.monitors))
	for id, m := range s.monitors {
		close(m.stop)
		ids = append(ids, id)
	}
	s.monitors = make(map[domain.SiteID]*siteMonitor)
	s.mu.Unlock()
	for _, id := range ids {
		s.Logger.Info("monitor_stopped", zap.String("site_id", string(id)))
	}
}

// Running reports whether a monitor exists for the site.
func (s *Scheduler) Running(siteID domain.SiteID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.monitors[siteID]
	return ok
}

func (s *Scheduler) run(m *siteMonitor) {
	// immediate first check, then the recurring timer
	s.checkOnce(m.site)

	t := time.NewTicker(m.site.Interval)
	defer t.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-t.C:
			// A stop that raced the tick still wins: the check is only
			// skipped, never half-run.
			select {
			case <-m.stop:
				return
			default:
			}
			s.checkOnce(m.site)
		}
	}
}

// checkOnce runs one probe and feeds the result to the history log and
// the alert machine. The probe never returns an error; every failure
// mode arrives as a down observation.
func (s *Scheduler) checkOnce(site domain.Site) {
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	start := time.Now().UTC()
	out := s.Checker.Check(ctx, site.URL)
	cancel()

	obs := domain.Observation{Timestamp: start, Up: out.Success}
	if out.Success {
		obs.ResponseTimeMS = int(math.Round(out.LatencyMS))
		obs.StatusCode = out.StatusCode
	} else {
		obs.Error = out.Message
	}

	s.History.Append(site.ID, obs)

	// The probe context is usually dead by now when the site is down (a
	// timeout is the common failure), so alert delivery gets its own
	// deadline instead of inheriting the expired one.
	alertCtx, alertCancel := context.WithTimeout(context.Background(), s.Timeout)
	defer alertCancel()
	s.Alerts.OnObservation(alertCtx, site, obs)

	s.Logger.Debug("check_completed",
		zap.String("site_id", string(site.ID)),
		zap.String("url", site.URL),
		zap.Bool("up", out.Success),
		zap.Int("status", out.StatusCode),
		zap.Float64("latency_ms", out.LatencyMS),
		zap.String("reason", out.Message),
	)
}
