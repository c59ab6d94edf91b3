package alert

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/uptimetracker/uptimetracker/internal/domain"
)

type DecisionType string

const (
	DecisionDown     DecisionType = "down"
	DecisionRecovery DecisionType = "recovery"
)

// Decision is the machine's output: a down- or recovery-alert that
// should be delivered for a site.
type Decision struct {
	Type                DecisionType `json:"type"`
	Site                domain.Site  `json:"site"`
	ConsecutiveFailures int          `json:"consecutive_failures,omitempty"`
}

// Sink receives fire decisions and performs delivery. Delivery failures
// are the sink's problem; the machine commits its state either way.
type Sink interface {
	Notify(ctx context.Context, d Decision) error
}

type notifiedState string

const (
	notifiedNone notifiedState = "none"
	notifiedDown notifiedState = "down"
	notifiedUp   notifiedState = "up"
)

// Machine tracks per-site consecutive failures and the last notified
// state, and fires each transition at most once per unbroken run.
// Threshold and enabled-site membership come from the settings store at
// decision time, not at construction.
type Machine struct {
	logger   *zap.Logger
	settings *SettingsStore
	sink     Sink

	mu           sync.Mutex
	failures     map[domain.SiteID]int
	lastNotified map[domain.SiteID]notifiedState
}

func NewMachine(logger *zap.Logger, settings *SettingsStore, sink Sink) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{
		logger:       logger,
		settings:     settings,
		sink:         sink,
		failures:     make(map[domain.SiteID]int),
		lastNotified: make(map[domain.SiteID]notifiedState),
	}
}

// OnObservation feeds one completed check into the machine. Call it once
// per observation, in completion order per site. The transition is
// decided and committed under the lock; the sink runs after the lock is
// released, so one site's slow delivery never stalls another site's
// observations.
func (m *Machine) OnObservation(ctx context.Context, site domain.Site, obs domain.Observation) {
	cfg := m.settings.Get()

	m.mu.Lock()
	var d *Decision
	if !obs.Up {
		// The counter never climbs past the threshold: once the trigger
		// point is reached, further failures are idempotent.
		if m.failures[site.ID] < cfg.Threshold {
			m.failures[site.ID]++
		}
		if m.failures[site.ID] >= cfg.Threshold && m.lastNotified[site.ID] != notifiedDown && cfg.enabled(site.ID) {
			d = &Decision{
				Type:                DecisionDown,
				Site:                site,
				ConsecutiveFailures: m.failures[site.ID],
			}
			m.lastNotified[site.ID] = notifiedDown
		}
	} else {
		if m.failures[site.ID] >= cfg.Threshold && m.lastNotified[site.ID] == notifiedDown && cfg.enabled(site.ID) {
			d = &Decision{Type: DecisionRecovery, Site: site}
			m.lastNotified[site.ID] = notifiedUp
		}
		// Recovery always clears the counter, whether or not anything fired.
		m.failures[site.ID] = 0
	}
	m.mu.Unlock()

	if d != nil {
		m.fire(ctx, *d)
	}
}

// fire hands the decision to the sink. The lastNotified transition is
// committed by the caller regardless of the sink's error: intent is
// at-most-once, and retrying here would risk duplicate alerts.
func (m *Machine) fire(ctx context.Context, d Decision) {
	if err := m.sink.Notify(ctx, d); err != nil {
		m.logger.Warn("alert_sink_error",
			zap.String("site_id", string(d.Site.ID)),
			zap.String("decision", string(d.Type)),
			zap.Error(err),
		)
	} else {
		m.logger.Info("alert_fired",
			zap.String("site_id", string(d.Site.ID)),
			zap.String("decision", string(d.Type)),
			zap.Int("consecutive_failures", d.ConsecutiveFailures),
		)
	}
}

// Failures reports the current consecutive-failure count for a site.
func (m *Machine) Failures(siteID domain.SiteID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[siteID]
}

// Reset drops all alert state for a site (used on delete/reset).
func (m *Machine) Reset(siteID domain.SiteID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failures, siteID)
	delete(m.lastNotified, siteID)
}

// ResetAll drops alert state for every site.
func (m *Machine) ResetAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = make(map[domain.SiteID]int)
	m.lastNotified = make(map[domain.SiteID]notifiedState)
}
