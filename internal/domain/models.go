package domain

import "time"

type SiteID string

// SiteState is the lifecycle state of a monitored site.
type SiteState string

const (
	SiteActive SiteState = "active"
	SitePaused SiteState = "paused"
)

type Site struct {
	ID          SiteID        `json:"id"`
	Name        string        `json:"name"`
	URL         string        `json:"url"`
	Description string        `json:"description,omitempty"`
	Interval    time.Duration `json:"interval"`
	State       SiteState     `json:"state"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Observation is one completed check result. Immutable once created.
// ResponseTimeMS and StatusCode are only meaningful when Up is true;
// Error is only set when Up is false.
type Observation struct {
	Timestamp      time.Time `json:"timestamp"`
	Up             bool      `json:"up"`
	ResponseTimeMS int       `json:"response_time_ms,omitempty"`
	StatusCode     int       `json:"status_code,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// Period is a statistics lookback window.
type Period string

const (
	Period24h Period = "24h"
	Period7d  Period = "7d"
	Period30d Period = "30d"
)

// LookbackHours maps a period to its window size. Unknown periods fall
// back to 24 hours.
func (p Period) LookbackHours() int {
	switch p {
	case Period7d:
		return 24 * 7
	case Period30d:
		return 24 * 30
	default:
		return 24
	}
}

func (p Period) Valid() bool {
	return p == Period24h || p == Period7d || p == Period30d
}

// Snapshot is a derived statistics view over one site's observations.
// TotalOutageDurationHours counts down-observations inside outage runs,
// relabeled as hours: historical seeding emits one observation per hour,
// and the metric keeps that sample-unit convention rather than measuring
// wall-clock time between samples.
type Snapshot struct {
	Period                   Period  `json:"period"`
	UptimePercentage         float64 `json:"uptime_percentage"`
	AvgResponseTimeMS        int     `json:"avg_response_time_ms"`
	OutageCount              int     `json:"outage_count"`
	TotalOutageDurationHours int     `json:"total_outage_duration_hours"`
}
