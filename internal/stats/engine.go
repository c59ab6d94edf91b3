package stats

import (
	"math"
	"time"

	"github.com/uptimetracker/uptimetracker/internal/domain"
	"github.com/uptimetracker/uptimetracker/internal/history"
)

// Engine computes rolling-window statistics from the observation log.
// Now is injectable so tests can pin the window edge.
type Engine struct {
	History *history.Log
	Now     func() time.Time
}

func NewEngine(log *history.Log) *Engine {
	return &Engine{History: log, Now: time.Now}
}

// Compute derives a snapshot for one site over the period's lookback
// window. A site with no observations in the window gets a fully zeroed
// snapshot rather than an error, so callers never see missing values.
func (e *Engine) Compute(siteID domain.SiteID, period domain.Period) domain.Snapshot {
	now := e.Now()
	cutoff := now.Add(-time.Duration(period.LookbackHours()) * time.Hour)
	window := e.History.Query(siteID, cutoff)

	snap := domain.Snapshot{Period: period}
	if len(window) == 0 {
		return snap
	}

	upCount := 0
	latencySum := 0
	for _, o := range window {
		if o.Up {
			upCount++
			latencySum += o.ResponseTimeMS
		}
	}

	snap.UptimePercentage = round1(float64(upCount) / float64(len(window)) * 100)
	if upCount > 0 {
		snap.AvgResponseTimeMS = int(math.Round(float64(latencySum) / float64(upCount)))
	}

	// An outage is a maximal contiguous run of down observations in the
	// chronological sequence; a run still open at the window's end counts
	// fully. Duration is the run's sample count relabeled as hours (see
	// domain.Snapshot).
	inOutage := false
	for _, o := range window {
		if !o.Up {
			if !inOutage {
				snap.OutageCount++
				inOutage = true
			}
			snap.TotalOutageDurationHours++
		} else {
			inOutage = false
		}
	}

	return snap
}

// ComputeAll returns the 24h, 7d and 30d snapshots for a site.
func (e *Engine) ComputeAll(siteID domain.SiteID) []domain.Snapshot {
	return []domain.Snapshot{
		e.Compute(siteID, domain.Period24h),
		e.Compute(siteID, domain.Period7d),
		e.Compute(siteID, domain.Period30d),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
