package history

import (
	"sync"
	"time"

	"github.com/uptimetracker/uptimetracker/internal/domain"
)

const DefaultCap = 1000

// Log is the append-only, per-site bounded observation history. Entries
// are stored oldest-first; once a site exceeds the cap, the oldest entry
// is evicted. Safe for concurrent use across sites and between a site's
// appender and readers.
type Log struct {
	mu  sync.RWMutex
	cap int
	m   map[domain.SiteID][]domain.Observation
}

func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &Log{
		cap: capacity,
		m:   make(map[domain.SiteID][]domain.Observation),
	}
}

// Append records one observation for a site, evicting the oldest entry
// when the cap is exceeded.
func (l *Log) Append(siteID domain.SiteID, obs domain.Observation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := append(l.m[siteID], obs)
	if len(entries) > l.cap {
		entries = entries[len(entries)-l.cap:]
	}
	l.m[siteID] = entries
}

// Query returns all observations with Timestamp >= since, oldest first.
// Unknown sites yield an empty slice, never an error.
func (l *Log) Query(siteID domain.SiteID, since time.Time) []domain.Observation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entries := l.m[siteID]
	// Entries arrive in completion order, which is chronological for all
	// practical purposes; find the cutoff with a linear scan from the old
	// end so a short lookback over a full log stays cheap enough.
	out := make([]domain.Observation, 0, len(entries))
	for _, o := range entries {
		if !o.Timestamp.Before(since) {
			out = append(out, o)
		}
	}
	return out
}

// Latest returns the most recent observation for a site, if any.
func (l *Log) Latest(siteID domain.SiteID) (domain.Observation, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entries := l.m[siteID]
	if len(entries) == 0 {
		return domain.Observation{}, false
	}
	return entries[len(entries)-1], true
}

func (l *Log) Len(siteID domain.SiteID) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.m[siteID])
}

// Clear drops all history for a site. No-op for unknown sites.
func (l *Log) Clear(siteID domain.SiteID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.m, siteID)
}

// ClearAll drops every site's history.
func (l *Log) ClearAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.m = make(map[domain.SiteID][]domain.Observation)
}
