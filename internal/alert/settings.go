package alert

import (
	"sync"

	"github.com/uptimetracker/uptimetracker/internal/domain"
)

// Settings is the notification configuration the machine consults on
// every decision. EnabledSites is the set of sites allowed to fire.
type Settings struct {
	Recipient    string          `json:"recipient"`
	Threshold    int             `json:"consecutive_failures"`
	EnabledSites []domain.SiteID `json:"enabled_sites"`
}

func (s Settings) enabled(id domain.SiteID) bool {
	for _, e := range s.EnabledSites {
		if e == id {
			return true
		}
	}
	return false
}

// SettingsStore holds mutable notification settings behind a lock so the
// API can update them while monitors are running.
type SettingsStore struct {
	mu sync.RWMutex
	s  Settings
}

func NewSettingsStore(threshold int) *SettingsStore {
	if threshold < 1 {
		threshold = 3
	}
	return &SettingsStore{s: Settings{Threshold: threshold}}
}

func (st *SettingsStore) Get() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := st.s
	out.EnabledSites = append([]domain.SiteID(nil), st.s.EnabledSites...)
	return out
}

func (st *SettingsStore) Set(s Settings) {
	if s.Threshold < 1 {
		s.Threshold = 1
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s = s
}

// EnableSite adds a site to the enabled set if not already present.
func (st *SettingsStore) EnableSite(id domain.SiteID) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.s.enabled(id) {
		return
	}
	st.s.EnabledSites = append(st.s.EnabledSites, id)
}

// DisableSite removes a site from the enabled set.
func (st *SettingsStore) DisableSite(id domain.SiteID) {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := st.s.EnabledSites[:0]
	for _, e := range st.s.EnabledSites {
		if e != id {
			out = append(out, e)
		}
	}
	st.s.EnabledSites = out
}
