package registry

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/uptimetracker/uptimetracker/internal/domain"
)

var (
	ErrNotFound   = errors.New("site not found")
	ErrInvalidURL = errors.New("invalid site url")
)

// MinInterval is the floor for a site's check interval. Anything lower
// would busy-loop the scheduler, so Add and Update clamp to it.
const MinInterval = time.Minute

// Registry is the in-memory site store. It owns site lifecycle; the
// scheduler reacts to changes through the caller (the API layer).
type Registry struct {
	mu    sync.RWMutex
	sites map[domain.SiteID]*domain.Site
}

func New() *Registry {
	return &Registry{sites: make(map[domain.SiteID]*domain.Site)}
}

// Add validates and stores a new site, minting an ID if absent.
func (r *Registry) Add(ctx context.Context, s *domain.Site) error {
	if !validURL(s.URL) {
		return ErrInvalidURL
	}
	if s.ID == "" {
		s.ID = domain.SiteID(uuid.NewString())
	}
	if s.Interval < MinInterval {
		s.Interval = MinInterval
	}
	if s.State == "" {
		s.State = domain.SiteActive
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sites[s.ID] = &cp
	return nil
}

// Get returns a copy of the site, so callers never share mutable state.
func (r *Registry) Get(ctx context.Context, id domain.SiteID) (domain.Site, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sites[id]
	if !ok {
		return domain.Site{}, ErrNotFound
	}
	return *s, nil
}

// List returns all sites ordered by creation time.
func (r *Registry) List(ctx context.Context) []domain.Site {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Site, 0, len(r.sites))
	for _, s := range r.sites {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Update replaces name/url/description/interval of an existing site and
// returns the updated copy.
func (r *Registry) Update(ctx context.Context, id domain.SiteID, name, rawURL, description string, interval time.Duration) (domain.Site, error) {
	if !validURL(rawURL) {
		return domain.Site{}, ErrInvalidURL
	}
	if interval < MinInterval {
		interval = MinInterval
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sites[id]
	if !ok {
		return domain.Site{}, ErrNotFound
	}
	s.Name = name
	s.URL = rawURL
	s.Description = description
	s.Interval = interval
	return *s, nil
}

// SetState moves a site between active and paused.
func (r *Registry) SetState(ctx context.Context, id domain.SiteID, state domain.SiteState) (domain.Site, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sites[id]
	if !ok {
		return domain.Site{}, ErrNotFound
	}
	s.State = state
	return *s, nil
}

// Remove deletes a site. Removing an unknown site is a no-op.
func (r *Registry) Remove(ctx context.Context, id domain.SiteID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sites, id)
}

// Clear drops every site.
func (r *Registry) Clear(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sites = make(map[domain.SiteID]*domain.Site)
}

func validURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
