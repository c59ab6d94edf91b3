package notify

import (
	"sync"
	"time"

	"github.com/uptimetracker/uptimetracker/internal/alert"
	"github.com/uptimetracker/uptimetracker/internal/domain"
)

const recordCap = 200

// Record is one logged fire decision, newest first in the listing.
type Record struct {
	Type                alert.DecisionType `json:"type"`
	SiteID              domain.SiteID      `json:"site_id"`
	SiteName            string             `json:"site_name"`
	SiteURL             string             `json:"site_url"`
	Message             string             `json:"message"`
	ConsecutiveFailures int                `json:"consecutive_failures,omitempty"`
	Delivered           bool               `json:"delivered"`
	At                  time.Time          `json:"at"`
}

// Recorder keeps a bounded in-memory log of fired alerts for the API.
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Add(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	if len(r.records) > recordCap {
		r.records = r.records[len(r.records)-recordCap:]
	}
}

// List returns records newest first.
func (r *Recorder) List() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	for i, rec := range r.records {
		out[len(r.records)-1-i] = rec
	}
	return out
}

func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}
