package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/uptimetracker/uptimetracker/internal/alert"
)

// Sink adapts fire decisions into human-readable messages, records them,
// and hands them to the configured notifiers. It satisfies alert.Sink.
type Sink struct {
	Logger   *zap.Logger
	Notifier Notifier
	Recorder *Recorder
	Now      func() time.Time
}

func NewSink(logger *zap.Logger, n Notifier, rec *Recorder) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{Logger: logger, Notifier: n, Recorder: rec, Now: time.Now}
}

func (s *Sink) Notify(ctx context.Context, d alert.Decision) error {
	var title, text string
	switch d.Type {
	case alert.DecisionDown:
		title = fmt.Sprintf("Site Down Alert: %s", d.Site.Name)
		text = fmt.Sprintf(
			"Site %s (%s) is experiencing problems and is currently down. Problem detected after %d consecutive failures.",
			d.Site.Name, d.Site.URL, d.ConsecutiveFailures,
		)
	default:
		title = fmt.Sprintf("Site Recovered: %s", d.Site.Name)
		text = fmt.Sprintf("Site %s (%s) has recovered and is now available again.", d.Site.Name, d.Site.URL)
	}

	var err error
	if s.Notifier != nil {
		err = s.Notifier.Send(ctx, title, text)
	}

	if s.Recorder != nil {
		s.Recorder.Add(Record{
			Type:                d.Type,
			SiteID:              d.Site.ID,
			SiteName:            d.Site.Name,
			SiteURL:             d.Site.URL,
			Message:             text,
			ConsecutiveFailures: d.ConsecutiveFailures,
			Delivered:           err == nil,
			At:                  s.Now(),
		})
	}

	if err != nil {
		s.Logger.Warn("notification_delivery_failed",
			zap.String("site_id", string(d.Site.ID)),
			zap.String("decision", string(d.Type)),
			zap.Error(err),
		)
	}
	return err
}

// LogNotifier writes alerts to the structured log; always attached so a
// fire decision is visible even with no external notifier configured.
type LogNotifier struct {
	Logger *zap.Logger
}

func (l *LogNotifier) Send(ctx context.Context, title, text string) error {
	l.Logger.Info("notification",
		zap.String("title", title),
		zap.String("text", text),
	)
	return nil
}
