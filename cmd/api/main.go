package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/uptimetracker/uptimetracker/internal/alert"
	"github.com/uptimetracker/uptimetracker/internal/config"
	"github.com/uptimetracker/uptimetracker/internal/history"
	"github.com/uptimetracker/uptimetracker/internal/httpapi"
	"github.com/uptimetracker/uptimetracker/internal/httpapi/middleware"
	"github.com/uptimetracker/uptimetracker/internal/logging"
	"github.com/uptimetracker/uptimetracker/internal/monitor"
	"github.com/uptimetracker/uptimetracker/internal/notify"
	"github.com/uptimetracker/uptimetracker/internal/probe"
	"github.com/uptimetracker/uptimetracker/internal/registry"
	"github.com/uptimetracker/uptimetracker/internal/stats"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	sites := registry.New()
	obsLog := history.New(cfg.HistoryCap)
	engine := stats.NewEngine(obsLog)

	settings := alert.NewSettingsStore(cfg.AlertThreshold)
	if cfg.AlertRecipient != "" {
		s := settings.Get()
		s.Recipient = cfg.AlertRecipient
		settings.Set(s)
	}

	recorder := notify.NewRecorder()
	notifiers := notify.Multi{&notify.LogNotifier{Logger: logger}}
	if wh := notify.NewWebhook(cfg.AlertWebhookURL); wh != nil {
		notifiers = append(notifiers, wh)
	}
	sink := notify.NewSink(logger, notifiers, recorder)
	machine := alert.NewMachine(logger, settings, sink)

	var checker probe.Checker = probe.NewHTTPChecker(cfg.CheckTimeout)
	if cfg.RetryAttempts > 1 {
		checker = &probe.RetryChecker{
			Inner:    checker,
			Attempts: cfg.RetryAttempts,
			Backoff:  cfg.RetryBackoff,
		}
	}
	sch := monitor.NewScheduler(logger, checker, obsLog, machine, cfg.CheckTimeout)
	defer sch.StopAll()

	api := httpapi.NewServer(logger, sites, obsLog, engine, machine, settings, recorder, sch)
	api.Keys = middleware.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}
	api.PublicRPM = cfg.PublicRPM
	api.PublicBurst = cfg.PublicBurst

	srv := &http.Server{Addr: cfg.Addr, Handler: api.Router()}

	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_serve_error", zap.Error(err))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting_down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
