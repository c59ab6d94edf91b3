package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr            string        // API bind address, e.g., "127.0.0.1:8080" or ":8080"
	LogDir          string        // logs directory
	CheckTimeout    time.Duration // per-check HTTP timeout
	RetryAttempts   int           // probe attempts per tick (1 = no retry)
	RetryBackoff    time.Duration // backoff between probe attempts
	HistoryCap      int           // observations kept per site
	AlertThreshold  int           // consecutive failures before a down alert
	AlertRecipient  string        // handed to the notification sink, not used by core
	AlertWebhookURL string        // webhook notifier; empty disables it
	PublicAPIKeys   []string
	AdminAPIKeys    []string
	PublicRPM       int // requests per minute per client IP; 0 disables limiting
	PublicBurst     int
}

func FromEnv() Config {
	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = "127.0.0.1:8080"
	}

	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}

	checkTimeout := 10 * time.Second
	if v := os.Getenv("CHECK_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			checkTimeout = time.Duration(ms) * time.Millisecond
		}
	}

	retryAttempts := 1
	if v := os.Getenv("RETRY_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			retryAttempts = n
		}
	}

	retryBackoff := 300 * time.Millisecond
	if v := os.Getenv("RETRY_BACKOFF_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			retryBackoff = time.Duration(ms) * time.Millisecond
		}
	}

	historyCap := 1000
	if v := os.Getenv("HISTORY_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			historyCap = n
		}
	}

	alertThreshold := 3
	if v := os.Getenv("ALERT_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			alertThreshold = n
		}
	}

	publicRPM := 120
	if v := os.Getenv("PUBLIC_RPM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			publicRPM = n
		}
	}

	publicBurst := 60
	if v := os.Getenv("PUBLIC_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			publicBurst = n
		}
	}

	return Config{
		Addr:            addr,
		LogDir:          logDir,
		CheckTimeout:    checkTimeout,
		RetryAttempts:   retryAttempts,
		RetryBackoff:    retryBackoff,
		HistoryCap:      historyCap,
		AlertThreshold:  alertThreshold,
		AlertRecipient:  os.Getenv("ALERT_RECIPIENT"),
		AlertWebhookURL: os.Getenv("ALERT_WEBHOOK_URL"),
		PublicAPIKeys:   splitKeys(os.Getenv("PUBLIC_API_KEYS")),
		AdminAPIKeys:    splitKeys(os.Getenv("ADMIN_API_KEYS")),
		PublicRPM:       publicRPM,
		PublicBurst:     publicBurst,
	}
}

func splitKeys(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
