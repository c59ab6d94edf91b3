// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	admin := strings.TrimSpace(os.Getenv("ADMIN_API_KEYS"))
	pub := strings.TrimSpace(os.Getenv("PUBLIC_API_KEYS"))
	addr := strings.TrimSpace(os.Getenv("ADDR"))
	webhook := strings.TrimSpace(os.Getenv("ALERT_WEBHOOK_URL"))
	threshold := strings.TrimSpace(os.Getenv("ALERT_THRESHOLD"))

	if admin == "" {
		warn("ADMIN_API_KEYS empty; mutating routes are open (fine for local dev only).")
	}
	if pub == "" {
		warn("PUBLIC_API_KEYS empty; read routes are open (fine for local dev only).")
	}

	// Normalize and sanity-check lists (no spaces around commas).
	for name, v := range map[string]string{"ADMIN_API_KEYS": admin, "PUBLIC_API_KEYS": pub} {
		if strings.Contains(v, " ") {
			warn(name + " contains spaces; use comma-separated with no spaces, e.g. key1,key2")
		}
	}

	if addr == "" {
		warn("ADDR is empty; the API falls back to 127.0.0.1:8080.")
	} else {
		ok("ADDR=" + addr)
	}

	if webhook == "" {
		warn("ALERT_WEBHOOK_URL empty; alerts only reach the structured log.")
	} else {
		ok("ALERT_WEBHOOK_URL present")
	}

	if threshold != "" {
		if n, err := strconv.Atoi(threshold); err != nil || n < 1 {
			fail("ALERT_THRESHOLD must be a positive integer, got " + threshold)
		}
		ok("ALERT_THRESHOLD=" + threshold)
	}

	ok("preflight passed")
}
