package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/uptimetracker/uptimetracker/internal/alert"
	"github.com/uptimetracker/uptimetracker/internal/domain"
	"github.com/uptimetracker/uptimetracker/internal/history"
	"github.com/uptimetracker/uptimetracker/internal/probe"
)

// --- fakes ---

type scriptedChecker struct {
	mu      sync.Mutex
	results map[string][]probe.CheckResult // per URL, consumed in order
	calls   map[string]int
	delay   time.Duration
}

func newScriptedChecker() *scriptedChecker {
	return &scriptedChecker{
		results: make(map[string][]probe.CheckResult),
		calls:   make(map[string]int),
	}
}

func (c *scriptedChecker) script(url string, rs ...probe.CheckResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[url] = append(c.results[url], rs...)
}

func (c *scriptedChecker) callCount(url string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[url]
}

func (c *scriptedChecker) Check(ctx context.Context, target string) probe.CheckResult {
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[target]++
	rs := c.results[target]
	if len(rs) == 0 {
		return probe.CheckResult{Success: true, StatusCode: 200, LatencyMS: 1, Message: "200 OK"}
	}
	r := rs[0]
	c.results[target] = rs[1:]
	return r
}

type countingSink struct {
	mu        sync.Mutex
	decisions []alert.Decision
}

func (s *countingSink) Notify(ctx context.Context, d alert.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, d)
	return nil
}

func (s *countingSink) list() []alert.Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]alert.Decision(nil), s.decisions...)
}

func newTestScheduler(chk probe.Checker, threshold int, enabled ...domain.SiteID) (*Scheduler, *history.Log, *countingSink) {
	log := history.New(100)
	st := alert.NewSettingsStore(threshold)
	st.Set(alert.Settings{Threshold: threshold, EnabledSites: enabled})
	sink := &countingSink{}
	machine := alert.NewMachine(zap.NewNop(), st, sink)

	sch := NewScheduler(zap.NewNop(), chk, log, machine, 200*time.Millisecond)
	sch.MinInterval = 0 // let tests tick at millisecond intervals
	return sch, log, sink
}

func site(id, url string, interval time.Duration) domain.Site {
	return domain.Site{
		ID:       domain.SiteID(id),
		Name:     id,
		URL:      url,
		Interval: interval,
		State:    domain.SiteActive,
	}
}

// --- tests ---

func TestScheduler_ImmediateCheckAndRecurringTicks(t *testing.T) {
	chk := newScriptedChecker()
	sch, log, _ := newTestScheduler(chk, 3)
	defer sch.StopAll()

	s := site("A", "https://a.example", 5*time.Millisecond)
	if err := sch.Start(s); err != nil {
		t.Fatalf("Start: %v", err)
	}

	time.Sleep(40 * time.Millisecond)

	if n := chk.callCount(s.URL); n < 2 {
		t.Fatalf("want immediate check plus ticks, got %d calls", n)
	}
	if got := log.Len(s.ID); got < 2 {
		t.Fatalf("want observations appended, got %d", got)
	}
	latest, ok := log.Latest(s.ID)
	if !ok || !latest.Up || latest.StatusCode != 200 {
		t.Fatalf("unexpected latest observation: ok=%v %+v", ok, latest)
	}
}

func TestScheduler_RejectsIntervalBelowFloor(t *testing.T) {
	chk := newScriptedChecker()
	sch, _, _ := newTestScheduler(chk, 3)
	sch.MinInterval = time.Minute

	err := sch.Start(site("A", "https://a.example", time.Second))
	if err == nil {
		t.Fatalf("want error for sub-minute interval")
	}
	if sch.Running(domain.SiteID("A")) {
		t.Fatalf("rejected site must not be running")
	}
}

func TestScheduler_StopIsIdempotentNoOp(t *testing.T) {
	chk := newScriptedChecker()
	sch, _, _ := newTestScheduler(chk, 3)

	sch.Stop(domain.SiteID("ghost")) // unknown site, no panic

	s := site("A", "https://a.example", 5*time.Millisecond)
	if err := sch.Start(s); err != nil {
		t.Fatalf("Start: %v", err)
	}
	sch.Stop(s.ID)
	sch.Stop(s.ID)
	if sch.Running(s.ID) {
		t.Fatalf("site should not be running after stop")
	}
}

func TestScheduler_StopQuiescesTicks(t *testing.T) {
	chk := newScriptedChecker()
	sch, _, _ := newTestScheduler(chk, 3)

	s := site("A", "https://a.example", 5*time.Millisecond)
	if err := sch.Start(s); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	sch.Stop(s.ID)

	time.Sleep(10 * time.Millisecond) // drain any in-flight tick
	before := chk.callCount(s.URL)
	time.Sleep(30 * time.Millisecond)
	after := chk.callCount(s.URL)
	if after != before {
		t.Fatalf("checks continued after stop: %d -> %d", before, after)
	}
}

func TestScheduler_IsolationBetweenSites(t *testing.T) {
	chk := newScriptedChecker()
	sch, _, _ := newTestScheduler(chk, 3)
	defer sch.StopAll()

	a := site("A", "https://a.example", 5*time.Millisecond)
	b := site("B", "https://b.example", 5*time.Millisecond)
	if err := sch.Start(a); err != nil {
		t.Fatalf("Start A: %v", err)
	}
	if err := sch.Start(b); err != nil {
		t.Fatalf("Start B: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	// stopping A must not stop or stall B
	sch.Stop(a.ID)
	bBefore := chk.callCount(b.URL)
	time.Sleep(30 * time.Millisecond)
	bAfter := chk.callCount(b.URL)

	if bAfter <= bBefore {
		t.Fatalf("site B stalled after stopping A: %d -> %d", bBefore, bAfter)
	}
	if !sch.Running(b.ID) || sch.Running(a.ID) {
		t.Fatalf("running state wrong: A=%v B=%v", sch.Running(a.ID), sch.Running(b.ID))
	}
}

func TestScheduler_SlowSiteDoesNotDelayOthers(t *testing.T) {
	slow := newScriptedChecker()
	slow.delay = 50 * time.Millisecond
	fast := newScriptedChecker()

	// two schedulers would defeat the point; share one with a checker mux
	mux := &muxChecker{m: map[string]probe.Checker{
		"https://slow.example": slow,
		"https://fast.example": fast,
	}}
	sch, _, _ := newTestScheduler(mux, 3)
	defer sch.StopAll()

	if err := sch.Start(site("S", "https://slow.example", 5*time.Millisecond)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := sch.Start(site("F", "https://fast.example", 5*time.Millisecond)); err != nil {
		t.Fatalf("Start: %v", err)
	}

	time.Sleep(60 * time.Millisecond)
	if n := fast.callCount("https://fast.example"); n < 5 {
		t.Fatalf("fast site starved by slow site: only %d checks", n)
	}
}

type muxChecker struct {
	m map[string]probe.Checker
}

func (m *muxChecker) Check(ctx context.Context, target string) probe.CheckResult {
	return m.m[target].Check(ctx, target)
}

func TestScheduler_RestartReplacesTimer(t *testing.T) {
	chk := newScriptedChecker()
	sch, _, _ := newTestScheduler(chk, 3)
	defer sch.StopAll()

	s := site("A", "https://a.example", 5*time.Millisecond)
	if err := sch.Start(s); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// restart with a much longer interval; the old fast timer must die
	s.Interval = time.Hour
	if err := sch.Start(s); err != nil {
		t.Fatalf("restart: %v", err)
	}

	time.Sleep(10 * time.Millisecond) // let the restart's immediate check land
	base := chk.callCount(s.URL)
	time.Sleep(40 * time.Millisecond)
	if got := chk.callCount(s.URL); got != base {
		t.Fatalf("old timer survived restart: %d -> %d", base, got)
	}
	if !sch.Running(s.ID) {
		t.Fatalf("site should still be running after restart")
	}
}

func TestScheduler_DownChecksDriveAlerts(t *testing.T) {
	chk := newScriptedChecker()
	url := "https://x.example"
	// three downs then recovery
	chk.script(url,
		probe.CheckResult{Success: false, Message: "connection refused"},
		probe.CheckResult{Success: false, Message: "connection refused"},
		probe.CheckResult{Success: false, Message: "connection refused"},
		probe.CheckResult{Success: true, StatusCode: 200, LatencyMS: 12, Message: "200 OK"},
	)

	sch, log, sink := newTestScheduler(chk, 3, domain.SiteID("X"))
	defer sch.StopAll()

	s := site("X", url, 5*time.Millisecond)
	if err := sch.Start(s); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		ds := sink.list()
		if len(ds) >= 2 {
			if ds[0].Type != alert.DecisionDown || ds[0].ConsecutiveFailures != 3 {
				t.Fatalf("unexpected down decision: %+v", ds[0])
			}
			if ds[1].Type != alert.DecisionRecovery {
				t.Fatalf("unexpected second decision: %+v", ds[1])
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for alerts, got %+v", ds)
		case <-time.After(5 * time.Millisecond):
		}
	}

	if log.Len(s.ID) < 4 {
		t.Fatalf("want at least 4 observations, got %d", log.Len(s.ID))
	}
	window := log.Query(s.ID, time.Time{})
	if window[0].Up || window[0].Error == "" {
		t.Fatalf("first observation should be down with reason: %+v", window[0])
	}
}

func TestScheduler_StartAllSkipsPausedAndAggregatesErrors(t *testing.T) {
	chk := newScriptedChecker()
	sch, _, _ := newTestScheduler(chk, 3)
	sch.MinInterval = time.Minute
	defer sch.StopAll()

	paused := site("P", "https://p.example", time.Hour)
	paused.State = domain.SitePaused
	bad := site("B", "https://b.example", time.Second) // below floor
	good := site("G", "https://g.example", time.Hour)

	err := sch.StartAll([]domain.Site{paused, bad, good})
	if err == nil {
		t.Fatalf("want aggregated error for bad interval")
	}
	if sch.Running(paused.ID) {
		t.Fatalf("paused site must not start")
	}
	if sch.Running(bad.ID) {
		t.Fatalf("bad site must not start")
	}
	if !sch.Running(good.ID) {
		t.Fatalf("good site must start despite sibling failure")
	}
}

// timeoutChecker consumes its whole context budget before reporting the
// target down, the way a real probe dies on an unresponsive host.
type timeoutChecker struct{}

func (timeoutChecker) Check(ctx context.Context, target string) probe.CheckResult {
	<-ctx.Done()
	return probe.CheckResult{Success: false, Message: "request timed out"}
}

type ctxCapturingSink struct {
	mu   sync.Mutex
	errs []error
}

func (s *ctxCapturingSink) Notify(ctx context.Context, d alert.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, ctx.Err())
	return nil
}

func (s *ctxCapturingSink) captured() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

func TestScheduler_AlertDeliveryGetsLiveContextAfterProbeTimeout(t *testing.T) {
	st := alert.NewSettingsStore(1)
	st.Set(alert.Settings{Threshold: 1, EnabledSites: []domain.SiteID{"A"}})
	sink := &ctxCapturingSink{}
	machine := alert.NewMachine(zap.NewNop(), st, sink)
	log := history.New(100)

	sch := NewScheduler(zap.NewNop(), timeoutChecker{}, log, machine, 20*time.Millisecond)
	sch.MinInterval = 0
	defer sch.StopAll()

	s := site("A", "https://a.example", time.Hour)
	if err := sch.Start(s); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if errs := sink.captured(); len(errs) > 0 {
			if errs[0] != nil {
				t.Fatalf("fire decision delivered with a dead context: %v", errs[0])
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("no alert fired for the timed-out check")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
