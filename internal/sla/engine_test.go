package sla

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nxdesk/sla-service/internal/clock"
	"github.com/nxdesk/sla-service/internal/domain"
)

func TestInitializeComputesRemaining(t *testing.T) {
	clk := clock.NewMock(time.Time{})
	api := newFakeTicketAPI()
	api.put("T-1", domain.TicketStatusOpen, ago(clk, 30*time.Minute), false)

	engine := newTestEngine(clk, api, nil, "T-1")
	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	remaining, known := engine.Remaining()
	if !known || remaining != 90*60 {
		t.Fatalf("remaining = %d known=%v, want 5400", remaining, known)
	}
	if !engine.Running() || clk.Pending() != 1 {
		t.Fatalf("expected one running ticker, pending=%d", clk.Pending())
	}
	if engine.Breached() {
		t.Fatal("fresh ticket must not be breached")
	}
	if api.tokens[0] != "tok" {
		t.Fatalf("credential not forwarded: %v", api.tokens)
	}
}

func TestOverdueTicketReportsOnce(t *testing.T) {
	clk := clock.NewMock(time.Time{})
	api := newFakeTicketAPI()
	api.put("T-1", domain.TicketStatusOpen, ago(clk, 3*time.Hour), false)

	engine := newTestEngine(clk, api, nil, "T-1")
	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	clk.Advance(30 * time.Second)

	if !engine.Breached() {
		t.Fatal("expected breach latch")
	}
	if got := api.reportCount(); got != 1 {
		t.Fatalf("reports = %d, want 1", got)
	}
	remaining, _ := engine.Remaining()
	if remaining != -3600-30 {
		t.Fatalf("remaining = %d, want -3630", remaining)
	}
}

func TestServerBreachedSuppressesReport(t *testing.T) {
	clk := clock.NewMock(time.Time{})
	api := newFakeTicketAPI()
	api.put("T-1", domain.TicketStatusOpen, ago(clk, 3*time.Hour), true)

	engine := newTestEngine(clk, api, nil, "T-1")
	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	clk.Advance(time.Minute)

	if !engine.Breached() {
		t.Fatal("server flag should latch breach")
	}
	if got := api.reportCount(); got != 0 {
		t.Fatalf("reports = %d, want 0", got)
	}
}

func TestCountdownCrossesDeadline(t *testing.T) {
	clk := clock.NewMock(time.Time{})
	api := newFakeTicketAPI()
	api.put("T-1", domain.TicketStatusOpen, ago(clk, time.Hour+59*time.Minute+50*time.Second), false)

	engine := newTestEngine(clk, api, nil, "T-1")
	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	state := engine.Display()
	if state.RemainingSeconds != 10 || state.Tier != TierCritical || state.FormattedTime != "00:00:10" {
		t.Fatalf("unexpected initial display %+v", state)
	}
	if state.StatusMessage != MessageCritical {
		t.Fatalf("status message = %q", state.StatusMessage)
	}

	clk.Advance(9 * time.Second)
	if engine.Breached() || api.reportCount() != 0 {
		t.Fatal("breach before deadline")
	}

	clk.Advance(time.Second)
	remaining, _ := engine.Remaining()
	if remaining != 0 || !engine.Breached() {
		t.Fatalf("remaining=%d breached=%v after deadline", remaining, engine.Breached())
	}
	if got := api.reportCount(); got != 1 {
		t.Fatalf("reports = %d, want 1", got)
	}

	clk.Advance(5 * time.Second)
	state = engine.Display()
	if state.FormattedTime != "-00:00:05" || state.Tier != TierBreached || state.StatusMessage != MessageBreached {
		t.Fatalf("unexpected overdue display %+v", state)
	}
	if got := api.reportCount(); got != 1 {
		t.Fatalf("reports = %d after further ticks, want 1", got)
	}
}

func TestPauseFreezesAndResumeContinues(t *testing.T) {
	clk := clock.NewMock(time.Time{})
	api := newFakeTicketAPI()
	api.put("T-1", domain.TicketStatusOpen, ago(clk, time.Hour), false)

	engine := newTestEngine(clk, api, nil, "T-1")
	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	clk.Advance(10 * time.Second)

	engine.OnStatusChange("Waiting for users")
	if engine.Running() || clk.Pending() != 0 {
		t.Fatal("paused engine must not tick")
	}
	clk.Advance(10 * time.Minute)
	remaining, _ := engine.Remaining()
	if remaining != 3590 {
		t.Fatalf("remaining while paused = %d, want 3590", remaining)
	}
	state := engine.Display()
	if state.Phase != domain.PhasePaused || state.StatusMessage != MessagePaused {
		t.Fatalf("unexpected paused display %+v", state)
	}

	engine.OnStatusChange(domain.TicketStatusOpen)
	clk.Advance(time.Second)
	remaining, _ = engine.Remaining()
	if remaining != 3589 {
		t.Fatalf("remaining after resume = %d, want 3589", remaining)
	}
}

func TestPausedTicketDoesNotBreach(t *testing.T) {
	clk := clock.NewMock(time.Time{})
	api := newFakeTicketAPI()
	api.put("T-1", domain.TicketStatusWaitingForUser, ago(clk, 3*time.Hour), false)

	engine := newTestEngine(clk, api, nil, "T-1")
	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if engine.Breached() || engine.Running() {
		t.Fatal("paused overdue ticket must neither breach nor tick")
	}

	engine.OnStatusChange(domain.TicketStatusInProgress)
	if !engine.Breached() || api.reportCount() != 1 {
		t.Fatalf("resuming overdue ticket should latch once, reports=%d", api.reportCount())
	}
}

func TestTerminalRendersCompleted(t *testing.T) {
	for _, status := range []domain.TicketStatus{domain.TicketStatusResolved, domain.TicketStatusClosed, "canceled"} {
		clk := clock.NewMock(time.Time{})
		api := newFakeTicketAPI()
		api.put("T-1", status, ago(clk, 5*time.Hour), false)

		engine := newTestEngine(clk, api, nil, "T-1")
		if err := engine.Initialize(context.Background()); err != nil {
			t.Fatalf("Initialize: %v", err)
		}
		state := engine.Display()
		if state.FormattedTime != CompletedLabel || state.Tier != TierCompleted || state.Icon != IconCheck {
			t.Fatalf("%s: unexpected display %+v", status, state)
		}
		if engine.Running() || api.reportCount() != 0 {
			t.Fatalf("%s: terminal ticket must not tick or report", status)
		}
	}
}

func TestMissingStartTimeDegrades(t *testing.T) {
	clk := clock.NewMock(time.Time{})
	api := newFakeTicketAPI()
	api.put("T-1", domain.TicketStatusOpen, nil, false)

	engine := newTestEngine(clk, api, nil, "T-1")
	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	clk.Advance(time.Hour)

	state := engine.Display()
	if state.FormattedTime != UnknownTime || state.RemainingKnown || state.RemainingSeconds != 0 {
		t.Fatalf("unexpected display %+v", state)
	}
	if clk.Pending() != 0 || engine.Breached() {
		t.Fatal("missing start time must not tick or breach")
	}
}

func TestFetchFailureLeavesNoTimer(t *testing.T) {
	clk := clock.NewMock(time.Time{})
	api := newFakeTicketAPI()
	api.put("T-1", domain.TicketStatusOpen, ago(clk, time.Hour), false)
	api.statusErr = errBackendDown

	engine := newTestEngine(clk, api, nil, "T-1")
	err := engine.Initialize(context.Background())
	if !errors.Is(err, errBackendDown) {
		t.Fatalf("Initialize err = %v", err)
	}
	if api.recordCalls != 0 {
		t.Fatal("record must not be fetched after status failure")
	}
	if clk.Pending() != 0 || engine.LoadError() == nil {
		t.Fatal("failed engine must hold the error and no timer")
	}
	state := engine.Display()
	if state.Tier != TierError || state.Error != MessageLoadFail || state.FormattedTime != "" {
		t.Fatalf("unexpected error display %+v", state)
	}
}

func TestRecordFailureLeavesNoTimer(t *testing.T) {
	clk := clock.NewMock(time.Time{})
	api := newFakeTicketAPI()
	api.put("T-1", domain.TicketStatusOpen, ago(clk, time.Hour), false)
	api.recordErr = errBackendDown

	engine := newTestEngine(clk, api, nil, "T-1")
	if err := engine.Initialize(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if clk.Pending() != 0 || engine.Display().Tier != TierError {
		t.Fatal("record failure must land in error state")
	}
}

func TestMissingCredentialFailsLoad(t *testing.T) {
	clk := clock.NewMock(time.Time{})
	api := newFakeTicketAPI()
	api.put("T-1", domain.TicketStatusOpen, ago(clk, time.Hour), false)

	engine, err := NewEngine(Options{TicketID: "T-1", API: api, Clock: clk, Dispatch: syncDispatch})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := engine.Initialize(context.Background()); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("Initialize err = %v", err)
	}
	if api.statusCalls != 0 {
		t.Fatal("backend must not be called without a credential")
	}
}

func TestNewEngineValidates(t *testing.T) {
	if _, err := NewEngine(Options{TicketID: "  ", API: newFakeTicketAPI()}); !errors.Is(err, ErrEmptyTicketID) {
		t.Fatalf("empty id err = %v", err)
	}
	if _, err := NewEngine(Options{TicketID: "T-1"}); !errors.Is(err, ErrMissingTicketAPI) {
		t.Fatalf("missing api err = %v", err)
	}
}

func TestNewEngineFillsPartialPolicy(t *testing.T) {
	clk := clock.NewMock(time.Time{})
	api := newFakeTicketAPI()
	api.put("T-1", domain.TicketStatusOpen, ago(clk, time.Hour), false)

	engine, err := NewEngine(Options{
		TicketID:    "T-1",
		API:         api,
		Credentials: staticToken("tok"),
		Clock:       clk,
		Policy:      Policy{Duration: 90 * time.Minute},
		Dispatch:    syncDispatch,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	clk.Advance(3 * time.Second)
	if remaining, _ := engine.Remaining(); remaining != 30*60-3 {
		t.Fatalf("remaining = %d, want %d", remaining, 30*60-3)
	}
	if state := engine.Display(); state.Tier != TierWarning {
		t.Fatalf("default thresholds not applied, tier = %s", state.Tier)
	}

	_, err = NewEngine(Options{
		TicketID: "T-1",
		API:      api,
		Policy:   Policy{Duration: -time.Hour},
	})
	if err == nil {
		t.Fatal("negative duration must be rejected")
	}
}

func TestInitializeTwiceRejected(t *testing.T) {
	clk := clock.NewMock(time.Time{})
	api := newFakeTicketAPI()
	api.put("T-1", domain.TicketStatusOpen, ago(clk, time.Hour), false)

	engine := newTestEngine(clk, api, nil, "T-1")
	_ = engine.Initialize(context.Background())
	if err := engine.Initialize(context.Background()); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("second Initialize err = %v", err)
	}
	if clk.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", clk.Pending())
	}
}

func TestStatusDuringLoadWins(t *testing.T) {
	clk := clock.NewMock(time.Time{})
	api := newFakeTicketAPI()
	api.put("T-1", domain.TicketStatusOpen, ago(clk, time.Hour), false)

	engine := newTestEngine(clk, api, nil, "T-1")
	api.onStatus = func() { engine.OnStatusChange(domain.TicketStatusWaitingForUser) }
	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if engine.Running() {
		t.Fatal("status pushed during load should pause the countdown")
	}
	if got := engine.Display().Status; got != domain.TicketStatusWaitingForUser {
		t.Fatalf("status = %q", got)
	}
}

func TestTeardownStopsTicks(t *testing.T) {
	clk := clock.NewMock(time.Time{})
	api := newFakeTicketAPI()
	api.put("T-1", domain.TicketStatusOpen, ago(clk, time.Hour+59*time.Minute+55*time.Second), false)

	engine := newTestEngine(clk, api, nil, "T-1")
	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	engine.Teardown()
	clk.Advance(time.Minute)

	remaining, _ := engine.Remaining()
	if remaining != 5 || api.reportCount() != 0 || clk.Pending() != 0 {
		t.Fatalf("torn down engine mutated: remaining=%d reports=%d", remaining, api.reportCount())
	}
}

func TestStaleTickIgnored(t *testing.T) {
	clk := clock.NewMock(time.Time{})
	api := newFakeTicketAPI()
	api.put("T-1", domain.TicketStatusOpen, ago(clk, time.Hour), false)

	engine := newTestEngine(clk, api, nil, "T-1")
	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	stale := engine.generation
	engine.OnStatusChange(domain.TicketStatusWaitingForUser)
	engine.tick(stale)

	if remaining, _ := engine.Remaining(); remaining != 3600 {
		t.Fatalf("stale tick decremented remaining to %d", remaining)
	}
}

func TestLedgerDedupesAcrossEngines(t *testing.T) {
	clk := clock.NewMock(time.Time{})
	api := newFakeTicketAPI()
	api.put("T-1", domain.TicketStatusOpen, ago(clk, 3*time.Hour), false)
	ledger := newFakeLedger()

	first := newTestEngine(clk, api, ledger, "T-1")
	second := newTestEngine(clk, api, ledger, "T-1")
	for _, engine := range []*Engine{first, second} {
		if err := engine.Initialize(context.Background()); err != nil {
			t.Fatalf("Initialize: %v", err)
		}
	}

	if !first.Breached() || !second.Breached() {
		t.Fatal("both engines should latch locally")
	}
	if got := api.reportCount(); got != 1 {
		t.Fatalf("reports = %d, want 1", got)
	}
}

func TestLedgerErrorFailsOpen(t *testing.T) {
	clk := clock.NewMock(time.Time{})
	api := newFakeTicketAPI()
	api.put("T-1", domain.TicketStatusOpen, ago(clk, 3*time.Hour), false)
	ledger := newFakeLedger()
	ledger.claimErr = errors.New("redis down")

	engine := newTestEngine(clk, api, ledger, "T-1")
	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := api.reportCount(); got != 1 {
		t.Fatalf("reports = %d, want 1", got)
	}
}

func TestFailedReportReleasesClaimAndKeepsLatch(t *testing.T) {
	clk := clock.NewMock(time.Time{})
	api := newFakeTicketAPI()
	api.put("T-1", domain.TicketStatusOpen, ago(clk, 3*time.Hour), false)
	api.reportErr = errBackendDown
	ledger := newFakeLedger()

	engine := newTestEngine(clk, api, ledger, "T-1")
	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	clk.Advance(10 * time.Second)

	if !engine.Breached() {
		t.Fatal("failed report must not revert the latch")
	}
	if got := api.reportCount(); got != 1 {
		t.Fatalf("report retried: %d calls", got)
	}
	if len(ledger.released) != 1 || ledger.claimed["T-1"] {
		t.Fatalf("claim not released: %+v", ledger)
	}
}
