package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nxdesk/sla-service/internal/config"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/sessions/:session", http.MethodGet, 200, 2*time.Millisecond)
	m.RecordRequest("/sessions/:session", http.MethodGet, 200, 4*time.Millisecond)
	m.RecordError("/tickets/:id/sla", http.MethodGet, "NOT_FOUND")
	m.Incr(CounterBreachLatched)

	snap := m.Snapshot()
	if len(snap.Requests) != 1 || snap.Requests[0].Count != 2 || snap.Requests[0].AvgLatencyMS != 3 {
		t.Fatalf("unexpected requests %+v", snap.Requests)
	}
	if snap.Errors["/tickets/:id/sla|GET|NOT_FOUND"] != 1 || m.Counter(CounterBreachLatched) != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	var nilMetrics *Metrics
	nilMetrics.Incr(CounterBreachLatched)
	if nilMetrics.Counter(CounterBreachLatched) != 0 {
		t.Fatal("nil metrics must be inert")
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	metrics := NewMetrics()
	app := fiber.New()
	app.Use(RequestLogger(zap.NewNop(), metrics))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.Header.Get(HeaderRequestID) != "req-1" {
		t.Fatalf("request id not echoed: %q", resp.Header.Get(HeaderRequestID))
	}

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
	if resp.Header.Get(HeaderRequestID) == "" {
		t.Fatal("request id not generated")
	}
	if snap := metrics.Snapshot(); len(snap.Requests) != 1 || snap.Requests[0].Count != 2 {
		t.Fatalf("unexpected metrics %+v", snap.Requests)
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "bogus", Encoding: "console", Service: "slawatch"})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if !logger.Core().Enabled(zap.InfoLevel) || logger.Core().Enabled(zap.DebugLevel) {
		t.Fatal("invalid level should fall back to info")
	}
}
