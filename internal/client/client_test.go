package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nxdesk/sla-service/internal/domain"
	apperrors "github.com/nxdesk/sla-service/pkg/util/errorutil"
)

type fakeBackend struct {
	mu      sync.Mutex
	auth    []string
	bodies  []map[string]any
	handler http.HandlerFunc
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	fb := &fakeBackend{}
	mux := http.NewServeMux()
	mux.HandleFunc("/tickets/T-1/status", func(w http.ResponseWriter, r *http.Request) {
		fb.record(r)
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"ticket_id": "T-1", "status": "Waiting for users"}})
	})
	mux.HandleFunc("/tickets/T-1/sla", func(w http.ResponseWriter, r *http.Request) {
		fb.record(r)
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"ticket_id":  "T-1",
			"start_time": "2024-01-01T10:00:00Z",
			"sla_status": "Active",
			"breached":   false,
		}})
	})
	mux.HandleFunc("/tickets/T-2/sla", func(w http.ResponseWriter, r *http.Request) {
		fb.record(r)
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"ticket_id": "T-2", "start_time": nil, "sla_status": "Active"}})
	})
	mux.HandleFunc("/tickets/T-1/sla/breach", func(w http.ResponseWriter, r *http.Request) {
		fb.record(r)
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		fb.mu.Lock()
		fb.bodies = append(fb.bodies, body)
		fb.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"ticket_id": "T-1", "breached": true}})
	})
	mux.HandleFunc("/tickets/missing/status", func(w http.ResponseWriter, r *http.Request) {
		fb.record(r)
		writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"code": "NOT_FOUND", "message": "ticket not found"}})
	})
	mux.HandleFunc("/tickets/slow/status", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"status": "Open"}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBackend) record(r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.auth = append(fb.auth, r.Header.Get("Authorization"))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestTicketStatus(t *testing.T) {
	fb, srv := newFakeBackend(t)
	c := New(srv.URL+"/", time.Second, nil)

	status, err := c.TicketStatus(context.Background(), "tok", "T-1")
	if err != nil {
		t.Fatalf("TicketStatus: %v", err)
	}
	if status != "Waiting for users" {
		t.Fatalf("status = %q", status)
	}
	if fb.auth[0] != "Bearer tok" {
		t.Fatalf("authorization header = %q", fb.auth[0])
	}
}

func TestSLARecord(t *testing.T) {
	_, srv := newFakeBackend(t)
	c := New(srv.URL, time.Second, nil)

	record, err := c.SLARecord(context.Background(), "tok", "T-1")
	if err != nil {
		t.Fatalf("SLARecord: %v", err)
	}
	want := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	if record.StartTime == nil || !record.StartTime.Equal(want) || record.SLAStatus != domain.SLAStatusActive {
		t.Fatalf("unexpected record %+v", record)
	}

	record, err = c.SLARecord(context.Background(), "tok", "T-2")
	if err != nil {
		t.Fatalf("SLARecord: %v", err)
	}
	if record.StartTime != nil {
		t.Fatalf("null start_time decoded as %v", record.StartTime)
	}
}

func TestReportBreach(t *testing.T) {
	fb, srv := newFakeBackend(t)
	c := New(srv.URL, time.Second, nil)

	if err := c.ReportBreach(context.Background(), "tok", "T-1"); err != nil {
		t.Fatalf("ReportBreach: %v", err)
	}
	if len(fb.bodies) != 1 || fb.bodies[0]["breached"] != true {
		t.Fatalf("unexpected breach body %+v", fb.bodies)
	}
}

func TestUpstreamErrorKeepsCode(t *testing.T) {
	_, srv := newFakeBackend(t)
	c := New(srv.URL, time.Second, nil)

	_, err := c.TicketStatus(context.Background(), "tok", "missing")
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected domain error, got %v", err)
	}
	if domainErr.Code != "NOT_FOUND" || domainErr.Details["upstream_status"] != http.StatusNotFound {
		t.Fatalf("unexpected error %+v", domainErr)
	}
}

func TestCancelledContextSkipsCall(t *testing.T) {
	fb, srv := newFakeBackend(t)
	c := New(srv.URL, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.TicketStatus(ctx, "tok", "T-1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if len(fb.auth) != 0 {
		t.Fatal("cancelled context must not reach the backend")
	}
}

func TestTimeout(t *testing.T) {
	_, srv := newFakeBackend(t)
	c := New(srv.URL, 50*time.Millisecond, nil)

	if _, err := c.TicketStatus(context.Background(), "tok", "slow"); err == nil {
		t.Fatal("expected timeout error")
	}
}
