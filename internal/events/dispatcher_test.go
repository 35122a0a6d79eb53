package events

import (
	"context"
	"errors"
	"testing"

	"github.com/nxdesk/sla-service/internal/domain"
)

func TestDispatcherRunsEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	boom := errors.New("boom")

	d.Subscribe(EventSLABreached, func(context.Context, Event) error {
		calls = append(calls, "first")
		return boom
	})
	d.Subscribe(EventSLABreached, func(_ context.Context, e Event) error {
		calls = append(calls, "second:"+e.TicketID)
		return nil
	})
	d.Subscribe(EventTicketStatusChanged, func(context.Context, Event) error {
		calls = append(calls, "status")
		return nil
	})

	event := NewEvent(EventSLABreached, "T-1", Actor{Type: domain.SubjectTypeService}, SLABreachedPayload{})
	err := d.Publish(context.Background(), event)
	if !errors.Is(err, boom) {
		t.Fatalf("Publish err = %v", err)
	}
	if len(calls) != 2 || calls[1] != "second:T-1" {
		t.Fatalf("unexpected calls %v", calls)
	}
	if event.ID == "" || event.Timestamp.IsZero() {
		t.Fatalf("event not stamped: %+v", event)
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	if err := d.Publish(context.Background(), Event{Type: EventSLAStatusChanged}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}
