package events

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"roombooking/internal/models"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	var callCount int

	handler := func(event *Event) error {
		received = event
		callCount++
		return nil
	}

	bus.Subscribe("test_event", handler)

	payload := map[string]string{"foo": "bar"}
	err := bus.PublishJSON("test_event", payload)
	if err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}

	if received.Type != "test_event" {
		t.Errorf("expected type test_event, got %s", received.Type)
	}

	var decoded map[string]string
	if err := json.Unmarshal(received.Payload, &decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}

	if decoded["foo"] != "bar" {
		t.Errorf("expected foo=bar, got %s", decoded["foo"])
	}
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	var count1, count2 int

	bus.Subscribe("event", func(_ *Event) error { count1++; return nil })
	bus.Subscribe("event", func(_ *Event) error { count2++; return nil })

	bus.Publish(&Event{Type: "event"})

	if count1 != 1 || count2 != 1 {
		t.Errorf("expected both handlers to be called once, got %d and %d", count1, count2)
	}
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus()
	// Should not panic
	bus.Publish(&Event{Type: "unknown"})
	err := bus.PublishJSON("unknown", nil)
	if err != nil {
		t.Errorf("PublishJSON failed: %v", err)
	}
}

func TestNilBusPublishJSON(t *testing.T) {
	var bus *EventBus
	if err := bus.PublishJSON(EventDatabaseReset, ResetEventPayload{}); err != nil {
		t.Errorf("nil bus should ignore events, got %v", err)
	}
}

func TestPublishAssignsIDAndTime(t *testing.T) {
	bus := NewEventBus()
	var ids []string
	bus.Subscribe(EventReservationCreated, func(e *Event) error {
		ids = append(ids, e.ID)
		if e.CreatedAt.IsZero() {
			t.Errorf("expected CreatedAt to be set")
		}
		return nil
	})

	bus.Publish(&Event{Type: EventReservationCreated})
	bus.Publish(&Event{Type: EventReservationCreated, ID: "fixed"})

	if len(ids) != 2 {
		t.Fatalf("expected 2 events, got %d", len(ids))
	}
	if ids[0] == "" {
		t.Errorf("expected generated id")
	}
	if ids[1] != "fixed" {
		t.Errorf("expected caller id to be kept, got %s", ids[1])
	}
}

func TestNewJSONEvent(t *testing.T) {
	start := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	payload := ReservationEventPayload{ReservationID: 123, RoomID: 7, StartTime: start, Status: "active"}
	event, err := NewJSONEvent(EventReservationCreated, payload)
	if err != nil {
		t.Fatalf("NewJSONEvent failed: %v", err)
	}

	if event.Type != EventReservationCreated {
		t.Errorf("expected %s, got %s", EventReservationCreated, event.Type)
	}
	if event.CreatedAt.IsZero() {
		t.Errorf("expected CreatedAt to be set")
	}
	if event.ID == "" {
		t.Errorf("expected ID to be set")
	}

	var decoded ReservationEventPayload
	if err := json.Unmarshal(event.Payload, &decoded); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if decoded.ReservationID != 123 || decoded.RoomID != 7 || !decoded.StartTime.Equal(start) {
		t.Errorf("unexpected payload %+v", decoded)
	}
}

func TestNewJSONEventMarshalError(t *testing.T) {
	if _, err := NewJSONEvent("bad", make(chan int)); err == nil {
		t.Error("expected marshal error")
	}
}

func TestPublishJoinsHandlerErrors(t *testing.T) {
	bus := NewEventBus()
	errA := errors.New("a failed")
	var reached bool

	bus.Subscribe("event", func(_ *Event) error { return errA })
	bus.Subscribe("event", func(_ *Event) error { reached = true; return nil })

	err := bus.PublishJSON("event", nil)
	if !errors.Is(err, errA) {
		t.Errorf("expected handler error, got %v", err)
	}
	if !reached {
		t.Error("later handler should still run")
	}
}

func TestReservationPayloadRoundTrip(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	r := &models.Reservation{
		ID:        5,
		UserID:    2,
		RoomID:    9,
		StartTime: time.Date(2030, 1, 1, 13, 0, 0, 0, loc),
		EndTime:   time.Date(2030, 1, 1, 14, 0, 0, 0, loc),
		Status:    models.StatusCancelled,
	}

	event, err := NewJSONEvent(EventReservationCancelled, NewReservationPayload(r))
	if err != nil {
		t.Fatalf("NewJSONEvent failed: %v", err)
	}

	var got ReservationEventPayload
	if err := event.Decode(&got); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.ReservationID != 5 || got.RoomID != 9 || got.Status != models.StatusCancelled {
		t.Errorf("unexpected payload %+v", got)
	}
	if got.StartTime.Hour() != 10 || got.StartTime.Location() != time.UTC {
		t.Errorf("expected UTC start, got %s", got.StartTime)
	}

	bad := Event{Type: "x", Payload: []byte("{")}
	if err := bad.Decode(&got); err == nil {
		t.Error("expected decode error")
	}
}
