package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"roombooking/internal/models"

	"github.com/google/uuid"
)

const (
	EventReservationCreated   = "reservation_created"
	EventReservationCancelled = "reservation_cancelled"
	EventDatabaseReset        = "database_reset"
)

// AllTypes lists every event type the service emits.
var AllTypes = []string{EventReservationCreated, EventReservationCancelled, EventDatabaseReset}

// ReservationEventPayload is the reservation snapshot carried by reservation events.
type ReservationEventPayload struct {
	ReservationID int64     `json:"reservation_id"`
	UserID        int64     `json:"user_id"`
	RoomID        int64     `json:"room_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"`
}

func NewReservationPayload(r *models.Reservation) ReservationEventPayload {
	return ReservationEventPayload{
		ReservationID: r.ID,
		UserID:        r.UserID,
		RoomID:        r.RoomID,
		StartTime:     r.StartTime.UTC(),
		EndTime:       r.EndTime.UTC(),
		Status:        r.Status,
	}
}

// ResetEventPayload accompanies database_reset.
type ResetEventPayload struct {
	ResetAt time.Time `json:"reset_at"`
}

// Event is one occurrence on the bus. Payload holds JSON.
type Event struct {
	ID        string
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

type EventHandler func(event *Event) error

// EventBus fans events out to in-process subscribers keyed by event type.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]EventHandler
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
	b.mu.Unlock()
}

// Publish runs every handler for the event type in subscription order, filling in ID
// and CreatedAt when unset. A failing handler does not stop the others; their errors
// are joined.
func (b *EventBus) Publish(event *Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishJSON marshals payload and publishes it. A nil bus drops the event.
func (b *EventBus) PublishJSON(eventType string, payload any) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	return b.Publish(&event)
}

func NewJSONEvent(eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{ID: uuid.NewString(), Type: eventType, Payload: raw, CreatedAt: time.Now().UTC()}, nil
}
