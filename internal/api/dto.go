package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Accepted timestamp layouts. Zone-less values are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// timestamp decodes the instant formats clients send and normalises them to UTC.
type timestamp struct {
	time.Time
	set bool
}

func (t *timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp must be a string")
	}
	parsed, err := parseTimestamp(raw)
	if err != nil {
		return err
	}
	t.Time = parsed
	t.set = true
	return nil
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
}

type createUserRequest struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

type createRoomRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Capacity    int     `json:"capacity"`
	IsActive    *bool   `json:"is_active"`
}

// Ids are pointers so an absent field can be told apart from an unknown id; any
// present value goes to the service, which owns the check order.
type createReservationRequest struct {
	UserID    *int64    `json:"user_id"`
	RoomID    *int64    `json:"room_id"`
	StartTime timestamp `json:"start_time"`
	EndTime   timestamp `json:"end_time"`
}

func (r createReservationRequest) validate() error {
	switch {
	case r.UserID == nil:
		return fmt.Errorf("user_id is required")
	case r.RoomID == nil:
		return fmt.Errorf("room_id is required")
	case !r.StartTime.set:
		return fmt.Errorf("start_time is required")
	case !r.EndTime.set:
		return fmt.Errorf("end_time is required")
	}
	return nil
}
