package models

// Room is a bookable meeting room.
type Room struct {
	ID          int64   `json:"id" yaml:"-"`
	Name        string  `json:"name" yaml:"name"`
	Description *string `json:"description" yaml:"description"`
	Capacity    int     `json:"capacity" yaml:"capacity"`
	IsActive    bool    `json:"is_active" yaml:"is_active"`
}
