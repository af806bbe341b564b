package service

import "errors"

var (
	ErrInvalidRange        = errors.New("end_time must be after start_time")
	ErrPastStartTime       = errors.New("cannot create a reservation in the past")
	ErrUserNotFound        = errors.New("user not found")
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomInactive        = errors.New("room is not active")
	ErrRoomAlreadyBooked   = errors.New("room is already booked for this time slot")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrAlreadyCancelled    = errors.New("reservation is already cancelled")
	ErrInvalidInput        = errors.New("invalid input")
)
