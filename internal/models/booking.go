package models

import (
	"strings"
	"time"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingActive    BookingStatus = "active"
	BookingWaitlist  BookingStatus = "waitlist"
	BookingCancelled BookingStatus = "cancelled"
	BookingNoShow    BookingStatus = "no_show"
	BookingCompleted BookingStatus = "completed"
)

// Normalised lowercases and trims the status.
func (s BookingStatus) Normalised() BookingStatus {
	return BookingStatus(strings.ToLower(strings.TrimSpace(string(s))))
}

// HoldsSeat reports whether the booking counts against class capacity.
func (s BookingStatus) HoldsSeat() bool {
	switch s.Normalised() {
	case BookingConfirmed, BookingActive:
		return true
	}
	return false
}

// IsWaitlist reports whether the booking is queued for a seat.
func (s BookingStatus) IsWaitlist() bool {
	return s.Normalised() == BookingWaitlist
}

// Booking links a user to a class session.
type Booking struct {
	ID        string        `db:"id" json:"id"`
	ClassID   string        `db:"class_id" json:"class_id"`
	UserID    string        `db:"user_id" json:"user_id"`
	Status    BookingStatus `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}
