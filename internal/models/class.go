package models

import "time"

// DefaultClassCapacity is the studio's policy capacity for sessions without an explicit limit.
const DefaultClassCapacity = 8

// ClassSession is one scheduled class occurrence.
type ClassSession struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Date         Date      `db:"date" json:"date"`
	Time         string    `db:"time" json:"time"`
	InstructorID *string   `db:"instructor_id" json:"instructor_id,omitempty"`
	MaxCapacity  *int      `db:"max_capacity" json:"max_capacity,omitempty"`
	Capacity     *int      `db:"capacity" json:"capacity,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// EffectiveCapacity resolves max_capacity, then capacity, then the studio default.
// Non-positive values count as absent.
func (c ClassSession) EffectiveCapacity() int {
	if c.MaxCapacity != nil && *c.MaxCapacity > 0 {
		return *c.MaxCapacity
	}
	if c.Capacity != nil && *c.Capacity > 0 {
		return *c.Capacity
	}
	return DefaultClassCapacity
}

// ClassSessionFilter narrows class listings.
type ClassSessionFilter struct {
	From         Date
	To           Date
	InstructorID string
}

// DayBucket names the dashboard day groups.
type DayBucket string

const (
	BucketToday    DayBucket = "today"
	BucketTomorrow DayBucket = "tomorrow"
	BucketThisWeek DayBucket = "this_week"
)

// ClientRef is a booking resolved to a display name.
type ClientRef struct {
	BookingID string `json:"booking_id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
}

// ClassMetrics is the read-time capacity view of one session.
type ClassMetrics struct {
	Session           ClassSession `json:"session"`
	Capacity          int          `json:"capacity"`
	ConfirmedCount    int          `json:"confirmed_count"`
	WaitlistCount     int          `json:"waitlist_count"`
	IsFull            bool         `json:"is_full"`
	AvailableSpots    int          `json:"available_spots"`
	BookingPercentage int          `json:"booking_percentage"`
	ConfirmedClients  []ClientRef  `json:"confirmed_clients"`
	WaitlistClients   []ClientRef  `json:"waitlist_clients"`
}

// DaySummary aggregates today's classes.
type DaySummary struct {
	TotalClasses           int `json:"total_classes"`
	FullClassesCount       int `json:"full_classes_count"`
	WaitlistTotal          int `json:"waitlist_total"`
	TotalConfirmedBookings int `json:"total_confirmed_bookings"`
	TotalAvailableSpots    int `json:"total_available_spots"`
}

// CapacityBoard is the bucketed capacity payload.
type CapacityBoard struct {
	Today    []ClassMetrics `json:"today"`
	Tomorrow []ClassMetrics `json:"tomorrow"`
	ThisWeek []ClassMetrics `json:"this_week"`
	Summary  DaySummary     `json:"summary"`
}
