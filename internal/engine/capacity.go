package engine

import (
	"sort"

	"github.com/noah-isme/studio-ops-api/internal/models"
)

// ThisWeekDays is how far ahead of today the this-week bucket reaches.
const ThisWeekDays = 7

// Aggregate computes per-class capacity metrics and buckets them by day relative to today.
// Tomorrow's classes appear in both the tomorrow and this-week buckets.
func Aggregate(classes []models.ClassSession, bookings []models.Booking, users []models.User, today models.Date) models.CapacityBoard {
	directory := indexUsers(users)
	byClass := groupBookings(bookings)

	board := models.CapacityBoard{
		Today:    []models.ClassMetrics{},
		Tomorrow: []models.ClassMetrics{},
		ThisWeek: []models.ClassMetrics{},
	}
	for _, session := range orderedSessions(classes) {
		buckets := BucketsFor(session.Date, today)
		if len(buckets) == 0 {
			continue
		}
		metrics := computeMetrics(session, byClass[session.ID], directory)
		for _, bucket := range buckets {
			switch bucket {
			case models.BucketToday:
				board.Today = append(board.Today, metrics)
			case models.BucketTomorrow:
				board.Tomorrow = append(board.Tomorrow, metrics)
			case models.BucketThisWeek:
				board.ThisWeek = append(board.ThisWeek, metrics)
			}
		}
	}
	board.Summary = Summarize(board.Today)
	return board
}

// MetricsFor computes the capacity view of a single session from the full booking list.
func MetricsFor(session models.ClassSession, bookings []models.Booking, users []models.User) models.ClassMetrics {
	return computeMetrics(session, groupBookings(bookings)[session.ID], indexUsers(users))
}

// BucketsFor returns every day bucket date falls into relative to today.
func BucketsFor(date, today models.Date) []models.DayBucket {
	if date.IsZero() || today.IsZero() {
		return nil
	}
	offset := today.DaysUntil(date)
	var buckets []models.DayBucket
	if offset == 0 {
		buckets = append(buckets, models.BucketToday)
	}
	if offset == 1 {
		buckets = append(buckets, models.BucketTomorrow)
	}
	if offset > 0 && offset <= ThisWeekDays {
		buckets = append(buckets, models.BucketThisWeek)
	}
	return buckets
}

// Summarize totals a day's class metrics. Waitlisted bookings are counted once per booking id.
func Summarize(day []models.ClassMetrics) models.DaySummary {
	summary := models.DaySummary{TotalClasses: len(day)}
	waitlisted := make(map[string]struct{})
	anonymousWaitlist := 0
	for _, metrics := range day {
		if metrics.IsFull {
			summary.FullClassesCount++
		}
		summary.TotalConfirmedBookings += metrics.ConfirmedCount
		summary.TotalAvailableSpots += metrics.AvailableSpots
		for _, ref := range metrics.WaitlistClients {
			if ref.BookingID == "" {
				anonymousWaitlist++
				continue
			}
			waitlisted[ref.BookingID] = struct{}{}
		}
	}
	summary.WaitlistTotal = len(waitlisted) + anonymousWaitlist
	return summary
}

func computeMetrics(session models.ClassSession, bookings []models.Booking, directory userDirectory) models.ClassMetrics {
	capacity := session.EffectiveCapacity()
	metrics := models.ClassMetrics{
		Session:          session,
		Capacity:         capacity,
		ConfirmedClients: []models.ClientRef{},
		WaitlistClients:  []models.ClientRef{},
	}

	seen := make(map[string]struct{}, len(bookings))
	for _, booking := range bookings {
		if booking.ID != "" {
			if _, dup := seen[booking.ID]; dup {
				continue
			}
			seen[booking.ID] = struct{}{}
		}
		switch {
		case booking.Status.HoldsSeat():
			metrics.ConfirmedClients = append(metrics.ConfirmedClients, clientRef(booking, directory))
		case booking.Status.IsWaitlist():
			metrics.WaitlistClients = append(metrics.WaitlistClients, clientRef(booking, directory))
		}
	}

	metrics.ConfirmedCount = len(metrics.ConfirmedClients)
	metrics.WaitlistCount = len(metrics.WaitlistClients)
	metrics.IsFull = metrics.ConfirmedCount >= capacity
	if spots := capacity - metrics.ConfirmedCount; spots > 0 {
		metrics.AvailableSpots = spots
	}
	// overbooked classes intentionally report more than 100%
	metrics.BookingPercentage = roundedPercent(metrics.ConfirmedCount, capacity)
	return metrics
}

func clientRef(booking models.Booking, directory userDirectory) models.ClientRef {
	name, email := directory.resolve(booking.UserID)
	return models.ClientRef{
		BookingID: booking.ID,
		UserID:    booking.UserID,
		Name:      name,
		Email:     email,
	}
}

// groupBookings indexes bookings by class in their original order.
func groupBookings(bookings []models.Booking) map[string][]models.Booking {
	grouped := make(map[string][]models.Booking)
	for _, booking := range bookings {
		grouped[booking.ClassID] = append(grouped[booking.ClassID], booking)
	}
	return grouped
}

// orderedSessions returns a sorted copy so callers' slices are never reordered.
func orderedSessions(classes []models.ClassSession) []models.ClassSession {
	sorted := make([]models.ClassSession, len(classes))
	copy(sorted, classes)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.ID < b.ID
	})
	return sorted
}
