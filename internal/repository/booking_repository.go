package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/studio-ops-api/internal/models"
)

// BookingRepository reads class bookings.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs the repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// ListByClassIDs returns every booking of the given classes regardless of status.
func (r *BookingRepository) ListByClassIDs(ctx context.Context, classIDs []string) ([]models.Booking, error) {
	if len(classIDs) == 0 {
		return []models.Booking{}, nil
	}
	const query = `SELECT id, class_id, user_id, status, created_at FROM bookings WHERE class_id = ANY($1) ORDER BY created_at ASC, id ASC`
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, pq.Array(classIDs)); err != nil {
		return nil, fmt.Errorf("list bookings by class: %w", err)
	}
	return bookings, nil
}
