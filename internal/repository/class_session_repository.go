package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/studio-ops-api/internal/models"
)

const classSessionColumns = `id, name, date, to_char(time, 'HH24:MI') AS time, instructor_id, max_capacity, capacity, created_at, updated_at`

// ClassSessionRepository reads scheduled class occurrences.
type ClassSessionRepository struct {
	db *sqlx.DB
}

// NewClassSessionRepository constructs the repository.
func NewClassSessionRepository(db *sqlx.DB) *ClassSessionRepository {
	return &ClassSessionRepository{db: db}
}

// ListBetween returns sessions dated within [From, To], optionally for one instructor.
func (r *ClassSessionRepository) ListBetween(ctx context.Context, filter models.ClassSessionFilter) ([]models.ClassSession, error) {
	where := []string{"date >= $1", "date <= $2"}
	args := []interface{}{filter.From, filter.To}
	if filter.InstructorID != "" {
		where = append(where, fmt.Sprintf("instructor_id = $%d", len(args)+1))
		args = append(args, filter.InstructorID)
	}

	query := fmt.Sprintf("SELECT %s FROM classes WHERE %s ORDER BY date ASC, time ASC, id ASC",
		classSessionColumns, strings.Join(where, " AND "))

	var sessions []models.ClassSession
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list class sessions: %w", err)
	}
	return sessions, nil
}

// FindByID returns a single session.
func (r *ClassSessionRepository) FindByID(ctx context.Context, id string) (*models.ClassSession, error) {
	query := fmt.Sprintf("SELECT %s FROM classes WHERE id = $1", classSessionColumns)
	var session models.ClassSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class session: %w", err)
	}
	return &session, nil
}
