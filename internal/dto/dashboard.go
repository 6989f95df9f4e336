package dto

import (
	"time"

	"github.com/noah-isme/studio-ops-api/internal/models"
)

// OperationsDashboardRequest selects the day and optional instructor for the operations view.
type OperationsDashboardRequest struct {
	Date         models.Date
	InstructorID string
}

// OperationsDashboardResponse is the reception/admin landing payload.
type OperationsDashboardResponse struct {
	Date          models.Date                `json:"date"`
	InstructorID  string                     `json:"instructorId,omitempty"`
	Classes       models.CapacityBoard       `json:"classes"`
	Subscriptions *models.SubscriptionAlerts `json:"subscriptions,omitempty"`
	GeneratedAt   time.Time                  `json:"generatedAt"`
}

// RefreshResponse acknowledges an enqueued dashboard refresh.
type RefreshResponse struct {
	JobID string      `json:"jobId"`
	Date  models.Date `json:"date"`
}
