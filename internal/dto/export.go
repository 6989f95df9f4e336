package dto

import (
	"time"

	"github.com/noah-isme/studio-ops-api/internal/models"
)

// ExportRequest asks for a downloadable report.
type ExportRequest struct {
	Type   string `json:"type" validate:"required,oneof=ending_soon class_roster"`
	Format string `json:"format" validate:"required,oneof=csv pdf xlsx"`
	Date   string `json:"date"`
}

// ExportResponse points at a rendered report.
type ExportResponse struct {
	ID        string              `json:"id"`
	Type      models.ExportType   `json:"type"`
	Format    models.ExportFormat `json:"format"`
	Date      models.Date         `json:"date"`
	Rows      int                 `json:"rows"`
	URL       string              `json:"url"`
	ExpiresAt time.Time           `json:"expiresAt"`
}
