package models

import "time"

// ExportType enumerates the downloadable staff reports.
type ExportType string

const (
	ExportTypeEndingSoon  ExportType = "ending_soon"
	ExportTypeClassRoster ExportType = "class_roster"
)

// ExportFormat enumerates supported file formats.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatXLSX ExportFormat = "xlsx"
)

// ExportJob describes one export rendering.
type ExportJob struct {
	ID          string       `json:"id"`
	Type        ExportType   `json:"type"`
	Format      ExportFormat `json:"format"`
	Date        Date         `json:"date"`
	RequestedBy string       `json:"requested_by"`
	CreatedAt   time.Time    `json:"created_at"`
}
