package dto

import (
	"github.com/noah-isme/studio-ops-api/internal/models"
	appErrors "github.com/noah-isme/studio-ops-api/pkg/errors"
)

// EndDateRequest asks for the end date of a plan. An empty start date yields an empty end date.
type EndDateRequest struct {
	StartDate string `json:"startDate"`
	Amount    int    `json:"amount"`
	Unit      string `json:"unit" validate:"required"`
}

// EndDateResponse carries one calculated end date.
type EndDateResponse struct {
	StartDate models.Date         `json:"startDate"`
	Amount    int                 `json:"amount"`
	Unit      models.DurationUnit `json:"unit"`
	EndDate   models.Date         `json:"endDate"`
}

// EndDatePreviewRequest batches end date calculations, e.g. for a plan picker.
type EndDatePreviewRequest struct {
	Items []EndDateRequest `json:"items" validate:"required,min=1,max=100"`
}

// EndDatePreviewItem is one batch slot: either a result or the error for that input.
type EndDatePreviewItem struct {
	Index  int              `json:"index"`
	Result *EndDateResponse `json:"result,omitempty"`
	Error  *appErrors.Error `json:"error,omitempty"`
}

// EndDatePreviewResponse lists per-item outcomes in request order.
type EndDatePreviewResponse struct {
	Items  []EndDatePreviewItem `json:"items"`
	Failed int                  `json:"failed"`
}

// SubscriptionStatusResponse is the classification of one subscription on a given day.
type SubscriptionStatusResponse struct {
	AsOf           models.Date           `json:"asOf"`
	Subscription   models.Subscription   `json:"subscription"`
	ClientName     string                `json:"clientName"`
	Classification models.Classification `json:"classification"`
}

// SubscriptionAlertsResponse groups the alert lists for a day.
type SubscriptionAlertsResponse struct {
	Date models.Date `json:"date"`
	models.SubscriptionAlerts
}
