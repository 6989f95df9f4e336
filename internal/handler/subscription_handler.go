package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studio-ops-api/internal/dto"
	"github.com/noah-isme/studio-ops-api/internal/models"
	appErrors "github.com/noah-isme/studio-ops-api/pkg/errors"
	"github.com/noah-isme/studio-ops-api/pkg/response"
)

type subscriptionService interface {
	EndDate(req dto.EndDateRequest) (*dto.EndDateResponse, error)
	PreviewEndDates(req dto.EndDatePreviewRequest) (*dto.EndDatePreviewResponse, error)
	Classify(ctx context.Context, id string, asOf models.Date) (*dto.SubscriptionStatusResponse, error)
	Alerts(ctx context.Context, date models.Date) (*dto.SubscriptionAlertsResponse, error)
}

// SubscriptionHandler exposes subscription lifecycle endpoints.
type SubscriptionHandler struct {
	service subscriptionService
}

// NewSubscriptionHandler constructs the handler.
func NewSubscriptionHandler(service subscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{service: service}
}

// Alerts godoc
// @Summary Subscriptions ending soon, expiring today and lapsed
// @Tags Subscriptions
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD). Defaults to today"
// @Success 200 {object} response.Envelope
// @Router /subscriptions/alerts [get]
func (h *SubscriptionHandler) Alerts(c *gin.Context) {
	date, err := queryDate(c, "date")
	if err != nil {
		response.Error(c, err)
		return
	}
	alerts, err := h.service.Alerts(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, alerts, map[string]interface{}{"total": len(alerts.EndingSoon)})
}

// Status godoc
// @Summary Lifecycle status of one subscription
// @Tags Subscriptions
// @Produce json
// @Param id path string true "Subscription ID"
// @Param date query string false "Evaluate as of this date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subscriptions/{id}/status [get]
func (h *SubscriptionHandler) Status(c *gin.Context) {
	date, err := queryDate(c, "date")
	if err != nil {
		response.Error(c, err)
		return
	}
	status, err := h.service.Classify(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, status)
}

// EndDate godoc
// @Summary Calculate the end date of a plan
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param payload body dto.EndDateRequest true "Plan start and duration"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /subscriptions/end-date [post]
func (h *SubscriptionHandler) EndDate(c *gin.Context) {
	var req dto.EndDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	result, err := h.service.EndDate(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// PreviewEndDates godoc
// @Summary Calculate end dates for several plans at once
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param payload body dto.EndDatePreviewRequest true "Plans"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /subscriptions/end-date/preview [post]
func (h *SubscriptionHandler) PreviewEndDates(c *gin.Context) {
	var req dto.EndDatePreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	result, err := h.service.PreviewEndDates(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result, map[string]interface{}{"failed": result.Failed})
}
