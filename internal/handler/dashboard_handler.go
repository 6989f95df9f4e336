package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studio-ops-api/internal/dto"
	"github.com/noah-isme/studio-ops-api/internal/models"
	appErrors "github.com/noah-isme/studio-ops-api/pkg/errors"
	"github.com/noah-isme/studio-ops-api/pkg/response"
)

type dashboardService interface {
	Operations(ctx context.Context, req dto.OperationsDashboardRequest) (*dto.OperationsDashboardResponse, bool, bool, error)
}

type refreshTrigger interface {
	Trigger(date models.Date) (string, models.Date, error)
}

// DashboardHandler wires the operations dashboard to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
	refresh refreshTrigger
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService, refresh refreshTrigger) *DashboardHandler {
	return &DashboardHandler{service: service, refresh: refresh}
}

// Operations godoc
// @Summary Operations dashboard: class capacity for the week plus subscription alerts
// @Tags Dashboard
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD). Defaults to today in the studio timezone"
// @Param instructorId query string false "Only classes taught by this instructor"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /dashboard/operations [get]
func (h *DashboardHandler) Operations(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	date, err := queryDate(c, "date")
	if err != nil {
		response.Error(c, err)
		return
	}
	req := dto.OperationsDashboardRequest{
		Date:         date,
		InstructorID: strings.TrimSpace(c.Query("instructorId")),
	}
	// instructors only ever see their own classes
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleInstructor {
		req.InstructorID = claims.UserID
	}

	payload, cacheHit, stale, err := h.service.Operations(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payload, withMeta(c, cacheHit, stale))
}

// Refresh godoc
// @Summary Queue a dashboard recomputation
// @Tags Dashboard
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD). Defaults to today"
// @Success 202 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /dashboard/refresh [post]
func (h *DashboardHandler) Refresh(c *gin.Context) {
	if h.refresh == nil {
		response.Error(c, appErrors.ErrServiceUnavailable)
		return
	}
	date, err := queryDate(c, "date")
	if err != nil {
		response.Error(c, err)
		return
	}
	jobID, queued, err := h.refresh.Trigger(date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, dto.RefreshResponse{JobID: jobID, Date: queued})
}
