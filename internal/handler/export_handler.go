package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studio-ops-api/internal/dto"
	"github.com/noah-isme/studio-ops-api/internal/service"
	appErrors "github.com/noah-isme/studio-ops-api/pkg/errors"
	"github.com/noah-isme/studio-ops-api/pkg/response"
)

type exportService interface {
	Generate(ctx context.Context, req dto.ExportRequest, requestedBy string) (*dto.ExportResponse, error)
	Open(token string) (*service.ExportFile, error)
}

// ExportHandler renders reports and serves signed downloads.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Create godoc
// @Summary Render a report and return a signed download link
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body dto.ExportRequest true "Report type, format and date"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /exports [post]
func (h *ExportHandler) Create(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	requestedBy := ""
	if claims := claimsFromContext(c); claims != nil {
		requestedBy = claims.UserID
	}
	result, err := h.service.Generate(c.Request.Context(), req, requestedBy)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download a rendered report
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, err := h.service.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.File.Close()
	response.Attachment(c, file.Name, file.ContentType, file.Size, file.File)
}
