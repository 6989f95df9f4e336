package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studio-ops-api/internal/dto"
	"github.com/noah-isme/studio-ops-api/internal/middleware"
	"github.com/noah-isme/studio-ops-api/internal/models"
	"github.com/noah-isme/studio-ops-api/internal/service"
	appErrors "github.com/noah-isme/studio-ops-api/pkg/errors"
)

type responseEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func newContext(method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, rec
}

type fakeDashboardSrv struct {
	resp     *dto.OperationsDashboardResponse
	hit      bool
	stale    bool
	err      error
	lastReq  dto.OperationsDashboardRequest
	jobID    string
	trigErr  error
	trigDate models.Date
}

func (f *fakeDashboardSrv) Operations(_ context.Context, req dto.OperationsDashboardRequest) (*dto.OperationsDashboardResponse, bool, bool, error) {
	f.lastReq = req
	return f.resp, f.hit, f.stale, f.err
}

func (f *fakeDashboardSrv) Trigger(date models.Date) (string, models.Date, error) {
	f.trigDate = date
	if date.IsZero() {
		date = models.NewDate(2025, 3, 1)
	}
	return f.jobID, date, f.trigErr
}

func TestDashboardOperationsInvalidDate(t *testing.T) {
	h := NewDashboardHandler(&fakeDashboardSrv{}, nil)
	c, rec := newContext(http.MethodGet, "/dashboard/operations?date=03-01-2025", nil)

	h.Operations(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decode(t, rec).Error.Code)
}

func TestDashboardOperationsMeta(t *testing.T) {
	srv := &fakeDashboardSrv{
		resp:  &dto.OperationsDashboardResponse{Date: models.NewDate(2025, 3, 1)},
		hit:   false,
		stale: true,
	}
	h := NewDashboardHandler(srv, nil)
	c, rec := newContext(http.MethodGet, "/dashboard/operations?date=2025-03-01&instructorId=ins-9", nil)

	h.Operations(c)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, false, env.Meta["cache_hit"])
	assert.Equal(t, true, env.Meta["stale"])
	assert.Equal(t, models.NewDate(2025, 3, 1), srv.lastReq.Date)
	assert.Equal(t, "ins-9", srv.lastReq.InstructorID)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "2025-03-01", payload["date"])
}

func TestDashboardOperationsInstructorScopedToSelf(t *testing.T) {
	srv := &fakeDashboardSrv{resp: &dto.OperationsDashboardResponse{}}
	h := NewDashboardHandler(srv, nil)
	c, rec := newContext(http.MethodGet, "/dashboard/operations?instructorId=someone-else", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "ins-1", Role: models.RoleInstructor})

	h.Operations(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ins-1", srv.lastReq.InstructorID)
	assert.True(t, srv.lastReq.Date.IsZero())
}

func TestDashboardOperationsServiceError(t *testing.T) {
	h := NewDashboardHandler(&fakeDashboardSrv{err: appErrors.Clone(appErrors.ErrInternal, "boom")}, nil)
	c, rec := newContext(http.MethodGet, "/dashboard/operations", nil)

	h.Operations(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDashboardRefresh(t *testing.T) {
	srv := &fakeDashboardSrv{jobID: "job-1"}
	h := NewDashboardHandler(srv, srv)
	c, rec := newContext(http.MethodPost, "/dashboard/refresh", nil)

	h.Refresh(c)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var payload dto.RefreshResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &payload))
	assert.Equal(t, "job-1", payload.JobID)
	assert.Equal(t, models.NewDate(2025, 3, 1), payload.Date)

	srv.trigErr = appErrors.Clone(appErrors.ErrServiceUnavailable, "refresh queue is busy")
	c, rec = newContext(http.MethodPost, "/dashboard/refresh?date=2025-03-04", nil)
	h.Refresh(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, models.NewDate(2025, 3, 4), srv.trigDate)
}

func TestDashboardRefreshWithoutQueue(t *testing.T) {
	h := NewDashboardHandler(&fakeDashboardSrv{}, nil)
	c, rec := newContext(http.MethodPost, "/dashboard/refresh", nil)

	h.Refresh(c)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type fakeSubscriptionSrv struct {
	lastID   string
	lastDate models.Date
	err      error
}

func (f *fakeSubscriptionSrv) EndDate(req dto.EndDateRequest) (*dto.EndDateResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dto.EndDateResponse{Amount: req.Amount, Unit: models.DurationUnit(req.Unit), EndDate: models.NewDate(2024, 2, 29)}, nil
}

func (f *fakeSubscriptionSrv) PreviewEndDates(req dto.EndDatePreviewRequest) (*dto.EndDatePreviewResponse, error) {
	out := &dto.EndDatePreviewResponse{}
	for i := range req.Items {
		out.Items = append(out.Items, dto.EndDatePreviewItem{Index: i, Error: appErrors.Clone(appErrors.ErrInvalidArgument, "bad")})
		out.Failed++
	}
	return out, nil
}

func (f *fakeSubscriptionSrv) Classify(_ context.Context, id string, asOf models.Date) (*dto.SubscriptionStatusResponse, error) {
	f.lastID, f.lastDate = id, asOf
	if f.err != nil {
		return nil, f.err
	}
	return &dto.SubscriptionStatusResponse{AsOf: asOf, ClientName: "Ana"}, nil
}

func (f *fakeSubscriptionSrv) Alerts(_ context.Context, date models.Date) (*dto.SubscriptionAlertsResponse, error) {
	f.lastDate = date
	return &dto.SubscriptionAlertsResponse{
		Date: date,
		SubscriptionAlerts: models.SubscriptionAlerts{
			EndingSoon: []models.SubscriptionAlert{{Subscription: models.Subscription{ID: "s1"}}, {Subscription: models.Subscription{ID: "s2"}}},
		},
	}, nil
}

func TestSubscriptionAlerts(t *testing.T) {
	srv := &fakeSubscriptionSrv{}
	h := NewSubscriptionHandler(srv)
	c, rec := newContext(http.MethodGet, "/subscriptions/alerts?date=2025-03-01", nil)

	h.Alerts(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode(t, rec).Meta["total"])
	assert.Equal(t, models.NewDate(2025, 3, 1), srv.lastDate)
}

func TestSubscriptionStatus(t *testing.T) {
	srv := &fakeSubscriptionSrv{}
	h := NewSubscriptionHandler(srv)
	c, rec := newContext(http.MethodGet, "/subscriptions/s1/status", nil)
	c.Params = gin.Params{{Key: "id", Value: "s1"}}

	h.Status(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s1", srv.lastID)

	srv.err = appErrors.Clone(appErrors.ErrNotFound, "subscription not found")
	c, rec = newContext(http.MethodGet, "/subscriptions/nope/status", nil)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}
	h.Status(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubscriptionEndDate(t *testing.T) {
	h := NewSubscriptionHandler(&fakeSubscriptionSrv{})

	c, rec := newContext(http.MethodPost, "/subscriptions/end-date", []byte(`{"startDate":"2024-01-31","amount":1,"unit":"months"}`))
	h.EndDate(c)
	require.Equal(t, http.StatusOK, rec.Code)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &payload))
	assert.Equal(t, "2024-02-29", payload["endDate"])

	c, rec = newContext(http.MethodPost, "/subscriptions/end-date", []byte(`{"amount":`))
	h.EndDate(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubscriptionPreviewReportsFailures(t *testing.T) {
	h := NewSubscriptionHandler(&fakeSubscriptionSrv{})
	c, rec := newContext(http.MethodPost, "/subscriptions/end-date/preview", []byte(`{"items":[{"amount":1,"unit":"weeks"}]}`))

	h.PreviewEndDates(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec).Meta["failed"])
}

type fakeExportSrv struct {
	requestedBy string
	file        string
	openErr     error
}

func (f *fakeExportSrv) Generate(_ context.Context, req dto.ExportRequest, requestedBy string) (*dto.ExportResponse, error) {
	f.requestedBy = requestedBy
	return &dto.ExportResponse{ID: "exp-1", Type: models.ExportType(req.Type), URL: "/api/v1/exports/tok"}, nil
}

func (f *fakeExportSrv) Open(string) (*service.ExportFile, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	file, err := os.Open(f.file)
	if err != nil {
		return nil, err
	}
	info, _ := file.Stat()
	return &service.ExportFile{File: file, Name: "roster.csv", ContentType: "text/csv", Size: info.Size()}, nil
}

func TestExportCreateUsesCaller(t *testing.T) {
	srv := &fakeExportSrv{}
	h := NewExportHandler(srv)
	c, rec := newContext(http.MethodPost, "/exports", []byte(`{"type":"class_roster","format":"csv"}`))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "rec-1", Role: models.RoleReception})

	h.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "rec-1", srv.requestedBy)
}

func TestExportDownload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roster.csv")
	require.NoError(t, os.WriteFile(path, []byte("Class,Client\nYoga,Ana\n"), 0o600))

	h := NewExportHandler(&fakeExportSrv{file: path})
	c, rec := newContext(http.MethodGet, "/exports/tok", nil)
	c.Params = gin.Params{{Key: "token", Value: "tok"}}

	h.Download(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="roster.csv"`)
	assert.Equal(t, "Class,Client\nYoga,Ana\n", rec.Body.String())
}

func TestExportDownloadExpired(t *testing.T) {
	h := NewExportHandler(&fakeExportSrv{openErr: appErrors.Clone(appErrors.ErrForbidden, "download link expired")})
	c, rec := newContext(http.MethodGet, "/exports/tok", nil)

	h.Download(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "download link expired", decode(t, rec).Error.Message)
}

func TestMetricsHandler(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordDashboardRefresh(true)
	h := NewMetricsHandler(metrics)

	c, rec := newContext(http.MethodGet, "/metrics", nil)
	h.Prometheus(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "studio_dashboard_refresh_total")

	c, rec = newContext(http.MethodGet, "/health", nil)
	h.Health(c)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	c, rec = newContext(http.MethodGet, "/metrics", nil)
	NewMetricsHandler(nil).Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
