package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studio-ops-api/internal/dto"
	"github.com/noah-isme/studio-ops-api/internal/models"
	appErrors "github.com/noah-isme/studio-ops-api/pkg/errors"
	"github.com/noah-isme/studio-ops-api/pkg/storage"
)

func newExportFixture(t *testing.T) (*ExportService, *storage.SignedURLSigner) {
	t.Helper()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour).WithClock(fixedNow(now))

	dash := newDashboardFixture(time.UTC)
	subs, _, _ := newSubscriptionFixture()
	svc := NewExportService(ExportServiceParams{
		Alerts:   subs,
		Classes:  dash.classes,
		Bookings: dash.books,
		Users:    dash.users,
		Storage:  store,
		Signer:   signer,
		Metrics:  NewMetricsService(),
		Now:      fixedNow(now),
		Config:   ExportConfig{APIPrefix: "/api/v1/", ResultTTL: time.Hour},
	})
	return svc, signer
}

func readExport(t *testing.T, svc *ExportService, url string) (*ExportFile, string) {
	t.Helper()
	token := strings.TrimPrefix(url, "/api/v1/exports/")
	file, err := svc.Open(token)
	require.NoError(t, err)
	defer file.File.Close()
	body, err := io.ReadAll(file.File)
	require.NoError(t, err)
	return file, string(body)
}

func TestExportEndingSoonCSV(t *testing.T) {
	svc, _ := newExportFixture(t)

	resp, err := svc.Generate(context.Background(), dto.ExportRequest{Type: "ending_soon", Format: "csv"}, "desk-1")
	require.NoError(t, err)
	assert.Equal(t, models.NewDate(2025, time.March, 1), resp.Date)
	assert.Equal(t, 2, resp.Rows)
	assert.True(t, strings.HasPrefix(resp.URL, "/api/v1/exports/"))

	file, body := readExport(t, svc, resp.URL)
	assert.Equal(t, "text/csv", file.ContentType)
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Client,Email,Plan,End Date,Days Left,Tier,Classes Used,Usage %", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Ana,"))
	assert.Contains(t, lines[1], ",2025-03-07,6,critical,")
}

func TestExportClassRosterXLSX(t *testing.T) {
	svc, _ := newExportFixture(t)

	resp, err := svc.Generate(context.Background(), dto.ExportRequest{Type: "class_roster", Format: "xlsx", Date: "2025-03-01"}, "desk-1")
	require.NoError(t, err)
	assert.Equal(t, 7, resp.Rows)

	file, body := readExport(t, svc, resp.URL)
	assert.True(t, strings.HasSuffix(file.Name, ".xlsx"))
	assert.Equal(t, int64(len(body)), file.Size)
	assert.True(t, strings.HasPrefix(body, "PK"))
}

func TestExportClassRosterEmptyClassPDF(t *testing.T) {
	svc, _ := newExportFixture(t)

	resp, err := svc.Generate(context.Background(), dto.ExportRequest{Type: "class_roster", Format: "pdf", Date: "2025-03-02"}, "desk-1")
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Rows)

	file, body := readExport(t, svc, resp.URL)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(body, "%PDF"))
}

func TestExportValidation(t *testing.T) {
	svc, _ := newExportFixture(t)

	for _, req := range []dto.ExportRequest{
		{Type: "payroll", Format: "csv"},
		{Type: "ending_soon", Format: "docx"},
		{Type: "ending_soon", Format: "csv", Date: "03/01/2025"},
	} {
		_, err := svc.Generate(context.Background(), req, "desk-1")
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code, "%+v", req)
	}
}

func TestExportOpenRejectsBadTokens(t *testing.T) {
	svc, signer := newExportFixture(t)

	_, err := svc.Open("garbage")
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	token, _, err := signer.Generate("exp-1", "ending_soon/missing.csv")
	require.NoError(t, err)
	_, err = svc.Open(token)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	resp, err := svc.Generate(context.Background(), dto.ExportRequest{Type: "ending_soon", Format: "csv"}, "desk-1")
	require.NoError(t, err)
	signer.WithClock(fixedNow(time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC)))
	_, err = svc.Open(strings.TrimPrefix(resp.URL, "/api/v1/exports/"))
	require.Error(t, err)
	assert.Equal(t, "download link expired", appErrors.FromError(err).Message)
}
