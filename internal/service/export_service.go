package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/studio-ops-api/internal/dto"
	"github.com/noah-isme/studio-ops-api/internal/engine"
	"github.com/noah-isme/studio-ops-api/internal/models"
	appErrors "github.com/noah-isme/studio-ops-api/pkg/errors"
	"github.com/noah-isme/studio-ops-api/pkg/export"
	"github.com/noah-isme/studio-ops-api/pkg/storage"
)

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	CleanupOlderThan(now time.Time, ttl time.Duration) ([]string, error)
}

type alertSource interface {
	Alerts(ctx context.Context, date models.Date) (*dto.SubscriptionAlertsResponse, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportServiceParams groups constructor dependencies.
type ExportServiceParams struct {
	Alerts    alertSource
	Classes   classSessionLister
	Bookings  bookingLister
	Users     userLister
	Storage   fileStorage
	Signer    *storage.SignedURLSigner
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	Location  *time.Location
	Now       func() time.Time
	Config    ExportConfig
}

// ExportService renders staff reports, stores them and hands out signed download links.
type ExportService struct {
	alerts    alertSource
	classes   classSessionLister
	bookings  bookingLister
	users     userLister
	storage   fileStorage
	signer    *storage.SignedURLSigner
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	clock     studioClock
	cfg       ExportConfig
}

// ExportFile is an opened export ready to stream.
type ExportFile struct {
	File        *os.File
	Name        string
	ContentType string
	Size        int64
}

// NewExportService constructs an ExportService.
func NewExportService(params ExportServiceParams) *ExportService {
	cfg := params.Config
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = time.Hour
	}
	if params.Validator == nil {
		params.Validator = validator.New()
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	return &ExportService{
		alerts:    params.Alerts,
		classes:   params.Classes,
		bookings:  params.Bookings,
		users:     params.Users,
		storage:   params.Storage,
		signer:    params.Signer,
		metrics:   params.Metrics,
		validator: params.Validator,
		logger:    params.Logger,
		clock:     newStudioClock(params.Now, params.Location),
		cfg:       cfg,
	}
}

// Generate renders the requested report and returns its signed download link.
func (s *ExportService) Generate(ctx context.Context, req dto.ExportRequest, requestedBy string) (*dto.ExportResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid export payload")
	}
	var date models.Date
	if req.Date != "" {
		parsed, err := models.ParseDate(req.Date)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
		}
		date = parsed
	}
	job := models.ExportJob{
		ID:          uuid.NewString(),
		Type:        models.ExportType(req.Type),
		Format:      models.ExportFormat(req.Format),
		Date:        s.clock.dateOrToday(date),
		RequestedBy: requestedBy,
		CreatedAt:   s.clock.now().UTC(),
	}

	renderer, err := export.ForFormat(string(job.Format))
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	var dataset export.Dataset
	switch job.Type {
	case models.ExportTypeEndingSoon:
		dataset, err = s.endingSoonDataset(ctx, job.Date)
	case models.ExportTypeClassRoster:
		dataset, err = s.rosterDataset(ctx, job.Date)
	default:
		err = appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export type %q", job.Type))
	}
	if err != nil {
		return nil, err
	}

	content, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render export")
	}
	name := path.Join(string(job.Type), fmt.Sprintf("%s-%s.%s", job.Date, job.ID, renderer.Extension()))
	if _, err := s.storage.Save(name, content); err != nil {
		return nil, appErrors.Internal(err, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(job.ID, name)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to sign export link")
	}

	s.metrics.RecordExport(string(job.Type), string(job.Format))
	s.logger.Info("export generated",
		zap.String("export_id", job.ID),
		zap.String("type", string(job.Type)),
		zap.String("format", string(job.Format)),
		zap.String("requested_by", job.RequestedBy),
		zap.Int("rows", len(dataset.Rows)),
	)

	return &dto.ExportResponse{
		ID:        job.ID,
		Type:      job.Type,
		Format:    job.Format,
		Date:      job.Date,
		Rows:      len(dataset.Rows),
		URL:       strings.TrimRight(s.cfg.APIPrefix, "/") + "/exports/" + token,
		ExpiresAt: expiresAt,
	}, nil
}

// Open validates a download token and opens the referenced file.
func (s *ExportService) Open(token string) (*ExportFile, error) {
	_, name, _, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	renderer, err := export.ForFormat(strings.TrimPrefix(path.Ext(name), "."))
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	file, err := s.storage.Open(name)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, appErrors.Internal(err, "failed to stat export")
	}
	return &ExportFile{File: file, Name: path.Base(name), ContentType: renderer.ContentType(), Size: info.Size()}, nil
}

// Cleanup deletes exports whose links have expired.
func (s *ExportService) Cleanup() ([]string, error) {
	deleted, err := s.storage.CleanupOlderThan(s.clock.now(), s.cfg.ResultTTL)
	if err != nil {
		return nil, err
	}
	if len(deleted) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
	}
	return deleted, nil
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (s *ExportService) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Cleanup(); err != nil {
				s.logger.Warn("export cleanup failed", zap.Error(err))
			}
		}
	}
}

func (s *ExportService) endingSoonDataset(ctx context.Context, date models.Date) (export.Dataset, error) {
	if s.alerts == nil {
		return export.Dataset{}, appErrors.Clone(appErrors.ErrServiceUnavailable, "subscription data unavailable")
	}
	alerts, err := s.alerts.Alerts(ctx, date)
	if err != nil {
		return export.Dataset{}, err
	}
	ds := export.Dataset{
		Title:   "Ending Soon " + date.String(),
		Headers: []string{"Client", "Email", "Plan", "End Date", "Days Left", "Tier", "Classes Used", "Usage %"},
	}
	for _, alert := range alerts.EndingSoon {
		c := alert.Classification
		usage := strconv.Itoa(c.UsagePercentage)
		if c.Unlimited {
			usage = "unlimited"
		}
		ds.AddRow(
			alert.ClientName,
			alert.ClientEmail,
			alert.Subscription.PlanName,
			alert.Subscription.EndDate.String(),
			strconv.Itoa(c.DaysRemaining),
			string(c.Tier),
			strconv.Itoa(c.UsedClasses),
			usage,
		)
	}
	return ds, nil
}

func (s *ExportService) rosterDataset(ctx context.Context, date models.Date) (export.Dataset, error) {
	if s.classes == nil || s.bookings == nil || s.users == nil {
		return export.Dataset{}, appErrors.Clone(appErrors.ErrServiceUnavailable, "class data unavailable")
	}
	sessions, err := s.classes.ListBetween(ctx, models.ClassSessionFilter{From: date, To: date})
	if err != nil {
		return export.Dataset{}, appErrors.Internal(err, "failed to load class sessions")
	}
	ids := make([]string, 0, len(sessions))
	for _, session := range sessions {
		ids = append(ids, session.ID)
	}
	bookings, err := s.bookings.ListByClassIDs(ctx, ids)
	if err != nil {
		return export.Dataset{}, appErrors.Internal(err, "failed to load bookings")
	}
	users, err := s.users.ListByIDs(ctx, collectUserIDs(bookings, nil))
	if err != nil {
		return export.Dataset{}, appErrors.Internal(err, "failed to load clients")
	}

	board := engine.Aggregate(sessions, bookings, users, date)
	ds := export.Dataset{
		Title:   "Class Roster " + date.String(),
		Headers: []string{"Class", "Time", "Booked", "Client", "Email", "Status"},
	}
	for _, m := range board.Today {
		booked := fmt.Sprintf("%d/%d", m.ConfirmedCount, m.Capacity)
		if len(m.ConfirmedClients)+len(m.WaitlistClients) == 0 {
			ds.AddRow(m.Session.Name, m.Session.Time, booked, "-", "", "")
			continue
		}
		for _, c := range m.ConfirmedClients {
			ds.AddRow(m.Session.Name, m.Session.Time, booked, c.Name, c.Email, "confirmed")
		}
		for i, c := range m.WaitlistClients {
			ds.AddRow(m.Session.Name, m.Session.Time, booked, c.Name, c.Email, fmt.Sprintf("waitlist #%d", i+1))
		}
	}
	return ds, nil
}
