package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/studio-ops-api/internal/dto"
	"github.com/noah-isme/studio-ops-api/internal/engine"
	"github.com/noah-isme/studio-ops-api/internal/models"
	appErrors "github.com/noah-isme/studio-ops-api/pkg/errors"
)

type classSessionLister interface {
	ListBetween(ctx context.Context, filter models.ClassSessionFilter) ([]models.ClassSession, error)
}

type bookingLister interface {
	ListByClassIDs(ctx context.Context, classIDs []string) ([]models.Booking, error)
}

type userLister interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.User, error)
}

type subscriptionLister interface {
	List(ctx context.Context, filter models.SubscriptionFilter) ([]models.Subscription, error)
}

const (
	dashboardKeyPrefix  = "dash:ops:"
	lastGoodKeyPrefix   = "dash:ops-last:"
	dashboardWindowDays = engine.ThisWeekDays
)

// DashboardServiceConfig tunes dashboard caching.
type DashboardServiceConfig struct {
	CacheTTL    time.Duration
	LastGoodTTL time.Duration
}

// DashboardService composes the operations dashboard from classes, bookings and subscriptions.
type DashboardService struct {
	classes       classSessionLister
	bookings      bookingLister
	users         userLister
	subscriptions subscriptionLister
	cache         *CacheService
	metrics       *MetricsService
	logger        *zap.Logger
	clock         studioClock
	cfg           DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Classes       classSessionLister
	Bookings      bookingLister
	Users         userLister
	Subscriptions subscriptionLister
	Cache         *CacheService
	Metrics       *MetricsService
	Logger        *zap.Logger
	Location      *time.Location
	Now           func() time.Time
	Config        DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.LastGoodTTL <= 0 {
		cfg.LastGoodTTL = 48 * time.Hour
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		classes:       params.Classes,
		bookings:      params.Bookings,
		users:         params.Users,
		subscriptions: params.Subscriptions,
		cache:         params.Cache,
		metrics:       params.Metrics,
		logger:        logger,
		clock:         newStudioClock(params.Now, params.Location),
		cfg:           cfg,
	}
}

// Operations returns the dashboard for req.Date (today when missing). The booleans report a
// cache hit and whether the payload is a stale last-good copy served because loading failed.
func (s *DashboardService) Operations(ctx context.Context, req dto.OperationsDashboardRequest) (*dto.OperationsDashboardResponse, bool, bool, error) {
	req.Date = s.clock.dateOrToday(req.Date)
	key := dashboardKey(dashboardKeyPrefix, req)

	var cached dto.OperationsDashboardResponse
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, false, nil
	}

	payload, err := s.compose(ctx, req)
	if err != nil {
		var lastGood dto.OperationsDashboardResponse
		if hit, _ := s.cache.Get(ctx, dashboardKey(lastGoodKeyPrefix, req), &lastGood); hit {
			s.logger.Warn("serving last good dashboard",
				zap.String("date", req.Date.String()),
				zap.String("instructor_id", req.InstructorID),
				zap.Error(err),
			)
			return &lastGood, false, true, nil
		}
		return nil, false, false, err
	}

	s.store(ctx, req, payload)
	return payload, false, false, nil
}

// Refresh drops every cached variant of date and recomputes the unfiltered dashboard.
// It returns the number of class sessions aggregated.
func (s *DashboardService) Refresh(ctx context.Context, date models.Date) (int, error) {
	date = s.clock.dateOrToday(date)
	if err := s.cache.Invalidate(ctx, dashboardKeyPrefix+date.String()+"*"); err != nil {
		s.logger.Warn("dashboard invalidate failed", zap.String("date", date.String()), zap.Error(err))
	}

	req := dto.OperationsDashboardRequest{Date: date}
	payload, err := s.compose(ctx, req)
	if err != nil {
		return 0, err
	}
	s.store(ctx, req, payload)
	return countSessions(payload.Classes), nil
}

func (s *DashboardService) store(ctx context.Context, req dto.OperationsDashboardRequest, payload *dto.OperationsDashboardResponse) {
	_ = s.cache.Set(ctx, dashboardKey(dashboardKeyPrefix, req), payload, s.cfg.CacheTTL)
	_ = s.cache.Set(ctx, dashboardKey(lastGoodKeyPrefix, req), payload, s.cfg.LastGoodTTL)
}

func (s *DashboardService) compose(ctx context.Context, req dto.OperationsDashboardRequest) (*dto.OperationsDashboardResponse, error) {
	if s.classes == nil || s.bookings == nil || s.users == nil {
		return nil, appErrors.Clone(appErrors.ErrServiceUnavailable, "dashboard data sources unavailable")
	}

	sessions, err := s.classes.ListBetween(ctx, models.ClassSessionFilter{
		From:         req.Date,
		To:           req.Date.AddDays(dashboardWindowDays),
		InstructorID: req.InstructorID,
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load class sessions")
	}

	classIDs := make([]string, 0, len(sessions))
	for _, session := range sessions {
		classIDs = append(classIDs, session.ID)
	}
	bookings, err := s.bookings.ListByClassIDs(ctx, classIDs)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load bookings")
	}

	// Instructor views only carry their classes; subscription alerts are a front-desk concern.
	var subs []models.Subscription
	includeAlerts := req.InstructorID == "" && s.subscriptions != nil
	if includeAlerts {
		subs, err = s.subscriptions.List(ctx, models.SubscriptionFilter{
			Statuses: []models.SubscriptionStatus{models.SubscriptionStatusActive},
		})
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load subscriptions")
		}
	}

	userIDs := collectUserIDs(bookings, subs)
	users, err := s.users.ListByIDs(ctx, userIDs)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load clients")
	}

	payload := &dto.OperationsDashboardResponse{
		Date:         req.Date,
		InstructorID: req.InstructorID,
		Classes:      engine.Aggregate(sessions, bookings, users, req.Date),
		GeneratedAt:  s.clock.now().UTC(),
	}
	if includeAlerts {
		alerts := engine.BuildAlerts(subs, users, req.Date)
		payload.Subscriptions = &alerts
	}
	s.metrics.SetClassesAggregated(len(sessions))
	return payload, nil
}

func dashboardKey(prefix string, req dto.OperationsDashboardRequest) string {
	key := prefix + req.Date.String()
	if req.InstructorID != "" {
		key = fmt.Sprintf("%s:%s", key, req.InstructorID)
	}
	return key
}

func collectUserIDs(bookings []models.Booking, subs []models.Subscription) []string {
	seen := make(map[string]struct{}, len(bookings)+len(subs))
	for _, b := range bookings {
		if b.UserID != "" {
			seen[b.UserID] = struct{}{}
		}
	}
	for _, sub := range subs {
		if sub.UserID != "" {
			seen[sub.UserID] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// countSessions counts distinct sessions across the board; ThisWeek overlaps Tomorrow.
func countSessions(board models.CapacityBoard) int {
	seen := make(map[string]struct{})
	for _, bucket := range [][]models.ClassMetrics{board.Today, board.Tomorrow, board.ThisWeek} {
		for _, m := range bucket {
			seen[m.Session.ID] = struct{}{}
		}
	}
	return len(seen)
}
