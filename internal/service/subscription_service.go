package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/studio-ops-api/internal/dto"
	"github.com/noah-isme/studio-ops-api/internal/engine"
	"github.com/noah-isme/studio-ops-api/internal/models"
	appErrors "github.com/noah-isme/studio-ops-api/pkg/errors"
)

type subscriptionReader interface {
	subscriptionLister
	FindByID(ctx context.Context, id string) (*models.Subscription, error)
}

// SubscriptionService exposes end date arithmetic and lifecycle classification.
type SubscriptionService struct {
	subscriptions subscriptionReader
	users         userLister
	validator     *validator.Validate
	logger        *zap.Logger
	clock         studioClock
}

// SubscriptionServiceParams groups constructor dependencies.
type SubscriptionServiceParams struct {
	Subscriptions subscriptionReader
	Users         userLister
	Validator     *validator.Validate
	Logger        *zap.Logger
	Location      *time.Location
	Now           func() time.Time
}

// NewSubscriptionService constructs the service.
func NewSubscriptionService(params SubscriptionServiceParams) *SubscriptionService {
	if params.Validator == nil {
		params.Validator = validator.New()
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	return &SubscriptionService{
		subscriptions: params.Subscriptions,
		users:         params.Users,
		validator:     params.Validator,
		logger:        params.Logger,
		clock:         newStudioClock(params.Now, params.Location),
	}
}

// EndDate calculates the end date of a single plan.
func (s *SubscriptionService) EndDate(req dto.EndDateRequest) (*dto.EndDateResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid end date payload")
	}
	var start models.Date
	if req.StartDate != "" {
		parsed, err := models.ParseDate(req.StartDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "startDate must be YYYY-MM-DD")
		}
		start = parsed
	}
	unit := models.ParseDurationUnit(req.Unit)
	end, err := engine.CalculateEndDate(start, req.Amount, unit)
	if err != nil {
		return nil, err
	}
	return &dto.EndDateResponse{StartDate: start, Amount: req.Amount, Unit: unit, EndDate: end}, nil
}

// PreviewEndDates runs EndDate for each item. A failing item records its error and the
// batch carries on.
func (s *SubscriptionService) PreviewEndDates(req dto.EndDatePreviewRequest) (*dto.EndDatePreviewResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid preview payload")
	}
	resp := &dto.EndDatePreviewResponse{Items: make([]dto.EndDatePreviewItem, 0, len(req.Items))}
	for i, item := range req.Items {
		result, err := s.EndDate(item)
		if err != nil {
			appErr := appErrors.FromError(err)
			s.logger.Debug("end date preview item rejected", zap.Int("index", i), zap.String("code", appErr.Code))
			resp.Items = append(resp.Items, dto.EndDatePreviewItem{Index: i, Error: appErr})
			resp.Failed++
			continue
		}
		resp.Items = append(resp.Items, dto.EndDatePreviewItem{Index: i, Result: result})
	}
	return resp, nil
}

// Classify returns the lifecycle status of one subscription on asOf (today when missing).
func (s *SubscriptionService) Classify(ctx context.Context, id string, asOf models.Date) (*dto.SubscriptionStatusResponse, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subscription id is required")
	}
	sub, err := s.subscriptions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subscription not found")
		}
		return nil, appErrors.Internal(err, "failed to load subscription")
	}
	asOf = s.clock.dateOrToday(asOf)

	name := engine.UnknownClientName
	if sub.UserID != "" {
		users, err := s.users.ListByIDs(ctx, []string{sub.UserID})
		if err != nil {
			s.logger.Warn("client lookup failed", zap.String("user_id", sub.UserID), zap.Error(err))
		} else if len(users) > 0 {
			name = engine.DisplayName(users[0])
		}
	}

	return &dto.SubscriptionStatusResponse{
		AsOf:           asOf,
		Subscription:   *sub,
		ClientName:     name,
		Classification: engine.Classify(*sub, asOf),
	}, nil
}

// Alerts builds the ending-soon, expiring-today and lapsed lists for date (today when missing).
func (s *SubscriptionService) Alerts(ctx context.Context, date models.Date) (*dto.SubscriptionAlertsResponse, error) {
	date = s.clock.dateOrToday(date)
	subs, err := s.subscriptions.List(ctx, models.SubscriptionFilter{
		Statuses: []models.SubscriptionStatus{models.SubscriptionStatusActive},
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load subscriptions")
	}
	users, err := s.users.ListByIDs(ctx, collectUserIDs(nil, subs))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load clients")
	}
	return &dto.SubscriptionAlertsResponse{
		Date:               date,
		SubscriptionAlerts: engine.BuildAlerts(subs, users, date),
	}, nil
}
