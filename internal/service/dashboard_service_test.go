package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/studio-ops-api/internal/dto"
	"github.com/noah-isme/studio-ops-api/internal/models"
	appErrors "github.com/noah-isme/studio-ops-api/pkg/errors"
)

var dashboardNow = time.Date(2025, 3, 1, 23, 30, 0, 0, time.UTC)

type dashboardFixture struct {
	classes *fakeClasses
	books   *fakeBookings
	users   *fakeUsers
	subs    *fakeSubscriptions
	cache   *memoryCacheRepo
	metrics *MetricsService
	svc     *DashboardService
}

func newDashboardFixture(loc *time.Location) *dashboardFixture {
	today := models.NewDate(2025, time.March, 1)
	f := &dashboardFixture{
		classes: &fakeClasses{sessions: []models.ClassSession{
			{ID: "c1", Name: "Reformer AM", Date: today, Time: "09:00", InstructorID: strPtr("ins-1"), MaxCapacity: intPtr(8)},
			{ID: "c2", Name: "Mat", Date: today.AddDays(1), Time: "10:00", InstructorID: strPtr("ins-2")},
			{ID: "c3", Name: "Barre", Date: today.AddDays(7), Time: "18:00", InstructorID: strPtr("ins-1")},
		}},
		books: &fakeBookings{},
		users: &fakeUsers{users: []models.User{{ID: "u1", FullName: "Ana"}, {ID: "u2", FullName: "Budi"}}},
		subs: &fakeSubscriptions{subs: []models.Subscription{
			{ID: "s1", UserID: "u1", Status: models.SubscriptionStatusActive, EndDate: today.AddDays(3), MonthlyClassQuota: 8, RemainingClasses: 2},
			{ID: "s2", UserID: "u2", Status: models.SubscriptionStatusActive, EndDate: today, MonthlyClassQuota: 999},
		}},
		cache:   newMemoryCacheRepo(),
		metrics: NewMetricsService(),
	}
	for i := 0; i < 5; i++ {
		f.books.bookings = append(f.books.bookings, models.Booking{ID: "b" + string(rune('a'+i)), ClassID: "c1", UserID: "u1", Status: models.BookingConfirmed})
	}
	f.books.bookings = append(f.books.bookings,
		models.Booking{ID: "w1", ClassID: "c1", UserID: "u2", Status: models.BookingWaitlist},
		models.Booking{ID: "w2", ClassID: "c1", UserID: "ghost", Status: models.BookingWaitlist},
	)
	cacheSvc := NewCacheService(CacheServiceParams{Repo: f.cache, Metrics: f.metrics, Enabled: true})
	f.svc = NewDashboardService(DashboardServiceParams{
		Classes:       f.classes,
		Bookings:      f.books,
		Users:         f.users,
		Subscriptions: f.subs,
		Cache:         cacheSvc,
		Metrics:       f.metrics,
		Logger:        zap.NewNop(),
		Location:      loc,
		Now:           fixedNow(dashboardNow),
		Config:        DashboardServiceConfig{CacheTTL: time.Minute, LastGoodTTL: time.Hour},
	})
	return f
}

func TestDashboardOperationsComposesAndCaches(t *testing.T) {
	f := newDashboardFixture(time.UTC)

	payload, hit, stale, err := f.svc.Operations(context.Background(), dto.OperationsDashboardRequest{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.False(t, stale)
	assert.Equal(t, models.NewDate(2025, time.March, 1), payload.Date)

	require.Len(t, payload.Classes.Today, 1)
	today := payload.Classes.Today[0]
	assert.Equal(t, 5, today.ConfirmedCount)
	assert.Equal(t, 2, today.WaitlistCount)
	assert.Equal(t, 63, today.BookingPercentage)
	assert.Equal(t, "Unknown Client", today.WaitlistClients[1].Name)
	assert.Equal(t, models.DaySummary{TotalClasses: 1, WaitlistTotal: 2, TotalConfirmedBookings: 5, TotalAvailableSpots: 3}, payload.Classes.Summary)
	assert.Len(t, payload.Classes.Tomorrow, 1)
	assert.Len(t, payload.Classes.ThisWeek, 2)

	require.NotNil(t, payload.Subscriptions)
	require.Len(t, payload.Subscriptions.EndingSoon, 1)
	assert.Equal(t, "s1", payload.Subscriptions.EndingSoon[0].Subscription.ID)
	require.Len(t, payload.Subscriptions.ExpiringToday, 1)
	assert.Equal(t, "s2", payload.Subscriptions.ExpiringToday[0].Subscription.ID)

	assert.Equal(t, models.NewDate(2025, time.March, 8), f.classes.last.To)
	assert.Equal(t, []string{"ghost", "u1", "u2"}, f.users.asked)
	assert.True(t, f.cache.has("dash:ops:2025-03-01"))
	assert.True(t, f.cache.has("dash:ops-last:2025-03-01"))
	assert.Equal(t, time.Hour, f.cache.ttls["dash:ops-last:2025-03-01"])
	assert.Equal(t, int64(3), f.metrics.Snapshot().LastClassesAggregated)

	again, hit, _, err := f.svc.Operations(context.Background(), dto.OperationsDashboardRequest{})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, f.classes.calls)
	assert.Equal(t, payload.Classes.Summary, again.Classes.Summary)
}

func TestDashboardOperationsUsesStudioTimezone(t *testing.T) {
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)
	f := newDashboardFixture(jakarta)

	payload, _, _, err := f.svc.Operations(context.Background(), dto.OperationsDashboardRequest{})
	require.NoError(t, err)
	// 23:30 UTC is already the next morning in Jakarta.
	assert.Equal(t, models.NewDate(2025, time.March, 2), payload.Date)
	require.Len(t, payload.Classes.Today, 1)
	assert.Equal(t, "c2", payload.Classes.Today[0].Session.ID)
}

func TestDashboardOperationsInstructorScope(t *testing.T) {
	f := newDashboardFixture(time.UTC)

	payload, _, _, err := f.svc.Operations(context.Background(), dto.OperationsDashboardRequest{InstructorID: "ins-1"})
	require.NoError(t, err)
	assert.Nil(t, payload.Subscriptions)
	assert.Equal(t, 0, f.subs.calls)
	assert.Len(t, payload.Classes.Today, 1)
	assert.Empty(t, payload.Classes.Tomorrow)
	assert.True(t, f.cache.has("dash:ops:2025-03-01:ins-1"))
}

func TestDashboardOperationsServesLastGoodOnFailure(t *testing.T) {
	f := newDashboardFixture(time.UTC)
	_, _, _, err := f.svc.Operations(context.Background(), dto.OperationsDashboardRequest{})
	require.NoError(t, err)
	require.NoError(t, f.cache.DeleteByPattern(context.Background(), "dash:ops:*"))

	f.classes.err = errors.New("connection refused")
	payload, hit, stale, err := f.svc.Operations(context.Background(), dto.OperationsDashboardRequest{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.True(t, stale)
	assert.Equal(t, 5, payload.Classes.Summary.TotalConfirmedBookings)
}

func TestDashboardOperationsFailsWithoutLastGood(t *testing.T) {
	f := newDashboardFixture(time.UTC)
	f.books.err = errors.New("timeout")

	_, _, _, err := f.svc.Operations(context.Background(), dto.OperationsDashboardRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestDashboardOperationsWithoutCache(t *testing.T) {
	f := newDashboardFixture(time.UTC)
	svc := NewDashboardService(DashboardServiceParams{
		Classes:  f.classes,
		Bookings: f.books,
		Users:    f.users,
		Now:      fixedNow(dashboardNow),
	})

	payload, hit, stale, err := svc.Operations(context.Background(), dto.OperationsDashboardRequest{Date: models.NewDate(2025, time.March, 2)})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.False(t, stale)
	assert.Nil(t, payload.Subscriptions)
	assert.Len(t, payload.Classes.Today, 1)
}

func TestDashboardRefreshInvalidatesAndRecomputes(t *testing.T) {
	f := newDashboardFixture(time.UTC)
	_, _, _, err := f.svc.Operations(context.Background(), dto.OperationsDashboardRequest{InstructorID: "ins-1"})
	require.NoError(t, err)

	n, err := f.svc.Refresh(context.Background(), models.Date{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Contains(t, f.cache.deleted, "dash:ops:2025-03-01:ins-1")
	assert.True(t, f.cache.has("dash:ops:2025-03-01"))
	assert.True(t, f.cache.has("dash:ops-last:2025-03-01:ins-1"))
}
