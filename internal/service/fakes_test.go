package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"path"
	"sync"
	"time"

	"github.com/noah-isme/studio-ops-api/internal/models"
	appErrors "github.com/noah-isme/studio-ops-api/pkg/errors"
)

type memoryCacheRepo struct {
	mu      sync.Mutex
	items   map[string][]byte
	ttls    map[string]time.Duration
	deleted []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = raw
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.items {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.items, key)
			m.deleted = append(m.deleted, key)
		}
	}
	return nil
}

func (m *memoryCacheRepo) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[key]
	return ok
}

type fakeClasses struct {
	sessions []models.ClassSession
	err      error
	calls    int
	last     models.ClassSessionFilter
}

func (f *fakeClasses) ListBetween(_ context.Context, filter models.ClassSessionFilter) ([]models.ClassSession, error) {
	f.calls++
	f.last = filter
	if f.err != nil {
		return nil, f.err
	}
	var out []models.ClassSession
	for _, s := range f.sessions {
		if s.Date.Before(filter.From) || s.Date.After(filter.To) {
			continue
		}
		if filter.InstructorID != "" && (s.InstructorID == nil || *s.InstructorID != filter.InstructorID) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

type fakeBookings struct {
	bookings []models.Booking
	err      error
}

func (f *fakeBookings) ListByClassIDs(_ context.Context, ids []string) ([]models.Booking, error) {
	if f.err != nil {
		return nil, f.err
	}
	wanted := map[string]bool{}
	for _, id := range ids {
		wanted[id] = true
	}
	var out []models.Booking
	for _, b := range f.bookings {
		if wanted[b.ClassID] {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakeUsers struct {
	users []models.User
	err   error
	asked []string
}

func (f *fakeUsers) ListByIDs(_ context.Context, ids []string) ([]models.User, error) {
	f.asked = ids
	if f.err != nil {
		return nil, f.err
	}
	return f.users, nil
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			u := u
			return &u, nil
		}
	}
	return nil, appErrors.ErrNotFound
}

type fakeSubscriptions struct {
	subs  []models.Subscription
	err   error
	calls int
}

func (f *fakeSubscriptions) List(_ context.Context, filter models.SubscriptionFilter) ([]models.Subscription, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.subs, nil
}

func (f *fakeSubscriptions) FindByID(_ context.Context, id string) (*models.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, s := range f.subs {
		if s.ID == id {
			s := s
			return &s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
