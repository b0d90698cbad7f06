package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-course-core/internal/models"
	appErrors "github.com/noah-isme/lms-course-core/pkg/errors"
)

type memoryCacheRepo struct {
	store  map[string][]byte
	getErr error
	ttls   map[string]time.Duration
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{store: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.store[key] = raw
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCacheRepo) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.store, key)
	}
	return nil
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), false)

	svc.SetCourse(context.Background(), &models.Course{ID: 1})
	_, ok := svc.GetCourse(context.Background(), 1)
	assert.False(t, ok)
	assert.Empty(t, repo.store)

	var nilService *CacheService
	assert.False(t, nilService.Enabled())
}

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, 0, zap.NewNop(), true)

	svc.SetCourse(context.Background(), &models.Course{ID: 3, Name: "Cached", SalePrice: floatPtr(5)})
	assert.Equal(t, 10*time.Minute, repo.ttls["course:3"])

	got, ok := svc.GetCourse(context.Background(), 3)
	require.True(t, ok)
	assert.Equal(t, "Cached", got.Name)
	assert.Equal(t, float64(5), got.SalePriceValue())

	svc.InvalidateCourse(context.Background(), 3)
	_, ok = svc.GetCourse(context.Background(), 3)
	assert.False(t, ok)
}

func TestCacheServiceErrorIsMiss(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.getErr = errors.New("connection refused")
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)

	_, ok := svc.GetCourse(context.Background(), 3)
	assert.False(t, ok)
}

func TestCourseServiceReadUsesCache(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	f := newCourseFixture(cache)
	id := f.create(t, &models.Course{Name: "Popular", RegularPrice: 15})

	first, err := f.service.Read(context.Background(), id)
	require.NoError(t, err)
	assert.Contains(t, repo.store, courseKey(id))

	delete(f.content.items, id)
	cached, err := f.service.Read(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, first.Name, cached.Name)
	assert.Equal(t, first.RegularPrice, cached.RegularPrice)
	assert.Empty(t, cached.Changes())

	f.content.items[id] = &models.ContentRecord{ID: id, ContentType: models.ContentTypeCourse, Title: "Popular"}
	cached.MaxStudents = 3
	require.NoError(t, f.service.Update(context.Background(), cached))
	assert.NotContains(t, repo.store, courseKey(id))
}

func TestCourseServiceCachedReadFollowsSaleWindow(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	f := newCourseFixture(cache)
	saleEnds := testNow.Add(time.Minute)
	id := f.create(t, &models.Course{Name: "Flash Sale", RegularPrice: 100, SalePrice: floatPtr(50), SaleTo: &saleEnds})

	during, err := f.service.Read(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, float64(50), during.EffectivePrice)
	require.Contains(t, repo.store, courseKey(id))

	f.now = testNow.Add(10 * time.Minute)
	delete(f.content.items, id)
	after, err := f.service.Read(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, float64(100), after.EffectivePrice)
	assert.Equal(t, models.PriceTypePaid, after.PriceType)
	assert.Empty(t, after.Changes())
}
