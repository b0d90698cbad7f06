package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-course-core/internal/models"
	appErrors "github.com/noah-isme/lms-course-core/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CacheService is the advisory per-process course read cache. Failures are
// logged and treated as misses; correctness never depends on it.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

func courseKey(id int64) string {
	return fmt.Sprintf("course:%d", id)
}

// GetCourse returns the cached course and true on a hit.
func (s *CacheService) GetCourse(ctx context.Context, id int64) (*models.Course, bool) {
	if !s.Enabled() {
		return nil, false
	}
	start := time.Now()
	var course models.Course
	err := s.repo.Get(ctx, courseKey(id), &course)
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordCacheOperation(false, duration)
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("cache get failed", zap.Int64("course_id", id), zap.Error(err))
		}
		return nil, false
	}
	s.metrics.RecordCacheOperation(true, duration)
	return &course, true
}

// SetCourse stores the course.
func (s *CacheService) SetCourse(ctx context.Context, course *models.Course) {
	if !s.Enabled() || course == nil || course.ID == 0 {
		return
	}
	start := time.Now()
	err := s.repo.Set(ctx, courseKey(course.ID), course, s.defaultTTL)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.Int64("course_id", course.ID), zap.Error(err))
	}
}

// InvalidateCourse drops the cached course.
func (s *CacheService) InvalidateCourse(ctx context.Context, id int64) {
	if !s.Enabled() || id == 0 {
		return
	}
	if err := s.repo.Delete(ctx, courseKey(id)); err != nil {
		s.logger.Warn("cache invalidate failed", zap.Int64("course_id", id), zap.Error(err))
	}
}
