package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-course-core/internal/models"
	appErrors "github.com/noah-isme/lms-course-core/pkg/errors"
)

type contentRepository interface {
	Create(ctx context.Context, record *models.ContentRecord) (int64, error)
	FindByID(ctx context.Context, id int64) (*models.ContentRecord, error)
	Update(ctx context.Context, record *models.ContentRecord) error
	Touch(ctx context.Context, id int64, modifiedAt time.Time) error
	UpdateStatus(ctx context.Context, id int64, status string, modifiedAt time.Time) error
	Delete(ctx context.Context, id int64) error
	ReassignAuthorByCourse(ctx context.Context, courseID, authorID int64) (int64, error)
	ListByCourse(ctx context.Context, courseID int64, types []models.ContentType, status string) ([]models.ChildRecord, error)
	ListByParents(ctx context.Context, parentIDs []int64, types []models.ContentType) ([]models.ChildRecord, error)
	ListCourses(ctx context.Context, filter models.CourseFilter) ([]int64, int, error)
}

type attributeRepository interface {
	GetAll(ctx context.Context, objectID int64) (map[string]string, error)
	BulkUpsert(ctx context.Context, objectID int64, values map[string]string) error
	DeleteNames(ctx context.Context, objectID int64, names []string) error
}

type termRepository interface {
	ListByObject(ctx context.Context, objectID int64, kind models.TermKind) ([]models.Term, error)
	Replace(ctx context.Context, objectID int64, kind models.TermKind, termIDs []int64) error
	FindBySlugs(ctx context.Context, kind models.TermKind, slugs []string) ([]models.Term, error)
	EnsureSlugs(ctx context.Context, kind models.TermKind, slugs []string) ([]int64, error)
}

// CourseOptions tunes a CourseService.
type CourseOptions struct {
	DefaultCategoryID int64
	PageSize          int
	Now               func() time.Time
}

// CourseService persists the course aggregate and keeps its derived state in
// step with its inputs.
type CourseService struct {
	records    contentRepository
	attributes attributeRepository
	terms      termRepository
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
	pageSize   int

	mapper *courseRecordMapper
	sync   *termSynchronizer
}

// NewCourseService constructs CourseService.
func NewCourseService(records contentRepository, attributes attributeRepository, terms termRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, opts CourseOptions) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 20
	}
	return &CourseService{
		records:    records,
		attributes: attributes,
		terms:      terms,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		now:        opts.Now,
		pageSize:   opts.PageSize,
		mapper:     &courseRecordMapper{records: records, now: opts.Now, logger: logger},
		sync:       &termSynchronizer{terms: terms, defaultCategoryID: opts.DefaultCategoryID},
	}
}

// Create persists a new course on behalf of actorID and returns its id.
func (s *CourseService) Create(ctx context.Context, actorID int64, course *models.Course) (id int64, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOperation("create", time.Since(start), err) }()

	if course == nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "course is required")
	}
	if course.AccessMode == "" {
		course.AccessMode = models.AccessModePaid
	}
	if err := s.validate(course); err != nil {
		return 0, err
	}

	if _, err := s.mapper.create(ctx, actorID, course); err != nil {
		return 0, err
	}
	if err := s.attributes.BulkUpsert(ctx, course.ID, encodeAttributes(course, fullAttributeNames(course))); err != nil {
		return course.ID, err
	}
	if err := s.sync.sync(ctx, course, nil, true); err != nil {
		return course.ID, err
	}
	if err := s.applyPricing(ctx, course); err != nil {
		return course.ID, err
	}
	if err := s.applyVisibility(ctx, course); err != nil {
		return course.ID, err
	}

	course.MarkPersisted()
	s.logger.Info("course created",
		zap.Int64("course_id", course.ID),
		zap.Int64("author_id", course.AuthorID),
		zap.Int64("actor_id", actorID),
	)
	return course.ID, nil
}

// Read loads a course. Missing ids and non-course records yield NOT_FOUND.
func (s *CourseService) Read(ctx context.Context, id int64) (course *models.Course, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOperation("read", time.Since(start), err) }()

	// Cached entries carry stored inputs; the effective price depends on the
	// clock and is derived again on every hit.
	if cached, ok := s.cache.GetCourse(ctx, id); ok {
		cached.PriceType = priceTypeFor(cached.AccessMode)
		cached.EffectivePrice = effectivePrice(*cached, s.now())
		cached.MarkPersisted()
		return cached, nil
	}

	course, err = s.mapper.read(ctx, id)
	if err != nil {
		return nil, err
	}
	values, err := s.attributes.GetAll(ctx, id)
	if err != nil {
		return nil, err
	}
	decodeAttributes(course, values)
	if err := s.sync.load(ctx, course); err != nil {
		return nil, err
	}

	*course = RecomputeVisibility(*course)
	course.PriceType = priceTypeFor(course.AccessMode)
	course.EffectivePrice = effectivePrice(*course, s.now())

	course.MarkPersisted()
	s.cache.SetCourse(ctx, course)
	return course, nil
}

// Update writes only what changed since the course was read or last saved.
func (s *CourseService) Update(ctx context.Context, course *models.Course) (err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOperation("update", time.Since(start), err) }()

	if course == nil || course.ID == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "course has not been created")
	}
	if err := s.validate(course); err != nil {
		return err
	}

	changes := course.Changes()

	if err := s.mapper.update(ctx, course, changes); err != nil {
		return err
	}

	if names := changedAttributeNames(changes); len(names) > 0 {
		if err := s.attributes.BulkUpsert(ctx, course.ID, encodeAttributes(course, names)); err != nil {
			return err
		}
	}
	if removed := course.RemovedExtras(); len(removed) > 0 {
		if err := s.attributes.DeleteNames(ctx, course.ID, removed); err != nil {
			return err
		}
	}

	if err := s.sync.sync(ctx, course, changes, false); err != nil {
		return err
	}
	if anyChanged(changes, pricingInputs) {
		if err := s.applyPricing(ctx, course); err != nil {
			return err
		}
	}
	if anyChanged(changes, visibilityInputs) {
		if err := s.applyVisibility(ctx, course); err != nil {
			return err
		}
	}

	course.MarkPersisted()
	s.cache.InvalidateCourse(ctx, course.ID)
	s.logger.Debug("course updated", zap.Int64("course_id", course.ID), zap.Int("changes", len(changes)))
	return nil
}

// GetCourseContents lists the course curriculum as one ordered sequence.
// An empty status matches every status.
func (s *CourseService) GetCourseContents(ctx context.Context, courseID int64, status string) (items []models.ChildRecord, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOperation("contents", time.Since(start), err) }()

	records, err := s.records.ListByCourse(ctx, courseID, models.CurriculumTypes, status)
	if err != nil {
		return nil, err
	}
	return AssembleCurriculum(records).Flatten(), nil
}

// GetCourseStructure returns the published sections with their items.
func (s *CourseService) GetCourseStructure(ctx context.Context, courseID int64) (sections []CurriculumSection, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOperation("structure", time.Since(start), err) }()

	records, err := s.records.ListByCourse(ctx, courseID, models.CurriculumTypes, string(models.CourseStatusPublished))
	if err != nil {
		return nil, err
	}
	return AssembleCurriculum(records).Sections, nil
}

// applyPricing recomputes pricing and persists the derived attributes, plus
// any price the recompute healed.
func (s *CourseService) applyPricing(ctx context.Context, course *models.Course) error {
	priced := RecomputePricing(*course, s.now())

	var names []string
	if priced.RegularPrice != course.RegularPrice {
		names = append(names, models.AttrRegularPrice)
	}
	if !sameFloatPtr(priced.SalePrice, course.SalePrice) {
		names = append(names, models.AttrSalePrice)
	}
	names = append(names, models.AttrPrice, models.AttrPriceType)

	course.RegularPrice = priced.RegularPrice
	course.SalePrice = priced.SalePrice
	course.EffectivePrice = priced.EffectivePrice
	course.PriceType = priced.PriceType

	return s.attributes.BulkUpsert(ctx, course.ID, encodeAttributes(course, names))
}

func (s *CourseService) applyVisibility(ctx context.Context, course *models.Course) error {
	visible := RecomputeVisibility(*course)
	course.CatalogVisibility = visible.CatalogVisibility
	course.VisibilityTerms = visible.VisibilityTerms
	return s.sync.syncVisibility(ctx, course)
}

func (s *CourseService) validate(course *models.Course) error {
	if err := s.validator.Struct(course); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course")
	}
	for name := range course.Extra {
		if name == "" || reservedAttributes[name] {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("attribute name %q is reserved", name))
		}
	}
	return nil
}

func sameFloatPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
