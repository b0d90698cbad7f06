package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-course-core/internal/models"
	appErrors "github.com/noah-isme/lms-course-core/pkg/errors"
)

type courseRecordMapper struct {
	records contentRepository
	now     func() time.Time
	logger  *zap.Logger
}

func (m *courseRecordMapper) create(ctx context.Context, actorID int64, course *models.Course) (int64, error) {
	now := m.now().UTC()
	if course.AuthorID == 0 {
		course.AuthorID = actorID
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.ModifiedAt = now
	if course.Status == "" {
		course.Status = models.CourseStatusDraft
	}
	if course.Slug == "" {
		course.Slug = slugify(course.Name)
	}

	id, err := m.records.Create(ctx, toContentRecord(course))
	if err != nil {
		return 0, err
	}
	course.ID = id
	return id, nil
}

func (m *courseRecordMapper) read(ctx context.Context, id int64) (*models.Course, error) {
	record, err := m.records.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, err
	}
	if record.ContentType != models.ContentTypeCourse {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return fromContentRecord(record), nil
}

// update writes the primary record. Without primary changes only the modified
// timestamp is bumped. An author change re-authors every descendant in bulk.
func (m *courseRecordMapper) update(ctx context.Context, course *models.Course, changes map[string]bool) error {
	course.ModifiedAt = m.now().UTC()

	if !anyChanged(changes, models.PrimaryFields) {
		return m.records.Touch(ctx, course.ID, course.ModifiedAt)
	}

	if err := m.records.Update(ctx, toContentRecord(course)); err != nil {
		return err
	}

	if changes[models.FieldAuthorID] {
		affected, err := m.records.ReassignAuthorByCourse(ctx, course.ID, course.AuthorID)
		if err != nil {
			return err
		}
		m.logger.Info("course children re-authored",
			zap.Int64("course_id", course.ID),
			zap.Int64("author_id", course.AuthorID),
			zap.Int64("records", affected),
		)
	}
	return nil
}

func toContentRecord(course *models.Course) *models.ContentRecord {
	return &models.ContentRecord{
		ID:           course.ID,
		ContentType:  models.ContentTypeCourse,
		Title:        course.Name,
		Slug:         course.Slug,
		Body:         course.Description,
		Excerpt:      course.ShortDescription,
		Status:       string(course.Status),
		ParentID:     course.ParentID,
		AuthorID:     course.AuthorID,
		MenuOrder:    course.MenuOrder,
		Password:     course.Password,
		CommentsOpen: course.ReviewsAllowed,
		CreatedAt:    course.CreatedAt.UTC(),
		ModifiedAt:   course.ModifiedAt.UTC(),
	}
}

func fromContentRecord(record *models.ContentRecord) *models.Course {
	return &models.Course{
		ID:               record.ID,
		Name:             record.Title,
		Slug:             record.Slug,
		Description:      record.Body,
		ShortDescription: record.Excerpt,
		Status:           models.CourseStatus(record.Status),
		ParentID:         record.ParentID,
		AuthorID:         record.AuthorID,
		MenuOrder:        record.MenuOrder,
		Password:         record.Password,
		ReviewsAllowed:   record.CommentsOpen,
		CreatedAt:        record.CreatedAt.UTC(),
		ModifiedAt:       record.ModifiedAt.UTC(),
	}
}

// slugify lowercases the name and joins alphanumeric runs with dashes.
func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
