package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-course-core/internal/models"
	appErrors "github.com/noah-isme/lms-course-core/pkg/errors"
)

// DeleteOptions controls how a course is deleted.
type DeleteOptions struct {
	HardDelete      bool
	CascadeChildren bool
}

// Delete trashes or removes a course. A course without an id is a no-op and an
// id naming any other kind of record is NOT_FOUND.
//
// A hard delete with CascadeChildren first removes every section, lesson,
// quiz and question of the course regardless of status. Child failures do not
// stop the cascade; when any child fails the course record is kept so the call
// can be repeated, and the joined child errors are returned.
func (s *CourseService) Delete(ctx context.Context, course *models.Course, opts DeleteOptions) (err error) {
	if course == nil || course.ID == 0 {
		return nil
	}
	start := time.Now()
	defer func() { s.metrics.ObserveOperation("delete", time.Since(start), err) }()

	missing, err := s.checkDeletable(ctx, course.ID)
	if err != nil {
		return err
	}

	if !opts.HardDelete {
		if missing {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return s.trash(ctx, course)
	}

	if opts.CascadeChildren {
		if err := s.deleteChildren(ctx, course.ID); err != nil {
			return err
		}
	}

	if err := s.removeObject(ctx, course.ID); err != nil {
		return err
	}
	s.cache.InvalidateCourse(ctx, course.ID)
	s.logger.Info("course deleted",
		zap.Int64("course_id", course.ID),
		zap.Bool("cascade", opts.CascadeChildren),
	)
	course.ID = 0
	return nil
}

// Restore moves a trashed course back to the status it had before trashing.
func (s *CourseService) Restore(ctx context.Context, id int64) (err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOperation("restore", time.Since(start), err) }()

	course, err := s.mapper.read(ctx, id)
	if err != nil {
		return err
	}
	if course.Status != models.CourseStatusTrashed {
		return nil
	}

	values, err := s.attributes.GetAll(ctx, id)
	if err != nil {
		return err
	}
	status := models.CourseStatus(values[models.AttrTrashStatus])
	if status == "" || status == models.CourseStatusTrashed {
		status = models.CourseStatusDraft
	}

	if err := s.records.UpdateStatus(ctx, id, string(status), s.now().UTC()); err != nil {
		return err
	}
	if err := s.attributes.DeleteNames(ctx, id, []string{models.AttrTrashStatus}); err != nil {
		return err
	}
	s.cache.InvalidateCourse(ctx, id)
	s.logger.Info("course restored", zap.Int64("course_id", id), zap.String("status", string(status)))
	return nil
}

func (s *CourseService) trash(ctx context.Context, course *models.Course) error {
	if course.Status == models.CourseStatusTrashed {
		return nil
	}

	previous := course.Status
	if previous == "" {
		previous = models.CourseStatusDraft
	}
	if err := s.attributes.BulkUpsert(ctx, course.ID, map[string]string{models.AttrTrashStatus: string(previous)}); err != nil {
		return err
	}
	if err := s.records.UpdateStatus(ctx, course.ID, string(models.CourseStatusTrashed), s.now().UTC()); err != nil {
		return err
	}
	course.Status = models.CourseStatusTrashed
	s.cache.InvalidateCourse(ctx, course.ID)
	s.logger.Info("course trashed", zap.Int64("course_id", course.ID), zap.String("previous_status", string(previous)))
	return nil
}

// deleteChildren removes questions before the records that parent them, then
// items before their sections.
func (s *CourseService) deleteChildren(ctx context.Context, courseID int64) error {
	children, err := s.records.ListByCourse(ctx, courseID, models.CurriculumTypes, "")
	if err != nil {
		return err
	}

	var parents []int64
	for _, child := range children {
		if child.ContentType.HasQuestions() {
			parents = append(parents, child.ID)
		}
	}
	questions, err := s.records.ListByParents(ctx, parents, []models.ContentType{models.ContentTypeQuestion})
	if err != nil {
		return err
	}

	ordered := make([]models.ChildRecord, 0, len(questions)+len(children))
	ordered = append(ordered, questions...)
	for _, child := range children {
		if child.ContentType != models.ContentTypeSection {
			ordered = append(ordered, child)
		}
	}
	for _, child := range children {
		if child.ContentType == models.ContentTypeSection {
			ordered = append(ordered, child)
		}
	}

	var errs []error
	for _, child := range ordered {
		if err := s.removeObject(ctx, child.ID); err != nil {
			s.metrics.RecordCascadeFailure()
			s.logger.Warn("cascade delete child failed",
				zap.Int64("course_id", courseID),
				zap.Int64("child_id", child.ID),
				zap.String("content_type", string(child.ContentType)),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("delete %s %d: %w", child.ContentType, child.ID, err))
		}
	}
	return errors.Join(errs...)
}

// removeObject drops the record with its attributes and associations as one
// unit, so a failed call leaves the object discoverable for a retry.
func (s *CourseService) removeObject(ctx context.Context, id int64) error {
	return s.records.Delete(ctx, id)
}

// checkDeletable rejects ids that name something other than a course. A
// record that is already gone is reported as missing so a hard delete can
// finish cleaning up after it.
func (s *CourseService) checkDeletable(ctx context.Context, id int64) (missing bool, err error) {
	record, err := s.records.FindByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if record.ContentType != models.ContentTypeCourse {
		return false, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return false, nil
}
