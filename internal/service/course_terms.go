package service

import (
	"context"
	"fmt"

	"github.com/noah-isme/lms-course-core/internal/models"
)

type termSynchronizer struct {
	terms             termRepository
	defaultCategoryID int64
}

type classificationSet struct {
	field string
	kind  models.TermKind
	ids   *[]int64
}

func classificationSets(course *models.Course) []classificationSet {
	return []classificationSet{
		{field: models.FieldCategoryIDs, kind: models.TermKindCategory, ids: &course.CategoryIDs},
		{field: models.FieldTagIDs, kind: models.TermKindTag, ids: &course.TagIDs},
		{field: models.FieldDifficultyIDs, kind: models.TermKindDifficulty, ids: &course.DifficultyIDs},
	}
}

// sync replaces each classification set that is forced or present in the
// change set. An empty category set falls back to the default category.
func (s *termSynchronizer) sync(ctx context.Context, course *models.Course, changes map[string]bool, force bool) error {
	for _, set := range classificationSets(course) {
		if !force && !changes[set.field] {
			continue
		}
		ids := uniqueIDs(*set.ids)
		if set.kind == models.TermKindCategory && len(ids) == 0 && s.defaultCategoryID > 0 {
			ids = []int64{s.defaultCategoryID}
		}
		if err := s.terms.Replace(ctx, course.ID, set.kind, ids); err != nil {
			return err
		}
		*set.ids = ids
	}
	return nil
}

// syncVisibility persists the derived visibility tags.
func (s *termSynchronizer) syncVisibility(ctx context.Context, course *models.Course) error {
	ids, err := s.terms.EnsureSlugs(ctx, models.TermKindVisibility, course.VisibilityTerms)
	if err != nil {
		return err
	}
	return s.terms.Replace(ctx, course.ID, models.TermKindVisibility, ids)
}

// load reads the classification sets and visibility flags of a course.
func (s *termSynchronizer) load(ctx context.Context, course *models.Course) error {
	for _, set := range classificationSets(course) {
		terms, err := s.terms.ListByObject(ctx, course.ID, set.kind)
		if err != nil {
			return fmt.Errorf("load %s: %w", set.kind, err)
		}
		ids := make([]int64, 0, len(terms))
		for _, term := range terms {
			ids = append(ids, term.ID)
		}
		if len(ids) == 0 {
			ids = nil
		}
		*set.ids = ids
	}

	terms, err := s.terms.ListByObject(ctx, course.ID, models.TermKindVisibility)
	if err != nil {
		return fmt.Errorf("load %s: %w", models.TermKindVisibility, err)
	}
	slugs := make([]string, 0, len(terms))
	for _, term := range terms {
		slugs = append(slugs, term.Slug)
	}
	applyVisibilityTerms(course, slugs)
	return nil
}

// termIDsBySlug resolves visibility slugs without creating terms.
func (s *termSynchronizer) termIDsBySlug(ctx context.Context, slugs ...string) (map[string]int64, error) {
	terms, err := s.terms.FindBySlugs(ctx, models.TermKindVisibility, slugs)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]int64, len(terms))
	for _, term := range terms {
		ids[term.Slug] = term.ID
	}
	return ids, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
