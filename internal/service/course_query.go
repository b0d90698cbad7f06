package service

import (
	"context"
	"sort"
	"time"

	"github.com/noah-isme/lms-course-core/internal/models"
	appErrors "github.com/noah-isme/lms-course-core/pkg/errors"
)

const maxPageSize = 100

// Query lists hydrated courses matching the query along with pagination metadata.
func (s *CourseService) Query(ctx context.Context, query models.CourseQuery) (courses []*models.Course, pagination *models.Pagination, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOperation("query", time.Since(start), err) }()

	filter, empty, err := s.translateQuery(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	pagination = &models.Pagination{Page: filter.Page, PageSize: filter.PageSize}
	if empty {
		return []*models.Course{}, pagination, nil
	}

	ids, total, err := s.records.ListCourses(ctx, filter)
	if err != nil {
		return nil, nil, err
	}

	courses = make([]*models.Course, 0, len(ids))
	for _, id := range ids {
		course, err := s.Read(ctx, id)
		if err != nil {
			// deleted between the listing and the read
			if appErrors.IsNotFound(err) {
				continue
			}
			return nil, nil, err
		}
		courses = append(courses, course)
	}

	pagination.TotalCount = total
	pagination.TotalPages = (total + filter.PageSize - 1) / filter.PageSize
	return courses, pagination, nil
}

// translateQuery maps caller criteria onto the storage filter. It reports
// empty when the criteria cannot match any course.
func (s *CourseService) translateQuery(ctx context.Context, query models.CourseQuery) (models.CourseFilter, bool, error) {
	filter := models.CourseFilter{
		AuthorID:  query.AuthorID,
		ParentID:  query.ParentID,
		Search:    query.Search,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
		Page:      query.Page,
		PageSize:  query.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = s.pageSize
	}
	if filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}

	statuses := query.Statuses
	if len(statuses) == 0 {
		statuses = []models.CourseStatus{models.CourseStatusPublished}
	}
	for _, status := range statuses {
		filter.Statuses = append(filter.Statuses, string(status))
	}

	for _, ids := range [][]int64{query.CategoryIDs, query.TagIDs, query.DifficultyIDs} {
		if group := uniqueIDs(ids); len(group) > 0 {
			filter.TermGroups = append(filter.TermGroups, group)
		}
	}

	if query.Featured != nil || query.CatalogOnly {
		terms, err := s.sync.termIDsBySlug(ctx, models.VisibilityFeatured, models.VisibilityExcludeFromCatalog)
		if err != nil {
			return filter, false, err
		}
		if query.Featured != nil {
			featuredID, ok := terms[models.VisibilityFeatured]
			switch {
			case *query.Featured && !ok:
				return filter, true, nil
			case *query.Featured:
				filter.TermGroups = append(filter.TermGroups, []int64{featuredID})
			case ok:
				filter.ExcludeTermIDs = append(filter.ExcludeTermIDs, featuredID)
			}
		}
		if id, ok := terms[models.VisibilityExcludeFromCatalog]; ok && query.CatalogOnly {
			filter.ExcludeTermIDs = append(filter.ExcludeTermIDs, id)
		}
	}

	if query.PriceType != "" {
		filter.AttributeMatches = append(filter.AttributeMatches, models.AttributeMatch{Name: models.AttrPriceType, Value: string(query.PriceType)})
	}

	names := make([]string, 0, len(query.Attributes))
	for name := range query.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		filter.AttributeMatches = append(filter.AttributeMatches, models.AttributeMatch{Name: name, Value: query.Attributes[name]})
	}

	return filter, false, nil
}
