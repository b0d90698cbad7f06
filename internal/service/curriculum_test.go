package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-course-core/internal/models"
)

func curriculumFixture() []models.ChildRecord {
	return []models.ChildRecord{
		{ID: 1, ContentType: models.ContentTypeSection, MenuOrder: 3},
		{ID: 2, ContentType: models.ContentTypeSection, MenuOrder: 1},
		{ID: 3, ContentType: models.ContentTypeSection, MenuOrder: 2},
		{ID: 10, ParentID: 1, ContentType: models.ContentTypeLesson, MenuOrder: 1},
		{ID: 11, ParentID: 1, ContentType: models.ContentTypeQuiz, MenuOrder: 0},
		{ID: 20, ParentID: 2, ContentType: models.ContentTypeLesson, MenuOrder: 1},
		{ID: 21, ParentID: 2, ContentType: models.ContentTypeLesson, MenuOrder: 0},
		{ID: 30, ParentID: 3, ContentType: models.ContentTypeQuiz, MenuOrder: 1},
		{ID: 31, ParentID: 3, ContentType: models.ContentTypeLesson, MenuOrder: 0},
	}
}

func sectionIDs(c Curriculum) []int64 {
	var ids []int64
	for _, section := range c.Sections {
		ids = append(ids, section.Section.ID)
	}
	return ids
}

func TestAssembleCurriculumOrdering(t *testing.T) {
	c := AssembleCurriculum(curriculumFixture())

	require.Len(t, c.Sections, 3)
	assert.Equal(t, []int64{2, 3, 1}, sectionIDs(c))
	for _, section := range c.Sections {
		require.Len(t, section.Items, 2)
		assert.Equal(t, 0, section.Items[0].MenuOrder)
		assert.Equal(t, 1, section.Items[1].MenuOrder)
	}

	assert.Equal(t, c, AssembleCurriculum(curriculumFixture()))
}

func TestAssembleCurriculumTiesKeepFetchOrder(t *testing.T) {
	c := AssembleCurriculum([]models.ChildRecord{
		{ID: 5, ContentType: models.ContentTypeSection},
		{ID: 4, ContentType: models.ContentTypeSection},
		{ID: 7, ParentID: 5, ContentType: models.ContentTypeLesson},
		{ID: 6, ParentID: 5, ContentType: models.ContentTypeQuiz},
	})
	assert.Equal(t, []int64{5, 4}, sectionIDs(c))
	assert.Equal(t, int64(7), c.Sections[0].Items[0].ID)
	assert.Equal(t, int64(6), c.Sections[0].Items[1].ID)
	assert.Empty(t, c.Sections[1].Items)
}

func TestAssembleCurriculumDropsOrphans(t *testing.T) {
	records := append(curriculumFixture(), models.ChildRecord{ID: 99, ParentID: 404, ContentType: models.ContentTypeLesson})
	c := AssembleCurriculum(records)

	for _, item := range c.Flatten() {
		assert.NotEqual(t, int64(99), item.ID)
	}
	assert.Len(t, c.Flatten(), 9)
}

func TestCurriculumFlattenMatchesSections(t *testing.T) {
	c := AssembleCurriculum(curriculumFixture())
	flat := c.Flatten()

	var ids []int64
	for _, item := range flat {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []int64{2, 21, 20, 3, 31, 30, 1, 11, 10}, ids)
}

func TestAssembleCurriculumEmpty(t *testing.T) {
	c := AssembleCurriculum(nil)
	assert.Empty(t, c.Sections)
	assert.NotNil(t, c.Flatten())
}
