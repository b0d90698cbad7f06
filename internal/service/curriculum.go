package service

import (
	"sort"

	"github.com/noah-isme/lms-course-core/internal/models"
)

// CurriculumSection is a section with its ordered lessons and quizzes.
type CurriculumSection struct {
	Section models.ChildRecord   `json:"section"`
	Items   []models.ChildRecord `json:"items"`
}

// Curriculum is the ordered two-level tree of a course.
type Curriculum struct {
	Sections []CurriculumSection `json:"sections"`
}

// AssembleCurriculum builds the curriculum from a flat fetch. Sections and
// their items are ordered by menu order; ties keep fetch order. Items whose
// parent is not a fetched section are left out.
func AssembleCurriculum(records []models.ChildRecord) Curriculum {
	var sections []models.ChildRecord
	itemsByParent := make(map[int64][]models.ChildRecord)
	for _, record := range records {
		switch {
		case record.ContentType == models.ContentTypeSection:
			sections = append(sections, record)
		case record.ContentType.IsSectionItem():
			itemsByParent[record.ParentID] = append(itemsByParent[record.ParentID], record)
		}
	}

	sortByMenuOrder(sections)

	curriculum := Curriculum{Sections: make([]CurriculumSection, 0, len(sections))}
	for _, section := range sections {
		items := append([]models.ChildRecord{}, itemsByParent[section.ID]...)
		sortByMenuOrder(items)
		curriculum.Sections = append(curriculum.Sections, CurriculumSection{Section: section, Items: items})
	}
	return curriculum
}

// Flatten lists each section followed by its items.
func (c Curriculum) Flatten() []models.ChildRecord {
	out := make([]models.ChildRecord, 0)
	for _, section := range c.Sections {
		out = append(out, section.Section)
		out = append(out, section.Items...)
	}
	return out
}

func sortByMenuOrder(records []models.ChildRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].MenuOrder < records[j].MenuOrder
	})
}
