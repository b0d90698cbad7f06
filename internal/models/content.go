package models

import "time"

// ContentType tags a content record. The set is closed.
type ContentType string

const (
	ContentTypeCourse   ContentType = "course"
	ContentTypeSection  ContentType = "section"
	ContentTypeLesson   ContentType = "lesson"
	ContentTypeQuiz     ContentType = "quiz"
	ContentTypeQuestion ContentType = "question"
)

// CurriculumTypes are the child kinds carrying a course association attribute.
var CurriculumTypes = []ContentType{ContentTypeSection, ContentTypeLesson, ContentTypeQuiz}

// Valid reports whether t is one of the known content types.
func (t ContentType) Valid() bool {
	switch t {
	case ContentTypeCourse, ContentTypeSection, ContentTypeLesson, ContentTypeQuiz, ContentTypeQuestion:
		return true
	}
	return false
}

// IsSectionItem reports whether records of this type live inside a section.
func (t ContentType) IsSectionItem() bool {
	switch t {
	case ContentTypeLesson, ContentTypeQuiz:
		return true
	}
	return false
}

// HasQuestions reports whether records of this type parent question records.
func (t ContentType) HasQuestions() bool {
	switch t {
	case ContentTypeLesson, ContentTypeQuiz:
		return true
	}
	return false
}

// ContentRecord is a row of the generic content store.
type ContentRecord struct {
	ID           int64       `db:"id" json:"id"`
	ContentType  ContentType `db:"content_type" json:"content_type"`
	Title        string      `db:"title" json:"title"`
	Slug         string      `db:"slug" json:"slug"`
	Body         string      `db:"body" json:"body"`
	Excerpt      string      `db:"excerpt" json:"excerpt"`
	Status       string      `db:"status" json:"status"`
	ParentID     int64       `db:"parent_id" json:"parent_id"`
	AuthorID     int64       `db:"author_id" json:"author_id"`
	MenuOrder    int         `db:"menu_order" json:"menu_order"`
	Password     string      `db:"password" json:"password,omitempty"`
	CommentsOpen bool        `db:"comments_open" json:"comments_open"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	ModifiedAt   time.Time   `db:"modified_at" json:"modified_at"`
}

// ChildRecord is the curriculum projection of a section, lesson, quiz or question.
type ChildRecord struct {
	ID          int64       `db:"id" json:"id"`
	ParentID    int64       `db:"parent_id" json:"parent_id"`
	ContentType ContentType `db:"content_type" json:"content_type"`
	Title       string      `db:"title" json:"title"`
	Status      string      `db:"status" json:"status"`
	AuthorID    int64       `db:"author_id" json:"author_id"`
	MenuOrder   int         `db:"menu_order" json:"menu_order"`
}

// AttributeMatch filters records by an exact attribute value.
type AttributeMatch struct {
	Name  string
	Value string
}

// CourseFilter is the storage-level translation of a CourseQuery.
type CourseFilter struct {
	Statuses         []string
	AuthorID         int64
	ParentID         *int64
	Search           string
	TermGroups       [][]int64
	ExcludeTermIDs   []int64
	AttributeMatches []AttributeMatch
	SortBy           string
	SortOrder        string
	Page             int
	PageSize         int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// Attribute is one named value of the attribute store.
type Attribute struct {
	ObjectID int64  `db:"object_id" json:"object_id"`
	Name     string `db:"name" json:"name"`
	Value    string `db:"value" json:"value"`
}
