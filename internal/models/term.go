package models

// TermKind names a classification relation.
type TermKind string

const (
	TermKindCategory   TermKind = "category"
	TermKindTag        TermKind = "tag"
	TermKindDifficulty TermKind = "difficulty"
	// TermKindVisibility holds derived featured/exclusion/rating tags.
	TermKindVisibility TermKind = "visibility"
)

// Visibility term slugs.
const (
	VisibilityFeatured           = "featured"
	VisibilityExcludeFromSearch  = "exclude-from-search"
	VisibilityExcludeFromCatalog = "exclude-from-catalog"
	VisibilityRatedPrefix        = "rated-"
)

// Term is a classification reference entity.
type Term struct {
	ID       int64    `db:"id" json:"id"`
	Kind     TermKind `db:"kind" json:"kind"`
	Slug     string   `db:"slug" json:"slug"`
	Name     string   `db:"name" json:"name"`
	ParentID int64    `db:"parent_id" json:"parent_id"`
}
