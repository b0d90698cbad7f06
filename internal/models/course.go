package models

import (
	"reflect"
	"sort"
	"time"
)

// CourseStatus is the publication state of a course record.
type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "draft"
	CourseStatusPublished CourseStatus = "published"
	CourseStatusTrashed   CourseStatus = "trashed"
	CourseStatusPending   CourseStatus = "pending"
	CourseStatusScheduled CourseStatus = "scheduled"
)

// AccessMode controls how learners get into a course.
type AccessMode string

const (
	AccessModeOpen              AccessMode = "open"
	AccessModeNeedsRegistration AccessMode = "needs_registration"
	AccessModePaid              AccessMode = "paid"
)

// IsFree reports whether the mode forces zero pricing.
func (m AccessMode) IsFree() bool {
	return m == AccessModeOpen || m == AccessModeNeedsRegistration
}

// PriceType is derived from the access mode.
type PriceType string

const (
	PriceTypeFree PriceType = "free"
	PriceTypePaid PriceType = "paid"
)

// CatalogVisibility is derived from the two exclusion flags.
type CatalogVisibility string

const (
	CatalogVisibilityVisible CatalogVisibility = "visible"
	CatalogVisibilityCatalog CatalogVisibility = "catalog"
	CatalogVisibilitySearch  CatalogVisibility = "search"
	CatalogVisibilityHidden  CatalogVisibility = "hidden"
)

// Change-set keys for primary record fields.
const (
	FieldName             = "name"
	FieldSlug             = "slug"
	FieldDescription      = "description"
	FieldShortDescription = "short_description"
	FieldStatus           = "status"
	FieldParentID         = "parent_id"
	FieldAuthorID         = "author_id"
	FieldMenuOrder        = "menu_order"
	FieldCreatedAt        = "created_at"
	FieldPassword         = "password"
	FieldReviewsAllowed   = "reviews_allowed"
)

// Attribute names persisted in the attribute store. They double as change-set keys.
const (
	AttrRegularPrice      = "regular_price"
	AttrSalePrice         = "sale_price"
	AttrSaleFrom          = "sale_price_dates_from"
	AttrSaleTo            = "sale_price_dates_to"
	AttrAccessMode        = "access_mode"
	AttrMaxStudents       = "max_students"
	AttrHighlights        = "highlights"
	AttrFeaturedImageID   = "thumbnail_id"
	AttrCurriculumVisible = "curriculum_visible"
	AttrAverageRating     = "average_rating"
	AttrPrice             = "price"
	AttrPriceType         = "price_type"
	AttrTrashStatus       = "trash_status"
	AttrCourseID          = "course_id"
)

// Change-set keys for classification sets and visibility inputs.
const (
	FieldCategoryIDs        = "category_ids"
	FieldTagIDs             = "tag_ids"
	FieldDifficultyIDs      = "difficulty_ids"
	FieldFeatured           = "featured"
	FieldExcludeFromSearch  = "exclude_from_search"
	FieldExcludeFromCatalog = "exclude_from_catalog"

	// ExtraPrefix prefixes extension attribute names inside the change set.
	ExtraPrefix = "extra:"
)

// PrimaryFields lists the change-set keys backed by the primary record.
var PrimaryFields = []string{
	FieldName, FieldSlug, FieldDescription, FieldShortDescription, FieldStatus,
	FieldParentID, FieldAuthorID, FieldMenuOrder, FieldCreatedAt, FieldPassword,
	FieldReviewsAllowed,
}

// DeclaredAttributes lists the attributes written in full on create.
var DeclaredAttributes = []string{
	AttrRegularPrice, AttrSalePrice, AttrSaleFrom, AttrSaleTo, AttrAccessMode,
	AttrMaxStudents, AttrHighlights, AttrFeaturedImageID, AttrCurriculumVisible,
	AttrAverageRating,
}

// Course is the aggregate root persisted across the content, attribute and
// classification stores.
type Course struct {
	ID               int64        `json:"id"`
	Name             string       `json:"name"`
	Slug             string       `json:"slug"`
	Description      string       `json:"description"`
	ShortDescription string       `json:"short_description"`
	Status           CourseStatus `json:"status" validate:"omitempty,oneof=draft published trashed pending scheduled"`
	ParentID         int64        `json:"parent_id" validate:"gte=0"`
	AuthorID         int64        `json:"author_id" validate:"gte=0"`
	MenuOrder        int          `json:"menu_order"`
	CreatedAt        time.Time    `json:"created_at"`
	ModifiedAt       time.Time    `json:"modified_at"`
	Password         string       `json:"password,omitempty"`
	ReviewsAllowed   bool         `json:"reviews_allowed"`

	RegularPrice float64    `json:"regular_price" validate:"gte=0"`
	SalePrice    *float64   `json:"sale_price,omitempty" validate:"omitempty,gte=0"`
	SaleFrom     *time.Time `json:"sale_from,omitempty"`
	SaleTo       *time.Time `json:"sale_to,omitempty"`
	AccessMode   AccessMode `json:"access_mode" validate:"omitempty,oneof=open needs_registration paid"`
	MaxStudents  int        `json:"max_students" validate:"gte=0"`

	Highlights        []string `json:"highlights,omitempty"`
	FeaturedImageID   int64    `json:"featured_image_id,omitempty"`
	CurriculumVisible bool     `json:"curriculum_visible"`

	Featured           bool    `json:"featured"`
	ExcludeFromSearch  bool    `json:"exclude_from_search"`
	ExcludeFromCatalog bool    `json:"exclude_from_catalog"`
	AverageRating      float64 `json:"average_rating" validate:"gte=0"`

	Extra map[string]string `json:"extra,omitempty"`

	CategoryIDs   []int64 `json:"category_ids,omitempty"`
	TagIDs        []int64 `json:"tag_ids,omitempty"`
	DifficultyIDs []int64 `json:"difficulty_ids,omitempty"`

	EffectivePrice    float64           `json:"effective_price"`
	PriceType         PriceType         `json:"price_type"`
	CatalogVisibility CatalogVisibility `json:"catalog_visibility"`
	VisibilityTerms   []string          `json:"visibility_terms,omitempty"`

	snapshot map[string]interface{}
}

// SalePriceValue returns the sale price or zero when no sale is set.
func (c *Course) SalePriceValue() float64 {
	if c.SalePrice == nil {
		return 0
	}
	return *c.SalePrice
}

// MarkPersisted records the current values as the persisted baseline.
func (c *Course) MarkPersisted() {
	c.snapshot = c.trackedValues()
}

// Persisted reports whether the course carries a persisted baseline.
func (c *Course) Persisted() bool {
	return c.snapshot != nil
}

// Changes returns the tracked keys whose value differs from the persisted
// baseline. Without a baseline every tracked key is reported.
func (c *Course) Changes() map[string]bool {
	current := c.trackedValues()
	changes := make(map[string]bool)
	for key, value := range current {
		prev, ok := c.snapshot[key]
		if c.snapshot == nil || !ok || !reflect.DeepEqual(prev, value) {
			changes[key] = true
		}
	}
	for key := range c.snapshot {
		if _, ok := current[key]; !ok {
			changes[key] = true
		}
	}
	return changes
}

// RemovedExtras returns extension attribute names present in the baseline but
// missing from the current values.
func (c *Course) RemovedExtras() []string {
	var removed []string
	for key := range c.snapshot {
		if len(key) <= len(ExtraPrefix) || key[:len(ExtraPrefix)] != ExtraPrefix {
			continue
		}
		name := key[len(ExtraPrefix):]
		if _, ok := c.Extra[name]; !ok {
			removed = append(removed, name)
		}
	}
	sort.Strings(removed)
	return removed
}

func (c *Course) trackedValues() map[string]interface{} {
	values := map[string]interface{}{
		FieldName:             c.Name,
		FieldSlug:             c.Slug,
		FieldDescription:      c.Description,
		FieldShortDescription: c.ShortDescription,
		FieldStatus:           c.Status,
		FieldParentID:         c.ParentID,
		FieldAuthorID:         c.AuthorID,
		FieldMenuOrder:        c.MenuOrder,
		FieldCreatedAt:        c.CreatedAt.UTC(),
		FieldPassword:         c.Password,
		FieldReviewsAllowed:   c.ReviewsAllowed,

		AttrRegularPrice:      c.RegularPrice,
		AttrSalePrice:         copyFloat(c.SalePrice),
		AttrSaleFrom:          copyTime(c.SaleFrom),
		AttrSaleTo:            copyTime(c.SaleTo),
		AttrAccessMode:        c.AccessMode,
		AttrMaxStudents:       c.MaxStudents,
		AttrHighlights:        append([]string{}, c.Highlights...),
		AttrFeaturedImageID:   c.FeaturedImageID,
		AttrCurriculumVisible: c.CurriculumVisible,
		AttrAverageRating:     c.AverageRating,

		FieldCategoryIDs:        sortedIDs(c.CategoryIDs),
		FieldTagIDs:             sortedIDs(c.TagIDs),
		FieldDifficultyIDs:      sortedIDs(c.DifficultyIDs),
		FieldFeatured:           c.Featured,
		FieldExcludeFromSearch:  c.ExcludeFromSearch,
		FieldExcludeFromCatalog: c.ExcludeFromCatalog,
	}
	for name, value := range c.Extra {
		values[ExtraPrefix+name] = value
	}
	return values
}

func copyFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func copyTime(v *time.Time) interface{} {
	if v == nil {
		return nil
	}
	return v.UTC()
}

func sortedIDs(ids []int64) []int64 {
	out := append([]int64{}, ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CourseQuery captures caller-level criteria for listing courses.
type CourseQuery struct {
	Statuses      []CourseStatus
	AuthorID      int64
	ParentID      *int64
	Search        string
	CategoryIDs   []int64
	TagIDs        []int64
	DifficultyIDs []int64
	Featured      *bool
	PriceType     PriceType
	CatalogOnly   bool
	Attributes    map[string]string
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}
