package service

import (
	"math"
	"strconv"
	"time"

	"github.com/noah-isme/lms-course-core/internal/models"
)

// pricingInputs are the change-set keys that trigger a pricing recompute.
var pricingInputs = []string{
	models.AttrRegularPrice, models.AttrSalePrice, models.AttrSaleFrom, models.AttrSaleTo, models.AttrAccessMode,
}

// visibilityInputs are the change-set keys that trigger a visibility recompute.
var visibilityInputs = []string{
	models.FieldFeatured, models.FieldExcludeFromSearch, models.FieldExcludeFromCatalog, models.AttrAverageRating,
}

// RecomputePricing returns the course with its sale price healed and its
// effective price and price type derived. It only touches pricing fields.
func RecomputePricing(course models.Course, now time.Time) models.Course {
	if course.AccessMode.IsFree() {
		course.RegularPrice = 0
		course.SalePrice = nil
		course.EffectivePrice = 0
		course.PriceType = models.PriceTypeFree
		return course
	}

	if course.SalePrice != nil && *course.SalePrice >= course.RegularPrice {
		course.SalePrice = nil
	}
	course.PriceType = models.PriceTypePaid
	course.EffectivePrice = effectivePrice(course, now)
	return course
}

// effectivePrice picks the sale price while the sale window is open. It never
// clears a stale sale price; RecomputePricing does that.
func effectivePrice(course models.Course, now time.Time) float64 {
	if course.AccessMode.IsFree() {
		return 0
	}
	if course.SalePrice == nil || *course.SalePrice >= course.RegularPrice {
		return course.RegularPrice
	}
	if !saleActive(course.SaleFrom, course.SaleTo, now) {
		return course.RegularPrice
	}
	return *course.SalePrice
}

// saleActive reports whether now lies inside [from, to]. Unset bounds are open.
func saleActive(from, to *time.Time, now time.Time) bool {
	if from != nil && now.Before(*from) {
		return false
	}
	if to != nil && now.After(*to) {
		return false
	}
	return true
}

func priceTypeFor(mode models.AccessMode) models.PriceType {
	if mode.IsFree() {
		return models.PriceTypeFree
	}
	return models.PriceTypePaid
}

// RecomputeVisibility derives the catalog visibility and the visibility tag
// set from the exclusion flags, the featured flag and the average rating.
func RecomputeVisibility(course models.Course) models.Course {
	course.CatalogVisibility = catalogVisibility(course.ExcludeFromSearch, course.ExcludeFromCatalog)

	terms := make([]string, 0, 4)
	if course.Featured {
		terms = append(terms, models.VisibilityFeatured)
	}
	if course.ExcludeFromSearch {
		terms = append(terms, models.VisibilityExcludeFromSearch)
	}
	if course.ExcludeFromCatalog {
		terms = append(terms, models.VisibilityExcludeFromCatalog)
	}
	if bucket := ratingBucket(course.AverageRating); bucket > 0 {
		terms = append(terms, models.VisibilityRatedPrefix+strconv.Itoa(bucket))
	}
	course.VisibilityTerms = terms
	return course
}

func catalogVisibility(excludeSearch, excludeCatalog bool) models.CatalogVisibility {
	switch {
	case excludeSearch && excludeCatalog:
		return models.CatalogVisibilityHidden
	case excludeSearch:
		return models.CatalogVisibilityCatalog
	case excludeCatalog:
		return models.CatalogVisibilitySearch
	default:
		return models.CatalogVisibilityVisible
	}
}

func ratingBucket(avg float64) int {
	if math.IsNaN(avg) {
		return 0
	}
	bucket := int(math.Round(avg))
	if bucket < 0 {
		return 0
	}
	if bucket > 5 {
		return 5
	}
	return bucket
}

// applyVisibilityTerms sets the visibility flags from persisted visibility tags.
func applyVisibilityTerms(course *models.Course, slugs []string) {
	course.Featured = false
	course.ExcludeFromSearch = false
	course.ExcludeFromCatalog = false
	for _, slug := range slugs {
		switch slug {
		case models.VisibilityFeatured:
			course.Featured = true
		case models.VisibilityExcludeFromSearch:
			course.ExcludeFromSearch = true
		case models.VisibilityExcludeFromCatalog:
			course.ExcludeFromCatalog = true
		}
	}
}

func anyChanged(changes map[string]bool, keys []string) bool {
	for _, key := range keys {
		if changes[key] {
			return true
		}
	}
	return false
}
