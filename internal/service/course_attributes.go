package service

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/lms-course-core/internal/models"
)

// reservedAttributes cannot be used as extension attribute names.
var reservedAttributes = func() map[string]bool {
	reserved := map[string]bool{
		models.AttrPrice:       true,
		models.AttrPriceType:   true,
		models.AttrTrashStatus: true,
		models.AttrCourseID:    true,
	}
	for _, name := range models.DeclaredAttributes {
		reserved[name] = true
	}
	return reserved
}()

// fullAttributeNames returns every declared attribute plus the course's extension attributes.
func fullAttributeNames(course *models.Course) []string {
	names := append([]string{}, models.DeclaredAttributes...)
	for name := range course.Extra {
		names = append(names, models.ExtraPrefix+name)
	}
	return names
}

// changedAttributeNames filters the change set down to attribute keys.
func changedAttributeNames(changes map[string]bool) []string {
	var names []string
	for _, name := range models.DeclaredAttributes {
		if changes[name] {
			names = append(names, name)
		}
	}
	var extras []string
	for key := range changes {
		if strings.HasPrefix(key, models.ExtraPrefix) {
			extras = append(extras, key)
		}
	}
	sort.Strings(extras)
	return append(names, extras...)
}

// encodeAttributes serialises the named attributes. Extension attributes are
// passed with their change-set prefix and written under their bare name.
// Extension keys no longer present on the course are skipped.
func encodeAttributes(course *models.Course, names []string) map[string]string {
	values := make(map[string]string, len(names))
	for _, name := range names {
		if strings.HasPrefix(name, models.ExtraPrefix) {
			bare := strings.TrimPrefix(name, models.ExtraPrefix)
			if value, ok := course.Extra[bare]; ok {
				values[bare] = value
			}
			continue
		}
		values[name] = encodeAttribute(course, name)
	}
	return values
}

func encodeAttribute(course *models.Course, name string) string {
	switch name {
	case models.AttrRegularPrice:
		return formatFloat(course.RegularPrice)
	case models.AttrSalePrice:
		if course.SalePrice == nil {
			return ""
		}
		return formatFloat(*course.SalePrice)
	case models.AttrSaleFrom:
		return formatTime(course.SaleFrom)
	case models.AttrSaleTo:
		return formatTime(course.SaleTo)
	case models.AttrAccessMode:
		return string(course.AccessMode)
	case models.AttrMaxStudents:
		return strconv.Itoa(course.MaxStudents)
	case models.AttrHighlights:
		highlights := course.Highlights
		if highlights == nil {
			highlights = []string{}
		}
		raw, err := json.Marshal(highlights)
		if err != nil {
			return "[]"
		}
		return string(raw)
	case models.AttrFeaturedImageID:
		return strconv.FormatInt(course.FeaturedImageID, 10)
	case models.AttrCurriculumVisible:
		return strconv.FormatBool(course.CurriculumVisible)
	case models.AttrAverageRating:
		return formatFloat(course.AverageRating)
	case models.AttrPrice:
		return formatFloat(course.EffectivePrice)
	case models.AttrPriceType:
		return string(course.PriceType)
	}
	return ""
}

// decodeAttributes populates the course from stored values. Missing or
// malformed values decode to the field's zero value.
func decodeAttributes(course *models.Course, values map[string]string) {
	course.RegularPrice = parseFloat(values[models.AttrRegularPrice])
	course.SalePrice = nil
	if raw := values[models.AttrSalePrice]; raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			course.SalePrice = &v
		}
	}
	course.SaleFrom = parseTime(values[models.AttrSaleFrom])
	course.SaleTo = parseTime(values[models.AttrSaleTo])
	course.AccessMode = models.AccessMode(values[models.AttrAccessMode])
	course.MaxStudents, _ = strconv.Atoi(values[models.AttrMaxStudents])
	course.Highlights = nil
	if raw := values[models.AttrHighlights]; raw != "" {
		var highlights []string
		if err := json.Unmarshal([]byte(raw), &highlights); err == nil && len(highlights) > 0 {
			course.Highlights = highlights
		}
	}
	course.FeaturedImageID, _ = strconv.ParseInt(values[models.AttrFeaturedImageID], 10, 64)
	course.CurriculumVisible, _ = strconv.ParseBool(values[models.AttrCurriculumVisible])
	course.AverageRating = parseFloat(values[models.AttrAverageRating])

	course.Extra = nil
	for name, value := range values {
		if reservedAttributes[name] {
			continue
		}
		if course.Extra == nil {
			course.Extra = make(map[string]string)
		}
		course.Extra[name] = value
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFloat(raw string) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
