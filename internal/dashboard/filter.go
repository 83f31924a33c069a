package dashboard

import (
	"maps"
	"slices"
	"strconv"

	"github.com/SungwookYoon/searchdeposit6-web/internal/backend"
)

// Filter keys sent to the project API.
const (
	KeyDepartment = "department"
	KeyGrade      = "grade"
	KeyType       = "type"
	KeyRegion     = "region"
	KeySearch     = "search"
	KeyMinScore   = "min_score"
	KeyMaxScore   = "max_score"
)

// Score slider bounds.
const (
	DefaultMinScore = 0
	DefaultMaxScore = 300
)

// FilterControls holds the raw values of the filter controls.
type FilterControls struct {
	Department string `json:"department"`
	Grade      string `json:"grade"`
	Type       string `json:"type"`
	Region     string `json:"region"`
	Search     string `json:"search"`
	MinScore   int    `json:"min_score"`
	MaxScore   int    `json:"max_score"`
}

// DefaultControls returns the controls as they are after a reset.
func DefaultControls() FilterControls {
	return FilterControls{MinScore: DefaultMinScore, MaxScore: DefaultMaxScore}
}

// FilterCriteria is the active set of filter constraints. An absent key means
// no constraint; empty values are never stored.
type FilterCriteria map[string]string

// BuildCriteria turns control values into criteria, dropping empty values.
// The search text is sent as typed.
// Score bounds are always carried: a slider moved back to its default still constrains.
func BuildCriteria(fc FilterControls) FilterCriteria {
	c := FilterCriteria{}
	c.set(KeyDepartment, fc.Department)
	c.set(KeyGrade, fc.Grade)
	c.set(KeyType, fc.Type)
	c.set(KeyRegion, fc.Region)
	c.set(KeySearch, fc.Search)
	c.set(KeyMinScore, strconv.Itoa(fc.MinScore))
	c.set(KeyMaxScore, strconv.Itoa(fc.MaxScore))
	return c
}

func (c FilterCriteria) set(key, value string) {
	if value == "" {
		delete(c, key)
		return
	}
	c[key] = value
}

// Clone returns an independent copy. A nil criteria clones to an empty one.
func (c FilterCriteria) Clone() FilterCriteria {
	out := make(FilterCriteria, len(c))
	maps.Copy(out, c)
	return out
}

// Keys returns the constrained keys in sorted order.
func (c FilterCriteria) Keys() []string {
	return slices.Sorted(maps.Keys(c))
}

// keepOffered clears a control value that the refreshed options no longer offer.
func keepOffered(value string, offered []string) string {
	if value != "" && slices.Contains(offered, value) {
		return value
	}
	return ""
}

// reconcileControls drops control values missing from the refreshed filter options.
func reconcileControls(fc FilterControls, opts backend.FilterOptions) FilterControls {
	fc.Department = keepOffered(fc.Department, opts.Departments)
	fc.Grade = keepOffered(fc.Grade, opts.Grades)
	fc.Type = keepOffered(fc.Type, opts.Types)
	fc.Region = keepOffered(fc.Region, opts.Regions)
	return fc
}
