package dashboard

import (
	"maps"
	"slices"

	"github.com/SungwookYoon/searchdeposit6-web/internal/backend"
)

// Selection is the set of selected record ids across all pages.
// It is not safe for concurrent use; the Controller guards it.
type Selection struct {
	ids map[int64]struct{}
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{ids: make(map[int64]struct{})}
}

// Toggle adds id when included is true and removes it otherwise.
func (s *Selection) Toggle(id int64, included bool) {
	if included {
		s.ids[id] = struct{}{}
		return
	}
	delete(s.ids, id)
}

// SetAll adds or removes every id of records.
func (s *Selection) SetAll(records []backend.Record, included bool) {
	for _, r := range records {
		s.Toggle(r.ID, included)
	}
}

// Remove drops id from the selection.
func (s *Selection) Remove(id int64) {
	delete(s.ids, id)
}

// Clear empties the selection.
func (s *Selection) Clear() {
	clear(s.ids)
}

// Has reports whether id is selected.
func (s *Selection) Has(id int64) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected ids, including ids not on the current page.
func (s *Selection) Len() int {
	return len(s.ids)
}

// IDs returns the selected ids in ascending order.
func (s *Selection) IDs() []int64 {
	return slices.Sorted(maps.Keys(s.ids))
}

// visible returns the records of page that are selected, in page order.
func (s *Selection) visible(page []backend.Record) []backend.Record {
	out := make([]backend.Record, 0, len(page))
	for _, r := range page {
		if s.Has(r.ID) {
			out = append(out, r)
		}
	}
	return out
}

// HeaderState is the tri-state of the page's select-all checkbox.
type HeaderState struct {
	Checked       bool `json:"checked"`
	Indeterminate bool `json:"indeterminate"`
}

// Header derives the select-all checkbox state for page.
func (s *Selection) Header(page []backend.Record) HeaderState {
	n := len(s.visible(page))
	switch {
	case n == 0:
		return HeaderState{}
	case n == len(page):
		return HeaderState{Checked: true}
	default:
		return HeaderState{Indeterminate: true}
	}
}

// SelectionView is the selection as shown next to the current page.
type SelectionView struct {
	Count   int              `json:"count"`
	Header  HeaderState      `json:"header"`
	Visible []backend.Record `json:"visible"`
	// More counts selected ids that are not on the current page.
	More int     `json:"more"`
	IDs  []int64 `json:"ids"`
}

// View projects the selection onto page.
func (s *Selection) View(page []backend.Record) SelectionView {
	visible := s.visible(page)
	return SelectionView{
		Count:   s.Len(),
		Header:  s.Header(page),
		Visible: visible,
		More:    s.Len() - len(visible),
		IDs:     s.IDs(),
	}
}
