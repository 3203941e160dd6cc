package batch

import "slices"

// Selection is an ordered set of image ids for one interactive session.
// The zero value is empty and ready to use.
type Selection struct {
	ids []int64
}

// NewSelection returns a selection holding ids in first-seen order.
func NewSelection(ids ...int64) *Selection {
	s := &Selection{}
	s.Add(ids...)
	return s
}

// Add appends ids not already selected and reports how many were new.
func (s *Selection) Add(ids ...int64) int {
	added := 0
	for _, id := range ids {
		if s.Has(id) {
			continue
		}
		s.ids = append(s.ids, id)
		added++
	}
	return added
}

// Remove drops id and reports whether it was selected.
func (s *Selection) Remove(id int64) bool {
	idx := slices.Index(s.ids, id)
	if idx < 0 {
		return false
	}
	s.ids = slices.Delete(s.ids, idx, idx+1)
	return true
}

// Toggle flips id's membership and reports whether it is now selected.
func (s *Selection) Toggle(id int64) bool {
	if s.Remove(id) {
		return false
	}
	s.ids = append(s.ids, id)
	return true
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.ids = nil
}

// Has reports whether id is selected.
func (s *Selection) Has(id int64) bool {
	return slices.Contains(s.ids, id)
}

// Len returns the number of selected ids.
func (s *Selection) Len() int {
	return len(s.ids)
}

// IDs returns a copy of the selected ids in order.
func (s *Selection) IDs() []int64 {
	return slices.Clone(s.ids)
}
