package canvas

import (
	"sort"

	"github.com/samber/lo"
)

// Selection is the set of selected element ids. It has no order.
type Selection struct {
	ids map[string]struct{}
}

func NewSelection() *Selection {
	return &Selection{ids: make(map[string]struct{})}
}

func (s *Selection) Len() int { return len(s.ids) }

func (s *Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *Selection) Add(ids ...string) {
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}

func (s *Selection) Remove(ids ...string) {
	for _, id := range ids {
		delete(s.ids, id)
	}
}

// Set replaces the selection with exactly ids.
func (s *Selection) Set(ids ...string) {
	s.Clear()
	s.Add(ids...)
}

func (s *Selection) Toggle(id string) {
	if s.Has(id) {
		delete(s.ids, id)
		return
	}
	s.ids[id] = struct{}{}
}

func (s *Selection) Clear() {
	clear(s.ids)
}

// IDs returns the selected ids sorted, for stable output.
func (s *Selection) IDs() []string {
	ids := lo.Keys(s.ids)
	sort.Strings(ids)
	return ids
}

// Click applies a pointer click on element id:
//   - additive toggles membership of id alone;
//   - a plain click on a selected element keeps the whole selection so the
//     group can be dragged;
//   - a plain click on an unselected element selects only it.
func (s *Selection) Click(id string, additive bool) {
	switch {
	case additive:
		s.Toggle(id)
	case s.Has(id):
	default:
		s.Set(id)
	}
}

// Retain drops every id for which live reports false.
func (s *Selection) Retain(live func(id string) bool) {
	for id := range s.ids {
		if !live(id) {
			delete(s.ids, id)
		}
	}
}
