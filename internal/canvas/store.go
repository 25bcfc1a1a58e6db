package canvas

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"canvasnotes/internal/domain"
)

var ErrDuplicateID = errors.New("duplicate element id")

// Store is the ordered element collection of one page. Slice order is
// paint order: later elements are drawn on top.
type Store struct {
	elements []domain.Element
	onChange func()
}

func NewStore() *Store {
	return &Store{}
}

// OnChange registers fn to run after every mutation.
func (s *Store) OnChange(fn func()) {
	s.onChange = fn
}

func (s *Store) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

func (s *Store) Len() int { return len(s.elements) }

func (s *Store) index(id string) int {
	for i := range s.elements {
		if s.elements[i].ID == id {
			return i
		}
	}
	return -1
}

// Insert appends el on top of the paint order.
func (s *Store) Insert(el domain.Element) error {
	if err := el.Validate(); err != nil {
		return err
	}
	if s.index(el.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, el.ID)
	}
	s.elements = append(s.elements, el.Clone())
	s.changed()
	return nil
}

// Get returns a copy of the element with the given id.
func (s *Store) Get(id string) (domain.Element, bool) {
	i := s.index(id)
	if i < 0 {
		return domain.Element{}, false
	}
	return s.elements[i].Clone(), true
}

func (s *Store) Has(id string) bool { return s.index(id) >= 0 }

// Patch applies fn to the element in place. A patch that leaves the
// element invalid, or changes its id, is discarded. Reports whether the
// element existed and the patch was kept.
func (s *Store) Patch(id string, fn func(el *domain.Element)) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	next := s.elements[i].Clone()
	fn(&next)
	if next.ID != id || next.Validate() != nil {
		return false
	}
	s.elements[i] = next
	s.changed()
	return true
}

// Remove deletes the element. Removing a missing id is a no-op.
func (s *Store) Remove(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.elements = append(s.elements[:i], s.elements[i+1:]...)
	s.changed()
	return true
}

// RemoveMany deletes every element whose id is in ids and returns the ids
// actually removed, in paint order.
func (s *Store) RemoveMany(ids []string) []string {
	set := lo.SliceToMap(ids, func(id string) (string, struct{}) { return id, struct{}{} })
	var removed []string
	kept := s.elements[:0]
	for _, el := range s.elements {
		if _, ok := set[el.ID]; ok {
			removed = append(removed, el.ID)
			continue
		}
		kept = append(kept, el)
	}
	s.elements = kept
	if len(removed) > 0 {
		s.changed()
	}
	return removed
}

// Pick returns copies of the elements whose ids are in ids, in paint order.
// Unknown ids are skipped.
func (s *Store) Pick(ids []string) []domain.Element {
	set := lo.SliceToMap(ids, func(id string) (string, struct{}) { return id, struct{}{} })
	return lo.FilterMap(s.elements, func(el domain.Element, _ int) (domain.Element, bool) {
		_, ok := set[el.ID]
		return el.Clone(), ok
	})
}

// IDs returns every id in paint order.
func (s *Store) IDs() []string {
	return lo.Map(s.elements, func(el domain.Element, _ int) string { return el.ID })
}

// Snapshot returns a deep copy of the whole collection.
func (s *Store) Snapshot() []domain.Element {
	return domain.CloneAll(s.elements)
}

// view exposes the backing slice to package code that only reads it.
func (s *Store) view() []domain.Element {
	return s.elements
}

// Replace swaps the whole collection, as on page load. It validates every
// element and rejects duplicate ids without touching the current state.
func (s *Store) Replace(els []domain.Element) error {
	seen := make(map[string]struct{}, len(els))
	for _, el := range els {
		if err := el.Validate(); err != nil {
			return err
		}
		if _, dup := seen[el.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, el.ID)
		}
		seen[el.ID] = struct{}{}
	}
	s.elements = domain.CloneAll(els)
	s.changed()
	return nil
}
