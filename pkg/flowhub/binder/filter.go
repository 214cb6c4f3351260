package binder

import (
	"slices"

	"github.com/randalmurphal/flowhub/pkg/flowhub/fingerprint"
)

// Slot is one distinct template fingerprint under a type id.
type Slot struct {
	fp   *fingerprint.Fingerprint
	key  string
	refs int
	seq  uint64
}

// Fingerprint returns the slot's fingerprint. Callers must not modify it.
func (s *Slot) Fingerprint() *fingerprint.Fingerprint {
	return s.fp
}

// Refs returns the number of templates sharing the slot.
func (s *Slot) Refs() int {
	return s.refs
}

// Filter indexes template fingerprints by type id. Each list is sorted by
// Fingerprint.Compare and holds one reference counted slot per distinct
// fingerprint.
type Filter struct {
	slots map[int][]*Slot
	seq   uint64
}

// NewFilter creates an empty filter.
func NewFilter() *Filter {
	return &Filter{slots: make(map[int][]*Slot)}
}

func (f *Filter) search(list []*Slot, fp *fingerprint.Fingerprint) (int, bool) {
	return slices.BinarySearchFunc(list, fp, func(s *Slot, target *fingerprint.Fingerprint) int {
		return s.fp.Compare(target)
	})
}

// Add references fp under typeID, creating the slot on first use.
func (f *Filter) Add(typeID int, fp *fingerprint.Fingerprint) {
	list := f.slots[typeID]
	i, found := f.search(list, fp)
	if found {
		list[i].refs++
		return
	}
	f.seq++
	s := &Slot{fp: fp.Clone(), key: fp.Key(), refs: 1, seq: f.seq}
	f.slots[typeID] = slices.Insert(list, i, s)
}

// Remove drops one reference to fp under typeID and deletes the slot when the
// count reaches zero. It reports whether a slot was found.
func (f *Filter) Remove(typeID int, fp *fingerprint.Fingerprint) bool {
	list := f.slots[typeID]
	i, found := f.search(list, fp)
	if !found {
		return false
	}
	list[i].refs--
	if list[i].refs > 0 {
		return true
	}
	list = slices.Delete(list, i, i+1)
	if len(list) == 0 {
		delete(f.slots, typeID)
	} else {
		f.slots[typeID] = list
	}
	return true
}

// Match appends to dst the slots under typeID whose fingerprint is equivalent
// to fp, ordered by first insertion.
func (f *Filter) Match(typeID int, fp *fingerprint.Fingerprint, dst []*Slot) []*Slot {
	start := len(dst)
	for _, s := range f.slots[typeID] {
		if s.fp.IsEquivalent(fp) {
			dst = append(dst, s)
		}
	}
	if len(dst)-start > 1 {
		slices.SortFunc(dst[start:], func(a, b *Slot) int {
			switch {
			case a.seq < b.seq:
				return -1
			case a.seq > b.seq:
				return 1
			}
			return 0
		})
	}
	return dst
}

// Slots returns the sorted slots under typeID.
func (f *Filter) Slots(typeID int) []*Slot {
	return slices.Clone(f.slots[typeID])
}

// Len returns the number of type ids with at least one slot.
func (f *Filter) Len() int {
	return len(f.slots)
}
