// Package cell provides fingerprinted value objects and the per-type tag chain
// that encodes their single-inheritance hierarchy.
//
// A concrete cell type is a struct that embeds its base type's struct. Each
// level owns a contiguous range of property indices starting at its tag's
// Offset, and every property setter touches the matching fingerprint bit:
//
//	type Point struct {
//	    cell.Base
//	    x, y int
//	}
//
//	var pointTag = cell.NewTag(nil, reflect.TypeFor[Point](), 2)
//
//	func NewPoint() *Point {
//	    p := &Point{}
//	    p.Init(pointTag)
//	    return p
//	}
//
//	func (p *Point) SetX(v int) *Point { p.Touch(pointTag.Offset + 0); p.x = v; return p }
//
// Prop(i) must be implemented by every level, delegating indices below its
// Offset to the embedded base.
package cell

import (
	"fmt"
	"reflect"

	"github.com/randalmurphal/flowhub/pkg/flowhub/fingerprint"
)

// Tag is the per-type metadata of a cell type. Tags are created once, at
// package initialization, and form a singly-linked chain toward the root.
type Tag struct {
	// Base is the tag of the embedded base type, nil for a root type.
	Base *Tag

	// Type is the runtime type the tag describes.
	Type reflect.Type

	// Name is a human readable type name, derived from Type.
	Name string

	// NumProps is the number of properties declared at this level.
	NumProps int

	// Offset is the index of this level's first property.
	Offset int
}

// NewTag creates a tag for typ with numProps properties of its own.
func NewTag(base *Tag, typ reflect.Type, numProps int) *Tag {
	t := &Tag{}
	InitTag(t, base, typ, numProps)
	return t
}

// InitTag fills t in place. Packages that embed Tag by value use it so that the
// embedded Tag keeps a stable address.
func InitTag(t *Tag, base *Tag, typ reflect.Type, numProps int) {
	if numProps < 0 {
		panic(fmt.Sprintf("cell: negative property count for %v", typ))
	}
	t.Base = base
	t.Type = typ
	t.NumProps = numProps
	t.Offset = 0
	if base != nil {
		t.Offset = base.Offset + base.NumProps
	}
	if typ != nil {
		t.Name = typ.Name()
	}
}

// Len is the fingerprint length of a cell whose most derived tag is t.
func (t *Tag) Len() int {
	return t.Offset + t.NumProps
}

// IsKindOf reports whether t is other or derives from it.
func (t *Tag) IsKindOf(other *Tag) bool {
	for cur := t; cur != nil; cur = cur.Base {
		if cur == other {
			return true
		}
	}
	return false
}

// String returns the tag's name.
func (t *Tag) String() string {
	return t.Name
}

// Cell is a typed, fingerprinted value object.
type Cell interface {
	// CellTag returns the tag of the most derived type.
	CellTag() *Tag

	// Fingerprint returns the cell's touched-property bitset.
	Fingerprint() *fingerprint.Fingerprint

	// Prop returns the value of property i, where i is an index across the
	// whole type chain. It panics if i is out of range.
	Prop(i int) any
}

// Base is embedded by root cell types. It owns the tag and fingerprint.
type Base struct {
	tag *Tag
	fp  fingerprint.Fingerprint
}

// Init binds the cell to its most derived tag and sizes the fingerprint.
// Generated constructors call it exactly once.
func (b *Base) Init(tag *Tag) {
	b.tag = tag
	b.fp.Init(tag.Len())
}

// CellTag returns the most derived tag.
func (b *Base) CellTag() *Tag {
	return b.tag
}

// Fingerprint returns the touched-property bitset.
func (b *Base) Fingerprint() *fingerprint.Fingerprint {
	return &b.fp
}

// Touch marks property i as explicitly assigned.
func (b *Base) Touch(i int) {
	b.fp.Touch(i)
}

// IsTouched reports whether property i was explicitly assigned.
func (b *Base) IsTouched(i int) bool {
	return b.fp.Get(i)
}

// Capo returns a window onto the fingerprint starting at offset.
func (b *Base) Capo(offset int) fingerprint.Capo {
	return fingerprint.NewCapo(&b.fp, offset)
}

// Prop is the end of the delegation chain. Root types without properties of
// their own reach it for every index.
func (b *Base) Prop(i int) any {
	panic(fmt.Sprintf("cell: property %d out of range for %v", i, b.tag))
}

// IsKindOf reports whether c's type is tag or derives from it.
func IsKindOf(c Cell, tag *Tag) bool {
	return c.CellTag().IsKindOf(tag)
}

// Equal reports structural equality: same runtime type, same fingerprint and
// equal values for every property of the chain.
func Equal(a, b Cell) bool {
	if a.CellTag() != b.CellTag() {
		return false
	}
	if !a.Fingerprint().Equal(b.Fingerprint()) {
		return false
	}
	for i := 0; i < a.CellTag().Len(); i++ {
		if !PropEqual(a.Prop(i), b.Prop(i)) {
			return false
		}
	}
	return true
}

// Equivalent reports whether other satisfies every constraint expressed by
// template: other is of template's type or a subtype, template's fingerprint is
// a subset of other's, and each touched property holds an equal value.
func Equivalent(template, other Cell) bool {
	if !IsKindOf(other, template.CellTag()) {
		return false
	}
	fp := template.Fingerprint()
	if !fp.IsEquivalent(other.Fingerprint()) {
		return false
	}
	for i := range fp.Touched() {
		if !PropEqual(template.Prop(i), other.Prop(i)) {
			return false
		}
	}
	return true
}

// PropEqual compares two property values. Nested cells compare with Equal.
func PropEqual(a, b any) bool {
	ca, okA := a.(Cell)
	cb, okB := b.(Cell)
	if okA || okB {
		if !okA || !okB {
			return false
		}
		if IsNil(ca) || IsNil(cb) {
			return IsNil(ca) && IsNil(cb)
		}
		return Equal(ca, cb)
	}
	return reflect.DeepEqual(a, b)
}

// IsNil reports whether c is nil or a typed nil pointer.
func IsNil(c Cell) bool {
	if c == nil {
		return true
	}
	v := reflect.ValueOf(c)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// Describe renders the touched properties of c, e.g. "Point{0:1 1:2}".
func Describe(c Cell) string {
	s := c.CellTag().Name + "{"
	first := true
	for i := range c.Fingerprint().Touched() {
		if !first {
			s += " "
		}
		first = false
		s += fmt.Sprintf("%d:%v", i, c.Prop(i))
	}
	return s + "}"
}
