package cell_test

import (
	"reflect"
	"testing"

	"github.com/randalmurphal/flowhub/pkg/flowhub/cell"
	"github.com/stretchr/testify/assert"
)

// point is a root cell with two properties.
type point struct {
	cell.Base
	x, y int
}

var pointTag = cell.NewTag(nil, reflect.TypeFor[point](), 2)

func newPoint() *point {
	p := &point{}
	p.Init(pointTag)
	return p
}

func (p *point) SetX(v int) *point { p.Touch(pointTag.Offset + 0); p.x = v; return p }
func (p *point) SetY(v int) *point { p.Touch(pointTag.Offset + 1); p.y = v; return p }

func (p *point) Prop(i int) any {
	switch i - pointTag.Offset {
	case 0:
		return p.x
	case 1:
		return p.y
	}
	return p.Base.Prop(i)
}

// point3 derives from point and adds one property.
type point3 struct {
	point
	z int
}

var point3Tag = cell.NewTag(pointTag, reflect.TypeFor[point3](), 1)

func newPoint3() *point3 {
	p := &point3{}
	p.Init(point3Tag)
	return p
}

func (p *point3) SetZ(v int) *point3 { p.Touch(point3Tag.Offset + 0); p.z = v; return p }

func (p *point3) Prop(i int) any {
	if i-point3Tag.Offset == 0 {
		return p.z
	}
	return p.point.Prop(i)
}

// segment holds nested cells.
type segment struct {
	cell.Base
	from *point
}

var segmentTag = cell.NewTag(nil, reflect.TypeFor[segment](), 1)

func newSegment() *segment {
	s := &segment{}
	s.Init(segmentTag)
	return s
}

func (s *segment) SetFrom(p *point) *segment { s.Touch(0); s.from = p; return s }

func (s *segment) Prop(i int) any {
	if i == 0 {
		return s.from
	}
	return s.Base.Prop(i)
}

func TestTagChain(t *testing.T) {
	assert.Nil(t, pointTag.Base)
	assert.Equal(t, 0, pointTag.Offset)
	assert.Equal(t, 2, pointTag.Len())
	assert.Equal(t, "point", pointTag.Name)

	assert.Same(t, pointTag, point3Tag.Base)
	assert.Equal(t, 2, point3Tag.Offset)
	assert.Equal(t, 3, point3Tag.Len())
}

func TestFingerprintSizedToChain(t *testing.T) {
	assert.Equal(t, 2, newPoint().Fingerprint().Len())
	assert.Equal(t, 3, newPoint3().Fingerprint().Len())
}

func TestIsKindOf(t *testing.T) {
	assert.True(t, cell.IsKindOf(newPoint3(), pointTag))
	assert.True(t, cell.IsKindOf(newPoint3(), point3Tag))
	assert.True(t, cell.IsKindOf(newPoint(), pointTag))
	assert.False(t, cell.IsKindOf(newPoint(), point3Tag))
	assert.False(t, cell.IsKindOf(newPoint(), segmentTag))
}

func TestSettersTouch(t *testing.T) {
	p := newPoint3()
	p.SetY(4)
	p.SetZ(9)

	assert.False(t, p.IsTouched(0))
	assert.True(t, p.IsTouched(1))
	assert.True(t, p.IsTouched(2))

	c := p.Capo(point3Tag.Offset)
	assert.True(t, c.Get(0))
	assert.False(t, c.Get(1))
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b cell.Cell
		want bool
	}{
		{"same values", newPoint().SetX(1).SetY(2), newPoint().SetX(1).SetY(2), true},
		{"different value", newPoint().SetX(1), newPoint().SetX(2), false},
		{"different fingerprint", newPoint().SetX(0), newPoint(), false},
		{"different type", newPoint().SetX(1), func() cell.Cell { p := newPoint3(); p.SetX(1); return p }(), false},
		{"nested equal", newSegment().SetFrom(newPoint().SetX(1)), newSegment().SetFrom(newPoint().SetX(1)), true},
		{"nested differ", newSegment().SetFrom(newPoint().SetX(1)), newSegment().SetFrom(newPoint().SetX(2)), false},
		{"nested nil", newSegment().SetFrom(nil), newSegment().SetFrom(nil), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cell.Equal(tt.a, tt.b))
		})
	}
}

func TestEquivalent(t *testing.T) {
	full := newPoint3()
	full.SetX(1).SetY(2)
	full.SetZ(3)

	tests := []struct {
		name     string
		template cell.Cell
		want     bool
	}{
		{"blank base", newPoint(), true},
		{"matching base field", newPoint().SetX(1), true},
		{"mismatching base field", newPoint().SetX(5), false},
		{"blank same type", newPoint3(), true},
		{"matching own field", newPoint3().SetZ(3), true},
		{"mismatching own field", newPoint3().SetZ(4), false},
		{"unrelated type", newSegment(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cell.Equivalent(tt.template, full))
		})
	}
}

func TestEquivalent_Directional(t *testing.T) {
	base := newPoint().SetX(1)
	derived := newPoint3()
	derived.SetX(1)

	assert.True(t, cell.Equivalent(base, derived))
	assert.False(t, cell.Equivalent(derived, base))
}

func TestPropPanicsPastChain(t *testing.T) {
	assert.Panics(t, func() { newPoint().Prop(2) })
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "point{1:7}", cell.Describe(newPoint().SetY(7)))
	assert.Equal(t, "point{}", cell.Describe(newPoint()))
}
