package event

import (
	"reflect"

	"github.com/randalmurphal/flowhub/pkg/flowhub/cell"
)

// Tag is the per-type metadata of an event type: a cell tag plus a type id.
type Tag struct {
	cell.Tag

	base *Tag

	// TypeID identifies the concrete event type.
	TypeID int
}

// NewTag creates the tag of an event type deriving from base.
func NewTag(base *Tag, typ reflect.Type, numProps int, typeID int) *Tag {
	t := &Tag{base: base, TypeID: typeID}
	var cb *cell.Tag
	if base != nil {
		cb = &base.Tag
	}
	cell.InitTag(&t.Tag, cb, typ, numProps)
	return t
}

// BaseTag returns the tag of the base event type, nil for the root.
func (t *Tag) BaseTag() *Tag {
	return t.base
}

// IsKindOf reports whether t is other or derives from it.
func (t *Tag) IsKindOf(other *Tag) bool {
	return t.Tag.IsKindOf(&other.Tag)
}

// Event is a cell that can be posted to a hub.
type Event interface {
	cell.Cell

	// EventTag returns the tag of the most derived event type.
	EventTag() *Tag

	// TypeID returns the most derived type id.
	TypeID() int

	// Channel returns the channel the event is posted on. Empty means every
	// attached flow.
	Channel() string
	SetChannel(channel string)

	// Handle identifies the session the event belongs to.
	Handle() int
	SetHandle(handle int)

	// WaitHandle correlates a response with the request that awaits it.
	WaitHandle() int
	SetWaitHandle(handle int)

	// Transform reports whether transports may apply buffer transforms.
	Transform() bool
	SetTransform(transform bool)
}

// Root property indices.
const (
	PropHandle = iota
	PropWaitHandle
)

// RootTag is the tag of the root Event type.
var RootTag = NewTag(nil, reflect.TypeFor[Base](), 2, TypeEvent)

// Base is embedded by every event type. On its own it is the root Event.
type Base struct {
	cell.Base

	tag         *Tag
	channel     string
	handle      int
	waitHandle  int
	noTransform bool
}

// New creates a blank root event. It matches every event when used as a
// template.
func New() *Base {
	e := &Base{}
	e.Init(RootTag)
	return e
}

// Init binds the event to its most derived tag.
func (b *Base) Init(tag *Tag) {
	b.Base.Init(&tag.Tag)
	b.tag = tag
}

// EventTag returns the most derived tag.
func (b *Base) EventTag() *Tag {
	return b.tag
}

// TypeID returns the most derived type id.
func (b *Base) TypeID() int {
	return b.tag.TypeID
}

// Channel returns the channel name.
func (b *Base) Channel() string {
	return b.channel
}

// SetChannel sets the channel name.
func (b *Base) SetChannel(channel string) {
	b.channel = channel
}

// Handle returns the session handle.
func (b *Base) Handle() int {
	return b.handle
}

// SetHandle sets the session handle.
func (b *Base) SetHandle(handle int) {
	b.Touch(PropHandle)
	b.handle = handle
}

// WaitHandle returns the wait handle.
func (b *Base) WaitHandle() int {
	return b.waitHandle
}

// SetWaitHandle sets the wait handle.
func (b *Base) SetWaitHandle(handle int) {
	b.Touch(PropWaitHandle)
	b.waitHandle = handle
}

// Transform reports whether buffer transforms apply. Defaults to true.
func (b *Base) Transform() bool {
	return !b.noTransform
}

// SetTransform sets the transform flag.
func (b *Base) SetTransform(transform bool) {
	b.noTransform = !transform
}

// Prop implements cell.Cell.
func (b *Base) Prop(i int) any {
	switch i {
	case PropHandle:
		return b.handle
	case PropWaitHandle:
		return b.waitHandle
	}
	return b.Base.Prop(i)
}

// IsKindOf reports whether e's type is tag or derives from it.
func IsKindOf(e Event, tag *Tag) bool {
	return e.EventTag().IsKindOf(tag)
}

// Equivalent reports whether other satisfies every constraint of template.
func Equivalent(template, other Event) bool {
	return cell.Equivalent(template, other)
}

// Describe renders an event's type and touched properties.
func Describe(e Event) string {
	return cell.Describe(e)
}
