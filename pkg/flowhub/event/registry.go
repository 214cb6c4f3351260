package event

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/flowhub/pkg/flowhub/registry"
)

// Registry errors.
var (
	// ErrDuplicateType is returned when a type id is registered twice.
	ErrDuplicateType = errors.New("event type already registered")

	// ErrUnknownType is returned for a type id with no schema.
	ErrUnknownType = errors.New("unknown event type")

	// ErrInvalidSchema is returned for a schema missing its tag or factory.
	ErrInvalidSchema = errors.New("invalid event schema")
)

// Schema describes a registered event type.
type Schema struct {
	// Tag is the type's tag. Its TypeID is the registry key.
	Tag *Tag

	// Name defaults to the tag's name.
	Name string

	// Description explains the event's purpose.
	Description string

	// New creates a blank instance of the type.
	New func() Event

	// Validator is an optional check applied to decoded events.
	Validator func(Event) error
}

// Validate checks that e is an instance of the schema's type and passes the
// optional validator.
func (s *Schema) Validate(e Event) error {
	if e.EventTag() != s.Tag {
		return fmt.Errorf("event type mismatch: expected %s, got %s", s.Tag, e.EventTag())
	}
	if s.Validator != nil {
		if err := s.Validator(e); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}
	return nil
}

// Registry maps type ids to schemas.
type Registry struct {
	schemas *registry.Registry[int, *Schema]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: registry.New[int, *Schema]()}
}

// Register adds a schema. Type ids are unique.
func (r *Registry) Register(s *Schema) error {
	if s == nil || s.Tag == nil || s.New == nil {
		return ErrInvalidSchema
	}
	if s.Name == "" {
		s.Name = s.Tag.Name
	}
	if !r.schemas.Add(s.Tag.TypeID, s) {
		return fmt.Errorf("%w: %d (%s)", ErrDuplicateType, s.Tag.TypeID, s.Name)
	}
	return nil
}

// Get returns the schema for a type id.
func (r *Registry) Get(typeID int) (*Schema, bool) {
	return r.schemas.Get(typeID)
}

// Has reports whether a type id is registered.
func (r *Registry) Has(typeID int) bool {
	return r.schemas.Has(typeID)
}

// Create instantiates a blank event of the given type.
func (r *Registry) Create(typeID int) (Event, error) {
	s, ok := r.schemas.Get(typeID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, typeID)
	}
	return s.New(), nil
}

// Validate checks e against its registered schema.
func (r *Registry) Validate(e Event) error {
	s, ok := r.schemas.Get(e.TypeID())
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownType, e.TypeID())
	}
	return s.Validate(e)
}

// TypeIDs returns all registered type ids in ascending order.
func (r *Registry) TypeIDs() []int {
	return r.schemas.Keys()
}

// DefaultRegistry holds the built-in events and any type registered through
// the package-level functions.
var DefaultRegistry = NewRegistry()

// Register adds a schema to DefaultRegistry.
func Register(s *Schema) error {
	return DefaultRegistry.Register(s)
}

// MustRegister is like Register but panics on error. Event packages call it
// from init.
func MustRegister(s *Schema) {
	if err := Register(s); err != nil {
		panic(err)
	}
}

// Create instantiates a blank event from DefaultRegistry.
func Create(typeID int) (Event, error) {
	return DefaultRegistry.Create(typeID)
}
