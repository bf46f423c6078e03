// Package schema is the EventSchema registry: immutable, hashable schema
// definitions for validating event payloads against a typed field
// contract. Pure domain package — no I/O.
package schema

import (
	"fmt"
	"strings"
	"sync"
)

// FieldType enumerates the supported field types in an event schema.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldInteger FieldType = "integer"
	FieldDecimal FieldType = "decimal"
	FieldBoolean FieldType = "boolean"
	FieldDate FieldType = "date"
	FieldDatetime FieldType = "datetime"
	FieldUUID FieldType = "uuid"
	FieldCurrency FieldType = "currency"
	FieldObject FieldType = "object"
	FieldArray FieldType = "array"
)

// FieldSchema describes one field of an event payload.
type FieldSchema struct {
	Name string
	Type FieldType
	Required bool
	Nullable bool
	Description string

	NestedFields []FieldSchema // FieldObject
	ItemType FieldType // FieldArray, scalar items
	ItemSchema []FieldSchema // FieldArray, object items

	MinValue *string // decimal string bound, compared numerically by validators
	MaxValue *string

	MinLength *int
	MaxLength *int
	Pattern string

	AllowedValues map[string]struct{}
}

// Validate checks a FieldSchema's own internal consistency (structural
// invariants: OBJECT needs nested_fields, ARRAY needs item_type or
// item_schema).
func (f FieldSchema) Validate() error {
	if f.Type == FieldObject && len(f.NestedFields) == 0 {
		return fmt.Errorf("field %q of type object must have nested fields", f.Name)
	}
	if f.Type == FieldArray {
		if f.ItemType == "" && len(f.ItemSchema) == 0 {
			return fmt.Errorf("field %q of type array must have item_type or item_schema", f.Name)
		}
		if f.ItemType == FieldObject && len(f.ItemSchema) == 0 {
			return fmt.Errorf("field %q with item_type object must have item_schema", f.Name)
		}
	}
	return nil
}

// EventSchema is the complete, immutable schema for one event type and
// version. Construct via New; all fields are validated up front, and the
// field-path index is computed once and reused (registries are populated
// at startup and read-only thereafter).
type EventSchema struct {
	EventType string
	Version int
	Fields []FieldSchema
	Description string

	Deprecated bool
	DeprecatedMessage string
	SupersededByVersion int

	paths map[string]FieldSchema
	pathOrder []string
	once sync.Once
}

// New constructs and validates an EventSchema.
func New(eventType string, version int, fields []FieldSchema) (*EventSchema, error) {
	if eventType == "" {
		return nil, fmt.Errorf("event_type is required")
	}
	if version < 1 {
		return nil, fmt.Errorf("version must be >= 1")
	}
	if !strings.Contains(eventType, ".") {
		return nil, fmt.Errorf("event_type must be namespaced (contain a dot): %s", eventType)
	}
	for _, f := range fields {
		if err := f.Validate(); err != nil {
			return nil, err
		}
	}
	s := &EventSchema{EventType: eventType, Version: version, Fields: fields}
	s.buildIndex()
	return s, nil
}

// SchemaKey is the unique registry key "<event_type>:v<version>".
func (s *EventSchema) SchemaKey() string {
	return fmt.Sprintf("%s:v%d", s.EventType, s.Version)
}

func (s *EventSchema) buildIndex() {
	s.paths = make(map[string]FieldSchema)
	var walk func(fields []FieldSchema, prefix string)
	walk = func(fields []FieldSchema, prefix string) {
		for _, f := range fields {
			path := f.Name
			if prefix != "" {
				path = prefix + f.Name
			}
			s.paths[path] = f
			s.pathOrder = append(s.pathOrder, path)
			if f.Type == FieldObject && len(f.NestedFields) > 0 {
				walk(f.NestedFields, path+".")
			}
			if f.Type == FieldArray && len(f.ItemSchema) > 0 {
				walk(f.ItemSchema, path+"[*].")
			}
		}
	}
	walk(s.Fields, "")
}

// AllFieldPaths returns every valid dot-notation field path in this schema,
// including nested-object and [*]-wildcard array-item paths.
func (s *EventSchema) AllFieldPaths() []string {
	s.once.Do(func() {
		if s.paths == nil {
			s.buildIndex()
		}
	})
	return s.pathOrder
}

// HasField reports whether a dot-notation path exists in this schema.
func (s *EventSchema) HasField(path string) bool {
	_, ok := s.paths[path]
	return ok
}

// GetField returns the FieldSchema for a dot-notation path, if present.
func (s *EventSchema) GetField(path string) (FieldSchema, bool) {
	f, ok := s.paths[path]
	return f, ok
}

// GetFieldsDict returns the top-level fields keyed by name.
func (s *EventSchema) GetFieldsDict() map[string]FieldSchema {
	out := make(map[string]FieldSchema, len(s.Fields))
	for _, f := range s.Fields {
		out[f.Name] = f
	}
	return out
}

// Registry holds every registered EventSchema keyed by SchemaKey, plus a
// latest-version index per event_type. Populated once at startup; not
// safe for concurrent writes after Seal.
type Registry struct {
	mu sync.RWMutex
	byKey map[string]*EventSchema
	latest map[string]*EventSchema
	sealed bool
}

// NewRegistry builds an empty schema registry.
func NewRegistry() *Registry {
	return &Registry{
		byKey: make(map[string]*EventSchema),
		latest: make(map[string]*EventSchema),
	}
}

// Register adds a schema. Returns an error if the registry is sealed or the
// schema key is already registered.
func (r *Registry) Register(s *EventSchema) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("schema registry is sealed: cannot register %s", s.SchemaKey())
	}
	if _, exists := r.byKey[s.SchemaKey()]; exists {
		return fmt.Errorf("schema already registered: %s", s.SchemaKey())
	}
	r.byKey[s.SchemaKey()] = s
	if cur, ok := r.latest[s.EventType]; !ok || s.Version > cur.Version {
		r.latest[s.EventType] = s
	}
	return nil
}

// Seal freezes the registry against further registration (registries
// are read-only after startup).
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Get returns the exact version of a schema, if registered.
func (r *Registry) Get(eventType string, version int) (*EventSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byKey[fmt.Sprintf("%s:v%d", eventType, version)]
	return s, ok
}

// Latest returns the highest-version schema registered for an event type.
func (r *Registry) Latest(eventType string) (*EventSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.latest[eventType]
	return s, ok
}
