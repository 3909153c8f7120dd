package field

import (
	"reflect"
)

// Descriptor describes a single entity property.
type Descriptor struct {
	Name    string       // Property name, unique within the entity kind.
	Key     bool         // Property is part of the primary key.
	Shadow  bool         // Value is stored in the tracking entry, not on the object.
	Comment string       // Optional documentation.
	Owner   reflect.Type // Pointer type the accessors accept. Nil for shadow properties.
	Type    reflect.Type // Go type of the property. Nil for shadow properties.

	// Get reads the property from the object. Nil for shadow properties.
	Get func(obj any) any
	// Set writes the property on the object. Nil for shadow and key properties.
	Set func(obj any, v any)
}

// Builder is the builder for entity properties.
type Builder struct {
	desc *Descriptor
}

// Key returns a read-only key property backed by a struct field.
//
//	field.Key("Id", func(c *Category) int { return c.ID })
func Key[T any, V comparable](name string, get func(*T) V) *Builder {
	return &Builder{desc: &Descriptor{
		Name:  name,
		Key:   true,
		Owner: reflect.TypeFor[*T](),
		Type:  reflect.TypeFor[V](),
		Get: func(obj any) any {
			return Normalize(get(obj.(*T)))
		},
	}}
}

// Of returns a property backed by a struct field, typically a foreign key.
//
//	field.Of("ParentID", func(c *Child) int { return c.ParentID },
//	    func(c *Child, v int) { c.ParentID = v })
func Of[T any, V any](name string, get func(*T) V, set func(*T, V)) *Builder {
	return &Builder{desc: &Descriptor{
		Name:  name,
		Owner: reflect.TypeFor[*T](),
		Type:  reflect.TypeFor[V](),
		Get: func(obj any) any {
			return Normalize(get(obj.(*T)))
		},
		Set: func(obj any, v any) {
			set(obj.(*T), Convert[V](v))
		},
	}}
}

// Shadow returns a property that exists in the model but not on the Go type.
// Its value is held by the tracking entry of each object.
func Shadow(name string) *Builder {
	return &Builder{desc: &Descriptor{Name: name, Shadow: true}}
}

// Comment sets the comment of the property.
func (b *Builder) Comment(c string) *Builder {
	b.desc.Comment = c
	return b
}

// Descriptor implements the schema.Field interface by returning its descriptor.
func (b *Builder) Descriptor() *Descriptor {
	return b.desc
}
