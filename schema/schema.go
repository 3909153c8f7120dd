package schema

import (
	"reflect"

	"github.com/syssam/fixup/schema/field"
)

// Field is the interface implemented by property builders.
type Field interface {
	Descriptor() *field.Descriptor
}

// Descriptor describes an entity kind.
type Descriptor struct {
	Name    string       // Entity kind name.
	Type    reflect.Type // Pointer type of tracked objects.
	Fields  []*field.Descriptor
	Comment string
}

// Builder is the builder for entity kinds.
type Builder struct {
	desc *Descriptor
}

// Entity returns a builder for the entity kind named name whose objects are
// of type *T.
func Entity[T any](name string) *Builder {
	return &Builder{desc: &Descriptor{
		Name: name,
		Type: reflect.TypeFor[*T](),
	}}
}

// Fields appends properties to the entity kind.
func (b *Builder) Fields(fields ...Field) *Builder {
	for _, f := range fields {
		b.desc.Fields = append(b.desc.Fields, f.Descriptor())
	}
	return b
}

// Comment sets the comment of the entity kind.
func (b *Builder) Comment(c string) *Builder {
	b.desc.Comment = c
	return b
}

// Descriptor returns the descriptor of the entity kind.
func (b *Builder) Descriptor() *Descriptor {
	return b.desc
}
