package edge

import (
	"reflect"
	"slices"
)

// Descriptor describes a relationship between two entity kinds.
type Descriptor struct {
	Name      string       // Relationship name, unique within the model.
	Principal reflect.Type // Pointer type of the principal kind.
	Dependent reflect.Type // Pointer type of the dependent kind.
	Unique    bool         // One-to-one when true, one-to-many otherwise.
	Fields    []string     // Foreign-key property names on the dependent.
	Ref       *Navigation  // Principal-side navigation, nil if absent.
	Inverse   *Navigation  // Dependent-side navigation, nil if absent.
	Comment   string
}

// Navigation describes a navigation property with type-erased accessors.
// Single-valued navigations populate Get and Set, collections populate
// Items, Contains, Add and Remove.
type Navigation struct {
	Name       string
	Owner      reflect.Type
	Target     reflect.Type
	Collection bool

	Get func(owner any) any
	Set func(owner, target any)

	Items    func(owner any) []any
	Contains func(owner, item any) bool
	// Add appends item and reports whether the collection changed.
	Add func(owner, item any) bool
	// Remove deletes item and reports whether the collection changed.
	Remove func(owner, item any) bool
}

// ManyBuilder is the builder for one-to-many relationships.
type ManyBuilder[P, D any] struct {
	desc *Descriptor
}

// HasMany returns a builder for a one-to-many relationship in which each
// *P principal has any number of *D dependents.
func HasMany[P, D any](name string) *ManyBuilder[P, D] {
	return &ManyBuilder[P, D]{desc: newDescriptor[P, D](name, false)}
}

// Collection declares the principal-side collection navigation.
func (b *ManyBuilder[P, D]) Collection(name string, slice func(*P) *[]*D) *ManyBuilder[P, D] {
	b.desc.Ref = collection(name, slice)
	return b
}

// Reference declares the dependent-side navigation to the principal.
func (b *ManyBuilder[P, D]) Reference(name string, get func(*D) *P, set func(*D, *P)) *ManyBuilder[P, D] {
	b.desc.Inverse = single(name, get, set)
	return b
}

// Field sets the foreign-key properties of the dependent.
func (b *ManyBuilder[P, D]) Field(names ...string) *ManyBuilder[P, D] {
	b.desc.Fields = append(b.desc.Fields, names...)
	return b
}

// Comment sets the comment of the relationship.
func (b *ManyBuilder[P, D]) Comment(c string) *ManyBuilder[P, D] {
	b.desc.Comment = c
	return b
}

// Descriptor returns the relationship descriptor.
func (b *ManyBuilder[P, D]) Descriptor() *Descriptor {
	return b.desc
}

// OneBuilder is the builder for one-to-one relationships.
type OneBuilder[P, D any] struct {
	desc *Descriptor
}

// HasOne returns a builder for a one-to-one relationship in which each *P
// principal has at most one *D dependent.
func HasOne[P, D any](name string) *OneBuilder[P, D] {
	return &OneBuilder[P, D]{desc: newDescriptor[P, D](name, true)}
}

// Single declares the principal-side reference navigation.
func (b *OneBuilder[P, D]) Single(name string, get func(*P) *D, set func(*P, *D)) *OneBuilder[P, D] {
	b.desc.Ref = single(name, get, set)
	return b
}

// Reference declares the dependent-side navigation to the principal.
func (b *OneBuilder[P, D]) Reference(name string, get func(*D) *P, set func(*D, *P)) *OneBuilder[P, D] {
	b.desc.Inverse = single(name, get, set)
	return b
}

// Field sets the foreign-key properties of the dependent.
func (b *OneBuilder[P, D]) Field(names ...string) *OneBuilder[P, D] {
	b.desc.Fields = append(b.desc.Fields, names...)
	return b
}

// Comment sets the comment of the relationship.
func (b *OneBuilder[P, D]) Comment(c string) *OneBuilder[P, D] {
	b.desc.Comment = c
	return b
}

// Descriptor returns the relationship descriptor.
func (b *OneBuilder[P, D]) Descriptor() *Descriptor {
	return b.desc
}

func newDescriptor[P, D any](name string, unique bool) *Descriptor {
	return &Descriptor{
		Name:      name,
		Principal: reflect.TypeFor[*P](),
		Dependent: reflect.TypeFor[*D](),
		Unique:    unique,
	}
}

func single[O, T any](name string, get func(*O) *T, set func(*O, *T)) *Navigation {
	return &Navigation{
		Name:   name,
		Owner:  reflect.TypeFor[*O](),
		Target: reflect.TypeFor[*T](),
		Get: func(owner any) any {
			if v := get(owner.(*O)); v != nil {
				return v
			}
			return nil
		},
		Set: func(owner, target any) {
			t, _ := target.(*T)
			set(owner.(*O), t)
		},
	}
}

func collection[O, T any](name string, slice func(*O) *[]*T) *Navigation {
	return &Navigation{
		Name:       name,
		Owner:      reflect.TypeFor[*O](),
		Target:     reflect.TypeFor[*T](),
		Collection: true,
		Items: func(owner any) []any {
			s := *slice(owner.(*O))
			items := make([]any, 0, len(s))
			for _, v := range s {
				if v != nil {
					items = append(items, v)
				}
			}
			return items
		},
		Contains: func(owner, item any) bool {
			return slices.Contains(*slice(owner.(*O)), item.(*T))
		},
		Add: func(owner, item any) bool {
			s, v := slice(owner.(*O)), item.(*T)
			if slices.Contains(*s, v) {
				return false
			}
			*s = append(*s, v)
			return true
		},
		Remove: func(owner, item any) bool {
			s := slice(owner.(*O))
			i := slices.Index(*s, item.(*T))
			if i < 0 {
				return false
			}
			*s = slices.Delete(*s, i, i+1)
			return true
		},
	}
}
