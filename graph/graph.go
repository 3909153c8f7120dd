package graph

import (
	"fmt"
	"reflect"
	"strings"
)

// Cardinality is the multiplicity of the principal side of a relationship.
type Cardinality uint8

// Cardinalities.
const (
	OneToMany Cardinality = iota
	OneToOne
)

// String returns the name of the cardinality.
func (c Cardinality) String() string {
	if c == OneToOne {
		return "one-to-one"
	}
	return "one-to-many"
}

// Shape is the navigation layout of a relationship.
type Shape uint8

// Shapes.
const (
	NoNavigation Shape = iota
	PrincipalOnly
	DependentOnly
	Bidirectional
)

var shapeNames = [...]string{
	NoNavigation:  "none",
	PrincipalOnly: "principal-only",
	DependentOnly: "dependent-only",
	Bidirectional: "bidirectional",
}

// String returns the name of the shape.
func (s Shape) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return fmt.Sprintf("Shape(%d)", s)
}

// Type is an entity kind.
type Type struct {
	Name    string
	GoType  reflect.Type
	Key     []*Field
	Fields  []*Field
	Comment string

	fields map[string]*Field
	navs   map[string]*Navigation
	shadow int
}

// Field returns the property with the given name.
func (t *Type) Field(name string) (*Field, bool) {
	f, ok := t.fields[name]
	return f, ok
}

// Navigation returns the navigation with the given name.
func (t *Type) Navigation(name string) (*Navigation, bool) {
	n, ok := t.navs[name]
	return n, ok
}

// ShadowCount returns the number of shadow properties of the kind.
func (t *Type) ShadowCount() int {
	return t.shadow
}

// HasKey reports whether the kind declares key properties.
func (t *Type) HasKey() bool {
	return len(t.Key) > 0
}

// KeyOf reads the key values of obj.
func (t *Type) KeyOf(obj any) []any {
	key := make([]any, len(t.Key))
	for i, f := range t.Key {
		key[i] = f.get(obj)
	}
	return key
}

// String returns the kind name.
func (t *Type) String() string {
	return t.Name
}

// Field is a property of an entity kind with a resolved accessor.
type Field struct {
	Name   string
	Owner  *Type
	Key    bool
	Shadow bool
	// Slot is the index of a shadow property in the entry value table,
	// or -1 for struct-backed properties.
	Slot int

	get func(obj any) any
	set func(obj any, v any)
}

// Read returns the current value of the property, consulting the entry
// value table for shadow properties.
func (f *Field) Read(obj any, shadow []any) any {
	if f.Shadow {
		if f.Slot < len(shadow) {
			return shadow[f.Slot]
		}
		return nil
	}
	return f.get(obj)
}

// Write stores v into the property.
func (f *Field) Write(obj any, shadow []any, v any) {
	if f.Shadow {
		shadow[f.Slot] = v
		return
	}
	if f.set != nil {
		f.set(obj, v)
	}
}

// Writable reports whether the property can be written.
func (f *Field) Writable() bool {
	return f.Shadow || f.set != nil
}

// Navigation is a navigation property with type-erased accessors.
type Navigation struct {
	Name         string
	Owner        *Type
	Target       *Type
	Collection   bool
	Relationship *Relationship
	// PrincipalSide is true for navigations declared on the principal,
	// pointing at dependents.
	PrincipalSide bool

	get      func(owner any) any
	set      func(owner, target any)
	items    func(owner any) []any
	contains func(owner, item any) bool
	add      func(owner, item any) bool
	remove   func(owner, item any) bool
}

// Get returns the referenced object of a single-valued navigation.
func (n *Navigation) Get(owner any) any {
	if n.Collection {
		return nil
	}
	return n.get(owner)
}

// Targets returns every object the navigation references.
func (n *Navigation) Targets(owner any) []any {
	if n.Collection {
		return n.items(owner)
	}
	if v := n.get(owner); v != nil {
		return []any{v}
	}
	return nil
}

// References reports whether the navigation of owner references target.
func (n *Navigation) References(owner, target any) bool {
	if n.Collection {
		return n.contains(owner, target)
	}
	return n.get(owner) == target
}

// Link makes the navigation of owner reference target and reports whether
// the owner changed. Single-valued navigations are overwritten.
func (n *Navigation) Link(owner, target any) bool {
	if n.Collection {
		return n.add(owner, target)
	}
	if n.get(owner) == target {
		return false
	}
	n.set(owner, target)
	return true
}

// Unlink removes target from the navigation of owner and reports whether the
// owner changed. Single-valued navigations are cleared only when they
// reference target.
func (n *Navigation) Unlink(owner, target any) bool {
	if n.Collection {
		return n.remove(owner, target)
	}
	if n.get(owner) != target {
		return false
	}
	n.set(owner, nil)
	return true
}

// Clear sets a single-valued navigation to nil and reports whether it changed.
func (n *Navigation) Clear(owner any) bool {
	if n.Collection || n.get(owner) == nil {
		return false
	}
	n.set(owner, nil)
	return true
}

// String returns the qualified navigation name, e.g. Category.Products.
func (n *Navigation) String() string {
	return n.Owner.Name + "." + n.Name
}

// Relationship is an immutable description of a principal/dependent
// relationship.
type Relationship struct {
	Name        string
	Principal   *Type
	Dependent   *Type
	ForeignKey  []*Field
	Cardinality Cardinality
	// ToPrincipal is the dependent-side navigation, nil if absent.
	ToPrincipal *Navigation
	// ToDependents is the principal-side navigation, nil if absent.
	ToDependents *Navigation
	Comment      string
}

// Shape returns the navigation layout of the relationship.
func (r *Relationship) Shape() Shape {
	switch {
	case r.ToPrincipal != nil && r.ToDependents != nil:
		return Bidirectional
	case r.ToDependents != nil:
		return PrincipalOnly
	case r.ToPrincipal != nil:
		return DependentOnly
	default:
		return NoNavigation
	}
}

// ForeignKeyOf reads the foreign-key values of a dependent.
func (r *Relationship) ForeignKeyOf(obj any, shadow []any) []any {
	fk := make([]any, len(r.ForeignKey))
	for i, f := range r.ForeignKey {
		fk[i] = f.Read(obj, shadow)
	}
	return fk
}

// HasForeignKeyField reports whether the property is part of the foreign key.
func (r *Relationship) HasForeignKeyField(f *Field) bool {
	for _, fk := range r.ForeignKey {
		if fk == f {
			return true
		}
	}
	return false
}

// String returns a human-readable description of the relationship.
func (r *Relationship) String() string {
	return fmt.Sprintf("%s(%s -> %s [%s] %s, %s)", r.Name, r.Dependent.Name, r.Principal.Name,
		fkName(r.ForeignKey), r.Cardinality, r.Shape())
}

func fkName(fields []*Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return strings.Join(names, ",")
}

// Graph is the immutable relationship model.
type Graph struct {
	types  []*Type
	rels   []*Relationship
	byGo   map[reflect.Type]*Type
	byName map[string]*Type
	byRel  map[string]*Relationship

	asDependent map[*Type][]*Relationship
	asPrincipal map[*Type][]*Relationship
	byFK        map[*Type]map[string]*Relationship
}

// TypeOf returns the kind of a tracked object.
func (g *Graph) TypeOf(obj any) (*Type, bool) {
	if obj == nil {
		return nil, false
	}
	t, ok := g.byGo[reflect.TypeOf(obj)]
	return t, ok
}

// Type returns the kind with the given name.
func (g *Graph) Type(name string) (*Type, bool) {
	t, ok := g.byName[name]
	return t, ok
}

// Types returns all kinds in declaration order.
func (g *Graph) Types() []*Type {
	return g.types
}

// Relationships returns all relationships in declaration order.
func (g *Graph) Relationships() []*Relationship {
	return g.rels
}

// Relationship returns the relationship with the given name.
func (g *Graph) Relationship(name string) (*Relationship, bool) {
	r, ok := g.byRel[name]
	return r, ok
}

// DependentOf returns the relationships in which t is the dependent.
func (g *Graph) DependentOf(t *Type) []*Relationship {
	return g.asDependent[t]
}

// PrincipalOf returns the relationships in which t is the principal.
func (g *Graph) PrincipalOf(t *Type) []*Relationship {
	return g.asPrincipal[t]
}

// ByForeignKey returns the relationship of dependent kind t whose foreign key
// consists of the named properties, in order.
func (g *Graph) ByForeignKey(t *Type, names ...string) (*Relationship, bool) {
	r, ok := g.byFK[t][strings.Join(names, ",")]
	return r, ok
}

// ForeignKeysWith returns the relationships of dependent kind t whose foreign
// key contains the property f.
func (g *Graph) ForeignKeysWith(t *Type, f *Field) []*Relationship {
	var rels []*Relationship
	for _, r := range g.asDependent[t] {
		if r.HasForeignKeyField(f) {
			rels = append(rels, r)
		}
	}
	return rels
}
