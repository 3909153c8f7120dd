package graph

import (
	"reflect"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/syssam/fixup"
	"github.com/syssam/fixup/schema"
	"github.com/syssam/fixup/schema/edge"
)

// Entity is the interface implemented by entity kind builders.
type Entity interface {
	Descriptor() *schema.Descriptor
}

// Edge is the interface implemented by relationship builders.
type Edge interface {
	Descriptor() *edge.Descriptor
}

// Builder compiles entity and relationship declarations into a Graph.
type Builder struct {
	entities []*schema.Descriptor
	edges    []*edge.Descriptor
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Entity adds entity kinds to the model.
func (b *Builder) Entity(entities ...Entity) *Builder {
	for _, e := range entities {
		b.entities = append(b.entities, e.Descriptor())
	}
	return b
}

// Edge adds relationships to the model.
func (b *Builder) Edge(edges ...Edge) *Builder {
	for _, e := range edges {
		b.edges = append(b.edges, e.Descriptor())
	}
	return b
}

// Build validates the declarations and returns the compiled Graph.
func (b *Builder) Build() (*Graph, error) {
	g := &Graph{
		byGo:        make(map[reflect.Type]*Type),
		byName:      make(map[string]*Type),
		byRel:       make(map[string]*Relationship),
		asDependent: make(map[*Type][]*Relationship),
		asPrincipal: make(map[*Type][]*Relationship),
		byFK:        make(map[*Type]map[string]*Relationship),
	}
	var errs []error
	for _, d := range b.entities {
		t, err := newType(d)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, ok := g.byName[t.Name]; ok {
			errs = append(errs, fixup.NewConfigError(t.Name, "", "entity name declared twice"))
			continue
		}
		if prev, ok := g.byGo[t.GoType]; ok {
			errs = append(errs, fixup.NewConfigError(t.Name, "", "Go type %s already declared by %s", t.GoType, prev.Name))
			continue
		}
		g.types = append(g.types, t)
		g.byName[t.Name] = t
		g.byGo[t.GoType] = t
	}
	for _, d := range b.edges {
		r, err := g.newRelationship(d)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		g.rels = append(g.rels, r)
		g.byRel[r.Name] = r
		g.asDependent[r.Dependent] = append(g.asDependent[r.Dependent], r)
		g.asPrincipal[r.Principal] = append(g.asPrincipal[r.Principal], r)
		if g.byFK[r.Dependent] == nil {
			g.byFK[r.Dependent] = make(map[string]*Relationship)
		}
		g.byFK[r.Dependent][fkName(r.ForeignKey)] = r
	}
	if err := fixup.NewAggregateError(errs...); err != nil {
		return nil, err
	}
	return g, nil
}

// MustBuild is like Build but panics if the declarations are invalid.
func (b *Builder) MustBuild() *Graph {
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}

func newType(d *schema.Descriptor) (*Type, error) {
	if d.Type == nil || d.Type.Kind() != reflect.Pointer {
		return nil, fixup.NewConfigError(d.Name, "", "entity type must be a pointer type")
	}
	if d.Name == "" {
		return nil, fixup.NewConfigError(d.Type.String(), "", "entity name is empty")
	}
	t := &Type{
		Name:    d.Name,
		GoType:  d.Type,
		Comment: d.Comment,
		fields:  make(map[string]*Field),
		navs:    make(map[string]*Navigation),
	}
	for _, fd := range d.Fields {
		if _, ok := t.fields[fd.Name]; ok {
			return nil, fixup.NewConfigError(d.Name, fd.Name, "property declared twice")
		}
		if !fd.Shadow && fd.Owner != d.Type {
			return nil, fixup.NewConfigError(d.Name, fd.Name, "accessor expects %s, entity type is %s", fd.Owner, d.Type)
		}
		if fd.Key && fd.Shadow {
			return nil, fixup.NewConfigError(d.Name, fd.Name, "key properties must be backed by a struct field")
		}
		t.addField(&Field{
			Name:   fd.Name,
			Key:    fd.Key,
			Shadow: fd.Shadow,
			get:    fd.Get,
			set:    fd.Set,
		})
	}
	return t, nil
}

func (t *Type) addField(f *Field) {
	f.Owner = t
	f.Slot = -1
	if f.Shadow {
		f.Slot = t.shadow
		t.shadow++
	}
	t.Fields = append(t.Fields, f)
	t.fields[f.Name] = f
	if f.Key {
		t.Key = append(t.Key, f)
	}
}

func (g *Graph) newRelationship(d *edge.Descriptor) (*Relationship, error) {
	if d.Name == "" {
		return nil, fixup.NewConfigError("relationship", "", "relationship name is empty")
	}
	if _, ok := g.byRel[d.Name]; ok {
		return nil, fixup.NewConfigError(d.Name, "", "relationship declared twice")
	}
	principal, ok := g.byGo[d.Principal]
	if !ok {
		return nil, fixup.NewConfigError(d.Name, "", "principal type %s is not declared", d.Principal)
	}
	dependent, ok := g.byGo[d.Dependent]
	if !ok {
		return nil, fixup.NewConfigError(d.Name, "", "dependent type %s is not declared", d.Dependent)
	}
	if !principal.HasKey() {
		return nil, fixup.NewConfigError(d.Name, "", "principal %s has no key", principal.Name)
	}
	r := &Relationship{
		Name:        d.Name,
		Principal:   principal,
		Dependent:   dependent,
		Cardinality: OneToMany,
		Comment:     d.Comment,
	}
	if d.Unique {
		r.Cardinality = OneToOne
	}
	fk, err := foreignKey(d, principal, dependent)
	if err != nil {
		return nil, err
	}
	r.ForeignKey = fk
	if _, ok := g.byFK[dependent][fkName(fk)]; ok {
		return nil, fixup.NewConfigError(d.Name, fkName(fk), "foreign key already used by another relationship of %s", dependent.Name)
	}
	if d.Ref != nil {
		if d.Ref.Collection && r.Cardinality == OneToOne {
			return nil, fixup.NewConfigError(d.Name, d.Ref.Name, "principal navigation of a one-to-one relationship must be single-valued")
		}
		if !d.Ref.Collection && r.Cardinality == OneToMany {
			return nil, fixup.NewConfigError(d.Name, d.Ref.Name, "principal navigation of a one-to-many relationship must be a collection")
		}
		n, err := newNavigation(d.Ref, principal, dependent, r, true)
		if err != nil {
			return nil, err
		}
		r.ToDependents = n
	}
	if d.Inverse != nil {
		if d.Inverse.Collection {
			return nil, fixup.NewConfigError(d.Name, d.Inverse.Name, "dependent navigation must be single-valued")
		}
		n, err := newNavigation(d.Inverse, dependent, principal, r, false)
		if err != nil {
			return nil, err
		}
		r.ToPrincipal = n
	}
	// Navigations are registered only once the relationship is known to be valid.
	for _, n := range []*Navigation{r.ToDependents, r.ToPrincipal} {
		if n != nil {
			n.Owner.navs[n.Name] = n
		}
	}
	return r, nil
}

// foreignKey resolves the foreign-key properties of a relationship. When none
// are declared, a shadow property named after the principal and its key is
// added to the dependent (e.g. CategoryId).
func foreignKey(d *edge.Descriptor, principal, dependent *Type) ([]*Field, error) {
	names := d.Fields
	if len(names) == 0 {
		if len(principal.Key) != 1 {
			return nil, fixup.NewConfigError(d.Name, "", "composite key of %s requires explicit foreign-key properties", principal.Name)
		}
		name := DefaultForeignKey(principal.Name, principal.Key[0].Name)
		if _, ok := dependent.fields[name]; !ok {
			dependent.addField(&Field{Name: name, Shadow: true})
		}
		names = []string{name}
	}
	if len(names) != len(principal.Key) {
		return nil, fixup.NewConfigError(d.Name, strings.Join(names, ","), "foreign key has %d properties, key of %s has %d",
			len(names), principal.Name, len(principal.Key))
	}
	fk := make([]*Field, len(names))
	for i, name := range names {
		f, ok := dependent.fields[name]
		if !ok {
			return nil, fixup.NewConfigError(dependent.Name, name, "foreign-key property is not declared")
		}
		if !f.Writable() {
			return nil, fixup.NewConfigError(dependent.Name, name, "foreign-key property is read-only")
		}
		fk[i] = f
	}
	return fk, nil
}

func newNavigation(d *edge.Navigation, owner, target *Type, r *Relationship, principalSide bool) (*Navigation, error) {
	if d.Name == "" {
		return nil, fixup.NewConfigError(owner.Name, "", "navigation name is empty")
	}
	if d.Owner != owner.GoType || d.Target != target.GoType {
		return nil, fixup.NewConfigError(owner.Name, d.Name, "navigation types do not match relationship %s", r.Name)
	}
	if _, ok := owner.navs[d.Name]; ok {
		return nil, fixup.NewConfigError(owner.Name, d.Name, "navigation declared twice")
	}
	if _, ok := owner.fields[d.Name]; ok {
		return nil, fixup.NewConfigError(owner.Name, d.Name, "navigation name collides with a property")
	}
	return &Navigation{
		Name:          d.Name,
		Owner:         owner,
		Target:        target,
		Collection:    d.Collection,
		Relationship:  r,
		PrincipalSide: principalSide,
		get:           d.Get,
		set:           d.Set,
		items:         d.Items,
		contains:      d.Contains,
		add:           d.Add,
		remove:        d.Remove,
	}, nil
}

// DefaultForeignKey returns the conventional foreign-key property name for a
// principal kind and key property, e.g. ("Category", "Id") -> "CategoryId".
func DefaultForeignKey(principal, key string) string {
	return inflect.Camelize(inflect.Underscore(principal) + "_" + inflect.Underscore(key))
}
