package tracking

import (
	"strings"

	"github.com/syssam/fixup"
	"github.com/syssam/fixup/graph"
)

// Entry is the tracking wrapper of one object. Exactly one Entry exists per
// tracked object; the object itself stays owned by the application.
type Entry struct {
	tracker *Tracker
	obj     any
	typ     *graph.Type
	state   fixup.EntityState
	shadow  []any
	seq     uint64

	// key is the encoded key the entry is indexed under, "" when unset.
	key string
	// fks holds the encoded foreign key indexed per relationship.
	fks map[*graph.Relationship]string
}

func newEntry(t *Tracker, obj any, typ *graph.Type) *Entry {
	return &Entry{
		tracker: t,
		obj:     obj,
		typ:     typ,
		shadow:  make([]any, typ.ShadowCount()),
		fks:     make(map[*graph.Relationship]string),
	}
}

// Entity returns the tracked object.
func (e *Entry) Entity() any {
	return e.obj
}

// Type returns the entity kind of the object.
func (e *Entry) Type() *graph.Type {
	return e.typ
}

// State returns the attachment state.
func (e *Entry) State() fixup.EntityState {
	return e.state
}

// Key returns the key values of the object.
func (e *Entry) Key() []any {
	return e.typ.KeyOf(e.obj)
}

// Property returns the current value of a property, including shadow
// properties.
func (e *Entry) Property(name string) (any, error) {
	f, ok := e.typ.Field(name)
	if !ok {
		return nil, fixup.NewConfigError(e.typ.Name, name, "property is not declared")
	}
	return f.Read(e.obj, e.shadow), nil
}

// ForeignKey returns the foreign-key values of the object for a relationship
// in which it is the dependent.
func (e *Entry) ForeignKey(r *graph.Relationship) []any {
	return r.ForeignKeyOf(e.obj, e.shadow)
}

// SetProperty writes a property. Writing a foreign-key property of a tracked
// entity runs fixup for every relationship whose foreign key contains it;
// entries that are not attached yet just store the value.
func (e *Entry) SetProperty(name string, v any) error {
	f, ok := e.typ.Field(name)
	if !ok {
		return fixup.NewConfigError(e.typ.Name, name, "property is not declared")
	}
	if !f.Writable() {
		return fixup.NewConfigError(e.typ.Name, name, "property is read-only")
	}
	if e.state == fixup.Detached {
		f.Write(e.obj, e.shadow, v)
		return nil
	}
	if e.state == fixup.Deleted {
		return fixup.NewInvalidStateError(e.typ.Name, "write", e.state, e.state)
	}
	rels := e.tracker.graph.ForeignKeysWith(e.typ, f)
	if len(rels) == 0 {
		f.Write(e.obj, e.shadow, v)
		return nil
	}
	for _, r := range rels {
		values := e.ForeignKey(r)
		for i, fk := range r.ForeignKey {
			if fk == f {
				values[i] = v
			}
		}
		if err := e.tracker.NotifyForeignKeyWrite(e, r, values...); err != nil {
			return err
		}
	}
	return nil
}

// SetForeignKey writes the foreign key made of the named properties. It fails
// with a configuration error when no relationship of the entity kind uses
// exactly that property set.
func (e *Entry) SetForeignKey(names []string, values ...any) error {
	r, ok := e.tracker.graph.ByForeignKey(e.typ, names...)
	if !ok {
		return fixup.NewConfigError(e.typ.Name, strings.Join(names, ","), "no relationship uses this foreign key")
	}
	if e.state == fixup.Detached {
		if len(values) != len(r.ForeignKey) {
			return fixup.NewConfigError(e.typ.Name, r.Name, "expected %d foreign-key values, got %d", len(r.ForeignKey), len(values))
		}
		for i, f := range r.ForeignKey {
			f.Write(e.obj, e.shadow, values[i])
		}
		return nil
	}
	return e.tracker.NotifyForeignKeyWrite(e, r, values...)
}

// String returns the kind and key of the entry, e.g. Product(78).
func (e *Entry) String() string {
	return e.typ.Name + "(" + formatKey(e.Key()) + ")"
}
