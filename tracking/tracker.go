package tracking

import (
	"log/slog"
	"reflect"
	"slices"

	"github.com/syssam/fixup"
	"github.com/syssam/fixup/graph"
)

// Tracker is the registry of tracked entities for one unit of work. It maps
// object identity to its Entry and runs relationship fixup whenever an
// entity is attached or one of its relationship properties is written.
//
// A Tracker is not safe for concurrent use; it must be owned by a single
// goroutine. Trackers share nothing with each other except the read-only
// Graph.
type Tracker struct {
	graph   *graph.Graph
	entries map[any]*Entry
	order   []*Entry
	staged  map[any]*Entry
	keys    principalIndex
	fks     foreignKeyIndex
	pending map[any][]pendingRef
	guard   map[guardKey]int
	seq     uint64

	stats  *Stats
	logger *slog.Logger
}

// New returns an empty Tracker for the model g.
func New(g *graph.Graph, opts ...Option) *Tracker {
	t := &Tracker{
		graph:   g,
		entries: make(map[any]*Entry),
		staged:  make(map[any]*Entry),
		keys:    make(principalIndex),
		fks:     make(foreignKeyIndex),
		pending: make(map[any][]pendingRef),
		guard:   make(map[guardKey]int),
		stats:   &Stats{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Graph returns the relationship model of the tracker.
func (t *Tracker) Graph() *graph.Graph {
	return t.graph
}

// Stats returns the statistics the tracker records into.
func (t *Tracker) Stats() *Stats {
	return t.stats
}

// Len returns the number of tracked entities.
func (t *Tracker) Len() int {
	return len(t.entries)
}

// Entries returns the tracked entries in the order they were attached.
func (t *Tracker) Entries() []*Entry {
	return slices.Clone(t.order)
}

// EntryFor returns the entry of a tracked object. It reports false for
// objects that are not tracked, including staged ones.
func (t *Tracker) EntryFor(obj any) (*Entry, bool) {
	if isNil(obj) {
		return nil, false
	}
	e, ok := t.entries[obj]
	return e, ok
}

// Find returns the tracked entry of kind typ whose key equals key.
func (t *Tracker) Find(typ *graph.Type, key ...any) (*Entry, bool) {
	k, ok := encodeKey(key)
	if !ok {
		return nil, false
	}
	e := t.keys.get(typ, k)
	return e, e != nil
}

// Entry returns the entry of obj. When obj is not tracked, a detached entry
// is staged for it: its properties, including shadow foreign keys, can be set
// before the object is attached by Attach or by SetState.
func (t *Tracker) Entry(obj any) (*Entry, error) {
	if isNil(obj) {
		return nil, fixup.NewConfigError("<nil>", "", "cannot create an entry for a nil object")
	}
	if e, ok := t.entries[obj]; ok {
		return e, nil
	}
	if e, ok := t.staged[obj]; ok {
		return e, nil
	}
	typ, ok := t.graph.TypeOf(obj)
	if !ok {
		return nil, unknownType(obj)
	}
	e := newEntry(t, obj, typ)
	t.staged[obj] = e
	return e, nil
}

// Attach starts tracking obj in the given state, together with every object
// reachable from it through navigations that is not tracked yet. Objects
// already tracked keep their state, except obj itself, whose state is
// updated. Fixup runs for all entities attached by the call before Attach
// returns.
//
// Attaching a nil object is a no-op. Attaching an object tracked as Deleted
// fails with an InvalidStateError.
func (t *Tracker) Attach(obj any, state fixup.EntityState) (*Entry, error) {
	if isNil(obj) {
		return nil, nil
	}
	if err := t.attach(state, []any{obj}); err != nil {
		return nil, err
	}
	return t.entries[obj], nil
}

// AttachRange attaches several objects in one call, as if they had all been
// reached from a single root. Nil objects are skipped.
func (t *Tracker) AttachRange(state fixup.EntityState, objs ...any) ([]*Entry, error) {
	roots := make([]any, 0, len(objs))
	for _, obj := range objs {
		if !isNil(obj) {
			roots = append(roots, obj)
		}
	}
	if len(roots) == 0 {
		return nil, nil
	}
	if err := t.attach(state, roots); err != nil {
		return nil, err
	}
	entries := make([]*Entry, len(roots))
	for i, obj := range roots {
		entries[i] = t.entries[obj]
	}
	return entries, nil
}

// SetState moves a tracked entry to another state. The transition itself does
// not run fixup, with two exceptions: a staged entry moved to a tracked state
// is attached, and an entry moved to Detached has the references other
// tracked entities hold to it cleared before it leaves the tracker. The
// detached object's own foreign keys and navigations are left untouched.
func (t *Tracker) SetState(e *Entry, state fixup.EntityState) error {
	if e == nil || e.tracker != t {
		return fixup.NewConfigError("<entry>", "", "entry does not belong to this tracker")
	}
	if e.state == fixup.Detached {
		if state == fixup.Detached {
			delete(t.staged, e.obj)
			return nil
		}
		_, err := t.Attach(e.obj, state)
		return err
	}
	if !e.state.CanTransition(state) {
		return fixup.NewInvalidStateError(e.typ.Name, "change state of", e.state, state)
	}
	if state == fixup.Detached {
		t.detach(e)
		return nil
	}
	if e.state != state {
		t.logger.Debug("fixup: state changed", "entity", e.String(), "from", e.state, "to", state)
		e.state = state
	}
	return nil
}

// register adds a planned entry to the tracker in the given state.
func (t *Tracker) register(e *Entry, state fixup.EntityState) {
	t.seq++
	e.seq = t.seq
	e.state = state
	t.entries[e.obj] = e
	t.order = append(t.order, e)
	delete(t.staged, e.obj)
	if key, ok := encodeKey(e.Key()); ok {
		e.key = key
		t.keys.put(e)
	}
	t.reindexForeignKeys(e)
	t.stats.Attached.Add(1)
}

// detach removes e from the tracker after clearing the reciprocal references
// of the entities it is related to. The entry stays staged for its object.
func (t *Tracker) detach(e *Entry) {
	for _, r := range t.graph.DependentOf(e.typ) {
		if r.ToDependents == nil {
			continue
		}
		for _, p := range t.previousPrincipals(r, e, nil) {
			t.unlinkNavigation(r.ToDependents, p, e.obj)
		}
	}
	for _, r := range t.graph.PrincipalOf(e.typ) {
		if r.ToPrincipal == nil {
			continue
		}
		for _, d := range t.currentDependents(r, e) {
			t.unlinkNavigation(r.ToPrincipal, d, e.obj)
		}
	}
	delete(t.entries, e.obj)
	t.order = slices.DeleteFunc(t.order, func(o *Entry) bool { return o == e })
	t.keys.delete(e)
	for r, key := range e.fks {
		t.fks.delete(r, key, e)
	}
	clear(e.fks)
	e.key = ""
	e.seq = 0
	t.dropPendingFrom(e)
	e.state = fixup.Detached
	// Staged again, so reattaching reuses the entry and its shadow values.
	t.staged[e.obj] = e
	t.stats.Detached.Add(1)
	t.logger.Debug("fixup: entity detached", "entity", e.String())
}

// reindexForeignKeys refreshes the foreign-key index entries of a dependent
// after one of its foreign-key properties changed.
func (t *Tracker) reindexForeignKeys(e *Entry) {
	for _, r := range t.graph.DependentOf(e.typ) {
		key, _ := encodeKey(e.ForeignKey(r))
		old, indexed := e.fks[r]
		if indexed && old == key {
			continue
		}
		if indexed {
			t.fks.delete(r, old, e)
			delete(e.fks, r)
		}
		if key != "" {
			t.fks.put(r, key, e)
			e.fks[r] = key
		}
	}
}

// principalByKey returns the tracked principal of kind typ whose key equals
// values, if it can take part in fixup.
func (t *Tracker) principalByKey(typ *graph.Type, values []any) *Entry {
	key, ok := encodeKey(values)
	if !ok {
		return nil
	}
	if p := t.keys.get(typ, key); p != nil && p.state.IsFixupTarget() {
		return p
	}
	return nil
}

// tracked returns the entry of obj if it is tracked and can take part in fixup.
func (t *Tracker) tracked(obj any) *Entry {
	if obj == nil {
		return nil
	}
	if e, ok := t.entries[obj]; ok && e.state.IsFixupTarget() {
		return e
	}
	return nil
}

func isNil(obj any) bool {
	if obj == nil {
		return true
	}
	rv := reflect.ValueOf(obj)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func unknownType(obj any) error {
	return fixup.NewConfigError(reflect.TypeOf(obj).String(), "", "entity type is not part of the model")
}
