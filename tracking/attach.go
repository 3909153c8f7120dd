package tracking

import (
	"reflect"

	"github.com/syssam/fixup"
	"github.com/syssam/fixup/graph"
)

// batch is the set of entries taking part in one attach or reconcile call.
type batch struct {
	entries []*Entry
	added   []*Entry
	byObj   map[any]*Entry
}

func newBatch() *batch {
	return &batch{byObj: make(map[any]*Entry)}
}

func (b *batch) add(e *Entry, isNew bool) {
	b.entries = append(b.entries, e)
	b.byObj[e.obj] = e
	if isNew {
		b.added = append(b.added, e)
	}
}

// claimKey identifies the dependent side of a relationship instance.
type claimKey struct {
	rel       *graph.Relationship
	dependent *Entry
}

type claim struct {
	rel                  *graph.Relationship
	principal, dependent *Entry
}

// claims collects the linkage implied by navigations before any of it is
// applied, so a conflicting graph is rejected without side effects.
type claims struct {
	list []claim
	by   map[claimKey]*Entry
}

func newClaims() *claims {
	return &claims{by: make(map[claimKey]*Entry)}
}

func (c *claims) add(r *graph.Relationship, p, d *Entry) error {
	k := claimKey{rel: r, dependent: d}
	if prev, ok := c.by[k]; ok {
		if prev == p {
			return nil
		}
		return fixup.NewConflictingLinkageError(r.Name, d.String(), prev.String(), p.String())
	}
	c.by[k] = p
	c.list = append(c.list, claim{rel: r, principal: p, dependent: d})
	return nil
}

func (c *claims) has(r *graph.Relationship, d *Entry) bool {
	_, ok := c.by[claimKey{rel: r, dependent: d}]
	return ok
}

// attach implements Attach and AttachRange. It discovers the graph reachable
// from roots, validates it, and only then registers entries and runs fixup.
func (t *Tracker) attach(state fixup.EntityState, roots []any) error {
	b, err := t.discover(state, roots)
	if err != nil {
		return err
	}
	if err := t.checkIdentity(b); err != nil {
		return err
	}
	resolve := func(obj any) *Entry {
		if e, ok := b.byObj[obj]; ok {
			return e
		}
		return t.tracked(obj)
	}
	c := newClaims()
	if err := t.collectClaims(c, b.entries, resolve); err != nil {
		return t.rejected(err)
	}
	if err := t.collectPending(c, b); err != nil {
		return t.rejected(err)
	}
	for _, e := range b.entries {
		if e.state == fixup.Detached {
			t.register(e, state)
			t.logger.Debug("fixup: entity attached", "entity", e.String(), "state", state)
			continue
		}
		if e.state != state {
			t.logger.Debug("fixup: state changed", "entity", e.String(), "from", e.state, "to", state)
			e.state = state
		}
	}
	for _, e := range b.added {
		delete(t.pending, e.obj)
	}
	t.fixup(b.entries, c)
	return nil
}

// discover walks the navigations of roots breadth-first. Untracked objects
// join the batch and are walked further; tracked objects other than roots are
// neither changed nor walked.
func (t *Tracker) discover(state fixup.EntityState, roots []any) (*batch, error) {
	if !state.IsFixupTarget() {
		return nil, fixup.NewInvalidStateError(t.typeName(roots[0]), "attach", fixup.Detached, state)
	}
	isRoot := make(map[any]bool, len(roots))
	for _, obj := range roots {
		isRoot[obj] = true
	}
	var (
		b       = newBatch()
		visited = make(map[any]bool)
		queue   = append([]any(nil), roots...)
	)
	for len(queue) > 0 {
		obj := queue[0]
		queue = queue[1:]
		if visited[obj] {
			continue
		}
		visited[obj] = true
		e, tracked := t.entries[obj]
		switch {
		case tracked && !isRoot[obj]:
			continue
		case tracked:
			if !e.state.CanTransition(state) {
				return nil, fixup.NewInvalidStateError(e.typ.Name, "attach", e.state, state)
			}
			b.add(e, false)
		default:
			staged, ok := t.staged[obj]
			if !ok {
				typ, ok := t.graph.TypeOf(obj)
				if !ok {
					return nil, unknownType(obj)
				}
				staged = newEntry(t, obj, typ)
			}
			e = staged
			b.add(e, true)
		}
		for _, next := range neighbors(t.graph, e) {
			if !visited[next] {
				queue = append(queue, next)
			}
		}
	}
	return b, nil
}

// neighbors returns the objects one navigation hop away from e.
func neighbors(g *graph.Graph, e *Entry) []any {
	var objs []any
	for _, r := range g.DependentOf(e.typ) {
		if r.ToPrincipal != nil {
			objs = append(objs, r.ToPrincipal.Targets(e.obj)...)
		}
	}
	for _, r := range g.PrincipalOf(e.typ) {
		if r.ToDependents != nil {
			objs = append(objs, r.ToDependents.Targets(e.obj)...)
		}
	}
	return objs
}

// checkIdentity rejects a batch that would track two instances with the
// same key.
func (t *Tracker) checkIdentity(b *batch) error {
	seen := make(map[*graph.Type]map[string]bool)
	for _, e := range b.added {
		key, ok := encodeKey(e.Key())
		if !ok {
			continue
		}
		if other := t.keys.get(e.typ, key); other != nil && other != e {
			return fixup.NewIdentityConflictError(e.typ.Name, formatKey(e.Key()))
		}
		if seen[e.typ] == nil {
			seen[e.typ] = make(map[string]bool)
		}
		if seen[e.typ][key] {
			return fixup.NewIdentityConflictError(e.typ.Name, formatKey(e.Key()))
		}
		seen[e.typ][key] = true
	}
	return nil
}

// collectClaims records the linkage the navigations of members imply.
// resolve maps a navigation target to the entry that can take part in fixup,
// or nil.
func (t *Tracker) collectClaims(c *claims, members []*Entry, resolve func(any) *Entry) error {
	for _, m := range members {
		for _, r := range t.graph.DependentOf(m.typ) {
			if r.ToPrincipal == nil {
				continue
			}
			if p := resolve(r.ToPrincipal.Get(m.obj)); p != nil {
				if err := c.add(r, p, m); err != nil {
					return err
				}
			}
		}
		for _, r := range t.graph.PrincipalOf(m.typ) {
			if r.ToDependents == nil {
				continue
			}
			for _, obj := range r.ToDependents.Targets(m.obj) {
				if d := resolve(obj); d != nil {
					if err := c.add(r, m, d); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// collectPending turns navigations of tracked entities that referenced an
// object of the batch before it was attached into claims.
func (t *Tracker) collectPending(c *claims, b *batch) error {
	for _, e := range b.added {
		for _, ref := range t.pending[e.obj] {
			if t.tracked(ref.from.obj) != ref.from || !ref.nav.References(ref.from.obj, e.obj) {
				continue
			}
			p, d := e, ref.from
			if ref.nav.PrincipalSide {
				p, d = ref.from, e
			}
			if err := c.add(ref.nav.Relationship, p, d); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *Tracker) rejected(err error) error {
	t.stats.Conflicts.Add(1)
	t.logger.Warn("fixup: linkage rejected", "error", err)
	return err
}

func (t *Tracker) typeName(obj any) string {
	if typ, ok := t.graph.TypeOf(obj); ok {
		return typ.Name
	}
	return reflect.TypeOf(obj).String()
}
