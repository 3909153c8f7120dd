package tracking

import (
	"slices"

	"github.com/syssam/fixup"
	"github.com/syssam/fixup/graph"
	"github.com/syssam/fixup/schema/field"
)

// guardKey marks a relationship of an entry as being reconciled.
type guardKey struct {
	rel   *graph.Relationship
	entry *Entry
}

// hold marks (r, e) as being reconciled until the returned func is called.
// Notifications for a held pair are ignored, which stops the reciprocal
// writes of one reconciliation from triggering another.
func (t *Tracker) hold(r *graph.Relationship, e *Entry) func() {
	k := guardKey{rel: r, entry: e}
	t.guard[k]++
	return func() {
		if t.guard[k]--; t.guard[k] <= 0 {
			delete(t.guard, k)
		}
	}
}

func (t *Tracker) busy(r *graph.Relationship, e *Entry) bool {
	return t.guard[guardKey{rel: r, entry: e}] > 0
}

// pendingRef is a navigation of a tracked entity that references an object
// not tracked yet. It becomes linkage when that object is attached.
type pendingRef struct {
	nav  *graph.Navigation
	from *Entry
}

func (t *Tracker) addPending(target any, ref pendingRef) {
	if slices.Contains(t.pending[target], ref) {
		return
	}
	t.pending[target] = append(t.pending[target], ref)
}

// dropPending forgets the pending references of from through nav, to target
// or to any object if target is nil.
func (t *Tracker) dropPending(nav *graph.Navigation, from *Entry, target any) {
	for obj, refs := range t.pending {
		if target != nil && obj != target {
			continue
		}
		refs = slices.DeleteFunc(refs, func(ref pendingRef) bool {
			return ref.nav == nav && ref.from == from
		})
		if len(refs) == 0 {
			delete(t.pending, obj)
		} else {
			t.pending[obj] = refs
		}
	}
}

// dropPendingFrom forgets every pending reference held by e.
func (t *Tracker) dropPendingFrom(e *Entry) {
	for obj, refs := range t.pending {
		refs = slices.DeleteFunc(refs, func(ref pendingRef) bool { return ref.from == e })
		if len(refs) == 0 {
			delete(t.pending, obj)
		} else {
			t.pending[obj] = refs
		}
	}
}

// fixup reconciles entries after an attach or reconcile call: linkage derived
// from foreign keys first, then the linkage claimed by navigations, which wins
// where the two disagree.
func (t *Tracker) fixup(entries []*Entry, c *claims) {
	for _, e := range entries {
		if !e.state.IsFixupTarget() {
			continue
		}
		for _, r := range t.graph.DependentOf(e.typ) {
			if c.has(r, e) {
				continue
			}
			if p := t.principalByKey(r.Principal, e.ForeignKey(r)); p != nil {
				t.link(r, p, e)
			}
		}
		for _, r := range t.graph.PrincipalOf(e.typ) {
			for _, d := range t.fks.get(r, e.key) {
				if d.state.IsFixupTarget() && !c.has(r, d) {
					t.link(r, e, d)
				}
			}
		}
	}
	for _, cl := range c.list {
		t.link(cl.rel, cl.principal, cl.dependent)
	}
}

// link makes p the principal of d in r: the foreign key of d takes the key
// of p and both navigations reference each other. Previous linkage of d, and
// of p in a one-to-one relationship, is removed first. stale lists principals
// d was linked to before its foreign key was overwritten.
func (t *Tracker) link(r *graph.Relationship, p, d *Entry, stale ...*Entry) {
	defer t.hold(r, d)()
	defer t.hold(r, p)()
	prev := t.previousPrincipals(r, d, p)
	for _, old := range stale {
		if old != p && !slices.Contains(prev, old) {
			prev = append(prev, old)
		}
	}
	if r.Cardinality == graph.OneToOne {
		for _, old := range t.currentDependents(r, p) {
			if old != d {
				t.orphan(r, p, old)
			}
		}
	}
	if fk := d.ForeignKey(r); !slices.ContainsFunc(fk, field.IsUnset) && !sameKey(fk, p.Key()) {
		t.logger.Debug("fixup: stale foreign key overwritten",
			"relationship", r.Name, "entity", d.String(), "stale", formatKey(fk), "principal", p.String())
	}
	t.writeForeignKey(r, d, p.Key())
	if nav := r.ToDependents; nav != nil {
		for _, old := range prev {
			t.unlinkNavigation(nav, old, d.obj)
		}
		t.linkNavigation(nav, p, d.obj)
	}
	if nav := r.ToPrincipal; nav != nil {
		t.linkNavigation(nav, d, p.obj)
	}
}

// orphan removes the linkage between p and its dependent old in r. The
// foreign key of old is cleared if it still holds the key of p.
func (t *Tracker) orphan(r *graph.Relationship, p, old *Entry) {
	if nav := r.ToPrincipal; nav != nil {
		t.unlinkNavigation(nav, old, p.obj)
	}
	if nav := r.ToDependents; nav != nil {
		t.unlinkNavigation(nav, p, old.obj)
	}
	if sameKey(old.ForeignKey(r), p.Key()) {
		t.writeForeignKey(r, old, nil)
	}
	t.stats.Orphans.Add(1)
	t.logger.Debug("fixup: dependent orphaned",
		"relationship", r.Name, "principal", p.String(), "dependent", old.String())
}

// previousPrincipals returns the tracked principals d is currently linked to
// in r through its navigation or its foreign key, except exclude.
func (t *Tracker) previousPrincipals(r *graph.Relationship, d, exclude *Entry) []*Entry {
	var out []*Entry
	add := func(p *Entry) {
		if p != nil && p != exclude && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	if nav := r.ToPrincipal; nav != nil {
		add(t.tracked(nav.Get(d.obj)))
	}
	add(t.principalByKey(r.Principal, d.ForeignKey(r)))
	return out
}

// currentDependents returns the tracked dependents p is currently linked to
// in r through its navigation or their foreign keys.
func (t *Tracker) currentDependents(r *graph.Relationship, p *Entry) []*Entry {
	var out []*Entry
	add := func(d *Entry) {
		if d != nil && !slices.Contains(out, d) {
			out = append(out, d)
		}
	}
	if nav := r.ToDependents; nav != nil {
		for _, obj := range nav.Targets(p.obj) {
			add(t.tracked(obj))
		}
	}
	for _, d := range t.fks.get(r, p.key) {
		if d.state.IsFixupTarget() {
			add(d)
		}
	}
	return out
}

// writeForeignKey sets the foreign key of d in r to values, or clears it when
// values is nil.
func (t *Tracker) writeForeignKey(r *graph.Relationship, d *Entry, values []any) {
	if t.storeForeignKey(r, d, values) {
		t.stats.ForeignKeyWrites.Add(1)
	}
}

// storeForeignKey writes the foreign key and refreshes the index. It reports
// whether the stored value changed.
func (t *Tracker) storeForeignKey(r *graph.Relationship, d *Entry, values []any) bool {
	if values == nil {
		values = make([]any, len(r.ForeignKey))
	}
	if sameKey(d.ForeignKey(r), values) {
		// The application may have written the value itself.
		t.reindexForeignKeys(d)
		return false
	}
	defer t.hold(r, d)()
	for i, f := range r.ForeignKey {
		f.Write(d.obj, d.shadow, values[i])
	}
	t.reindexForeignKeys(d)
	return true
}

func (t *Tracker) linkNavigation(nav *graph.Navigation, owner *Entry, target any) {
	defer t.hold(nav.Relationship, owner)()
	if nav.Link(owner.obj, target) {
		t.countNavigation(nav)
	}
}

func (t *Tracker) unlinkNavigation(nav *graph.Navigation, owner *Entry, target any) {
	defer t.hold(nav.Relationship, owner)()
	if nav.Unlink(owner.obj, target) {
		t.countNavigation(nav)
	}
}

func (t *Tracker) clearNavigation(nav *graph.Navigation, owner *Entry) {
	defer t.hold(nav.Relationship, owner)()
	if nav.Clear(owner.obj) {
		t.countNavigation(nav)
	}
}

func (t *Tracker) countNavigation(nav *graph.Navigation) {
	if nav.Collection {
		t.stats.CollectionWrites.Add(1)
	} else {
		t.stats.ReferenceWrites.Add(1)
	}
}

// checkEntry validates an entry passed to a notification.
func (t *Tracker) checkEntry(e *Entry, op string) error {
	if e == nil || e.tracker != t {
		return fixup.NewConfigError("<entry>", "", "entry does not belong to this tracker")
	}
	if e.state == fixup.Deleted {
		return fixup.NewInvalidStateError(e.typ.Name, op, e.state, e.state)
	}
	return nil
}

func (t *Tracker) checkNavigation(e *Entry, nav *graph.Navigation, collection bool) error {
	switch {
	case nav == nil:
		return fixup.NewConfigError(e.typ.Name, "", "nil navigation")
	case nav.Owner != e.typ:
		return fixup.NewConfigError(e.typ.Name, nav.Name, "navigation is declared on %s", nav.Owner.Name)
	case nav.Collection && !collection:
		return fixup.NewConfigError(e.typ.Name, nav.Name, "collection navigation changes must be notified with NotifyCollectionChanged")
	case !nav.Collection && collection:
		return fixup.NewConfigError(e.typ.Name, nav.Name, "navigation is not a collection")
	}
	return nil
}

func (t *Tracker) checkTarget(nav *graph.Navigation, target any) error {
	if typ, ok := t.graph.TypeOf(target); !ok || typ != nav.Target {
		return fixup.NewConfigError(nav.Owner.Name, nav.Name, "cannot reference %T, expected %s", target, nav.Target.Name)
	}
	return nil
}

// NotifyForeignKeyWrite reports that the foreign key of e in r is being set
// to values, in the order of r.ForeignKey, and reconciles the navigations of
// r. When no tracked principal has that key, the reciprocal references are
// cleared and the value is kept until such a principal is attached.
func (t *Tracker) NotifyForeignKeyWrite(e *Entry, r *graph.Relationship, values ...any) error {
	if err := t.checkEntry(e, "write foreign key of"); err != nil {
		return err
	}
	if r == nil || r.Dependent != e.typ {
		return fixup.NewConfigError(e.typ.Name, "", "entity is not the dependent of the relationship")
	}
	if len(values) != len(r.ForeignKey) {
		return fixup.NewConfigError(e.typ.Name, r.Name, "expected %d foreign-key values, got %d", len(r.ForeignKey), len(values))
	}
	if e.state == fixup.Detached {
		for i, f := range r.ForeignKey {
			f.Write(e.obj, e.shadow, values[i])
		}
		return nil
	}
	if t.busy(r, e) {
		return nil
	}
	defer t.hold(r, e)()
	prev := t.previousPrincipals(r, e, nil)
	t.storeForeignKey(r, e, values)
	if p := t.principalByKey(r.Principal, values); p != nil {
		t.link(r, p, e, prev...)
		return nil
	}
	if nav := r.ToDependents; nav != nil {
		for _, old := range prev {
			t.unlinkNavigation(nav, old, e.obj)
		}
	}
	if nav := r.ToPrincipal; nav != nil {
		t.clearNavigation(nav, e)
		t.dropPending(nav, e, nil)
	}
	if !slices.ContainsFunc(values, field.IsUnset) {
		t.stats.DelayedFixups.Add(1)
		t.logger.Debug("fixup: foreign key references an untracked principal",
			"relationship", r.Name, "entity", e.String(), "key", formatKey(values))
	}
	return nil
}

// NotifyNavigationSet reports that the single-valued navigation nav of e is
// being set to target, or cleared when target is nil, and reconciles the
// foreign key and the inverse navigation. The navigation may already hold
// target; it is set if not.
//
// Clearing a navigation of the dependent clears its foreign key. Setting the
// navigation of a one-to-one principal orphans its previous dependent.
// Targets that are not tracked yet are linked when they are attached.
func (t *Tracker) NotifyNavigationSet(e *Entry, nav *graph.Navigation, target any) error {
	if err := t.checkEntry(e, "set navigation of"); err != nil {
		return err
	}
	if err := t.checkNavigation(e, nav, false); err != nil {
		return err
	}
	if isNil(target) {
		target = nil
	} else if err := t.checkTarget(nav, target); err != nil {
		return err
	}
	if e.state == fixup.Detached {
		if target == nil {
			nav.Clear(e.obj)
		} else {
			nav.Link(e.obj, target)
		}
		return nil
	}
	r := nav.Relationship
	if t.busy(r, e) {
		return nil
	}
	defer t.hold(r, e)()
	if nav.PrincipalSide {
		t.setDependent(r, e, target)
	} else {
		t.setPrincipal(r, e, target)
	}
	return nil
}

// setPrincipal handles a write to the navigation of dependent d.
func (t *Tracker) setPrincipal(r *graph.Relationship, d *Entry, target any) {
	nav := r.ToPrincipal
	if p := t.tracked(target); p != nil {
		t.dropPending(nav, d, nil)
		t.link(r, p, d)
		return
	}
	if inv := r.ToDependents; inv != nil {
		for _, old := range t.previousPrincipals(r, d, nil) {
			t.unlinkNavigation(inv, old, d.obj)
		}
	}
	t.dropPending(nav, d, nil)
	if target == nil {
		t.clearNavigation(nav, d)
		t.writeForeignKey(r, d, nil)
		return
	}
	t.linkNavigation(nav, d, target)
	t.writeForeignKey(r, d, nav.Target.KeyOf(target))
	if _, tracked := t.entries[target]; !tracked {
		t.addPending(target, pendingRef{nav: nav, from: d})
	}
}

// setDependent handles a write to the single-valued navigation of principal p.
func (t *Tracker) setDependent(r *graph.Relationship, p *Entry, target any) {
	nav := r.ToDependents
	t.dropPending(nav, p, nil)
	if d := t.tracked(target); d != nil {
		t.link(r, p, d)
		return
	}
	for _, old := range t.currentDependents(r, p) {
		t.orphan(r, p, old)
	}
	if target == nil {
		t.clearNavigation(nav, p)
		return
	}
	t.linkNavigation(nav, p, target)
	if _, tracked := t.entries[target]; !tracked {
		t.addPending(target, pendingRef{nav: nav, from: p})
	}
}

// NotifyCollectionChanged reports that the collection navigation nav of e
// gained the added objects and lost the removed ones. The collection may
// already reflect the change; it is updated if not. Removed dependents lose
// their navigation, and their foreign key when it still holds the key of e.
// Added dependents are linked to e.
func (t *Tracker) NotifyCollectionChanged(e *Entry, nav *graph.Navigation, added, removed []any) error {
	if err := t.checkEntry(e, "change collection of"); err != nil {
		return err
	}
	if err := t.checkNavigation(e, nav, true); err != nil {
		return err
	}
	added, removed = compact(added), compact(removed)
	for _, obj := range slices.Concat(added, removed) {
		if err := t.checkTarget(nav, obj); err != nil {
			return err
		}
	}
	if e.state == fixup.Detached {
		for _, obj := range removed {
			nav.Unlink(e.obj, obj)
		}
		for _, obj := range added {
			nav.Link(e.obj, obj)
		}
		return nil
	}
	r := nav.Relationship
	if t.busy(r, e) {
		return nil
	}
	defer t.hold(r, e)()
	for _, obj := range removed {
		t.unlinkNavigation(nav, e, obj)
		t.dropPending(nav, e, obj)
		d := t.tracked(obj)
		if d == nil {
			continue
		}
		if inv := r.ToPrincipal; inv != nil {
			t.unlinkNavigation(inv, d, e.obj)
		}
		if sameKey(d.ForeignKey(r), e.Key()) {
			t.writeForeignKey(r, d, nil)
		}
	}
	for _, obj := range added {
		if d := t.tracked(obj); d != nil {
			t.link(r, e, d)
			continue
		}
		t.linkNavigation(nav, e, obj)
		if _, tracked := t.entries[obj]; !tracked {
			t.addPending(obj, pendingRef{nav: nav, from: e})
		}
	}
	return nil
}

// Reconcile runs fixup for every relationship of e as if it had just been
// attached. Navigations win over foreign keys where the two disagree. On a
// consistent graph it writes nothing.
func (t *Tracker) Reconcile(e *Entry) error {
	if e == nil || e.tracker != t {
		return fixup.NewConfigError("<entry>", "", "entry does not belong to this tracker")
	}
	if !e.state.IsFixupTarget() {
		return nil
	}
	return t.reconcile([]*Entry{e})
}

// ReconcileAll runs Reconcile for every tracked entity in one pass.
func (t *Tracker) ReconcileAll() error {
	entries := make([]*Entry, 0, len(t.order))
	for _, e := range t.order {
		if e.state.IsFixupTarget() {
			entries = append(entries, e)
		}
	}
	return t.reconcile(entries)
}

func (t *Tracker) reconcile(entries []*Entry) error {
	for _, e := range entries {
		t.reindexForeignKeys(e)
	}
	c := newClaims()
	if err := t.collectClaims(c, entries, t.tracked); err != nil {
		return t.rejected(err)
	}
	t.fixup(entries, c)
	return nil
}

func compact(objs []any) []any {
	return slices.DeleteFunc(slices.Clone(objs), isNil)
}
