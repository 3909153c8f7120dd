package tracking_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/fixup"
	"github.com/syssam/fixup/examples/catalog"
	"github.com/syssam/fixup/tracking"
)

func intPtr(v int) *int { return &v }

// TestForeignKeyOnly attaches a product whose foreign key references a
// category, with no navigations linked.
func TestForeignKeyOnly(t *testing.T) {
	t.Parallel()

	for _, principalFirst := range []bool{false, true} {
		tr, _ := newTracker(t)
		product := &catalog.Product{ID: 78, CategoryID: intPtr(77)}
		category := &catalog.Category{ID: 77}
		objs := []any{product, category}
		if principalFirst {
			objs = []any{category, product}
		}
		for _, obj := range objs {
			_, err := tr.Attach(obj, fixup.Unchanged)
			require.NoError(t, err)
		}

		assert.Same(t, category, product.Category)
		assert.Equal(t, []*catalog.Product{product}, category.Products)
		require.NotNil(t, product.CategoryID)
		assert.Equal(t, 77, *product.CategoryID)
		assert.Equal(t, fixup.Unchanged, entry(t, tr, product).State())
		assert.Equal(t, fixup.Unchanged, entry(t, tr, category).State())
	}
}

// TestNavigationsOnly links both navigations and no foreign key before
// attaching either object.
func TestNavigationsOnly(t *testing.T) {
	t.Parallel()

	for _, dependentFirst := range []bool{false, true} {
		tr, stats := newTracker(t)
		category := &catalog.Category{ID: 77}
		product := &catalog.Product{ID: 78, Category: category}
		category.Products = append(category.Products, product)

		root := any(category)
		if dependentFirst {
			root = product
		}
		_, err := tr.Attach(root, fixup.Added)
		require.NoError(t, err)

		require.NotNil(t, product.CategoryID, "foreign key is derived from the navigation")
		assert.Equal(t, 77, *product.CategoryID)
		assert.Len(t, category.Products, 1)
		assert.Equal(t, int64(1), stats.ForeignKeyWrites.Load())
		assert.Zero(t, stats.ReferenceWrites.Load()+stats.CollectionWrites.Load())
	}
}

// TestOneToOneReassignment moves a child from one parent to another.
func TestOneToOneReassignment(t *testing.T) {
	t.Parallel()

	tr, _ := newTracker(t)
	parent1, parent2 := &catalog.Parent{ID: 1}, &catalog.Parent{ID: 2}
	child := &catalog.Child{ID: 10}
	_, err := tr.AttachRange(fixup.Unchanged, parent1, parent2, child)
	require.NoError(t, err)
	nav := relationship(t, catalog.ParentChild).ToDependents

	parent1.Child = child
	require.NoError(t, tr.NotifyNavigationSet(entry(t, tr, parent1), nav, child))
	assert.Same(t, parent1, child.Parent)
	assert.Equal(t, 1, property(t, entry(t, tr, child), "ParentId"))

	parent2.Child = child
	require.NoError(t, tr.NotifyNavigationSet(entry(t, tr, parent2), nav, child))
	assert.Same(t, parent2, child.Parent)
	assert.Nil(t, parent1.Child)
	assert.Equal(t, 2, property(t, entry(t, tr, child), "ParentId"))
	for _, obj := range []any{parent1, parent2, child} {
		assert.Equal(t, fixup.Unchanged, entry(t, tr, obj).State())
	}
}

// TestOrphaning replaces the dependent of a one-to-one principal.
func TestOrphaning(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		rel        string
		newObjects func() (parent, a, b any)
	}{
		{"bidirectional", catalog.ParentChild, func() (any, any, any) {
			return &catalog.Parent{ID: 1}, &catalog.Child{ID: 10}, &catalog.Child{ID: 11}
		}},
		{"principal-only", catalog.ParentChildPN, func() (any, any, any) {
			return &catalog.ParentPN{ID: 1}, &catalog.ChildPN{ID: 10}, &catalog.ChildPN{ID: 11}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tr, stats := newTracker(t)
			r := relationship(t, tt.rel)
			parent, a, b := tt.newObjects()
			r.ToDependents.Link(parent, a)
			_, err := tr.AttachRange(fixup.Unchanged, parent, b)
			require.NoError(t, err)
			require.Equal(t, 1, property(t, entry(t, tr, a), "ParentId"))

			require.NoError(t, tr.NotifyNavigationSet(entry(t, tr, parent), r.ToDependents, b))
			assert.Same(t, b, r.ToDependents.Get(parent))
			assert.Equal(t, 1, property(t, entry(t, tr, b), "ParentId"))
			assert.Nil(t, property(t, entry(t, tr, a), "ParentId"), "orphan no longer references the parent")
			if r.ToPrincipal != nil {
				assert.Nil(t, r.ToPrincipal.Get(a))
				assert.Same(t, parent, r.ToPrincipal.Get(b))
			}
			assert.Equal(t, int64(1), stats.Orphans.Load())
			assert.Equal(t, fixup.Unchanged, entry(t, tr, a).State(), "orphans are not deleted")

			// Clearing the navigation orphans b as well.
			require.NoError(t, tr.NotifyNavigationSet(entry(t, tr, parent), r.ToDependents, nil))
			assert.Nil(t, r.ToDependents.Get(parent))
			assert.Nil(t, property(t, entry(t, tr, b), "ParentId"))
		})
	}
}

// TestOneToOneForeignKeyWrite points a second child at a parent through its
// foreign key; the last linked one wins.
func TestOneToOneForeignKeyWrite(t *testing.T) {
	t.Parallel()

	tr, stats := newTracker(t)
	parent := &catalog.Parent{ID: 1}
	a, b := &catalog.Child{ID: 10}, &catalog.Child{ID: 11, Parent: parent}
	parent.Child = b
	_, err := tr.AttachRange(fixup.Unchanged, parent, a)
	require.NoError(t, err)
	require.Same(t, b, parent.Child)

	require.NoError(t, entry(t, tr, a).SetProperty("ParentId", 1))
	assert.Same(t, a, parent.Child)
	assert.Same(t, parent, a.Parent)
	assert.Nil(t, b.Parent)
	assert.Nil(t, property(t, entry(t, tr, b), "ParentId"))
	assert.Equal(t, int64(1), stats.Orphans.Load())
}

func TestForeignKeyWrite(t *testing.T) {
	t.Parallel()

	tr, stats := newTracker(t)
	beverages, condiments := &catalog.Category{ID: 1}, &catalog.Category{ID: 2}
	product := &catalog.Product{ID: 78, Category: beverages}
	_, err := tr.AttachRange(fixup.Unchanged, product, condiments)
	require.NoError(t, err)
	e := entry(t, tr, product)
	require.Equal(t, []*catalog.Product{product}, beverages.Products)

	t.Log("move to another tracked principal")
	require.NoError(t, e.SetProperty("CategoryId", 2))
	assert.Same(t, condiments, product.Category)
	assert.Empty(t, beverages.Products)
	assert.Equal(t, []*catalog.Product{product}, condiments.Products)

	t.Log("reference an untracked principal")
	require.NoError(t, e.SetProperty("CategoryId", 99))
	assert.Nil(t, product.Category)
	assert.Empty(t, condiments.Products)
	require.NotNil(t, product.CategoryID, "the foreign key is kept")
	assert.Equal(t, 99, *product.CategoryID)
	assert.Equal(t, int64(1), stats.DelayedFixups.Load())

	t.Log("delayed fixup when the principal is attached")
	produce := &catalog.Category{ID: 99}
	_, err = tr.Attach(produce, fixup.Unchanged)
	require.NoError(t, err)
	assert.Same(t, produce, product.Category)
	assert.Equal(t, []*catalog.Product{product}, produce.Products)

	t.Log("clear the foreign key")
	require.NoError(t, tr.NotifyForeignKeyWrite(e, relationship(t, catalog.CategoryProducts), nil))
	assert.Nil(t, product.CategoryID)
	assert.Nil(t, product.Category)
	assert.Empty(t, produce.Products)
	assert.Equal(t, int64(1), stats.DelayedFixups.Load(), "clearing is not a delayed fixup")
}

// TestForeignKeyWritePrincipalOnly moves a dependent that has no navigation
// of its own between two principals.
func TestForeignKeyWritePrincipalOnly(t *testing.T) {
	t.Parallel()

	tr, _ := newTracker(t)
	product := &catalog.ProductPN{ID: 78}
	a := &catalog.CategoryPN{ID: 1, Products: []*catalog.ProductPN{product}}
	b := &catalog.CategoryPN{ID: 2}
	_, err := tr.AttachRange(fixup.Unchanged, a, b)
	require.NoError(t, err)
	e := entry(t, tr, product)
	require.Equal(t, 1, property(t, e, "CategoryId"))

	require.NoError(t, e.SetForeignKey([]string{"CategoryId"}, 2))
	assert.Empty(t, a.Products)
	assert.Equal(t, []*catalog.ProductPN{product}, b.Products)
}

func TestNavigationSet(t *testing.T) {
	t.Parallel()

	r := relationship(t, catalog.CategoryProducts)

	t.Run("dependent", func(t *testing.T) {
		t.Parallel()
		tr, _ := newTracker(t)
		a, b := &catalog.Category{ID: 1}, &catalog.Category{ID: 2}
		product := &catalog.Product{ID: 78, CategoryID: intPtr(1)}
		_, err := tr.AttachRange(fixup.Modified, a, b, product)
		require.NoError(t, err)
		require.Same(t, a, product.Category)
		e := entry(t, tr, product)

		require.NoError(t, tr.NotifyNavigationSet(e, r.ToPrincipal, b))
		assert.Same(t, b, product.Category)
		assert.Equal(t, 2, *product.CategoryID)
		assert.Empty(t, a.Products)
		assert.Equal(t, []*catalog.Product{product}, b.Products)

		require.NoError(t, tr.NotifyNavigationSet(e, r.ToPrincipal, nil))
		assert.Nil(t, product.Category)
		assert.Nil(t, product.CategoryID, "an explicit clear removes the foreign key")
		assert.Empty(t, b.Products)
		assert.Equal(t, fixup.Modified, e.State())
	})
	t.Run("untracked target", func(t *testing.T) {
		t.Parallel()
		tr, _ := newTracker(t)
		a := &catalog.Category{ID: 1}
		product := &catalog.Product{ID: 78, Category: a}
		_, err := tr.Attach(product, fixup.Unchanged)
		require.NoError(t, err)
		e := entry(t, tr, product)

		fresh := &catalog.Category{ID: 5}
		require.NoError(t, tr.NotifyNavigationSet(e, r.ToPrincipal, fresh))
		assert.Same(t, fresh, product.Category)
		assert.Empty(t, a.Products)
		assert.Equal(t, 5, *product.CategoryID)
		assert.Empty(t, fresh.Products, "untracked principals are not modified")

		_, err = tr.Attach(fresh, fixup.Added)
		require.NoError(t, err)
		assert.Equal(t, []*catalog.Product{product}, fresh.Products)
		assert.Equal(t, fixup.Unchanged, e.State())
	})
	t.Run("untracked principal set before key is known", func(t *testing.T) {
		t.Parallel()
		tr, _ := newTracker(t)
		product := &catalog.Product{ID: 78}
		_, err := tr.Attach(product, fixup.Unchanged)
		require.NoError(t, err)

		fresh := &catalog.Category{}
		require.NoError(t, tr.NotifyNavigationSet(entry(t, tr, product), r.ToPrincipal, fresh))
		assert.Nil(t, product.CategoryID)
		fresh.ID = 6
		_, err = tr.Attach(fresh, fixup.Added)
		require.NoError(t, err)
		require.NotNil(t, product.CategoryID)
		assert.Equal(t, 6, *product.CategoryID)
		assert.Equal(t, []*catalog.Product{product}, fresh.Products)
	})
	t.Run("errors", func(t *testing.T) {
		t.Parallel()
		tr, _ := newTracker(t)
		category := &catalog.Category{ID: 1}
		_, err := tr.Attach(category, fixup.Unchanged)
		require.NoError(t, err)
		e := entry(t, tr, category)

		err = tr.NotifyNavigationSet(e, r.ToPrincipal, category)
		assert.True(t, fixup.IsConfigError(err), "navigation declared on another kind")
		err = tr.NotifyNavigationSet(e, r.ToDependents, nil)
		assert.True(t, fixup.IsConfigError(err), "collections use NotifyCollectionChanged")
		err = tr.NotifyCollectionChanged(e, r.ToDependents, []any{category}, nil)
		assert.True(t, fixup.IsConfigError(err), "wrong target kind")
		err = tr.NotifyNavigationSet(e, nil, nil)
		assert.True(t, fixup.IsConfigError(err))

		product := &catalog.Product{ID: 2}
		_, err = tr.Attach(product, fixup.Unchanged)
		require.NoError(t, err)
		pe := entry(t, tr, product)
		err = tr.NotifyForeignKeyWrite(pe, relationship(t, catalog.ProductSpecialOffers), 1)
		assert.True(t, fixup.IsConfigError(err), "product is not the dependent")
		err = tr.NotifyForeignKeyWrite(pe, r, 1, 2)
		assert.True(t, fixup.IsConfigError(err), "arity")
	})
}

func TestCollectionChanged(t *testing.T) {
	t.Parallel()

	tr, stats := newTracker(t)
	r := relationship(t, catalog.CategoryProducts)
	a, b := &catalog.Category{ID: 1}, &catalog.Category{ID: 2}
	p1, p2 := &catalog.Product{ID: 10}, &catalog.Product{ID: 11, CategoryID: intPtr(1)}
	_, err := tr.AttachRange(fixup.Unchanged, a, b, p1, p2)
	require.NoError(t, err)
	require.Equal(t, []*catalog.Product{p2}, a.Products)

	t.Log("add a tracked dependent")
	a.Products = append(a.Products, p1)
	require.NoError(t, tr.NotifyCollectionChanged(entry(t, tr, a), r.ToDependents, []any{p1}, nil))
	assert.Same(t, a, p1.Category)
	assert.Equal(t, 1, *p1.CategoryID)
	assert.Len(t, a.Products, 2, "collections are not duplicated")

	t.Log("move a dependent to another principal")
	require.NoError(t, tr.NotifyCollectionChanged(entry(t, tr, b), r.ToDependents, []any{p2}, nil))
	assert.Equal(t, []*catalog.Product{p1}, a.Products)
	assert.Equal(t, []*catalog.Product{p2}, b.Products)
	assert.Same(t, b, p2.Category)
	assert.Equal(t, 2, *p2.CategoryID)

	t.Log("remove a dependent")
	require.NoError(t, tr.NotifyCollectionChanged(entry(t, tr, a), r.ToDependents, nil, []any{p1}))
	assert.Empty(t, a.Products)
	assert.Nil(t, p1.Category)
	assert.Nil(t, p1.CategoryID)

	t.Log("add an untracked dependent")
	fresh := &catalog.Product{ID: 12}
	require.NoError(t, tr.NotifyCollectionChanged(entry(t, tr, a), r.ToDependents, []any{fresh}, nil))
	assert.Equal(t, []*catalog.Product{fresh}, a.Products)
	assert.Nil(t, fresh.Category)
	_, err = tr.Attach(fresh, fixup.Added)
	require.NoError(t, err)
	assert.Same(t, a, fresh.Category)
	assert.Equal(t, 1, *fresh.CategoryID)

	assert.Zero(t, stats.Orphans.Load())
	assert.Zero(t, stats.Conflicts.Load())
}

// TestNavigationOverridesStaleForeignKey attaches a product whose navigation
// and foreign key reference different tracked categories.
func TestNavigationOverridesStaleForeignKey(t *testing.T) {
	t.Parallel()

	tr, _ := newTracker(t)
	a, b := &catalog.Category{ID: 1}, &catalog.Category{ID: 2}
	_, err := tr.AttachRange(fixup.Unchanged, a, b)
	require.NoError(t, err)

	product := &catalog.Product{ID: 78, CategoryID: intPtr(1), Category: b}
	_, err = tr.Attach(product, fixup.Unchanged)
	require.NoError(t, err)
	assert.Equal(t, 2, *product.CategoryID)
	assert.Empty(t, a.Products)
	assert.Equal(t, []*catalog.Product{product}, b.Products)
}

func TestConflictingLinkage(t *testing.T) {
	t.Parallel()

	tr, stats := newTracker(t)
	product := &catalog.Product{ID: 78}
	a := &catalog.Category{ID: 1, Products: []*catalog.Product{product}}
	b := &catalog.Category{ID: 2, Products: []*catalog.Product{product}}

	_, err := tr.AttachRange(fixup.Added, a, b)
	require.Error(t, err)
	assert.True(t, fixup.IsConflictingLinkage(err))
	assert.Contains(t, err.Error(), "Product(78)")
	assert.Zero(t, tr.Len(), "a rejected attach leaves the tracker unchanged")
	assert.Nil(t, product.CategoryID)
	assert.Equal(t, int64(1), stats.Conflicts.Load())

	t.Run("against the dependent navigation", func(t *testing.T) {
		t.Parallel()
		tr, _ := newTracker(t)
		other := &catalog.Category{ID: 3}
		product := &catalog.Product{ID: 78, Category: other}
		c := &catalog.Category{ID: 1, Products: []*catalog.Product{product}}
		_, err := tr.Attach(c, fixup.Unchanged)
		assert.True(t, fixup.IsConflictingLinkage(err))
	})
}

func TestDeletedEntries(t *testing.T) {
	t.Parallel()

	tr, _ := newTracker(t)
	category := &catalog.Category{ID: 1}
	product := &catalog.Product{ID: 78}
	_, err := tr.AttachRange(fixup.Unchanged, category, product)
	require.NoError(t, err)
	pe := entry(t, tr, product)
	require.NoError(t, tr.SetState(pe, fixup.Deleted))
	r := relationship(t, catalog.CategoryProducts)

	assert.True(t, fixup.IsInvalidState(pe.SetProperty("CategoryId", 1)))
	assert.True(t, fixup.IsInvalidState(tr.NotifyForeignKeyWrite(pe, r, 1)))
	assert.True(t, fixup.IsInvalidState(tr.NotifyNavigationSet(pe, r.ToPrincipal, category)))

	// Deleted dependents do not take part in fixup of their principal.
	require.NoError(t, tr.NotifyCollectionChanged(entry(t, tr, category), r.ToDependents, []any{product}, nil))
	assert.Nil(t, product.CategoryID)
	assert.Nil(t, product.Category)
}

// TestIdempotence checks that reconciling a consistent graph writes nothing.
func TestIdempotence(t *testing.T) {
	t.Parallel()

	tr, stats := newTracker(t)
	category := &catalog.Category{ID: 77}
	for i := range 5 {
		p := &catalog.Product{ID: 100 + i, Category: category}
		p.SpecialOffers = []*catalog.SpecialOffer{{ID: 200 + i, Product: p}}
		category.Products = append(category.Products, p)
	}
	parent := &catalog.Parent{ID: 1}
	parent.Child = &catalog.Child{ID: 2}
	_, err := tr.AttachRange(fixup.Unchanged, category, parent)
	require.NoError(t, err)
	require.Equal(t, 13, tr.Len())

	before := stats.Snapshot()
	require.NoError(t, tr.ReconcileAll())
	for _, e := range tr.Entries() {
		require.NoError(t, tr.Reconcile(e))
	}
	assert.Zero(t, stats.Snapshot().Sub(before).Mutations())
	assert.Len(t, category.Products, 5)
}

// TestReconcileDetectsDirectWrites reconciles a navigation the application
// wrote without notifying the tracker.
func TestReconcileDetectsDirectWrites(t *testing.T) {
	t.Parallel()

	tr, _ := newTracker(t)
	category := &catalog.Category{ID: 77}
	product := &catalog.Product{ID: 78}
	_, err := tr.AttachRange(fixup.Unchanged, category, product)
	require.NoError(t, err)

	product.Category = category
	require.NoError(t, tr.Reconcile(entry(t, tr, product)))
	assert.Equal(t, 77, *product.CategoryID)
	assert.Equal(t, []*catalog.Product{product}, category.Products)
}

func TestReconcileConflict(t *testing.T) {
	t.Parallel()

	tr, stats := newTracker(t)
	a, b := &catalog.Category{ID: 1}, &catalog.Category{ID: 2}
	product := &catalog.Product{ID: 78}
	_, err := tr.AttachRange(fixup.Unchanged, a, b, product)
	require.NoError(t, err)

	a.Products = []*catalog.Product{product}
	b.Products = []*catalog.Product{product}
	err = tr.ReconcileAll()
	assert.True(t, fixup.IsConflictingLinkage(err))
	assert.Equal(t, int64(1), stats.Conflicts.Load())

	assert.True(t, fixup.IsConfigError(tracking.New(model).Reconcile(entry(t, tr, a))))
}
