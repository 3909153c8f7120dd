// Package tracking implements the tracked-entity registry and the
// relationship fixup engine.
//
// A Tracker maps object identity to an Entry holding the attachment state
// and the shadow property values of the object. Whenever an object is
// attached, or a foreign key or navigation of a tracked object is written,
// the tracker reconciles the three facets of every affected relationship:
//
//   - the foreign-key value on the dependent
//   - the dependent-side navigation to the principal
//   - the principal-side navigation to its dependents
//
// until they agree, regardless of the order in which the application
// populated them.
//
// # Attaching
//
//	tr := tracking.New(g)
//	product := &Product{ID: 78, CategoryID: 77}
//	category := &Category{ID: 77}
//	tr.Attach(product, fixup.Unchanged)
//	tr.Attach(category, fixup.Unchanged)
//	// product.Category == category, category.Products == [product]
//
// Attach discovers every object reachable through navigations and attaches
// the untracked ones in the same state. Linkage derived from foreign keys is
// applied first and linkage implied by navigations second, so a graph that
// is already consistent produces no writes.
//
// # Notifications
//
// Writes to tracked objects are reported by the property interception layer:
//
//	entry.SetProperty("CategoryId", 77)                // or NotifyForeignKeyWrite
//	tr.NotifyNavigationSet(entry, nav, category)
//	tr.NotifyCollectionChanged(entry, nav, added, removed)
//
// Each notification holds a guard on the (relationship, entry) pairs it
// writes to; notifications arriving for a guarded pair are ignored, so
// setters that report their own writes back to the tracker do not recurse.
//
// A foreign key that matches no tracked principal is kept, and linked once a
// principal with that key is attached. In a one-to-one relationship, linking
// a new dependent orphans the previous one: its navigation and foreign key
// are cleared.
//
// # Concurrency
//
// A Tracker must be used by one goroutine at a time. Trackers share nothing
// but their read-only graph.Graph; Stats may be shared and read
// concurrently.
package tracking
