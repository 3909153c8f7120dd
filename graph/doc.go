// Package graph provides the immutable relationship model consumed by the
// tracker.
//
// A Graph is compiled once from entity and relationship declarations and is
// read-only afterwards, so one Graph may be shared by any number of trackers
// on any number of goroutines.
//
// # Graph Structure
//
//	type Graph struct {
//	    types []*Type          // entity kinds, with resolved property accessors
//	    rels  []*Relationship  // relationships between kinds
//	}
//
// Each Relationship names its principal and dependent kinds, the ordered
// foreign-key properties on the dependent, its Cardinality and the optional
// navigations on both ends. Shape classifies the navigation layout:
//
//   - Bidirectional: both navigations exist
//   - PrincipalOnly: only the principal-side navigation exists
//   - DependentOnly: only the dependent-side navigation exists
//   - NoNavigation: the relationship is expressed by the foreign key alone
//
// # Builder
//
// The Builder validates declarations and resolves the accessor table of
// every kind:
//
//	g, err := graph.NewBuilder().
//	    Entity(category, product).
//	    Edge(categoryProducts).
//	    Build()
//
// Validation includes:
//   - unique entity names and Go types
//   - key properties backed by struct fields
//   - non-empty foreign-key sets declared on the dependent, with the arity of
//     the principal key
//   - navigation multiplicity matching the cardinality
//   - one relationship per foreign-key set of a dependent
//
// All problems are reported together as a fixup.AggregateError of
// fixup.ConfigError values.
//
// # Lookups
//
//	g.TypeOf(obj)                          // kind of a tracked object
//	g.DependentOf(t)                       // relationships holding an FK on t
//	g.PrincipalOf(t)                       // relationships referencing t
//	g.ByForeignKey(t, "CategoryId")        // relationship keyed by FK set
package graph
