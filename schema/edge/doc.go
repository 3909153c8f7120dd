// Package edge provides fluent builders for declaring relationships between
// entity kinds.
//
// A relationship has a principal kind (the one being referenced), a dependent
// kind (the one holding the foreign key), an ordered set of foreign-key
// properties declared on the dependent, and up to two navigations:
//
//   - a principal-side navigation: a collection for one-to-many relationships,
//     a single reference for one-to-one relationships;
//   - a dependent-side reference back to the principal.
//
// Either navigation may be omitted, giving four shapes: bidirectional,
// principal-only, dependent-only and no navigation.
//
// # One-to-Many
//
//	// Category has many Products; Product.CategoryId is a shadow FK.
//	edge.HasMany[Category, Product]("CategoryProducts").
//	    Collection("Products", func(c *Category) *[]*Product { return &c.Products }).
//	    Reference("Category",
//	        func(p *Product) *Category { return p.Category },
//	        func(p *Product, c *Category) { p.Category = c }).
//	    Field("CategoryId")
//
// # One-to-One
//
//	// Parent has one Child; Child.ParentId is the FK.
//	edge.HasOne[Parent, Child]("ParentChild").
//	    Single("Child",
//	        func(p *Parent) *Child { return p.Child },
//	        func(p *Parent, c *Child) { p.Child = c }).
//	    Reference("Parent",
//	        func(c *Child) *Parent { return c.Parent },
//	        func(c *Child, p *Parent) { c.Parent = p }).
//	    Field("ParentId")
//
// # Foreign Keys
//
// Field lists the foreign-key properties in the order of the principal key
// properties. When Field is not called, the graph builder derives a single
// property name from the principal kind and its key, e.g. "CategoryId".
//
// # Interception
//
// Setters passed to Reference and Single are plain Go functions. A setter
// may notify the tracker of the write it performs; the tracker ignores such
// notifications while it is itself reconciling the same relationship.
package edge
