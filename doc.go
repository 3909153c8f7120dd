// Package fixup keeps foreign-key values and in-memory navigation references
// of tracked objects consistent with each other.
//
// A model is declared with the schema, schema/field and schema/edge packages
// and compiled by the graph package:
//
//	g, err := graph.NewBuilder().
//	    Entity(
//	        schema.Entity[Category]("Category").
//	            Fields(field.Key("Id", func(c *Category) int { return c.ID })),
//	        schema.Entity[Product]("Product").
//	            Fields(
//	                field.Key("Id", func(p *Product) int { return p.ID }),
//	                field.Of("CategoryId",
//	                    func(p *Product) int { return p.CategoryID },
//	                    func(p *Product, v int) { p.CategoryID = v }),
//	            ),
//	    ).
//	    Edge(
//	        edge.HasMany[Category, Product]("CategoryProducts").
//	            Collection("Products", func(c *Category) *[]*Product { return &c.Products }).
//	            Reference("Category",
//	                func(p *Product) *Category { return p.Category },
//	                func(p *Product, c *Category) { p.Category = c }).
//	            Field("CategoryId"),
//	    ).
//	    Build()
//
// Objects are then attached to a tracking.Tracker, which links them as they
// arrive, in whatever order:
//
//	tr := tracking.New(g)
//	tr.Attach(product, fixup.Unchanged) // product.CategoryID == 1
//	tr.Attach(category, fixup.Unchanged) // category.ID == 1
//	// product.Category == category, category.Products == []*Product{product}
//
// This package holds the attachment states and the error types shared by the
// other packages.
package fixup
