// Package schema declares the entity kinds that take part in relationship
// fixup.
//
// An entity kind binds a name to a Go struct type and lists the properties
// that relationships refer to: the primary key of principals and the
// foreign-key properties of dependents. Relationships themselves are declared
// with the [edge] package, and both are compiled into an immutable model by
// the graph package:
//
//	category := schema.Entity[Category]("Category").
//	    Fields(field.Key("Id", func(c *Category) int { return c.ID }))
//
//	product := schema.Entity[Product]("Product").
//	    Fields(
//	        field.Key("Id", func(p *Product) int { return p.ID }),
//	        field.Shadow("CategoryId"),
//	    )
//
//	products := edge.HasMany[Category, Product]("CategoryProducts").
//	    Collection("Products", func(c *Category) *[]*Product { return &c.Products }).
//	    Reference("Category", getCategory, setCategory).
//	    Field("CategoryId")
//
// Objects are always tracked by pointer; the Go type registered for
// Entity[Category] is *Category.
package schema
