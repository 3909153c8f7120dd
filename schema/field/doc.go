// Package field provides builders for declaring the properties of an entity
// kind that take part in relationship fixup: primary-key properties and
// foreign-key properties.
//
// Properties are either backed by a Go struct field, accessed through typed
// getter and setter functions that are resolved once when the model is built,
// or are shadow properties whose values live in the tracking entry only:
//
//	field.Key("Id", func(c *Category) int { return c.ID })
//	field.Of("CategoryID", func(p *Product) *int { return p.CategoryID },
//	    func(p *Product, v *int) { p.CategoryID = v })
//	field.Shadow("CategoryId")
//
// # Null Values
//
// A property value is considered unset when it is nil, a nil pointer, or the
// zero value of its type. Pointer values are dereferenced when read, so a
// *int foreign key holding 77 compares equal to an int key holding 77.
// Writing an unset value to a struct-backed property stores the zero value
// of the Go field type.
package field
