// Package schema provides JSON Schema generation from Go types.
//
// This package automatically generates JSON Schema definitions from Go structs,
// supporting common Go types and struct tags for customization. It is used to
// describe tool argument shapes: the structs in package doppler are turned
// into the input schemas advertised by tools/list, and test servers validate
// incoming arguments against them before dispatch.
//
// # Basic Usage
//
// Generate a schema from a Go value:
//
//	type GetSecretArgs struct {
//	    Project string `json:"project" jsonschema:"required"`
//	    Config  string `json:"config" jsonschema:"required"`
//	    Name    string `json:"name" jsonschema:"required"`
//	}
//
//	s, err := schema.Generate(GetSecretArgs{})
//
// # Supported Types
//
// The generator supports the following Go types:
//
//   - Structs: Converted to JSON objects with properties
//   - Strings: Converted to JSON string type
//   - Integers (all sizes): Converted to JSON integer type
//   - Floats: Converted to JSON number type
//   - Booleans: Converted to JSON boolean type
//   - Slices/Arrays: Converted to JSON array type
//   - Maps: Converted to JSON object type
//   - Pointers: Dereferenced and converted based on element type
//
// # Struct Tags
//
// The package recognizes the following struct tags:
//
//	type ServiceTokenArgs struct {
//	    // json tag controls field name
//	    Project string `json:"project" jsonschema:"required"`
//
//	    // jsonschema:"description=..." adds description
//	    Name string `json:"name" jsonschema:"required,description=Display name for the token"`
//
//	    // enum values are pipe-separated; default picks one
//	    Access string `json:"access,omitempty" jsonschema:"description=Token access level,enum=read|read/write,default=read"`
//
//	    // numeric bounds
//	    Page int `json:"page,omitempty" jsonschema:"minimum=1"`
//
//	    // json:"-" excludes field
//	    Ignored string `json:"-"`
//	}
//
// # Validation
//
// A generated (or hand-built) Schema validates raw JSON arguments:
//
//	if err := s.Validate(req.Params); err != nil {
//	    var verrs schema.ValidationErrors
//	    errors.As(err, &verrs) // per-field paths and messages
//	}
package schema
