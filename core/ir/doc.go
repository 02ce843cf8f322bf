// Package ir defines the compiler's intermediate representation as consumed by
// the snapshot and parity oracles.
//
// # Node Model
//
// Every node implements the sealed Node interface and carries an explicit Kind
// tag. Consumers dispatch on Kind (with a default arm) or downcast with As:
//
//   - Module: tree root, holds top-level bindings
//   - TypeDefinition: a sugared type definition with a name and a body
//   - FunctionBinding: a named function with ordered arguments and a body
//   - Argument: a binding target; the self-receiver is a Name with Self set
//   - Documentation: a free-text documentation comment
//   - SyntaxError: a construct the front end could not lower, with a reason
//
// plus the expression kinds (Name, Number, Text, Application, Case,
// CaseBranch, Pattern, PatternDoc).
//
// # Metadata
//
// Each node embeds Meta: an optional source Location and an optional unique
// identifier. Both are volatile between compilations and are what the redact
// package strips before two renderings are compared.
//
// # Rendering
//
// Render produces the canonical text form:
//
//	Header(
//	    field = value,
//	    location = Location(start = 0, end = 4, position = Position(line = 1, column = 1)),
//	    id = 7d9c3a52-0d4e-4d8e-9a51-1b3f2c6e8a90
//	)
//
// Nested nodes are rendered the same way, lists as List(...), absent values
// as None. The location and id fields always come last, after the node's own
// fields.
package ir
