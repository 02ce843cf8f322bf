package ir

import (
	"github.com/google/uuid"
)

// Kind is the tag of an IR node.
type Kind int

const (
	KindUnknown Kind = iota
	KindModule
	KindTypeDefinition
	KindFunctionBinding
	KindArgument
	KindDocumentation
	KindPatternDoc
	KindSyntaxError
	KindName
	KindNumber
	KindText
	KindApplication
	KindCase
	KindCaseBranch
	KindPattern
)

var kindNames = map[Kind]string{
	KindModule:          "Module",
	KindTypeDefinition:  "SugaredTypeDefinition",
	KindFunctionBinding: "FunctionBinding",
	KindArgument:        "Argument",
	KindDocumentation:   "Documentation",
	KindPatternDoc:      "PatternDoc",
	KindSyntaxError:     "SyntaxError",
	KindName:            "Name",
	KindNumber:          "Number",
	KindText:            "Text",
	KindApplication:     "Application",
	KindCase:            "Case",
	KindCaseBranch:      "CaseBranch",
	KindPattern:         "Pattern",
}

// String returns the kind name. Kind names are valid XML element names.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Location is a source span in byte offsets, with the 1-based line and
// column of its start.
type Location struct {
	Start  int `json:"start"`
	End    int `json:"end"`
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Meta holds the volatile per-node metadata.
type Meta struct {
	Location *Location `json:"location,omitempty"`
	ID       *uuid.UUID `json:"id,omitempty"`
}

// Metadata returns the node's metadata.
func (m *Meta) Metadata() *Meta {
	return m
}

// Node is an IR node. The interface is sealed: only types in this package
// implement it.
type Node interface {
	Kind() Kind
	Children() []Node
	Metadata() *Meta

	header() string
	fields() []field
}

// Named is implemented by nodes that carry a name.
type Named interface {
	Node
	NodeName() string
}

// As downcasts n to the concrete node type T.
func As[T Node](n Node) (T, bool) {
	t, ok := n.(T)
	return t, ok
}

// Module is the root of a compiled source file.
type Module struct {
	Meta
	Name     string
	Bindings []Node
}

func (*Module) Kind() Kind         { return KindModule }
func (*Module) header() string     { return "Module" }
func (m *Module) NodeName() string { return m.Name }
func (m *Module) Children() []Node { return childrenOf(m) }
func (m *Module) fields() []field {
	return []field{
		{"name", m.Name},
		{"bindings", m.Bindings},
	}
}

// TypeDefinition is a sugared type definition: a name and a body of
// documentation comments and function bindings, in source order.
type TypeDefinition struct {
	Meta
	Name *Name
	Body []Node
}

func (*TypeDefinition) Kind() Kind         { return KindTypeDefinition }
func (*TypeDefinition) header() string     { return "Definition.SugaredType" }
func (t *TypeDefinition) NodeName() string { return nameOf(t.Name) }
func (t *TypeDefinition) Children() []Node { return childrenOf(t) }
func (t *TypeDefinition) fields() []field {
	return []field{
		{"name", opt(t.Name)},
		{"body", t.Body},
	}
}

// FunctionBinding binds a name to a function of ordered arguments.
type FunctionBinding struct {
	Meta
	Name      *Name
	Arguments []*Argument
	Body      Node
}

func (*FunctionBinding) Kind() Kind         { return KindFunctionBinding }
func (*FunctionBinding) header() string     { return "Function.Binding" }
func (f *FunctionBinding) NodeName() string { return nameOf(f.Name) }
func (f *FunctionBinding) Children() []Node { return childrenOf(f) }
func (f *FunctionBinding) fields() []field {
	return []field{
		{"name", opt(f.Name)},
		{"arguments", nodes(f.Arguments)},
		{"body", f.Body},
	}
}

// SelfReceiving reports whether the first argument is the self-receiver marker.
func (f *FunctionBinding) SelfReceiving() bool {
	if len(f.Arguments) == 0 || f.Arguments[0] == nil {
		return false
	}
	return f.Arguments[0].IsSelf()
}

// Argument is a function argument with its binding target.
type Argument struct {
	Meta
	Target *Name
}

func (*Argument) Kind() Kind         { return KindArgument }
func (*Argument) header() string     { return "Definition.Argument" }
func (a *Argument) NodeName() string { return nameOf(a.Target) }
func (a *Argument) Children() []Node { return childrenOf(a) }
func (a *Argument) fields() []field {
	return []field{
		{"name", opt(a.Target)},
	}
}

// IsSelf reports whether the argument binds the implicit receiver.
func (a *Argument) IsSelf() bool {
	return a.Target != nil && a.Target.Self
}

// Documentation is a documentation comment.
type Documentation struct {
	Meta
	Doc string
}

func (*Documentation) Kind() Kind         { return KindDocumentation }
func (*Documentation) header() string     { return "Comment.Documentation" }
func (d *Documentation) Children() []Node { return nil }
func (d *Documentation) fields() []field {
	return []field{
		{"doc", d.Doc},
	}
}

// PatternDoc is a documentation comment attached to a case branch.
type PatternDoc struct {
	Meta
	Doc string
}

func (*PatternDoc) Kind() Kind         { return KindPatternDoc }
func (*PatternDoc) header() string     { return "Case.Pattern.Doc" }
func (d *PatternDoc) Children() []Node { return nil }
func (d *PatternDoc) fields() []field {
	return []field{
		{"doc", d.Doc},
	}
}

// SyntaxError stands in for a construct that could not be lowered.
type SyntaxError struct {
	Meta
	Source string
	Reason string
}

func (*SyntaxError) Kind() Kind         { return KindSyntaxError }
func (*SyntaxError) header() string     { return "Error.Syntax" }
func (e *SyntaxError) Children() []Node { return nil }
func (e *SyntaxError) fields() []field {
	return []field{
		{"at", e.Source},
		{"reason", e.Reason},
	}
}

// Name is an identifier. Self marks the implicit receiver.
type Name struct {
	Meta
	Value string
	Self  bool
}

func (*Name) Kind() Kind         { return KindName }
func (n *Name) NodeName() string { return n.Value }
func (n *Name) Children() []Node { return nil }
func (n *Name) header() string {
	if n.Self {
		return "Name.Self"
	}
	return "Name.Literal"
}
func (n *Name) fields() []field {
	return []field{
		{"name", n.Value},
	}
}

// Number is a numeric literal, kept as written.
type Number struct {
	Meta
	Value string
}

func (*Number) Kind() Kind         { return KindNumber }
func (*Number) header() string     { return "Literal.Number" }
func (n *Number) Children() []Node { return nil }
func (n *Number) fields() []field {
	return []field{
		{"value", raw(n.Value)},
	}
}

// Text is a text literal, unquoted.
type Text struct {
	Meta
	Value string
}

func (*Text) Kind() Kind         { return KindText }
func (*Text) header() string     { return "Literal.Text" }
func (t *Text) Children() []Node { return nil }
func (t *Text) fields() []field {
	return []field{
		{"text", t.Value},
	}
}

// Application is a prefix application of a function to arguments.
type Application struct {
	Meta
	Function  Node
	Arguments []Node
}

func (*Application) Kind() Kind         { return KindApplication }
func (*Application) header() string     { return "Application.Prefix" }
func (a *Application) Children() []Node { return childrenOf(a) }
func (a *Application) fields() []field {
	return []field{
		{"function", a.Function},
		{"arguments", a.Arguments},
	}
}

// Case is a case expression over a scrutinee.
type Case struct {
	Meta
	Scrutinee Node
	Branches  []*CaseBranch
}

func (*Case) Kind() Kind         { return KindCase }
func (*Case) header() string     { return "Case.Expr" }
func (c *Case) Children() []Node { return childrenOf(c) }
func (c *Case) fields() []field {
	return []field{
		{"scrutinee", c.Scrutinee},
		{"branches", nodes(c.Branches)},
	}
}

// CaseBranch is one branch of a case expression, optionally documented.
type CaseBranch struct {
	Meta
	Doc        *PatternDoc
	Pattern    *Pattern
	Expression Node
}

func (*CaseBranch) Kind() Kind         { return KindCaseBranch }
func (*CaseBranch) header() string     { return "Case.Branch" }
func (b *CaseBranch) Children() []Node { return childrenOf(b) }
func (b *CaseBranch) fields() []field {
	return []field{
		{"doc", opt(b.Doc)},
		{"pattern", opt(b.Pattern)},
		{"expression", b.Expression},
	}
}

// Pattern is a constructor pattern binding its fields.
type Pattern struct {
	Meta
	Constructor *Name
	Fields      []*Name
}

func (*Pattern) Kind() Kind         { return KindPattern }
func (*Pattern) header() string     { return "Pattern.Constructor" }
func (p *Pattern) NodeName() string { return nameOf(p.Constructor) }
func (p *Pattern) Children() []Node { return childrenOf(p) }
func (p *Pattern) fields() []field {
	return []field{
		{"constructor", opt(p.Constructor)},
		{"fields", nodes(p.Fields)},
	}
}

// field is one rendered field of a node. value is nil, string, raw, bool,
// int, Node or []Node.
type field struct {
	name  string
	value any
}

// raw is a string rendered without quotes.
type raw string

// opt turns a typed nil pointer into an untyped nil Node.
func opt[P interface {
	*E
	Node
}, E any](p P) Node {
	if p == nil {
		return nil
	}
	return p
}

func nodes[T Node](xs []T) []Node {
	out := make([]Node, 0, len(xs))
	for _, x := range xs {
		out = append(out, x)
	}
	return out
}

func nameOf(n *Name) string {
	if n == nil {
		return ""
	}
	return n.Value
}

// childrenOf collects the node-valued fields of n in field order.
func childrenOf(n Node) []Node {
	var out []Node
	for _, f := range n.fields() {
		switch v := f.value.(type) {
		case Node:
			if !isNil(v) {
				out = append(out, v)
			}
		case []Node:
			for _, c := range v {
				if !isNil(c) {
					out = append(out, c)
				}
			}
		}
	}
	return out
}
