// Package parity checks that two parallel API surfaces stay in lock-step.
//
// A reference type and a target type, each a sugared type definition in its
// own IR tree, must expose the same self-receiving functions, and every
// reference function's documentation, rewritten by an ordered list of literal
// replacements, must equal the target function's documentation. Functions
// whose reference documentation contains an internal marker are exempt from
// the documentation check but not from the name check.
package parity

import (
	"fmt"
	"slices"
	"strings"

	"github.com/FocuswithJustin/irsnap/core/errors"
	"github.com/FocuswithJustin/irsnap/core/ir"
	"github.com/FocuswithJustin/irsnap/core/treequery"
	"github.com/FocuswithJustin/irsnap/internal/logging"
)

// Rule replaces every occurrence of Old with New.
type Rule struct {
	Old string `yaml:"old" json:"old"`
	New string `yaml:"new" json:"new"`
}

// Rules is an ordered rewrite pipeline.
type Rules []Rule

// Apply runs each rule, in order, on the result of the previous ones. Rules
// with an empty Old are skipped.
func (rs Rules) Apply(s string) string {
	for _, r := range rs {
		if r.Old == "" {
			continue
		}
		s = strings.ReplaceAll(s, r.Old, r.New)
	}
	return s
}

// Kind classifies a violation.
type Kind int

const (
	MissingInTarget Kind = iota
	MissingInReference
	DocMissing
	DocMismatch
)

func (k Kind) String() string {
	switch k {
	case MissingInTarget:
		return "missing_in_target"
	case MissingInReference:
		return "missing_in_reference"
	case DocMissing:
		return "doc_missing"
	case DocMismatch:
		return "doc_mismatch"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name in JSON and YAML reports.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Side names one of the two surfaces. The zero Side names neither.
type Side int

const (
	Reference Side = iota + 1
	Target
)

func (s Side) String() string {
	switch s {
	case Reference:
		return "reference"
	case Target:
		return "target"
	default:
		return ""
	}
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Violation is one parity offense. Side is set only for DocMissing,
// Expected and Actual only for DocMismatch.
type Violation struct {
	Function string `json:"function"`
	Kind     Kind   `json:"kind"`
	Side     Side   `json:"side,omitempty"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
}

func (v Violation) Error() string {
	switch v.Kind {
	case MissingInTarget:
		return fmt.Sprintf("%s: missing in target", v.Function)
	case MissingInReference:
		return fmt.Sprintf("%s: missing in reference", v.Function)
	case DocMissing:
		return fmt.Sprintf("%s: no documentation on %s side", v.Function, v.Side)
	case DocMismatch:
		return fmt.Sprintf("%s: documentation mismatch: expected %q, got %q", v.Function, v.Expected, v.Actual)
	default:
		return fmt.Sprintf("%s: %s", v.Function, v.Kind)
	}
}

// Report maps offending function names to their violation. An empty report
// means the surfaces are in parity.
type Report struct {
	Reference  string               `json:"reference"`
	Target     string               `json:"target"`
	Violations map[string]Violation `json:"violations"`
}

// OK reports whether no violation was found.
func (r *Report) OK() bool {
	return len(r.Violations) == 0
}

// Names returns the offending function names, sorted.
func (r *Report) Names() []string {
	names := make([]string, 0, len(r.Violations))
	for name := range r.Violations {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Err joins one error per offending function, or returns nil.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, 0, len(r.Violations))
	for _, name := range r.Names() {
		errs = append(errs, r.Violations[name])
	}
	return errors.Join(errs...)
}

func (r *Report) add(v Violation) {
	r.Violations[v.Function] = v
	logging.ParityViolation(v.Function, v.Kind.String(),
		"reference", r.Reference,
		"target", r.Target,
	)
}

// DocAssociation maps each self-receiving function binding to the
// documentation comment that precedes it.
type DocAssociation map[*ir.FunctionBinding]*ir.Documentation

type docState struct {
	last  *ir.Documentation
	assoc DocAssociation
}

// Associate walks def in preorder, remembering the last documentation comment
// seen. Each self-receiving binding takes the remembered comment, if any, and
// clears it. Other bindings leave it for the next self-receiving one.
func Associate(def ir.Node) DocAssociation {
	start := docState{assoc: make(DocAssociation)}
	final := treequery.Fold(treequery.Preorder(def), start, func(st docState, n ir.Node) docState {
		switch t := n.(type) {
		case *ir.Documentation:
			st.last = t
		case *ir.FunctionBinding:
			if t.SelfReceiving() {
				if st.last != nil {
					st.assoc[t] = st.last
				}
				st.last = nil
			}
		}
		return st
	})
	return final.assoc
}

// Doc returns the documentation text of fn and whether it has any.
func (a DocAssociation) Doc(fn *ir.FunctionBinding) (string, bool) {
	d, ok := a[fn]
	if !ok || d == nil {
		return "", false
	}
	return d.Doc, true
}

// FindType returns the type definition named name under root.
func FindType(root ir.Node, name string) (*ir.TypeDefinition, error) {
	n, err := treequery.Preorder(root).Filter(treequery.TypeNamed(name)).Head()
	if err != nil {
		return nil, errors.NewNotFound("type definition", name)
	}
	return n.(*ir.TypeDefinition), nil
}

// Methods returns the self-receiving function bindings of def in source order.
func Methods(def ir.Node) []*ir.FunctionBinding {
	return treequery.OfKind[*ir.FunctionBinding](
		treequery.Preorder(def).Filter(treequery.SelfReceiving),
	).Collect()
}

type surface struct {
	fns   []*ir.FunctionBinding
	names map[string]int
	docs  DocAssociation
}

func newSurface(def *ir.TypeDefinition) surface {
	s := surface{
		fns:   Methods(def),
		names: make(map[string]int),
		docs:  Associate(def),
	}
	for _, fn := range s.fns {
		s.names[fn.NodeName()]++
	}
	return s
}

func (s surface) named(name string) []*ir.FunctionBinding {
	var out []*ir.FunctionBinding
	for _, fn := range s.fns {
		if fn.NodeName() == name {
			out = append(out, fn)
		}
	}
	return out
}

// Check compares the type refType under ref with targetType under target.
//
// A missing type definition, or a reference function with zero or several
// same-named target functions at the documentation stage, is returned as an
// error. Everything else is a violation in the report. When any name is
// missing on either side the documentation stage is skipped. An empty marker
// exempts nothing.
func Check(ref ir.Node, refType string, target ir.Node, targetType string, rules Rules, marker string) (*Report, error) {
	refDef, err := FindType(ref, refType)
	if err != nil {
		return nil, err
	}
	tgtDef, err := FindType(target, targetType)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Reference:  refType,
		Target:     targetType,
		Violations: make(map[string]Violation),
	}
	refSide, tgtSide := newSurface(refDef), newSurface(tgtDef)

	for _, fn := range refSide.fns {
		if tgtSide.names[fn.NodeName()] == 0 {
			report.add(Violation{Function: fn.NodeName(), Kind: MissingInTarget})
		}
	}
	for _, fn := range tgtSide.fns {
		if refSide.names[fn.NodeName()] == 0 {
			report.add(Violation{Function: fn.NodeName(), Kind: MissingInReference})
		}
	}
	if !report.OK() {
		return report, nil
	}

	for _, fn := range refSide.fns {
		name := fn.NodeName()
		doc, ok := refSide.docs.Doc(fn)
		if ok && marker != "" && strings.Contains(doc, marker) {
			continue
		}
		if !ok {
			report.add(Violation{Function: name, Kind: DocMissing, Side: Reference})
			continue
		}

		matches := tgtSide.named(name)
		if len(matches) != 1 {
			return nil, &errors.ValidationError{
				Field:   targetType,
				Value:   name,
				Message: fmt.Sprintf("expected exactly one function %q, found %d", name, len(matches)),
			}
		}

		actual, ok := tgtSide.docs.Doc(matches[0])
		if !ok {
			report.add(Violation{Function: name, Kind: DocMissing, Side: Target})
			continue
		}
		if expected := rules.Apply(doc); expected != actual {
			report.add(Violation{Function: name, Kind: DocMismatch, Expected: expected, Actual: actual})
		}
	}
	return report, nil
}
