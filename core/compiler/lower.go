package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/google/uuid"

	"github.com/FocuswithJustin/irsnap/core/ir"
)

// lowerer turns the parse tree into IR, stamping locations and identifiers.
type lowerer struct {
	source string
	newID  func() uuid.UUID
}

func (l *lowerer) meta(pos, end lexer.Position) ir.Meta {
	m := ir.Meta{
		Location: &ir.Location{
			Start:  pos.Offset,
			End:    end.Offset,
			Line:   pos.Line,
			Column: pos.Column,
		},
	}
	if l.newID != nil {
		id := l.newID()
		m.ID = &id
	}
	return m
}

// snippet returns the trimmed source text between two positions.
func (l *lowerer) snippet(pos, end lexer.Position) string {
	from, to := pos.Offset, end.Offset
	if from < 0 {
		from = 0
	}
	if to > len(l.source) || to < from {
		to = len(l.source)
	}
	return strings.TrimSpace(l.source[from:to])
}

func (l *lowerer) module(name string, f *sourceFile) *ir.Module {
	m := &ir.Module{Name: name}
	m.Meta = l.meta(lexer.Position{Filename: name, Line: 1, Column: 1}, lexer.Position{Offset: len(l.source)})
	for _, it := range f.Items {
		switch {
		case it.Doc != nil:
			m.Bindings = append(m.Bindings, l.doc(it.Doc))
		case it.Type != nil:
			m.Bindings = append(m.Bindings, l.typeDef(it.Type))
		case it.Bind != nil:
			m.Bindings = append(m.Bindings, l.binding(it.Bind))
		}
	}
	return m
}

func (l *lowerer) doc(d *docComment) *ir.Documentation {
	return &ir.Documentation{
		Meta: l.meta(d.Pos, d.EndPos),
		Doc:  docText(d.Text),
	}
}

func docText(token string) string {
	return strings.TrimSpace(strings.TrimPrefix(token, "##"))
}

func (l *lowerer) typeDef(t *typeDef) *ir.TypeDefinition {
	def := &ir.TypeDefinition{
		Meta: l.meta(t.Pos, t.EndPos),
		Name: l.name(t.Name),
	}
	for _, mem := range t.Members {
		switch {
		case mem.Doc != nil:
			def.Body = append(def.Body, l.doc(mem.Doc))
		case mem.Bind != nil:
			def.Body = append(def.Body, l.binding(mem.Bind))
		}
	}
	return def
}

func (l *lowerer) name(id *ident) *ir.Name {
	if id == nil {
		return nil
	}
	return &ir.Name{
		Meta:  l.meta(id.Pos, id.EndPos),
		Value: id.Value,
	}
}

// binding lowers a function binding. Duplicate argument names and a self
// receiver outside the first position lower to a syntax error node.
func (l *lowerer) binding(b *binding) ir.Node {
	if reason := bindingDefect(b); reason != "" {
		return &ir.SyntaxError{
			Meta:   l.meta(b.Pos, b.EndPos),
			Source: l.snippet(b.Pos, b.EndPos),
			Reason: reason,
		}
	}

	fn := &ir.FunctionBinding{
		Meta: l.meta(b.Pos, b.EndPos),
		Name: l.name(b.Name),
	}
	for _, p := range b.Params {
		target := &ir.Name{Meta: l.meta(p.Pos, p.EndPos), Value: p.Name, Self: p.Self}
		if p.Self {
			target.Value = "self"
		}
		fn.Arguments = append(fn.Arguments, &ir.Argument{
			Meta:   l.meta(p.Pos, p.EndPos),
			Target: target,
		})
	}
	fn.Body = l.expr(b.Body)
	return fn
}

func bindingDefect(b *binding) string {
	seen := make(map[string]bool, len(b.Params))
	for i, p := range b.Params {
		if p.Self {
			if i != 0 {
				return "self must be the first argument"
			}
			if seen["self"] {
				return "duplicate argument name: self"
			}
			seen["self"] = true
			continue
		}
		if seen[p.Name] {
			return fmt.Sprintf("duplicate argument name: %s", p.Name)
		}
		seen[p.Name] = true
	}
	return ""
}

func (l *lowerer) expr(e *expr) ir.Node {
	if e == nil || len(e.Terms) == 0 {
		return nil
	}
	if len(e.Terms) == 1 {
		return l.term(e.Terms[0])
	}
	app := &ir.Application{
		Meta:     l.meta(e.Pos, e.EndPos),
		Function: l.term(e.Terms[0]),
	}
	for _, t := range e.Terms[1:] {
		app.Arguments = append(app.Arguments, l.term(t))
	}
	return app
}

func (l *lowerer) term(t *term) ir.Node {
	switch {
	case t.Case != nil:
		return l.caseExpr(t.Case)
	case t.Group != nil:
		return l.expr(t.Group)
	case t.Number != nil:
		return &ir.Number{Meta: l.meta(t.Pos, t.EndPos), Value: *t.Number}
	case t.Text != nil:
		text, err := strconv.Unquote(*t.Text)
		if err != nil {
			text = strings.Trim(*t.Text, `"`)
		}
		return &ir.Text{Meta: l.meta(t.Pos, t.EndPos), Value: text}
	case t.Self:
		return &ir.Name{Meta: l.meta(t.Pos, t.EndPos), Value: "self", Self: true}
	case t.Name != nil:
		return &ir.Name{Meta: l.meta(t.Pos, t.EndPos), Value: *t.Name}
	default:
		return nil
	}
}

func (l *lowerer) caseExpr(c *caseExpr) *ir.Case {
	out := &ir.Case{
		Meta:      l.meta(c.Pos, c.EndPos),
		Scrutinee: l.expr(c.Scrutinee),
	}
	for _, b := range c.Branches {
		br := &ir.CaseBranch{
			Meta:       l.meta(b.Pos, b.EndPos),
			Expression: l.expr(b.Body),
		}
		if b.Doc != nil {
			br.Doc = &ir.PatternDoc{
				Meta: l.meta(b.Doc.Pos, b.Doc.EndPos),
				Doc:  docText(b.Doc.Text),
			}
		}
		if b.Pattern != nil {
			pat := &ir.Pattern{
				Meta:        l.meta(b.Pattern.Pos, b.Pattern.EndPos),
				Constructor: l.name(b.Pattern.Constructor),
			}
			for _, f := range b.Pattern.Fields {
				pat.Fields = append(pat.Fields, l.name(f))
			}
			br.Pattern = pat
		}
		out.Branches = append(out.Branches, br)
	}
	return out
}
