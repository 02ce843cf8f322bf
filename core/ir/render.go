package ir

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

const indentUnit = "    "

// Render returns the canonical text form of n and its subtree.
func Render(n Node) string {
	var sb strings.Builder
	renderValue(&sb, n, 0)
	return sb.String()
}

// String renders a location the way it appears in a node rendering.
func (l *Location) String() string {
	if l == nil {
		return "None"
	}
	return fmt.Sprintf("Location(start = %d, end = %d, position = Position(line = %d, column = %d))",
		l.Start, l.End, l.Line, l.Column)
}

func renderNode(sb *strings.Builder, n Node, depth int) {
	sb.WriteString(n.header())
	sb.WriteString("(\n")

	fs := n.fields()
	meta := n.Metadata()
	fs = append(fs, field{"location", raw(meta.Location.String())})
	if meta.ID != nil {
		fs = append(fs, field{"id", raw(meta.ID.String())})
	} else {
		fs = append(fs, field{"id", nil})
	}

	inner := strings.Repeat(indentUnit, depth+1)
	for i, f := range fs {
		sb.WriteString(inner)
		sb.WriteString(f.name)
		sb.WriteString(" = ")
		renderValue(sb, f.value, depth+1)
		if i < len(fs)-1 {
			sb.WriteByte(',')
		}
		sb.WriteByte('\n')
	}

	sb.WriteString(strings.Repeat(indentUnit, depth))
	sb.WriteByte(')')
}

func renderValue(sb *strings.Builder, v any, depth int) {
	switch v := v.(type) {
	case nil:
		sb.WriteString("None")
	case raw:
		sb.WriteString(string(v))
	case string:
		sb.WriteString(strconv.Quote(v))
	case bool:
		sb.WriteString(strconv.FormatBool(v))
	case int:
		sb.WriteString(strconv.Itoa(v))
	case Node:
		if isNil(v) {
			sb.WriteString("None")
			return
		}
		renderNode(sb, v, depth)
	case []Node:
		renderList(sb, v, depth)
	default:
		fmt.Fprintf(sb, "%v", v)
	}
}

func renderList(sb *strings.Builder, items []Node, depth int) {
	if len(items) == 0 {
		sb.WriteString("List()")
		return
	}
	sb.WriteString("List(\n")
	inner := strings.Repeat(indentUnit, depth+1)
	for i, item := range items {
		sb.WriteString(inner)
		renderValue(sb, item, depth+1)
		if i < len(items)-1 {
			sb.WriteByte(',')
		}
		sb.WriteByte('\n')
	}
	sb.WriteString(strings.Repeat(indentUnit, depth))
	sb.WriteByte(')')
}

// isNil reports whether n is nil or a typed nil pointer.
func isNil(n Node) bool {
	if n == nil {
		return true
	}
	v := reflect.ValueOf(n)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// Attribute is a scalar property of a node, as exposed to tree queries.
type Attribute struct {
	Name  string
	Value string
}

// Attributes returns the scalar properties of n: its name (for Named nodes),
// its string, number and boolean fields, and for function bindings whether
// they take a self receiver. Child nodes are not attributes.
func Attributes(n Node) []Attribute {
	if isNil(n) {
		return nil
	}
	var attrs []Attribute
	seen := make(map[string]bool)
	add := func(name, value string) {
		if seen[name] {
			return
		}
		seen[name] = true
		attrs = append(attrs, Attribute{Name: name, Value: value})
	}

	if named, ok := n.(Named); ok {
		add("name", named.NodeName())
	}
	switch t := n.(type) {
	case *FunctionBinding:
		add("self", strconv.FormatBool(t.SelfReceiving()))
	case *Argument:
		add("self", strconv.FormatBool(t.IsSelf()))
	case *Name:
		add("self", strconv.FormatBool(t.Self))
	}
	for _, f := range n.fields() {
		switch v := f.value.(type) {
		case string:
			add(f.name, v)
		case raw:
			add(f.name, string(v))
		case bool:
			add(f.name, strconv.FormatBool(v))
		case int:
			add(f.name, strconv.Itoa(v))
		}
	}
	return attrs
}

// TextOf returns the textual value of a node: the documentation text, the
// literal value, the reason of a syntax error, or the name of a named node.
func TextOf(n Node) string {
	switch t := n.(type) {
	case *Documentation:
		return t.Doc
	case *PatternDoc:
		return t.Doc
	case *SyntaxError:
		return t.Reason
	case *Number:
		return t.Value
	case *Text:
		return t.Value
	case Named:
		return t.NodeName()
	default:
		return ""
	}
}
