// Package redact normalizes IR renderings so that two renderings produced at
// different times compare equal when they differ only in volatile fields.
//
// Normalization is a fixed pipeline of rules. Each rule locates one span to
// rewrite; the pipeline applies every rule to its own fixpoint before moving
// to the next:
//
//  1. node identifiers become "_"
//  2. location spans collapse to " Location[_]"
//  3. documentation headers (and their text) collapse to "Comment.Doc(" and
//     "Comment.CaseDoc(", keeping everything from "location =" on
//  4. syntax-error headers collapse to "Error.Syntax (", keeping everything
//     from "reason =" on
//
// Normalize never fails. A location span whose parentheses never balance
// collapses to the end of the text.
package redact

import (
	"regexp"
	"strings"
)

// IDPattern matches a rendered node identifier.
const IDPattern = `[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`

// Placeholders written by the default rules.
const (
	IDPlaceholder       = "_"
	LocationMarker      = " Location("
	LocationPlaceholder = " Location[_]"
)

// Match is a span of text to replace.
type Match struct {
	Start       int
	End         int
	Replacement string
}

// Rule locates the leftmost span to rewrite at or after from.
type Rule interface {
	Name() string
	Find(text string, from int) (Match, bool)
}

// Redactor applies an ordered list of rules.
type Redactor struct {
	rules []Rule
}

// New returns a redactor running rules in the given order.
func New(rules ...Rule) *Redactor {
	return &Redactor{rules: rules}
}

var defaultRedactor = New(Rules()...)

// Rules returns the default pipeline in application order.
func Rules() []Rule {
	return []Rule{
		IDRule(),
		LocationRule(),
		HeaderRule("Comment.Documentation(", "location =", "Comment.Doc("),
		HeaderRule("Case.Pattern.Doc(", "location =", "Comment.CaseDoc("),
		HeaderRule("Error.Syntax(", "reason =", "Error.Syntax ("),
	}
}

// Normalize runs the default pipeline over text.
func Normalize(text string) string {
	return defaultRedactor.Normalize(text)
}

// Normalize runs every rule of r, in order, each to its fixpoint.
func (r *Redactor) Normalize(text string) string {
	for _, rule := range r.rules {
		text = rewrite(text, rule)
	}
	return text
}

// rewrite applies rule until it no longer changes text. A pass scans left to
// right, resuming after each replacement.
func rewrite(text string, rule Rule) string {
	for {
		var sb strings.Builder
		last, from, changed := 0, 0, false
		for from <= len(text) {
			m, ok := rule.Find(text, from)
			if !ok {
				break
			}
			sb.WriteString(text[last:m.Start])
			sb.WriteString(m.Replacement)
			last = m.End
			from = m.End
			changed = true
			if m.End == m.Start {
				from++
			}
		}
		if !changed {
			return text
		}
		sb.WriteString(text[last:])
		next := sb.String()
		if next == text {
			return text
		}
		text = next
	}
}

type idRule struct {
	re *regexp.Regexp
}

// IDRule replaces every rendered identifier with IDPlaceholder.
func IDRule() Rule {
	return idRule{re: regexp.MustCompile(IDPattern)}
}

func (idRule) Name() string { return "ids" }

func (r idRule) Find(text string, from int) (Match, bool) {
	loc := r.re.FindStringIndex(text[from:])
	if loc == nil {
		return Match{}, false
	}
	return Match{Start: from + loc[0], End: from + loc[1], Replacement: IDPlaceholder}, true
}

type locationRule struct{}

// LocationRule collapses each " Location(...)" span, matched by balanced
// parentheses at any depth, to LocationPlaceholder.
func LocationRule() Rule {
	return locationRule{}
}

func (locationRule) Name() string { return "locations" }

func (locationRule) Find(text string, from int) (Match, bool) {
	at := strings.Index(text[from:], LocationMarker)
	if at < 0 {
		return Match{}, false
	}
	at += from

	end := len(text)
	depth := 1
	for i := at + len(LocationMarker); i < len(text); i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 {
			end = i + 1
			break
		}
	}
	return Match{Start: at, End: end, Replacement: LocationPlaceholder}, true
}

type headerRule struct {
	header      string
	boundary    string
	replacement string
}

// HeaderRule rewrites a node header: the span from header up to (excluding)
// the next boundary becomes replacement. A header with no boundary after it
// is left as is. The replacement must not contain header.
func HeaderRule(header, boundary, replacement string) Rule {
	return headerRule{header: header, boundary: boundary, replacement: replacement}
}

func (r headerRule) Name() string { return "header " + r.header }

func (r headerRule) Find(text string, from int) (Match, bool) {
	for from <= len(text) {
		at := strings.Index(text[from:], r.header)
		if at < 0 {
			return Match{}, false
		}
		at += from
		to := strings.Index(text[at+len(r.header):], r.boundary)
		if to < 0 {
			from = at + len(r.header)
			continue
		}
		return Match{Start: at, End: at + len(r.header) + to, Replacement: r.replacement}, true
	}
	return Match{}, false
}
