package ir

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func mustUUID(t *testing.T, s string) *uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	if err != nil {
		t.Fatalf("uuid.Parse(%q): %v", s, err)
	}
	return &id
}

func TestRenderDocumentation(t *testing.T) {
	doc := &Documentation{
		Meta: Meta{
			Location: &Location{Start: 4, End: 27, Line: 2, Column: 5},
			ID:       mustUUID(t, "3f2a9c10-1b2c-4d5e-8f90-a1b2c3d4e5f6"),
		},
		Doc: " Returns a value.",
	}

	want := `Comment.Documentation(
    doc = " Returns a value.",
    location = Location(start = 4, end = 27, position = Position(line = 2, column = 5)),
    id = 3f2a9c10-1b2c-4d5e-8f90-a1b2c3d4e5f6
)`
	if got := Render(doc); got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}
}

func TestRenderNested(t *testing.T) {
	mod := &Module{
		Name: "Test",
		Bindings: []Node{
			&TypeDefinition{
				Name: &Name{Value: "Vector"},
				Body: []Node{
					&FunctionBinding{
						Name:      &Name{Value: "at"},
						Arguments: []*Argument{{Target: &Name{Value: "self", Self: true}}},
						Body:      &Number{Value: "0"},
					},
				},
			},
		},
	}

	got := Render(mod)
	for _, fragment := range []string{
		"Module(\n    name = \"Test\",\n    bindings = List(\n        Definition.SugaredType(",
		"Name.Self(\n",
		"Function.Binding(",
		"value = 0,",
		"location = None,",
		"id = None\n",
	} {
		if !strings.Contains(got, fragment) {
			t.Errorf("rendering lacks %q:\n%s", fragment, got)
		}
	}
	if strings.Count(got, "(") != strings.Count(got, ")") {
		t.Errorf("unbalanced parentheses in:\n%s", got)
	}
}

func TestRenderEmptyAndMissing(t *testing.T) {
	fn := &FunctionBinding{}
	got := Render(fn)
	want := `Function.Binding(
    name = None,
    arguments = List(),
    body = None,
    location = None,
    id = None
)`
	if got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}
}

func TestRenderFieldOrderForRedaction(t *testing.T) {
	tests := []struct {
		name   string
		node   Node
		header string
		before string
		after  string
	}{
		{
			name:   "documentation keeps location after doc",
			node:   &Documentation{Doc: "x"},
			header: "Comment.Documentation(",
			before: "doc =",
			after:  "location =",
		},
		{
			name:   "pattern doc keeps location after doc",
			node:   &PatternDoc{Doc: "x"},
			header: "Case.Pattern.Doc(",
			before: "doc =",
			after:  "location =",
		},
		{
			name:   "syntax error keeps reason after source",
			node:   &SyntaxError{Source: "f x x", Reason: "duplicate argument name: x"},
			header: "Error.Syntax(",
			before: "at =",
			after:  "reason =",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := Render(tt.node)
			if !strings.HasPrefix(text, tt.header) {
				t.Fatalf("rendering does not start with %q:\n%s", tt.header, text)
			}
			b := strings.Index(text, tt.before)
			a := strings.Index(text, tt.after)
			if b < 0 || a < 0 || b > a {
				t.Errorf("%q should precede %q in:\n%s", tt.before, tt.after, text)
			}
		})
	}
}

func TestRenderQuotesText(t *testing.T) {
	got := Render(&Text{Value: "say \"hi\"\n"})
	if !strings.Contains(got, `text = "say \"hi\"\n"`) {
		t.Errorf("text not quoted:\n%s", got)
	}
}

func TestLocationString(t *testing.T) {
	var nilLoc *Location
	if got := nilLoc.String(); got != "None" {
		t.Errorf("nil Location = %q, want None", got)
	}
	loc := &Location{Start: 1, End: 2, Line: 3, Column: 4}
	want := "Location(start = 1, end = 2, position = Position(line = 3, column = 4))"
	if got := loc.String(); got != want {
		t.Errorf("Location.String() = %q, want %q", got, want)
	}
}
