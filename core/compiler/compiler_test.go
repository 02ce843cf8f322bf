package compiler

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/irsnap/core/errors"
	"github.com/FocuswithJustin/irsnap/core/ir"
)

const vectorSource = `## Vectors.
type Vector {
    ## Returns a value [x].
    at self index = builtin index

    ## PRIVATE
    length self = 0
    new x = x
    pick self v = case v of {
        ## Empty.
        Nil -> 0
        Cons h t -> h
    }
}
`

func openCompiler(t *testing.T, opts ...Option) *Compiler {
	t.Helper()
	c := New(opts...)
	if err := c.Open(); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// walk collects the subtree of n in preorder.
func walk(n ir.Node) []ir.Node {
	out := []ir.Node{n}
	for _, c := range n.Children() {
		out = append(out, walk(c)...)
	}
	return out
}

func TestLifecycle(t *testing.T) {
	c := New()

	if _, err := c.Compile("f = 1", "early"); !errors.Is(err, errors.ErrInvalidState) {
		t.Errorf("Compile before Open: got %v, want invalid state", err)
	}
	if err := c.Close(); !errors.Is(err, errors.ErrInvalidState) {
		t.Errorf("Close before Open: got %v, want invalid state", err)
	}

	if err := c.Open(); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := c.Open(); !errors.Is(err, errors.ErrInvalidState) {
		t.Errorf("second Open: got %v, want invalid state", err)
	}
	if _, err := c.Compile("f = 1", "ok"); err != nil {
		t.Errorf("Compile while open failed: %v", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}

	_, err := c.Compile("f = 1", "late")
	var se *errors.StateError
	if !errors.As(err, &se) {
		t.Fatalf("Compile after Close: got %v, want *StateError", err)
	}
	if se.State != "closed" {
		t.Errorf("StateError.State = %q, want closed", se.State)
	}
}

func TestCompileVector(t *testing.T) {
	c := openCompiler(t)

	mod, err := c.Compile(vectorSource, "Vector")
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	if mod.Name != "Vector" {
		t.Errorf("module name = %q, want Vector", mod.Name)
	}
	if len(mod.Bindings) != 2 {
		t.Fatalf("module has %d bindings, want doc and type", len(mod.Bindings))
	}

	def, ok := ir.As[*ir.TypeDefinition](mod.Bindings[1])
	if !ok {
		t.Fatalf("second binding is %s, want type definition", mod.Bindings[1].Kind())
	}
	if def.NodeName() != "Vector" {
		t.Errorf("type name = %q", def.NodeName())
	}

	var kinds []string
	for _, n := range def.Body {
		kinds = append(kinds, n.Kind().String())
	}
	want := "Documentation FunctionBinding Documentation FunctionBinding FunctionBinding FunctionBinding"
	if got := strings.Join(kinds, " "); got != want {
		t.Errorf("body kinds = %q, want %q", got, want)
	}

	doc := def.Body[0].(*ir.Documentation)
	if doc.Doc != "Returns a value [x]." {
		t.Errorf("doc text = %q", doc.Doc)
	}

	at := def.Body[1].(*ir.FunctionBinding)
	if !at.SelfReceiving() || len(at.Arguments) != 2 {
		t.Errorf("at: self=%v args=%d", at.SelfReceiving(), len(at.Arguments))
	}
	if _, ok := ir.As[*ir.Application](at.Body); !ok {
		t.Errorf("at body is %s, want application", at.Body.Kind())
	}

	newFn := def.Body[4].(*ir.FunctionBinding)
	if newFn.SelfReceiving() {
		t.Error("new should not be self-receiving")
	}
}

func TestCompileCaseBranches(t *testing.T) {
	c := openCompiler(t)

	mod, err := c.Compile(vectorSource, "Vector")
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}

	var branches []*ir.CaseBranch
	for _, n := range walk(mod) {
		if b, ok := ir.As[*ir.CaseBranch](n); ok {
			branches = append(branches, b)
		}
	}
	if len(branches) != 2 {
		t.Fatalf("found %d branches, want 2", len(branches))
	}
	if branches[0].Doc == nil || branches[0].Doc.Doc != "Empty." {
		t.Errorf("first branch doc = %+v", branches[0].Doc)
	}
	if branches[1].Doc != nil {
		t.Error("second branch should be undocumented")
	}
	if got := branches[1].Pattern.NodeName(); got != "Cons" {
		t.Errorf("pattern constructor = %q, want Cons", got)
	}
	if len(branches[1].Pattern.Fields) != 2 {
		t.Errorf("pattern fields = %d, want 2", len(branches[1].Pattern.Fields))
	}
}

func TestCompileLiterals(t *testing.T) {
	c := openCompiler(t, WithoutIDs())

	mod, err := c.Compile(`greet = concat "hi \"you\"" 42`, "lit")
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	fn := mod.Bindings[0].(*ir.FunctionBinding)
	app := fn.Body.(*ir.Application)
	if len(app.Arguments) != 2 {
		t.Fatalf("application has %d arguments", len(app.Arguments))
	}
	if txt := app.Arguments[0].(*ir.Text); txt.Value != `hi "you"` {
		t.Errorf("text literal = %q", txt.Value)
	}
	if num := app.Arguments[1].(*ir.Number); num.Value != "42" {
		t.Errorf("number literal = %q", num.Value)
	}
	for _, n := range walk(mod) {
		if n.Metadata().ID != nil {
			t.Errorf("%s has an id with WithoutIDs", n.Kind())
		}
	}
}

func TestCompileLocations(t *testing.T) {
	c := openCompiler(t)

	src := "first = 1\nsecond = 2\n"
	mod, err := c.Compile(src, "loc")
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	second := mod.Bindings[1].(*ir.FunctionBinding)
	loc := second.Metadata().Location
	if loc == nil {
		t.Fatal("binding has no location")
	}
	if loc.Line != 2 || loc.Column != 1 {
		t.Errorf("location = %d:%d, want 2:1", loc.Line, loc.Column)
	}
	if got := src[loc.Start:loc.End]; !strings.HasPrefix(got, "second = 2") {
		t.Errorf("span covers %q", got)
	}
}

func TestCompileStampsUniqueIDs(t *testing.T) {
	c := openCompiler(t)

	mod, err := c.Compile(vectorSource, "Vector")
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	seen := make(map[uuid.UUID]bool)
	for _, n := range walk(mod) {
		id := n.Metadata().ID
		if id == nil {
			t.Fatalf("%s has no id", n.Kind())
		}
		if seen[*id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[*id] = true
	}

	again, err := c.Compile(vectorSource, "Vector")
	if err != nil {
		t.Fatalf("second Compile() failed: %v", err)
	}
	if ir.Render(mod) == ir.Render(again) {
		t.Error("two compiles rendered identically despite fresh ids")
	}
}

func TestCompileIDGenerator(t *testing.T) {
	fixed := uuid.MustParse("00000000-0000-4000-8000-000000000001")
	c := openCompiler(t, WithIDGenerator(func() uuid.UUID { return fixed }))

	mod, err := c.Compile("f = 1", "fixed")
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	if id := mod.Metadata().ID; id == nil || *id != fixed {
		t.Errorf("module id = %v, want %s", id, fixed)
	}
}

func TestCompileSyntaxErrorNodes(t *testing.T) {
	tests := []struct {
		name   string
		source string
		reason string
	}{
		{"duplicate argument", "f x x = x", "duplicate argument name: x"},
		{"self not first", "f x self = x", "self must be the first argument"},
	}

	c := openCompiler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod, err := c.Compile(tt.source, "bad")
			if err != nil {
				t.Fatalf("Compile() failed: %v", err)
			}
			se, ok := ir.As[*ir.SyntaxError](mod.Bindings[0])
			if !ok {
				t.Fatalf("binding is %s, want syntax error", mod.Bindings[0].Kind())
			}
			if se.Reason != tt.reason {
				t.Errorf("reason = %q, want %q", se.Reason, tt.reason)
			}
			if se.Source != tt.source {
				t.Errorf("source = %q, want %q", se.Source, tt.source)
			}
		})
	}
}

func TestCompileParseError(t *testing.T) {
	c := openCompiler(t)

	_, err := c.Compile("type {\n", "broken")
	if err == nil {
		t.Fatal("expected a parse error")
	}
	var pe *errors.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("got %T, want *ParseError", err)
	}
	if pe.Path != "broken" || pe.Line != 1 {
		t.Errorf("ParseError at %s:%d, want broken:1", pe.Path, pe.Line)
	}
}

func TestWithClosesOnError(t *testing.T) {
	var inner *Compiler
	boom := stderrors.New("boom")

	err := With(func(c *Compiler) error {
		inner = c
		return boom
	})
	if !stderrors.Is(err, boom) {
		t.Fatalf("With() = %v, want boom", err)
	}
	if _, err := inner.Compile("f = 1", "after"); !errors.Is(err, errors.ErrInvalidState) {
		t.Errorf("compiler still usable after With returned: %v", err)
	}
}

func TestWithReturnsResult(t *testing.T) {
	var mod *ir.Module
	err := With(func(c *Compiler) error {
		var err error
		mod, err = c.Compile("f = 1", "ok")
		return err
	}, WithoutIDs())
	if err != nil {
		t.Fatalf("With() failed: %v", err)
	}
	if mod == nil || len(mod.Bindings) != 1 {
		t.Errorf("unexpected module: %+v", mod)
	}
}

func TestSyntheticName(t *testing.T) {
	a := SyntheticName("f = 1")
	if a != SyntheticName("f = 1") {
		t.Error("SyntheticName is not stable")
	}
	if a == SyntheticName("f = 2") {
		t.Error("different sources share a name")
	}
	if !strings.HasPrefix(a, "src-") || len(a) != len("src-")+12 {
		t.Errorf("SyntheticName = %q", a)
	}
}
