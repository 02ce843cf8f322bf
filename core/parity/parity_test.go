package parity

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FocuswithJustin/irsnap/core/compiler"
	"github.com/FocuswithJustin/irsnap/core/errors"
	"github.com/FocuswithJustin/irsnap/core/ir"
)

func doc(text string) *ir.Documentation {
	return &ir.Documentation{Doc: text}
}

func method(name string) *ir.FunctionBinding {
	return &ir.FunctionBinding{
		Name:      &ir.Name{Value: name},
		Arguments: []*ir.Argument{{Target: &ir.Name{Value: "self", Self: true}}},
		Body:      &ir.Number{Value: "0"},
	}
}

func plain(name string) *ir.FunctionBinding {
	return &ir.FunctionBinding{
		Name:      &ir.Name{Value: name},
		Arguments: []*ir.Argument{{Target: &ir.Name{Value: "x"}}},
	}
}

func module(typeName string, body ...ir.Node) *ir.Module {
	return &ir.Module{
		Name: typeName,
		Bindings: []ir.Node{
			&ir.TypeDefinition{Name: &ir.Name{Value: typeName}, Body: body},
		},
	}
}

var scenarioRules = Rules{
	{Old: "]", New: "].to_array"},
	{Old: "a value", New: "an item"},
}

func TestRulesApplyInOrder(t *testing.T) {
	assert.Equal(t, "Returns an item [x].to_array.", scenarioRules.Apply("Returns a value [x]."))

	reversed := Rules{scenarioRules[1], scenarioRules[0]}
	assert.Equal(t, "Returns an item [x].to_array.", reversed.Apply("Returns a value [x]."))

	chained := Rules{{Old: "a", New: "b"}, {Old: "b", New: "c"}}
	assert.Equal(t, "cc", chained.Apply("ab"), "later rules see earlier output")

	assert.Equal(t, "same", Rules{{Old: "", New: "x"}}.Apply("same"))
}

func TestRulesIdentityRoundTrip(t *testing.T) {
	ref := module("Vector", doc("Returns a value [x]."), method("at"))
	tgt := module("Vector", doc("Returns a value [x]."), method("at"))

	report, err := Check(ref, "Vector", tgt, "Vector", nil, "PRIVATE")
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.NoError(t, report.Err())
}

func TestDocMismatch(t *testing.T) {
	ref := module("Vector", doc("Returns a value [x]."), method("at"))
	tgt := module("Array", doc("Returns a value [x]."), method("at"))

	report, err := Check(ref, "Vector", tgt, "Array", scenarioRules, "PRIVATE")
	require.NoError(t, err)
	require.Equal(t, []string{"at"}, report.Names())

	v := report.Violations["at"]
	assert.Equal(t, DocMismatch, v.Kind)
	assert.Equal(t, "Returns an item [x].to_array.", v.Expected)
	assert.Equal(t, "Returns a value [x].", v.Actual)
	assert.ErrorContains(t, report.Err(), "at: documentation mismatch")
}

func TestDocMatchAfterRewrite(t *testing.T) {
	ref := module("Vector", doc("Returns a value [x]."), method("at"))
	tgt := module("Array", doc("Returns an item [x].to_array."), method("at"))

	report, err := Check(ref, "Vector", tgt, "Array", scenarioRules, "PRIVATE")
	require.NoError(t, err)
	assert.True(t, report.OK(), "unexpected violations: %v", report.Violations)
}

func TestMissingNamesSkipDocPhase(t *testing.T) {
	ref := module("Vector",
		doc("Returns a value [x]."), method("at"),
		doc("PRIVATE"), method("length"),
	)
	tgt := module("Array", doc("wrong"), method("at"), method("extra"))

	report, err := Check(ref, "Vector", tgt, "Array", scenarioRules, "PRIVATE")
	require.NoError(t, err)
	assert.Equal(t, []string{"extra", "length"}, report.Names())
	assert.Equal(t, MissingInTarget, report.Violations["length"].Kind)
	assert.Equal(t, MissingInReference, report.Violations["extra"].Kind)
	_, docChecked := report.Violations["at"]
	assert.False(t, docChecked, "doc phase should not run while names are missing")
}

func TestMarkerExemptsDocsOnly(t *testing.T) {
	ref := module("Vector",
		doc("Returns a value [x]."), method("at"),
		doc("PRIVATE: internal"), method("length"),
	)
	tgt := module("Array",
		doc("Returns an item [x].to_array."), method("at"),
		method("length"),
	)

	report, err := Check(ref, "Vector", tgt, "Array", scenarioRules, "PRIVATE")
	require.NoError(t, err)
	assert.True(t, report.OK(), "unexpected violations: %v", report.Violations)

	report, err = Check(ref, "Vector", tgt, "Array", scenarioRules, "")
	require.NoError(t, err)
	assert.Equal(t, DocMissing, report.Violations["length"].Kind, "empty marker exempts nothing")
}

func TestDocMissing(t *testing.T) {
	t.Run("reference", func(t *testing.T) {
		ref := module("Vector", method("at"))
		tgt := module("Array", doc("d"), method("at"))

		report, err := Check(ref, "Vector", tgt, "Array", nil, "PRIVATE")
		require.NoError(t, err)
		v := report.Violations["at"]
		assert.Equal(t, DocMissing, v.Kind)
		assert.Equal(t, Reference, v.Side)
	})

	t.Run("target", func(t *testing.T) {
		ref := module("Vector", doc("d"), method("at"))
		tgt := module("Array", method("at"))

		report, err := Check(ref, "Vector", tgt, "Array", nil, "PRIVATE")
		require.NoError(t, err)
		v := report.Violations["at"]
		assert.Equal(t, DocMissing, v.Kind)
		assert.Equal(t, Target, v.Side)
		assert.EqualError(t, v, "at: no documentation on target side")
	})
}

func TestViolationSideOnlyForDocMissing(t *testing.T) {
	ref := module("Vector", method("at"), doc("d"), method("size"))
	tgt := module("Array", doc("d"), method("at"))

	report, err := Check(ref, "Vector", tgt, "Array", nil, "PRIVATE")
	require.NoError(t, err)
	missing := report.Violations["size"]
	require.Equal(t, MissingInTarget, missing.Kind)
	assert.Zero(t, missing.Side)

	data, err := json.Marshal(missing)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"side"`)

	data, err = json.Marshal(Violation{Function: "at", Kind: DocMissing, Side: Reference})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"side":"reference"`)
}

func TestMultipleViolationsReported(t *testing.T) {
	ref := module("Vector", doc("a"), method("first"), doc("b"), method("second"))
	tgt := module("Array", doc("x"), method("first"), doc("y"), method("second"))

	report, err := Check(ref, "Vector", tgt, "Array", nil, "PRIVATE")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, report.Names())
}

func TestMissingTypeIsFatal(t *testing.T) {
	ref := module("Vector", method("at"))

	_, err := Check(ref, "Vector", ref, "Array", nil, "")
	var nf *errors.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Array", nf.ID)
}

func TestAmbiguousTargetIsFatal(t *testing.T) {
	ref := module("Vector", doc("d"), method("at"))
	tgt := module("Array", doc("d"), method("at"), doc("d"), method("at"))

	_, err := Check(ref, "Vector", tgt, "Array", nil, "")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestAssociate(t *testing.T) {
	at, length, size := method("at"), method("length"), method("size")
	first := doc("first")
	def := &ir.TypeDefinition{
		Name: &ir.Name{Value: "Vector"},
		Body: []ir.Node{
			first, at,
			length,
			doc("stale"), plain("new"), size,
		},
	}

	assoc := Associate(def)

	d, ok := assoc.Doc(at)
	assert.True(t, ok)
	assert.Equal(t, "first", d)

	_, ok = assoc.Doc(length)
	assert.False(t, ok, "a consumed comment must not carry over")

	d, ok = assoc.Doc(size)
	assert.True(t, ok, "non-receiving bindings do not clear the tracked comment")
	assert.Equal(t, "stale", d)

	_, ok = assoc.Doc(plain("new"))
	assert.False(t, ok)
}

func TestMethods(t *testing.T) {
	def := &ir.TypeDefinition{
		Name: &ir.Name{Value: "Vector"},
		Body: []ir.Node{method("at"), plain("new"), method("length")},
	}
	var names []string
	for _, fn := range Methods(def) {
		names = append(names, fn.NodeName())
	}
	assert.Equal(t, []string{"at", "length"}, names)
}

const vectorSource = `type Vector {
    ## Returns a vector value [x].
    at self index = builtin index

    ## PRIVATE
    length self = 0

    new x = x
}
`

const arraySource = `type Array {
    ## Returns an array value [x].to_array.
    at self index = builtin index
}
`

func TestEndToEndMissingLength(t *testing.T) {
	err := compiler.With(func(c *compiler.Compiler) error {
		vec, err := c.Compile(vectorSource, "Vector")
		require.NoError(t, err)
		arr, err := c.Compile(arraySource, "Array")
		require.NoError(t, err)

		report, err := VectorArrayConfig().Check(vec, arr)
		require.NoError(t, err)
		assert.Equal(t, []string{"length"}, report.Names())
		assert.Equal(t, MissingInTarget, report.Violations["length"].Kind)
		return nil
	})
	require.NoError(t, err)
}

func TestConfigParse(t *testing.T) {
	data := []byte(`
reference: Vector
target: Array
marker: PRIVATE
rules:
  - old: "]"
    new: "].to_array"
  - old: "a value"
    new: "an item"
`)
	cfg, err := ParseConfig(data)
	require.NoError(t, err)
	assert.Equal(t, "Vector", cfg.Reference)
	assert.Equal(t, "Array", cfg.Target)
	assert.Equal(t, scenarioRules, cfg.Rules)
}

func TestConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"bad yaml", "reference: [", errors.ErrInvalidInput},
		{"no reference", "target: Array", errors.ErrInvalidInput},
		{"no target", "reference: Vector", errors.ErrInvalidInput},
		{"empty rule", "reference: A\ntarget: B\nrules:\n  - new: x", errors.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.data))
			require.Error(t, err)
			if tt.name == "bad yaml" {
				var pe *errors.ParseError
				assert.ErrorAs(t, err, &pe)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parity.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reference: Vector\ntarget: Array\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Array", cfg.Target)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	var ioe *errors.IOError
	assert.ErrorAs(t, err, &ioe)
}

func TestVectorArrayRules(t *testing.T) {
	cfg := VectorArrayConfig()
	assert.Equal(t, "Returns an array of [x].to_array.", cfg.Rules.Apply("Returns a vector of [x]."))
	assert.Equal(t, "The array.", cfg.Rules.Apply("The vector."))
}
