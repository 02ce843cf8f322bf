package treequery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FocuswithJustin/irsnap/core/errors"
	"github.com/FocuswithJustin/irsnap/core/ir"
)

func TestSelectTypeDefinition(t *testing.T) {
	root := fixture()

	s, err := Select(root, "//SugaredTypeDefinition[@name='Array']")
	require.NoError(t, err)

	def, err := s.Head()
	require.NoError(t, err)
	assert.Same(t, root.Bindings[1], def)
}

func TestSelectAgreesWithFilter(t *testing.T) {
	root := fixture()

	tests := []struct {
		expr string
		pred func(ir.Node) bool
	}{
		{"//FunctionBinding[@self='true']", SelfReceiving},
		{"//Documentation", KindIs(ir.KindDocumentation)},
		{"//SugaredTypeDefinition[@name='Vector']", TypeNamed("Vector")},
		{"//Number", KindIs(ir.KindNumber)},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			s, err := Select(root, tt.expr)
			require.NoError(t, err)
			assert.Equal(t, Preorder(root).Filter(tt.pred).Collect(), s.Collect())
		})
	}
}

func TestSelectScopedPath(t *testing.T) {
	s, err := Select(fixture(), "//SugaredTypeDefinition[@name='Vector']/FunctionBinding[@self='true']")
	require.NoError(t, err)
	assert.Equal(t, []string{"at", "length"}, names(s))
}

func TestSelectDocumentationText(t *testing.T) {
	s, err := Select(fixture(), "//Documentation[contains(@doc, 'PRIVATE')]")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Count())
}

func TestSelectDropsAttributes(t *testing.T) {
	s, err := Select(fixture(), "//FunctionBinding/@name")
	require.NoError(t, err)
	assert.Zero(t, s.Count())
}

func TestSelectInvalidExpression(t *testing.T) {
	_, err := Select(fixture(), "//[")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}
