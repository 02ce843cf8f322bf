package treequery

import (
	"fmt"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/irsnap/core/errors"
	"github.com/FocuswithJustin/irsnap/core/ir"
)

// Select evaluates an XPath 1.0 expression against the tree under root and
// returns the matching IR nodes in document (preorder) order.
//
// Each IR node is an element named after its kind, with its scalar
// properties as attributes:
//
//	//SugaredTypeDefinition[@name='Vector']/FunctionBinding[@self='true']
//
// Matches that are not elements (attributes, text) are dropped.
func Select(root ir.Node, expr string) (Seq[ir.Node], error) {
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, &errors.ValidationError{
			Field:   "xpath",
			Value:   expr,
			Message: fmt.Sprintf("invalid expression: %v", err),
		}
	}

	doc, index := mirror(root)
	matches := xmlquery.QuerySelectorAll(doc, compiled)

	return func(yield func(ir.Node) bool) {
		for _, m := range matches {
			n, ok := index[m]
			if !ok {
				continue
			}
			if !yield(n) {
				return
			}
		}
	}, nil
}

// mirror builds an XML document shaped like the IR tree and an index from
// each element back to the node it stands for.
func mirror(root ir.Node) (*xmlquery.Node, map[*xmlquery.Node]ir.Node) {
	doc := &xmlquery.Node{Type: xmlquery.DocumentNode}
	index := make(map[*xmlquery.Node]ir.Node)
	if root == nil {
		return doc, index
	}

	var build func(parent *xmlquery.Node, n ir.Node)
	build = func(parent *xmlquery.Node, n ir.Node) {
		el := &xmlquery.Node{Type: xmlquery.ElementNode, Data: n.Kind().String()}
		for _, a := range ir.Attributes(n) {
			xmlquery.AddAttr(el, a.Name, a.Value)
		}
		xmlquery.AddChild(parent, el)
		index[el] = n
		for _, c := range n.Children() {
			build(el, c)
		}
	}
	build(doc, root)
	return doc, index
}
