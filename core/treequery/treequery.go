// Package treequery provides lazy, composable queries over IR trees.
//
// A Seq is a push-style sequence built on iter.Seq. Nothing is visited until
// the sequence is ranged over, and stopping early (Head, or a break in a range
// loop) stops the underlying walk. Sequences are pure functions of an
// immutable tree, so ranging twice walks twice and yields the same elements.
//
//	def, err := treequery.Preorder(root).
//	    Filter(treequery.TypeNamed("Vector")).
//	    Head()
package treequery

import (
	"iter"

	"github.com/FocuswithJustin/irsnap/core/errors"
	"github.com/FocuswithJustin/irsnap/core/ir"
)

// Seq is a lazy, ordered sequence.
type Seq[T any] iter.Seq[T]

// Of returns a sequence over the given values.
func Of[T any](xs ...T) Seq[T] {
	return func(yield func(T) bool) {
		for _, x := range xs {
			if !yield(x) {
				return
			}
		}
	}
}

// Preorder visits root, then each child subtree left to right in declaration
// order. A nil root yields nothing.
func Preorder(root ir.Node) Seq[ir.Node] {
	return func(yield func(ir.Node) bool) {
		if root == nil {
			return
		}
		walk(root, yield)
	}
}

func walk(n ir.Node, yield func(ir.Node) bool) bool {
	if !yield(n) {
		return false
	}
	for _, c := range n.Children() {
		if !walk(c, yield) {
			return false
		}
	}
	return true
}

// Filter keeps the elements satisfying pred, in order.
func (s Seq[T]) Filter(pred func(T) bool) Seq[T] {
	return func(yield func(T) bool) {
		for x := range s {
			if pred(x) && !yield(x) {
				return
			}
		}
	}
}

// Head returns the first element, or a *errors.NotFoundError when the
// sequence is empty.
func (s Seq[T]) Head() (T, error) {
	for x := range s {
		return x, nil
	}
	var zero T
	return zero, errors.NewNotFound("element", "")
}

// ForEach calls visit on every element in order.
func (s Seq[T]) ForEach(visit func(T)) {
	for x := range s {
		visit(x)
	}
}

// Count returns the number of elements.
func (s Seq[T]) Count() int {
	n := 0
	for range s {
		n++
	}
	return n
}

// Collect returns the elements as a slice.
func (s Seq[T]) Collect() []T {
	var out []T
	for x := range s {
		out = append(out, x)
	}
	return out
}

// Any reports whether some element satisfies pred. It stops at the first one.
func (s Seq[T]) Any(pred func(T) bool) bool {
	for x := range s {
		if pred(x) {
			return true
		}
	}
	return false
}

// Map transforms every element, preserving order and count.
func Map[T, U any](s Seq[T], fn func(T) U) Seq[U] {
	return func(yield func(U) bool) {
		for x := range s {
			if !yield(fn(x)) {
				return
			}
		}
	}
}

// Fold threads acc through the sequence in order and returns the result.
func Fold[T, A any](s Seq[T], acc A, step func(A, T) A) A {
	for x := range s {
		acc = step(acc, x)
	}
	return acc
}

// OfKind keeps the nodes whose dynamic type is T and downcasts them.
func OfKind[T ir.Node](s Seq[ir.Node]) Seq[T] {
	return func(yield func(T) bool) {
		for n := range s {
			if t, ok := ir.As[T](n); ok && !yield(t) {
				return
			}
		}
	}
}

// KindIs matches nodes of kind k.
func KindIs(k ir.Kind) func(ir.Node) bool {
	return func(n ir.Node) bool {
		return n.Kind() == k
	}
}

// TypeNamed matches the type definition named name.
func TypeNamed(name string) func(ir.Node) bool {
	return func(n ir.Node) bool {
		def, ok := ir.As[*ir.TypeDefinition](n)
		return ok && def.NodeName() == name
	}
}

// SelfReceiving matches function bindings whose first argument is the self
// receiver.
func SelfReceiving(n ir.Node) bool {
	fn, ok := ir.As[*ir.FunctionBinding](n)
	return ok && fn.SelfReceiving()
}
