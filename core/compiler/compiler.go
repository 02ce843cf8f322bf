// Package compiler is the front end that turns surface source text into IR
// trees for the oracles. It is deliberately small: type definitions with
// documented method bindings, prefix application, literals and case
// expressions.
//
// A Compiler is expensive to open (the grammar is built once) and should be
// shared by a group of checks:
//
//	err := compiler.With(func(c *compiler.Compiler) error {
//	    vec, err := c.Compile(vectorSource, "Vector")
//	    ...
//	})
package compiler

import (
	stderrors "errors"
	"sync"
	"time"

	"github.com/alecthomas/participle/v2"
	"github.com/google/uuid"

	"github.com/FocuswithJustin/irsnap/core/cas"
	"github.com/FocuswithJustin/irsnap/core/errors"
	"github.com/FocuswithJustin/irsnap/core/ir"
	"github.com/FocuswithJustin/irsnap/internal/logging"
)

type state int

const (
	stateNew state = iota
	stateOpen
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateNew:
		return "not opened"
	case stateOpen:
		return "open"
	default:
		return "closed"
	}
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithIDGenerator replaces the identifier source used to stamp nodes.
func WithIDGenerator(gen func() uuid.UUID) Option {
	return func(c *Compiler) {
		c.newID = gen
	}
}

// WithoutIDs leaves every node without an identifier.
func WithoutIDs() Option {
	return func(c *Compiler) {
		c.newID = nil
	}
}

// Compiler compiles source text to IR. The zero value is not usable; call New.
type Compiler struct {
	mu     sync.Mutex
	state  state
	parser *participle.Parser[sourceFile]
	newID  func() uuid.UUID
}

// New creates a compiler in the not-opened state.
func New(opts ...Option) *Compiler {
	c := &Compiler{newID: uuid.New}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open builds the grammar. A compiler can be opened once.
func (c *Compiler) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != stateNew {
		return errors.NewState("compiler", "open", c.state.String())
	}

	start := time.Now()
	p, err := buildParser()
	if err != nil {
		return errors.Wrap(err, "failed to build grammar")
	}
	c.parser = p
	c.state = stateOpen
	logging.CompilerLifecycle("open", time.Since(start))
	return nil
}

// Close releases the grammar. Closing a closed compiler is a no-op; closing
// one that was never opened is an error.
func (c *Compiler) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateNew:
		return errors.NewState("compiler", "close", c.state.String())
	case stateClosed:
		return nil
	}
	c.parser = nil
	c.state = stateClosed
	logging.CompilerLifecycle("close", 0)
	return nil
}

// Compile parses source and lowers it to a module named name. Syntax the
// grammar rejects is a *errors.ParseError; constructs that parse but cannot
// be lowered become ir.SyntaxError nodes inside the returned tree.
func (c *Compiler) Compile(source, name string) (*ir.Module, error) {
	c.mu.Lock()
	p, st := c.parser, c.state
	c.mu.Unlock()

	if st != stateOpen {
		return nil, errors.NewState("compiler", "compile", st.String())
	}

	parsed, err := p.ParseString(name, source)
	if err != nil {
		return nil, toParseError(name, err)
	}

	l := &lowerer{source: source, newID: c.newID}
	return l.module(name, parsed), nil
}

// With opens a compiler, passes it to fn and closes it on every exit path.
// A close failure is joined with fn's error.
func With(fn func(*Compiler) error, opts ...Option) (err error) {
	c := New(opts...)
	if err := c.Open(); err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	return fn(c)
}

// SyntheticName derives a stable module name from source text.
func SyntheticName(source string) string {
	return "src-" + cas.SumString(source).Short()
}

func toParseError(name string, err error) *errors.ParseError {
	perr := &errors.ParseError{
		Format:  "source",
		Path:    name,
		Message: err.Error(),
		Err:     err,
	}
	var pe participle.Error
	if stderrors.As(err, &pe) {
		pos := pe.Position()
		perr.Line = pos.Line
		perr.Column = pos.Column
		perr.Message = pe.Message()
	}
	return perr
}
