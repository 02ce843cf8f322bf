package compiler

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// sourceLexer tokenizes the surface language. Newlines are significant: they
// terminate bindings. Keywords are matched before identifiers so an identifier
// can never be "type", "case", "of" or "self".
var sourceLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "DocComment", Pattern: `##[^\n]*`},
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Newline", Pattern: `\r?\n`},
	{Name: "Whitespace", Pattern: `[ \t\r]+`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Number", Pattern: `[0-9]+(\.[0-9]+)?`},
	{Name: "Keyword", Pattern: `(type|case|of|self)\b`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Arrow", Pattern: `->`},
	{Name: "Punct", Pattern: `[{}()=;]`},
})

// sourceFile is the grammar root.
//
//nolint:govet // participle grammar tags are not standard struct tags
type sourceFile struct {
	Items []*item `Newline* ( @@ Newline* )*`
}

//nolint:govet // participle grammar tags are not standard struct tags
type item struct {
	Doc  *docComment `  @@`
	Type *typeDef    `| @@`
	Bind *binding    `| @@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type docComment struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Text   string `@DocComment`
}

//nolint:govet // participle grammar tags are not standard struct tags
type typeDef struct {
	Pos     lexer.Position
	EndPos  lexer.Position
	Name    *ident    `"type" @@ Newline* "{" Newline*`
	Members []*member `( @@ Newline* )* "}"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type member struct {
	Doc  *docComment `  @@`
	Bind *binding    `| @@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type binding struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Name   *ident   `@@`
	Params []*param `@@* "="`
	Body   *expr    `@@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type param struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Self   bool   `(  @"self"`
	Name   string ` | @Ident )`
}

//nolint:govet // participle grammar tags are not standard struct tags
type ident struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Value  string `@Ident`
}

// expr is a prefix application when it has more than one term.
//
//nolint:govet // participle grammar tags are not standard struct tags
type expr struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Terms  []*term `@@+`
}

//nolint:govet // participle grammar tags are not standard struct tags
type term struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Case   *caseExpr `  @@`
	Group  *expr     `| "(" @@ ")"`
	Number *string   `| @Number`
	Text   *string   `| @String`
	Self   bool      `| @"self"`
	Name   *string   `| @Ident`
}

//nolint:govet // participle grammar tags are not standard struct tags
type caseExpr struct {
	Pos       lexer.Position
	EndPos    lexer.Position
	Scrutinee *expr     `"case" @@ "of" "{" Newline*`
	Branches  []*branch `( @@ Newline* )* "}"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type branch struct {
	Pos     lexer.Position
	EndPos  lexer.Position
	Doc     *docComment `( @@ Newline+ )?`
	Pattern *pattern    `@@ "->"`
	Body    *expr       `@@ ";"?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type pattern struct {
	Pos         lexer.Position
	EndPos      lexer.Position
	Constructor *ident   `@@`
	Fields      []*ident `@@*`
}

// buildParser constructs the participle parser. It is the expensive part of
// opening a compiler.
func buildParser() (*participle.Parser[sourceFile], error) {
	return participle.Build[sourceFile](
		participle.Lexer(sourceLexer),
		participle.Elide("Whitespace", "Comment"),
		participle.UseLookahead(2),
	)
}
