package filter

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Rules are tried in order at each offset, so the longer literal forms must
// come before the shorter ones they start with.
var filterLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "DateTime", Pattern: `\d{4}-\d{2}-\d{2}(?: \d{2}:\d{2}(?::\d{2})?)?`},
	{Name: "Time", Pattern: `\d{2}:\d{2}(?::\d{2})?`},
	{Name: "Float", Pattern: `[-+]?\d+\.\d+(?:[eE][-+]?\d+)?|[-+]?\d+[eE][-+]?\d+`},
	{Name: "Int", Pattern: `[-+]?\d+`},
	{Name: "String", Pattern: `"[^"]*"|'[^']*'`},
	{Name: "Operator", Pattern: `==|!=|<=|>=|<|>`},
	{Name: "Punct", Pattern: `[,&]`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var filterParser = participle.MustBuild[filterAST](
	participle.Lexer(filterLexer),
	participle.Elide("Whitespace"),
	participle.CaseInsensitive("Ident"),
	participle.UseLookahead(2),
)

type filterAST struct {
	Comparisons []*comparisonAST `@@ ( ( "AND" | "&" ) @@ )*`
}

type comparisonAST struct {
	Pos lexer.Position

	Property string      `@Ident`
	Compare  *compareRHS `( @@`
	Fuzzy    *fuzzyRHS   `| @@`
	Length   *lengthRHS  `| @@`
	Contains *listAST    `| "CONTAINS" @@`
	In       *listAST    `| "IS"? "IN" @@`
	Has      *hasRHS     `| @@ )`
}

type compareRHS struct {
	Operator string    `@Operator`
	Value    *valueAST `@@`
}

type fuzzyRHS struct {
	Keyword string    `@( "LIKE" | "ILIKE" )`
	Value   *valueAST `@@`
}

type lengthRHS struct {
	Value *valueAST `"OF"? "LENGTH" @@`
}

type hasRHS struct {
	Value *valueAST `"HAS" "KEY"? @@`
}

type listAST struct {
	Values []*valueAST `@@ ( "," @@ )*`
}

type valueAST struct {
	Pos lexer.Position

	DateTime *string `  @DateTime`
	Time     *string `| @Time`
	Float    *string `| @Float`
	Int      *string `| @Int`
	String   *string `| @String`
	Property *string `| @Ident`
}

func (v *valueAST) raw() string {
	for _, s := range []*string{v.DateTime, v.Time, v.Float, v.Int, v.String, v.Property} {
		if s != nil {
			return *s
		}
	}
	return ""
}
