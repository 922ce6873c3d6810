package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukewilliamboswell/roc-sub001/internal/diagnostics"
	"github.com/lukewilliamboswell/roc-sub001/internal/token"
)

func kinds(toks []token.Token) []token.Type {
	out := make([]token.Type, len(toks))
	for i, tk := range toks {
		out[i] = tk.Type
	}
	return out
}

func TestTokenizeExpression(t *testing.T) {
	toks, errs := Tokenize("x + 42 * (y - 1)")
	require.Empty(t, errs)
	assert.Equal(t, []token.Type{
		token.IdentLower, token.Plus, token.Int, token.Star,
		token.LParen, token.IdentLower, token.Minus, token.Int, token.RParen,
		token.EOF,
	}, kinds(toks))
}

func TestTokenizeOperators(t *testing.T) {
	toks, errs := Tokenize("== != <= >= && || -> => = < > ! | %")
	require.Empty(t, errs)
	assert.Equal(t, []token.Type{
		token.Eq, token.NotEq, token.Lte, token.Gte, token.And, token.Or,
		token.Arrow, token.FatArrow, token.Assign, token.Lt, token.Gt,
		token.Bang, token.Pipe, token.Percent, token.EOF,
	}, kinds(toks))
}

func TestTokenizeKeywordsAndIdents(t *testing.T) {
	toks, errs := Tokenize("if then else match true false Some lower _")
	require.Empty(t, errs)
	assert.Equal(t, []token.Type{
		token.KwIf, token.KwThen, token.KwElse, token.KwMatch,
		token.KwTrue, token.KwFalse, token.IdentUpper, token.IdentLower,
		token.IdentLower, token.EOF,
	}, kinds(toks))
}

func TestTokenizeNumbers(t *testing.T) {
	toks, errs := Tokenize("1 23 4.5 6.")
	require.Empty(t, errs)
	assert.Equal(t, []token.Type{
		token.Int, token.Int, token.Frac, token.Int, token.Dot, token.EOF,
	}, kinds(toks))
	assert.Equal(t, "4.5", toks[2].Lexeme)
}

func TestTokenizeString(t *testing.T) {
	toks, errs := Tokenize(`"hello world"`)
	require.Empty(t, errs)
	require.Equal(t, token.Str, toks[0].Type)
	assert.Equal(t, "hello world", toks[0].Lexeme)
	assert.Equal(t, 0, toks[0].Region.Start)
	assert.Equal(t, 13, toks[0].Region.End)
}

func TestUnterminatedString(t *testing.T) {
	_, errs := Tokenize(`"oops`)
	require.Len(t, errs, 1)
	assert.Equal(t, diagnostics.ErrParseUnterminated, errs[0].Code)
}

func TestIllegalCharacter(t *testing.T) {
	toks, errs := Tokenize("1 @ 2")
	require.Len(t, errs, 1)
	assert.Equal(t, diagnostics.ErrTokenizeIllegalChar, errs[0].Code)
	assert.Equal(t, token.ILLEGAL, toks[1].Type)
}

func TestRegionsAreByteOffsets(t *testing.T) {
	toks, errs := Tokenize("ab + cd")
	require.Empty(t, errs)
	assert.Equal(t, 0, toks[0].Region.Start)
	assert.Equal(t, 2, toks[0].Region.End)
	assert.Equal(t, 3, toks[1].Region.Start)
	assert.Equal(t, 5, toks[2].Region.Start)
	assert.Equal(t, 7, toks[2].Region.End)
}
