// Package lexer tokenizes Roc source text: byte-offset scanning with
// one-rune lookahead, dispatching on the current rune.
package lexer

import (
	"strconv"
	"unicode/utf8"

	"github.com/lukewilliamboswell/roc-sub001/internal/diagnostics"
	"github.com/lukewilliamboswell/roc-sub001/internal/region"
	"github.com/lukewilliamboswell/roc-sub001/internal/token"
)

// Lexer scans a single source text into tokens on demand.
type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           rune
	errs         diagnostics.Bag
}

// New returns a Lexer positioned at the start of input.
func New(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
		l.readChar()
	}
}

func isLetter(ch rune) bool {
	return ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func isDigit(ch rune) bool { return '0' <= ch && ch <= '9' }

// two builds a two-rune operator token if the peek matches, else a one-rune
// token of kind1.
func (l *Lexer) two(kind1 token.Type, second rune, kind2 token.Type) token.Token {
	start := l.position
	if l.peekChar() == second {
		l.readChar()
		l.readChar()
		return token.Token{Type: kind2, Lexeme: l.input[start:l.position], Region: region.Region{Start: start, End: l.position}}
	}
	l.readChar()
	return token.Token{Type: kind1, Lexeme: l.input[start:l.position], Region: region.Region{Start: start, End: l.position}}
}

func (l *Lexer) one(kind token.Type) token.Token {
	start := l.position
	l.readChar()
	return token.Token{Type: kind, Lexeme: l.input[start:l.position], Region: region.Region{Start: start, End: l.position}}
}

// NextToken scans and returns the next token, advancing the lexer.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()

	start := l.position
	switch l.ch {
	case 0:
		return token.Token{Type: token.EOF, Region: region.Region{Start: start, End: start}}
	case '+':
		return l.one(token.Plus)
	case '-':
		if l.peekChar() == '>' {
			return l.two(token.Minus, '>', token.Arrow)
		}
		return l.one(token.Minus)
	case '*':
		return l.one(token.Star)
	case '/':
		return l.one(token.Slash)
	case '%':
		return l.one(token.Percent)
	case '=':
		if l.peekChar() == '=' {
			return l.two(token.Assign, '=', token.Eq)
		}
		if l.peekChar() == '>' {
			return l.two(token.Assign, '>', token.FatArrow)
		}
		return l.one(token.Assign)
	case '!':
		if l.peekChar() == '=' {
			return l.two(token.Bang, '=', token.NotEq)
		}
		return l.one(token.Bang)
	case '<':
		if l.peekChar() == '=' {
			return l.two(token.Lt, '=', token.Lte)
		}
		return l.one(token.Lt)
	case '>':
		if l.peekChar() == '=' {
			return l.two(token.Gt, '=', token.Gte)
		}
		return l.one(token.Gt)
	case '&':
		return l.two(token.ILLEGAL, '&', token.And)
	case '|':
		if l.peekChar() == '|' {
			return l.two(token.Pipe, '|', token.Or)
		}
		return l.one(token.Pipe)
	case ',':
		return l.one(token.Comma)
	case ':':
		return l.one(token.Colon)
	case '.':
		return l.one(token.Dot)
	case '(':
		return l.one(token.LParen)
	case ')':
		return l.one(token.RParen)
	case '{':
		return l.one(token.LBrace)
	case '}':
		return l.one(token.RBrace)
	case '[':
		return l.one(token.LBracket)
	case ']':
		return l.one(token.RBracket)
	case ';':
		return l.one(token.Semicolon)
	case '"':
		return l.readString()
	}

	if isDigit(l.ch) {
		return l.readNumber()
	}
	if isLetter(l.ch) {
		return l.readIdent()
	}

	ch := l.ch
	l.readChar()
	l.errs.Add(diagnostics.New(diagnostics.PhaseTokenize, diagnostics.ErrTokenizeIllegalChar,
		region.Region{Start: start, End: l.position}, string(ch)))
	return token.Token{Type: token.ILLEGAL, Lexeme: string(ch), Region: region.Region{Start: start, End: l.position}}
}

func (l *Lexer) readIdent() token.Token {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	lexeme := l.input[start:l.position]
	return token.Token{Type: token.LookupIdent(lexeme), Lexeme: lexeme, Region: region.Region{Start: start, End: l.position}}
}

func (l *Lexer) readNumber() token.Token {
	start := l.position
	isFrac := false
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFrac = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	lexeme := l.input[start:l.position]
	typ := token.Int
	if isFrac {
		typ = token.Frac
	}
	return token.Token{Type: typ, Lexeme: lexeme, Region: region.Region{Start: start, End: l.position}}
}

func (l *Lexer) readString() token.Token {
	start := l.position
	l.readChar() // consume opening quote
	contentStart := l.position
	for l.ch != '"' && l.ch != 0 {
		if l.ch == '\\' {
			l.readChar()
		}
		l.readChar()
	}
	content := l.input[contentStart:l.position]
	if l.ch == 0 {
		l.errs.Add(diagnostics.New(diagnostics.PhaseTokenize, diagnostics.ErrParseUnterminated,
			region.Region{Start: start, End: l.position}, "string literal"))
	} else {
		l.readChar() // consume closing quote
	}
	unescaped, _ := strconv.Unquote(`"` + content + `"`)
	return token.Token{Type: token.Str, Lexeme: unescaped, Region: region.Region{Start: start, End: l.position}}
}

// Tokenize scans the whole input and returns every token up to and
// including EOF, plus any illegal-character and unterminated-string
// diagnostics.
func Tokenize(input string) ([]token.Token, []*diagnostics.Report) {
	l := New(input)
	var toks []token.Token
	for {
		t := l.NextToken()
		toks = append(toks, t)
		if t.Type == token.EOF {
			break
		}
	}
	return toks, l.errs.All()
}
