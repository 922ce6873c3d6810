// Package parser turns a token stream into the parse tree of internal/ast,
// using Pratt-style precedence climbing.
package parser

import (
	"fmt"
	"strconv"

	"github.com/lukewilliamboswell/roc-sub001/internal/ast"
	"github.com/lukewilliamboswell/roc-sub001/internal/diagnostics"
	"github.com/lukewilliamboswell/roc-sub001/internal/lexer"
	"github.com/lukewilliamboswell/roc-sub001/internal/region"
	"github.com/lukewilliamboswell/roc-sub001/internal/token"
)

// precedence levels, lowest to highest.
const (
	precLowest = iota
	precOr
	precAnd
	precEquality
	precCompare
	precSum
	precProduct
	precUnary
	precCall
)

var precedences = map[token.Type]int{
	token.Or:      precOr,
	token.And:     precAnd,
	token.Eq:      precEquality,
	token.NotEq:   precEquality,
	token.Lt:      precCompare,
	token.Gt:      precCompare,
	token.Lte:     precCompare,
	token.Gte:     precCompare,
	token.Plus:    precSum,
	token.Minus:   precSum,
	token.Star:    precProduct,
	token.Slash:   precProduct,
	token.Percent: precProduct,
	token.LParen:  precCall,
}

var binOps = map[token.Type]ast.BinOpKind{
	token.Plus:    ast.OpAdd,
	token.Minus:   ast.OpSub,
	token.Star:    ast.OpMul,
	token.Slash:   ast.OpDiv,
	token.Percent: ast.OpMod,
	token.Eq:      ast.OpEq,
	token.NotEq:   ast.OpNeq,
	token.Lt:      ast.OpLt,
	token.Gt:      ast.OpGt,
	token.Lte:     ast.OpLte,
	token.Gte:     ast.OpGte,
	token.And:     ast.OpAnd,
	token.Or:      ast.OpOr,
}

// Parser is a Pratt (precedence-climbing) recursive-descent parser over a
// pre-tokenized input.
type Parser struct {
	toks []token.Token
	pos  int
	errs diagnostics.Bag
}

// New tokenizes src and returns a Parser ready to parse it.
func New(src string) *Parser {
	toks, lexErrs := lexer.Tokenize(src)
	p := &Parser{toks: toks}
	for _, e := range lexErrs {
		p.errs.Add(e)
	}
	return p
}

func (p *Parser) cur() token.Token { return p.toks[p.pos] }
func (p *Parser) peek() token.Token {
	if p.pos+1 < len(p.toks) {
		return p.toks[p.pos+1]
	}
	return p.toks[len(p.toks)-1]
}
func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expect(tt token.Type) token.Token {
	if p.cur().Type != tt {
		p.errorf(diagnostics.ErrParseUnexpectedTok, p.cur().Region, string(tt), string(p.cur().Type))
		return p.cur()
	}
	return p.advance()
}

func (p *Parser) errorf(code diagnostics.Code, r region.Region, args ...any) {
	p.errs.Add(diagnostics.New(diagnostics.PhaseParse, code, r, args...))
}

// Errors returns every diagnostic accumulated while parsing.
func (p *Parser) Errors() []*diagnostics.Report { return p.errs.All() }

// ParseExpr parses src as a single expression.
func ParseExpr(src string) (ast.Expr, []*diagnostics.Report) {
	p := New(src)
	e := p.parseExpr(precLowest)
	return e, p.Errors()
}

// ParseProgram parses src as a top-level sequence of `let`-bindings
// followed by a final tail expression — the shape the REPL driver's
// composite source (every Past Definition, then the line just entered)
// takes. It is parseBlock's body without the surrounding braces, since a
// top-level program has no delimiter of its own; EOF plays the role a
// block's closing `}` plays.
func ParseProgram(src string) (*ast.Block, []*diagnostics.Report) {
	p := New(src)
	blk := p.parseProgramBody()
	return blk, p.Errors()
}

func (p *Parser) parseProgramBody() *ast.Block {
	blk := &ast.Block{Reg: p.cur().Region}
	for p.cur().Type != token.EOF {
		if p.isLetStart() {
			pat := p.parsePattern()
			p.expect(token.Assign)
			val := p.parseExpr(precLowest)
			blk.Statements = append(blk.Statements, ast.Stmt{IsLet: true, Pattern: pat, Expr: val})
		} else {
			e := p.parseExpr(precLowest)
			if p.cur().Type == token.EOF {
				blk.Tail = e
			} else {
				blk.Statements = append(blk.Statements, ast.Stmt{Expr: e})
			}
		}
		for p.cur().Type == token.Semicolon {
			p.advance()
		}
	}
	if blk.Tail == nil && len(blk.Statements) > 0 {
		last := blk.Statements[len(blk.Statements)-1]
		if !last.IsLet {
			blk.Tail = last.Expr
			blk.Statements = blk.Statements[:len(blk.Statements)-1]
		}
	}
	return blk
}

func (p *Parser) parseExpr(prec int) ast.Expr {
	left := p.parsePrefix()
	for p.cur().Type != token.EOF && prec < precedenceOf(p.cur().Type) {
		switch p.cur().Type {
		case token.LParen:
			left = p.parseApply(left)
		default:
			left = p.parseInfix(left)
		}
	}
	return left
}

func precedenceOf(tt token.Type) int {
	if pr, ok := precedences[tt]; ok {
		return pr
	}
	return precLowest
}

func (p *Parser) parsePrefix() ast.Expr {
	t := p.cur()
	switch t.Type {
	case token.Int:
		p.advance()
		v, err := strconv.ParseInt(t.Lexeme, 10, 64)
		if err != nil {
			p.errorf(diagnostics.ErrParseUnexpectedTok, t.Region, "integer literal", t.Lexeme)
		}
		return &ast.Int{Reg: t.Region, Value: v}
	case token.Frac:
		p.advance()
		v, _ := strconv.ParseFloat(t.Lexeme, 64)
		return &ast.Frac{Reg: t.Region, Value: v}
	case token.Str:
		p.advance()
		return &ast.Str{Reg: t.Region, Value: t.Lexeme}
	case token.KwTrue:
		p.advance()
		return &ast.Bool{Reg: t.Region, Value: true}
	case token.KwFalse:
		p.advance()
		return &ast.Bool{Reg: t.Region, Value: false}
	case token.IdentLower:
		p.advance()
		return &ast.Ident{Reg: t.Region, Name: t.Lexeme}
	case token.IdentUpper:
		return p.parseTag()
	case token.Minus:
		p.advance()
		operand := p.parseExpr(precUnary)
		return &ast.Unary{Reg: t.Region.Span(operand.Region()), Op: ast.OpNeg, Operand: operand}
	case token.Bang:
		p.advance()
		operand := p.parseExpr(precUnary)
		return &ast.Unary{Reg: t.Region.Span(operand.Region()), Op: ast.OpNot, Operand: operand}
	case token.LParen:
		return p.parseParenOrTuple()
	case token.LBracket:
		return p.parseList()
	case token.LBrace:
		return p.parseBraces()
	case token.Pipe:
		return p.parseLambda()
	case token.KwIf:
		return p.parseIf()
	case token.KwMatch:
		return p.parseMatch()
	default:
		p.errorf(diagnostics.ErrParseUnexpectedTok, t.Region, "expression", string(t.Type))
		p.advance()
		return &ast.Malformed{Reg: t.Region, Message: fmt.Sprintf("unexpected token %s", t.Type)}
	}
}

func (p *Parser) parseTag() ast.Expr {
	t := p.advance()
	tag := &ast.Tag{Reg: t.Region, Name: t.Lexeme}
	if p.cur().Type == token.LParen {
		p.advance()
		for p.cur().Type != token.RParen && p.cur().Type != token.EOF {
			tag.Payload = append(tag.Payload, p.parseExpr(precLowest))
			if p.cur().Type == token.Comma {
				p.advance()
			}
		}
		end := p.expect(token.RParen)
		tag.Reg = tag.Reg.Span(end.Region)
	}
	return tag
}

func (p *Parser) parseParenOrTuple() ast.Expr {
	start := p.advance() // consume '('
	if p.cur().Type == token.RParen {
		end := p.advance()
		return &ast.Tuple{Reg: start.Region.Span(end.Region)}
	}
	first := p.parseExpr(precLowest)
	if p.cur().Type != token.Comma {
		p.expect(token.RParen)
		return first
	}
	elements := []ast.Expr{first}
	for p.cur().Type == token.Comma {
		p.advance()
		if p.cur().Type == token.RParen {
			break
		}
		elements = append(elements, p.parseExpr(precLowest))
	}
	end := p.expect(token.RParen)
	return &ast.Tuple{Reg: start.Region.Span(end.Region), Elements: elements}
}

func (p *Parser) parseApply(callee ast.Expr) ast.Expr {
	p.advance() // consume '('
	var args []ast.Expr
	for p.cur().Type != token.RParen && p.cur().Type != token.EOF {
		args = append(args, p.parseExpr(precLowest))
		if p.cur().Type == token.Comma {
			p.advance()
		}
	}
	end := p.expect(token.RParen)
	return &ast.Apply{Reg: callee.Region().Span(end.Region), Callee: callee, Args: args}
}

func (p *Parser) parseInfix(left ast.Expr) ast.Expr {
	opTok := p.advance()
	kind, ok := binOps[opTok.Type]
	if !ok {
		p.errorf(diagnostics.ErrParseUnexpectedTok, opTok.Region, "operator", string(opTok.Type))
		return left
	}
	prec := precedenceOf(opTok.Type)
	right := p.parseExpr(prec)
	return &ast.BinOp{Reg: left.Region().Span(right.Region()), Op: kind, Lhs: left, Rhs: right}
}

func (p *Parser) parseList() ast.Expr {
	start := p.advance() // consume '['
	var elements []ast.Expr
	for p.cur().Type != token.RBracket && p.cur().Type != token.EOF {
		elements = append(elements, p.parseExpr(precLowest))
		if p.cur().Type == token.Comma {
			p.advance()
		}
	}
	end := p.expect(token.RBracket)
	return &ast.List{Reg: start.Region.Span(end.Region), Elements: elements}
}

// parseBraces disambiguates a record literal `{ name: value, ... }` from a
// block `{ stmt...; tail }` by lookahead: a record field always starts
// `IDENT_LOWER :` with no following `=`.
func (p *Parser) parseBraces() ast.Expr {
	start := p.cur()
	if p.looksLikeRecord() {
		return p.parseRecord()
	}
	return p.parseBlock(start)
}

func (p *Parser) looksLikeRecord() bool {
	if p.toks[p.pos].Type != token.LBrace {
		return false
	}
	if p.pos+1 < len(p.toks) && p.toks[p.pos+1].Type == token.RBrace {
		return false // `{}` parses as an empty block
	}
	return p.pos+2 < len(p.toks) &&
		p.toks[p.pos+1].Type == token.IdentLower &&
		p.toks[p.pos+2].Type == token.Colon
}

func (p *Parser) parseRecord() ast.Expr {
	start := p.advance() // consume '{'
	var fields []ast.RecordField
	for p.cur().Type != token.RBrace && p.cur().Type != token.EOF {
		nameTok := p.expect(token.IdentLower)
		p.expect(token.Colon)
		val := p.parseExpr(precLowest)
		fields = append(fields, ast.RecordField{Name: nameTok.Lexeme, Value: val})
		if p.cur().Type == token.Comma {
			p.advance()
		}
	}
	end := p.expect(token.RBrace)
	return &ast.Record{Reg: start.Region.Span(end.Region), Fields: fields}
}

func (p *Parser) parseBlock(start token.Token) ast.Expr {
	p.advance() // consume '{'
	blk := &ast.Block{Reg: start.Region}
	for p.cur().Type != token.RBrace && p.cur().Type != token.EOF {
		if p.isLetStart() {
			pat := p.parsePattern()
			p.expect(token.Assign)
			val := p.parseExpr(precLowest)
			blk.Statements = append(blk.Statements, ast.Stmt{IsLet: true, Pattern: pat, Expr: val})
		} else {
			e := p.parseExpr(precLowest)
			if p.cur().Type == token.Semicolon || p.peekEndsStatement() {
				blk.Statements = append(blk.Statements, ast.Stmt{Expr: e})
			} else {
				blk.Tail = e
			}
		}
		for p.cur().Type == token.Semicolon {
			p.advance()
		}
	}
	end := p.expect(token.RBrace)
	blk.Reg = blk.Reg.Span(end.Region)
	if blk.Tail == nil && len(blk.Statements) > 0 {
		last := blk.Statements[len(blk.Statements)-1]
		if !last.IsLet {
			blk.Tail = last.Expr
			blk.Statements = blk.Statements[:len(blk.Statements)-1]
		}
	}
	return blk
}

// isLetStart reports whether the parser sits at `pattern =` (not `==`).
// Identifier lets need only one token of lookahead; tuple and list
// destructuring lets ((a, b) = …, [x, ..r] = …) take a speculative pattern
// parse that is rolled back when no `=` follows. A `{` never opens a let:
// it is always a record literal or a block.
func (p *Parser) isLetStart() bool {
	switch p.cur().Type {
	case token.IdentLower:
		return p.peek().Type == token.Assign
	case token.LParen, token.LBracket:
		return p.startsPatternAssign()
	}
	return false
}

func (p *Parser) startsPatternAssign() bool {
	savedPos := p.pos
	savedErrs := p.errs.Len()
	p.parsePattern()
	ok := p.cur().Type == token.Assign
	p.pos = savedPos
	p.errs.Truncate(savedErrs)
	return ok
}

func (p *Parser) peekEndsStatement() bool {
	return p.cur().Type == token.RBrace
}

func (p *Parser) parseLambda() ast.Expr {
	start := p.advance() // consume opening '|'
	var params []ast.Pattern
	for p.cur().Type != token.Pipe && p.cur().Type != token.EOF {
		params = append(params, p.parsePrimaryPattern())
		if p.cur().Type == token.Comma {
			p.advance()
		}
	}
	p.expect(token.Pipe)
	body := p.parseExpr(precLowest)
	return &ast.Lambda{Reg: start.Region.Span(body.Region()), Params: params, Body: body}
}

func (p *Parser) parseIf() ast.Expr {
	start := p.advance() // 'if'
	cond := p.parseExpr(precLowest)
	p.expect(token.KwThen)
	then := p.parseExpr(precLowest)
	p.expect(token.KwElse)
	els := p.parseExpr(precLowest)
	return &ast.If{Reg: start.Region.Span(els.Region()), Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseMatch() ast.Expr {
	start := p.advance() // 'match'
	scrutinee := p.parseExpr(precLowest)
	p.expect(token.LBrace)
	m := &ast.Match{Reg: start.Region, Scrutine: scrutinee}
	for p.cur().Type != token.RBrace && p.cur().Type != token.EOF {
		pat := p.parsePattern()
		p.expect(token.Arrow)
		body := p.parseExpr(precLowest)
		m.Branches = append(m.Branches, ast.MatchBranch{Pattern: pat, Body: body})
		if p.cur().Type == token.Comma {
			p.advance()
		}
	}
	end := p.expect(token.RBrace)
	m.Reg = m.Reg.Span(end.Region)
	return m
}

// ---- patterns ----

func (p *Parser) parsePattern() ast.Pattern {
	base := p.parsePrimaryPattern()
	for p.cur().Type == token.Pipe {
		p.advance()
		alt := p.parsePrimaryPattern()
		if alts, ok := base.(*ast.PatternAlternatives); ok {
			alts.Alternatives = append(alts.Alternatives, alt)
		} else {
			base = &ast.PatternAlternatives{Reg: base.Region().Span(alt.Region()), Alternatives: []ast.Pattern{base, alt}}
		}
	}
	return base
}

func (p *Parser) parsePrimaryPattern() ast.Pattern {
	t := p.cur()
	switch t.Type {
	case token.IdentLower:
		p.advance()
		if t.Lexeme == "_" {
			return &ast.PatternUnderscore{Reg: t.Region}
		}
		return &ast.Ident{Reg: t.Region, Name: t.Lexeme}
	case token.IdentUpper:
		p.advance()
		pat := &ast.PatternTag{Reg: t.Region, Name: t.Lexeme}
		if p.cur().Type == token.LParen {
			p.advance()
			for p.cur().Type != token.RParen && p.cur().Type != token.EOF {
				pat.Args = append(pat.Args, p.parsePattern())
				if p.cur().Type == token.Comma {
					p.advance()
				}
			}
			end := p.expect(token.RParen)
			pat.Reg = pat.Reg.Span(end.Region)
		}
		return pat
	case token.Int:
		p.advance()
		v, _ := strconv.ParseInt(t.Lexeme, 10, 64)
		return &ast.PatternIntLiteral{Reg: t.Region, Value: v}
	case token.LParen:
		p.advance()
		var elems []ast.Pattern
		for p.cur().Type != token.RParen && p.cur().Type != token.EOF {
			elems = append(elems, p.parsePattern())
			if p.cur().Type == token.Comma {
				p.advance()
			}
		}
		end := p.expect(token.RParen)
		if len(elems) == 1 {
			return elems[0]
		}
		return &ast.PatternTuple{Reg: t.Region.Span(end.Region), Elements: elems}
	case token.LBracket:
		p.advance()
		pat := &ast.PatternList{Reg: t.Region}
		for p.cur().Type != token.RBracket && p.cur().Type != token.EOF {
			if p.cur().Type == token.Dot && p.peek().Type == token.Dot {
				p.advance()
				p.advance()
				restTok := p.expect(token.IdentLower)
				pat.Rest = &ast.Ident{Reg: restTok.Region, Name: restTok.Lexeme}
				break
			}
			pat.Elements = append(pat.Elements, p.parsePattern())
			if p.cur().Type == token.Comma {
				p.advance()
			}
		}
		end := p.expect(token.RBracket)
		pat.Reg = pat.Reg.Span(end.Region)
		return pat
	case token.LBrace:
		p.advance()
		pat := &ast.PatternRecord{Reg: t.Region}
		for p.cur().Type != token.RBrace && p.cur().Type != token.EOF {
			if p.cur().Type != token.IdentLower {
				p.errorf(diagnostics.ErrParseUnexpectedTok, p.cur().Region, "record field name", string(p.cur().Type))
				break
			}
			nameTok := p.expect(token.IdentLower)
			field := ast.PatternRecordField{Name: nameTok.Lexeme, Pattern: &ast.Ident{Reg: nameTok.Region, Name: nameTok.Lexeme}}
			if p.cur().Type == token.Colon {
				p.advance()
				field.Pattern = p.parsePattern()
			}
			pat.Fields = append(pat.Fields, field)
			if p.cur().Type == token.Comma {
				p.advance()
			}
		}
		end := p.expect(token.RBrace)
		pat.Reg = pat.Reg.Span(end.Region)
		return pat
	default:
		p.errorf(diagnostics.ErrParseUnexpectedTok, t.Region, "pattern", string(t.Type))
		p.advance()
		return &ast.PatternUnderscore{Reg: t.Region}
	}
}
