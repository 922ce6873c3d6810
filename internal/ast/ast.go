// Package ast is the read-only parse tree produced by tokenizing and parsing
// source text, later consumed by the canonicalizer. It carries the node set
// a small expression language needs: int, frac, str, ident, tag, lambda,
// apply, binop, unary, if_then_else, match, block, record, tuple, list,
// malformed.
package ast

import "github.com/lukewilliamboswell/roc-sub001/internal/region"

// Node is the base interface every parse-tree node implements.
type Node interface {
	Region() region.Region
	Accept(v Visitor)
}

// Expr is a Node that stands for an expression.
type Expr interface {
	Node
	exprNode()
}

// Pattern is a Node appearing on the binding side of a let, lambda
// parameter, or match branch.
type Pattern interface {
	Node
	patternNode()
}

// Visitor lets a consumer dispatch on concrete node type without a type
// switch at every call site.
type Visitor interface {
	VisitInt(*Int)
	VisitFrac(*Frac)
	VisitStr(*Str)
	VisitBool(*Bool)
	VisitIdent(*Ident)
	VisitTag(*Tag)
	VisitLambda(*Lambda)
	VisitApply(*Apply)
	VisitBinOp(*BinOp)
	VisitUnary(*Unary)
	VisitIf(*If)
	VisitMatch(*Match)
	VisitBlock(*Block)
	VisitRecord(*Record)
	VisitTuple(*Tuple)
	VisitList(*List)
	VisitMalformed(*Malformed)
}

// ---- literals ----

type Int struct {
	Reg   region.Region
	Value int64
}

func (n *Int) Region() region.Region { return n.Reg }
func (n *Int) Accept(v Visitor)      { v.VisitInt(n) }
func (n *Int) exprNode()             {}

type Frac struct {
	Reg   region.Region
	Value float64
}

func (n *Frac) Region() region.Region { return n.Reg }
func (n *Frac) Accept(v Visitor)      { v.VisitFrac(n) }
func (n *Frac) exprNode()             {}

type Str struct {
	Reg   region.Region
	Value string
}

func (n *Str) Region() region.Region { return n.Reg }
func (n *Str) Accept(v Visitor)      { v.VisitStr(n) }
func (n *Str) exprNode()             {}

type Bool struct {
	Reg   region.Region
	Value bool
}

func (n *Bool) Region() region.Region { return n.Reg }
func (n *Bool) Accept(v Visitor)      { v.VisitBool(n) }
func (n *Bool) exprNode()             {}

// ---- identifiers & tags ----

type Ident struct {
	Reg  region.Region
	Name string
}

func (n *Ident) Region() region.Region { return n.Reg }
func (n *Ident) Accept(v Visitor)      { v.VisitIdent(n) }
func (n *Ident) exprNode()             {}
func (n *Ident) patternNode()          {}

// Tag is a nullary or payload-carrying tag value, e.g. `Some(x)` or `None`.
type Tag struct {
	Reg     region.Region
	Name    string
	Payload []Expr // empty for a nullary tag
}

func (n *Tag) Region() region.Region { return n.Reg }
func (n *Tag) Accept(v Visitor)      { v.VisitTag(n) }
func (n *Tag) exprNode()             {}

// ---- functions ----

type Lambda struct {
	Reg    region.Region
	Params []Pattern
	Body   Expr
}

func (n *Lambda) Region() region.Region { return n.Reg }
func (n *Lambda) Accept(v Visitor)      { v.VisitLambda(n) }
func (n *Lambda) exprNode()             {}

type Apply struct {
	Reg    region.Region
	Callee Expr
	Args   []Expr
}

func (n *Apply) Region() region.Region { return n.Reg }
func (n *Apply) Accept(v Visitor)      { v.VisitApply(n) }
func (n *Apply) exprNode()             {}

// ---- operators ----

type BinOpKind string

const (
	OpAdd BinOpKind = "+"
	OpSub BinOpKind = "-"
	OpMul BinOpKind = "*"
	OpDiv BinOpKind = "/"
	OpMod BinOpKind = "%"
	OpEq  BinOpKind = "=="
	OpNeq BinOpKind = "!="
	OpLt  BinOpKind = "<"
	OpGt  BinOpKind = ">"
	OpLte BinOpKind = "<="
	OpGte BinOpKind = ">="
	OpAnd BinOpKind = "&&"
	OpOr  BinOpKind = "||"
)

type BinOp struct {
	Reg      region.Region
	Op       BinOpKind
	Lhs, Rhs Expr
}

func (n *BinOp) Region() region.Region { return n.Reg }
func (n *BinOp) Accept(v Visitor)      { v.VisitBinOp(n) }
func (n *BinOp) exprNode()             {}

type UnaryOpKind string

const (
	OpNeg UnaryOpKind = "-"
	OpNot UnaryOpKind = "!"
)

type Unary struct {
	Reg     region.Region
	Op      UnaryOpKind
	Operand Expr
}

func (n *Unary) Region() region.Region { return n.Reg }
func (n *Unary) Accept(v Visitor)      { v.VisitUnary(n) }
func (n *Unary) exprNode()             {}

// ---- control flow ----

type If struct {
	Reg              region.Region
	Cond, Then, Else Expr
}

func (n *If) Region() region.Region { return n.Reg }
func (n *If) Accept(v Visitor)      { v.VisitIf(n) }
func (n *If) exprNode()             {}

type MatchBranch struct {
	Pattern Pattern
	Body    Expr
}

type Match struct {
	Reg      region.Region
	Scrutine Expr
	Branches []MatchBranch
}

func (n *Match) Region() region.Region { return n.Reg }
func (n *Match) Accept(v Visitor)      { v.VisitMatch(n) }
func (n *Match) exprNode()             {}

// ---- blocks ----

// Stmt is a block statement: either a `let` binding or a bare expression.
type Stmt struct {
	IsLet   bool
	Pattern Pattern // set iff IsLet
	Expr    Expr
}

type Block struct {
	Reg        region.Region
	Statements []Stmt
	Tail       Expr
}

func (n *Block) Region() region.Region { return n.Reg }
func (n *Block) Accept(v Visitor)      { v.VisitBlock(n) }
func (n *Block) exprNode()             {}

// ---- aggregates ----

type RecordField struct {
	Name  string
	Value Expr
}

type Record struct {
	Reg    region.Region
	Fields []RecordField
}

func (n *Record) Region() region.Region { return n.Reg }
func (n *Record) Accept(v Visitor)      { v.VisitRecord(n) }
func (n *Record) exprNode()             {}

type Tuple struct {
	Reg      region.Region
	Elements []Expr
}

func (n *Tuple) Region() region.Region { return n.Reg }
func (n *Tuple) Accept(v Visitor)      { v.VisitTuple(n) }
func (n *Tuple) exprNode()             {}

type List struct {
	Reg      region.Region
	Elements []Expr
}

func (n *List) Region() region.Region { return n.Reg }
func (n *List) Accept(v Visitor)      { v.VisitList(n) }
func (n *List) exprNode()             {}

// ---- malformed ----

// Malformed marks a subtree the parser could not make sense of; it carries
// the region covered so canonicalization can still attach a diagnostic.
type Malformed struct {
	Reg     region.Region
	Message string
}

func (n *Malformed) Region() region.Region { return n.Reg }
func (n *Malformed) Accept(v Visitor)      { v.VisitMalformed(n) }
func (n *Malformed) exprNode()             {}

// ---- patterns ----

type PatternIntLiteral struct {
	Reg   region.Region
	Value int64
}

func (n *PatternIntLiteral) Region() region.Region { return n.Reg }
func (n *PatternIntLiteral) Accept(v Visitor)      {}
func (n *PatternIntLiteral) patternNode()          {}

type PatternUnderscore struct {
	Reg region.Region
}

func (n *PatternUnderscore) Region() region.Region { return n.Reg }
func (n *PatternUnderscore) Accept(v Visitor)      {}
func (n *PatternUnderscore) patternNode()          {}

type PatternTag struct {
	Reg  region.Region
	Name string
	Args []Pattern
}

func (n *PatternTag) Region() region.Region { return n.Reg }
func (n *PatternTag) Accept(v Visitor)      {}
func (n *PatternTag) patternNode()          {}

type PatternTuple struct {
	Reg      region.Region
	Elements []Pattern
}

func (n *PatternTuple) Region() region.Region { return n.Reg }
func (n *PatternTuple) Accept(v Visitor)      {}
func (n *PatternTuple) patternNode()          {}

type PatternRecordField struct {
	Name    string
	Pattern Pattern
}

type PatternRecord struct {
	Reg    region.Region
	Fields []PatternRecordField
}

func (n *PatternRecord) Region() region.Region { return n.Reg }
func (n *PatternRecord) Accept(v Visitor)      {}
func (n *PatternRecord) patternNode()          {}

type PatternList struct {
	Reg      region.Region
	Elements []Pattern
	Rest     *Ident // nil unless the pattern ends in `, ..rest`
}

func (n *PatternList) Region() region.Region { return n.Reg }
func (n *PatternList) Accept(v Visitor)      {}
func (n *PatternList) patternNode()          {}

type PatternAs struct {
	Reg   region.Region
	Inner Pattern
	Name  string
}

func (n *PatternAs) Region() region.Region { return n.Reg }
func (n *PatternAs) Accept(v Visitor)      {}
func (n *PatternAs) patternNode()          {}

type PatternAlternatives struct {
	Reg          region.Region
	Alternatives []Pattern
}

func (n *PatternAlternatives) Region() region.Region { return n.Reg }
func (n *PatternAlternatives) Accept(v Visitor)      {}
func (n *PatternAlternatives) patternNode()          {}
