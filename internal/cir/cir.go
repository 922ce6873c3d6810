// Package cir implements the Canonical Intermediate Representation: CIR is
// stored in an arena-with-indices layout. Expressions live in a flat
// vector, patterns in another, and every cross-reference between nodes is
// a 32-bit index, never a pointer, so references stay valid under slice
// growth and no cyclic ownership can form.
package cir

import (
	"fmt"
	"strings"

	"github.com/lukewilliamboswell/roc-sub001/internal/ast"
	"github.com/lukewilliamboswell/roc-sub001/internal/diagnostics"
	"github.com/lukewilliamboswell/roc-sub001/internal/ident"
)

// ExprIdx and PatternIdx are arena-relative handles; -1 means "absent".
type ExprIdx int32
type PatternIdx int32

const NoExpr ExprIdx = -1
const NoPattern PatternIdx = -1

// CaptureVar records one free variable a lambda closes over: the identifier
// captured, the pattern in CIR that introduced it, and the scope depth it
// was bound at (used to validate that a capture's bound pattern was
// introduced strictly above the lambda's own function-context depth).
type CaptureVar struct {
	Name               ident.Identifier
	BoundPattern       PatternIdx
	OriginalScopeDepth uint32
}

// Expr is the tagged-variant interface every CIR expression node
// implements. Consumers switch on the concrete Go type rather than going
// through a visitor: CIR is read-only after canonicalization, so there is
// no need for the ast package's Accept/Visitor indirection.
type Expr interface {
	isExpr()
}

type EInt struct{ Value int64 }
type EFrac struct{ Value float64 }
type EStr struct{ Segments []string }
type EBool struct{ Value bool }

// ELookupLocal refers to a previously bound pattern by its CIR index.
type ELookupLocal struct{ Pattern PatternIdx }

// ELookupExternal refers to a module-level declaration outside this arena.
type ELookupExternal struct{ DeclName string }

type ELambda struct {
	Params   []PatternIdx
	Body     ExprIdx
	Captures []CaptureVar
}

type ECall struct {
	Callee ExprIdx
	Args   []ExprIdx
}

type EBinOp struct {
	Op       ast.BinOpKind
	Lhs, Rhs ExprIdx
}

type EUnary struct {
	Op      ast.UnaryOpKind
	Operand ExprIdx
}

type EIf struct{ Cond, Then, Else ExprIdx }

type Stmt struct {
	IsLet   bool
	Pattern PatternIdx // valid iff IsLet
	Expr    ExprIdx
}

type EBlock struct {
	Statements []Stmt
	Tail       ExprIdx
}

type MatchBranch struct {
	Pattern PatternIdx
	Body    ExprIdx
}

type EMatch struct {
	Scrutinee ExprIdx
	Branches  []MatchBranch
}

type RecordField struct {
	Name  string
	Value ExprIdx
}

type ERecord struct{ Fields []RecordField }
type ETuple struct{ Elements []ExprIdx }

// EList is a list literal. Kept distinct from ETuple even though both are
// "ordered elements" nodes: a list's solved type (List(T)) always drives a
// heap-backed pointer+length+capacity layout, while a tuple's solved type
// drives an inline fixed-offset layout — collapsing them into one CIR shape
// would force the layout cache to special-case list-typed tuples.
type EList struct{ Elements []ExprIdx }

type ETag struct {
	Name    string
	Payload []ExprIdx
}

type EMalformed struct{ Diagnostic *diagnostics.Report }

func (EInt) isExpr()            {}
func (EFrac) isExpr()           {}
func (EStr) isExpr()            {}
func (EBool) isExpr()           {}
func (ELookupLocal) isExpr()    {}
func (ELookupExternal) isExpr() {}
func (ELambda) isExpr()         {}
func (ECall) isExpr()           {}
func (EBinOp) isExpr()          {}
func (EUnary) isExpr()          {}
func (EIf) isExpr()             {}
func (EBlock) isExpr()          {}
func (EMatch) isExpr()          {}
func (ERecord) isExpr()         {}
func (ETuple) isExpr()          {}
func (EList) isExpr()           {}
func (ETag) isExpr()            {}
func (EMalformed) isExpr()      {}

// Pattern is the tagged-variant interface for CIR patterns. A pattern's
// index in the arena is its identity — e_lookup_local refers to it by that
// index.
type Pattern interface {
	isPattern()
}

type PIdent struct{ Name ident.Identifier }
type PIntLiteral struct{ Value int64 }
type PTag struct {
	Name string
	Args []PatternIdx
}
type PRecordField struct {
	Name    string
	Pattern PatternIdx
}
type PRecord struct{ Fields []PRecordField }
type PTuple struct{ Elements []PatternIdx }
type PList struct {
	Elements []PatternIdx
	Rest     *PatternIdx
}
type PUnderscore struct{}
type PAs struct {
	Inner PatternIdx
	Name  ident.Identifier
}
type PAlternatives struct{ Alternatives []PatternIdx }

func (PIdent) isPattern()        {}
func (PIntLiteral) isPattern()   {}
func (PTag) isPattern()          {}
func (PRecord) isPattern()       {}
func (PTuple) isPattern()        {}
func (PList) isPattern()         {}
func (PUnderscore) isPattern()   {}
func (PAs) isPattern()           {}
func (PAlternatives) isPattern() {}

// Arena holds the flat expression and pattern vectors for one module. It is
// created during canonicalization, read-only during interpretation, and
// dropped with the module.
type Arena struct {
	Exprs    []Expr
	Patterns []Pattern
	Idents   *ident.Table
}

// NewArena returns an empty arena backed by the given identifier table.
func NewArena(idents *ident.Table) *Arena {
	return &Arena{Idents: idents}
}

func (a *Arena) AddExpr(e Expr) ExprIdx {
	a.Exprs = append(a.Exprs, e)
	return ExprIdx(len(a.Exprs) - 1)
}

func (a *Arena) AddPattern(p Pattern) PatternIdx {
	a.Patterns = append(a.Patterns, p)
	return PatternIdx(len(a.Patterns) - 1)
}

func (a *Arena) Expr(i ExprIdx) Expr          { return a.Exprs[i] }
func (a *Arena) Pattern(i PatternIdx) Pattern { return a.Patterns[i] }

// SExpr renders the expression at idx (and its whole subtree) as a
// deterministic S-expression, including each lambda's captures list. Used
// by the CANONICALIZE snapshot section and by the round-trip property that
// canonicalizing the same source twice yields byte-identical CIR
// S-expressions.
func (a *Arena) SExpr(idx ExprIdx) string {
	var b strings.Builder
	a.writeExpr(&b, idx)
	return b.String()
}

func (a *Arena) writeExpr(b *strings.Builder, idx ExprIdx) {
	if idx == NoExpr {
		b.WriteString("<none>")
		return
	}
	switch e := a.Expr(idx).(type) {
	case EInt:
		fmt.Fprintf(b, "(int %d)", e.Value)
	case EFrac:
		fmt.Fprintf(b, "(frac %g)", e.Value)
	case EStr:
		fmt.Fprintf(b, "(str %q)", strings.Join(e.Segments, ""))
	case EBool:
		fmt.Fprintf(b, "(bool %t)", e.Value)
	case ELookupLocal:
		fmt.Fprintf(b, "(lookup-local %d)", e.Pattern)
	case ELookupExternal:
		fmt.Fprintf(b, "(lookup-external %s)", e.DeclName)
	case ELambda:
		b.WriteString("(lambda (params")
		for _, p := range e.Params {
			fmt.Fprintf(b, " %d", p)
		}
		b.WriteString(") (captures")
		for _, c := range e.Captures {
			fmt.Fprintf(b, " %s@%d", a.Idents.Text(c.Name), c.BoundPattern)
		}
		b.WriteString(") ")
		a.writeExpr(b, e.Body)
		b.WriteString(")")
	case ECall:
		b.WriteString("(call ")
		a.writeExpr(b, e.Callee)
		for _, arg := range e.Args {
			b.WriteString(" ")
			a.writeExpr(b, arg)
		}
		b.WriteString(")")
	case EBinOp:
		fmt.Fprintf(b, "(binop %s ", e.Op)
		a.writeExpr(b, e.Lhs)
		b.WriteString(" ")
		a.writeExpr(b, e.Rhs)
		b.WriteString(")")
	case EUnary:
		fmt.Fprintf(b, "(unary %s ", e.Op)
		a.writeExpr(b, e.Operand)
		b.WriteString(")")
	case EIf:
		b.WriteString("(if ")
		a.writeExpr(b, e.Cond)
		b.WriteString(" ")
		a.writeExpr(b, e.Then)
		b.WriteString(" ")
		a.writeExpr(b, e.Else)
		b.WriteString(")")
	case EBlock:
		b.WriteString("(block")
		for _, s := range e.Statements {
			if s.IsLet {
				fmt.Fprintf(b, " (let %d ", s.Pattern)
				a.writeExpr(b, s.Expr)
				b.WriteString(")")
			} else {
				b.WriteString(" ")
				a.writeExpr(b, s.Expr)
			}
		}
		b.WriteString(" ")
		a.writeExpr(b, e.Tail)
		b.WriteString(")")
	case EMatch:
		b.WriteString("(match ")
		a.writeExpr(b, e.Scrutinee)
		for _, br := range e.Branches {
			fmt.Fprintf(b, " (branch %d ", br.Pattern)
			a.writeExpr(b, br.Body)
			b.WriteString(")")
		}
		b.WriteString(")")
	case ERecord:
		b.WriteString("(record")
		for _, f := range e.Fields {
			fmt.Fprintf(b, " (%s ", f.Name)
			a.writeExpr(b, f.Value)
			b.WriteString(")")
		}
		b.WriteString(")")
	case ETuple:
		b.WriteString("(tuple")
		for _, el := range e.Elements {
			b.WriteString(" ")
			a.writeExpr(b, el)
		}
		b.WriteString(")")
	case EList:
		b.WriteString("(list")
		for _, el := range e.Elements {
			b.WriteString(" ")
			a.writeExpr(b, el)
		}
		b.WriteString(")")
	case ETag:
		fmt.Fprintf(b, "(tag %s", e.Name)
		for _, p := range e.Payload {
			b.WriteString(" ")
			a.writeExpr(b, p)
		}
		b.WriteString(")")
	case EMalformed:
		fmt.Fprintf(b, "(malformed %s)", e.Diagnostic.Code)
	default:
		b.WriteString("(unknown)")
	}
}
