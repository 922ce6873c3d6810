package ast

import (
	"fmt"
	"strings"
)

// Print renders n as a deterministic S-expression, dispatching through the
// Visitor interface rather than a type switch so the printer exercises the
// same Accept/Visit pairing every other AST consumer does. This is an
// unambiguous debug rendering, not a round-trippable source formatter.
func Print(n Node) string {
	p := &printer{}
	n.Accept(p)
	return p.b.String()
}

type printer struct {
	b strings.Builder
}

func (p *printer) node(n Node) {
	if n == nil {
		p.b.WriteString("<none>")
		return
	}
	n.Accept(p)
}

func (p *printer) VisitInt(n *Int)   { fmt.Fprintf(&p.b, "(int %d)", n.Value) }
func (p *printer) VisitFrac(n *Frac) { fmt.Fprintf(&p.b, "(frac %g)", n.Value) }
func (p *printer) VisitStr(n *Str)   { fmt.Fprintf(&p.b, "(str %q)", n.Value) }
func (p *printer) VisitBool(n *Bool) { fmt.Fprintf(&p.b, "(bool %t)", n.Value) }
func (p *printer) VisitIdent(n *Ident) { fmt.Fprintf(&p.b, "(ident %s)", n.Name) }

func (p *printer) VisitTag(n *Tag) {
	fmt.Fprintf(&p.b, "(tag %s", n.Name)
	for _, a := range n.Payload {
		p.b.WriteString(" ")
		p.node(a)
	}
	p.b.WriteString(")")
}

func (p *printer) VisitLambda(n *Lambda) {
	p.b.WriteString("(lambda (params")
	for _, param := range n.Params {
		p.b.WriteString(" ")
		p.printPattern(param)
	}
	p.b.WriteString(") ")
	p.node(n.Body)
	p.b.WriteString(")")
}

func (p *printer) VisitApply(n *Apply) {
	p.b.WriteString("(apply ")
	p.node(n.Callee)
	for _, a := range n.Args {
		p.b.WriteString(" ")
		p.node(a)
	}
	p.b.WriteString(")")
}

func (p *printer) VisitBinOp(n *BinOp) {
	fmt.Fprintf(&p.b, "(binop %s ", n.Op)
	p.node(n.Lhs)
	p.b.WriteString(" ")
	p.node(n.Rhs)
	p.b.WriteString(")")
}

func (p *printer) VisitUnary(n *Unary) {
	fmt.Fprintf(&p.b, "(unary %s ", n.Op)
	p.node(n.Operand)
	p.b.WriteString(")")
}

func (p *printer) VisitIf(n *If) {
	p.b.WriteString("(if ")
	p.node(n.Cond)
	p.b.WriteString(" ")
	p.node(n.Then)
	p.b.WriteString(" ")
	p.node(n.Else)
	p.b.WriteString(")")
}

func (p *printer) VisitMatch(n *Match) {
	p.b.WriteString("(match ")
	p.node(n.Scrutine)
	for _, br := range n.Branches {
		p.b.WriteString(" (branch ")
		p.printPattern(br.Pattern)
		p.b.WriteString(" ")
		p.node(br.Body)
		p.b.WriteString(")")
	}
	p.b.WriteString(")")
}

func (p *printer) VisitBlock(n *Block) {
	p.b.WriteString("(block")
	for _, st := range n.Statements {
		if st.IsLet {
			p.b.WriteString(" (let ")
			p.printPattern(st.Pattern)
			p.b.WriteString(" ")
			p.node(st.Expr)
			p.b.WriteString(")")
		} else {
			p.b.WriteString(" ")
			p.node(st.Expr)
		}
	}
	p.b.WriteString(" ")
	p.node(n.Tail)
	p.b.WriteString(")")
}

func (p *printer) VisitRecord(n *Record) {
	p.b.WriteString("(record")
	for _, f := range n.Fields {
		fmt.Fprintf(&p.b, " (%s ", f.Name)
		p.node(f.Value)
		p.b.WriteString(")")
	}
	p.b.WriteString(")")
}

func (p *printer) VisitTuple(n *Tuple) {
	p.b.WriteString("(tuple")
	for _, e := range n.Elements {
		p.b.WriteString(" ")
		p.node(e)
	}
	p.b.WriteString(")")
}

func (p *printer) VisitList(n *List) {
	p.b.WriteString("(list")
	for _, e := range n.Elements {
		p.b.WriteString(" ")
		p.node(e)
	}
	p.b.WriteString(")")
}

func (p *printer) VisitMalformed(n *Malformed) {
	fmt.Fprintf(&p.b, "(malformed %q)", n.Message)
}

// printPattern renders a Pattern node. Pattern nodes implement Accept as a
// no-op (they carry no Visitor methods of their own — see ast.go), so this
// switches on concrete type directly, the same way internal/canon does when
// it walks patterns.
func (p *printer) printPattern(pat Pattern) {
	switch n := pat.(type) {
	case *Ident:
		fmt.Fprintf(&p.b, "(pat-ident %s)", n.Name)
	case *PatternIntLiteral:
		fmt.Fprintf(&p.b, "(pat-int %d)", n.Value)
	case *PatternUnderscore:
		p.b.WriteString("(pat-_)")
	case *PatternTag:
		fmt.Fprintf(&p.b, "(pat-tag %s", n.Name)
		for _, a := range n.Args {
			p.b.WriteString(" ")
			p.printPattern(a)
		}
		p.b.WriteString(")")
	case *PatternTuple:
		p.b.WriteString("(pat-tuple")
		for _, e := range n.Elements {
			p.b.WriteString(" ")
			p.printPattern(e)
		}
		p.b.WriteString(")")
	case *PatternRecord:
		p.b.WriteString("(pat-record")
		for _, f := range n.Fields {
			fmt.Fprintf(&p.b, " (%s ", f.Name)
			p.printPattern(f.Pattern)
			p.b.WriteString(")")
		}
		p.b.WriteString(")")
	case *PatternList:
		p.b.WriteString("(pat-list")
		for _, e := range n.Elements {
			p.b.WriteString(" ")
			p.printPattern(e)
		}
		if n.Rest != nil {
			fmt.Fprintf(&p.b, " ..%s", n.Rest.Name)
		}
		p.b.WriteString(")")
	case *PatternAs:
		p.b.WriteString("(pat-as ")
		p.printPattern(n.Inner)
		fmt.Fprintf(&p.b, " %s)", n.Name)
	case *PatternAlternatives:
		p.b.WriteString("(pat-alt")
		for _, a := range n.Alternatives {
			p.b.WriteString(" ")
			p.printPattern(a)
		}
		p.b.WriteString(")")
	default:
		p.b.WriteString("<none>")
	}
}
