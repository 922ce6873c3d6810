package types

import (
	"fmt"

	"github.com/lukewilliamboswell/roc-sub001/internal/ast"
	"github.com/lukewilliamboswell/roc-sub001/internal/cir"
)

// Annotations is a CIR-expression-indexed type mapping, plus the parallel
// pattern-indexed map a closure's parameters and captures need at layout
// time.
type Annotations struct {
	ExprTypes    map[cir.ExprIdx]Type
	PatternTypes map[cir.PatternIdx]Type
}

// Solver performs monomorphic structural type inference over a cir.Arena.
type Solver struct {
	arena     *cir.Arena
	subst     Subst
	fresh     int
	exprTypes map[cir.ExprIdx]Type
	patTypes  map[cir.PatternIdx]Type
}

// NewSolver returns a Solver over arena.
func NewSolver(arena *cir.Arena) *Solver {
	return &Solver{
		arena:     arena,
		subst:     Subst{},
		exprTypes: map[cir.ExprIdx]Type{},
		patTypes:  map[cir.PatternIdx]Type{},
	}
}

func (s *Solver) freshVar() TVar {
	s.fresh++
	return TVar{Name: fmt.Sprintf("t%d", s.fresh)}
}

// UnifyError reports two types that could not be unified.
type UnifyError struct {
	A, B Type
}

func (e *UnifyError) Error() string {
	return fmt.Sprintf("cannot unify %s with %s", e.A.Apply(nil), e.B.Apply(nil))
}

func (s *Solver) unify(a, b Type) error {
	a = a.Apply(s.subst)
	b = b.Apply(s.subst)

	if av, ok := a.(TVar); ok {
		if bv, ok := b.(TVar); ok && bv.Name == av.Name {
			return nil
		}
		s.subst = compose(Subst{av.Name: b}, s.subst)
		return nil
	}
	if bv, ok := b.(TVar); ok {
		s.subst = compose(Subst{bv.Name: a}, s.subst)
		return nil
	}

	switch at := a.(type) {
	case TCon:
		if bt, ok := b.(TCon); ok && bt.Name == at.Name {
			return nil
		}
	case TFunc:
		if bt, ok := b.(TFunc); ok && len(bt.Params) == len(at.Params) {
			for i := range at.Params {
				if err := s.unify(at.Params[i], bt.Params[i]); err != nil {
					return err
				}
			}
			return s.unify(at.Ret, bt.Ret)
		}
	case TTuple:
		if bt, ok := b.(TTuple); ok && len(bt.Elements) == len(at.Elements) {
			for i := range at.Elements {
				if err := s.unify(at.Elements[i], bt.Elements[i]); err != nil {
					return err
				}
			}
			return nil
		}
	case TRecord:
		if bt, ok := b.(TRecord); ok && len(bt.Fields) == len(at.Fields) {
			for i := range at.Fields {
				if at.Fields[i].Name != bt.Fields[i].Name {
					return &UnifyError{A: a, B: b}
				}
				if err := s.unify(at.Fields[i].Type, bt.Fields[i].Type); err != nil {
					return err
				}
			}
			return nil
		}
	case TList:
		if bt, ok := b.(TList); ok {
			return s.unify(at.Elem, bt.Elem)
		}
	case TTag:
		if bt, ok := b.(TTag); ok && bt.Name == at.Name && len(bt.Payload) == len(at.Payload) {
			for i := range at.Payload {
				if err := s.unify(at.Payload[i], bt.Payload[i]); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return &UnifyError{A: a, B: b}
}

// Solve infers a type for root and every subexpression it transitively
// contains, returning the fully substituted Annotations.
func Solve(arena *cir.Arena, root cir.ExprIdx) (*Annotations, error) {
	s := NewSolver(arena)
	if _, err := s.infer(root); err != nil {
		return nil, err
	}
	out := &Annotations{ExprTypes: map[cir.ExprIdx]Type{}, PatternTypes: map[cir.PatternIdx]Type{}}
	for idx, t := range s.exprTypes {
		out.ExprTypes[idx] = t.Apply(s.subst)
	}
	for idx, t := range s.patTypes {
		out.PatternTypes[idx] = t.Apply(s.subst)
	}
	return out, nil
}

func (s *Solver) recordExpr(idx cir.ExprIdx, t Type) Type {
	s.exprTypes[idx] = t
	return t
}

func (s *Solver) infer(idx cir.ExprIdx) (Type, error) {
	switch e := s.arena.Expr(idx).(type) {
	case cir.EInt:
		return s.recordExpr(idx, Int), nil
	case cir.EFrac:
		return s.recordExpr(idx, Frac), nil
	case cir.EStr:
		return s.recordExpr(idx, Str), nil
	case cir.EBool:
		return s.recordExpr(idx, Bool), nil
	case cir.EMalformed:
		return s.recordExpr(idx, s.freshVar()), nil
	case cir.ELookupLocal:
		t, ok := s.patTypes[e.Pattern]
		if !ok {
			t = s.freshVar()
			s.patTypes[e.Pattern] = t
		}
		return s.recordExpr(idx, t), nil
	case cir.ELookupExternal:
		return s.recordExpr(idx, s.freshVar()), nil
	case cir.EUnary:
		operand, err := s.infer(e.Operand)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case ast.OpNeg:
			return s.recordExpr(idx, operand), nil
		case ast.OpNot:
			if err := s.unify(operand, Bool); err != nil {
				return nil, err
			}
			return s.recordExpr(idx, Bool), nil
		}
		return s.recordExpr(idx, operand), nil
	case cir.EBinOp:
		lhs, err := s.infer(e.Lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := s.infer(e.Rhs)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
			if err := s.unify(lhs, rhs); err != nil {
				return nil, err
			}
			return s.recordExpr(idx, lhs.Apply(s.subst)), nil
		case ast.OpEq, ast.OpNeq, ast.OpLt, ast.OpGt, ast.OpLte, ast.OpGte:
			if err := s.unify(lhs, rhs); err != nil {
				return nil, err
			}
			return s.recordExpr(idx, Bool), nil
		case ast.OpAnd, ast.OpOr:
			if err := s.unify(lhs, Bool); err != nil {
				return nil, err
			}
			if err := s.unify(rhs, Bool); err != nil {
				return nil, err
			}
			return s.recordExpr(idx, Bool), nil
		}
		return s.recordExpr(idx, lhs), nil
	case cir.EIf:
		condT, err := s.infer(e.Cond)
		if err != nil {
			return nil, err
		}
		if err := s.unify(condT, Bool); err != nil {
			return nil, err
		}
		thenT, err := s.infer(e.Then)
		if err != nil {
			return nil, err
		}
		elseT, err := s.infer(e.Else)
		if err != nil {
			return nil, err
		}
		if err := s.unify(thenT, elseT); err != nil {
			return nil, err
		}
		return s.recordExpr(idx, thenT.Apply(s.subst)), nil
	case cir.EBlock:
		for _, stmt := range e.Statements {
			t, err := s.infer(stmt.Expr)
			if err != nil {
				return nil, err
			}
			if stmt.IsLet {
				if err := s.bindPattern(stmt.Pattern, t); err != nil {
					return nil, err
				}
			}
		}
		if e.Tail == cir.NoExpr {
			return s.recordExpr(idx, TTuple{}), nil
		}
		tailT, err := s.infer(e.Tail)
		if err != nil {
			return nil, err
		}
		return s.recordExpr(idx, tailT), nil
	case cir.EMatch:
		scrutT, err := s.infer(e.Scrutinee)
		if err != nil {
			return nil, err
		}
		var result Type
		for _, br := range e.Branches {
			if err := s.bindPattern(br.Pattern, scrutT); err != nil {
				return nil, err
			}
			bodyT, err := s.infer(br.Body)
			if err != nil {
				return nil, err
			}
			if result == nil {
				result = bodyT
			} else if err := s.unify(result, bodyT); err != nil {
				return nil, err
			}
		}
		if result == nil {
			result = s.freshVar()
		}
		return s.recordExpr(idx, result.Apply(s.subst)), nil
	case cir.ERecord:
		fields := make([]TRecordField, len(e.Fields))
		for i, f := range e.Fields {
			t, err := s.infer(f.Value)
			if err != nil {
				return nil, err
			}
			fields[i] = TRecordField{Name: f.Name, Type: t}
		}
		return s.recordExpr(idx, TRecord{Fields: fields}), nil
	case cir.ETuple:
		elems := make([]Type, len(e.Elements))
		for i, el := range e.Elements {
			t, err := s.infer(el)
			if err != nil {
				return nil, err
			}
			elems[i] = t
		}
		return s.recordExpr(idx, TTuple{Elements: elems}), nil
	case cir.EList:
		elem := s.freshVar()
		for _, el := range e.Elements {
			t, err := s.infer(el)
			if err != nil {
				return nil, err
			}
			if err := s.unify(elem, t); err != nil {
				return nil, err
			}
		}
		return s.recordExpr(idx, TList{Elem: elem.Apply(s.subst)}), nil
	case cir.ETag:
		payload := make([]Type, len(e.Payload))
		for i, p := range e.Payload {
			t, err := s.infer(p)
			if err != nil {
				return nil, err
			}
			payload[i] = t
		}
		return s.recordExpr(idx, TTag{Name: e.Name, Payload: payload}), nil
	case cir.ELambda:
		params := make([]Type, len(e.Params))
		for i, p := range e.Params {
			pt := s.freshVar()
			s.patTypes[p] = pt
			params[i] = pt
		}
		for _, c := range e.Captures {
			if _, ok := s.patTypes[c.BoundPattern]; !ok {
				s.patTypes[c.BoundPattern] = s.freshVar()
			}
		}
		ret, err := s.infer(e.Body)
		if err != nil {
			return nil, err
		}
		fn := TFunc{Params: params, Ret: ret}
		return s.recordExpr(idx, fn.Apply(s.subst)), nil
	case cir.ECall:
		calleeT, err := s.infer(e.Callee)
		if err != nil {
			return nil, err
		}
		argTypes := make([]Type, len(e.Args))
		for i, a := range e.Args {
			t, err := s.infer(a)
			if err != nil {
				return nil, err
			}
			argTypes[i] = t
		}
		ret := s.freshVar()
		if err := s.unify(calleeT, TFunc{Params: argTypes, Ret: ret}); err != nil {
			return nil, err
		}
		return s.recordExpr(idx, ret.Apply(s.subst)), nil
	}
	return s.recordExpr(idx, s.freshVar()), nil
}

// bindPattern unifies a pattern's shape against a value type, assigning a
// type to every identifier the pattern introduces.
func (s *Solver) bindPattern(idx cir.PatternIdx, valueType Type) error {
	switch p := s.arena.Pattern(idx).(type) {
	case cir.PIdent:
		s.patTypes[idx] = valueType
		return nil
	case cir.PUnderscore:
		return nil
	case cir.PIntLiteral:
		return s.unify(valueType, Int)
	case cir.PTuple:
		elemTypes := make([]Type, len(p.Elements))
		for i := range p.Elements {
			elemTypes[i] = s.freshVar()
		}
		if err := s.unify(valueType, TTuple{Elements: elemTypes}); err != nil {
			return err
		}
		for i, el := range p.Elements {
			if err := s.bindPattern(el, elemTypes[i]); err != nil {
				return err
			}
		}
		return nil
	case cir.PRecord:
		fields := make([]TRecordField, len(p.Fields))
		fieldVars := make([]Type, len(p.Fields))
		for i, f := range p.Fields {
			fieldVars[i] = s.freshVar()
			fields[i] = TRecordField{Name: f.Name, Type: fieldVars[i]}
		}
		if err := s.unify(valueType, TRecord{Fields: fields}); err != nil {
			return err
		}
		for i, f := range p.Fields {
			if err := s.bindPattern(f.Pattern, fieldVars[i]); err != nil {
				return err
			}
		}
		return nil
	case cir.PList:
		elem := s.freshVar()
		if err := s.unify(valueType, TList{Elem: elem}); err != nil {
			return err
		}
		for _, el := range p.Elements {
			if err := s.bindPattern(el, elem); err != nil {
				return err
			}
		}
		if p.Rest != nil {
			s.patTypes[*p.Rest] = TList{Elem: elem}
		}
		return nil
	case cir.PTag:
		payload := make([]Type, len(p.Args))
		for i := range p.Args {
			payload[i] = s.freshVar()
		}
		if err := s.unify(valueType, TTag{Name: p.Name, Payload: payload}); err != nil {
			return err
		}
		for i, a := range p.Args {
			if err := s.bindPattern(a, payload[i]); err != nil {
				return err
			}
		}
		return nil
	case cir.PAs:
		s.patTypes[idx] = valueType
		return s.bindPattern(p.Inner, valueType)
	case cir.PAlternatives:
		for _, alt := range p.Alternatives {
			if err := s.bindPattern(alt, valueType); err != nil {
				return err
			}
		}
		return nil
	}
	return nil
}
