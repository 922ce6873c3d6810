package interp

import (
	"fmt"

	"github.com/lukewilliamboswell/roc-sub001/internal/ast"
	"github.com/lukewilliamboswell/roc-sub001/internal/cir"
	"github.com/lukewilliamboswell/roc-sub001/internal/diagnostics"
	"github.com/lukewilliamboswell/roc-sub001/internal/layout"
)

// dispatch runs one work item. Every handler leaves the value stack in a
// state the item scheduled after it expects: an eval item adds exactly one
// value (directly or by scheduling sub-items plus a completion), a
// completion item consumes its operands and adds the combined result.
func (ip *Interp) dispatch(it workItem) error {
	switch it.kind {
	case workEvalExpr:
		return ip.evalExpr(it.expr)
	case workBinOpDone:
		return ip.binOpDone(it.expr)
	case workUnaryDone:
		return ip.unaryDone(it.expr)
	case workIfCheckCondition:
		return ip.ifCheckCondition(it.expr)
	case workBindLocal:
		return ip.bindLocal(it.extra.(*bindLocalState))
	case workDiscardStmt:
		return ip.discardStmt()
	case workFinishBlock:
		return ip.finishBlock(it.expr, it.extra.(*blockState))
	case workFinishRecord, workFinishTuple:
		return ip.finishRecordOrTuple(it.expr, it.extra.(*aggState))
	case workFinishTag:
		return ip.finishTag(it.expr, it.extra.(*aggState))
	case workFinishList:
		return ip.finishList(it.expr, it.extra.(*aggState))
	case workMatchBranches:
		return ip.matchBranches(it.expr, it.extra.(*matchState))
	case workFinishMatch:
		return ip.finishMatch(it.extra.(*matchState))
	case workPushCallFrame:
		return ip.pushCallFrame(it.expr, it.extra.(*callState))
	case workBindParameters:
		return ip.bindParameters(it.extra.(*callState))
	case workCopyResultToReturnSpace:
		return ip.copyResultToReturnSpace(it.extra.(*callState))
	case workCleanupFunction:
		return ip.cleanupFunction(it.extra.(*callState))
	}
	return ip.internalError(it.expr, "unhandled work item kind")
}

// evalExpr dispatches on idx's CIR node kind. Leaf nodes produce their
// value immediately; compound nodes schedule a completion item followed by
// eval items for their operands.
func (ip *Interp) evalExpr(idx cir.ExprIdx) error {
	switch e := ip.Arena.Expr(idx).(type) {
	case cir.EInt:
		return ip.evalInt(idx, e)
	case cir.EFrac:
		return ip.evalFrac(idx, e)
	case cir.EBool:
		return ip.evalBool(idx, e)
	case cir.EStr:
		return ip.evalStr(idx, e)
	case cir.ELookupLocal:
		return ip.evalLookupLocal(idx, e)
	case cir.ELookupExternal:
		return ip.internalError(idx, fmt.Sprintf("unresolved external declaration `%s`", e.DeclName))
	case cir.EUnary:
		ip.schedule(workItem{kind: workUnaryDone, expr: idx})
		ip.schedule(workItem{kind: workEvalExpr, expr: e.Operand})
		return nil
	case cir.EBinOp:
		// Completion first, then rhs, then lhs on top, so the lhs value
		// completes first and sits below the rhs when the completion runs.
		ip.schedule(workItem{kind: workBinOpDone, expr: idx})
		ip.schedule(workItem{kind: workEvalExpr, expr: e.Rhs})
		ip.schedule(workItem{kind: workEvalExpr, expr: e.Lhs})
		return nil
	case cir.EIf:
		ip.schedule(workItem{kind: workIfCheckCondition, expr: idx})
		ip.schedule(workItem{kind: workEvalExpr, expr: e.Cond})
		return nil
	case cir.EBlock:
		return ip.evalBlock(idx, e)
	case cir.EMatch:
		ms := &matchState{rewindTo: ip.Stack.Used()}
		ip.schedule(workItem{kind: workMatchBranches, expr: idx, extra: ms})
		ip.schedule(workItem{kind: workEvalExpr, expr: e.Scrutinee})
		return nil
	case cir.ERecord:
		as := &aggState{rewindTo: ip.Stack.Used(), count: len(e.Fields)}
		ip.schedule(workItem{kind: workFinishRecord, expr: idx, extra: as})
		for i := len(e.Fields) - 1; i >= 0; i-- {
			ip.schedule(workItem{kind: workEvalExpr, expr: e.Fields[i].Value})
		}
		return nil
	case cir.ETuple:
		as := &aggState{rewindTo: ip.Stack.Used(), count: len(e.Elements)}
		ip.schedule(workItem{kind: workFinishTuple, expr: idx, extra: as})
		for i := len(e.Elements) - 1; i >= 0; i-- {
			ip.schedule(workItem{kind: workEvalExpr, expr: e.Elements[i]})
		}
		return nil
	case cir.EList:
		as := &aggState{rewindTo: ip.Stack.Used(), count: len(e.Elements)}
		ip.schedule(workItem{kind: workFinishList, expr: idx, extra: as})
		for i := len(e.Elements) - 1; i >= 0; i-- {
			ip.schedule(workItem{kind: workEvalExpr, expr: e.Elements[i]})
		}
		return nil
	case cir.ETag:
		as := &aggState{rewindTo: ip.Stack.Used(), count: len(e.Payload)}
		ip.schedule(workItem{kind: workFinishTag, expr: idx, extra: as})
		for i := len(e.Payload) - 1; i >= 0; i-- {
			ip.schedule(workItem{kind: workEvalExpr, expr: e.Payload[i]})
		}
		return nil
	case cir.ELambda:
		return ip.evalLambda(idx, e)
	case cir.ECall:
		cs := &callState{rewindTo: ip.Stack.Used()}
		ip.schedule(workItem{kind: workPushCallFrame, expr: idx, extra: cs})
		ip.schedule(workItem{kind: workEvalExpr, expr: e.Callee})
		return nil
	case cir.EMalformed:
		return &RuntimeError{Report: e.Diagnostic}
	}
	return ip.internalError(idx, "unhandled CIR expression kind")
}

// ---- literals ----

func (ip *Interp) evalInt(idx cir.ExprIdx, e cir.EInt) error {
	l, err := ip.layoutOf(idx)
	if err != nil {
		return err
	}
	en, err := ip.push(l)
	if err != nil {
		return err
	}
	ip.Stack.WriteInt64(en.offset, e.Value)
	return nil
}

func (ip *Interp) evalFrac(idx cir.ExprIdx, e cir.EFrac) error {
	l, err := ip.layoutOf(idx)
	if err != nil {
		return err
	}
	en, err := ip.push(l)
	if err != nil {
		return err
	}
	ip.Stack.WriteFloat64(en.offset, e.Value)
	return nil
}

func (ip *Interp) evalBool(idx cir.ExprIdx, e cir.EBool) error {
	l, err := ip.layoutOf(idx)
	if err != nil {
		return err
	}
	en, err := ip.push(l)
	if err != nil {
		return err
	}
	ip.Stack.WriteBool(en.offset, e.Value)
	return nil
}

func (ip *Interp) evalStr(idx cir.ExprIdx, e cir.EStr) error {
	l, err := ip.layoutOf(idx)
	if err != nil {
		return err
	}
	en, err := ip.push(l)
	if err != nil {
		return err
	}
	joined := ""
	for _, seg := range e.Segments {
		joined += seg
	}
	ref := ip.Heap.NewString(joined)
	ip.Stack.WriteUint32(en.offset, uint32(ref))
	return nil
}

// ---- lookups ----

func (ip *Interp) evalLookupLocal(idx cir.ExprIdx, e cir.ELookupLocal) error {
	b, ok := ip.bindings.Lookup(e.Pattern)
	if !ok {
		return ip.internalError(idx, fmt.Sprintf("pattern %d has no binding in scope", e.Pattern))
	}
	en, err := ip.push(b.Layout)
	if err != nil {
		return err
	}
	ip.Stack.CopyFrom(en.offset, ip.Stack.Slice(b.Offset, b.Layout.Size))
	ip.retainValue(en.layout, en.offset)
	return nil
}

// ---- unary / binary completions ----

func (ip *Interp) unaryDone(idx cir.ExprIdx) error {
	e := ip.Arena.Expr(idx).(cir.EUnary)
	operand := ip.top()
	resultLayout, err := ip.layoutOf(idx)
	if err != nil {
		return err
	}
	switch e.Op {
	case ast.OpNeg:
		switch operand.layout.Tag {
		case layout.TagInt:
			v := ip.Stack.ReadInt64(operand.offset)
			ip.pop()
			en, err := ip.push(resultLayout)
			if err != nil {
				return err
			}
			ip.Stack.WriteInt64(en.offset, -v)
			return nil
		case layout.TagFrac:
			v := ip.Stack.ReadFloat64(operand.offset)
			ip.pop()
			en, err := ip.push(resultLayout)
			if err != nil {
				return err
			}
			ip.Stack.WriteFloat64(en.offset, -v)
			return nil
		}
		return ip.internalError(idx, "negation of a non-numeric value")
	case ast.OpNot:
		v := ip.Stack.ReadBool(operand.offset)
		ip.pop()
		en, err := ip.push(resultLayout)
		if err != nil {
			return err
		}
		ip.Stack.WriteBool(en.offset, !v)
		return nil
	}
	return ip.internalError(idx, "unknown unary operator")
}

// binOpDone consumes the top two stack slots (lhs below rhs), computes the
// result at the operands' precision, pops both, and pushes the result.
func (ip *Interp) binOpDone(idx cir.ExprIdx) error {
	e := ip.Arena.Expr(idx).(cir.EBinOp)
	n := len(ip.values)
	lhs, rhs := ip.values[n-2], ip.values[n-1]

	switch e.Op {
	case ast.OpAnd, ast.OpOr, ast.OpEq, ast.OpNeq, ast.OpLt, ast.OpGt, ast.OpLte, ast.OpGte:
		return ip.boolProducingBinOp(idx, e.Op, lhs, rhs)
	default:
		return ip.arithBinOp(idx, e.Op, lhs, rhs)
	}
}

func (ip *Interp) boolProducingBinOp(idx cir.ExprIdx, op ast.BinOpKind, lhs, rhs entry) error {
	resultLayout, err := ip.layoutOf(idx)
	if err != nil {
		return err
	}
	var result bool
	switch op {
	case ast.OpAnd:
		result = ip.Stack.ReadBool(lhs.offset) && ip.Stack.ReadBool(rhs.offset)
	case ast.OpOr:
		result = ip.Stack.ReadBool(lhs.offset) || ip.Stack.ReadBool(rhs.offset)
	default:
		result = ip.compareScalars(op, lhs, rhs)
	}
	ip.pop() // rhs
	ip.pop() // lhs
	en, err := ip.push(resultLayout)
	if err != nil {
		return err
	}
	ip.Stack.WriteBool(en.offset, result)
	return nil
}

func (ip *Interp) compareScalars(op ast.BinOpKind, lhs, rhs entry) bool {
	if lhs.layout.Tag == layout.TagFrac {
		a, b := ip.Stack.ReadFloat64(lhs.offset), ip.Stack.ReadFloat64(rhs.offset)
		switch op {
		case ast.OpEq:
			return a == b
		case ast.OpNeq:
			return a != b
		case ast.OpLt:
			return a < b
		case ast.OpGt:
			return a > b
		case ast.OpLte:
			return a <= b
		case ast.OpGte:
			return a >= b
		}
	}
	a, b := ip.Stack.ReadInt64(lhs.offset), ip.Stack.ReadInt64(rhs.offset)
	switch op {
	case ast.OpEq:
		return a == b
	case ast.OpNeq:
		return a != b
	case ast.OpLt:
		return a < b
	case ast.OpGt:
		return a > b
	case ast.OpLte:
		return a <= b
	case ast.OpGte:
		return a >= b
	}
	return false
}

func (ip *Interp) arithBinOp(idx cir.ExprIdx, op ast.BinOpKind, lhs, rhs entry) error {
	resultLayout, err := ip.layoutOf(idx)
	if err != nil {
		return err
	}

	if lhs.layout.Tag == layout.TagFrac {
		a, b := ip.Stack.ReadFloat64(lhs.offset), ip.Stack.ReadFloat64(rhs.offset)
		ip.pop()
		ip.pop()
		var v float64
		switch op {
		case ast.OpAdd:
			v = a + b
		case ast.OpSub:
			v = a - b
		case ast.OpMul:
			v = a * b
		case ast.OpDiv:
			if b == 0 {
				return &RuntimeError{Report: diagnostics.New(diagnostics.PhaseRuntime, diagnostics.ErrDivisionByZero, cirZeroRegion(), "/")}
			}
			v = a / b
		default:
			return ip.internalError(idx, "unsupported fractional operator")
		}
		en, err := ip.push(resultLayout)
		if err != nil {
			return err
		}
		ip.Stack.WriteFloat64(en.offset, v)
		return nil
	}

	a, b := ip.Stack.ReadInt64(lhs.offset), ip.Stack.ReadInt64(rhs.offset)
	ip.pop()
	ip.pop()
	var v int64
	switch op {
	case ast.OpAdd:
		v = a + b
		if (b > 0 && v < a) || (b < 0 && v > a) {
			return &RuntimeError{Report: diagnostics.New(diagnostics.PhaseRuntime, diagnostics.ErrArithOverflow, cirZeroRegion(), "+")}
		}
	case ast.OpSub:
		v = a - b
		if (b < 0 && v < a) || (b > 0 && v > a) {
			return &RuntimeError{Report: diagnostics.New(diagnostics.PhaseRuntime, diagnostics.ErrArithOverflow, cirZeroRegion(), "-")}
		}
	case ast.OpMul:
		v = a * b
		if a != 0 && v/a != b {
			return &RuntimeError{Report: diagnostics.New(diagnostics.PhaseRuntime, diagnostics.ErrArithOverflow, cirZeroRegion(), "*")}
		}
	case ast.OpDiv:
		if b == 0 {
			return &RuntimeError{Report: diagnostics.New(diagnostics.PhaseRuntime, diagnostics.ErrDivisionByZero, cirZeroRegion(), "/")}
		}
		v = a / b
	case ast.OpMod:
		if b == 0 {
			return &RuntimeError{Report: diagnostics.New(diagnostics.PhaseRuntime, diagnostics.ErrDivisionByZero, cirZeroRegion(), "%")}
		}
		v = a % b
	default:
		return ip.internalError(idx, "unsupported integer operator")
	}
	en, err := ip.push(resultLayout)
	if err != nil {
		return err
	}
	ip.Stack.WriteInt64(en.offset, v)
	return nil
}

// ---- control flow ----

// ifCheckCondition inspects the just-evaluated condition on top of the
// stack, pops it, and schedules whichever branch applies.
func (ip *Interp) ifCheckCondition(idx cir.ExprIdx) error {
	e := ip.Arena.Expr(idx).(cir.EIf)
	cond := ip.top()
	condVal := ip.Stack.ReadBool(cond.offset)
	ip.pop()
	if condVal {
		ip.schedule(workItem{kind: workEvalExpr, expr: e.Then})
	} else {
		ip.schedule(workItem{kind: workEvalExpr, expr: e.Else})
	}
	return nil
}

// blockState is a block's in-flight record: where to rewind the stack when
// its tail value is extracted, which values its lets bound, and how many
// pattern-materialized values were live when it opened.
type blockState struct {
	rewindTo  uint32
	bound     []entry
	ownedMark int
}

type bindLocalState struct {
	bs      *blockState
	pattern cir.PatternIdx
}

func (ip *Interp) evalBlock(idx cir.ExprIdx, e cir.EBlock) error {
	bs := &blockState{rewindTo: ip.Stack.Used(), ownedMark: len(ip.owned)}
	ip.schedule(workItem{kind: workFinishBlock, expr: idx, extra: bs})
	if e.Tail != cir.NoExpr {
		ip.schedule(workItem{kind: workEvalExpr, expr: e.Tail})
	}
	for i := len(e.Statements) - 1; i >= 0; i-- {
		stmt := e.Statements[i]
		if stmt.IsLet {
			ip.schedule(workItem{kind: workBindLocal, expr: idx, extra: &bindLocalState{bs: bs, pattern: stmt.Pattern}})
		} else {
			ip.schedule(workItem{kind: workDiscardStmt, expr: idx})
		}
		ip.schedule(workItem{kind: workEvalExpr, expr: stmt.Expr})
	}
	return nil
}

// bindLocal consumes a let's just-evaluated RHS by installing its pattern's
// bindings in the current binding table. The value stays on the stack —
// bindings point into it — and is released when the block finishes.
func (ip *Interp) bindLocal(st *bindLocalState) error {
	val := ip.top()
	ok, err := ip.matchPattern(st.pattern, val)
	if err != nil {
		return err
	}
	if !ok {
		return &RuntimeError{Report: diagnostics.New(diagnostics.PhaseRuntime, diagnostics.ErrPatternMatchFail, cirZeroRegion(), "<let binding>")}
	}
	st.bs.bound = append(st.bs.bound, val)
	return nil
}

// discardStmt drops a bare statement's unused value.
func (ip *Interp) discardStmt() error {
	val := ip.top()
	ip.releaseValue(val.layout, val.offset)
	ip.pop()
	return nil
}

// finishBlock extracts the tail value past the block's working space,
// dropping every refcount owned by the block's own bindings.
func (ip *Interp) finishBlock(idx cir.ExprIdx, bs *blockState) error {
	e := ip.Arena.Expr(idx).(cir.EBlock)
	if e.Tail == cir.NoExpr {
		l, err := ip.layoutOf(idx)
		if err != nil {
			return err
		}
		if _, err := ip.push(l); err != nil {
			return err
		}
	}
	result := ip.top()
	for _, b := range bs.bound {
		ip.releaseValue(b.layout, b.offset)
	}
	for _, o := range ip.owned[bs.ownedMark:] {
		ip.releaseValue(o.layout, o.offset)
	}
	ip.owned = ip.owned[:bs.ownedMark]
	_, err := ip.relocate(result, bs.rewindTo)
	return err
}
