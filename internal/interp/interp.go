// Package interp evaluates canonicalized expressions against a layout cache
// and a byte-addressable value stack, producing a runtime value.
//
// The evaluator is a work-item scheduler: a tight loop pops one pending
// item off an explicit LIFO stack, dispatches on its kind, and possibly
// pushes further items. A compound expression schedules a completion item
// first and its operands after it, so the operands finish (in order) before
// the completion consumes their values off the value stack. The explicit
// stack replaces host-call-stack recursion: deeply nested expressions grow
// a heap-backed slice instead of the goroutine stack, and the evaluator's
// full state is inspectable between any two items.
package interp

import (
	"fmt"

	"github.com/lukewilliamboswell/roc-sub001/internal/cir"
	"github.com/lukewilliamboswell/roc-sub001/internal/closure"
	"github.com/lukewilliamboswell/roc-sub001/internal/diagnostics"
	"github.com/lukewilliamboswell/roc-sub001/internal/heap"
	"github.com/lukewilliamboswell/roc-sub001/internal/layout"
	"github.com/lukewilliamboswell/roc-sub001/internal/region"
	"github.com/lukewilliamboswell/roc-sub001/internal/stack"
	"github.com/lukewilliamboswell/roc-sub001/internal/types"
)

// entry is one live value on the interpreter's logical value stack: its
// byte offset and the layout needed to interpret those bytes. The entries
// slice is the layout stack running parallel to the raw byte stack.
type entry struct {
	offset uint32
	layout *layout.Layout
}

// workKind discriminates the pending operations the scheduler dispatches on.
type workKind uint8

const (
	workEvalExpr workKind = iota
	workBinOpDone
	workUnaryDone
	workIfCheckCondition
	workBindLocal
	workDiscardStmt
	workFinishBlock
	workFinishRecord
	workFinishTuple
	workFinishTag
	workFinishList
	workMatchBranches
	workFinishMatch
	workPushCallFrame
	workBindParameters
	workCopyResultToReturnSpace
	workCleanupFunction
)

// workItem is one unit of scheduled work. expr names the CIR node the item
// belongs to; extra carries per-item state (a block's accumulated bindings,
// a call's in-flight record) where the node alone is not enough.
type workItem struct {
	kind  workKind
	expr  cir.ExprIdx
	extra any
}

// RuntimeError is a tagged, recoverable evaluation failure (arithmetic
// overflow, division by zero, pattern-match failure): the REPL continues
// after one.
type RuntimeError struct {
	Report *diagnostics.Report
}

func (e *RuntimeError) Error() string { return e.Report.Error() }

// FatalError halts the current evaluation outright (stack overflow, arity
// mismatch, layout miscompute): the caller must start the next evaluation
// on a fresh stack.
type FatalError struct {
	Report *diagnostics.Report
}

func (e *FatalError) Error() string { return e.Report.Error() }

// Interp ties together the value stack, heap, layout cache, the pending
// work stack, and the bindings currently visible to local lookups.
type Interp struct {
	Arena       *cir.Arena
	Annotations *types.Annotations
	Layouts     *layout.Cache
	Stack       *stack.Stack
	Heap        *heap.Heap

	bindings     *closure.Table
	work         []workItem
	values       []entry          // logical value stack; top = values[len-1]
	owned        []entry          // values materialized while matching patterns, released when their match scope ends
	frameLayouts []*layout.Layout // append-only log a CallFrame's two layout indices point into
}

// New returns an Interp ready to evaluate expressions from arena against a
// fresh value stack and heap. parent, if non-nil, chains outer bindings
// visible to every lookup (the REPL's accumulated Past Definitions).
func New(arena *cir.Arena, annotations *types.Annotations, parent *closure.Table) *Interp {
	return &Interp{
		Arena:       arena,
		Annotations: annotations,
		Layouts:     layout.NewCache(),
		Stack:       stack.New(),
		Heap:        heap.New(),
		bindings:    closure.NewTable(parent),
	}
}

// Bindings returns the interpreter's current top binding table, so a REPL
// can chain the next line's table off this one.
func (ip *Interp) Bindings() *closure.Table { return ip.bindings }

// ValueCount reports how many values are live on the logical stack. A
// completed top-level evaluation leaves exactly one.
func (ip *Interp) ValueCount() int { return len(ip.values) }

// PendingWork reports how many work items remain scheduled. Zero except
// mid-evaluation.
func (ip *Interp) PendingWork() int { return len(ip.work) }

// Result is the fully-evaluated top-level value plus the layout needed to
// read it and the solved type it was printed against.
type Result struct {
	Offset uint32
	Layout *layout.Layout
	Type   types.Type
}

// Eval evaluates root to completion by scheduling it and draining the work
// stack. On success, exactly one value remains on the logical stack.
func (ip *Interp) Eval(root cir.ExprIdx) (*Result, error) {
	ip.schedule(workItem{kind: workEvalExpr, expr: root})
	if err := ip.run(); err != nil {
		return nil, err
	}
	top := ip.top()
	t := ip.Annotations.ExprTypes[root]
	return &Result{Offset: top.offset, Layout: top.layout, Type: t}, nil
}

func (ip *Interp) schedule(it workItem) {
	ip.work = append(ip.work, it)
}

// run drains the work stack LIFO. An item leaves the stack only here, right
// before it is dispatched; a failed dispatch abandons the remaining items
// together with the evaluation itself.
func (ip *Interp) run() error {
	for len(ip.work) > 0 {
		it := ip.work[len(ip.work)-1]
		ip.work = ip.work[:len(ip.work)-1]
		if err := ip.dispatch(it); err != nil {
			ip.work = ip.work[:0]
			return err
		}
	}
	return nil
}

func (ip *Interp) top() entry { return ip.values[len(ip.values)-1] }

func (ip *Interp) push(l *layout.Layout) (entry, error) {
	off, err := ip.Stack.Alloc(l.Size, l.Align)
	if err != nil {
		return entry{}, &FatalError{Report: diagnostics.New(diagnostics.PhaseRuntime, diagnostics.ErrStackOverflow, cirZeroRegion())}
	}
	e := entry{offset: off, layout: l}
	ip.values = append(ip.values, e)
	return e, nil
}

// pop removes and returns the top value, rewinding the byte stack to
// reclaim its space. Does not release any heap refs — callers decide
// whether the value's ownership is being transferred or dropped.
func (ip *Interp) pop() entry {
	n := len(ip.values) - 1
	e := ip.values[n]
	ip.values = ip.values[:n]
	ip.Stack.ResetTo(e.offset)
	return e
}

// relocate copies result's bytes out, rewinds the value stack to rewindTo
// (reclaiming everything above it, including result's own old slot), then
// pushes a fresh slot of the same layout and copies the bytes back in. Used
// anywhere a computation's final value must survive past the reclamation of
// its working space: block locals, call frames and arguments, pattern-match
// scrutinees.
func (ip *Interp) relocate(result entry, rewindTo uint32) (entry, error) {
	tmp := make([]byte, result.layout.Size)
	copy(tmp, ip.Stack.Slice(result.offset, result.layout.Size))
	ip.discardAbove(rewindTo)
	en, err := ip.push(result.layout)
	if err != nil {
		return entry{}, err
	}
	ip.Stack.CopyFrom(en.offset, tmp)
	return en, nil
}

// discardAbove drops every logical value whose offset is at or past
// rewindTo and rewinds the byte stack to match. Callers are responsible for
// having already released or transferred ownership of anything refcounted
// among the discarded values.
func (ip *Interp) discardAbove(rewindTo uint32) {
	n := 0
	for _, e := range ip.values {
		if e.offset < rewindTo {
			ip.values[n] = e
			n++
		}
	}
	ip.values = ip.values[:n]
	ip.Stack.ResetTo(rewindTo)
}

// retainValue bumps the refcount of every heap ref reachable through the
// value of layout l at offset: a str or list ref directly, a record or
// tuple's refcounted fields, a closure's refcounted captures.
func (ip *Interp) retainValue(l *layout.Layout, offset uint32) {
	switch l.Kind {
	case layout.KindScalar, layout.KindList:
		if !l.Refcounted {
			return
		}
		if r := heap.Ref(ip.Stack.ReadUint32(offset)); r != 0 {
			ip.Heap.Retain(r)
		}
	case layout.KindRecord, layout.KindTuple:
		for _, f := range l.Fields {
			ip.retainValue(f.Layout, offset+f.Offset)
		}
	case layout.KindClosure:
		envBase := closure.EnvBase(offset, l)
		for _, cf := range l.CaptureFields {
			ip.retainValue(cf.Layout, envBase+cf.Offset)
		}
	}
}

// releaseValue is retainValue's inverse, run when a value is dropped from
// the stack rather than transferred.
func (ip *Interp) releaseValue(l *layout.Layout, offset uint32) {
	switch l.Kind {
	case layout.KindScalar, layout.KindList:
		if !l.Refcounted {
			return
		}
		if r := heap.Ref(ip.Stack.ReadUint32(offset)); r != 0 {
			ip.Heap.Release(r)
		}
	case layout.KindRecord, layout.KindTuple:
		for _, f := range l.Fields {
			ip.releaseValue(f.Layout, offset+f.Offset)
		}
	case layout.KindClosure:
		envBase := closure.EnvBase(offset, l)
		for _, cf := range l.CaptureFields {
			ip.releaseValue(cf.Layout, envBase+cf.Offset)
		}
	}
}

// addFrameLayout appends l to the frame-layout log and returns its index,
// the form a CallFrame stores layouts in.
func (ip *Interp) addFrameLayout(l *layout.Layout) uint32 {
	ip.frameLayouts = append(ip.frameLayouts, l)
	return uint32(len(ip.frameLayouts) - 1)
}

func (ip *Interp) layoutOf(idx cir.ExprIdx) (*layout.Layout, error) {
	t, ok := ip.Annotations.ExprTypes[idx]
	if !ok {
		return nil, ip.internalError(idx, "missing solved type")
	}
	l, err := ip.Layouts.Of(t)
	if err != nil {
		return nil, &FatalError{Report: diagnostics.New(diagnostics.PhaseRuntime, diagnostics.ErrLayoutMiscalc, cirZeroRegion(), err.Error())}
	}
	return l, nil
}

func (ip *Interp) internalError(idx cir.ExprIdx, msg string) error {
	return &FatalError{Report: diagnostics.New(diagnostics.PhaseRuntime, diagnostics.ErrInternal, cirZeroRegion(), fmt.Sprintf("expr %d: %s", idx, msg))}
}

// cirZeroRegion stands in for node-level source regions, which the CIR
// arena does not currently retain (they live on the parse tree that fed
// canonicalization, and are not threaded through to interpretation).
func cirZeroRegion() region.Region { return region.Region{} }
