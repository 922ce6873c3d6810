package interp

import (
	"fmt"

	"github.com/lukewilliamboswell/roc-sub001/internal/cir"
	"github.com/lukewilliamboswell/roc-sub001/internal/closure"
	"github.com/lukewilliamboswell/roc-sub001/internal/diagnostics"
	"github.com/lukewilliamboswell/roc-sub001/internal/layout"
)

// evalLambda constructs a closure value: its body_ref/param_count/env_size
// header (the second word is the parameter count, not a CIR reference; the
// parameter patterns live in the layout's Params) plus one packed
// environment slot per declared capture, copied
// (and retained, where refcounted) from the capture's current binding.
func (ip *Interp) evalLambda(idx cir.ExprIdx, e cir.ELambda) error {
	captureLayouts := make([]*layout.Layout, len(e.Captures))
	captureBindings := make([]closure.Binding, len(e.Captures))
	capturePatterns := make([]cir.PatternIdx, len(e.Captures))
	for i, cv := range e.Captures {
		b, ok := ip.bindings.Lookup(cv.BoundPattern)
		if !ok {
			return ip.internalError(idx, fmt.Sprintf("capture pattern %d has no binding in scope", cv.BoundPattern))
		}
		captureLayouts[i] = b.Layout
		captureBindings[i] = b
		capturePatterns[i] = cv.BoundPattern
	}

	l := ip.Layouts.OfClosure(e.Body, e.Params, captureLayouts, capturePatterns)
	base, err := closure.Value(ip.Stack, l, captureBindings)
	if err != nil {
		return &FatalError{Report: diagnostics.New(diagnostics.PhaseRuntime, diagnostics.ErrStackOverflow, cirZeroRegion())}
	}
	en := entry{offset: base, layout: l}
	ip.values = append(ip.values, en)

	envBase := closure.EnvBase(base, l)
	for _, cf := range l.CaptureFields {
		ip.retainValue(cf.Layout, envBase+cf.Offset)
	}
	return nil
}

// callState is one in-flight call's record, threaded through the call's
// scheduled phases: push frame, bind parameters, evaluate body, copy the
// result to the return space, clean up.
type callState struct {
	rewindTo  uint32
	frameBase uint32
	callee    entry
	args      []entry
	saved     *closure.Table
	result    entry
	resultBuf []byte
}

// pushCallFrame runs once the callee value sits on top of the stack. It
// records the callee's position and layout in an explicit frame written to
// the value stack, then schedules the argument evaluations followed by
// parameter binding. Arguments are scheduled in source order, which under
// LIFO dispatch evaluates them in reverse source order, so they pop in
// forward order at binding time.
func (ip *Interp) pushCallFrame(idx cir.ExprIdx, cs *callState) error {
	e := ip.Arena.Expr(idx).(cir.ECall)
	cs.callee = ip.top()
	if cs.callee.layout.Kind != layout.KindClosure {
		return ip.internalError(idx, "call target is not a closure value")
	}

	frameBase, err := ip.Stack.Alloc(closure.CallFrameSize, 4)
	if err != nil {
		return &FatalError{Report: diagnostics.New(diagnostics.PhaseRuntime, diagnostics.ErrStackOverflow, cirZeroRegion())}
	}
	cs.frameBase = frameBase

	fnIdx := ip.addFrameLayout(cs.callee.layout)
	retIdx := fnIdx
	if rl, lerr := ip.layoutOf(idx); lerr == nil {
		retIdx = ip.addFrameLayout(rl)
	}
	closure.WriteCallFrame(ip.Stack, frameBase, closure.CallFrame{
		FunctionPos:       cs.callee.offset,
		FunctionLayoutIdx: fnIdx,
		ReturnLayoutIdx:   retIdx,
		ArgCount:          uint32(len(e.Args)),
	})

	ip.schedule(workItem{kind: workBindParameters, expr: idx, extra: cs})
	for _, a := range e.Args {
		ip.schedule(workItem{kind: workEvalExpr, expr: a})
	}
	return nil
}

// bindParameters reads the call frame back to locate the closure value,
// then opens a fresh binding table holding one entry per parameter
// (pointing into its argument's stack slot) and one per capture (pointing
// into the closure's environment bytes). The table deliberately has no
// parent: every local lookup in the body resolves through exactly one of
// these two groups.
func (ip *Interp) bindParameters(cs *callState) error {
	frame := closure.ReadCallFrame(ip.Stack, cs.frameBase)
	cl := ip.frameLayouts[frame.FunctionLayoutIdx]

	if len(cl.Params) != int(frame.ArgCount) {
		return &FatalError{Report: diagnostics.New(
			diagnostics.PhaseRuntime, diagnostics.ErrArityMismatch, cirZeroRegion(),
			fmt.Sprintf("%d", frame.ArgCount), fmt.Sprintf("%d", len(cl.Params)),
		)}
	}

	n := len(ip.values)
	cs.args = make([]entry, frame.ArgCount)
	for i := range cs.args {
		cs.args[i] = ip.values[n-1-i] // evaluated in reverse order, so arg 0 is topmost
	}

	table := closure.NewTable(nil)
	for i, pat := range cl.Params {
		table.Bind(pat, closure.Binding{Offset: cs.args[i].offset, Layout: cs.args[i].layout})
	}
	envBase := closure.EnvBase(frame.FunctionPos, cl)
	for i, cf := range cl.CaptureFields {
		table.Bind(cl.CapturePatterns[i], closure.Binding{Offset: envBase + cf.Offset, Layout: cf.Layout})
	}

	cs.saved = ip.bindings
	ip.bindings = table

	ip.schedule(workItem{kind: workCleanupFunction, extra: cs})
	ip.schedule(workItem{kind: workCopyResultToReturnSpace, extra: cs})
	ip.schedule(workItem{kind: workEvalExpr, expr: cl.BodyRef})
	return nil
}

// copyResultToReturnSpace snapshots the body's result bytes so cleanup can
// rebuild the value below the frame, arguments, and callee it is about to
// reclaim.
func (ip *Interp) copyResultToReturnSpace(cs *callState) error {
	cs.result = ip.top()
	cs.resultBuf = append([]byte(nil), ip.Stack.Slice(cs.result.offset, cs.result.layout.Size)...)
	return nil
}

// cleanupFunction restores the caller's bindings, drops every refcount the
// call owned (arguments and the invoked closure's environment), pops the
// frame, arguments, and callee, and leaves only the returned value.
func (ip *Interp) cleanupFunction(cs *callState) error {
	ip.bindings = cs.saved
	for _, a := range cs.args {
		ip.releaseValue(a.layout, a.offset)
	}
	ip.releaseValue(cs.callee.layout, cs.callee.offset)

	ip.discardAbove(cs.rewindTo)
	en, err := ip.push(cs.result.layout)
	if err != nil {
		return err
	}
	ip.Stack.CopyFrom(en.offset, cs.resultBuf)
	return nil
}
