package interp

import (
	"github.com/lukewilliamboswell/roc-sub001/internal/cir"
	"github.com/lukewilliamboswell/roc-sub001/internal/closure"
	"github.com/lukewilliamboswell/roc-sub001/internal/diagnostics"
	"github.com/lukewilliamboswell/roc-sub001/internal/heap"
	"github.com/lukewilliamboswell/roc-sub001/internal/layout"
)

// matchState carries a match expression's scrutinee entry and working-space
// marks between the branch-selection item and the finish item.
type matchState struct {
	rewindTo  uint32
	scrutinee entry
	ownedMark int
}

// matchBranches runs once the scrutinee sits on top of the stack: it tries
// each branch pattern in source order, binding names into the current
// binding table as soon as a branch matches, then schedules that branch's
// body followed by the finish item. No branch matching is a runtime error.
func (ip *Interp) matchBranches(idx cir.ExprIdx, ms *matchState) error {
	e := ip.Arena.Expr(idx).(cir.EMatch)
	ms.scrutinee = ip.top()
	ms.ownedMark = len(ip.owned)
	for _, br := range e.Branches {
		ok, err := ip.matchPattern(br.Pattern, ms.scrutinee)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		ip.schedule(workItem{kind: workFinishMatch, expr: idx, extra: ms})
		ip.schedule(workItem{kind: workEvalExpr, expr: br.Body})
		return nil
	}
	return &RuntimeError{Report: diagnostics.New(
		diagnostics.PhaseRuntime, diagnostics.ErrPatternMatchFail, cirZeroRegion(), "<match>",
	)}
}

// finishMatch extracts the branch body's value past the match's working
// space, dropping the scrutinee and every value materialized while
// matching.
func (ip *Interp) finishMatch(ms *matchState) error {
	result := ip.top()
	for _, o := range ip.owned[ms.ownedMark:] {
		ip.releaseValue(o.layout, o.offset)
	}
	ip.owned = ip.owned[:ms.ownedMark]
	ip.releaseValue(ms.scrutinee.layout, ms.scrutinee.offset)
	_, err := ip.relocate(result, ms.rewindTo)
	return err
}

// matchPattern attempts to match val against the pattern at pidx, binding
// every name the pattern introduces into the interpreter's current binding
// table as a side effect, even for an eventually-failing outer alternative
// (mirroring how a let's irrefutable pattern binds unconditionally). Returns
// false, not an error, for an ordinary pattern-match mismatch; an error is
// reserved for a structural impossibility (a malformed layout).
func (ip *Interp) matchPattern(pidx cir.PatternIdx, val entry) (bool, error) {
	switch p := ip.Arena.Pattern(pidx).(type) {
	case cir.PIdent:
		ip.bindings.Bind(pidx, closure.Binding{Offset: val.offset, Layout: val.layout})
		return true, nil

	case cir.PUnderscore:
		return true, nil

	case cir.PIntLiteral:
		return ip.Stack.ReadInt64(val.offset) == p.Value, nil

	case cir.PAs:
		ip.bindings.Bind(pidx, closure.Binding{Offset: val.offset, Layout: val.layout})
		return ip.matchPattern(p.Inner, val)

	case cir.PAlternatives:
		for _, alt := range p.Alternatives {
			ok, err := ip.matchPattern(alt, val)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case cir.PTuple:
		if val.layout.Kind != layout.KindTuple || len(val.layout.Fields) != len(p.Elements) {
			return false, ip.internalError(0, "tuple pattern against non-tuple layout")
		}
		for i, el := range p.Elements {
			cf := val.layout.Fields[i]
			sub := entry{offset: val.offset + cf.Offset, layout: cf.Layout}
			ok, err := ip.matchPattern(el, sub)
			if err != nil || !ok {
				return ok, err
			}
		}
		return true, nil

	case cir.PRecord:
		for _, f := range p.Fields {
			cf, ok := findField(val.layout, f.Name)
			if !ok {
				return false, ip.internalError(0, "record pattern field not present in layout: "+f.Name)
			}
			sub := entry{offset: val.offset + cf.Offset, layout: cf.Layout}
			matched, err := ip.matchPattern(f.Pattern, sub)
			if err != nil || !matched {
				return matched, err
			}
		}
		return true, nil

	case cir.PTag:
		wantTag := layout.TagDiscriminant(p.Name)
		gotTag := ip.Stack.ReadInt64(val.offset + val.layout.Fields[0].Offset)
		if gotTag != wantTag {
			return false, nil
		}
		for i, a := range p.Args {
			cf := val.layout.Fields[i+1]
			sub := entry{offset: val.offset + cf.Offset, layout: cf.Layout}
			ok, err := ip.matchPattern(a, sub)
			if err != nil || !ok {
				return ok, err
			}
		}
		return true, nil

	case cir.PList:
		return ip.matchListPattern(p, val)
	}
	return false, ip.internalError(0, "unhandled pattern kind")
}

func findField(l *layout.Layout, name string) (layout.FieldLayout, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return layout.FieldLayout{}, false
}

// matchListPattern matches a fixed prefix of elements (and, if present, an
// `..rest` pattern capturing the remainder as a fresh list sharing the same
// backing elements). A list shorter than the pattern's required prefix
// never matches; a pattern with no rest additionally requires an exact
// length match.
func (ip *Interp) matchListPattern(p cir.PList, val entry) (bool, error) {
	ref := heap.Ref(ip.Stack.ReadUint32(val.offset))
	elemLayout := val.layout.Elem
	n := ip.Heap.Len(ref, elemLayout.Refcounted, elemLayout.Size)
	if n < len(p.Elements) {
		return false, nil
	}
	if p.Rest == nil && n != len(p.Elements) {
		return false, nil
	}

	for i, el := range p.Elements {
		sub, err := ip.materializeListElem(ref, elemLayout, i)
		if err != nil {
			return false, err
		}
		ok, err := ip.matchPattern(el, sub)
		if err != nil || !ok {
			return ok, err
		}
	}

	if p.Rest != nil {
		restRef := ip.sliceListTail(ref, elemLayout, len(p.Elements))
		en, err := ip.push(val.layout)
		if err != nil {
			return false, err
		}
		ip.Stack.WriteUint32(en.offset, uint32(restRef))
		ip.owned = append(ip.owned, en)
		ip.bindings.Bind(*p.Rest, closure.Binding{Offset: en.offset, Layout: en.layout})
	}
	return true, nil
}

// materializeListElem copies list element i of ref onto a fresh stack slot
// so a sub-pattern can be matched and bound against it the same way any
// other value is, retaining its refcount if the element is itself
// heap-backed. The slot is recorded as pattern-owned and released when the
// enclosing match scope finishes.
func (ip *Interp) materializeListElem(ref heap.Ref, elemLayout *layout.Layout, index int) (entry, error) {
	en, err := ip.push(elemLayout)
	if err != nil {
		return entry{}, err
	}
	if elemLayout.Refcounted {
		r := ip.Heap.ListElems(ref)[index]
		ip.Stack.WriteUint32(en.offset, uint32(r))
		ip.Heap.Retain(r)
	} else {
		sz := elemLayout.Size
		scalars := ip.Heap.Scalars(ref)
		copy(ip.Stack.Slice(en.offset, sz), scalars[uint32(index)*sz:uint32(index)*sz+sz])
	}
	ip.owned = append(ip.owned, en)
	return en, nil
}

// sliceListTail allocates a new heap list object holding the elements of ref
// from index skip onward, retaining each retained element's refcount since
// it is now reachable from two list objects.
func (ip *Interp) sliceListTail(ref heap.Ref, elemLayout *layout.Layout, skip int) heap.Ref {
	if elemLayout.Refcounted {
		elems := ip.Heap.ListElems(ref)
		tail := append([]heap.Ref(nil), elems[skip:]...)
		for _, r := range tail {
			ip.Heap.Retain(r)
		}
		return ip.Heap.NewList(tail, nil)
	}
	scalars := ip.Heap.Scalars(ref)
	sz := elemLayout.Size
	tail := append([]byte(nil), scalars[uint32(skip)*sz:]...)
	return ip.Heap.NewList(nil, tail)
}
