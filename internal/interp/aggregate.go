package interp

import (
	"github.com/lukewilliamboswell/roc-sub001/internal/cir"
	"github.com/lukewilliamboswell/roc-sub001/internal/heap"
	"github.com/lukewilliamboswell/roc-sub001/internal/layout"
)

// aggState records an aggregate's element count and the stack offset its
// finished value is relocated down to.
type aggState struct {
	rewindTo uint32
	count    int
}

// elems returns the aggregate's already-evaluated element entries, in
// source order, off the top of the value stack.
func (ip *Interp) elems(count int) []entry {
	return ip.values[len(ip.values)-count:]
}

func (ip *Interp) finishRecordOrTuple(idx cir.ExprIdx, as *aggState) error {
	l, err := ip.layoutOf(idx)
	if err != nil {
		return err
	}
	return ip.packAggregate(l, ip.elems(as.count), as.rewindTo)
}

// packAggregate copies already-evaluated element entries into one new value
// of layout l (a record or tuple), transferring ownership of any refcounted
// elements rather than retaining them again.
func (ip *Interp) packAggregate(l *layout.Layout, elems []entry, rewindTo uint32) error {
	agg, err := ip.push(l)
	if err != nil {
		return err
	}
	for i, el := range elems {
		cf := l.Fields[i]
		ip.Stack.CopyFrom(agg.offset+cf.Offset, ip.Stack.Slice(el.offset, el.layout.Size))
	}
	_, err = ip.relocate(agg, rewindTo)
	return err
}

// finishTag packs a tag value: field 0 of its record layout is the
// synthetic $tag discriminant, the payload fields follow in declaration
// order.
func (ip *Interp) finishTag(idx cir.ExprIdx, as *aggState) error {
	e := ip.Arena.Expr(idx).(cir.ETag)
	l, err := ip.layoutOf(idx)
	if err != nil {
		return err
	}
	elems := ip.elems(as.count)
	agg, err := ip.push(l)
	if err != nil {
		return err
	}
	ip.Stack.WriteInt64(agg.offset+l.Fields[0].Offset, layout.TagDiscriminant(e.Name))
	for i, el := range elems {
		cf := l.Fields[i+1]
		ip.Stack.CopyFrom(agg.offset+cf.Offset, ip.Stack.Slice(el.offset, el.layout.Size))
	}
	_, err = ip.relocate(agg, as.rewindTo)
	return err
}

// finishList moves the evaluated elements into a heap list object —
// element refs for refcounted elements (ownership transfers), packed bytes
// for scalar elements — and leaves a single ref-holding slot on the stack.
func (ip *Interp) finishList(idx cir.ExprIdx, as *aggState) error {
	l, err := ip.layoutOf(idx)
	if err != nil {
		return err
	}
	elems := ip.elems(as.count)

	var elemRefs []heap.Ref
	var scalars []byte
	if len(elems) > 0 && elems[0].layout.Refcounted {
		elemRefs = make([]heap.Ref, len(elems))
		for i, el := range elems {
			elemRefs[i] = heap.Ref(ip.Stack.ReadUint32(el.offset))
		}
	} else {
		scalars = make([]byte, 0, uint32(len(elems))*l.Elem.Size)
		for _, el := range elems {
			scalars = append(scalars, ip.Stack.Slice(el.offset, el.layout.Size)...)
		}
	}
	ref := ip.Heap.NewList(elemRefs, scalars)

	ip.discardAbove(as.rewindTo)
	en, err := ip.push(l)
	if err != nil {
		return err
	}
	ip.Stack.WriteUint32(en.offset, uint32(ref))
	return nil
}
