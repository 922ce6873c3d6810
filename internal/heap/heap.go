// Package heap is the reference-counted store backing heap-allocated
// values: strings and lists. A value stack slot of str or list layout never
// holds the bytes directly — it holds a Ref, an index into this table — so
// that aliasing (lookup copies, argument passing, capture into a closure
// environment, storage into a record field) is a refcount bump rather than
// a deep copy. Counting is explicit rather than left to the host GC so the
// evaluator can assert, after every evaluation, that each allocation was
// either freed or is reachable from the single result value.
package heap

import "fmt"

// Ref is an opaque handle into a Heap. The zero Ref is never issued.
type Ref uint32

// Kind distinguishes the two heap-backed value shapes.
type Kind int

const (
	KindString Kind = iota
	KindList
)

type object struct {
	kind     Kind
	refcount int
	str      string
	list     []Ref // element refs for heap-backed list elements, or unused for scalar elements stored inline
	scalars  []byte
}

// Heap owns every refcounted object created during one evaluation.
type Heap struct {
	objects map[Ref]*object
	next    Ref
}

// New returns an empty heap.
func New() *Heap {
	return &Heap{objects: map[Ref]*object{}, next: 1}
}

// NewString allocates a string object with refcount 1.
func (h *Heap) NewString(s string) Ref {
	r := h.alloc()
	h.objects[r] = &object{kind: KindString, refcount: 1, str: s}
	return r
}

// NewList allocates a list object with refcount 1. elemRefs holds the
// element refs for heap-backed elements; scalars holds the packed bytes for
// scalar elements, indexed by the list's own element layout size — callers
// that only ever store heap-backed elements can pass nil scalars.
func (h *Heap) NewList(elemRefs []Ref, scalars []byte) Ref {
	r := h.alloc()
	h.objects[r] = &object{kind: KindList, refcount: 1, list: append([]Ref(nil), elemRefs...), scalars: append([]byte(nil), scalars...)}
	return r
}

func (h *Heap) alloc() Ref {
	r := h.next
	h.next++
	return r
}

// Retain increments r's refcount. Called whenever a heap value is aliased.
func (h *Heap) Retain(r Ref) {
	obj, ok := h.objects[r]
	if !ok {
		panic(fmt.Sprintf("heap: retain of unknown ref %d", r))
	}
	obj.refcount++
}

// Release decrements r's refcount, freeing the object when it reaches zero.
// Freeing a list releases every element ref it holds, transitively.
func (h *Heap) Release(r Ref) {
	obj, ok := h.objects[r]
	if !ok {
		panic(fmt.Sprintf("heap: release of unknown ref %d", r))
	}
	obj.refcount--
	if obj.refcount > 0 {
		return
	}
	if obj.kind == KindList {
		for _, er := range obj.list {
			h.Release(er)
		}
	}
	delete(h.objects, r)
}

// String returns the string backing r. Panics if r is not a string object.
func (h *Heap) String(r Ref) string {
	obj := h.objects[r]
	if obj.kind != KindString {
		panic("heap: String() called on a non-string ref")
	}
	return obj.str
}

// ListElems returns the element refs backing r. Panics if r is not a list
// object.
func (h *Heap) ListElems(r Ref) []Ref {
	obj := h.objects[r]
	if obj.kind != KindList {
		panic("heap: ListElems() called on a non-list ref")
	}
	return obj.list
}

// Scalars returns the packed scalar element bytes backing r (for lists
// whose element type is not itself refcounted). Panics if r is not a list
// object.
func (h *Heap) Scalars(r Ref) []byte {
	obj := h.objects[r]
	if obj.kind != KindList {
		panic("heap: Scalars() called on a non-list ref")
	}
	return obj.scalars
}

// Len reports how many elements r holds. elemRefcounted tells it which of
// the two backing representations (element refs vs packed scalar bytes) is
// in use, matching the list's element layout.
func (h *Heap) Len(r Ref, elemRefcounted bool, elemSize uint32) int {
	obj := h.objects[r]
	if obj.kind != KindList {
		panic("heap: Len() called on a non-list ref")
	}
	if elemRefcounted || elemSize == 0 {
		return len(obj.list)
	}
	return len(obj.scalars) / int(elemSize)
}

// RefCount reports r's current refcount, for tests asserting refcount
// balance.
func (h *Heap) RefCount(r Ref) int {
	obj, ok := h.objects[r]
	if !ok {
		return 0
	}
	return obj.refcount
}

// Live reports how many objects are still allocated. A successful top-level
// evaluation should end with Live()==1 (just the result, if it is itself
// heap-backed) or 0.
func (h *Heap) Live() int { return len(h.objects) }
