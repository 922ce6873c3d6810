// Package layout maps solved types to concrete memory layouts: size,
// alignment, and shape. A Cache memoizes one Layout per distinct type so
// that two IR nodes sharing a solved type always share one Layout value.
package layout

import (
	"fmt"

	"github.com/lukewilliamboswell/roc-sub001/internal/cir"
	"github.com/lukewilliamboswell/roc-sub001/internal/types"
)

// ScalarTag distinguishes the primitive shapes a scalar Layout can take.
type ScalarTag int

const (
	TagBool ScalarTag = iota
	TagInt
	TagFrac
	TagStr
)

// Kind is the shape discriminant of a Layout.
type Kind int

const (
	KindScalar Kind = iota
	KindRecord
	KindTuple
	KindList
	KindClosure
)

// FieldLayout is one member of a record or tuple, with its byte offset
// inside the aggregate already computed.
type FieldLayout struct {
	Name   string
	Offset uint32
	Layout *Layout
}

// Layout is a concrete runtime shape: size, alignment, and enough structure
// to read or write a value of that shape on the value stack.
type Layout struct {
	Kind   Kind
	Tag    ScalarTag // valid iff Kind == KindScalar
	Size   uint32
	Align  uint32
	Fields []FieldLayout // KindRecord, KindTuple
	Elem   *Layout       // KindList

	// Closure-only fields. BodyRef and Params identify which CIR lambda
	// this layout belongs to; EnvSize is the packed size of its capture
	// environment; CaptureFields gives each capture's offset within
	// env_bytes in the lambda's declared capture order. CapturePatterns
	// runs parallel to CaptureFields, naming the outer pattern each slot
	// was captured from, so a call can re-install captures into the
	// callee's binding table under the same PatternIdx the body's
	// e_lookup_local nodes already reference.
	BodyRef         cir.ExprIdx
	Params          []cir.PatternIdx
	EnvSize         uint32
	CaptureFields   []FieldLayout
	CapturePatterns []cir.PatternIdx

	Refcounted bool
}

const (
	closureHeaderSize  = 12 // body_ref(4) + param_count(4) + env_size(4)
	closureHeaderAlign = 4
)

// HeaderSize is the fixed portion of a closure value before env_bytes.
func (l *Layout) HeaderSize() uint32 { return closureHeaderSize }

// Cache memoizes Layout values by a type's string representation, plus (for
// closures) the originating lambda's body index, since two lambdas can
// share a structural function type while capturing different environments.
type Cache struct {
	entries map[string]*Layout
}

// NewCache returns an empty layout cache.
func NewCache() *Cache {
	return &Cache{entries: map[string]*Layout{}}
}

// Of computes (or returns the memoized) Layout for a non-closure type.
// Closures must go through OfClosure, since their layout additionally
// depends on the lambda's own declared capture list, not on the function
// type alone.
func (c *Cache) Of(t types.Type) (*Layout, error) {
	key := t.String()
	if l, ok := c.entries[key]; ok {
		return l, nil
	}
	l, err := c.build(t)
	if err != nil {
		return nil, err
	}
	c.entries[key] = l
	return l, nil
}

func (c *Cache) build(t types.Type) (*Layout, error) {
	switch tt := t.(type) {
	case types.TCon:
		switch tt.Name {
		case "Bool":
			return &Layout{Kind: KindScalar, Tag: TagBool, Size: 1, Align: 1}, nil
		case "Int":
			return &Layout{Kind: KindScalar, Tag: TagInt, Size: 8, Align: 8}, nil
		case "Frac":
			return &Layout{Kind: KindScalar, Tag: TagFrac, Size: 8, Align: 8}, nil
		case "Str":
			return &Layout{Kind: KindScalar, Tag: TagStr, Size: 8, Align: 8, Refcounted: true}, nil
		}
		return nil, fmt.Errorf("layout: unknown scalar type constant %q", tt.Name)
	case types.TRecord:
		fieldTypes := make([]*Layout, len(tt.Fields))
		names := make([]string, len(tt.Fields))
		for i, f := range tt.Fields {
			fl, err := c.Of(f.Type)
			if err != nil {
				return nil, err
			}
			fieldTypes[i] = fl
			names[i] = f.Name
		}
		return packAggregate(KindRecord, names, fieldTypes), nil
	case types.TTuple:
		fieldTypes := make([]*Layout, len(tt.Elements))
		names := make([]string, len(tt.Elements))
		for i, el := range tt.Elements {
			fl, err := c.Of(el)
			if err != nil {
				return nil, err
			}
			fieldTypes[i] = fl
			names[i] = fmt.Sprintf("_%d", i)
		}
		return packAggregate(KindTuple, names, fieldTypes), nil
	case types.TList:
		elem, err := c.Of(tt.Elem)
		if err != nil {
			return nil, err
		}
		return &Layout{Kind: KindList, Elem: elem, Size: 8, Align: 8, Refcounted: true}, nil
	case types.TTag:
		// A bare tag value outside a union context is laid out as a small
		// record: a discriminant slot followed by its own payload fields.
		// Real tag-union discrimination (picking a shared size across every
		// tag in a union type) belongs to a fuller type system than this
		// solver implements.
		fieldTypes := make([]*Layout, len(tt.Payload)+1)
		names := make([]string, len(tt.Payload)+1)
		fieldTypes[0] = &Layout{Kind: KindScalar, Tag: TagInt, Size: 8, Align: 8}
		names[0] = "$tag"
		for i, p := range tt.Payload {
			fl, err := c.Of(p)
			if err != nil {
				return nil, err
			}
			fieldTypes[i+1] = fl
			names[i+1] = fmt.Sprintf("_%d", i)
		}
		return packAggregate(KindRecord, names, fieldTypes), nil
	case types.TFunc:
		return nil, fmt.Errorf("layout: closure layout requires its declared captures; call OfClosure")
	case types.TVar:
		return nil, fmt.Errorf("layout: cannot compute a layout for unresolved type variable %s", tt.Name)
	}
	return nil, fmt.Errorf("layout: unsupported type %T", t)
}

// OfClosure computes (or returns the memoized) Layout for the lambda at
// bodyRef, given its parameter patterns and the already-computed layout of
// each declared capture (in capture-declaration order). Keyed by bodyRef
// rather than by function type: within one module arena, a lambda's body
// index uniquely identifies it, so this still satisfies "two nodes with the
// same originating lambda share one layout."
func (c *Cache) OfClosure(bodyRef cir.ExprIdx, params []cir.PatternIdx, captureLayouts []*Layout, capturePatterns []cir.PatternIdx) *Layout {
	key := fmt.Sprintf("closure#%d", bodyRef)
	if l, ok := c.entries[key]; ok {
		return l
	}

	names := make([]string, len(captureLayouts))
	for i := range captureLayouts {
		names[i] = fmt.Sprintf("capture_%d", i)
	}
	packed := packAggregate(KindRecord, names, captureLayouts)

	l := &Layout{
		Kind:            KindClosure,
		BodyRef:         bodyRef,
		Params:          params,
		EnvSize:         packed.Size,
		CaptureFields:   packed.Fields,
		CapturePatterns: append([]cir.PatternIdx(nil), capturePatterns...),
		Size:            closureHeaderSize + packed.Size,
		Align:           closureHeaderAlign,
	}
	c.entries[key] = l
	return l
}

// packAggregate lays out fields in source order with natural alignment
// padding, the way a C struct packs its members.
func packAggregate(kind Kind, names []string, fieldLayouts []*Layout) *Layout {
	var offset uint32
	var maxAlign uint32 = 1
	fields := make([]FieldLayout, len(fieldLayouts))
	for i, fl := range fieldLayouts {
		if fl.Align > maxAlign {
			maxAlign = fl.Align
		}
		offset = alignUp(offset, fl.Align)
		fields[i] = FieldLayout{Name: names[i], Offset: offset, Layout: fl}
		offset += fl.Size
	}
	size := alignUp(offset, maxAlign)
	return &Layout{Kind: kind, Fields: fields, Size: size, Align: maxAlign}
}

// TagDiscriminant derives the stable integer written into a tag value's
// synthetic "$tag" field from its source name. Two ETag/PTag nodes with the
// same name always produce the same discriminant, which is what lets a
// match branch compare a scrutinee's discriminant against a pattern's
// without carrying the name itself onto the value stack.
func TagDiscriminant(name string) int64 {
	var h uint64 = 14695981039346656037 // FNV-1a offset basis
	for i := 0; i < len(name); i++ {
		h ^= uint64(name[i])
		h *= 1099511628211 // FNV-1a prime
	}
	return int64(h)
}

func alignUp(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	rem := offset % align
	if rem == 0 {
		return offset
	}
	return offset + (align - rem)
}
