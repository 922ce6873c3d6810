// Package closure is the runtime representation of lambdas and the per-call
// binding record: closure values laid out contiguously on the value stack,
// the 24-byte call frame that records a callee's position without
// back-walking the stack, and the binding table that gives e_lookup_local a
// single uniform lookup path regardless of whether a name came from a
// parameter or a capture.
package closure

import (
	"github.com/lukewilliamboswell/roc-sub001/internal/cir"
	"github.com/lukewilliamboswell/roc-sub001/internal/layout"
	"github.com/lukewilliamboswell/roc-sub001/internal/stack"
)

// CallFrameSize is the fixed 24-byte record written to the value stack at
// every call.
const CallFrameSize = 24

// CallFrame records a callee's position and layout so parameter binding
// need not reconstruct them by scanning backward through the stack.
type CallFrame struct {
	FunctionPos       uint32
	FunctionLayoutIdx uint32 // index into the interpreter's parallel layout stack
	ReturnLayoutIdx   uint32 // index into the interpreter's parallel layout stack
	ArgCount          uint32
}

// WriteCallFrame writes f as a 24-byte record at base.
func WriteCallFrame(st *stack.Stack, base uint32, f CallFrame) {
	st.WriteUint32(base, f.FunctionPos)
	st.WriteUint32(base+4, f.FunctionLayoutIdx)
	st.WriteUint32(base+8, f.ReturnLayoutIdx)
	st.WriteUint32(base+12, f.ArgCount)
	// bytes [16,24) reserved, kept zero; only 16 are meaningful today.
}

// ReadCallFrame reads the 24-byte record at base.
func ReadCallFrame(st *stack.Stack, base uint32) CallFrame {
	return CallFrame{
		FunctionPos:       st.ReadUint32(base),
		FunctionLayoutIdx: st.ReadUint32(base + 4),
		ReturnLayoutIdx:   st.ReadUint32(base + 8),
		ArgCount:          st.ReadUint32(base + 12),
	}
}

// Binding is a pattern's current location: its byte offset on the value
// stack and the layout needed to interpret those bytes.
type Binding struct {
	Offset uint32
	Layout *layout.Layout
}

// Table is one in-flight call's binding table: a map from PatternIdx to the
// byte range holding that pattern's current value. e_lookup_local searches
// only the top table; captures are pre-installed from the closure's
// environment so parameters and captures resolve identically.
type Table struct {
	bindings map[cir.PatternIdx]Binding
	parent   *Table
}

// NewTable returns a fresh binding table, optionally chained to parent (a
// REPL's top-level "Past Definitions" table, evaluated as the enclosing
// scope of the current line's expression).
func NewTable(parent *Table) *Table {
	return &Table{bindings: map[cir.PatternIdx]Binding{}, parent: parent}
}

// Bind installs or replaces the binding for pattern in this table.
func (t *Table) Bind(pattern cir.PatternIdx, b Binding) {
	t.bindings[pattern] = b
}

// Lookup finds pattern's binding, searching this table then its parent
// chain.
func (t *Table) Lookup(pattern cir.PatternIdx) (Binding, bool) {
	for cur := t; cur != nil; cur = cur.parent {
		if b, ok := cur.bindings[pattern]; ok {
			return b, true
		}
	}
	return Binding{}, false
}

// Value constructs a closure value at a freshly allocated stack slot.
// captures gives, for each of the lambda's declared CaptureVar entries (in
// order), the binding currently holding that captured pattern's value. Each
// capture's bytes are copied into the environment at its packed offset; the
// caller retains any refcounted contents afterwards, since refcount
// traversal lives with the interpreter, not with this layout code.
func Value(st *stack.Stack, l *layout.Layout, captures []Binding) (uint32, error) {
	base, err := st.Alloc(l.Size, l.Align)
	if err != nil {
		return 0, err
	}
	st.WriteUint32(base, uint32(l.BodyRef))
	st.WriteUint32(base+4, uint32(len(l.Params)))
	st.WriteUint32(base+8, l.EnvSize)

	envBase := base + l.HeaderSize()
	for i, cf := range l.CaptureFields {
		src := captures[i]
		srcBytes := st.Slice(src.Offset, cf.Layout.Size)
		st.CopyFrom(envBase+cf.Offset, srcBytes)
	}
	return base, nil
}

// BodyRef reads the body expression index out of a closure value at base.
func BodyRef(st *stack.Stack, base uint32) cir.ExprIdx {
	return cir.ExprIdx(st.ReadUint32(base))
}

// EnvBase returns the offset of the first capture-environment byte within a
// closure value at base.
func EnvBase(base uint32, l *layout.Layout) uint32 {
	return base + l.HeaderSize()
}

