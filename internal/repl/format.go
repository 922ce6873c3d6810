package repl

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lukewilliamboswell/roc-sub001/internal/heap"
	"github.com/lukewilliamboswell/roc-sub001/internal/interp"
	"github.com/lukewilliamboswell/roc-sub001/internal/layout"
)

// FormatValue renders result's bytes as Roc-like surface syntax, reading
// through the interpreter's stack and heap per its layout. Used by the REPL
// to print `<value> : <type>` lines and by the snapshot harness's EXPECTED
// section for REPL-kind snapshots.
func FormatValue(ip *interp.Interp, result *interp.Result) string {
	return formatAt(ip, result.Layout, result.Offset)
}

func formatAt(ip *interp.Interp, l *layout.Layout, offset uint32) string {
	switch l.Kind {
	case layout.KindScalar:
		switch l.Tag {
		case layout.TagBool:
			return strconv.FormatBool(ip.Stack.ReadBool(offset))
		case layout.TagInt:
			return strconv.FormatInt(ip.Stack.ReadInt64(offset), 10)
		case layout.TagFrac:
			return strconv.FormatFloat(ip.Stack.ReadFloat64(offset), 'g', -1, 64)
		case layout.TagStr:
			ref := heap.Ref(ip.Stack.ReadUint32(offset))
			return strconv.Quote(ip.Heap.String(ref))
		}
	case layout.KindRecord:
		var parts []string
		for _, f := range l.Fields {
			if f.Name == "$tag" {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s: %s", f.Name, formatAt(ip, f.Layout, offset+f.Offset)))
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	case layout.KindTuple:
		var parts []string
		for _, f := range l.Fields {
			parts = append(parts, formatAt(ip, f.Layout, offset+f.Offset))
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case layout.KindList:
		ref := heap.Ref(ip.Stack.ReadUint32(offset))
		n := ip.Heap.Len(ref, l.Elem.Refcounted, l.Elem.Size)
		parts := make([]string, 0, n)
		for i := 0; i < n; i++ {
			parts = append(parts, formatListElem(ip, l.Elem, ref, i))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case layout.KindClosure:
		return "<function>"
	}
	return "<unprintable>"
}

// formatListElem renders the i'th element of the list backed by ref.
// Heap-backed elements (strings and nested lists) go through the heap: a
// string prints quoted, any other heap-backed element prints as <value>.
// Scalar elements are decoded directly out of the packed scalar byte slice
// using the element layout's own tag.
func formatListElem(ip *interp.Interp, elemLayout *layout.Layout, ref heap.Ref, i int) string {
	if elemLayout.Refcounted {
		elemRef := ip.Heap.ListElems(ref)[i]
		if elemLayout.Tag == layout.TagStr {
			return strconv.Quote(ip.Heap.String(elemRef))
		}
		return "<value>"
	}
	scalars := ip.Heap.Scalars(ref)
	sz := elemLayout.Size
	b := scalars[uint32(i)*sz : uint32(i)*sz+sz]
	switch elemLayout.Tag {
	case layout.TagInt:
		return strconv.FormatInt(int64(binary.LittleEndian.Uint64(b)), 10)
	case layout.TagBool:
		return strconv.FormatBool(b[0] != 0)
	case layout.TagFrac:
		return strconv.FormatFloat(math.Float64frombits(binary.LittleEndian.Uint64(b)), 'g', -1, 64)
	}
	return "<value>"
}
