package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukewilliamboswell/roc-sub001/internal/cir"
	"github.com/lukewilliamboswell/roc-sub001/internal/types"
)

func TestScalarLayouts(t *testing.T) {
	c := NewCache()

	tests := []struct {
		typ        types.Type
		tag        ScalarTag
		size       uint32
		align      uint32
		refcounted bool
	}{
		{types.Bool, TagBool, 1, 1, false},
		{types.Int, TagInt, 8, 8, false},
		{types.Frac, TagFrac, 8, 8, false},
		{types.Str, TagStr, 8, 8, true},
	}
	for _, tc := range tests {
		l, err := c.Of(tc.typ)
		require.NoError(t, err)
		assert.Equal(t, KindScalar, l.Kind)
		assert.Equal(t, tc.tag, l.Tag)
		assert.Equal(t, tc.size, l.Size)
		assert.Equal(t, tc.align, l.Align)
		assert.Equal(t, tc.refcounted, l.Refcounted)
	}
}

func TestRecordPackingWithPadding(t *testing.T) {
	c := NewCache()
	l, err := c.Of(types.TRecord{Fields: []types.TRecordField{
		{Name: "flag", Type: types.Bool},
		{Name: "count", Type: types.Int},
		{Name: "tail", Type: types.Bool},
	}})
	require.NoError(t, err)

	require.Len(t, l.Fields, 3)
	assert.Equal(t, uint32(0), l.Fields[0].Offset)
	assert.Equal(t, uint32(8), l.Fields[1].Offset, "int field is padded to its alignment")
	assert.Equal(t, uint32(16), l.Fields[2].Offset)
	assert.Equal(t, uint32(24), l.Size, "total size is rounded up to max alignment")
	assert.Equal(t, uint32(8), l.Align)
}

func TestTupleLayout(t *testing.T) {
	c := NewCache()
	l, err := c.Of(types.TTuple{Elements: []types.Type{types.Int, types.Bool}})
	require.NoError(t, err)
	assert.Equal(t, KindTuple, l.Kind)
	assert.Equal(t, uint32(0), l.Fields[0].Offset)
	assert.Equal(t, uint32(8), l.Fields[1].Offset)
	assert.Equal(t, uint32(16), l.Size)
}

func TestListLayoutIsRefcountedHandle(t *testing.T) {
	c := NewCache()
	l, err := c.Of(types.TList{Elem: types.Int})
	require.NoError(t, err)
	assert.Equal(t, KindList, l.Kind)
	assert.True(t, l.Refcounted)
	assert.Equal(t, uint32(8), l.Size)
	assert.Equal(t, TagInt, l.Elem.Tag)
}

func TestMemoizationReturnsSameLayout(t *testing.T) {
	c := NewCache()
	rec := types.TRecord{Fields: []types.TRecordField{{Name: "a", Type: types.Int}}}

	l1, err := c.Of(rec)
	require.NoError(t, err)
	l2, err := c.Of(rec)
	require.NoError(t, err)
	assert.Same(t, l1, l2, "two nodes with the same solved type share one layout")
}

func TestClosureLayout(t *testing.T) {
	c := NewCache()
	intL, err := c.Of(types.Int)
	require.NoError(t, err)
	boolL, err := c.Of(types.Bool)
	require.NoError(t, err)

	l := c.OfClosure(cir.ExprIdx(5), []cir.PatternIdx{1},
		[]*Layout{intL, boolL}, []cir.PatternIdx{2, 3})

	assert.Equal(t, KindClosure, l.Kind)
	assert.Equal(t, cir.ExprIdx(5), l.BodyRef)
	require.Len(t, l.CaptureFields, 2)
	assert.Equal(t, uint32(0), l.CaptureFields[0].Offset)
	assert.Equal(t, uint32(8), l.CaptureFields[1].Offset)
	assert.Equal(t, uint32(16), l.EnvSize, "env is padded to its own alignment")
	assert.Equal(t, l.HeaderSize()+l.EnvSize, l.Size)
	assert.Equal(t, []cir.PatternIdx{2, 3}, l.CapturePatterns)

	again := c.OfClosure(cir.ExprIdx(5), nil, nil, nil)
	assert.Same(t, l, again, "closure layouts memoize by body index")
}

func TestFunctionTypeRequiresOfClosure(t *testing.T) {
	c := NewCache()
	_, err := c.Of(types.TFunc{Params: []types.Type{types.Int}, Ret: types.Int})
	assert.Error(t, err)
}

func TestUnresolvedTypeVariableFails(t *testing.T) {
	c := NewCache()
	_, err := c.Of(types.TVar{Name: "t1"})
	assert.Error(t, err)
}

func TestTagDiscriminantStableAndDistinct(t *testing.T) {
	assert.Equal(t, TagDiscriminant("Some"), TagDiscriminant("Some"))
	assert.NotEqual(t, TagDiscriminant("Some"), TagDiscriminant("None"))
}
