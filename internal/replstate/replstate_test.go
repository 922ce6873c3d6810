package replstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositeSourceSkipsImports(t *testing.T) {
	h := NewHistory()
	h.Append(Definition{Source: "x = 5", Kind: KindAssignment, Name: "x"})
	h.Append(Definition{Source: "import json", Kind: KindImport})
	h.Append(Definition{Source: "y = x + 1", Kind: KindAssignment, Name: "y"})

	assert.Equal(t, "x = 5\ny = x + 1\n", h.CompositeSource())
	assert.Len(t, h.All(), 3)
}

func TestLatestRHSPicksNewestAssignment(t *testing.T) {
	h := NewHistory()
	h.Append(Definition{Source: "x = 5", Kind: KindAssignment, Name: "x"})
	h.Append(Definition{Source: "x = 6 + 1", Kind: KindAssignment, Name: "x"})

	rhs, ok := h.LatestRHS("x")
	require.True(t, ok)
	assert.Equal(t, "6 + 1", rhs)

	_, ok = h.LatestRHS("missing")
	assert.False(t, ok)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	h := NewHistory()
	h.Append(Definition{Source: "x = 5", Kind: KindAssignment, Name: "x"})
	h.Append(Definition{Source: "import json", Kind: KindImport})
	h.Append(Definition{Source: "y = x * 2", Kind: KindAssignment, Name: "y"})

	data := h.Save()
	loaded := Load(data)

	require.Len(t, loaded.All(), 3)
	assert.Equal(t, h.All()[0].Source, loaded.All()[0].Source)
	assert.Equal(t, KindImport, loaded.All()[1].Kind)
	assert.Equal(t, "y", loaded.All()[2].Name)
	assert.Equal(t, h.CompositeSource(), loaded.CompositeSource())
}

func TestClassifyRederivesKinds(t *testing.T) {
	tests := []struct {
		src      string
		wantKind Kind
		wantName string
	}{
		{"x = 5", KindAssignment, "x"},
		{"import foo", KindImport, ""},
		{"x == 5", KindAssignment, ""}, // an expression, not a binding
		{"my_var2 = f(1)", KindAssignment, "my_var2"},
	}
	for _, tc := range tests {
		d := classify(tc.src)
		assert.Equal(t, tc.wantKind, d.Kind, tc.src)
		assert.Equal(t, tc.wantName, d.Name, tc.src)
	}
}
