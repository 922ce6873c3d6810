package repl

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lukewilliamboswell/roc-sub001/internal/config"
)

func TestHandleLine_AssignmentEchoesValue(t *testing.T) {
	sess := NewSession(&bytes.Buffer{}, config.Options{})

	res := sess.HandleLine("x = 5")
	assert.Equal(t, "5 : Int", res.Output)
	assert.False(t, res.Quit)
}

func TestHandleLine_ShadowingRecomputesLatestBinding(t *testing.T) {
	sess := NewSession(&bytes.Buffer{}, config.Options{})

	tests := []struct {
		description string
		line        string
		want        string
	}{
		{"define x", "x = 5", "5 : Int"},
		{"define y from x", "y = x + 1", "6 : Int"},
		{"redefine x", "x = 6", "6 : Int"},
		{"re-enter y sees latest x", "y", "7 : Int"},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			res := sess.HandleLine(tc.line)
			assert.Equal(t, tc.want, res.Output)
		})
	}
}

func TestHandleLine_RedefinitionDoesNotSurfaceScopeDiagnostic(t *testing.T) {
	sess := NewSession(&bytes.Buffer{}, config.Options{})

	sess.HandleLine("x = 1")
	res := sess.HandleLine("x = 2")

	assert.Equal(t, "2 : Int", res.Output)
	assert.NotContains(t, res.Output, "already in scope")
}

func TestHandleLine_MetaCommands(t *testing.T) {
	sess := NewSession(&bytes.Buffer{}, config.Options{})

	help := sess.HandleLine(":help")
	assert.Contains(t, help.Output, "show this message")
	assert.False(t, help.Quit)

	quit := sess.HandleLine(":quit")
	assert.True(t, quit.Quit)
}

func TestHandleLine_BlankLineIsNoop(t *testing.T) {
	sess := NewSession(&bytes.Buffer{}, config.Options{})

	res := sess.HandleLine("   ")
	assert.Equal(t, LineResult{}, res)
}

func TestHandleLine_ImportIsRecordedAndSilent(t *testing.T) {
	sess := NewSession(&bytes.Buffer{}, config.Options{})

	res := sess.HandleLine("import foo")
	assert.Equal(t, "", res.Output)
	assert.Len(t, sess.History.All(), 1)
	assert.Equal(t, "import foo", sess.History.All()[0].Source)
}

func TestHandleLine_ShadowedBlockBindingUsesInnerValue(t *testing.T) {
	// A block rebinding a name in its own scope reports the redefinition
	// but still evaluates using the inner binding, so the REPL prints the
	// computed value rather than the diagnostic.
	sess := NewSession(&bytes.Buffer{}, config.Options{})

	res := sess.HandleLine("{ a = 1; a = 2; a }")
	assert.Equal(t, "2 : Int", res.Output)
}

func TestHandleLine_UnresolvedNameIsReported(t *testing.T) {
	sess := NewSession(&bytes.Buffer{}, config.Options{})

	res := sess.HandleLine("doesNotExist")
	assert.Contains(t, res.Output, "doesNotExist")
}

func TestIsBareIdent(t *testing.T) {
	tests := []struct {
		description string
		input       string
		want        bool
	}{
		{"simple name", "y", true},
		{"underscored name", "_foo", true},
		{"alnum tail", "foo2", true},
		{"expression", "y + 1", false},
		{"empty", "", false},
		{"leading digit", "2foo", false},
	}
	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			assert.Equal(t, tc.want, isBareIdent(tc.input))
		})
	}
}

func TestHandleLine_SaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.txtar")

	sess := NewSession(&bytes.Buffer{}, config.Options{})
	sess.HandleLine("x = 5")
	sess.HandleLine("y = x * 2")

	res := sess.HandleLine(":save " + path)
	assert.Contains(t, res.Output, "saved 2 definitions")

	fresh := NewSession(&bytes.Buffer{}, config.Options{})
	res = fresh.HandleLine(":load " + path)
	assert.Contains(t, res.Output, "loaded 2 definitions")

	res = fresh.HandleLine("y")
	assert.Equal(t, "10 : Int", res.Output)
}

func TestHandleLine_SaveWithoutPath(t *testing.T) {
	sess := NewSession(&bytes.Buffer{}, config.Options{})
	res := sess.HandleLine(":save")
	assert.Contains(t, res.Output, "usage")

	res = sess.HandleLine(":load")
	assert.Contains(t, res.Output, "usage")
}

func TestRunLoopQuitsOnMetaCommand(t *testing.T) {
	var out bytes.Buffer
	sess := NewSession(&out, config.Options{NoHeader: true})

	err := sess.RunLoop(strings.NewReader("1 + 1\n:q\n"))
	assert.NoError(t, err)
	assert.Contains(t, out.String(), "2 : Int")
	assert.Contains(t, out.String(), Prompt)
}

func TestBannerSuppressedByNoHeader(t *testing.T) {
	sess := NewSession(&bytes.Buffer{}, config.Options{NoHeader: true})
	assert.Equal(t, "", sess.Banner())

	sess = NewSession(&bytes.Buffer{}, config.Options{})
	assert.Contains(t, sess.Banner(), "roc repl")
	assert.Contains(t, sess.Banner(), sess.ID.String())
}
