// Package snapshot implements the golden-file format the test suite
// validates pipeline stages against: a text file of labeled `# NAME`
// sections, some hand-written (META, SOURCE, EXPECTED) and some generated
// deterministically from SOURCE (TOKENS, PARSE, FORMATTED, CANONICALIZE,
// TYPES, PROBLEMS). Regeneration rewrites only the generated sections; a
// test passes when regenerating a file reproduces it byte for byte.
package snapshot

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/lukewilliamboswell/roc-sub001/internal/ast"
	"github.com/lukewilliamboswell/roc-sub001/internal/canon"
	"github.com/lukewilliamboswell/roc-sub001/internal/config"
	"github.com/lukewilliamboswell/roc-sub001/internal/diagnostics"
	"github.com/lukewilliamboswell/roc-sub001/internal/ident"
	"github.com/lukewilliamboswell/roc-sub001/internal/interp"
	"github.com/lukewilliamboswell/roc-sub001/internal/lexer"
	"github.com/lukewilliamboswell/roc-sub001/internal/parser"
	"github.com/lukewilliamboswell/roc-sub001/internal/region"
	"github.com/lukewilliamboswell/roc-sub001/internal/repl"
	"github.com/lukewilliamboswell/roc-sub001/internal/token"
	"github.com/lukewilliamboswell/roc-sub001/internal/types"
)

// Kind is the recognized META `type` value.
type Kind string

const (
	KindFile      Kind = "file"
	KindExpr      Kind = "expr"
	KindStatement Kind = "statement"
	KindHeader    Kind = "header"
	KindRepl      Kind = "repl"
)

// generatedSections lists every section name Regenerate owns, in fixed
// order.
var generatedSections = []string{"TOKENS", "PARSE", "FORMATTED", "CANONICALIZE", "TYPES", "PROBLEMS"}

// Snapshot is a parsed `.snap` file: an ordered section name -> body map,
// preserving every section (including unrecognized ones) so round-tripping
// never silently drops content.
type Snapshot struct {
	Order    []string
	Sections map[string]string
}

// Description returns META's description= value, empty if absent.
func (s *Snapshot) Description() string { return s.metaField("description") }

// Type returns META's type= value as a Kind, defaulting to KindExpr.
func (s *Snapshot) Type() Kind {
	if t := s.metaField("type"); t != "" {
		return Kind(t)
	}
	return KindExpr
}

func (s *Snapshot) metaField(key string) string {
	meta := s.Sections["META"]
	for _, line := range strings.Split(meta, "\n") {
		if name, val, ok := strings.Cut(line, "="); ok && strings.TrimSpace(name) == key {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

// Source returns the SOURCE section's fenced content, with the fence lines
// stripped.
func (s *Snapshot) Source() string {
	return stripFence(s.Sections["SOURCE"])
}

func stripFence(body string) string {
	lines := strings.Split(body, "\n")
	start, end := 0, len(lines)
	if start < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[start]), "```") {
		start++
	}
	if end > start && strings.HasPrefix(strings.TrimSpace(lines[end-1]), "```") {
		end--
	}
	return strings.TrimRight(strings.Join(lines[start:end], "\n"), "\n")
}

func fence(body string) string {
	if body == "" {
		return "```\n```"
	}
	return "```\n" + body + "\n```"
}

// Parse reads a snapshot file's text into its section map.
func Parse(text string) (*Snapshot, error) {
	s := &Snapshot{Sections: map[string]string{}}
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 64*1024), 1<<20)

	var current string
	var body strings.Builder
	flush := func() {
		if current != "" {
			s.Sections[current] = strings.TrimRight(body.String(), "\n")
		}
	}
	for sc.Scan() {
		line := sc.Text()
		if name, ok := sectionHeader(line); ok {
			flush()
			current = name
			s.Order = append(s.Order, name)
			body.Reset()
			continue
		}
		if current == "" {
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if _, ok := s.Sections["META"]; !ok {
		return nil, fmt.Errorf("snapshot: missing required META section")
	}
	return s, nil
}

func sectionHeader(line string) (string, bool) {
	if !strings.HasPrefix(line, "# ") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(line, "# ")), true
}

// Regenerate recomputes every generated section from SOURCE, preserving
// hand-written sections (META, SOURCE, EXPECTED) and any section ordering
// not among the generated set.
func (s *Snapshot) Regenerate() {
	source := s.Source()

	toks, lexErrs := lexer.Tokenize(source)
	s.Sections["TOKENS"] = renderTokens(toks)

	block, parseErrs := parser.ParseProgram(source)
	s.Sections["PARSE"] = ast.Print(block)
	s.Sections["FORMATTED"] = "NO CHANGE"

	idents := ident.New()
	arena, rootIdx, canonErrs := canon.CanonicalizeExpr(idents, block)
	s.Sections["CANONICALIZE"] = arena.SExpr(rootIdx)

	var problems []*diagnostics.Report
	problems = append(problems, lexErrs...)
	problems = append(problems, parseErrs...)
	problems = append(problems, canonErrs...)

	anno, terr := types.Solve(arena, rootIdx)
	if terr != nil {
		s.Sections["TYPES"] = "NIL"
	} else {
		s.Sections["TYPES"] = anno.ExprTypes[rootIdx].String()
	}

	if len(problems) == 0 && terr == nil {
		ip := interp.New(arena, anno, nil)
		if _, err := ip.Eval(rootIdx); err != nil {
			problems = append(problems, reportOf(err))
		}
	}
	s.Sections["PROBLEMS"] = renderProblems(problems)

	for _, name := range generatedSections {
		if !containsString(s.Order, name) {
			s.Order = append(s.Order, name)
		}
	}
}

// ReplOutputs drives each SOURCE line of a repl-kind snapshot through a
// fresh session and returns the per-line outputs, the sequence EXPECTED
// compares against (joined by `---` separators in the file).
func (s *Snapshot) ReplOutputs() []string {
	sess := repl.NewSession(io.Discard, config.Options{NoColor: true, NoHeader: true})
	var outputs []string
	for _, line := range strings.Split(s.Source(), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		res := sess.HandleLine(line)
		outputs = append(outputs, res.Output)
	}
	return outputs
}

// ExpectedReplOutputs splits a repl-kind snapshot's EXPECTED section into
// its `---`-separated per-line outputs.
func (s *Snapshot) ExpectedReplOutputs() []string {
	body := strings.TrimSpace(s.Sections["EXPECTED"])
	if body == "" || body == "NIL" {
		return nil
	}
	parts := strings.Split(body, "---")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

func reportOf(err error) *diagnostics.Report {
	switch e := err.(type) {
	case *interp.RuntimeError:
		return e.Report
	case *interp.FatalError:
		return e.Report
	default:
		return diagnostics.New(diagnostics.PhaseRuntime, diagnostics.ErrInternal, region.Region{}, err.Error())
	}
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func renderTokens(toks []token.Token) string {
	var b strings.Builder
	for _, t := range toks {
		b.WriteString(t.String())
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderProblems(reports []*diagnostics.Report) string {
	if len(reports) == 0 {
		return "NIL"
	}
	lines := make([]string, len(reports))
	for i, r := range reports {
		lines[i] = r.Error()
	}
	return strings.Join(lines, "\n")
}

// String renders s back to the full `.snap` file text, sections in Order.
func (s *Snapshot) String() string {
	var b strings.Builder
	for _, name := range s.Order {
		fmt.Fprintf(&b, "# %s\n", name)
		body := s.Sections[name]
		if name == "SOURCE" && !strings.Contains(body, "```") {
			body = fence(body)
		}
		b.WriteString(body)
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// SortedSections returns every section name this snapshot holds, sorted,
// for diagnostics and tests that want a deterministic listing.
func (s *Snapshot) SortedSections() []string {
	names := make([]string, 0, len(s.Sections))
	for name := range s.Sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
