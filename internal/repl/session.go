package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"github.com/lukewilliamboswell/roc-sub001/internal/config"
	"github.com/lukewilliamboswell/roc-sub001/internal/replstate"
)

// Session is one REPL conversation: an accumulated history of Past
// Definitions plus the knobs (color, header) a single invocation of
// `rocrepl` was started with. Tagged with a uuid.UUID so a host embedding
// several concurrent sessions — each owning its own stack, heap, and
// history, with nothing shared — can correlate a structured report back to
// the session that produced it.
type Session struct {
	ID      uuid.UUID
	History *replstate.History
	Opts    config.Options

	out    io.Writer
	color  bool
	prompt string

	sawErrors bool
	sawFatal  bool
}

// NewSession returns a fresh session writing prompts and output to out.
// Color is enabled only when out is a real terminal and opts.NoColor is
// false.
func NewSession(out io.Writer, opts config.Options) *Session {
	color := !opts.NoColor && isTerminal(out)
	prompt := opts.Prompt
	if prompt == "" {
		prompt = Prompt
	}
	return &Session{
		ID:      uuid.New(),
		History: replstate.NewHistory(),
		Opts:    opts,
		out:     out,
		color:   color,
		prompt:  prompt,
	}
}

func isTerminal(w io.Writer) bool {
	type fdGetter interface{ Fd() uintptr }
	f, ok := w.(fdGetter)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Prompt is the default line the session shows before reading input,
// overridable through config.Options.
const Prompt = "» "

const (
	ansiCyan  = "\x1b[36m"
	ansiReset = "\x1b[0m"
)

// colorize wraps text in an ANSI color when the session writes to a real
// terminal and color was not disabled.
func (s *Session) colorize(text string) string {
	if !s.color {
		return text
	}
	return ansiCyan + text + ansiReset
}

// Banner renders the startup header shown before the first prompt, unless
// suppressed by --no-header.
func (s *Session) Banner() string {
	if s.Opts.NoHeader {
		return ""
	}
	return fmt.Sprintf("roc repl %s (session %s)\n", config.Version, s.ID)
}

const helpText = `Enter an expression to evaluate it, or a name = expression to
define it for later lines.

  :help          show this message
  :exit, :quit, :q   leave the repl
  :save <path>   write the accumulated definitions to path as a txtar archive
  :load <path>   replace the accumulated definitions from a txtar archive
`

// LineResult is what HandleLine decided to do with one input line.
type LineResult struct {
	Output string // text to print, if any
	Quit   bool
}

// HandleLine classifies one input line — meta-command, import, assignment,
// or expression — and runs it.
func (s *Session) HandleLine(line string) LineResult {
	trimmed := strings.TrimSpace(line)
	switch trimmed {
	case "":
		return LineResult{}
	case ":help":
		return LineResult{Output: helpText}
	case ":exit", ":quit", ":q":
		return LineResult{Quit: true}
	case ":save":
		return LineResult{Output: "usage: :save <path>"}
	case ":load":
		return LineResult{Output: "usage: :load <path>"}
	}
	if rest, ok := cutPrefix(trimmed, ":save "); ok {
		return s.handleSave(strings.TrimSpace(rest))
	}
	if rest, ok := cutPrefix(trimmed, ":load "); ok {
		return s.handleLoad(strings.TrimSpace(rest))
	}

	if strings.HasPrefix(trimmed, "import ") {
		s.History.Append(replstate.Definition{Source: trimmed, Kind: replstate.KindImport})
		return LineResult{Output: s.evalCurrent()}
	}

	if name, isDef := splitAssignment(trimmed); isDef {
		s.History.Append(replstate.Definition{Source: trimmed, Kind: replstate.KindAssignment, Name: name})
		return LineResult{Output: s.evalAssignment(name)}
	}

	return LineResult{Output: s.evalExpr(trimmed)}
}

func cutPrefix(s, prefix string) (string, bool) {
	if !strings.HasPrefix(s, prefix) {
		return "", false
	}
	return s[len(prefix):], true
}

// evalAssignment runs the newly appended definition's bound name back
// through the pipeline, so a fresh binding prints its value the same way
// any other expression does.
func (s *Session) evalAssignment(name string) string {
	return s.evalExpr(name)
}

// evalCurrent gives the output for an import line: an import binds no name
// to redisplay, so it prints nothing and the result is always empty.
func (s *Session) evalCurrent() string {
	return ""
}

// evalExpr builds the composite source (every Past Definition, then expr)
// and runs it through the full pipeline. A diagnostic only becomes the
// printed output when the pipeline failed to compute a value at all; a
// non-fatal redefinition report from a shadowed binding doesn't stop
// canonicalization from producing a usable IR, so the value still prints.
//
// A bare expr that is exactly a previously assigned name is re-entered as
// that definition's own right-hand-side source rather than as the bare
// name: after `x = 5`, `y = x + 1`, `x = 6`, entering `y` must print 7,
// not the 6 computed when y was first bound. A bare name would
// canonicalize to a lookup frozen to the original binding's pattern;
// substituting the source text lets it canonicalize fresh at the end of
// the composite program, so its free variables resolve against the latest
// redefinitions.
func (s *Session) evalExpr(expr string) string {
	trimmed := strings.TrimSpace(expr)
	lookupExpr := expr
	if rhs, ok := s.History.LatestRHS(trimmed); ok && isBareIdent(trimmed) {
		lookupExpr = rhs
	}

	composite := s.History.CompositeSource() + lookupExpr
	outcome := Evaluate(composite)
	if outcome.HasFatal() {
		s.sawFatal = true
	} else if outcome.HasErrors() && !outcome.Ok {
		s.sawErrors = true
	}
	if !outcome.Ok {
		return outcome.Render()
	}
	return fmt.Sprintf("%s : %s", outcome.Value, outcome.Type)
}

// ExitCode maps what the session has seen to its process exit code: 2 after
// any fatal compiler error, 1 after any line whose errors prevented a
// value, 0 otherwise.
func (s *Session) ExitCode() int {
	switch {
	case s.sawFatal:
		return 2
	case s.sawErrors:
		return 1
	default:
		return 0
	}
}

// isBareIdent reports whether s is a single identifier token, the shape that
// triggers the Past-Definition-source substitution above.
func isBareIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return false
		}
		if i > 0 && !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

func (s *Session) handleSave(path string) LineResult {
	if path == "" {
		return LineResult{Output: "usage: :save <path>"}
	}
	data := s.History.Save()
	if err := writeFile(path, data); err != nil {
		return LineResult{Output: fmt.Sprintf("could not save: %s", err)}
	}
	return LineResult{Output: fmt.Sprintf("saved %d definitions to %s", len(s.History.All()), path)}
}

func (s *Session) handleLoad(path string) LineResult {
	if path == "" {
		return LineResult{Output: "usage: :load <path>"}
	}
	data, err := readFile(path)
	if err != nil {
		return LineResult{Output: fmt.Sprintf("could not load: %s", err)}
	}
	s.History = replstate.Load(data)
	return LineResult{Output: fmt.Sprintf("loaded %d definitions from %s", len(s.History.All()), path)}
}

// splitAssignment reports whether trimmed is a top-level `name = expr` line
// and, if so, its bound name. Kept in sync with replstate's own classifier
// since both must agree on what counts as a definition.
func splitAssignment(trimmed string) (string, bool) {
	eq := strings.IndexByte(trimmed, '=')
	if eq <= 0 || eq+1 >= len(trimmed) || trimmed[eq+1] == '=' {
		return "", false
	}
	name := strings.TrimSpace(trimmed[:eq])
	if name == "" {
		return "", false
	}
	for i, r := range name {
		if i == 0 && !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return "", false
		}
		if i > 0 && !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return "", false
		}
	}
	return name, true
}

// RunLoop drives the session from in, writing prompts and results to the
// session's configured output, until a meta-command or EOF ends it. This is
// the core the `rocrepl` binary wraps with real stdin/stdout/flags.
func (s *Session) RunLoop(in io.Reader) error {
	sc := bufio.NewScanner(in)
	fmt.Fprint(s.out, s.Banner())
	for {
		fmt.Fprint(s.out, s.colorize(s.prompt))
		if !sc.Scan() {
			return sc.Err()
		}
		res := s.HandleLine(sc.Text())
		if res.Output != "" {
			fmt.Fprintln(s.out, res.Output)
		}
		if res.Quit {
			return nil
		}
	}
}
