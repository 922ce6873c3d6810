// Package repl is the interactive session driver: Past Definitions, the
// composite-source rebuild per input line, meta-commands, and structured
// error reporting, all built from the same parse, canonicalize, type-solve,
// interpret pipeline every other entry point uses.
package repl

import (
	"fmt"
	"strings"

	"github.com/lukewilliamboswell/roc-sub001/internal/canon"
	"github.com/lukewilliamboswell/roc-sub001/internal/diagnostics"
	"github.com/lukewilliamboswell/roc-sub001/internal/ident"
	"github.com/lukewilliamboswell/roc-sub001/internal/interp"
	"github.com/lukewilliamboswell/roc-sub001/internal/parser"
	"github.com/lukewilliamboswell/roc-sub001/internal/region"
	"github.com/lukewilliamboswell/roc-sub001/internal/types"
)

// EvalOutcome is the structured result of running one composite source
// string through the full pipeline: either a printable value and its type,
// or a list of diagnostics (parse/canonicalize/type errors, or a runtime
// value carrying its own diagnostic).
type EvalOutcome struct {
	Value       string
	Type        string
	Diagnostics []*diagnostics.Report
	// Ok reports whether Value/Type were actually computed. A diagnostic can
	// be present (e.g. a non-fatal redefinition report from a shadowed
	// binding) without Ok being false: canonicalization keeps going and
	// produces a usable IR, so the value still evaluates. Ok is false only
	// when parsing or canonicalization produced nothing type-solvable, or
	// type-solving or interpretation itself failed.
	Ok bool
}

// Evaluate runs source through parse, canonicalize, type-solve, and
// interpret, and never panics: every failure at any stage becomes a
// diagnostic on the returned outcome rather than an error return, so a
// session survives anything a line of input throws at it.
func Evaluate(source string) *EvalOutcome {
	block, perrs := parser.ParseProgram(source)
	out := &EvalOutcome{Diagnostics: append([]*diagnostics.Report(nil), perrs...)}

	idents := ident.New()
	arena, idx, cerrs := canon.CanonicalizeExpr(idents, block)
	out.Diagnostics = append(out.Diagnostics, cerrs...)

	anno, terr := types.Solve(arena, idx)
	if terr != nil {
		out.Diagnostics = append(out.Diagnostics, diagnostics.New(
			diagnostics.PhaseType, diagnostics.ErrTypeMismatch, block.Region(), terr.Error(),
		))
		return out
	}

	ip := interp.New(arena, anno, nil)
	result, err := ip.Eval(idx)
	if err != nil {
		// A malformed node carries its canonicalization report through to
		// evaluation; don't list the same report twice.
		rep := outcomeDiagnostic(err)
		if !containsReport(out.Diagnostics, rep) {
			out.Diagnostics = append(out.Diagnostics, rep)
		}
		return out
	}

	out.Value = FormatValue(ip, result)
	out.Type = result.Type.String()
	out.Ok = true
	return out
}

func containsReport(reports []*diagnostics.Report, rep *diagnostics.Report) bool {
	for _, r := range reports {
		if r == rep {
			return true
		}
	}
	return false
}

func outcomeDiagnostic(err error) *diagnostics.Report {
	switch e := err.(type) {
	case *interp.RuntimeError:
		return e.Report
	case *interp.FatalError:
		return e.Report
	default:
		return diagnostics.New(diagnostics.PhaseRuntime, diagnostics.ErrInternal, region.Region{}, err.Error())
	}
}

// HasFatal reports whether any diagnostic in the outcome is fatal, the
// signal a caller uses to decide on exit code 2 (fatal compiler error).
func (o *EvalOutcome) HasFatal() bool {
	for _, d := range o.Diagnostics {
		if d.Severity == diagnostics.SeverityFatal {
			return true
		}
	}
	return false
}

// HasErrors reports whether any diagnostic is an error or worse, the
// signal behind exit code 1.
func (o *EvalOutcome) HasErrors() bool {
	for _, d := range o.Diagnostics {
		if d.Severity == diagnostics.SeverityError || d.Severity == diagnostics.SeverityFatal {
			return true
		}
	}
	return false
}

// Render renders every diagnostic as a one-line summary. Warnings are
// suppressed whenever any error is present.
func (o *EvalOutcome) Render() string {
	hasErr := o.HasErrors()
	var lines []string
	for _, d := range o.Diagnostics {
		if hasErr && d.Severity == diagnostics.SeverityWarning {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", d.Code, d.Message()))
		if d.Hint != "" {
			lines = append(lines, "  hint: "+d.Hint)
		}
	}
	return strings.Join(lines, "\n")
}
