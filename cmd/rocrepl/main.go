// Command rocrepl is the interactive front end: it wraps
// internal/repl.Session with real stdin/stdout and CLI flags, layering any
// user-level REPL config file under the flags.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/lukewilliamboswell/roc-sub001/internal/config"
	"github.com/lukewilliamboswell/roc-sub001/internal/repl"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin *os.File, stdout, stderr *os.File) int {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	noColor := fs.Bool("no-color", false, "disable ANSI color in prompts and diagnostics")
	noHeader := fs.Bool("no-header", false, "suppress the startup banner")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	opts := config.Options{NoColor: *noColor, NoHeader: *noHeader}
	if path, err := config.DefaultReplFilePath(); err == nil {
		if rf, err := config.LoadReplFile(path); err == nil {
			opts.NoColor = opts.NoColor || rf.NoColor
			opts.NoHeader = opts.NoHeader || rf.NoHeader
			opts.Prompt = rf.Prompt
		}
	}

	sess := repl.NewSession(stdout, opts)
	if err := sess.RunLoop(stdin); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	return sess.ExitCode()
}
