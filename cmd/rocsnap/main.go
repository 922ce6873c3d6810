// Command rocsnap regenerates `.snap` golden files: it walks a directory,
// re-derives every generated section (TOKENS, PARSE, FORMATTED,
// CANONICALIZE, TYPES, PROBLEMS) from each file's SOURCE section, and
// rewrites the file in place. With -check it instead reports files whose
// generated sections are stale, without writing, for CI use.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lukewilliamboswell/roc-sub001/internal/snapshot"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr *os.File) int {
	fs := flag.NewFlagSet("rocsnap", flag.ContinueOnError)
	fs.SetOutput(stderr)
	check := fs.Bool("check", false, "report stale snapshots instead of writing them")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	roots := fs.Args()
	if len(roots) == 0 {
		roots = []string{"."}
	}

	files, err := collectSnapFiles(roots)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	sort.Strings(files)

	stale := 0
	for _, path := range files {
		changed, err := processFile(path, *check)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", path, err)
			return 2
		}
		if changed {
			stale++
			if *check {
				fmt.Fprintf(stdout, "stale: %s\n", path)
			} else {
				fmt.Fprintf(stdout, "regenerated: %s\n", path)
			}
		}
	}

	if *check && stale > 0 {
		return 1
	}
	return 0
}

func collectSnapFiles(roots []string) ([]string, error) {
	var files []string
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, ".snap") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func processFile(path string, checkOnly bool) (bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	original := string(raw)

	snap, err := snapshot.Parse(original)
	if err != nil {
		return false, err
	}
	snap.Regenerate()
	regenerated := snap.String()

	if regenerated == original {
		return false, nil
	}
	if !checkOnly {
		if err := os.WriteFile(path, []byte(regenerated), 0o644); err != nil {
			return false, err
		}
	}
	return true, nil
}
