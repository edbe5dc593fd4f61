// Package cli drives verification over one or more problem directories and
// renders the per-directory summaries.
package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/sync/errgroup"

	"verifyproblem/internal/problem"
	"verifyproblem/pkg/logging"
)

// Options controls a verification run.
type Options struct {
	// Bail stops each directory's check at the first aspect with errors.
	Bail bool
	// Parallel bounds how many problem directories verify concurrently.
	// The engine stays strictly sequential inside each directory.
	Parallel int
	// Progress enables the terminal spinner; disabled automatically when
	// directories run concurrently, their output would interleave.
	Progress bool
}

// DirResult is the outcome for one problem directory.
type DirResult struct {
	Dir      string
	Errors   int
	Warnings int
}

// Passed reports whether the directory verified without errors.
func (r DirResult) Passed() bool { return r.Errors == 0 }

// Run verifies every directory and returns the results in argument order.
func Run(dirs []string, opts Options) []DirResult {
	workers := opts.Parallel
	if workers < 1 {
		workers = 1
	}
	results := make([]DirResult, len(dirs))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, dir := range dirs {
		g.Go(func() error {
			results[i] = VerifyDir(dir, opts.Progress && workers == 1, opts.Bail)
			return nil
		})
	}
	g.Wait()
	return results
}

// VerifyDir stages, checks and tears down a single problem directory.
func VerifyDir(dir string, progress, bail bool) DirResult {
	p := problem.New(dir, problem.WithProgress(progress))
	defer p.Close()

	if err := p.Stage(); err != nil {
		logging.Error(dir, err, "could not stage problem")
		return DirResult{Dir: dir, Errors: 1}
	}
	errs, warns := p.Check(nil, bail)
	return DirResult{Dir: dir, Errors: errs, Warnings: warns}
}

// PrintSummary writes the per-directory summary lines and, for multiple
// directories, an overview table. It returns true when every directory
// passed.
func PrintSummary(results []DirResult, w io.Writer) bool {
	ok := true
	for _, res := range results {
		fmt.Fprintf(w, "%s tested: %d errors, %d warnings\n", res.Dir, res.Errors, res.Warnings)
		if !res.Passed() {
			ok = false
		}
	}
	if len(results) > 1 {
		fmt.Fprint(w, renderSummaryTable(results))
	}
	return ok
}

func renderSummaryTable(results []DirResult) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("PROBLEM"),
		text.FgHiCyan.Sprint("ERRORS"),
		text.FgHiCyan.Sprint("WARNINGS"),
		text.FgHiCyan.Sprint("RESULT"),
	})
	for _, res := range results {
		verdict := text.FgGreen.Sprint("pass")
		if !res.Passed() {
			verdict = text.FgRed.Sprint("fail")
		}
		t.AppendRow(table.Row{res.Dir, res.Errors, res.Warnings, verdict})
	}
	return t.Render() + "\n"
}
