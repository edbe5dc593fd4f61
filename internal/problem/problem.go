package problem

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var shortnameRe = regexp.MustCompile(`^[a-z0-9]+$`)

// defaultCheckOrder is the canonical aspect order for a full check.
var defaultCheckOrder = []string{
	"config",
	"problem statement",
	"input format validators",
	"output validators",
	"graders",
	"test data",
	"submissions",
}

// Problem is the top-level lifecycle: it stages a working copy of the
// package, wires the component graph against it, runs the checks, and tears
// the copy down again.
type Problem struct {
	aspect

	srcdir    string
	shortname string
	basedir   string
	probdir   string

	rep       *Reporter
	converter Converter
	locator   *Locator

	// ShowProgress enables the terminal spinner while submissions run.
	ShowProgress bool

	statement        *ProblemStatement
	config           *ProblemConfig
	inputValidators  *InputFormatValidators
	outputValidators *OutputValidators
	graders          *Graders
	testdata         *TestCaseGroup
	submissions      *Submissions
}

// Option configures a Problem before staging.
type Option func(*Problem)

// WithConverter substitutes the statement converter.
func WithConverter(c Converter) Option {
	return func(p *Problem) { p.converter = c }
}

// WithLocator substitutes the support-program locator.
func WithLocator(l *Locator) Option {
	return func(p *Problem) { p.locator = l }
}

// WithProgress toggles the terminal spinner.
func WithProgress(show bool) Option {
	return func(p *Problem) { p.ShowProgress = show }
}

// New prepares a Problem rooted at the given package directory. Nothing is
// touched until Stage is called.
func New(probdir string, opts ...Option) *Problem {
	probdir = strings.TrimSuffix(probdir, "/")
	rep := &Reporter{}
	p := &Problem{
		aspect:    newAspect(rep, probdir),
		srcdir:    probdir,
		shortname: filepath.Base(probdir),
		rep:       rep,
		converter: ExecConverter{},
		locator:   DefaultLocator(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Shortname returns the problem's short name, derived from the directory.
func (p *Problem) Shortname() string { return p.shortname }

// Config exposes the loaded configuration; valid after Stage.
func (p *Problem) Config() *ProblemConfig { return p.config }

// Stage creates the temporary working directory under the current directory,
// copies the problem into it and constructs the component graph. A missing
// source directory is recorded as an error and surfaces through Check.
func (p *Problem) Stage() error {
	basedir, err := os.MkdirTemp(".", "testprob")
	if err != nil {
		return fmt.Errorf("could not create working directory: %w", err)
	}
	p.basedir = basedir
	p.probdir = filepath.Join(basedir, p.shortname)

	info, err := os.Stat(p.srcdir)
	if err != nil || !info.IsDir() {
		p.error("Problem directory '%s' not found", p.srcdir)
		p.shortname = ""
		return nil
	}

	p.msg("Loading problem %s", p.shortname)

	if err := os.CopyFS(p.probdir, os.DirFS(p.srcdir)); err != nil {
		return fmt.Errorf("could not stage problem copy: %w", err)
	}

	p.statement = newProblemStatement(p)
	p.config = newProblemConfig(p)
	p.inputValidators = newInputFormatValidators(p)
	p.outputValidators = newOutputValidators(p)
	p.graders = newGraders(p)
	p.testdata = newTestCaseGroup(p, filepath.Join(p.probdir, "data"), nil)
	p.submissions = newSubmissions(p)
	return nil
}

// Close removes the staged working copy and any remaining scratch files. It
// is safe on every exit path, including after staging failures.
func (p *Problem) Close() {
	if p.inputValidators != nil {
		p.inputValidators.close()
	}
	if p.basedir != "" {
		os.RemoveAll(p.basedir)
		p.basedir = ""
	}
}

// Check runs the requested aspects (nil means the canonical full set) in the
// fixed order and returns the error and warning counts. With bailOnError the
// iteration stops at the first aspect that left errors behind.
func (p *Problem) Check(items []string, bailOnError bool) (errors, warnings int) {
	if p.shortname == "" {
		return 1, 0
	}

	aspects := map[string]func() bool{
		"config":                  p.config.check,
		"problem statement":       p.statement.check,
		"input format validators": p.inputValidators.check,
		"output validators":       p.outputValidators.check,
		"graders":                 p.graders.check,
		"test data":               p.testdata.check,
		"submissions":             p.submissions.check,
	}
	if items == nil {
		items = defaultCheckOrder
	}

	p.rep.Reset()

	if !shortnameRe.MatchString(p.shortname) {
		p.error("Invalid shortname '%s' (must be [a-z0-9]+)", p.shortname)
	}

	for _, item := range items {
		check, ok := aspects[item]
		if !ok {
			p.error("Unknown aspect '%s'", item)
			continue
		}
		p.msg("Checking %s", item)
		check()
		if bailOnError && p.rep.Errors() > 0 {
			break
		}
	}
	return p.rep.Errors(), p.rep.Warnings()
}
