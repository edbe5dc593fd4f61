package problem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// stubConverter records converter invocations; failures are injected per
// language.
type stubConverter struct {
	pdfCalls  []string
	htmlCalls []string
	failPDF   map[string]bool
	failHTML  map[string]bool
}

func (c *stubConverter) ToPDF(probdir, language string) ([]string, error) {
	c.pdfCalls = append(c.pdfCalls, language)
	cmd := []string{"problem2pdf", "-l", language, probdir}
	if c.failPDF[language] {
		return cmd, os.ErrInvalid
	}
	return cmd, nil
}

func (c *stubConverter) ToHTML(probdir, destdir, language string) ([]string, error) {
	c.htmlCalls = append(c.htmlCalls, language)
	cmd := []string{"problem2html", "-l", language, probdir}
	if c.failHTML[language] {
		return cmd, os.ErrInvalid
	}
	return cmd, nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func writeScript(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
}

// fakeSupportDir builds a support installation with an accept-everything
// default validator and a default grader that sums nothing and accepts.
func fakeSupportDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeScript(t, filepath.Join(dir, "default_validator", "default_validator"), "exit 42")
	writeScript(t, filepath.Join(dir, "default_grader", "default_grader"), `echo "AC 1.0"`)
	return dir
}

// writeMinimalProblem builds a minimal valid pass-fail problem package.
// Defect scenarios mutate the directory before staging or wiring.
func writeMinimalProblem(t *testing.T, srcdir string) {
	t.Helper()
	writeFile(t, filepath.Join(srcdir, "problem.yaml"), "name: Minimal\n")
	writeFile(t, filepath.Join(srcdir, "problem_statement", "problem.tex"), `\problemname{Minimal}`+"\n")
	writeScript(t, filepath.Join(srcdir, "input_format_validators", "validate.sh"), "exit 42")
	writeFile(t, filepath.Join(srcdir, "data", "sample", "1.in"), "")
	writeFile(t, filepath.Join(srcdir, "data", "sample", "1.ans"), "")
	writeFile(t, filepath.Join(srcdir, "data", "secret", "1.in"), "secret input\n")
	writeFile(t, filepath.Join(srcdir, "data", "secret", "1.ans"), "")
	writeScript(t, filepath.Join(srcdir, "submissions", "accepted", "ok.sh"), "cat > /dev/null")
}

func stageProblem(t *testing.T, srcdir string, opts ...Option) *Problem {
	t.Helper()
	t.Chdir(t.TempDir())
	allOpts := append([]Option{
		WithConverter(&stubConverter{}),
		WithLocator(NewLocator(fakeSupportDir(t))),
	}, opts...)
	p := New(srcdir, allOpts...)
	t.Cleanup(p.Close)
	require.NoError(t, p.Stage())
	return p
}

// bareProblem builds a Problem around an existing directory without staging
// a copy, for unit tests of individual aspects.
func bareProblem(t *testing.T, probdir string) *Problem {
	t.Helper()
	rep := &Reporter{}
	p := &Problem{
		aspect:    newAspect(rep, probdir),
		srcdir:    probdir,
		shortname: filepath.Base(probdir),
		basedir:   t.TempDir(),
		probdir:   probdir,
		rep:       rep,
		converter: &stubConverter{},
		locator:   NewLocator(fakeSupportDir(t)),
	}
	return p
}

// wire constructs the component graph over a bare problem, mirroring Stage.
func (p *Problem) wire() {
	p.statement = newProblemStatement(p)
	p.config = newProblemConfig(p)
	p.inputValidators = newInputFormatValidators(p)
	p.outputValidators = newOutputValidators(p)
	p.graders = newGraders(p)
	p.testdata = newTestCaseGroup(p, filepath.Join(p.probdir, "data"), nil)
	p.submissions = newSubmissions(p)
}
