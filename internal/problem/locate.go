package problem

import (
	"os"
	"path/filepath"

	"verifyproblem/internal/runner"
)

// supportHomeEnv points at an alternative support installation. Tests and
// nonstandard installs use it to provide the default validator, default
// grader and interactive runner.
const supportHomeEnv = "VERIFYPROBLEM_HOME"

// Locator finds the support programs installed alongside the tool: the
// default output validator, the default grader and the interactive runner.
type Locator struct {
	dirs []string
}

// DefaultLocator searches, in order: the directory named by
// VERIFYPROBLEM_HOME, the directory containing the running executable, and
// the conventional system install prefix.
func DefaultLocator() *Locator {
	var dirs []string
	if home := os.Getenv(supportHomeEnv); home != "" {
		dirs = append(dirs, home)
	}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	dirs = append(dirs, "/usr/local/kattis/bin")
	return &Locator{dirs: dirs}
}

// NewLocator builds a locator over an explicit list of support directories.
func NewLocator(dirs ...string) *Locator {
	return &Locator{dirs: dirs}
}

// locate returns the first executable candidate for the named support
// program, looking both for <dir>/<name>/<name> (source layout) and
// <dir>/<name> (installed layout). Nil when none is found.
func (l *Locator) locate(name string) runner.Program {
	for _, dir := range l.dirs {
		for _, candidate := range []string{
			filepath.Join(dir, name, name),
			filepath.Join(dir, name),
		} {
			if isExecutable(candidate) {
				return runner.NewExecutable(candidate)
			}
		}
	}
	return nil
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Mode()&0111 != 0
}

// Interactive locates the interactive runner.
func (l *Locator) Interactive() runner.Program { return l.locate("interactive") }

// DefaultValidator locates the default output validator.
func (l *Locator) DefaultValidator() runner.Program { return l.locate("default_validator") }

// DefaultGrader locates the default grader.
func (l *Locator) DefaultGrader() runner.Program { return l.locate("default_grader") }
