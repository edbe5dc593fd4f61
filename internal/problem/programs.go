package problem

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"verifyproblem/internal/runner"
)

// getPrograms loads the programs found directly under dir, in filename
// order. Names not matching pattern are skipped with an info message, as are
// files the runner cannot treat as a program. A nil pattern accepts every
// name. includeDir is forwarded to the compiler for shared headers.
func getPrograms(dir string, pattern *regexp.Regexp, includeDir string, errh *aspect) []runner.Program {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var ret []runner.Program
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if pattern != nil && !pattern.MatchString(name) {
			errh.info("Ignoring '%s'; invalid filename", name)
			continue
		}
		prog, err := runner.NewProgram(filepath.Join(dir, name), includeDir)
		if err != nil {
			errh.info("%v", err)
			continue
		}
		ret = append(ret, prog)
	}
	return ret
}
