package runner

import (
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"verifyproblem/pkg/logging"
)

// RunSpec describes one execution of a compiled program.
type RunSpec struct {
	// Stdin is a file to feed the program; empty means the null device.
	Stdin string
	// Stdout is a file to capture output into; empty discards it.
	Stdout string
	// Args is appended to the program's run command.
	Args []string
	// CPULimit is the CPU time limit in seconds; zero means unlimited.
	CPULimit float64
}

// Program is a helper program from the problem package or the support
// installation. Compile is memoized; Run may be called any number of times
// after a successful Compile.
type Program interface {
	Name() string
	Compile() bool
	Run(spec RunSpec) (Status, float64)
	// RunCommand returns the argument vector that executes the program,
	// suitable for embedding into the interactive runner's command line.
	RunCommand() []string
}

type language int

const (
	langExecutable language = iota
	langC
	langCpp
	langPython
	langShell
)

type compileState int

const (
	compileUnknown compileState = iota
	compileOK
	compileFailed
)

// sourceProgram is a single-file program, compiled or interpreted depending
// on its extension.
type sourceProgram struct {
	path       string
	name       string
	includeDir string
	lang       language
	state      compileState
	binPath    string
}

// NewProgram wraps a source file or program directory found in the problem
// package. includeDir, when nonempty, is added to the compiler search path
// (shared headers handed to each submission).
func NewProgram(path, includeDir string) (Program, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return newDirProgram(path)
	}

	name := filepath.Base(path)
	switch ext := filepath.Ext(path); ext {
	case ".c":
		return &sourceProgram{path: path, name: name, includeDir: includeDir, lang: langC}, nil
	case ".cc", ".cpp", ".cxx", ".c++", ".C":
		return &sourceProgram{path: path, name: name, includeDir: includeDir, lang: langCpp}, nil
	case ".py":
		return &sourceProgram{path: path, name: name, lang: langPython}, nil
	case ".sh":
		return &sourceProgram{path: path, name: name, lang: langShell}, nil
	default:
		if info.Mode()&0111 != 0 {
			return &sourceProgram{path: path, name: name, lang: langExecutable}, nil
		}
		return nil, fmt.Errorf("%s: unsupported language for file %q", name, path)
	}
}

// NewExecutable wraps an already-built executable, as used for the located
// support programs (default validator, default grader, interactive runner).
func NewExecutable(path string) Program {
	return &sourceProgram{path: path, name: filepath.Base(path), lang: langExecutable, state: compileOK}
}

func (p *sourceProgram) Name() string { return p.name }

func (p *sourceProgram) Compile() bool {
	if p.state != compileUnknown {
		return p.state == compileOK
	}
	p.state = compileFailed

	switch p.lang {
	case langExecutable, langPython, langShell:
		p.state = compileOK
	case langC, langCpp:
		bin, ok := p.compileNative()
		if ok {
			p.binPath = bin
			p.state = compileOK
		}
	}
	return p.state == compileOK
}

func (p *sourceProgram) compileNative() (string, bool) {
	buildDir := filepath.Join(filepath.Dir(p.path), ".build")
	if err := os.MkdirAll(buildDir, 0755); err != nil {
		logging.Debug("program "+p.name, "could not create build directory: %v", err)
		return "", false
	}
	bin := filepath.Join(buildDir, strings.TrimSuffix(p.name, filepath.Ext(p.name)))

	var argv []string
	switch p.lang {
	case langC:
		argv = []string{"gcc", "-g", "-O2", "-std=gnu11", "-o", bin}
	case langCpp:
		argv = []string{"g++", "-g", "-O2", "-std=gnu++17", "-o", bin}
	}
	if p.includeDir != "" {
		argv = append(argv, "-I", p.includeDir)
	}
	argv = append(argv, p.path, "-lm")

	out, err := exec.Command(argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		logging.Debug("program "+p.name, "compilation failed: %v\n%s", err, out)
		return "", false
	}
	return bin, true
}

func (p *sourceProgram) RunCommand() []string {
	switch p.lang {
	case langPython:
		return []string{"python3", p.path}
	case langShell:
		return []string{"sh", p.path}
	case langC, langCpp:
		return []string{p.binPath}
	default:
		return []string{p.path}
	}
}

func (p *sourceProgram) Run(spec RunSpec) (Status, float64) {
	return runCommand(p.RunCommand(), spec, p.name)
}

// dirProgram is a multi-file program directory following the build/run
// convention: an optional executable "build" script produces an executable
// "run" in the same directory.
type dirProgram struct {
	dir   string
	name  string
	state compileState
}

func newDirProgram(dir string) (Program, error) {
	hasBuild := isExecutableFile(filepath.Join(dir, "build"))
	hasRun := isExecutableFile(filepath.Join(dir, "run"))
	if !hasBuild && !hasRun {
		return nil, fmt.Errorf("program directory %q has neither build nor run script", dir)
	}
	return &dirProgram{dir: dir, name: filepath.Base(dir)}, nil
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Mode()&0111 != 0
}

func (p *dirProgram) Name() string { return p.name }

func (p *dirProgram) Compile() bool {
	if p.state != compileUnknown {
		return p.state == compileOK
	}
	p.state = compileFailed

	buildScript := filepath.Join(p.dir, "build")
	if isExecutableFile(buildScript) {
		cmd := exec.Command(buildScript)
		cmd.Dir = p.dir
		if out, err := cmd.CombinedOutput(); err != nil {
			logging.Debug("program "+p.name, "build script failed: %v\n%s", err, out)
			return false
		}
	}
	if isExecutableFile(filepath.Join(p.dir, "run")) {
		p.state = compileOK
	}
	return p.state == compileOK
}

func (p *dirProgram) RunCommand() []string {
	return []string{filepath.Join(p.dir, "run")}
}

func (p *dirProgram) Run(spec RunSpec) (Status, float64) {
	return runCommand(p.RunCommand(), spec, p.name)
}

// runCommand starts argv in its own process group, applies the CPU limit to
// the started child, waits for it, and decodes the wait status. The reported
// runtime is the child's CPU time (user plus system).
func runCommand(argv []string, spec RunSpec, name string) (Status, float64) {
	cmd := exec.Command(argv[0], append(append([]string{}, argv[1:]...), spec.Args...)...)
	configureProcAttr(cmd)

	if spec.Stdin != "" {
		in, err := os.Open(spec.Stdin)
		if err != nil {
			logging.Debug("program "+name, "could not open stdin %s: %v", spec.Stdin, err)
			return Status{}, 0
		}
		defer in.Close()
		cmd.Stdin = in
	}
	if spec.Stdout != "" {
		out, err := os.Create(spec.Stdout)
		if err != nil {
			logging.Debug("program "+name, "could not create stdout %s: %v", spec.Stdout, err)
			return Status{}, 0
		}
		defer out.Close()
		cmd.Stdout = out
	}

	if err := cmd.Start(); err != nil {
		logging.Debug("program "+name, "failed to start: %v", err)
		return Status{}, 0
	}
	pid := cmd.Process.Pid

	if spec.CPULimit > 0 {
		applyCPULimit(pid, spec.CPULimit, name)
	}

	_ = cmd.Wait()
	killProcessGroup(pid, syscall.SIGKILL)

	state := cmd.ProcessState
	if state == nil {
		return Status{}, 0
	}
	runtime := state.UserTime().Seconds() + state.SystemTime().Seconds()
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok {
		return Status{}, runtime
	}
	return StatusFromWait(ws), runtime
}

// applyCPULimit sets RLIMIT_CPU on the started child. The hard limit is one
// second above the soft limit so the child first gets a catchable SIGXCPU.
func applyCPULimit(pid int, limit float64, name string) {
	secs := uint64(math.Ceil(limit))
	if secs == 0 {
		secs = 1
	}
	rlim := unix.Rlimit{Cur: secs, Max: secs + 1}
	if err := unix.Prlimit(pid, unix.RLIMIT_CPU, &rlim, nil); err != nil {
		logging.Debug("program "+name, "could not apply CPU limit: %v", err)
	}
}
