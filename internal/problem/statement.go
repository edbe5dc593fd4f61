package problem

import (
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// Converter turns a problem statement into its published formats. The real
// implementation shells out to the external problem2pdf and problem2html
// tools; tests substitute their own.
type Converter interface {
	// ToPDF compiles the statement for the given language ("" is the
	// default language). The returned command is the exact invocation to
	// reproduce a failure.
	ToPDF(probdir, language string) (command []string, err error)
	// ToHTML converts the statement to html below destdir.
	ToHTML(probdir, destdir, language string) (command []string, err error)
}

// ExecConverter invokes the external statement converters.
type ExecConverter struct{}

func (ExecConverter) ToPDF(probdir, language string) ([]string, error) {
	argv := []string{"problem2pdf", "-q", "-n"}
	if language != "" {
		argv = append(argv, "-l", language)
	}
	argv = append(argv, probdir)
	return argv, exec.Command(argv[0], argv[1:]...).Run()
}

func (ExecConverter) ToHTML(probdir, destdir, language string) ([]string, error) {
	argv := []string{"problem2html", "-q", "-d", destdir}
	if language != "" {
		argv = append(argv, "-l", language)
	}
	argv = append(argv, probdir)
	return argv, exec.Command(argv[0], argv[1:]...).Run()
}

var statementLangRe = regexp.MustCompile(`^problem\.([a-z][a-z])\.tex$`)

var problemNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\\problemname\{(.*)\}`),
	regexp.MustCompile(`(?m)^%%\s*plainproblemname:(.*)$`),
}

// ProblemStatement enumerates the statement languages present in the
// package. The empty language code denotes the default-language problem.tex.
type ProblemStatement struct {
	aspect
	problem   *Problem
	languages []string
}

func newProblemStatement(p *Problem) *ProblemStatement {
	s := &ProblemStatement{
		aspect:  newAspect(p.rep, "problem statement"),
		problem: p,
	}
	s.debug("  Loading problem statement")

	stmtdir := filepath.Join(p.probdir, "problem_statement")
	if _, err := os.Stat(filepath.Join(stmtdir, "problem.tex")); err == nil {
		s.languages = append(s.languages, "")
	}
	entries, _ := os.ReadDir(stmtdir)
	for _, entry := range entries {
		if m := statementLangRe.FindStringSubmatch(entry.Name()); m != nil {
			s.languages = append(s.languages, m[1])
		}
	}
	return s
}

// Languages returns the language codes found.
func (s *ProblemStatement) Languages() []string { return s.languages }

func (s *ProblemStatement) check() bool {
	if done, res := s.beginCheck(); done {
		return res
	}

	if len(s.languages) == 0 {
		s.error("No problem statements found (expected problem.tex or problem.[a-z][a-z].tex in problem_statement directory)")
	}
	if s.hasLanguage("") && s.hasLanguage("en") {
		s.error("Can't supply both problem.tex and problem.en.tex")
	}

	htmlDir := filepath.Join(s.problem.basedir, "__html")
	for _, lang := range s.languages {
		if cmd, err := s.problem.converter.ToPDF(s.problem.probdir, lang); err != nil {
			s.error(`Could not compile problem statement for language "%s".  Run "%s" on the problem to diagnose.`,
				lang, strings.Join(cmd, " "))
		}
		if cmd, err := s.problem.converter.ToHTML(s.problem.probdir, htmlDir, lang); err != nil {
			s.error(`Could not convert problem statement to html for language "%s".  Run "%s" on the problem to diagnose.`,
				lang, strings.Join(cmd, " "))
		}
	}
	return s.checkResult()
}

func (s *ProblemStatement) hasLanguage(lang string) bool {
	for _, l := range s.languages {
		if l == lang {
			return true
		}
	}
	return false
}

// configSeed extracts config values from the statement sources, currently
// the problem name declared with \problemname{...} or a
// "%% plainproblemname:" comment, keyed per language.
func (s *ProblemStatement) configSeed() map[string]interface{} {
	ret := map[string]interface{}{}
	for _, lang := range s.languages {
		filename := "problem.tex"
		if lang != "" {
			filename = "problem." + lang + ".tex"
		}
		data, err := os.ReadFile(filepath.Join(s.problem.probdir, "problem_statement", filename))
		if err != nil {
			continue
		}
		for _, pattern := range problemNamePatterns {
			if m := pattern.FindSubmatch(data); m != nil {
				names, ok := ret["name"].(map[string]interface{})
				if !ok {
					names = map[string]interface{}{}
					ret["name"] = names
				}
				names[lang] = strings.TrimSpace(string(m[1]))
			}
		}
	}
	return ret
}
