package problem

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"verifyproblem/internal/runner"
)

var graderOutputRe = regexp.MustCompile(`^((AC)|(WA)|(TLE)|(RTE))\s+[0-9.]+\s*$`)

// Graders reduces a vector of per-case results into one verdict and score by
// feeding the verdict/score lines to a grader program, the package's own or
// the external default.
type Graders struct {
	aspect
	problem       *Problem
	graders       []runner.Program
	defaultGrader runner.Program
}

func newGraders(p *Problem) *Graders {
	g := &Graders{
		aspect:  newAspect(p.rep, "graders"),
		problem: p,
	}
	g.graders = getPrograms(filepath.Join(p.probdir, "graders"), nil, "", &g.aspect)
	g.defaultGrader = p.locator.DefaultGrader()
	return g
}

func (g *Graders) check() bool {
	if done, res := g.beginCheck(); done {
		return res
	}

	if g.problem.config.Type() == "pass-fail" && len(g.graders) > 0 {
		g.error("There are grader programs but the problem is pass-fail")
	}

	for _, grader := range g.graders {
		if !grader.Compile() {
			g.error("Compile error for grader %s", grader.Name())
		}
	}
	return g.checkResult()
}

// grade runs the group's grader set over the sub-results. Each grader reads
// one "<verdict> <score>" line per result and must print a single
// "<verdict> <score>" line of its own; a crash or malformed output is a
// judge error. When several graders are present the last one's output wins.
func (g *Graders) grade(group *TestCaseGroup, results []*SubmissionResult, shadow bool) *SubmissionResult {
	graders := g.graders
	if group.configString("grading") == "default" {
		graders = []runner.Program{g.defaultGrader}
	}

	var input strings.Builder
	for _, r := range results {
		fmt.Fprintf(&input, "%s %s\n", r.Verdict, formatScore(r.Score))
	}
	graderFlags := strings.Fields(group.configString("grader_flags"))

	verdict := VerdictAC
	score := 0.0

	g.debug("Grading %d results:\n%s", len(results), input.String())
	g.debug("Grader flags: %s", group.configString("grader_flags"))

	for _, grader := range graders {
		if grader == nil || !grader.Compile() {
			continue
		}
		infile, err := os.CreateTemp("", "grader-in")
		if err != nil {
			g.error("Judge error: could not create grader input: %v", err)
			return newSubmissionResult(VerdictJE, floatPtr(0), results, "")
		}
		outfile, err := os.CreateTemp("", "grader-out")
		if err != nil {
			infile.Close()
			os.Remove(infile.Name())
			g.error("Judge error: could not create grader output: %v", err)
			return newSubmissionResult(VerdictJE, floatPtr(0), results, "")
		}
		infile.WriteString(input.String())
		infile.Close()
		outfile.Close()

		status, _ := grader.Run(runner.RunSpec{
			Stdin:  infile.Name(),
			Stdout: outfile.Name(),
			Args:   graderFlags,
		})
		raw, _ := os.ReadFile(outfile.Name())
		graderOutput := string(raw)
		os.Remove(infile.Name())
		os.Remove(outfile.Name())

		if !status.Exited {
			g.error("Judge error: grader %s crashed", grader.Name())
			g.debug("Grader input:\n%s", input.String())
			return newSubmissionResult(VerdictJE, floatPtr(0), results, "")
		}

		if !graderOutputRe.MatchString(graderOutput) {
			g.error("Judge error: invalid format of grader output")
			g.debug(`Output must match: "%s"`, graderOutputRe)
			g.debug(`Output was: "%s"`, graderOutput)
			return newSubmissionResult(VerdictJE, floatPtr(0), results, "")
		}

		fields := strings.Fields(graderOutput)
		verdict = Verdict(fields[0])
		score, _ = strconv.ParseFloat(fields[1], 64)
	}
	// TODO: check that all graders give same result

	if !shadow {
		g.info("Grade on %s is %s (%v)", group.id, verdict, score)
	}
	return newSubmissionResult(verdict, &score, results, "")
}

func formatScore(score *float64) string {
	if score == nil {
		return "0"
	}
	return strconv.FormatFloat(*score, 'g', -1, 64)
}
