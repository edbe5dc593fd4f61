package problem

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"time"

	"github.com/briandowns/spinner"

	"verifyproblem/internal/runner"
)

var submissionFilenameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*[a-zA-Z0-9](\.c\+\+)?$`)

// verdictCategories maps each expected-verdict category to its submissions
// subdirectory. At least one accepted submission is required.
var verdictCategories = []struct {
	verdict  Verdict
	dir      string
	required bool
}{
	{VerdictAC, "accepted", true},
	{VerdictWA, "wrong_answer", false},
	{VerdictRTE, "run_time_error", false},
	{VerdictTLE, "time_limit_exceeded", false},
}

// defaultACTimeLimit is the initial per-case limit for accepted submissions
// before calibration, overridable with limits.time_for_AC_submissions.
const defaultACTimeLimit = 300.0

// Submissions holds the categorized reference submissions and drives their
// verification and the time-limit calibration.
type Submissions struct {
	aspect
	problem     *Problem
	submissions map[Verdict][]runner.Program
}

func newSubmissions(p *Problem) *Submissions {
	s := &Submissions{
		aspect:      newAspect(p.rep, "submissions"),
		problem:     p,
		submissions: map[Verdict][]runner.Program{},
	}
	srcdir := filepath.Join(p.probdir, "submissions")
	includeDir := filepath.Join(p.probdir, "include")
	for _, cat := range verdictCategories {
		s.submissions[cat.verdict] = getPrograms(filepath.Join(srcdir, cat.dir), submissionFilenameRe, includeDir, &s.aspect)
	}
	return s
}

// checkSubmission verifies one submission against its expected verdict. The
// whole test data tree is run once, evaluated under both limits; a verdict
// that differs between them earns a sensitivity warning, and the submission
// also passes if only the high-limit verdict matches.
func (s *Submissions) checkSubmission(sub runner.Program, expected Verdict, timelimLow, timelimHigh float64) *SubmissionResult {
	result1, result2 := s.problem.testdata.runSubmission(sub, timelimLow, timelimHigh)

	if result1.Verdict != result2.Verdict {
		s.warning("%s submission %s sensitive to time limit: limit of %v secs -> %s, limit of %v secs -> %s",
			expected, sub.Name(), timelimLow, result1.Verdict, timelimHigh, result2.Verdict)
	}

	switch {
	case result1.Verdict == expected:
		s.msg("   %s submission %s OK: %s", expected, sub.Name(), result1)
	case result2.Verdict == expected:
		s.msg("   %s submission %s OK with extra time: %s", expected, sub.Name(), result2)
	default:
		s.error("%s submission %s got %s", expected, sub.Name(), result1)
	}
	return result1
}

func (s *Submissions) check() bool {
	if done, res := s.beginCheck(); done {
		return res
	}

	timelim := defaultACTimeLimit
	timelimMargin := defaultACTimeLimit
	if v, ok := s.problem.config.Limits()["time_for_AC_submissions"]; ok {
		timelim = toFloat(v)
		timelimMargin = timelim
	}

	for _, cat := range verdictCategories {
		if cat.required && len(s.submissions[cat.verdict]) == 0 {
			s.error(`Require at least one "%s" submission`, cat.dir)
		}

		var runtimes []float64
		for _, sub := range s.submissions[cat.verdict] {
			s.info("Check %s submission %s", cat.verdict, sub.Name())

			if !sub.Compile() {
				s.error("Compile error for %s submission %s", cat.verdict, sub.Name())
				continue
			}

			res := s.runWithProgress(sub, cat.verdict, timelim, timelimMargin)
			runtimes = append(runtimes, res.Runtime)
		}

		if cat.verdict == VerdictAC && len(runtimes) > 0 {
			maxRuntime := runtimes[0]
			for _, r := range runtimes[1:] {
				if r > maxRuntime {
					maxRuntime = r
				}
			}
			exact := maxRuntime * s.problem.config.LimitFloat("time_multiplier")
			timelim = math.Max(1, math.Floor(0.5+exact))
			s.problem.config.Limits()["time"] = int(timelim)
			timelimMargin = math.Max(exact+1,
				math.Floor(0.5+exact*s.problem.config.LimitFloat("time_safety_margin")))
			s.msg("   Slowest AC runtime: %.3f, setting timelim to %d secs, safety margin to %d secs",
				maxRuntime, int(timelim), int(timelimMargin))
		}
	}
	return s.checkResult()
}

// runWithProgress wraps one verification run with a terminal spinner when
// stdout is a TTY.
func (s *Submissions) runWithProgress(sub runner.Program, expected Verdict, timelimLow, timelimHigh float64) *SubmissionResult {
	if !s.problem.ShowProgress {
		return s.checkSubmission(sub, expected, timelimLow, timelimHigh)
	}
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.Suffix = fmt.Sprintf(" Running %s submission %s...", expected, sub.Name())
	sp.Start()
	defer sp.Stop()
	return s.checkSubmission(sub, expected, timelimLow, timelimHigh)
}
