package problem

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"verifyproblem/internal/runner"
)

var interactiveOutputRe = regexp.MustCompile(`^\d+ \d+\.\d+ \d+ \d+\.\d+`)

// OutputValidators runs the output validators, either the single external
// default validator or the package's own, in batch or interactive mode.
type OutputValidators struct {
	aspect
	problem          *Problem
	validators       []runner.Program
	defaultValidator runner.Program
}

func newOutputValidators(p *Problem) *OutputValidators {
	v := &OutputValidators{
		aspect:  newAspect(p.rep, "output validators"),
		problem: p,
	}
	v.validators = getPrograms(filepath.Join(p.probdir, "output_validators"), nil, "", &v.aspect)
	v.defaultValidator = p.locator.DefaultValidator()
	return v
}

func (v *OutputValidators) check() bool {
	if done, res := v.beginCheck(); done {
		return res
	}

	validation := asString(v.problem.config.Get("validation"))
	if validation == "default" && len(v.validators) > 0 {
		v.error(`There are validator programs but problem.yaml has validation = "default"`)
	} else if validation != "default" && len(v.validators) == 0 {
		v.error("problem.yaml specifies custom validator but no validator programs found")
	}

	if validation == "default" && v.defaultValidator == nil {
		v.error("Unable to locate default validator")
	}

	for _, val := range v.validators {
		if !val.Compile() {
			v.error("Compile error for output validator %s", val.Name())
		}
	}
	return v.checkResult()
}

func (v *OutputValidators) actualValidators() []runner.Program {
	if asString(v.problem.config.Get("validation")) == "default" {
		return []runner.Program{v.defaultValidator}
	}
	return v.validators
}

// mkFeedbackDir creates a fresh scratch directory for one validator
// invocation; the validator may drop diagnostic files there, notably
// score.txt.
func (v *OutputValidators) mkFeedbackDir() (string, error) {
	dir := filepath.Join(v.problem.probdir, "feedback-"+uuid.NewString())
	return dir, os.Mkdir(dir, 0755)
}

// parseValidatorResults decodes a validator termination into a result: exit
// 42 is AC, 43 is WA, anything else a judge error, with the score coming
// from score.txt when the problem uses custom scoring.
func (v *OutputValidators) parseValidatorResults(val runner.Program, status runner.Status, feedbackdir string, errh *aspect) *SubmissionResult {
	customScore := v.problem.config.CustomScoring()
	var score *float64

	scoreFile := filepath.Join(feedbackdir, "score.txt")
	_, scoreErr := os.Stat(scoreFile)
	scoreExists := scoreErr == nil
	if !customScore && scoreExists {
		errh.error(`validator produced "score.txt" but problem does not have custom scoring activated`)
	}
	if customScore {
		if scoreExists {
			raw, err := os.ReadFile(scoreFile)
			if err == nil {
				parsed, perr := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
				if perr != nil {
					err = perr
				} else {
					score = &parsed
				}
			}
			if err != nil {
				errh.error("failed to check validator score: %v", err)
			}
		} else {
			errh.error(`problem has custom scoring but validator did not produce "score.txt"`)
		}
	}

	if !status.Exited {
		errh.error("Judge error: output validator %s crashed, status %v", val.Name(), status.Signal)
		return newSubmissionResult(VerdictJE, nil, nil, "")
	}
	if status.ExitCode != 42 && status.ExitCode != 43 {
		errh.error("Judge error: exit code %d for output validator %s", status.ExitCode, val.Name())
		return newSubmissionResult(VerdictJE, nil, nil, "")
	}

	if status.ExitCode == 43 {
		if score == nil {
			score = v.problem.config.RejectScore()
		}
		return newSubmissionResult(VerdictWA, score, nil, "")
	}
	if score == nil {
		score = v.problem.config.AcceptScore()
	}
	return newSubmissionResult(VerdictAC, score, nil, "")
}

// validate checks a submission's output file against the reference answer in
// batch mode, stopping at the first validator that rejects it.
func (v *OutputValidators) validate(tc *TestCase, submissionOutput string, errh *aspect) *SubmissionResult {
	res := newSubmissionResult(VerdictJE, nil, nil, "")
	for _, val := range v.actualValidators() {
		if val == nil || !val.Compile() {
			continue
		}
		feedbackdir, err := v.mkFeedbackDir()
		if err != nil {
			errh.error("could not create feedback directory: %v", err)
			return res
		}
		args := []string{tc.infile, tc.ansfile, feedbackdir}
		args = append(args, v.problem.config.ValidatorFlags()...)
		args = append(args, strings.Fields(tc.group.configString("output_validator_flags"))...)

		status, _ := val.Run(runner.RunSpec{Stdin: submissionOutput, Args: args})
		res = v.parseValidatorResults(val, status, feedbackdir, errh)
		os.RemoveAll(feedbackdir)
		if res.Verdict != VerdictAC {
			return res
		}
	}
	// TODO: check that all output validators give same result
	return res
}

// validateInteractive runs the submission and a validator together under the
// external interactive runner, which co-executes them over pipes, enforces a
// wall-clock ceiling of twice the time limit, and reports both parties'
// statuses and runtimes in a single line.
func (v *OutputValidators) validateInteractive(tc *TestCase, sub runner.Program, timelim float64, errh *aspect) *SubmissionResult {
	res := newSubmissionResult(VerdictJE, nil, nil, "")
	interactive := v.problem.locator.Interactive()
	if interactive == nil {
		errh.error("Could not locate interactive runner")
		return res
	}
	// file descriptor mode, wall time limit
	initArgs := []string{"1", strconv.FormatFloat(2*timelim, 'g', -1, 64)}

	for _, val := range v.actualValidators() {
		if val == nil || !val.Compile() {
			continue
		}
		feedbackdir, err := v.mkFeedbackDir()
		if err != nil {
			errh.error("could not create feedback directory: %v", err)
			return res
		}
		scratch, err := os.CreateTemp("", "interactive")
		if err != nil {
			errh.error("could not create interactive output file: %v", err)
			os.RemoveAll(feedbackdir)
			return res
		}
		scratch.Close()

		args := append([]string{}, initArgs...)
		args = append(args, val.RunCommand()...)
		args = append(args, tc.infile, tc.ansfile, feedbackdir)
		args = append(args, ";")
		args = append(args, sub.RunCommand()...)

		iStatus, _ := interactive.Run(runner.RunSpec{Stdout: scratch.Name(), Args: args})
		if runner.IsRTE(iStatus) {
			errh.error("Interactive crashed, status %v", iStatus)
		} else {
			raw, _ := os.ReadFile(scratch.Name())
			output := string(raw)
			errh.debug(`Interactive output: "%s"`, output)
			if !interactiveOutputRe.MatchString(output) {
				errh.error(`Output from interactive does not follow expected format, got output "%s"`, output)
			} else {
				fields := strings.Fields(output)
				valStatus, _ := strconv.Atoi(fields[0])
				subStatus, _ := strconv.Atoi(fields[2])
				subRuntime, _ := strconv.ParseFloat(fields[3], 64)

				subSt := runner.StatusFromRaw(subStatus)
				switch {
				case runner.IsTLE(subSt, true):
					res = newSubmissionResult(VerdictTLE, v.problem.config.RejectScore(), nil, "")
				case runner.IsRTE(subSt):
					res = newSubmissionResult(VerdictRTE, v.problem.config.RejectScore(), nil, "")
				default:
					res = v.parseValidatorResults(val, runner.StatusFromRaw(valStatus), feedbackdir, errh)
				}
				res.Runtime = subRuntime
			}
		}

		os.Remove(scratch.Name())
		os.RemoveAll(feedbackdir)
		if res.Verdict != VerdictAC {
			return res
		}
	}
	// TODO: check that all output validators give same result
	return res
}
