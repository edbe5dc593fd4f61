package problem

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verifyproblem/internal/runner"
)

func wiredProblem(t *testing.T, mutate func(srcdir string)) *Problem {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "testprob")
	writeMinimalProblem(t, dir)
	if mutate != nil {
		mutate(dir)
	}
	p := bareProblem(t, dir)
	p.wire()
	t.Cleanup(p.Close)
	return p
}

func firstTestCase(g *TestCaseGroup) *TestCase {
	for _, item := range g.items {
		switch it := item.(type) {
		case *TestCase:
			return it
		case *TestCaseGroup:
			if tc := firstTestCase(it); tc != nil {
				return tc
			}
		}
	}
	return nil
}

func TestTestdataTreeConstruction(t *testing.T) {
	p := wiredProblem(t, nil)
	require.Len(t, p.testdata.items, 2)

	sample, ok := p.testdata.items[0].(*TestCaseGroup)
	require.True(t, ok)
	assert.Equal(t, "sample", filepath.Base(sample.datadir))
	secret, ok := p.testdata.items[1].(*TestCaseGroup)
	require.True(t, ok)
	assert.Equal(t, "secret", filepath.Base(secret.datadir))

	tc := firstTestCase(sample)
	require.NotNil(t, tc)
	assert.Equal(t, "sample/1", tc.desc)
	assert.True(t, strings.HasSuffix(tc.infile, ".in"))
	assert.True(t, strings.HasSuffix(tc.ansfile, ".ans"))
}

func TestTestdataConfigInheritance(t *testing.T) {
	p := wiredProblem(t, func(srcdir string) {
		writeFile(t, filepath.Join(srcdir, "data", "testdata.yaml"),
			"input_validator_flags: --strict\n")
		writeFile(t, filepath.Join(srcdir, "data", "sample", "testdata.yaml"),
			"input_validator_flags: --lenient\n")
	})

	sample := p.testdata.items[0].(*TestCaseGroup)
	secret := p.testdata.items[1].(*TestCaseGroup)
	assert.Equal(t, "--lenient", sample.configString("input_validator_flags"))
	// Groups without their own testdata.yaml inherit the parent's.
	assert.Equal(t, "--strict", secret.configString("input_validator_flags"))
	assert.Equal(t, "default", secret.configString("grading"))
}

func TestTestdataUnknownKeyWarns(t *testing.T) {
	p := wiredProblem(t, func(srcdir string) {
		writeFile(t, filepath.Join(srcdir, "data", "secret", "testdata.yaml"),
			"grading: default\nfull_feedback: true\n")
	})
	secret := p.testdata.items[1].(*TestCaseGroup)
	before := p.rep.Warnings()
	secret.check()
	assert.Greater(t, p.rep.Warnings(), before)
}

func TestTestdataInvalidGrading(t *testing.T) {
	p := wiredProblem(t, func(srcdir string) {
		writeFile(t, filepath.Join(srcdir, "data", "secret", "testdata.yaml"),
			"grading: bespoke\n")
	})
	secret := p.testdata.items[1].(*TestCaseGroup)
	secret.check()
	assert.GreaterOrEqual(t, p.rep.Errors(), 1)
}

func TestMissingSecret(t *testing.T) {
	p := wiredProblem(t, func(srcdir string) {
		require.NoError(t, os.RemoveAll(filepath.Join(srcdir, "data", "secret")))
	})
	p.testdata.checkTopLevel()
	assert.Equal(t, 1, p.rep.Errors())
}

func TestMissingSampleWarns(t *testing.T) {
	p := wiredProblem(t, func(srcdir string) {
		require.NoError(t, os.RemoveAll(filepath.Join(srcdir, "data", "sample")))
	})
	p.testdata.checkTopLevel()
	assert.Equal(t, 0, p.rep.Errors())
	assert.Equal(t, 1, p.rep.Warnings())
}

func TestTopLevelStrayGroup(t *testing.T) {
	p := wiredProblem(t, func(srcdir string) {
		writeFile(t, filepath.Join(srcdir, "data", "extra", "1.in"), "x")
		writeFile(t, filepath.Join(srcdir, "data", "extra", "1.ans"), "y")
	})
	p.testdata.checkTopLevel()
	assert.Equal(t, 1, p.rep.Errors())
}

func TestTopLevelLooseFiles(t *testing.T) {
	p := wiredProblem(t, func(srcdir string) {
		writeFile(t, filepath.Join(srcdir, "data", "1.in"), "x")
		writeFile(t, filepath.Join(srcdir, "data", "1.ans"), "y")
	})
	p.testdata.checkTopLevel()
	assert.Equal(t, 1, p.rep.Errors())
}

func TestUnpairedInput(t *testing.T) {
	p := wiredProblem(t, func(srcdir string) {
		writeFile(t, filepath.Join(srcdir, "data", "secret", "2.in"), "lonely")
	})
	secret := p.testdata.items[1].(*TestCaseGroup)
	secret.check()
	assert.GreaterOrEqual(t, p.rep.Errors(), 1)
}

func TestUnpairedAnswer(t *testing.T) {
	p := wiredProblem(t, func(srcdir string) {
		writeFile(t, filepath.Join(srcdir, "data", "secret", "2.ans"), "lonely")
	})
	secret := p.testdata.items[1].(*TestCaseGroup)
	secret.check()
	assert.GreaterOrEqual(t, p.rep.Errors(), 1)
}

func TestDuplicateInputsWarnOncePerSet(t *testing.T) {
	p := wiredProblem(t, func(srcdir string) {
		// Three identical inputs form one duplicate set.
		writeFile(t, filepath.Join(srcdir, "data", "secret", "2.in"), "same\n")
		writeFile(t, filepath.Join(srcdir, "data", "secret", "2.ans"), "")
		writeFile(t, filepath.Join(srcdir, "data", "secret", "3.in"), "same\n")
		writeFile(t, filepath.Join(srcdir, "data", "secret", "3.ans"), "")
		writeFile(t, filepath.Join(srcdir, "data", "secret", "4.in"), "same\n")
		writeFile(t, filepath.Join(srcdir, "data", "secret", "4.ans"), "")
	})
	before := p.rep.Warnings()
	p.testdata.checkTopLevel()
	assert.Equal(t, before+1, p.rep.Warnings())
}

func TestCheckNewlinesWarns(t *testing.T) {
	p := wiredProblem(t, func(srcdir string) {
		writeFile(t, filepath.Join(srcdir, "data", "secret", "1.in"), "crlf line\r\n")
	})
	tc := firstTestCase(p.testdata.items[1].(*TestCaseGroup))
	require.NotNil(t, tc)
	before := p.rep.Warnings()
	tc.checkNewlines(tc.infile)
	assert.Equal(t, before+1, p.rep.Warnings())
}

func TestAnswerFileExceedsOutputLimit(t *testing.T) {
	p := wiredProblem(t, func(srcdir string) {
		writeFile(t, filepath.Join(srcdir, "problem.yaml"), "name: x\nlimits:\n  output: 1\n")
		big := bytes.Repeat([]byte("a"), 1100*1024)
		require.NoError(t, os.WriteFile(filepath.Join(srcdir, "data", "secret", "1.ans"), big, 0644))
	})
	tc := firstTestCase(p.testdata.items[1].(*TestCaseGroup))
	require.NotNil(t, tc)
	tc.check()
	assert.GreaterOrEqual(t, p.rep.Errors(), 1)
}

func TestAnswerFileNearOutputLimitWarns(t *testing.T) {
	p := wiredProblem(t, func(srcdir string) {
		writeFile(t, filepath.Join(srcdir, "problem.yaml"), "name: x\nlimits:\n  output: 1\n")
		big := bytes.Repeat([]byte("a"), 600*1024)
		require.NoError(t, os.WriteFile(filepath.Join(srcdir, "data", "secret", "1.ans"), big, 0644))
	})
	tc := firstTestCase(p.testdata.items[1].(*TestCaseGroup))
	require.NotNil(t, tc)
	before := p.rep.Warnings()
	tc.check()
	assert.Greater(t, p.rep.Warnings(), before)
	assert.Equal(t, 0, p.rep.Errors())
}

func TestComputeResultFirstError(t *testing.T) {
	p := wiredProblem(t, nil)
	results := []*SubmissionResult{
		leafResult(VerdictAC, 0.1, "secret/1"),
		leafResult(VerdictWA, 0.2, "secret/2"),
		leafResult(VerdictRTE, 0.3, "secret/3"),
	}
	res := p.testdata.computeResult(results, "pass-fail", "first_error", false)
	assert.Equal(t, VerdictWA, res.Verdict)
	assert.Equal(t, "secret/2", res.Reason)
}

func TestComputeResultAllAccepted(t *testing.T) {
	p := wiredProblem(t, nil)
	results := []*SubmissionResult{
		leafResult(VerdictAC, 0.1, "secret/1"),
		leafResult(VerdictAC, 0.2, "secret/2"),
	}
	res := p.testdata.computeResult(results, "pass-fail", "first_error", false)
	assert.Equal(t, VerdictAC, res.Verdict)
	assert.Equal(t, 0.2, res.Runtime)
}

func TestComputeResultWorstError(t *testing.T) {
	p := wiredProblem(t, nil)
	results := []*SubmissionResult{
		leafResult(VerdictWA, 0.1, "secret/1"),
		leafResult(VerdictTLE, 0.2, "secret/2"),
		leafResult(VerdictRTE, 0.3, "secret/3"),
	}
	res := p.testdata.computeResult(results, "pass-fail", "worst_error", false)
	assert.Equal(t, VerdictTLE, res.Verdict)
	assert.Equal(t, "secret/2", res.Reason)

	withJE := append(results, leafResult(VerdictJE, 0.4, "secret/4"))
	res = p.testdata.computeResult(withJE, "pass-fail", "worst_error", false)
	assert.Equal(t, VerdictJE, res.Verdict)
}

func TestComputeResultIdempotent(t *testing.T) {
	p := wiredProblem(t, nil)
	results := []*SubmissionResult{
		leafResult(VerdictAC, 0.1, "secret/1"),
		leafResult(VerdictWA, 0.2, "secret/2"),
	}
	r1 := p.testdata.computeResult(results, "pass-fail", "first_error", false)
	r2 := p.testdata.computeResult(results, "pass-fail", "first_error", false)
	assert.Empty(t, cmp.Diff(r1, r2))
}

func TestComputeResultScoringDelegatesToGrader(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scored")
	writeMinimalProblem(t, dir)
	writeFile(t, filepath.Join(dir, "problem.yaml"), "name: x\ntype: scoring\nvalidation: custom score\n")
	writeScript(t, filepath.Join(dir, "output_validators", "checker.sh"), "exit 42")
	writeScript(t, filepath.Join(dir, "graders", "grade.sh"), `echo "AC 0.9"`)
	writeFile(t, filepath.Join(dir, "data", "testdata.yaml"), "grading: custom\n")
	p := bareProblem(t, dir)
	p.wire()
	t.Cleanup(p.Close)

	sub1 := leafResult(VerdictAC, 0.1, "secret/1")
	sub1.Score = floatPtr(0.4)
	sub2 := leafResult(VerdictAC, 0.2, "secret/2")
	sub2.Score = floatPtr(0.5)

	res := p.testdata.computeResult([]*SubmissionResult{sub1, sub2}, "scoring", "first_error", false)
	assert.Equal(t, VerdictAC, res.Verdict)
	require.NotNil(t, res.Score)
	assert.Equal(t, 0.9, *res.Score)
	assert.Equal(t, 0, p.rep.Errors())
}

func TestGroupRunSubmissionFirstErrorShortCircuits(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "invocations")
	p := wiredProblem(t, func(srcdir string) {
		writeFile(t, filepath.Join(srcdir, "data", "secret", "2.in"), "more input\n")
		writeFile(t, filepath.Join(srcdir, "data", "secret", "2.ans"), "")
	})

	// Accepts empty input, fails on anything else; every invocation leaves
	// a marker line.
	script := filepath.Join(t.TempDir(), "touchy.sh")
	writeScript(t, script, "echo x >> "+marker+"\nif grep -q .; then exit 1; fi\nexit 0")
	sub, err := runner.NewProgram(script, "")
	require.NoError(t, err)
	require.True(t, sub.Compile())

	_, res2 := p.testdata.runSubmission(sub, 300, 300)
	assert.Equal(t, VerdictRTE, res2.Verdict)

	// sample/1 (empty, AC) and secret/1 (non-empty, RTE) ran; secret/2 was
	// never invoked.
	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "x"))
}

func TestRunSubmissionTwoLimits(t *testing.T) {
	p := wiredProblem(t, nil)
	tc := firstTestCase(p.testdata.items[0].(*TestCaseGroup))
	require.NotNil(t, tc)

	// Burn a measurable amount of CPU, then accept.
	script := filepath.Join(t.TempDir(), "slow.sh")
	writeScript(t, script, "i=0\nwhile [ $i -lt 50000 ]; do i=$((i+1)); done\nexit 0")
	sub, err := runner.NewProgram(script, "")
	require.NoError(t, err)
	require.True(t, sub.Compile())

	res1, res2 := tc.runSubmission(sub, 0.000001, 300)
	assert.Equal(t, VerdictAC, res2.Verdict)
	assert.Equal(t, VerdictTLE, res1.Verdict, "low limit below the measured runtime must yield TLE")
	assert.Equal(t, res2.Runtime, res1.Runtime, "both limits are judged from the same single run")
	assert.Equal(t, tc.desc, res1.Reason)
	assert.Equal(t, tc.desc, res2.RuntimeReason)
	assert.Equal(t, res2.Runtime, res2.ACRuntime)
}
