package problem

import (
	"crypto/md5"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"verifyproblem/internal/runner"
)

// testdataItem is either a TestCase or a nested TestCaseGroup.
type testdataItem interface {
	check() bool
	runSubmission(sub runner.Program, timelimLow, timelimHigh float64) (*SubmissionResult, *SubmissionResult)
	allDatasets() []string
}

// TestCase is one .in/.ans pair. Discovered during group construction,
// immutable thereafter.
type TestCase struct {
	aspect
	problem *Problem
	base    string
	infile  string
	ansfile string
	group   *TestCaseGroup
	desc    string
}

func newTestCase(p *Problem, base string, group *TestCaseGroup) *TestCase {
	desc, err := filepath.Rel(filepath.Join(p.probdir, "data"), base)
	if err != nil {
		desc = base
	}
	return &TestCase{
		aspect:  newAspect(p.rep, "test case "+desc),
		problem: p,
		base:    base,
		infile:  base + ".in",
		ansfile: base + ".ans",
		group:   group,
		desc:    desc,
	}
}

func (tc *TestCase) checkNewlines(file string) {
	data, err := os.ReadFile(file)
	if err != nil {
		return
	}
	if strings.ContainsRune(string(data), '\r') {
		tc.warning("The file %s contains non-standard line breaks.", file)
	}
}

func (tc *TestCase) check() bool {
	if done, res := tc.beginCheck(); done {
		return res
	}
	tc.checkNewlines(tc.infile)
	tc.checkNewlines(tc.ansfile)
	tc.problem.inputValidators.validate(tc)

	outputLim := tc.problem.config.LimitFloat("output")
	info, err := os.Stat(tc.ansfile)
	if err == nil {
		ansSize := float64(info.Size())
		if ansSize > outputLim*1024*1024 {
			tc.error("Answer file (%.1f Mb) larger than output limit (%.0f Mb), you need to increase output limit",
				ansSize/1024/1024, outputLim)
		} else if 2*ansSize > outputLim*1024*1024 {
			tc.warning("Answer file (%.1f Mb) is within 50%% of output limit (%.0f Mb), you might want to increase output limit",
				ansSize/1024/1024, outputLim)
		}
	}
	return tc.checkResult()
}

// runSubmission runs one submission on this case at the high limit and
// derives the low-limit outcome from the same run, so both limits are
// assessed without re-executing.
func (tc *TestCase) runSubmission(sub runner.Program, timelimLow, timelimHigh float64) (*SubmissionResult, *SubmissionResult) {
	var res2 *SubmissionResult
	if tc.problem.config.HasValidationParam("interactive") {
		res2 = tc.problem.outputValidators.validateInteractive(tc, sub, timelimHigh, &tc.problem.submissions.aspect)
	} else {
		outfile := filepath.Join(tc.problem.probdir, "output")
		status, runtime := sub.Run(runner.RunSpec{
			Stdin:    tc.infile,
			Stdout:   outfile,
			CPULimit: timelimHigh,
		})
		switch {
		case runner.IsTLE(status, false):
			res2 = newSubmissionResult(VerdictTLE, tc.problem.config.RejectScore(), nil, "")
		case runner.IsRTE(status):
			res2 = newSubmissionResult(VerdictRTE, tc.problem.config.RejectScore(), nil, "")
		default:
			res2 = tc.problem.outputValidators.validate(tc, outfile, &tc.problem.submissions.aspect)
		}
		res2.Runtime = runtime
	}

	res1 := res2
	if res2.Runtime > timelimLow {
		res1 = newSubmissionResult(VerdictTLE, tc.problem.config.RejectScore(), nil, "")
		res1.Runtime = res2.Runtime
	}

	res1.Reason, res2.Reason = tc.desc, tc.desc
	res1.RuntimeReason, res2.RuntimeReason = tc.desc, tc.desc
	if res1.Verdict == VerdictAC {
		res1.ACRuntime = res1.Runtime
		res1.ACRuntimeReason = res1.RuntimeReason
	}
	if res2.Verdict == VerdictAC {
		res2.ACRuntime = res2.Runtime
		res2.ACRuntimeReason = res2.RuntimeReason
	}
	tc.info("Test file result: %s", res1)
	return res1, res2
}

func (tc *TestCase) allDatasets() []string {
	return []string{tc.base}
}

// defaultTestdataConfig is the per-group configuration skeleton; a group
// without its own testdata.yaml inherits its parent's merged config.
func defaultTestdataConfig() map[string]interface{} {
	return map[string]interface{}{
		"grading":                "default",
		"grader_flags":           "",
		"input_validator_flags":  "",
		"output_validator_flags": "",
	}
}

// TestCaseGroup is a directory below data/: nested groups and test cases in
// filename order, with configuration inherited down the tree.
type TestCaseGroup struct {
	aspect
	problem *Problem
	datadir string
	parent  *TestCaseGroup
	config  map[string]interface{}
	items   []testdataItem
	desc    string
}

func newTestCaseGroup(p *Problem, datadir string, parent *TestCaseGroup) *TestCaseGroup {
	desc, err := filepath.Rel(p.probdir, datadir)
	if err != nil {
		desc = datadir
	}
	g := &TestCaseGroup{
		aspect:  newAspect(p.rep, "test case group "+desc),
		problem: p,
		datadir: datadir,
		parent:  parent,
		desc:    desc,
	}
	g.debug("  Loading test data group %s", datadir)

	configfile := filepath.Join(datadir, "testdata.yaml")
	if raw, err := os.ReadFile(configfile); err == nil {
		g.config = map[string]interface{}{}
		if err := yaml.Unmarshal(raw, &g.config); err != nil {
			g.error("%v", err)
			g.config = map[string]interface{}{}
		}
		if g.config == nil {
			g.config = map[string]interface{}{}
		}
	} else if parent != nil {
		g.config = copyConfigMap(parent.config)
	} else {
		g.config = map[string]interface{}{}
	}

	for field, def := range defaultTestdataConfig() {
		if _, ok := g.config[field]; !ok {
			g.config[field] = def
		}
	}

	entries, _ := os.ReadDir(datadir)
	for _, entry := range entries {
		path := filepath.Join(datadir, entry.Name())
		if entry.IsDir() {
			g.items = append(g.items, newTestCaseGroup(p, path, g))
			continue
		}
		if base, ok := strings.CutSuffix(path, ".ans"); ok {
			if _, err := os.Stat(base + ".in"); err == nil {
				g.items = append(g.items, newTestCase(p, base, g))
			}
		}
	}
	return g
}

// configString reads one group config value as a string.
func (g *TestCaseGroup) configString(key string) string {
	return asString(g.config[key])
}

func (g *TestCaseGroup) check() bool {
	if done, res := g.beginCheck(); done {
		return res
	}

	grading := g.configString("grading")
	if grading != "default" && grading != "custom" {
		g.error("Invalid grading policy in testdata.yaml")
	}

	if grading == "custom" && len(g.problem.graders.graders) == 0 {
		g.problem.graders.error("%s has custom grading but no custom graders provided", g.id)
	}
	if grading == "default" && g.problem.graders.defaultGrader == nil {
		g.problem.graders.error("%s has default grading but I could not find default grader", g.id)
	}

	for _, field := range sortedKeys(g.config) {
		if _, known := defaultTestdataConfig()[field]; !known {
			g.warning("Unknown key '%s' in '%s'", field, filepath.Join(g.datadir, "testdata.yaml"))
		}
	}

	if g.parent == nil {
		g.checkTopLevel()
	}

	infiles, _ := filepath.Glob(filepath.Join(g.datadir, "*.in"))
	ansfiles, _ := filepath.Glob(filepath.Join(g.datadir, "*.ans"))
	ansset := make(map[string]bool, len(ansfiles))
	for _, f := range ansfiles {
		ansset[f] = true
	}
	inset := make(map[string]bool, len(infiles))
	for _, f := range infiles {
		inset[f] = true
	}
	for _, f := range infiles {
		if !ansset[strings.TrimSuffix(f, ".in")+".ans"] {
			g.error("No matching answer file for input '%s'", f)
		}
	}
	for _, f := range ansfiles {
		if !inset[strings.TrimSuffix(f, ".ans")+".in"] {
			g.error("No matching input file for answer '%s'", f)
		}
	}

	for _, item := range g.items {
		item.check()
	}
	return g.checkResult()
}

// checkTopLevel enforces the rules that only apply to data/ itself: only the
// sample and secret groups may exist there, secret is required, and
// duplicate inputs anywhere below are reported once per identical set.
func (g *TestCaseGroup) checkTopLevel() {
	seenSecret := false
	seenSample := false
	for _, item := range g.items {
		sub, ok := item.(*TestCaseGroup)
		if !ok {
			g.error("Can't have individual test data files at top level")
			continue
		}
		switch filepath.Base(sub.datadir) {
		case "secret":
			seenSecret = true
		case "sample":
			seenSample = true
		default:
			g.error("Test data at top level can only have the groups sample and secret")
		}
	}
	if !seenSecret {
		g.error("No secret data provided")
	}
	if !seenSample {
		g.warning("No sample data provided")
	}

	hashes := map[[md5.Size]byte][]string{}
	filepath.WalkDir(g.datadir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".in") {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer f.Close()
		h := md5.New()
		if _, err := io.Copy(h, f); err != nil {
			return nil
		}
		var sum [md5.Size]byte
		copy(sum[:], h.Sum(nil))
		rel, relErr := filepath.Rel(filepath.Join(g.problem.probdir, "data"), path)
		if relErr != nil {
			rel = path
		}
		hashes[sum] = append(hashes[sum], rel)
		return nil
	})
	var dups [][]string
	for _, files := range hashes {
		if len(files) > 1 {
			dups = append(dups, files)
		}
	}
	sort.Slice(dups, func(i, j int) bool { return dups[i][0] < dups[j][0] })
	for _, files := range dups {
		g.warning("Identical input files: '%v'", files)
	}
}

// computeResult reduces the per-item results into one group result. With
// first_error the first non-accepted child decides; with worst_error the
// lowest-ranked verdict does. Scoring problems with an accepted aggregate
// delegate the score to the graders; the shadow flag marks the
// high-limit aggregate used for grading decisions only.
func (g *TestCaseGroup) computeResult(subResults []*SubmissionResult, probtype, onReject string, shadow bool) *SubmissionResult {
	verdict := VerdictAC
	reason := ""
	switch onReject {
	case "first_error":
		for _, r := range subResults {
			if r.Verdict != VerdictAC {
				verdict = r.Verdict
				reason = r.Reason
				break
			}
		}
	case "worst_error":
		var worst *SubmissionResult
		for _, r := range subResults {
			if worst == nil || verdictRank[r.Verdict] < verdictRank[worst.Verdict] {
				worst = r
			}
		}
		if worst != nil {
			verdict = worst.Verdict
			reason = worst.Reason
		}
	}
	if probtype == "scoring" && verdict == VerdictAC {
		return g.problem.graders.grade(g, subResults, shadow)
	}
	return newSubmissionResult(verdict, nil, subResults, reason)
}

func (g *TestCaseGroup) runSubmission(sub runner.Program, timelimLow, timelimHigh float64) (*SubmissionResult, *SubmissionResult) {
	g.info("Running on %s", g.id)
	var subres1, subres2 []*SubmissionResult
	probtype := g.problem.config.Type()
	onReject := g.problem.config.OnReject()
	for _, item := range g.items {
		r1, r2 := item.runSubmission(sub, timelimLow, timelimHigh)
		subres1 = append(subres1, r1)
		subres2 = append(subres2, r2)
		if onReject == "first_error" && r2.Verdict != VerdictAC {
			break
		}
	}
	return g.computeResult(subres1, probtype, onReject, false),
		g.computeResult(subres2, probtype, onReject, true)
}

func (g *TestCaseGroup) allDatasets() []string {
	var res []string
	for _, item := range g.items {
		res = append(res, item.allDatasets()...)
	}
	return res
}
