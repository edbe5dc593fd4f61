package problem

import (
	"fmt"
	"strings"
)

// Verdict is the outcome of running a submission on a test case or group.
type Verdict string

const (
	VerdictAC  Verdict = "AC"
	VerdictWA  Verdict = "WA"
	VerdictRTE Verdict = "RTE"
	VerdictTLE Verdict = "TLE"
	VerdictJE  Verdict = "JE"
	VerdictCE  Verdict = "CE"
)

// verdictRank orders verdicts from worst to best for worst_error aggregation.
var verdictRank = map[Verdict]int{
	VerdictJE:  -1,
	VerdictCE:  0,
	VerdictTLE: 1,
	VerdictRTE: 2,
	VerdictWA:  3,
	VerdictAC:  4,
}

// SubmissionResult is an immutable verdict record. When built from
// subresults it propagates the maximum runtime (and the maximum runtime over
// accepted children) together with the producing dataset as witness. Leaf
// results get Reason and RuntimeReason stamped by the test case that
// produced them; recipients never mutate a result otherwise.
type SubmissionResult struct {
	Verdict    Verdict
	Score      *float64
	Subresults []*SubmissionResult

	// Reason names the dataset that caused the outcome.
	Reason string

	Runtime         float64
	RuntimeReason   string
	ACRuntime       float64
	ACRuntimeReason string
}

func newSubmissionResult(verdict Verdict, score *float64, subresults []*SubmissionResult, reason string) *SubmissionResult {
	res := &SubmissionResult{
		Verdict:    verdict,
		Score:      score,
		Subresults: subresults,
		Reason:     reason,
		Runtime:    -1.0,
		ACRuntime:  -1.0,
	}
	for _, r := range subresults {
		if r.Runtime > res.Runtime {
			res.Runtime = r.Runtime
			res.RuntimeReason = r.RuntimeReason
		}
		if r.ACRuntime > res.ACRuntime {
			res.ACRuntime = r.ACRuntime
			res.ACRuntimeReason = r.ACRuntimeReason
		}
	}
	return res
}

func (r *SubmissionResult) String() string {
	var b strings.Builder
	b.WriteString(string(r.Verdict))
	if r.Score != nil && r.Verdict == VerdictAC {
		fmt.Fprintf(&b, " (%.0f)", *r.Score)
	}
	b.WriteString(" [")
	if r.Verdict != VerdictAC && r.Reason != "" {
		fmt.Fprintf(&b, "dataset: %s, ", r.Reason)
	}
	fmt.Fprintf(&b, "CPU: %.2fs @ %s]", r.Runtime, r.RuntimeReason)
	return b.String()
}

func floatPtr(v float64) *float64 { return &v }
