package problem

import (
	"fmt"

	"verifyproblem/pkg/logging"
)

// Reporter accumulates the error and warning counts for one verification
// run. It is owned by the Problem and shared by every aspect; the engine is
// single-threaded so plain counters suffice.
type Reporter struct {
	errors   int
	warnings int
}

// Reset zeroes both counters at the start of a check run.
func (r *Reporter) Reset() {
	r.errors = 0
	r.warnings = 0
}

// Errors returns the number of errors reported so far.
func (r *Reporter) Errors() int { return r.errors }

// Warnings returns the number of warnings reported so far.
func (r *Reporter) Warnings() int { return r.warnings }

type checkState int

const (
	checkUnchecked checkState = iota
	checkOK
	checkFailed
)

// aspect is embedded by every checkable component. It carries the component's
// string identity (used as the logging subsystem), the shared Reporter, and
// the memoized check outcome.
type aspect struct {
	rep   *Reporter
	id    string
	state checkState
}

func newAspect(rep *Reporter, id string) aspect {
	return aspect{rep: rep, id: id}
}

// beginCheck implements the check memoization. When the aspect was already
// checked (or already failed during construction) it returns done=true with
// the recorded outcome; otherwise it marks the aspect ok and lets the caller
// run its validations, which flip the state through error().
func (a *aspect) beginCheck() (done, res bool) {
	if a.state != checkUnchecked {
		return true, a.state == checkOK
	}
	a.state = checkOK
	return false, true
}

// checkResult returns the current outcome; valid after beginCheck.
func (a *aspect) checkResult() bool {
	return a.state != checkFailed
}

// error records a defect: it fails the aspect and increments the error count.
func (a *aspect) error(format string, args ...interface{}) {
	a.state = checkFailed
	a.rep.errors++
	logging.Error(a.id, nil, format, args...)
}

// warning records an advisory finding without failing the aspect.
func (a *aspect) warning(format string, args ...interface{}) {
	a.rep.warnings++
	logging.Warn(a.id, format, args...)
}

func (a *aspect) info(format string, args ...interface{}) {
	logging.Info(a.id, format, args...)
}

func (a *aspect) debug(format string, args ...interface{}) {
	logging.Debug(a.id, format, args...)
}

// msg writes user-facing progress output directly to stdout, outside the
// leveled log stream.
func (a *aspect) msg(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
}
