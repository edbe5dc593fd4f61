// Package problem implements the verification engine for problem packages.
//
// A Problem stages a working copy of the package directory, wires up the
// checkable aspects (configuration, statement, input format validators,
// output validators, graders, test data, submissions) and runs their checks
// in a fixed order. Errors and warnings are accumulated in a Reporter owned
// by the Problem; each aspect memoizes its own check outcome.
//
// Reference submissions are verified by running them over the test data tree
// under two time limits simultaneously: a single run at the high limit whose
// runtime is reinterpreted against the low limit, which both validates the
// claimed verdict and detects sensitivity to the time limit. The time limit
// itself is calibrated from the slowest accepted submission.
package problem
