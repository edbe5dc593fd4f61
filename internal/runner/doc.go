// Package runner compiles and executes the helper programs a problem package
// carries: validators, graders, reference submissions and the external
// support binaries (default validator, default grader, interactive runner).
//
// A Program is compiled at most once and then run any number of times with
// redirected stdin/stdout, an argument vector and an optional CPU limit. The
// CPU limit is enforced by the operating system (RLIMIT_CPU on the started
// child), so a program that exceeds it is killed with SIGXCPU; the engine
// observes that through the Status predicates IsTLE and IsRTE rather than by
// implementing timeouts itself.
//
// Each child runs in its own process group so that anything it spawned can be
// cleaned up when it terminates.
package runner
