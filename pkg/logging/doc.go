// Package logging provides the leveled, subsystem-prefixed logging used by
// the verifyproblem CLI.
//
// It is a thin wrapper around Go's standard slog package. Every log entry
// carries a subsystem identifier (the aspect being checked, e.g. "problem
// configuration" or "test case group data/secret") so the output of a long
// verification run can be attributed to the component that produced it.
//
// # Log Levels
//   - **Debug**: Detailed information for debugging and development
//   - **Info**: General informational messages about verification progress
//   - **Warn**: Warning messages that indicate package quality issues
//   - **Error**: Error messages for package defects and failures
//
// The CLI front-end also accepts the level name "critical" for compatibility
// with the conventional five-name set; it maps to Error.
//
// # Usage
//
//	import "verifyproblem/pkg/logging"
//
//	logging.InitForCLI(logging.LevelInfo, os.Stdout)
//
//	logging.Info("problem configuration", "Loaded %s", configPath)
//	logging.Warn("submissions", "submission %s sensitive to time limit", name)
//	logging.Error("graders", err, "grader %s crashed", name)
//
// Level filtering happens at the handler, so filtered-out messages cost no
// allocations.
package logging
