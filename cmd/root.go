package cmd

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"verifyproblem/internal/cli"
	"verifyproblem/pkg/logging"
)

// Exit codes for the CLI.
const (
	// ExitCodeSuccess indicates every problem directory verified cleanly.
	ExitCodeSuccess = 0
	// ExitCodeError indicates verification errors or a command failure.
	ExitCodeError = 1
)

// errVerificationFailed marks runs where at least one directory had errors.
var errVerificationFailed = errors.New("verification found errors")

var (
	logLevelName string
	bailOnError  bool
	parallel     int
	watchMode    bool
)

// rootCmd represents the base command: it verifies the given problem
// package directories.
var rootCmd = &cobra.Command{
	Use:   "verifyproblem [flags] problemdir...",
	Short: "Verify that problem packages are internally consistent",
	Long: `verifyproblem checks that a problem package is internally consistent and
self-certifying: every reference submission produces the verdict its
directory claims, every test input is accepted by every input format
validator, every answer file is accepted by every output validator, and the
time limit is calibrated from the slowest accepted submission.`,
	Args: cobra.MinimumNArgs(1),
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
	RunE:         runVerify,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "verifyproblem version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitCodeError)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevelName, "log-level", "l", "warning",
		"set log level (debug, info, warning, error, critical)")
	rootCmd.Flags().BoolVar(&bailOnError, "bail", false,
		"bail verification of a directory at the first aspect with errors")
	rootCmd.Flags().IntVar(&parallel, "parallel", 1,
		"number of problem directories to verify concurrently")
	rootCmd.Flags().BoolVar(&watchMode, "watch", false,
		"keep running and re-verify a directory whenever it changes")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}

func runVerify(cmd *cobra.Command, args []string) error {
	level, err := logging.ParseLevel(logLevelName)
	if err != nil {
		return err
	}
	logging.InitForCLI(level, os.Stdout)

	opts := cli.Options{
		Bail:     bailOnError,
		Parallel: parallel,
		Progress: isatty.IsTerminal(os.Stdout.Fd()),
	}

	results := cli.Run(args, opts)
	ok := cli.PrintSummary(results, cmd.OutOrStdout())

	if watchMode {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := cli.Watch(ctx, args, func(dir string) {
			res := cli.VerifyDir(dir, false, opts.Bail)
			cli.PrintSummary([]cli.DirResult{res}, cmd.OutOrStdout())
		}); err != nil {
			return err
		}
		return nil
	}

	if !ok {
		return errVerificationFailed
	}
	return nil
}
