package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bjtn1/doopie/internal/config"
	"github.com/bjtn1/doopie/internal/filter"
	"github.com/bjtn1/doopie/internal/hash"
	"github.com/bjtn1/doopie/internal/progress"
	"github.com/bjtn1/doopie/internal/report"
	"github.com/bjtn1/doopie/internal/scan"
)

// Version information (set by ldflags during build)
var version = "dev"

// Exit codes
const (
	exitOK       = 0
	exitError    = 1
	exitDegraded = 2 // files were skipped or the scan was interrupted
)

type exitCodeError struct {
	code int
}

func (e exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "doopie [options] <directory>",
		Short: "Find duplicate files in a directory",
		Long: `doopie walks a directory tree, fingerprints every file's content with a
cryptographic digest and reports the groups of files that are byte-identical.
Nothing is ever modified or deleted.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, args[0], opts, stdout, stderr)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	bindFlags(rootCmd.Flags(), opts)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "algorithms",
		Short: "List the supported digest algorithms",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, algo := range hash.Algorithms() {
				marker := ""
				if algo == hash.DefaultAlgorithm {
					marker = " (default)"
				}
				fmt.Fprintf(stdout, "%-10s %3d bits%s\n", algo, algo.Size()*8, marker)
			}
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "doopie version %s\n", version)
		},
	})

	return rootCmd
}

func newLogger(w io.Writer, level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger := logrus.New()
	logger.Out = w
	logger.Level = lvl
	logger.Formatter = &logrus.TextFormatter{DisableTimestamp: true}
	return logger, nil
}

func runScan(cmd *cobra.Command, directory string, opts *options, stdout, stderr io.Writer) error {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := opts.merge(cmd.Flags(), cfg); err != nil {
		return err
	}

	logger, err := newLogger(stderr, opts.logLevel)
	if err != nil {
		return err
	}

	algo, err := hash.ParseAlgorithm(opts.algorithm)
	if err != nil {
		return err
	}

	admit, err := filter.Rules{
		Ignore:     opts.ignore,
		IgnoreFile: opts.ignoreFile,
		Regex:      opts.regex,
	}.Build()
	if err != nil {
		return err
	}

	// Convert to absolute path
	root, err := filepath.Abs(directory)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	scanOpts := scan.Options{
		Admit:      admit,
		Algorithm:  algo,
		BufferSize: opts.bufferSize,
		Workers:    opts.workers,
		Strict:     opts.strict,
		Quick:      opts.quick,
		Logger:     logrus.NewEntry(logger),
	}
	if !opts.noProgress {
		scanOpts.Progress = progress.New(stderr)
	}

	scanner, err := scan.New(scanOpts)
	if err != nil {
		return err
	}

	logger.WithField("root", root).Info("scanning directory")

	result, scanErr := scanner.Run(cmd.Context(), root)
	if result == nil {
		return scanErr
	}

	if opts.output != "" {
		if err := report.Save(opts.output, opts.format, root, algo, result); err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
		fmt.Fprintf(stdout, "Report written to %s\n", opts.output)
	} else if err := report.Write(stdout, opts.format, root, algo, result); err != nil {
		return err
	}

	if scanErr != nil {
		fmt.Fprintf(stderr, "Warning: %v\n", scanErr)
	}
	if len(result.Errors) > 0 {
		fmt.Fprintf(stderr, "Skipped %d files due to errors\n", len(result.Errors))
	}
	if !result.Clean() {
		return exitCodeError{code: exitDegraded}
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()

	os.Exit(exitCode(err, os.Stderr))
}

func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return exitOK
	}
	var codeErr exitCodeError
	if errors.As(err, &codeErr) {
		return codeErr.code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitError
}
