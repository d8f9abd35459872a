package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/pflag"

	"github.com/bjtn1/doopie/internal/config"
	"github.com/bjtn1/doopie/internal/report"
)

type options struct {
	configPath string

	ignore     []string
	ignoreFile string
	regex      string
	algorithm  string
	bufferSize int
	workers    int
	strict     bool
	quick      bool
	format     string
	output     string

	noProgress bool
	logLevel   string
	verbose    bool
}

func bindFlags(fs *pflag.FlagSet, o *options) {
	fs.StringVarP(&o.configPath, "config", "c", config.DefaultPath, "Config file path")
	fs.StringSliceVar(&o.ignore, "exclude", nil, "Glob patterns to ignore (repeatable, adds to the config list)")
	fs.StringVarP(&o.ignoreFile, "ignore", "i", "", "File with ignore patterns, one per line")
	fs.StringVarP(&o.regex, "regex", "r", "", "Only scan files whose relative path matches this regular expression")
	fs.StringVarP(&o.algorithm, "algorithm", "a", "sha256", "Digest algorithm (see 'doopie algorithms')")
	fs.IntVar(&o.bufferSize, "buffer-size", 4096, "Read buffer size in bytes")
	fs.IntVarP(&o.workers, "workers", "w", runtime.NumCPU()*2, "Number of worker goroutines")
	fs.BoolVar(&o.strict, "strict", false, "Abort on the first unreadable file instead of skipping it")
	fs.BoolVar(&o.quick, "quick", false, "Only fingerprint files that share a size and first block with another file")
	fs.StringVarP(&o.format, "format", "f", "text", "Report format: text, json")
	fs.StringVarP(&o.output, "output", "o", "", "Write the report to this file instead of stdout")
	fs.BoolVar(&o.noProgress, "no-progress", false, "Do not show the progress bar")
	fs.StringVar(&o.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "Shorthand for --log-level=debug")
}

// merge fills every option the user did not set on the command line from
// the config file.
func (o *options) merge(fs *pflag.FlagSet, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	o.ignore = append(append([]string{}, cfg.Ignore...), o.ignore...)

	if !fs.Changed("ignore") {
		o.ignoreFile = cfg.IgnoreFile
	}
	if !fs.Changed("regex") {
		o.regex = cfg.Regex
	}
	if !fs.Changed("algorithm") && cfg.Algorithm != "" {
		o.algorithm = cfg.Algorithm
	}
	if !fs.Changed("buffer-size") && cfg.BufferSize > 0 {
		o.bufferSize = cfg.BufferSize
	}
	if !fs.Changed("workers") && cfg.Workers > 0 {
		o.workers = cfg.Workers
	}
	if !fs.Changed("strict") {
		o.strict = cfg.Strict
	}
	if !fs.Changed("quick") {
		o.quick = cfg.Quick
	}
	if !fs.Changed("format") && cfg.Format != "" {
		o.format = cfg.Format
	}
	if !fs.Changed("output") {
		o.output = cfg.Output
	}

	if o.verbose {
		o.logLevel = "debug"
	}
	switch o.format {
	case report.FormatText, report.FormatJSON:
	default:
		return fmt.Errorf("unknown format %q (want text or json)", o.format)
	}
	return nil
}
