package main

import (
	"errors"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

// Sentinel errors for CLI operations.
var (
	ErrUsage       = errors.New("invalid usage")
	ErrReadRequest = errors.New("failed to read render request")
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config    string
	logLevel  string
	logFormat string
}

// renderFlags holds flags for the render command.
type renderFlags struct {
	common   commonFlags
	localDir string
	bucket   string
}

// serveFlags holds flags for the serve and api commands.
type serveFlags struct {
	common      commonFlags
	addr        string
	pipelineURL string // api only
}

// doctorFlags holds flags for the doctor command.
type doctorFlags struct {
	common commonFlags
	json   bool
}

// addCommonFlags adds shared flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path (default $DOCRENDER_CONFIG)")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: json, console")
}

// newFlagSet creates a FlagSet that reports errors to stderr and prints
// usage through usage.
func newFlagSet(name string, stderr io.Writer, usage func(io.Writer)) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(stderr) }
	return fs
}

// parseRenderFlags parses render command flags and returns positional args.
func parseRenderFlags(args []string, stderr io.Writer) (*renderFlags, []string, error) {
	fs := newFlagSet("render", stderr, printRenderUsage)
	f := &renderFlags{}

	addCommonFlags(fs, &f.common)
	fs.StringVarP(&f.localDir, "local-dir", "o", "", "write artifacts below this directory instead of cloud storage")
	fs.StringVarP(&f.bucket, "bucket", "b", "", "storage bucket when the request names none")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if fs.NArg() > 1 {
		return nil, nil, fmt.Errorf("%w: render takes at most one request file", ErrUsage)
	}
	return f, fs.Args(), nil
}

// parseServeFlags parses serve or api command flags.
func parseServeFlags(name string, args []string, stderr io.Writer) (*serveFlags, error) {
	usage := printServeUsage
	if name == "api" {
		usage = printAPIUsage
	}
	fs := newFlagSet(name, stderr, usage)
	f := &serveFlags{}

	addCommonFlags(fs, &f.common)
	fs.StringVarP(&f.addr, "addr", "a", "", "listen address (overrides config)")
	if name == "api" {
		fs.StringVar(&f.pipelineURL, "pipeline-url", "", "render pipeline endpoint (overrides config)")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: %s takes no arguments", ErrUsage, name)
	}
	return f, nil
}

// parseDoctorFlags parses doctor command flags.
func parseDoctorFlags(args []string, stderr io.Writer) (*doctorFlags, error) {
	fs := newFlagSet("doctor", stderr, printDoctorUsage)
	f := &doctorFlags{}

	addCommonFlags(fs, &f.common)
	fs.BoolVar(&f.json, "json", false, "print results as JSON")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// parseConfigFlags parses config command flags.
func parseConfigFlags(args []string, stderr io.Writer) (*commonFlags, error) {
	fs := newFlagSet("config", stderr, printConfigUsage)
	f := &commonFlags{}

	addCommonFlags(fs, f)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// flagExitCode maps a flag parsing error onto an exit code. --help is not
// a failure.
func flagExitCode(err error) int {
	if errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	return ExitUsage
}
