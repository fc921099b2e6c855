package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docrender <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  render     Render one request to PDF and publish it")
	fmt.Fprintln(w, "  serve      Host the render pipeline over HTTP")
	fmt.Fprintln(w, "  api        Host the backend generate API")
	fmt.Fprintln(w, "  doctor     Check browser, storage and metrics setup")
	fmt.Fprintln(w, "  config     Print the effective configuration")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'docrender help <command>' for details on a specific command.")
}

// printCommandUsage prints usage for name and returns an exit code.
func printCommandUsage(stdout, stderr io.Writer, name string) int {
	switch name {
	case "render":
		printRenderUsage(stdout)
	case "serve":
		printServeUsage(stdout)
	case "api":
		printAPIUsage(stdout)
	case "doctor":
		printDoctorUsage(stdout)
	case "config":
		printConfigUsage(stdout)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", name)
		return ExitUsage
	}
	return ExitSuccess
}

func printCommonFlags(w io.Writer) {
	fmt.Fprintln(w, "Common:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path (default $DOCRENDER_CONFIG)")
	fmt.Fprintln(w, "      --log-level <s>       trace, debug, info, warn, error")
	fmt.Fprintln(w, "      --log-format <s>      json, console")
}

// printRenderUsage prints usage for the render command.
func printRenderUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docrender render [flags] [request.json]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render one request and print the response. The request is read from")
	fmt.Fprintln(w, "stdin when no file is given or the file is \"-\".")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -o, --local-dir <dir>     Write artifacts below dir instead of cloud storage")
	fmt.Fprintln(w, "  -b, --bucket <name>       Bucket used when the request names none")
	fmt.Fprintln(w)
	printCommonFlags(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Exit codes:")
	fmt.Fprintln(w, "  0  published")
	fmt.Fprintln(w, "  2  invalid request or config")
	fmt.Fprintln(w, "  3  storage or file I/O failure")
	fmt.Fprintln(w, "  4  browser failure")
}

// printServeUsage prints usage for the serve command.
func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docrender serve [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Serve the render pipeline. Every POST body is one render request.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -a, --addr <addr>         Listen address (default server.addr)")
	fmt.Fprintln(w)
	printCommonFlags(w)
}

// printAPIUsage prints usage for the api command.
func printAPIUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docrender api [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Serve POST /pdf/{id}/generate, forwarding to the render pipeline.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -a, --addr <addr>         Listen address (default api.addr)")
	fmt.Fprintln(w, "      --pipeline-url <url>  Render pipeline endpoint (default api.pipelineUrl)")
	fmt.Fprintln(w)
	printCommonFlags(w)
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docrender doctor [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "      --json                Print results as JSON")
	fmt.Fprintln(w)
	printCommonFlags(w)
}

// printConfigUsage prints usage for the config command.
func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docrender config [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Print the configuration after applying the file, DOCRENDER_* variables and flags.")
	fmt.Fprintln(w)
	printCommonFlags(w)
}
