package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sharedshake/sharedshake/internal/logger"
	"github.com/sharedshake/sharedshake/pkg/cli"
)

const helpText = `
Usage:
  sharedshake [options] [chunk files]

Options:
  --config=...             Optimization flags (json, yaml, or toml)
  --manifest=...           A usage manifest; may be repeated, and an export
                           used by any manifest is kept
  --entry=...              An entry module id; may be repeated
  --outfile=...            The output file (for one input file)
  --outdir=...             The output directory (for several input files)
  --write                  Overwrite each input file and keep a copy of it
                           with the ".original" extension
  --report=...             Write a JSON report of what was removed

Advanced options:
  --version                  Print the current version and exit (` + sharedshakeVersion + `)
  --share-key=...            Only use the manifest entries of this package
  --possibly-unused=...      What to do with possibly unused exports (keep or
                             remove, default keep)
  --max-iterations=...       Give up when the output still changes after this
                             many passes (default 8)
  --no-shake                 Resolve marker regions but keep every module
  --keep-unresolved-markers  Leave regions whose condition isn't set alone
  --skip-validation          Don't check the input and output syntax
  --annotate=...             Wrap the exports of a package in marker regions
                             instead of optimizing
  --namespace=...            The first segment of annotated conditions
                             (default treeShake)
  --parallel=...             How many files to process at once (default 4)
  --log-level=...            Disable logging (verbose, info, warning, error,
                             silent)
  --color=...                Force use of color terminal escapes (true or false)
  --timing                   Print how long each phase took

Examples:
  # Remove the exports no application uses from a shared chunk
  sharedshake --manifest=share-usage.json dist/vendors-lib.js --write

  # Combine the usage of two applications and report what was removed
  sharedshake --manifest=app1/share-usage.json --manifest=app2/share-usage.json \
    --outdir=optimized --report=report.json dist/*.js

  # Provide input via stdin, get output via stdout
  sharedshake --config=flags.yaml < chunk.js > chunk.min.js
`

func main() {
	osArgs := os.Args[1:]
	heapFile := ""
	traceFile := ""
	cpuprofileFile := ""

	// Do an initial scan over the argument list
	argsEnd := 0
	for _, arg := range osArgs {
		switch {
		// Show help if a common help flag is provided
		case arg == "-h", arg == "-help", arg == "--help", arg == "/?":
			fmt.Fprintf(os.Stderr, "%s\n", helpText)
			os.Exit(0)

		// Special-case the version flag here
		case arg == "--version":
			fmt.Fprintf(os.Stdout, "%s\n", sharedshakeVersion)
			os.Exit(0)

		case strings.HasPrefix(arg, "--heap="):
			heapFile = arg[len("--heap="):]

		case strings.HasPrefix(arg, "--trace="):
			traceFile = arg[len("--trace="):]

		case strings.HasPrefix(arg, "--cpuprofile="):
			cpuprofileFile = arg[len("--cpuprofile="):]

		default:
			// Strip any arguments that were handled above
			osArgs[argsEnd] = arg
			argsEnd++
		}
	}
	osArgs = osArgs[:argsEnd]

	// Print help text when there are no arguments and nothing is piped in
	if len(osArgs) == 0 && logger.GetTerminalInfo(os.Stdin).IsTTY {
		fmt.Fprintf(os.Stderr, "%s\n", helpText)
		os.Exit(0)
	}

	// Capture the defer statements below so the profiles are complete
	exitCode := 1
	func() {
		// To view a CPU trace, use "go tool trace [file]"
		if traceFile != "" {
			done := createTraceFile(osArgs, traceFile)
			if done == nil {
				return
			}
			defer done()
		}

		// To view a heap trace, use "go tool pprof [file]"
		if heapFile != "" {
			done := createHeapFile(osArgs, heapFile)
			if done == nil {
				return
			}
			defer done()
		}

		// To view a CPU profile, drop the file into https://speedscope.app
		if cpuprofileFile != "" {
			done := createCpuprofileFile(osArgs, cpuprofileFile)
			if done == nil {
				return
			}
			defer done()
		}

		exitCode = cli.Run(osArgs)
	}()

	os.Exit(exitCode)
}
