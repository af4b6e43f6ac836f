package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sharedshake/sharedshake/internal/cli_helpers"
	"github.com/sharedshake/sharedshake/pkg/api"
)

const defaultParallel = 4

type options struct {
	files []string

	configFiles    []string
	manifestFiles  []string
	shareKey       string
	namespace      string
	possiblyUnused api.PossiblyUnused
	entryPoints    []string

	outfile    string
	outdir     string
	write      bool
	reportFile string

	maxIterations  int
	noShake        bool
	skipValidation bool
	keepUnresolved bool

	// The share key to annotate with, or empty to optimize
	annotate string

	parallel int
	logLevel api.LogLevel
	color    api.StderrColor
	timing   bool
}

func newOptions() options {
	return options{
		parallel: defaultParallel,
		logLevel: api.LogLevelInfo,
	}
}

func parseOptions(osArgs []string) (*options, *cli_helpers.ErrorWithNote) {
	opts := newOptions()

	for _, arg := range osArgs {
		switch {
		case strings.HasPrefix(arg, "--config="):
			opts.configFiles = append(opts.configFiles, arg[len("--config="):])

		case strings.HasPrefix(arg, "--manifest="):
			opts.manifestFiles = append(opts.manifestFiles, arg[len("--manifest="):])

		case strings.HasPrefix(arg, "--share-key="):
			opts.shareKey = arg[len("--share-key="):]

		case strings.HasPrefix(arg, "--namespace="):
			opts.namespace = arg[len("--namespace="):]

		case strings.HasPrefix(arg, "--possibly-unused="):
			value, err := cli_helpers.ParsePossiblyUnused(arg[len("--possibly-unused="):])
			if err != nil {
				return nil, err
			}
			opts.possiblyUnused = value

		case strings.HasPrefix(arg, "--entry="):
			opts.entryPoints = append(opts.entryPoints, arg[len("--entry="):])

		case strings.HasPrefix(arg, "--outfile="):
			opts.outfile = arg[len("--outfile="):]

		case strings.HasPrefix(arg, "--outdir="):
			opts.outdir = arg[len("--outdir="):]

		case arg == "--write":
			opts.write = true

		case strings.HasPrefix(arg, "--report="):
			opts.reportFile = arg[len("--report="):]

		case strings.HasPrefix(arg, "--max-iterations="):
			value, err := cli_helpers.ParsePositiveInt("--max-iterations", arg[len("--max-iterations="):])
			if err != nil {
				return nil, err
			}
			opts.maxIterations = value

		case arg == "--no-shake":
			opts.noShake = true

		case arg == "--skip-validation":
			opts.skipValidation = true

		case arg == "--keep-unresolved-markers":
			opts.keepUnresolved = true

		case strings.HasPrefix(arg, "--annotate="):
			opts.annotate = arg[len("--annotate="):]
			if opts.annotate == "" {
				return nil, cli_helpers.MakeErrorWithNote(
					"Missing share key for \"--annotate\"",
					"Use the key the package is shared under, such as \"--annotate=lodash\".",
				)
			}

		case strings.HasPrefix(arg, "--parallel="):
			value, err := cli_helpers.ParsePositiveInt("--parallel", arg[len("--parallel="):])
			if err != nil {
				return nil, err
			}
			opts.parallel = value

		case strings.HasPrefix(arg, "--log-level="):
			value, err := cli_helpers.ParseLogLevel(arg[len("--log-level="):])
			if err != nil {
				return nil, err
			}
			opts.logLevel = value

		case strings.HasPrefix(arg, "--color="):
			value, err := cli_helpers.ParseColor(arg[len("--color="):])
			if err != nil {
				return nil, err
			}
			opts.color = value

		case arg == "--timing":
			opts.timing = true

		case !strings.HasPrefix(arg, "-"):
			opts.files = append(opts.files, arg)

		default:
			return nil, cli_helpers.MakeErrorWithNote(
				fmt.Sprintf("Invalid command-line flag: %q", arg),
				"Use \"--help\" to list the supported flags.",
			)
		}
	}

	if err := opts.checkOutputs(); err != nil {
		return nil, err
	}
	return &opts, nil
}

func (opts *options) checkOutputs() *cli_helpers.ErrorWithNote {
	count := 0
	for _, given := range []bool{opts.outfile != "", opts.outdir != "", opts.write} {
		if given {
			count++
		}
	}
	if count > 1 {
		return cli_helpers.MakeErrorWithNote(
			"Cannot use more than one of \"--outfile\", \"--outdir\", and \"--write\"",
			"",
		)
	}

	if len(opts.files) == 0 {
		if opts.outdir != "" || opts.write {
			return cli_helpers.MakeErrorWithNote(
				"Must name the input files when using \"--outdir\" or \"--write\"",
				"Without input files the chunk is read from stdin.",
			)
		}
	} else if len(opts.files) > 1 {
		if opts.outfile != "" {
			return cli_helpers.MakeErrorWithNote(
				"Cannot use \"--outfile\" with more than one input file",
				"Use \"--outdir\" or \"--write\" instead.",
			)
		}
		if count == 0 {
			return cli_helpers.MakeErrorWithNote(
				"Must use \"--outdir\" or \"--write\" when there are multiple input files",
				"",
			)
		}
	}

	if opts.annotate != "" && opts.reportFile != "" {
		return cli_helpers.MakeErrorWithNote(
			"Cannot use \"--report\" with \"--annotate\"",
			"Annotating doesn't remove anything, so there is nothing to report.",
		)
	}
	return nil
}

// Where the output for one input goes. An empty path means stdout.
func (opts *options) outputPath(file string) string {
	switch {
	case opts.outfile != "":
		return opts.outfile
	case opts.outdir != "":
		return filepath.Join(opts.outdir, filepath.Base(file))
	case opts.write:
		return file
	}
	return ""
}
