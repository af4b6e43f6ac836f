// This package runs the command-line tool. Each chunk file is optimized on
// its own, several at a time, and the results are written next to it, into
// an output directory, or to stdout.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/sharedshake/sharedshake/internal/api_helpers"
	"github.com/sharedshake/sharedshake/internal/cli_helpers"
	"github.com/sharedshake/sharedshake/internal/exitcode"
	"github.com/sharedshake/sharedshake/internal/logger"
	"github.com/sharedshake/sharedshake/pkg/api"
)

// The suffix of the copy of the original chunk kept by "--write"
const backupSuffix = ".original"

func Run(osArgs []string) int {
	return exitcode.Get(run(osArgs))
}

func run(osArgs []string) error {
	opts, errWithNote := parseOptions(osArgs)
	if errWithNote != nil {
		printErrorWithNote(osArgs, errWithNote)
		return exitcode.Set(errors.New(errWithNote.Text), exitcode.Usage)
	}
	return runWithOptions(osArgs, opts)
}

func printErrorWithNote(osArgs []string, err *cli_helpers.ErrorWithNote) {
	msg := logger.Msg{Kind: logger.Error, Data: logger.MsgData{Text: err.Text}}
	if err.Note != "" {
		msg.Notes = []logger.MsgData{{Text: err.Note}}
	}
	logger.PrintMessageToStderr(osArgs, msg)
}

// One input and what became of it
type chunk struct {
	path   string
	code   string
	output string
	report *api.Report
}

func runWithOptions(osArgs []string, opts *options) error {
	if opts.timing {
		api_helpers.UseTimer = true
	}

	var flags api.FlagsResult
	if len(opts.configFiles) > 0 || len(opts.manifestFiles) > 0 {
		flags = api.LoadFlags(api.FlagsOptions{
			Color:          opts.color,
			LogLevel:       opts.logLevel,
			ConfigFiles:    opts.configFiles,
			ManifestFiles:  opts.manifestFiles,
			ShareKey:       opts.shareKey,
			Namespace:      opts.namespace,
			PossiblyUnused: opts.possiblyUnused,
		})
		if len(flags.Errors) > 0 {
			return fmt.Errorf("Could not load the optimization flags")
		}
	}

	// Read the input from stdin
	if len(opts.files) == 0 {
		bytes, err := io.ReadAll(os.Stdin)
		if err != nil {
			logger.PrintErrorToStderr(osArgs, fmt.Sprintf(
				"Could not read from stdin: %s", err.Error()))
			return err
		}
		c := &chunk{code: string(bytes)}
		err = c.transform(opts, flags)
		if err == nil {
			err = c.writeOutput(osArgs, opts)
		}
		if reportErr := writeReport(osArgs, opts, []*chunk{c}); err == nil {
			err = reportErr
		}
		return err
	}

	chunks := make([]*chunk, len(opts.files))
	group := errgroup.Group{}
	group.SetLimit(opts.parallel)

	// One failing file doesn't cancel the others
	for i, path := range opts.files {
		c := &chunk{path: path}
		chunks[i] = c
		group.Go(func() error {
			bytes, err := os.ReadFile(c.path)
			if err != nil {
				logger.PrintErrorToStderr(osArgs, fmt.Sprintf(
					"Could not read from file: %s", err.Error()))
				c.report = &api.Report{File: c.path, Error: err.Error()}
				return err
			}
			c.code = string(bytes)
			if err := c.transform(opts, flags); err != nil {
				return err
			}
			return c.writeOutput(osArgs, opts)
		})
	}

	err := group.Wait()
	if reportErr := writeReport(osArgs, opts, chunks); err == nil {
		err = reportErr
	}
	return err
}

func (c *chunk) transform(opts *options, flags api.FlagsResult) error {
	if opts.annotate != "" {
		result := api.Annotate(c.code, api.AnnotateOptions{
			Color:      opts.color,
			LogLevel:   opts.logLevel,
			Sourcefile: c.path,
			ShareKey:   opts.annotate,
			Namespace:  opts.namespace,
		})
		if len(result.Errors) > 0 {
			return fmt.Errorf("Could not annotate %s", c.name())
		}
		c.output = result.Code
		return nil
	}

	result := api.Optimize(c.code, api.OptimizeOptions{
		Color:                 opts.color,
		LogLevel:              opts.logLevel,
		Sourcefile:            c.path,
		Config:                flags.Config,
		EntryPoints:           opts.entryPoints,
		EntryHints:            flags.EntryHints,
		MaxIterations:         opts.maxIterations,
		NoShake:               opts.noShake,
		KeepUnresolvedMarkers: opts.keepUnresolved,
		SkipValidation:        opts.skipValidation,
	})
	c.report = &result.Report
	if len(result.Errors) > 0 {
		return fmt.Errorf("Could not optimize %s", c.name())
	}
	c.output = result.Code
	return nil
}

func (c *chunk) name() string {
	if c.path == "" {
		return "<stdin>"
	}
	return c.path
}

func (c *chunk) writeOutput(osArgs []string, opts *options) error {
	outputPath := opts.outputPath(c.path)

	// Special-case writing to stdout
	if outputPath == "" {
		if _, err := os.Stdout.WriteString(c.output); err != nil {
			logger.PrintErrorToStderr(osArgs, fmt.Sprintf(
				"Failed to write to stdout: %s", err.Error()))
			return err
		}
		return nil
	}

	if opts.write {
		// Leave files that didn't change alone, including their timestamps
		if c.output == c.code {
			return nil
		}
		// An earlier run already saved the chunk as it was built
		backupPath := c.path + backupSuffix
		if _, err := os.Stat(backupPath); os.IsNotExist(err) {
			if err := os.WriteFile(backupPath, []byte(c.code), 0644); err != nil {
				logger.PrintErrorToStderr(osArgs, fmt.Sprintf(
					"Failed to write the backup file: %s", err.Error()))
				return err
			}
		} else if err != nil {
			logger.PrintErrorToStderr(osArgs, fmt.Sprintf(
				"Failed to check the backup file: %s", err.Error()))
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		logger.PrintErrorToStderr(osArgs, fmt.Sprintf(
			"Failed to create output directory: %s", err.Error()))
		return err
	}
	if err := os.WriteFile(outputPath, []byte(c.output), 0644); err != nil {
		logger.PrintErrorToStderr(osArgs, fmt.Sprintf(
			"Failed to write to output file: %s", err.Error()))
		return err
	}
	return nil
}

func writeReport(osArgs []string, opts *options, chunks []*chunk) error {
	if opts.reportFile == "" {
		return nil
	}
	reports := make([]api.Report, 0, len(chunks))
	for _, c := range chunks {
		if c.report != nil {
			reports = append(reports, *c.report)
		}
	}
	bytes, err := json.MarshalIndent(reports, "", "  ")
	if err == nil {
		err = os.WriteFile(opts.reportFile, append(bytes, '\n'), 0644)
	}
	if err != nil {
		logger.PrintErrorToStderr(osArgs, fmt.Sprintf(
			"Failed to write the report: %s", err.Error()))
		return err
	}
	return nil
}
