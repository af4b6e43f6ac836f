package js_validator

// The bundle parser only checks that tokens scan and brackets balance. This
// runs the text through esbuild's full JavaScript parser so a rewrite that
// leaves, say, a dangling "=" or two adjacent expressions is caught before
// the file is written.

import (
	esbuild "github.com/evanw/esbuild/pkg/api"

	"github.com/sharedshake/sharedshake/internal/bundle_ast"
	"github.com/sharedshake/sharedshake/internal/logger"
)

// Check returns an *UnparsableInputError for the first syntax error, or nil.
// "isOutput" marks the text as produced by a rewrite.
func Check(source logger.Source, isOutput bool) error {
	result := esbuild.Transform(source.Contents, esbuild.TransformOptions{
		Loader:     esbuild.LoaderJS,
		Sourcefile: source.PrettyPath,
		LogLevel:   esbuild.LogLevelSilent,
	})
	if len(result.Errors) == 0 {
		return nil
	}

	msg := result.Errors[0]
	err := &bundle_ast.UnparsableInputError{Text: msg.Text, IsOutput: isOutput}
	if loc := msg.Location; loc != nil {
		err.Location = &logger.MsgLocation{
			File:     source.PrettyPath,
			LineText: loc.LineText,
			Line:     loc.Line,
			Column:   loc.Column,
			Length:   loc.Length,
		}
	}
	return err
}
