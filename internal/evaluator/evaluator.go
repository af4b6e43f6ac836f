package evaluator

// Marker regions are resolved against the optimization flags and turned into
// edits over the original text. A region whose condition is false is deleted
// along with its markers. Any other region loses its markers and keeps its
// content, unless the caller asked for regions with an unknown condition to
// be left alone. The result is checked again before it is returned, since a
// region that was placed somewhere it can't be removed from would otherwise
// produce a broken file.

import (
	"fmt"

	"github.com/sharedshake/sharedshake/internal/bundle_ast"
	"github.com/sharedshake/sharedshake/internal/bundle_parser"
	"github.com/sharedshake/sharedshake/internal/config"
	"github.com/sharedshake/sharedshake/internal/logger"
	"github.com/sharedshake/sharedshake/internal/rewrite"
)

type Options struct {
	// Leave regions whose condition isn't in the flags exactly as they are,
	// markers included, so a later run with more information can decide
	KeepUnresolved bool
}

type Result struct {
	Contents string

	// Condition names in source order. A condition used by several regions
	// is listed once per region.
	Removed    []string
	Kept       []string
	Unresolved []string
}

func (result *Result) Changed(original string) bool {
	return result.Contents != original
}

func Evaluate(log logger.Log, bundle *bundle_ast.Bundle, flags *config.Flags, options Options) (Result, error) {
	source := &bundle.Source
	contents := source.Contents
	result := Result{Contents: contents}
	edits := make([]rewrite.Edit, 0, 2*len(bundle.Markers))
	unknown := make(map[string]bool)

	for _, region := range bundle.Markers {
		switch flags.Lookup(region.Condition) {
		case config.False:
			result.Removed = append(result.Removed, region.Condition)
			edits = append(edits, rewrite.Delete(wholeLines(contents, region.Outer())))

		case config.True:
			result.Kept = append(result.Kept, region.Condition)
			edits = append(edits, unwrap(contents, region)...)

		default:
			result.Unresolved = append(result.Unresolved, region.Condition)
			if !unknown[region.Condition] {
				unknown[region.Condition] = true
				log.AddID(logger.MsgID_Macro_UnresolvedCondition, logger.Warning, source, region.Opener,
					fmt.Sprintf("The condition %q is not set, so this code is kept", region.Condition))
			}
			if !options.KeepUnresolved {
				edits = append(edits, unwrap(contents, region)...)
			}
		}
	}

	if len(edits) == 0 {
		return result, nil
	}

	text, err := rewrite.ApplySeparated(contents, edits)
	if err != nil {
		// The parser never produces overlapping regions
		panic("Internal error: " + err.Error())
	}

	output := logger.Source{PrettyPath: source.PrettyPath, Contents: text}
	if err := bundle_parser.Validate(output); err != nil {
		if unparsable, ok := err.(*bundle_ast.UnparsableInputError); ok {
			unparsable.IsOutput = true
		}
		return Result{}, err
	}

	result.Contents = text
	return result, nil
}

// Removes both markers and the blanks that separate them from the content
func unwrap(contents string, region bundle_ast.MarkerRegion) []rewrite.Edit {
	openerEnd := region.Opener.End()
	for openerEnd < region.Closer.Loc.Start && isBlank(contents[openerEnd]) {
		openerEnd++
	}
	closerStart := region.Closer.Loc.Start
	for closerStart > openerEnd && isBlank(contents[closerStart-1]) {
		closerStart--
	}
	opener := logger.Range{Loc: region.Opener.Loc, Len: openerEnd - region.Opener.Loc.Start}
	closer := logger.Range{Loc: logger.Loc{Start: closerStart}, Len: region.Closer.End() - closerStart}
	return []rewrite.Edit{
		rewrite.Delete(wholeLines(contents, opener)),
		rewrite.Delete(wholeLines(contents, closer)),
	}
}

// A span that is the only thing on its lines takes the lines with it, so
// deleting a region doesn't leave blank lines behind. The newline before the
// span is kept and the one after it is removed.
func wholeLines(contents string, r logger.Range) logger.Range {
	start := int(r.Loc.Start)
	end := int(r.End())

	lineStart := start
	for lineStart > 0 && isBlank(contents[lineStart-1]) {
		lineStart--
	}
	if lineStart > 0 && contents[lineStart-1] != '\n' {
		return r
	}

	lineEnd := end
	for lineEnd < len(contents) && isBlank(contents[lineEnd]) {
		lineEnd++
	}
	if lineEnd < len(contents) {
		if contents[lineEnd] == '\r' && lineEnd+1 < len(contents) && contents[lineEnd+1] == '\n' {
			lineEnd += 2
		} else if contents[lineEnd] == '\n' {
			lineEnd++
		} else {
			return r
		}
	}

	return logger.Range{Loc: logger.Loc{Start: int32(lineStart)}, Len: int32(lineEnd - lineStart)}
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}
