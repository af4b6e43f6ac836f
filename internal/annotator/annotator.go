package annotator

// The annotator runs at build time on a shared package's chunk. It wraps
// every export binding it can remove safely in a marker region named after
// the package and the export, so the optimizer can later delete the exports
// that no consumer uses. Each region holds the binding together with the
// separator that follows it, which is what keeps the text valid when any
// subset of regions is deleted.

import (
	"fmt"

	"github.com/sharedshake/sharedshake/internal/bundle_ast"
	"github.com/sharedshake/sharedshake/internal/bundle_parser"
	"github.com/sharedshake/sharedshake/internal/logger"
	"github.com/sharedshake/sharedshake/internal/rewrite"
)

const DefaultNamespace = "treeShake"

type Options struct {
	ShareKey string

	// The first segment of each condition, "treeShake" by default
	Namespace string

	// Only annotate these modules. All modules are annotated when empty.
	Modules []string
}

type Result struct {
	Contents string

	// One condition per region added, in source order
	Conditions []string

	// Bindings left alone because they were already inside a region
	AlreadyWrapped int
}

func Opener(condition string) string {
	return fmt.Sprintf("/* @common:if [condition=%q] */", condition)
}

const Closer = "/* @common:endif */"

func Annotate(log logger.Log, bundle *bundle_ast.Bundle, options Options) (Result, error) {
	source := &bundle.Source
	result := Result{Contents: source.Contents}
	registry := bundle.Registry
	if registry == nil {
		return result, nil
	}

	namespace := options.Namespace
	if namespace == "" {
		namespace = DefaultNamespace
	}
	var only map[string]bool
	if len(options.Modules) > 0 {
		only = make(map[string]bool, len(options.Modules))
		for _, id := range options.Modules {
			only[id] = true
		}
	}

	var edits []rewrite.Edit
	for _, module := range registry.Modules {
		if only != nil && !only[module.ID] {
			continue
		}
		for _, binding := range module.Exports {
			if isWrapped(bundle.Markers, binding.Range) {
				result.AlreadyWrapped++
				continue
			}
			condition := namespace + "." + options.ShareKey + "." + binding.Name
			if !bundle_parser.IsValidCondition(condition) {
				log.AddID(logger.MsgID_Macro_InvalidCondition, logger.Warning, source, binding.Range,
					fmt.Sprintf("Cannot annotate the export %q because %q is not a valid condition", binding.Name, condition))
				continue
			}
			result.Conditions = append(result.Conditions, condition)
			edits = append(edits, rewrite.Insert(binding.Range.Loc.Start, Opener(condition)+" "))

			switch {
			case binding.Kind == bundle_ast.ExportAssignment:
				edits = append(edits, rewrite.Insert(binding.Range.End(), " "+Closer))
			case binding.CommaAfter != -1:
				edits = append(edits, rewrite.Insert(binding.CommaAfter+1, " "+Closer))
			default:
				// The last property gets a comma of its own inside the region
				edits = append(edits, rewrite.Insert(binding.Range.End(), ", "+Closer))
			}
		}
	}

	if len(edits) == 0 {
		return result, nil
	}

	text, err := rewrite.Apply(source.Contents, edits)
	if err != nil {
		panic("Internal error: " + err.Error())
	}

	// A binding in an unusual place could give a region that crosses a
	// bracket, which the parser reports
	output := logger.Source{PrettyPath: source.PrettyPath, Contents: text}
	if _, err := bundle_parser.Parse(logger.NewDeferLog(), output); err != nil {
		if unparsable, ok := err.(*bundle_ast.UnparsableInputError); ok {
			unparsable.IsOutput = true
		}
		return Result{}, err
	}

	result.Contents = text
	return result, nil
}

func isWrapped(markers []bundle_ast.MarkerRegion, r logger.Range) bool {
	for _, region := range markers {
		if region.Contains(r) {
			return true
		}
	}
	return false
}
