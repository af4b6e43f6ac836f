package optimizer

// One pass evaluates the marker regions and then removes the modules that
// are no longer reachable. Passes repeat until one leaves the text unchanged,
// so optimizing the result again returns it as is.

import (
	"fmt"

	"github.com/sharedshake/sharedshake/internal/bundle_ast"
	"github.com/sharedshake/sharedshake/internal/bundle_parser"
	"github.com/sharedshake/sharedshake/internal/config"
	"github.com/sharedshake/sharedshake/internal/evaluator"
	"github.com/sharedshake/sharedshake/internal/helpers"
	"github.com/sharedshake/sharedshake/internal/js_validator"
	"github.com/sharedshake/sharedshake/internal/logger"
	"github.com/sharedshake/sharedshake/internal/shaker"
)

const DefaultMaxIterations = 8

type Options struct {
	Flags *config.Flags

	// Module ids to start reachability from. When empty, the entry hints
	// that name a module of this file are used, and then the bundle's own
	// top-level require calls.
	EntryPoints []string

	// Entry module ids of every shared package. Hints that aren't modules
	// of the file being optimized are ignored without a warning.
	EntryHints []string

	Timer *helpers.Timer

	MaxIterations  int
	NoShake        bool
	KeepUnresolved bool
	SkipValidation bool
}

type IterationLimitError struct {
	Limit int
}

func (err *IterationLimitError) Error() string {
	return fmt.Sprintf("The output still changed after %d passes", err.Limit)
}

type Result struct {
	Contents string

	// Set when the file was left alone, saying why
	SkipReason string

	Shape       bundle_ast.RegistryShape
	EntrySource shaker.EntrySource
	EntryPoints []string

	// Module ids. Removed modules are listed in the order they were
	// removed, the others in registry order.
	Kept         []string
	Removed      []string
	Undetermined []string

	// Condition names, each listed once in the order first seen
	RemovedConditions    []string
	KeptConditions       []string
	UnresolvedConditions []string

	Iterations    int
	OriginalCount int
}

func Optimize(log logger.Log, source logger.Source, options Options) (Result, error) {
	timer := options.Timer
	maxIterations := options.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	if !options.SkipValidation {
		timer.Begin("Validate input")
		err := js_validator.Check(source, false)
		timer.End("Validate input")
		if err != nil {
			return Result{}, err
		}
	}

	result := Result{}
	conditions := conditionSets{}
	text := source.Contents
	passLog := log

	for iteration := 1; ; iteration++ {
		if iteration > maxIterations {
			return Result{}, &IterationLimitError{Limit: maxIterations}
		}
		timer.Begin(fmt.Sprintf("Pass %d", iteration))
		next, err := runPass(passLog, source.PrettyPath, text, options, iteration == 1, &result, &conditions)
		timer.End(fmt.Sprintf("Pass %d", iteration))
		if err != nil {
			return Result{}, err
		}

		// Later passes see the same regions and call sites again, so only the
		// first pass reports on them
		passLog = logger.NewDeferLog()

		if next == text {
			result.Iterations = iteration
			break
		}
		text = next
	}

	if !options.SkipValidation && text != source.Contents {
		timer.Begin("Validate output")
		err := js_validator.Check(logger.Source{PrettyPath: source.PrettyPath, Contents: text}, true)
		timer.End("Validate output")
		if err != nil {
			return Result{}, err
		}
	}

	if text != source.Contents {
		result.SkipReason = ""
	}
	result.Contents = text
	result.RemovedConditions = conditions.removed.list
	result.KeptConditions = conditions.kept.list
	result.UnresolvedConditions = conditions.unresolved.list
	return result, nil
}

func runPass(log logger.Log, path string, text string, options Options, isFirst bool, result *Result, conditions *conditionSets) (string, error) {
	timer := options.Timer

	timer.Begin("Parse")
	bundle, err := bundle_parser.Parse(log, logger.Source{PrettyPath: path, Contents: text})
	timer.End("Parse")
	if err != nil {
		return "", err
	}
	if isFirst {
		result.OriginalCount = bundle.ModuleCount()
		if bundle.Registry != nil {
			result.Shape = bundle.Registry.Shape
		}
	}

	timer.Begin("Evaluate markers")
	evaluated, err := evaluator.Evaluate(log, bundle, options.Flags, evaluator.Options{KeepUnresolved: options.KeepUnresolved})
	timer.End("Evaluate markers")
	if err != nil {
		return "", err
	}
	conditions.removed.add(evaluated.Removed)
	conditions.kept.add(evaluated.Kept)
	conditions.unresolved.add(evaluated.Unresolved)

	if options.NoShake {
		if isFirst && len(bundle.Markers) == 0 {
			result.SkipReason = "no markers"
		}
		return evaluated.Contents, nil
	}

	if evaluated.Contents != text {
		timer.Begin("Parse")
		bundle, err = bundle_parser.Parse(logger.NewDeferLog(), logger.Source{PrettyPath: path, Contents: evaluated.Contents})
		timer.End("Parse")
		if err != nil {
			return "", err
		}
	}

	entryPoints := options.EntryPoints
	if len(entryPoints) == 0 && bundle.Registry != nil {
		for _, id := range options.EntryHints {
			if _, ok := bundle.Registry.Lookup(id); ok {
				entryPoints = append(entryPoints, id)
			}
		}
	}

	timer.Begin("Shake")
	shaken := shaker.Shake(log, bundle, shaker.Options{EntryPoints: entryPoints})
	timer.End("Shake")

	result.Kept = shaken.Kept
	result.Undetermined = shaken.Undetermined
	result.Removed = append(result.Removed, shaken.Removed...)
	if isFirst {
		result.EntryPoints = shaken.EntryPoints
		result.EntrySource = shaken.EntrySource

		if shaken.Unresolvable != nil && len(evaluated.Removed) == 0 && len(evaluated.Kept) == 0 {
			result.SkipReason = "no flags apply and " + shaken.Unresolvable.Error()
		}
	}
	return shaken.Contents, nil
}

type orderedSet struct {
	seen map[string]bool
	list []string
}

func (set *orderedSet) add(items []string) {
	for _, item := range items {
		if set.seen == nil {
			set.seen = make(map[string]bool)
		}
		if !set.seen[item] {
			set.seen[item] = true
			set.list = append(set.list, item)
		}
	}
}

type conditionSets struct {
	removed    orderedSet
	kept       orderedSet
	unresolved orderedSet
}
