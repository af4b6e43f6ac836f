package api

import (
	"errors"
	"fmt"

	"github.com/sharedshake/sharedshake/internal/annotator"
	"github.com/sharedshake/sharedshake/internal/api_helpers"
	"github.com/sharedshake/sharedshake/internal/bundle_parser"
	"github.com/sharedshake/sharedshake/internal/config"
	"github.com/sharedshake/sharedshake/internal/evaluator"
	"github.com/sharedshake/sharedshake/internal/helpers"
	"github.com/sharedshake/sharedshake/internal/js_validator"
	"github.com/sharedshake/sharedshake/internal/logger"
	"github.com/sharedshake/sharedshake/internal/optimizer"
	"github.com/sharedshake/sharedshake/internal/shaker"
	"github.com/sharedshake/sharedshake/internal/usage"
)

func validateColor(value StderrColor) logger.UseColor {
	switch value {
	case ColorIfTerminal:
		return logger.ColorIfTerminal
	case ColorNever:
		return logger.ColorNever
	case ColorAlways:
		return logger.ColorAlways
	default:
		panic("Invalid color")
	}
}

func validateLogLevel(value LogLevel) logger.LogLevel {
	switch value {
	case LogLevelVerbose:
		return logger.LevelVerbose
	case LogLevelInfo:
		return logger.LevelInfo
	case LogLevelWarning:
		return logger.LevelWarning
	case LogLevelError:
		return logger.LevelError
	case LogLevelSilent:
		return logger.LevelSilent
	default:
		panic("Invalid log level")
	}
}

func validatePossiblyUnused(value PossiblyUnused) usage.PossiblyUnusedPolicy {
	switch value {
	case PossiblyUnusedKeep:
		return usage.KeepPossiblyUnused
	case PossiblyUnusedRemove:
		return usage.RemovePossiblyUnused
	default:
		panic("Invalid policy")
	}
}

func newLog(color StderrColor, level LogLevel) logger.Log {
	if level == LogLevelSilent {
		return logger.NewDeferLog()
	}
	return logger.NewStderrLog(logger.OutputOptions{
		IncludeSource: true,
		Color:         validateColor(color),
		LogLevel:      validateLogLevel(level),
	})
}

func newTimer() *helpers.Timer {
	if api_helpers.UseTimer {
		return &helpers.Timer{}
	}
	return nil
}

func sourceFor(code string, sourcefile string) logger.Source {
	if sourcefile == "" {
		sourcefile = "<stdin>"
	}
	return logger.Source{PrettyPath: sourcefile, Contents: code}
}

// Errors that know their location are logged with it
func addError(log logger.Log, err error) {
	var located interface{ Msg() logger.Msg }
	if errors.As(err, &located) {
		log.AddMsg(located.Msg())
		return
	}
	log.AddError(nil, logger.Range{}, err.Error())
}

func convertLocation(location *logger.MsgLocation) *Location {
	if location == nil {
		return nil
	}
	return &Location{
		File:     location.File,
		Line:     location.Line,
		Column:   location.Column,
		Length:   location.Length,
		LineText: location.LineText,
	}
}

func convertMessages(msgs []logger.Msg) (errors []Message, warnings []Message) {
	for _, msg := range msgs {
		var notes []Note
		for _, note := range msg.Notes {
			notes = append(notes, Note{Text: note.Text, Location: convertLocation(note.Location)})
		}
		converted := Message{
			ID:       logger.MsgIDToString(msg.ID),
			Text:     msg.Data.Text,
			Location: convertLocation(msg.Data.Location),
			Notes:    notes,
		}
		switch msg.Kind {
		case logger.Error:
			errors = append(errors, converted)
		case logger.Warning:
			warnings = append(warnings, converted)
		}
	}
	return
}

func flagsFromConfig(data map[string]interface{}) (*config.Flags, error) {
	if data == nil {
		return config.NewFlags(), nil
	}
	return config.FromMap(data)
}

////////////////////////////////////////////////////////////////////////////////
// Optimize API

func optimizeImpl(code string, options OptimizeOptions) OptimizeResult {
	log := newLog(options.Color, options.LogLevel)
	source := sourceFor(code, options.Sourcefile)
	report := Report{File: source.PrettyPath, OriginalSize: len(code)}

	fail := func(err error) OptimizeResult {
		addError(log, err)
		report.Error = err.Error()
		errors, warnings := convertMessages(log.Done())
		return OptimizeResult{Errors: errors, Warnings: warnings, Report: report}
	}

	flags, err := flagsFromConfig(options.Config)
	if err != nil {
		return fail(err)
	}

	timer := newTimer()
	result, err := optimizer.Optimize(log, source, optimizer.Options{
		Flags:          flags,
		EntryPoints:    options.EntryPoints,
		EntryHints:     append(append([]string{}, options.EntryHints...), flags.EntryHints()...),
		Timer:          timer,
		MaxIterations:  options.MaxIterations,
		NoShake:        options.NoShake,
		KeepUnresolved: options.KeepUnresolvedMarkers,
		SkipValidation: options.SkipValidation,
	})
	timer.Log(log, source.PrettyPath)
	if err != nil {
		return fail(err)
	}

	report.OptimizedSize = len(result.Contents)
	report.Iterations = result.Iterations
	report.RegistryShape = result.Shape.String()
	report.OriginalCount = result.OriginalCount
	report.KeptModules = result.Kept
	report.RemovedModules = result.Removed
	report.UndeterminedModules = result.Undetermined
	report.EntryPoints = result.EntryPoints
	report.EntrySource = result.EntrySource.String()
	report.RemovedConditions = result.RemovedConditions
	report.KeptConditions = result.KeptConditions
	report.UnresolvedConditions = result.UnresolvedConditions
	report.SkipReason = result.SkipReason

	errors, warnings := convertMessages(log.Done())
	return OptimizeResult{
		Errors:   errors,
		Warnings: warnings,
		Code:     result.Contents,
		Report:   report,
	}
}

////////////////////////////////////////////////////////////////////////////////
// Evaluate API

func evaluateImpl(code string, options EvaluateOptions) EvaluateResult {
	log := newLog(options.Color, options.LogLevel)
	source := sourceFor(code, options.Sourcefile)

	fail := func(err error) EvaluateResult {
		addError(log, err)
		errors, warnings := convertMessages(log.Done())
		return EvaluateResult{Errors: errors, Warnings: warnings}
	}

	flags, err := flagsFromConfig(options.Config)
	if err != nil {
		return fail(err)
	}
	if !options.SkipValidation {
		if err := js_validator.Check(source, false); err != nil {
			return fail(err)
		}
	}
	bundle, err := bundle_parser.Parse(log, source)
	if err != nil {
		return fail(err)
	}
	result, err := evaluator.Evaluate(log, bundle, flags, evaluator.Options{KeepUnresolved: options.KeepUnresolvedMarkers})
	if err != nil {
		return fail(err)
	}
	if !options.SkipValidation && result.Changed(code) {
		if err := js_validator.Check(sourceFor(result.Contents, options.Sourcefile), true); err != nil {
			return fail(err)
		}
	}

	errors, warnings := convertMessages(log.Done())
	return EvaluateResult{
		Errors:               errors,
		Warnings:             warnings,
		Code:                 result.Contents,
		RemovedConditions:    result.Removed,
		KeptConditions:       result.Kept,
		UnresolvedConditions: result.Unresolved,
	}
}

////////////////////////////////////////////////////////////////////////////////
// Shake API

func shakeImpl(code string, options ShakeOptions) ShakeResult {
	log := newLog(options.Color, options.LogLevel)
	source := sourceFor(code, options.Sourcefile)

	fail := func(err error) ShakeResult {
		addError(log, err)
		errors, warnings := convertMessages(log.Done())
		return ShakeResult{Errors: errors, Warnings: warnings}
	}

	if !options.SkipValidation {
		if err := js_validator.Check(source, false); err != nil {
			return fail(err)
		}
	}
	bundle, err := bundle_parser.Parse(log, source)
	if err != nil {
		return fail(err)
	}
	result := shaker.Shake(log, bundle, shaker.Options{EntryPoints: options.EntryPoints})
	if !options.SkipValidation && result.Contents != code {
		if err := js_validator.Check(sourceFor(result.Contents, options.Sourcefile), true); err != nil {
			return fail(err)
		}
	}

	errors, warnings := convertMessages(log.Done())
	return ShakeResult{
		Errors:              errors,
		Warnings:            warnings,
		Code:                result.Contents,
		OriginalCount:       result.OriginalCount,
		EntryPoints:         result.EntryPoints,
		EntrySource:         result.EntrySource.String(),
		KeptModules:         result.Kept,
		RemovedModules:      result.Removed,
		UndeterminedModules: result.Undetermined,
	}
}

////////////////////////////////////////////////////////////////////////////////
// Annotate API

func annotateImpl(code string, options AnnotateOptions) AnnotateResult {
	log := newLog(options.Color, options.LogLevel)
	source := sourceFor(code, options.Sourcefile)

	fail := func(err error) AnnotateResult {
		addError(log, err)
		errors, warnings := convertMessages(log.Done())
		return AnnotateResult{Errors: errors, Warnings: warnings}
	}

	if options.ShareKey == "" {
		return fail(errors.New("Annotating requires a share key"))
	}
	bundle, err := bundle_parser.Parse(log, source)
	if err != nil {
		return fail(err)
	}
	result, err := annotator.Annotate(log, bundle, annotator.Options{
		ShareKey:  options.ShareKey,
		Namespace: options.Namespace,
		Modules:   options.Modules,
	})
	if err != nil {
		return fail(err)
	}

	errors, warnings := convertMessages(log.Done())
	return AnnotateResult{
		Errors:     errors,
		Warnings:   warnings,
		Code:       result.Contents,
		Conditions: result.Conditions,
	}
}

////////////////////////////////////////////////////////////////////////////////
// Flags API

func loadFlagsImpl(options FlagsOptions) FlagsResult {
	log := newLog(options.Color, options.LogLevel)
	flags := config.NewFlags()

	if len(options.ManifestFiles) > 0 {
		var manifests []*usage.Manifest
		for _, path := range options.ManifestFiles {
			manifest, err := usage.LoadFile(path)
			if err == nil {
				if err = usage.Validate(log, manifest); err != nil {
					err = fmt.Errorf("%s: %w", path, err)
				}
			}
			if err != nil {
				addError(log, err)
				continue
			}
			manifests = append(manifests, manifest)
		}
		flags = usage.Derive(usage.Merge(manifests...), usage.DeriveOptions{
			Namespace:      options.Namespace,
			ShareKey:       options.ShareKey,
			PossiblyUnused: validatePossiblyUnused(options.PossiblyUnused),
		})
	}

	for _, path := range options.ConfigFiles {
		loaded, err := config.LoadFile(path)
		if err != nil {
			addError(log, err)
			continue
		}
		flags = flags.Overlay(loaded)
	}

	errors, warnings := convertMessages(log.Done())
	if len(errors) > 0 {
		return FlagsResult{Errors: errors, Warnings: warnings}
	}

	values := make(map[string]interface{}, flags.Len())
	for _, path := range flags.Paths() {
		value, _ := flags.Value(path)
		values[path] = value
	}
	return FlagsResult{
		Errors:     errors,
		Warnings:   warnings,
		Config:     values,
		EntryHints: flags.EntryHints(),
	}
}
