package bundle_parser

// This builds the bundle model with a single parse: a token tree over the
// whole file, the marker regions found in its comments, and the module
// registry with each module's call sites. Errors in the input are returned
// as typed errors. Warnings about fragile registry detection go to the log.

import (
	"github.com/sharedshake/sharedshake/internal/bundle_ast"
	"github.com/sharedshake/sharedshake/internal/js_lexer"
	"github.com/sharedshake/sharedshake/internal/logger"
)

func Parse(log logger.Log, source logger.Source) (*bundle_ast.Bundle, error) {
	root, comments, err := parseTree(source)
	if err != nil {
		return nil, err
	}

	markers, err := scanMarkers(&source, comments)
	if err != nil {
		return nil, err
	}

	bundle := &bundle_ast.Bundle{
		Source:  source,
		Markers: markers,
	}

	candidates := findCandidates(root)
	for i := range candidates {
		if c := &candidates[i]; c.shape == bundle_ast.RegistryStandard {
			c.strong = confirmStandard(root, c)
		}
	}

	if c, match := chooseRegistry(log, &source, candidates); c != nil {
		bundle.Registry = buildRegistry(&source, c, match, comments)
		bundle.EntryPoints = findEntryPoints(root, c, bundle.Registry)
	}
	return bundle, nil
}

// Validate only checks that the text scans and its brackets balance
func Validate(source logger.Source) error {
	_, _, err := parseTree(source)
	return err
}

func parseTree(source logger.Source) (root *node, comments []comment, err error) {
	lexerLog := logger.NewDeferLog()
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if _, isLexerPanic := r.(js_lexer.LexerPanic); !isLexerPanic {
			panic(r)
		}
		root = nil
		comments = nil
		err = unparsableFromLog(lexerLog)
	}()
	root, comments = buildTree(lexerLog, source)
	return
}

func unparsableFromLog(log logger.Log) error {
	for _, msg := range log.Done() {
		if msg.Kind == logger.Error {
			return &bundle_ast.UnparsableInputError{
				Text:     msg.Data.Text,
				Location: msg.Data.Location,
			}
		}
	}
	return &bundle_ast.UnparsableInputError{Text: "Unexpected syntax error"}
}

func buildRegistry(source *logger.Source, c *candidate, match bundle_ast.RegistryMatch, comments []comment) *bundle_ast.Registry {
	registry := &bundle_ast.Registry{
		Shape:       c.shape,
		Match:       match,
		Name:        c.name,
		Range:       c.object.fullRange(),
		OpenBrace:   c.object.r.Loc.Start,
		CloseBrace:  c.object.closeRange.Loc.Start,
		Modules:     make([]bundle_ast.Module, len(c.properties)),
		ModuleIndex: make(map[string]int, len(c.properties)),
	}

	// Comments directly inside the registry literal, for finding the ones
	// that lead a module body
	var registryComments []comment
	for _, cm := range comments {
		if cm.group == c.object {
			registryComments = append(registryComments, cm)
		}
	}

	for i, prop := range c.properties {
		first := prop.value[0]
		last := prop.value[len(prop.value)-1]
		bodyStart := first.r.Loc.Start
		for _, cm := range registryComments {
			if cm.Range.Loc.Start >= prop.colon.r.End() && cm.Range.Loc.Start < bodyStart {
				bodyStart = cm.Range.Loc.Start
				break
			}
		}

		module := &registry.Modules[i]
		module.ID = propertyKeyID(prop.key)
		module.KeyRange = prop.key.r
		module.KeyText = source.TextForRange(prop.key.r)
		module.BodyRange = logger.Range{Loc: logger.Loc{Start: bodyStart}, Len: last.end() - bodyStart}
		module.CommaAfter = -1
		if prop.comma != nil {
			module.CommaAfter = prop.comma.r.Loc.Start
		}
		module.RequireName = c.factories[i].param(2)
		scanModule(c.factories[i], module)

		// With duplicate keys the last property wins, as at run time
		registry.ModuleIndex[module.ID] = i
	}
	return registry
}
