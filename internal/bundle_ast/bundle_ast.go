package bundle_ast

// This is the span-aware view over one bundle file. Every position is a byte
// offset into the original contents, which is never modified: the rewriting
// stages turn these ranges into edits and produce a new file, which is then
// parsed again into a new model.

import (
	"strconv"

	"github.com/sharedshake/sharedshake/internal/logger"
)

type RegistryShape uint8

const (
	// No module registry was found. Marker evaluation still works but there
	// is nothing to tree shake.
	RegistryNone RegistryShape = iota

	// "var __webpack_modules__ = ({ ... })" with a runtime that calls into it
	RegistryStandard

	// "(self.chunk = self.chunk || []).push([[ids], { ... }, runtime])"
	RegistrySplitChunk
)

func (shape RegistryShape) String() string {
	switch shape {
	case RegistryStandard:
		return "standard"
	case RegistrySplitChunk:
		return "split-chunk"
	default:
		return "none"
	}
}

// How confident registry detection was
type RegistryMatch uint8

const (
	// The object literal sits in one of the two known shapes and the
	// surrounding code confirms it (a require-like call site with a literal
	// module id, or a lazily-initialized chunk array)
	MatchStrong RegistryMatch = iota

	// The object literal has the right form but nothing around it confirms
	// it is the registry
	MatchWeak

	// Several candidates matched equally well and the largest one was picked
	MatchLargestFallback
)

type Bundle struct {
	Source   logger.Source
	Registry *Registry

	// Marker regions in source order. They never overlap and never nest.
	Markers []MarkerRegion

	// Literal require-like calls outside every module body, in source order.
	// Only ids that name a module in the registry are listed. A module may be
	// required several times but is listed once.
	EntryPoints []EntryPoint
}

type EntryPoint struct {
	ID    string
	Range logger.Range
}

type Registry struct {
	Shape RegistryShape
	Match RegistryMatch

	// The variable or global array that owns the object literal, for
	// diagnostics only
	Name string

	// The whole object literal including both braces
	Range logger.Range

	// Byte offsets of "{" and "}"
	OpenBrace  int32
	CloseBrace int32

	Modules []Module

	// Maps a normalized module id to its index in "Modules"
	ModuleIndex map[string]int
}

type Module struct {
	// The normalized id used to match call arguments against registry keys
	ID string

	// The property key exactly as written, quotes included
	KeyText  string
	KeyRange logger.Range

	// The factory expression. Comments between the key and the factory
	// (which name the module in development builds) belong to the body.
	BodyRange logger.Range

	// Position of the "," after this property, or -1 for the last property
	// when the literal has no trailing comma
	CommaAfter int32

	// The name of the factory's third parameter, or "" when the factory
	// does not declare one
	RequireName string

	// Literal call-by-id sites in the body, in source order
	Edges []Edge

	// Call sites in the body whose target can't be determined: non-literal
	// arguments, escaping references to the require function, "eval"
	Undetermined []logger.Range

	// Export bindings found in the body, for the annotator
	Exports []ExportBinding
}

type Edge struct {
	Target string
	Range  logger.Range
}

type ExportKind uint8

const (
	// "name: () => value" inside a "require.d(exports, { ... })" call
	ExportGetterProperty ExportKind = iota

	// "exports.name = value;" as a statement of the factory body
	ExportAssignment
)

type ExportBinding struct {
	Kind ExportKind
	Name string

	// The binding itself. For a property this is the key through the end of
	// the value. For an assignment this includes the terminating ";".
	Range logger.Range

	// Position of the "," after a property, or -1 when the property is the
	// last one and has no trailing comma. Always -1 for assignments.
	CommaAfter int32
}

type MarkerRegion struct {
	// The dot-separated condition name, such as "treeShake.lodash.map"
	Condition string

	// The opening and closing comments
	Opener logger.Range
	Closer logger.Range
}

// The markers and everything between them
func (region MarkerRegion) Outer() logger.Range {
	return logger.RangeBetween(region.Opener, region.Closer)
}

// Everything between the markers
func (region MarkerRegion) Inner() logger.Range {
	start := region.Opener.End()
	return logger.Range{Loc: logger.Loc{Start: start}, Len: region.Closer.Loc.Start - start}
}

func (region MarkerRegion) Contains(r logger.Range) bool {
	outer := region.Outer()
	return r.Loc.Start >= outer.Loc.Start && r.End() <= outer.End()
}

// Start of the text a module's slot occupies: right after the previous
// separator, or right after the opening brace for the first module
func (registry *Registry) SlotStart(index int) int32 {
	if index == 0 {
		return registry.OpenBrace + 1
	}
	return registry.Modules[index-1].CommaAfter + 1
}

func (registry *Registry) Lookup(id string) (*Module, bool) {
	if index, ok := registry.ModuleIndex[id]; ok {
		return &registry.Modules[index], true
	}
	return nil, false
}

func (bundle *Bundle) ModuleCount() int {
	if bundle.Registry == nil {
		return 0
	}
	return len(bundle.Registry.Modules)
}

// Module ids are compared in a normalized form so that the key "42", the key
// 42 and a call with the argument 0x2A all refer to the same module
func NormalizeNumericID(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
