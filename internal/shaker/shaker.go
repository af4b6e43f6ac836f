package shaker

// This removes modules that nothing can require any more. Liveness starts at
// the entry points and follows the literal call-by-id edges of each live
// module, the same way a linker marks parts live from its entry points. A
// module whose require calls can't all be followed makes the whole result
// uncertain, so in that case nothing is removed.

import (
	"fmt"

	"github.com/sharedshake/sharedshake/internal/bundle_ast"
	"github.com/sharedshake/sharedshake/internal/logger"
	"github.com/sharedshake/sharedshake/internal/rewrite"
)

type EntrySource uint8

const (
	EntriesNone EntrySource = iota
	EntriesExplicit
	EntriesInferred
)

func (source EntrySource) String() string {
	switch source {
	case EntriesExplicit:
		return "explicit"
	case EntriesInferred:
		return "inferred"
	default:
		return "none"
	}
}

// Without entry points every module might be the one the host requires
// first, so none can be removed. This isn't fatal: the file is left alone.
type UnresolvableEntryError struct {
	Reason string
}

func (err *UnresolvableEntryError) Error() string {
	return err.Reason
}

type Options struct {
	// Module ids to start from. When empty, the top-level require calls of
	// the bundle's own runtime are used.
	EntryPoints []string
}

type Result struct {
	Contents string

	// Set when nothing could be removed for lack of entry points
	Unresolvable *UnresolvableEntryError

	EntryPoints []string
	EntrySource EntrySource

	// Module ids in registry order
	Kept         []string
	Removed      []string
	Undetermined []string

	OriginalCount int
}

func Shake(log logger.Log, bundle *bundle_ast.Bundle, options Options) Result {
	source := &bundle.Source
	result := Result{Contents: source.Contents}
	registry := bundle.Registry

	if registry == nil {
		log.AddID(logger.MsgID_Registry_NotFound, logger.Warning, source, logger.Range{},
			"Could not find a module registry, so no modules were removed")
		result.Unresolvable = &UnresolvableEntryError{Reason: "no module registry"}
		return result
	}

	result.OriginalCount = len(registry.Modules)
	result.EntryPoints, result.EntrySource = entryPoints(log, bundle, options)

	if len(result.EntryPoints) == 0 {
		log.AddID(logger.MsgID_Shake_NoEntryPoints, logger.Warning, source, registry.Range,
			"Could not find any entry points for this module registry, so no modules were removed")
		result.Unresolvable = &UnresolvableEntryError{Reason: "no entry points"}
		for _, module := range registry.Modules {
			result.Kept = append(result.Kept, module.ID)
		}
		return result
	}

	live := markLive(registry, result.EntryPoints)

	// Any call site in a live module that can't be followed might reach any
	// module, so unreached modules are not proven dead
	var uncertain *bundle_ast.Module
	for i := range registry.Modules {
		if module := &registry.Modules[i]; live[module.ID] && len(module.Undetermined) > 0 {
			uncertain = module
			break
		}
	}

	pinned := pinnedByMarkers(bundle)
	dead := make([]bool, len(registry.Modules))
	for i, module := range registry.Modules {
		switch {
		case live[module.ID] || pinned[i]:
			result.Kept = append(result.Kept, module.ID)
		case uncertain != nil:
			result.Undetermined = append(result.Undetermined, module.ID)
		default:
			result.Removed = append(result.Removed, module.ID)
			dead[i] = true
		}
	}

	if uncertain != nil && len(result.Undetermined) > 0 {
		log.AddID(logger.MsgID_Shake_UndeterminedRequire, logger.Warning, source, uncertain.Undetermined[0],
			fmt.Sprintf("Could not tell which module %s requires here, so %s kept",
				uncertain.KeyText, keptCount(len(result.Undetermined))))
	}

	if len(result.Removed) == 0 {
		return result
	}

	text, err := rewrite.Apply(source.Contents, slotDeletions(registry, dead))
	if err != nil {
		panic("Internal error: " + err.Error())
	}
	result.Contents = text
	return result
}

func keptCount(count int) string {
	if count == 1 {
		return "1 unreached module was"
	}
	return fmt.Sprintf("%d unreached modules were", count)
}

func entryPoints(log logger.Log, bundle *bundle_ast.Bundle, options Options) ([]string, EntrySource) {
	registry := bundle.Registry
	var ids []string
	seen := make(map[string]bool)

	for _, id := range options.EntryPoints {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := registry.Lookup(id); !ok {
			log.AddID(logger.MsgID_Shake_UnknownEntryPoint, logger.Warning, &bundle.Source, registry.Range,
				fmt.Sprintf("Ignoring the entry point %q because there is no module with that id", id))
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) > 0 {
		return ids, EntriesExplicit
	}

	for _, entry := range bundle.EntryPoints {
		ids = append(ids, entry.ID)
	}
	if len(ids) > 0 {
		return ids, EntriesInferred
	}
	return nil, EntriesNone
}

func markLive(registry *bundle_ast.Registry, entries []string) map[string]bool {
	live := make(map[string]bool)
	stack := append([]string{}, entries...)

	for len(stack) > 0 {
		last := len(stack) - 1
		id := stack[last]
		stack = stack[:last]
		if live[id] {
			continue
		}
		module, ok := registry.Lookup(id)
		if !ok {
			// Modules from other chunks
			continue
		}
		live[id] = true

		// Push in reverse so edges are visited in source order
		for i := len(module.Edges) - 1; i >= 0; i-- {
			if target := module.Edges[i].Target; !live[target] {
				stack = append(stack, target)
			}
		}
	}
	return live
}

// The text a module occupies together with the separator after it
func slotRange(registry *bundle_ast.Registry, index int) (int32, int32) {
	module := &registry.Modules[index]
	end := module.BodyRange.End()
	if module.CommaAfter != -1 {
		end = module.CommaAfter + 1
	}
	return registry.SlotStart(index), end
}

// A marker region left in the registry literal that straddles two slots
// would lose one of its markers if only one slot was deleted
func pinnedByMarkers(bundle *bundle_ast.Bundle) map[int]bool {
	registry := bundle.Registry
	pinned := make(map[int]bool)

	for _, region := range bundle.Markers {
		outer := region.Outer()
		if outer.Loc.Start <= registry.OpenBrace || outer.End() > registry.CloseBrace {
			continue
		}
		var touched []int
		contained := false
		for i := range registry.Modules {
			start, end := slotRange(registry, i)
			if outer.Loc.Start < end && outer.End() > start {
				touched = append(touched, i)
				if outer.Loc.Start >= start && outer.End() <= end {
					contained = true
				}
			}
		}
		if !contained {
			for _, i := range touched {
				pinned[i] = true
			}
		}
	}
	return pinned
}

// Deletes each run of dead modules so the separators that remain are exactly
// those between surviving modules
func slotDeletions(registry *bundle_ast.Registry, dead []bool) []rewrite.Edit {
	var edits []rewrite.Edit
	count := len(registry.Modules)

	for i := 0; i < count; i++ {
		if !dead[i] {
			continue
		}
		j := i
		for j+1 < count && dead[j+1] {
			j++
		}

		var start, end int32
		switch {
		case j+1 < count:
			// Followed by a survivor: take the slots through the last comma
			start = registry.SlotStart(i)
			end = registry.SlotStart(j + 1)

		case i == 0:
			// Everything goes
			start = registry.OpenBrace + 1
			end = registry.CloseBrace

		default:
			// The survivor before the run gives up its comma
			start = registry.Modules[i-1].CommaAfter
			_, end = slotRange(registry, j)
		}

		edits = append(edits, rewrite.Delete(logger.Range{Loc: logger.Loc{Start: start}, Len: end - start}))
		i = j
	}
	return edits
}
