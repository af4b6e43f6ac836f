package usage

// A usage manifest says, per shared package, which exports the consuming
// application uses. It's produced by the build of each consumer and turned
// into optimization flags here. Manifests of several consumers are merged
// first: an export that any consumer uses must be kept.

import (
	"fmt"
	"sort"

	"github.com/sharedshake/sharedshake/internal/config"
	"github.com/sharedshake/sharedshake/internal/helpers"
	"github.com/sharedshake/sharedshake/internal/logger"
)

const DefaultNamespace = "treeShake"

type PropertyState uint8

const (
	StateUnused PropertyState = iota
	StateOnlyPropertiesUsed
	StateUsed
)

func (state PropertyState) String() string {
	switch state {
	case StateUsed:
		return "Used"
	case StateOnlyPropertiesUsed:
		return "OnlyPropertiesUsed"
	default:
		return "Unused"
	}
}

func ParsePropertyState(text string) (PropertyState, bool) {
	switch text {
	case "Used":
		return StateUsed, true
	case "OnlyPropertiesUsed":
		return StateOnlyPropertiesUsed, true
	case "Unused":
		return StateUnused, true
	}
	return StateUnused, false
}

type PackageUsage struct {
	// Export name -> property name -> state, for structured exports of which
	// only some properties are used
	Properties map[string]map[string]PropertyState

	EntryModuleID string

	UsedExports           []string
	UnusedExports         []string
	PossiblyUnusedExports []string

	// Every export the package provides, when the build knows it
	ProvidedExports []string
}

type Manifest struct {
	Packages map[string]*PackageUsage
}

func (manifest *Manifest) ShareKeys() []string {
	keys := make([]string, 0, len(manifest.Packages))
	for key := range manifest.Packages {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

type ManifestError struct {
	Package string
	Reason  string
}

func (err *ManifestError) Error() string {
	if err.Package == "" {
		return fmt.Sprintf("Invalid usage manifest: %s", err.Reason)
	}
	return fmt.Sprintf("Invalid usage manifest for %q: %s", err.Package, err.Reason)
}

// Validate checks that each export is in at most one of the three sets,
// which is an error, and that the sets cover exactly the provided exports
// when those are known, which is only warned about
func Validate(log logger.Log, manifest *Manifest) error {
	for _, key := range manifest.ShareKeys() {
		pkg := manifest.Packages[key]
		owner := make(map[string]string)
		for _, set := range []struct {
			name    string
			exports []string
		}{
			{"used", pkg.UsedExports},
			{"unused", pkg.UnusedExports},
			{"possibly unused", pkg.PossiblyUnusedExports},
		} {
			for _, name := range set.exports {
				if other, ok := owner[name]; ok && other != set.name {
					return &ManifestError{Package: key, Reason: fmt.Sprintf("the export %q is listed as both %s and %s", name, other, set.name)}
				}
				owner[name] = set.name
			}
		}

		if len(pkg.ProvidedExports) == 0 {
			continue
		}
		provided := make(map[string]bool, len(pkg.ProvidedExports))
		for _, name := range pkg.ProvidedExports {
			provided[name] = true
		}
		var missing, unknown []string
		for _, name := range pkg.ProvidedExports {
			if _, ok := owner[name]; !ok {
				missing = append(missing, name)
			}
		}
		for name := range owner {
			if !provided[name] {
				unknown = append(unknown, name)
			}
		}
		sort.Strings(missing)
		sort.Strings(unknown)
		if len(missing) > 0 {
			log.AddID(logger.MsgID_Manifest_IncompleteExports, logger.Warning, nil, logger.Range{},
				fmt.Sprintf("The usage of %s in %q is not known, so %s kept",
					helpers.StringArrayToQuotedCommaSeparatedString(missing), key, pluralVerb(len(missing))))
		}
		if len(unknown) > 0 {
			log.AddID(logger.MsgID_Manifest_UnknownExports, logger.Warning, nil, logger.Range{},
				fmt.Sprintf("The package %q does not provide %s", key, helpers.StringArrayToQuotedCommaSeparatedString(unknown)))
		}
	}
	return nil
}

func pluralVerb(count int) string {
	if count == 1 {
		return "it is"
	}
	return "they are"
}

type PossiblyUnusedPolicy uint8

const (
	// Exports that might be unused are kept, since deleting live code is a
	// correctness bug while shipping dead code only costs bytes
	KeepPossiblyUnused PossiblyUnusedPolicy = iota
	RemovePossiblyUnused
)

type DeriveOptions struct {
	// The first segment of every condition, "treeShake" by default
	Namespace string

	// Only derive flags for this package when set
	ShareKey string

	PossiblyUnused PossiblyUnusedPolicy
}

// Derive turns a manifest into optimization flags named
// "<namespace>.<shareKey>.<export>" and, for properties of structured
// exports, "<namespace>.<shareKey>.<export>.<property>"
func Derive(manifest *Manifest, options DeriveOptions) *config.Flags {
	namespace := options.Namespace
	if namespace == "" {
		namespace = DefaultNamespace
	}
	flags := config.NewFlags()

	for _, key := range manifest.ShareKeys() {
		if options.ShareKey != "" && key != options.ShareKey {
			continue
		}
		pkg := manifest.Packages[key]
		prefix := namespace + "." + key + "."

		for _, name := range pkg.PossiblyUnusedExports {
			flags.Set(prefix+name, options.PossiblyUnused == KeepPossiblyUnused)
		}
		for _, name := range pkg.UnusedExports {
			flags.Set(prefix+name, false)
		}
		for _, name := range pkg.UsedExports {
			flags.Set(prefix+name, true)
		}

		for exportName, properties := range pkg.Properties {
			for property, state := range properties {
				flags.Set(prefix+exportName+"."+property, state != StateUnused)
			}
		}

		if pkg.EntryModuleID != "" {
			flags.SetEntryHint(namespace+"."+key, pkg.EntryModuleID)
		}
	}
	return flags
}

// Merge combines the manifests of several consumers of the same shared
// packages. An export used by any consumer is used, one that any consumer
// might use is possibly unused, and only an export that every consumer
// leaves alone is unused. The first entry module id seen for a package wins.
func Merge(manifests ...*Manifest) *Manifest {
	type exportState uint8
	const (
		unused exportState = iota
		possiblyUnused
		used
	)

	merged := &Manifest{Packages: make(map[string]*PackageUsage)}
	states := make(map[string]map[string]exportState)
	provided := make(map[string]map[string]bool)

	raise := func(key string, name string, state exportState) {
		if old, ok := states[key][name]; !ok || state > old {
			states[key][name] = state
		}
	}

	for _, manifest := range manifests {
		if manifest == nil {
			continue
		}
		for _, key := range manifest.ShareKeys() {
			pkg := manifest.Packages[key]
			target, ok := merged.Packages[key]
			if !ok {
				target = &PackageUsage{}
				merged.Packages[key] = target
				states[key] = make(map[string]exportState)
				provided[key] = make(map[string]bool)
			}
			if target.EntryModuleID == "" {
				target.EntryModuleID = pkg.EntryModuleID
			}
			for _, name := range pkg.UnusedExports {
				raise(key, name, unused)
			}
			for _, name := range pkg.PossiblyUnusedExports {
				raise(key, name, possiblyUnused)
			}
			for _, name := range pkg.UsedExports {
				raise(key, name, used)
			}
			for _, name := range pkg.ProvidedExports {
				provided[key][name] = true
			}
			for exportName, properties := range pkg.Properties {
				if target.Properties == nil {
					target.Properties = make(map[string]map[string]PropertyState)
				}
				if target.Properties[exportName] == nil {
					target.Properties[exportName] = make(map[string]PropertyState)
				}
				for property, state := range properties {
					if old, ok := target.Properties[exportName][property]; !ok || state > old {
						target.Properties[exportName][property] = state
					}
				}
			}
		}
	}

	for key, pkg := range merged.Packages {
		names := make([]string, 0, len(states[key]))
		for name := range states[key] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			switch states[key][name] {
			case used:
				pkg.UsedExports = append(pkg.UsedExports, name)
			case possiblyUnused:
				pkg.PossiblyUnusedExports = append(pkg.PossiblyUnusedExports, name)
			default:
				pkg.UnusedExports = append(pkg.UnusedExports, name)
			}
		}
		for name := range provided[key] {
			pkg.ProvidedExports = append(pkg.ProvidedExports, name)
		}
		sort.Strings(pkg.ProvidedExports)
	}
	return merged
}
