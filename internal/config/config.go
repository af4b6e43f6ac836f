package config

// Optimization flags decide which marker regions survive. They come from a
// nested map such as {"treeShake": {"lib": {"map": false}}} or a flat one
// such as {"treeShake.lib.map": false}, and are flattened into dot paths.
// A condition that isn't mentioned resolves to Unknown, which keeps code.

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sharedshake/sharedshake/internal/bundle_ast"
)

// Metadata that build tools store next to the export flags of a package
const chunkCharacteristicsKey = "chunk_characteristics"

type Truth uint8

const (
	Unknown Truth = iota
	True
	False
)

func (truth Truth) String() string {
	switch truth {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

func TruthOf(value bool) Truth {
	if value {
		return True
	}
	return False
}

type ConfigShapeError struct {
	Key    string
	Reason string
}

func (err *ConfigShapeError) Error() string {
	if err.Key == "" {
		return fmt.Sprintf("Invalid optimization config: %s", err.Reason)
	}
	return fmt.Sprintf("Invalid optimization config at %q: %s", err.Key, err.Reason)
}

type Flags struct {
	values map[string]bool

	// "entry_module_id" from each package's "chunk_characteristics", keyed
	// by the path of the package ("treeShake.lib")
	entryHints map[string]string
}

func NewFlags() *Flags {
	return &Flags{
		values:     make(map[string]bool),
		entryHints: make(map[string]string),
	}
}

// FromMap flattens a decoded config. Both shapes may be mixed, but a path
// that is given twice must have the same value both times.
func FromMap(data map[string]interface{}) (*Flags, error) {
	flags := NewFlags()
	if err := flags.addMap(nil, data); err != nil {
		return nil, err
	}
	return flags, nil
}

func (flags *Flags) addMap(prefix []string, data map[string]interface{}) error {
	// Sorted so errors are deterministic
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := data[key]
		path := append(append([]string{}, prefix...), splitKey(key)...)
		joined := strings.Join(path, ".")
		if !isValidPath(path) {
			return &ConfigShapeError{Key: joined, Reason: "keys must be non-empty dot-separated names"}
		}

		if key == chunkCharacteristicsKey {
			if len(prefix) == 0 {
				return &ConfigShapeError{Key: joined, Reason: "chunk characteristics must belong to a package"}
			}
			if err := flags.addCharacteristics(prefix, value); err != nil {
				return err
			}
			continue
		}

		switch v := value.(type) {
		case bool:
			if err := flags.set(joined, v); err != nil {
				return err
			}
		case map[string]interface{}:
			if err := flags.addMap(path, v); err != nil {
				return err
			}
		case map[interface{}]interface{}:
			converted, err := stringKeys(joined, v)
			if err != nil {
				return err
			}
			if err := flags.addMap(path, converted); err != nil {
				return err
			}
		default:
			return &ConfigShapeError{Key: joined, Reason: fmt.Sprintf("expected a boolean or an object but found %s", describe(value))}
		}
	}
	return nil
}

func (flags *Flags) addCharacteristics(prefix []string, value interface{}) error {
	key := strings.Join(append(append([]string{}, prefix...), chunkCharacteristicsKey), ".")
	characteristics, ok := value.(map[string]interface{})
	if !ok {
		return &ConfigShapeError{Key: key, Reason: fmt.Sprintf("expected an object but found %s", describe(value))}
	}
	id, ok := characteristics["entry_module_id"]
	if !ok || id == nil {
		return nil
	}
	normalized, ok := NormalizeModuleID(id)
	if !ok {
		return &ConfigShapeError{Key: key + ".entry_module_id", Reason: fmt.Sprintf("expected a string or a number but found %s", describe(id))}
	}
	flags.entryHints[strings.Join(prefix, ".")] = normalized
	return nil
}

// NormalizeModuleID converts a module id decoded from JSON, YAML or TOML to
// the form used in the bundle model
func NormalizeModuleID(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case float64:
		return bundle_ast.NormalizeNumericID(v), true
	case int:
		return bundle_ast.NormalizeNumericID(float64(v)), true
	case int64:
		return bundle_ast.NormalizeNumericID(float64(v)), true
	case uint64:
		return bundle_ast.NormalizeNumericID(float64(v)), true
	}
	return "", false
}

func (flags *Flags) set(path string, value bool) error {
	if old, ok := flags.values[path]; ok && old != value {
		return &ConfigShapeError{Key: path, Reason: "the flag is given twice with different values"}
	}
	flags.values[path] = value
	return nil
}

// Set overrides a flag
func (flags *Flags) Set(path string, value bool) {
	flags.values[path] = value
}

func (flags *Flags) SetEntryHint(packagePath string, id string) {
	flags.entryHints[packagePath] = id
}

func (flags *Flags) Len() int {
	if flags == nil {
		return 0
	}
	return len(flags.values)
}

// Paths returns every flag path in sorted order
func (flags *Flags) Paths() []string {
	paths := make([]string, 0, len(flags.values))
	for path := range flags.values {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func (flags *Flags) Value(path string) (bool, bool) {
	value, ok := flags.values[path]
	return value, ok
}

// Overlay returns a copy of these flags with every flag and entry hint of
// "other" applied on top
func (flags *Flags) Overlay(other *Flags) *Flags {
	result := NewFlags()
	for _, source := range []*Flags{flags, other} {
		if source == nil {
			continue
		}
		for path, value := range source.values {
			result.values[path] = value
		}
		for path, id := range source.entryHints {
			result.entryHints[path] = id
		}
	}
	return result
}

// Restrict keeps only the flags and entry hints of one package. The share
// key may be the first segment of a path ("lib.map") or follow a namespace
// ("treeShake.lib.map").
func (flags *Flags) Restrict(shareKey string) *Flags {
	result := NewFlags()
	for path, value := range flags.values {
		if packageMatches(path, shareKey) {
			result.values[path] = value
		}
	}
	for path, id := range flags.entryHints {
		if packageMatches(path, shareKey) {
			result.entryHints[path] = id
		}
	}
	return result
}

func packageMatches(path string, shareKey string) bool {
	segments := strings.Split(path, ".")
	for i := 0; i < len(segments) && i < 2; i++ {
		if segments[i] == shareKey {
			return true
		}
	}
	return false
}

// EntryHints returns the entry module ids of every package in path order
func (flags *Flags) EntryHints() []string {
	if flags == nil {
		return nil
	}
	paths := make([]string, 0, len(flags.entryHints))
	for path := range flags.entryHints {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	seen := make(map[string]bool)
	var ids []string
	for _, path := range paths {
		if id := flags.entryHints[path]; !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// Lookup resolves a condition name. The most specific flag wins:
//
//   - the condition itself ("treeShake.lib.map")
//   - the condition without its namespace ("lib.map")
//   - the closest enclosing path ("treeShake.lib", then "treeShake")
//   - the closest enclosing path without the namespace ("lib")
//
// Anything else is Unknown.
func (flags *Flags) Lookup(condition string) Truth {
	if flags == nil || len(flags.values) == 0 {
		return Unknown
	}
	segments := strings.Split(condition, ".")

	if value, ok := flags.values[condition]; ok {
		return TruthOf(value)
	}
	if len(segments) > 1 {
		if value, ok := flags.values[strings.Join(segments[1:], ".")]; ok {
			return TruthOf(value)
		}
	}
	if truth := flags.lookupAncestor(segments); truth != Unknown {
		return truth
	}
	if len(segments) > 2 {
		return flags.lookupAncestor(segments[1:])
	}
	return Unknown
}

func (flags *Flags) lookupAncestor(segments []string) Truth {
	for i := len(segments) - 1; i > 0; i-- {
		if value, ok := flags.values[strings.Join(segments[:i], ".")]; ok {
			return TruthOf(value)
		}
	}
	return Unknown
}

func splitKey(key string) []string {
	return strings.Split(key, ".")
}

func isValidPath(path []string) bool {
	for _, segment := range path {
		if strings.TrimSpace(segment) == "" {
			return false
		}
	}
	return true
}

func stringKeys(path string, data map[interface{}]interface{}) (map[string]interface{}, error) {
	result := make(map[string]interface{}, len(data))
	for key, value := range data {
		text, ok := key.(string)
		if !ok {
			return nil, &ConfigShapeError{Key: path, Reason: fmt.Sprintf("expected string keys but found %s", describe(key))}
		}
		result[text] = value
	}
	return result, nil
}

func describe(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("the string %q", v)
	case float64, int, int64, uint64:
		return fmt.Sprintf("the number %v", v)
	case []interface{}:
		return "an array"
	}
	return fmt.Sprintf("a value of type %T", value)
}
