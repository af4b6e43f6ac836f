package usage

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/sharedshake/sharedshake/internal/config"
)

// Top-level keys that describe the report itself rather than a package
var reportMetadataKeys = map[string]bool{
	"analysis_metadata": true,
	"metadata":          true,
	"version":           true,
}

// Parse reads a manifest in any of the shapes build tools write:
//
//   - a map from share key to {used_exports, unused_exports, ...}
//   - the same map wrapped in "consume_shared_modules", where unused exports
//     are called "unused_imports"
//   - the boolean form {"treeShake": {shareKey: {export: bool}}}
func Parse(contents []byte, format config.Format) (*Manifest, error) {
	data, err := config.Decode(contents, format)
	if err != nil {
		return nil, err
	}
	return FromMap(data)
}

func FromMap(data map[string]interface{}) (*Manifest, error) {
	if wrapped, ok := data["consume_shared_modules"]; ok {
		packages, ok := asMap(wrapped)
		if !ok {
			return nil, &ManifestError{Reason: fmt.Sprintf("expected \"consume_shared_modules\" to be an object but found %s", describe(wrapped))}
		}
		return packagesFromMap(packages)
	}

	if flags, ok := data[DefaultNamespace]; ok && len(data) == 1 {
		packages, ok := asMap(flags)
		if !ok {
			return nil, &ManifestError{Reason: fmt.Sprintf("expected %q to be an object but found %s", DefaultNamespace, describe(flags))}
		}
		return packagesFromFlags(packages)
	}

	return packagesFromMap(data)
}

func LoadFile(path string) (*Manifest, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	format := config.FormatForPath(path)
	manifest, err := Parse(contents, format)
	if err != nil {
		var manifestErr *ManifestError
		var shapeErr *config.ConfigShapeError
		if errors.As(err, &manifestErr) || errors.As(err, &shapeErr) {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return nil, fmt.Errorf("Could not read %s as %s: %w", path, format, err)
	}
	return manifest, nil
}

func packagesFromMap(data map[string]interface{}) (*Manifest, error) {
	manifest := &Manifest{Packages: make(map[string]*PackageUsage)}
	for _, key := range sortedKeys(data) {
		if reportMetadataKeys[key] {
			continue
		}
		fields, ok := asMap(data[key])
		if !ok {
			return nil, &ManifestError{Package: key, Reason: fmt.Sprintf("expected an object but found %s", describe(data[key]))}
		}
		pkg, err := packageFromFields(key, fields)
		if err != nil {
			return nil, err
		}
		manifest.Packages[key] = pkg
	}
	return manifest, nil
}

func packageFromFields(key string, fields map[string]interface{}) (*PackageUsage, error) {
	pkg := &PackageUsage{}
	var err error

	if pkg.UsedExports, err = stringList(key, fields, "used_exports"); err != nil {
		return nil, err
	}
	if pkg.UnusedExports, err = stringList(key, fields, "unused_exports"); err != nil {
		return nil, err
	}
	if _, ok := fields["unused_exports"]; !ok {
		if pkg.UnusedExports, err = stringList(key, fields, "unused_imports"); err != nil {
			return nil, err
		}
	}
	if pkg.PossiblyUnusedExports, err = stringList(key, fields, "possibly_unused_exports"); err != nil {
		return nil, err
	}
	if pkg.ProvidedExports, err = stringList(key, fields, "provided_exports"); err != nil {
		return nil, err
	}

	// Reports that only carry per-export details are classified from those
	if len(pkg.UsedExports) == 0 && len(pkg.UnusedExports) == 0 && len(pkg.PossiblyUnusedExports) == 0 {
		if err := classifyDetails(key, pkg, fields["export_details"]); err != nil {
			return nil, err
		}
	}

	id, ok := fields["entry_module_id"]
	if !ok {
		if characteristics, isMap := asMap(fields["chunk_characteristics"]); isMap {
			id, ok = characteristics["entry_module_id"]
		}
	}
	if ok && id != nil {
		normalized, isID := config.NormalizeModuleID(id)
		if !isID {
			return nil, &ManifestError{Package: key, Reason: fmt.Sprintf("expected \"entry_module_id\" to be a string or a number but found %s", describe(id))}
		}
		pkg.EntryModuleID = normalized
	}

	if properties, ok := fields["properties"]; ok {
		exports, isMap := asMap(properties)
		if !isMap {
			return nil, &ManifestError{Package: key, Reason: fmt.Sprintf("expected \"properties\" to be an object but found %s", describe(properties))}
		}
		for _, exportName := range sortedKeys(exports) {
			states, isMap := asMap(exports[exportName])
			if !isMap {
				return nil, &ManifestError{Package: key, Reason: fmt.Sprintf("expected the properties of %q to be an object but found %s", exportName, describe(exports[exportName]))}
			}
			for _, property := range sortedKeys(states) {
				text, _ := states[property].(string)
				state, isState := ParsePropertyState(text)
				if !isState {
					return nil, &ManifestError{Package: key, Reason: fmt.Sprintf("invalid usage state %s for %q", describe(states[property]), exportName+"."+property)}
				}
				pkg.setProperty(exportName, property, state)
			}
		}
	}

	return pkg, nil
}

func classifyDetails(key string, pkg *PackageUsage, details interface{}) error {
	if details == nil {
		return nil
	}
	list, ok := details.([]interface{})
	if !ok {
		return &ManifestError{Package: key, Reason: fmt.Sprintf("expected \"export_details\" to be an array but found %s", describe(details))}
	}
	for _, item := range list {
		detail, ok := asMap(item)
		if !ok {
			return &ManifestError{Package: key, Reason: fmt.Sprintf("expected an export detail object but found %s", describe(item))}
		}
		name, ok := detail["export_name"].(string)
		if !ok {
			return &ManifestError{Package: key, Reason: "an export detail is missing \"export_name\""}
		}
		state, _ := detail["usage_state"].(string)
		switch state {
		case "Used", "OnlyPropertiesUsed":
			pkg.UsedExports = append(pkg.UsedExports, name)
		case "Unused":
			pkg.UnusedExports = append(pkg.UnusedExports, name)
		default:
			pkg.PossiblyUnusedExports = append(pkg.PossiblyUnusedExports, name)
		}
	}
	return nil
}

// The boolean form maps each export straight to whether it's used. A nested
// object holds the properties of a structured export.
func packagesFromFlags(data map[string]interface{}) (*Manifest, error) {
	manifest := &Manifest{Packages: make(map[string]*PackageUsage)}
	for _, key := range sortedKeys(data) {
		exports, ok := asMap(data[key])
		if !ok {
			return nil, &ManifestError{Package: key, Reason: fmt.Sprintf("expected an object but found %s", describe(data[key]))}
		}
		pkg := &PackageUsage{}
		for _, name := range sortedKeys(exports) {
			value := exports[name]
			if name == "chunk_characteristics" {
				characteristics, ok := asMap(value)
				if !ok {
					return nil, &ManifestError{Package: key, Reason: fmt.Sprintf("expected \"chunk_characteristics\" to be an object but found %s", describe(value))}
				}
				if id, ok := characteristics["entry_module_id"]; ok && id != nil {
					normalized, isID := config.NormalizeModuleID(id)
					if !isID {
						return nil, &ManifestError{Package: key, Reason: fmt.Sprintf("expected \"entry_module_id\" to be a string or a number but found %s", describe(id))}
					}
					pkg.EntryModuleID = normalized
				}
				continue
			}
			switch v := value.(type) {
			case bool:
				if v {
					pkg.UsedExports = append(pkg.UsedExports, name)
				} else {
					pkg.UnusedExports = append(pkg.UnusedExports, name)
				}
			default:
				properties, ok := asMap(value)
				if !ok {
					return nil, &ManifestError{Package: key, Reason: fmt.Sprintf("expected %q to be a boolean or an object but found %s", name, describe(value))}
				}
				anyUsed := false
				for _, property := range sortedKeys(properties) {
					used, ok := properties[property].(bool)
					if !ok {
						return nil, &ManifestError{Package: key, Reason: fmt.Sprintf("expected %q to be a boolean but found %s", name+"."+property, describe(properties[property]))}
					}
					state := StateUnused
					if used {
						state = StateUsed
						anyUsed = true
					}
					pkg.setProperty(name, property, state)
				}
				if anyUsed {
					pkg.UsedExports = append(pkg.UsedExports, name)
				} else {
					pkg.UnusedExports = append(pkg.UnusedExports, name)
				}
			}
		}
		manifest.Packages[key] = pkg
	}
	return manifest, nil
}

func (pkg *PackageUsage) setProperty(exportName string, property string, state PropertyState) {
	if pkg.Properties == nil {
		pkg.Properties = make(map[string]map[string]PropertyState)
	}
	if pkg.Properties[exportName] == nil {
		pkg.Properties[exportName] = make(map[string]PropertyState)
	}
	pkg.Properties[exportName][property] = state
}

func stringList(key string, fields map[string]interface{}, field string) ([]string, error) {
	value, ok := fields[field]
	if !ok || value == nil {
		return nil, nil
	}
	list, ok := value.([]interface{})
	if !ok {
		return nil, &ManifestError{Package: key, Reason: fmt.Sprintf("expected %q to be an array but found %s", field, describe(value))}
	}
	result := make([]string, 0, len(list))
	for _, item := range list {
		text, ok := item.(string)
		if !ok {
			return nil, &ManifestError{Package: key, Reason: fmt.Sprintf("expected %q to contain strings but found %s", field, describe(item))}
		}
		result = append(result, text)
	}
	return result, nil
}

func asMap(value interface{}) (map[string]interface{}, bool) {
	switch v := value.(type) {
	case map[string]interface{}:
		return v, true
	case map[interface{}]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, item := range v {
			text, ok := key.(string)
			if !ok {
				return nil, false
			}
			result[text] = item
		}
		return result, true
	}
	return nil, false
}

func sortedKeys(data map[string]interface{}) []string {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func describe(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("the string %q", v)
	case bool:
		return fmt.Sprintf("the boolean %v", v)
	case float64, int, int64, uint64:
		return fmt.Sprintf("the number %v", v)
	case []interface{}:
		return "an array"
	case map[string]interface{}, map[interface{}]interface{}:
		return "an object"
	}
	return fmt.Sprintf("a value of type %T", value)
}
