package usage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/sharedshake/sharedshake/internal/config"
	"github.com/sharedshake/sharedshake/internal/logger"
	"github.com/sharedshake/sharedshake/internal/test"
)

func parseJSON(t *testing.T, contents string) *Manifest {
	t.Helper()
	manifest, err := Parse([]byte(contents), config.FormatJSON)
	require.NoError(t, err)
	return manifest
}

func logText(log logger.Log) string {
	text := ""
	for _, msg := range log.Done() {
		text += msg.String(logger.OutputOptions{}, logger.TerminalInfo{})
	}
	return text
}

func TestParseFlatManifest(t *testing.T) {
	manifest := parseJSON(t, `{
		"lib": {
			"used_exports": ["map"],
			"unused_exports": ["filter", "reduce"],
			"possibly_unused_exports": ["chunk"],
			"entry_module_id": "./node_modules/lib/index.js"
		},
		"analysis_metadata": {"total_modules": 3}
	}`)

	if diff := cmp.Diff([]string{"lib"}, manifest.ShareKeys()); diff != "" {
		t.Fatal(diff)
	}
	pkg := manifest.Packages["lib"]
	if diff := cmp.Diff([]string{"map"}, pkg.UsedExports); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff([]string{"filter", "reduce"}, pkg.UnusedExports); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff([]string{"chunk"}, pkg.PossiblyUnusedExports); diff != "" {
		t.Fatal(diff)
	}
	test.AssertEqual(t, pkg.EntryModuleID, "./node_modules/lib/index.js")
}

func TestParseConsumeSharedModules(t *testing.T) {
	manifest := parseJSON(t, `{
		"consume_shared_modules": {
			"react": {
				"used_exports": ["useState"],
				"unused_imports": ["useMemo"],
				"provided_exports": ["useState", "useMemo", "useRef"]
			},
			"lodash-es": {
				"export_details": [
					{"export_name": "map", "usage_state": "Used", "is_imported": true, "is_used": true},
					{"export_name": "pick", "usage_state": "OnlyPropertiesUsed"},
					{"export_name": "omit", "usage_state": "Unused"},
					{"export_name": "get", "usage_state": "Unknown"}
				]
			}
		},
		"analysis_metadata": {"plugin_version": "1"}
	}`)

	react := manifest.Packages["react"]
	if diff := cmp.Diff([]string{"useMemo"}, react.UnusedExports); diff != "" {
		t.Fatal(diff)
	}
	test.AssertEqual(t, len(react.ProvidedExports), 3)

	lodash := manifest.Packages["lodash-es"]
	if diff := cmp.Diff([]string{"map", "pick"}, lodash.UsedExports); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff([]string{"omit"}, lodash.UnusedExports); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff([]string{"get"}, lodash.PossiblyUnusedExports); diff != "" {
		t.Fatal(diff)
	}
}

func TestParseBooleanForm(t *testing.T) {
	manifest, err := Parse([]byte(`
treeShake:
  lib:
    map: true
    filter: false
    utils:
      format: true
      parse: false
    chunk_characteristics:
      entry_module_id: 42
`), config.FormatYAML)
	require.NoError(t, err)

	pkg := manifest.Packages["lib"]
	if diff := cmp.Diff([]string{"map", "utils"}, pkg.UsedExports); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff([]string{"filter"}, pkg.UnusedExports); diff != "" {
		t.Fatal(diff)
	}
	test.AssertEqual(t, pkg.Properties["utils"]["format"], StateUsed)
	test.AssertEqual(t, pkg.Properties["utils"]["parse"], StateUnused)
	test.AssertEqual(t, pkg.EntryModuleID, "42")
}

func TestParseErrors(t *testing.T) {
	expectError := func(contents string, expected string) {
		t.Helper()
		_, err := Parse([]byte(contents), config.FormatJSON)
		require.Error(t, err)
		test.AssertEqual(t, err.Error(), expected)
	}

	expectError(`{"lib": []}`, `Invalid usage manifest for "lib": expected an object but found an array`)
	expectError(`{"lib": {"used_exports": "map"}}`, `Invalid usage manifest for "lib": expected "used_exports" to be an array but found the string "map"`)
	expectError(`{"lib": {"used_exports": [1]}}`, `Invalid usage manifest for "lib": expected "used_exports" to contain strings but found the number 1`)
	expectError(`{"lib": {"entry_module_id": true}}`, `Invalid usage manifest for "lib": expected "entry_module_id" to be a string or a number but found the boolean true`)
	expectError(`{"consume_shared_modules": 1}`, `Invalid usage manifest: expected "consume_shared_modules" to be an object but found the number 1`)
	expectError(`{"lib": {"properties": {"utils": {"format": "Sometimes"}}}}`, `Invalid usage manifest for "lib": invalid usage state the string "Sometimes" for "utils.format"`)
	expectError(`{"treeShake": {"lib": {"map": "yes"}}}`, `Invalid usage manifest for "lib": expected "map" to be a boolean or an object but found the string "yes"`)
}

func TestValidate(t *testing.T) {
	manifest := parseJSON(t, `{"lib": {"used_exports": ["map"], "unused_exports": ["map"]}}`)
	err := Validate(logger.NewDeferLog(), manifest)
	require.Error(t, err)
	test.AssertEqual(t, err.Error(), `Invalid usage manifest for "lib": the export "map" is listed as both used and unused`)

	manifest = parseJSON(t, `{"lib": {"unused_exports": ["map"], "possibly_unused_exports": ["map"]}}`)
	require.Error(t, Validate(logger.NewDeferLog(), manifest))

	manifest = parseJSON(t, `{"lib": {"used_exports": ["map", "map"]}}`)
	require.NoError(t, Validate(logger.NewDeferLog(), manifest))
}

func TestValidateCoverage(t *testing.T) {
	manifest := parseJSON(t, `{"lib": {
		"used_exports": ["map"],
		"unused_exports": ["zip"],
		"provided_exports": ["map", "filter", "reduce"]
	}}`)
	log := logger.NewDeferLog()
	require.NoError(t, Validate(log, manifest))
	test.AssertEqual(t, logText(log),
		"warning: The package \"lib\" does not provide \"zip\"\n"+
			"warning: The usage of \"filter\", \"reduce\" in \"lib\" is not known, so they are kept\n")
}

func TestDerive(t *testing.T) {
	manifest := parseJSON(t, `{
		"lib": {
			"used_exports": ["map"],
			"unused_exports": ["filter"],
			"possibly_unused_exports": ["chunk"],
			"entry_module_id": 7,
			"properties": {"utils": {"format": "OnlyPropertiesUsed", "parse": "Unused"}}
		},
		"other": {"unused_exports": ["x"]}
	}`)

	flags := Derive(manifest, DeriveOptions{})
	if diff := cmp.Diff([]string{
		"treeShake.lib.chunk",
		"treeShake.lib.filter",
		"treeShake.lib.map",
		"treeShake.lib.utils.format",
		"treeShake.lib.utils.parse",
		"treeShake.other.x",
	}, flags.Paths()); diff != "" {
		t.Fatal(diff)
	}
	test.AssertEqual(t, flags.Lookup("treeShake.lib.map"), config.True)
	test.AssertEqual(t, flags.Lookup("treeShake.lib.filter"), config.False)
	test.AssertEqual(t, flags.Lookup("treeShake.lib.chunk"), config.True)
	test.AssertEqual(t, flags.Lookup("treeShake.lib.utils.format"), config.True)
	test.AssertEqual(t, flags.Lookup("treeShake.lib.utils.parse"), config.False)
	if diff := cmp.Diff([]string{"7"}, flags.EntryHints()); diff != "" {
		t.Fatal(diff)
	}

	flags = Derive(manifest, DeriveOptions{PossiblyUnused: RemovePossiblyUnused, ShareKey: "lib", Namespace: "shake"})
	test.AssertEqual(t, flags.Lookup("shake.lib.chunk"), config.False)
	test.AssertEqual(t, flags.Lookup("shake.other.x"), config.Unknown)
}

func TestMerge(t *testing.T) {
	first := parseJSON(t, `{"lib": {
		"used_exports": ["map"],
		"unused_exports": ["filter", "reduce"],
		"possibly_unused_exports": ["chunk"],
		"entry_module_id": "./lib/index.js",
		"properties": {"utils": {"format": "Unused"}}
	}}`)
	second := parseJSON(t, `{
		"lib": {
			"used_exports": ["filter"],
			"unused_exports": ["map", "chunk", "zip"],
			"possibly_unused_exports": ["reduce"],
			"entry_module_id": "./other.js",
			"properties": {"utils": {"format": "Used"}}
		},
		"react": {"used_exports": ["useState"]}
	}`)

	merged := Merge(first, nil, second)
	if diff := cmp.Diff([]string{"lib", "react"}, merged.ShareKeys()); diff != "" {
		t.Fatal(diff)
	}
	lib := merged.Packages["lib"]
	if diff := cmp.Diff([]string{"filter", "map"}, lib.UsedExports); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff([]string{"chunk", "reduce"}, lib.PossiblyUnusedExports); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff([]string{"zip"}, lib.UnusedExports); diff != "" {
		t.Fatal(diff)
	}
	test.AssertEqual(t, lib.EntryModuleID, "./lib/index.js")
	test.AssertEqual(t, lib.Properties["utils"]["format"], StateUsed)
	require.NoError(t, Validate(logger.NewDeferLog(), merged))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "usage.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"lib": {"used_exports": ["map"]}}`), 0644))
	manifest, err := LoadFile(path)
	require.NoError(t, err)
	test.AssertEqual(t, len(manifest.Packages["lib"].UsedExports), 1)

	path = filepath.Join(dir, "usage.yml")
	require.NoError(t, os.WriteFile(path, []byte("lib:\n  unused_exports: [filter]\n"), 0644))
	manifest, err = LoadFile(path)
	require.NoError(t, err)
	test.AssertEqual(t, manifest.Packages["lib"].UnusedExports[0], "filter")

	path = filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"lib": {"used_exports": "map"}}`), 0644))
	_, err = LoadFile(path)
	require.Error(t, err)
	test.AssertEqual(t, err.Error(), path+`: Invalid usage manifest for "lib": expected "used_exports" to be an array but found the string "map"`)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}
