package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/sharedshake/sharedshake/internal/exitcode"
	"github.com/sharedshake/sharedshake/internal/test"
	"github.com/sharedshake/sharedshake/pkg/api"
)

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{
		"--manifest=a.json", "--manifest=b.yaml", "--config=flags.toml",
		"--possibly-unused=remove", "--entry=./src/index.js", "--parallel=2",
		"--max-iterations=3", "--write", "--report=report.json", "one.js", "two.js",
	})
	require.Nil(t, err)
	if diff := cmp.Diff([]string{"a.json", "b.yaml"}, opts.manifestFiles); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff([]string{"one.js", "two.js"}, opts.files); diff != "" {
		t.Fatal(diff)
	}
	test.AssertEqual(t, opts.possiblyUnused, api.PossiblyUnusedRemove)
	test.AssertEqual(t, opts.parallel, 2)
	test.AssertEqual(t, opts.maxIterations, 3)
	test.AssertEqual(t, opts.outputPath("one.js"), "one.js")

	opts, err = parseOptions([]string{"--outdir=dist", "chunks/one.js"})
	require.Nil(t, err)
	test.AssertEqual(t, opts.parallel, defaultParallel)
	test.AssertEqual(t, opts.logLevel, api.LogLevelInfo)
	test.AssertEqual(t, opts.outputPath("chunks/one.js"), filepath.Join("dist", "one.js"))

	opts, err = parseOptions(nil)
	require.Nil(t, err)
	test.AssertEqual(t, opts.outputPath(""), "")
}

func TestParseOptionsErrors(t *testing.T) {
	expectError := func(args []string, text string) {
		t.Helper()
		_, err := parseOptions(args)
		require.NotNil(t, err)
		test.AssertEqual(t, err.Text, text)
	}

	expectError([]string{"--bundle"}, "Invalid command-line flag: \"--bundle\"")
	expectError([]string{"--parallel=0"}, "Invalid value for \"--parallel\": \"0\"")
	expectError([]string{"--possibly-unused=maybe"}, "Invalid possibly-unused policy: \"maybe\"")
	expectError([]string{"--write"}, "Must name the input files when using \"--outdir\" or \"--write\"")
	expectError([]string{"--outfile=out.js", "a.js", "b.js"}, "Cannot use \"--outfile\" with more than one input file")
	expectError([]string{"a.js", "b.js"}, "Must use \"--outdir\" or \"--write\" when there are multiple input files")
	expectError([]string{"--write", "--outdir=dist", "a.js"}, "Cannot use more than one of \"--outfile\", \"--outdir\", and \"--write\"")
	expectError([]string{"--annotate=lib", "--report=r.json"}, "Cannot use \"--report\" with \"--annotate\"")
	expectError([]string{"--annotate="}, "Missing share key for \"--annotate\"")
}

func TestRunWrite(t *testing.T) {
	dir := t.TempDir()
	chunkPath := filepath.Join(dir, "vendors-lib.js")
	plainPath := filepath.Join(dir, "plain.js")
	configPath := filepath.Join(dir, "flags.json")
	reportPath := filepath.Join(dir, "report.json")
	require.NoError(t, os.WriteFile(chunkPath, []byte(test.StandardBundle), 0644))
	require.NoError(t, os.WriteFile(plainPath, []byte("console.log(1);\n"), 0644))
	require.NoError(t, os.WriteFile(configPath, []byte(`{"treeShake.lib.unused": false}`), 0644))

	code := Run([]string{"--log-level=silent", "--config=" + configPath, "--write", "--report=" + reportPath, chunkPath, plainPath})
	test.AssertEqual(t, code, exitcode.Success)

	backup, err := os.ReadFile(chunkPath + backupSuffix)
	require.NoError(t, err)
	test.AssertEqual(t, string(backup), test.StandardBundle)

	optimized, err := os.ReadFile(chunkPath)
	require.NoError(t, err)
	test.AssertEqual(t, strings.Contains(string(optimized), "./src/heavy.js"), false)

	// Unchanged files are not rewritten
	_, err = os.Stat(plainPath + backupSuffix)
	test.AssertEqual(t, os.IsNotExist(err), true)

	bytes, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var reports []api.Report
	require.NoError(t, json.Unmarshal(bytes, &reports))
	require.Len(t, reports, 2)
	test.AssertEqual(t, reports[0].File, chunkPath)
	if diff := cmp.Diff([]string{"./src/heavy.js", "./src/orphan.js"}, reports[0].RemovedModules); diff != "" {
		t.Fatal(diff)
	}
	test.AssertEqual(t, reports[1].File, plainPath)
	test.AssertEqual(t, reports[1].SkipReason, "no flags apply and no module registry")
}

func TestRunWriteKeepsFirstBackup(t *testing.T) {
	dir := t.TempDir()
	chunkPath := filepath.Join(dir, "vendors-lib.js")
	firstConfig := filepath.Join(dir, "first.json")
	secondConfig := filepath.Join(dir, "second.json")
	require.NoError(t, os.WriteFile(chunkPath, []byte(test.StandardBundle), 0644))
	require.NoError(t, os.WriteFile(firstConfig, []byte(`{"treeShake.lib.unused": false}`), 0644))
	require.NoError(t, os.WriteFile(secondConfig, []byte(`{"treeShake.lib.used": false}`), 0644))

	code := Run([]string{"--log-level=silent", "--config=" + firstConfig, "--keep-unresolved-markers", "--write", chunkPath})
	test.AssertEqual(t, code, exitcode.Success)
	afterFirst, err := os.ReadFile(chunkPath)
	require.NoError(t, err)
	test.AssertEqual(t, strings.Contains(string(afterFirst), `condition="treeShake.lib.used"`), true)

	code = Run([]string{"--log-level=silent", "--config=" + secondConfig, "--write", chunkPath})
	test.AssertEqual(t, code, exitcode.Success)
	afterSecond, err := os.ReadFile(chunkPath)
	require.NoError(t, err)
	test.AssertEqual(t, string(afterSecond) != string(afterFirst), true)

	backup, err := os.ReadFile(chunkPath + backupSuffix)
	require.NoError(t, err)
	test.AssertEqual(t, string(backup), test.StandardBundle)
}

func TestRunFailures(t *testing.T) {
	dir := t.TempDir()
	goodPath := filepath.Join(dir, "good.js")
	badPath := filepath.Join(dir, "bad.js")
	outdir := filepath.Join(dir, "out")
	require.NoError(t, os.WriteFile(goodPath, []byte(test.SplitChunkBundle), 0644))
	require.NoError(t, os.WriteFile(badPath, []byte(`var x = [/* @common:if [condition="a.b"] */ 1];`), 0644))

	code := Run([]string{"--log-level=silent", "--entry=./node_modules/lib/map.js", "--outdir=" + outdir, goodPath, badPath, filepath.Join(dir, "missing.js")})
	test.AssertEqual(t, code, exitcode.Failure)

	// The good file is still written
	optimized, err := os.ReadFile(filepath.Join(outdir, "good.js"))
	require.NoError(t, err)
	test.AssertEqual(t, strings.Contains(string(optimized), "./node_modules/lib/internal.js"), false)

	_, err = os.Stat(filepath.Join(outdir, "bad.js"))
	test.AssertEqual(t, os.IsNotExist(err), true)

	test.AssertEqual(t, Run([]string{"--log-level=silent", "--nope"}), exitcode.Usage)
}

func TestUsageErrors(t *testing.T) {
	err := run([]string{"--log-level=silent", "--parallel=none"})
	require.Error(t, err)
	test.AssertEqual(t, err.Error(), "Invalid value for \"--parallel\": \"none\"")
	test.AssertEqual(t, exitcode.Get(err), exitcode.Usage)

	var coder exitcode.Coder
	require.True(t, errors.As(err, &coder))

	// A chunk that fails is not a usage error
	dir := t.TempDir()
	err = run([]string{"--log-level=silent", "--outdir=" + dir, filepath.Join(dir, "missing.js")})
	require.Error(t, err)
	test.AssertEqual(t, exitcode.Get(err), exitcode.Failure)
}

func TestRunAnnotate(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "lib.js")
	outputPath := filepath.Join(dir, "lib.annotated.js")
	require.NoError(t, os.WriteFile(inputPath, []byte(`(self["webpackChunkapp"] = self["webpackChunkapp"] || []).push([["lib"], {
"./node_modules/lib/index.js": ((module, exports, __webpack_require__) => {
__webpack_require__.d(exports, {
  map: () => (map)
});
function map() {}
})
}]);
`), 0644))

	code := Run([]string{"--log-level=silent", "--annotate=lib", "--outfile=" + outputPath, inputPath})
	test.AssertEqual(t, code, exitcode.Success)

	annotated, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	test.AssertEqual(t, strings.Contains(string(annotated), `/* @common:if [condition="treeShake.lib.map"] */ map: () => (map)`), true)
}
