package optimizer

import (
	"errors"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/sharedshake/sharedshake/internal/bundle_ast"
	"github.com/sharedshake/sharedshake/internal/bundle_parser"
	"github.com/sharedshake/sharedshake/internal/config"
	"github.com/sharedshake/sharedshake/internal/helpers"
	"github.com/sharedshake/sharedshake/internal/logger"
	"github.com/sharedshake/sharedshake/internal/shaker"
	"github.com/sharedshake/sharedshake/internal/test"
)

type fixture struct {
	name        string
	contents    string
	entryPoints []string
}

var fixtures = []fixture{
	{name: "standard", contents: test.StandardBundle},
	{name: "split-chunk", contents: test.SplitChunkBundle, entryPoints: []string{"./node_modules/lib/index.js"}},
	{name: "indirect-calls", contents: indirectCallsBundle},
}

// Modules reached through "call" and "apply" on the require function
const indirectCallsBundle = `var __webpack_modules__ = {
"./src/index.js": (module, exports, __webpack_require__) => {
/* @common:if [condition="treeShake.app.format"] */ __webpack_require__.call(null, "./src/format.js").run(); /* @common:endif */
/* @common:if [condition="treeShake.app.parse"] */ __webpack_require__.apply(this, ["./src/parse.js"]); /* @common:endif */
},
"./src/format.js": (module, exports, __webpack_require__) => {
exports.run = () => __webpack_require__.call(undefined, "./src/pad.js");
},
"./src/parse.js": (module, exports) => {},
"./src/pad.js": (module, exports) => {},
"./src/unused.js": (module, exports) => {},
};
__webpack_require__("./src/index.js");
`

func flagsForTest(t *testing.T, values map[string]interface{}) *config.Flags {
	t.Helper()
	flags, err := config.FromMap(values)
	require.NoError(t, err)
	return flags
}

func optimize(t *testing.T, contents string, options Options) Result {
	t.Helper()
	result, err := Optimize(logger.NewDeferLog(), test.SourceForTest(contents), options)
	require.NoError(t, err)
	return result
}

func conditionsOf(t *testing.T, contents string) []string {
	t.Helper()
	bundle, err := bundle_parser.Parse(logger.NewDeferLog(), test.SourceForTest(contents))
	require.NoError(t, err)
	seen := make(map[string]bool)
	var conditions []string
	for _, region := range bundle.Markers {
		if !seen[region.Condition] {
			seen[region.Condition] = true
			conditions = append(conditions, region.Condition)
		}
	}
	sort.Strings(conditions)
	return conditions
}

func TestOptimizeStandardBundle(t *testing.T) {
	result := optimize(t, test.StandardBundle, Options{
		Flags: flagsForTest(t, map[string]interface{}{"treeShake": map[string]interface{}{"lib": map[string]interface{}{
			"used":   true,
			"unused": false,
		}}}),
	})

	test.AssertEqual(t, result.Shape, bundle_ast.RegistryStandard)
	test.AssertEqual(t, result.OriginalCount, 5)
	test.AssertEqual(t, result.Iterations, 2)
	test.AssertEqual(t, result.EntrySource, shaker.EntriesInferred)
	test.AssertEqual(t, result.SkipReason, "")
	if diff := cmp.Diff([]string{"./src/heavy.js", "./src/orphan.js"}, result.Removed); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff([]string{"./src/index.js", "./src/lib.js", "./src/helper.js"}, result.Kept); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff([]string{"treeShake.lib.unused"}, result.RemovedConditions); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff([]string{"treeShake.lib.used"}, result.KeptConditions); diff != "" {
		t.Fatal(diff)
	}
	test.AssertEqual(t, strings.Contains(result.Contents, "heavy"), false)
	test.AssertEqual(t, strings.Contains(result.Contents, "orphan"), false)
	test.AssertEqual(t, strings.Contains(result.Contents, "@common:"), false)
}

func TestOptimizeWithEntryHints(t *testing.T) {
	flags, err := config.Parse([]byte(`{"treeShake": {"lib": {
		"map": true,
		"filter": false,
		"chunk_characteristics": {"entry_module_id": "./node_modules/lib/index.js"}
	}}}`), config.FormatJSON)
	require.NoError(t, err)

	result := optimize(t, test.SplitChunkBundle, Options{Flags: flags, EntryHints: append(flags.EntryHints(), "./elsewhere.js")})
	test.AssertEqual(t, result.Shape, bundle_ast.RegistrySplitChunk)
	test.AssertEqual(t, result.EntrySource, shaker.EntriesExplicit)
	if diff := cmp.Diff([]string{"./node_modules/lib/index.js"}, result.EntryPoints); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff([]string{"./node_modules/lib/filter.js", "./node_modules/lib/internal.js"}, result.Removed); diff != "" {
		t.Fatal(diff)
	}
	test.AssertEqual(t, strings.HasPrefix(result.Contents, "\"use strict\";\n(self[\"webpackChunkapp\"] = self[\"webpackChunkapp\"] || []).push([[\"vendors-lib\"], {\n"), true)
}

func TestSkipReason(t *testing.T) {
	result := optimize(t, "var a = 1;\n", Options{})
	test.AssertEqual(t, result.Contents, "var a = 1;\n")
	test.AssertEqual(t, result.Iterations, 1)
	test.AssertEqual(t, result.SkipReason, "no flags apply and no module registry")

	result = optimize(t, test.SplitChunkBundle, Options{KeepUnresolved: true})
	test.AssertEqual(t, result.Contents, test.SplitChunkBundle)
	test.AssertEqual(t, result.SkipReason, "no flags apply and no entry points")
	if diff := cmp.Diff([]string{"treeShake.lib.map", "treeShake.lib.filter"}, result.UnresolvedConditions); diff != "" {
		t.Fatal(diff)
	}

	result = optimize(t, "var a = 1;\n", Options{NoShake: true})
	test.AssertEqual(t, result.SkipReason, "no markers")
}

func TestNoShake(t *testing.T) {
	result := optimize(t, test.StandardBundle, Options{
		Flags:   flagsForTest(t, map[string]interface{}{"treeShake.lib.unused": false}),
		NoShake: true,
	})
	test.AssertEqual(t, strings.Contains(result.Contents, "orphan"), true)
	test.AssertEqual(t, len(result.Removed), 0)
	test.AssertEqual(t, result.Iterations, 2)
}

func TestMissingCloser(t *testing.T) {
	contents := strings.Replace(test.StandardBundle, "/* @common:endif */\n}),", "\n}),", 1)
	require.NotEqual(t, contents, test.StandardBundle)

	result, err := Optimize(logger.NewDeferLog(), test.SourceForTest(contents), Options{})
	require.Error(t, err)
	var malformed *bundle_ast.MalformedMarkerError
	require.True(t, errors.As(err, &malformed))
	test.AssertEqual(t, result.Contents, "")
}

func TestUnparsableInput(t *testing.T) {
	_, err := Optimize(logger.NewDeferLog(), test.SourceForTest("var a = ;"), Options{})
	var unparsable *bundle_ast.UnparsableInputError
	require.True(t, errors.As(err, &unparsable))
	test.AssertEqual(t, unparsable.IsOutput, false)

	// Brackets balance, so only the full syntax check notices
	_, err = Optimize(logger.NewDeferLog(), test.SourceForTest("var a = ;"), Options{SkipValidation: true})
	require.NoError(t, err)
}

func TestUnparsableOutput(t *testing.T) {
	contents := `var x = 1 + /* @common:if [condition="a.b"] */ 2 /* @common:endif */;`
	_, err := Optimize(logger.NewDeferLog(), test.SourceForTest(contents), Options{
		Flags: flagsForTest(t, map[string]interface{}{"a.b": false}),
	})
	var unparsable *bundle_ast.UnparsableInputError
	require.True(t, errors.As(err, &unparsable))
	test.AssertEqual(t, unparsable.IsOutput, true)
	test.AssertEqual(t, strings.HasPrefix(err.Error(), "<stdin>:1:"), true)
}

func TestIterationLimit(t *testing.T) {
	_, err := Optimize(logger.NewDeferLog(), test.SourceForTest(test.StandardBundle), Options{MaxIterations: 1})
	var limit *IterationLimitError
	require.True(t, errors.As(err, &limit))
	test.AssertEqual(t, err.Error(), "The output still changed after 1 passes")
}

func TestTiming(t *testing.T) {
	timer := &helpers.Timer{}
	optimize(t, test.StandardBundle, Options{Timer: timer})
	log := logger.NewDeferLog()
	timer.Log(log, "<stdin>")
	msgs := log.Done()
	require.Len(t, msgs, 1)
	test.AssertEqual(t, msgs[0].ID, logger.MsgID_Timing)
	test.AssertEqual(t, strings.HasPrefix(msgs[0].Notes[0].Text, "Validate input: "), true)
}

func TestFixedPoint(t *testing.T) {
	for _, f := range fixtures {
		for _, values := range []map[string]interface{}{
			{},
			{"treeShake": false},
			{"treeShake": true},
			{"treeShake.lib.map": false, "treeShake.lib.unused": false},
		} {
			options := Options{Flags: flagsForTest(t, values), EntryPoints: f.entryPoints}
			first := optimize(t, f.contents, options)
			second := optimize(t, first.Contents, options)
			test.AssertEqualWithDiff(t, second.Contents, first.Contents)
			test.AssertEqual(t, second.Iterations, 1)
			test.AssertEqual(t, len(second.Removed), 0)
		}
	}
}

// Any assignment of conditions must produce a file that still parses, and
// setting one more condition to false must never make the output larger
func TestRandomAssignments(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for _, f := range fixtures {
		conditions := conditionsOf(t, f.contents)
		for round := 0; round < 50; round++ {
			values := make(map[string]interface{})
			for _, condition := range conditions {
				switch r.Intn(3) {
				case 0:
					values[condition] = true
				case 1:
					values[condition] = false
				}
			}
			options := Options{Flags: flagsForTest(t, values), EntryPoints: f.entryPoints}
			before := optimize(t, f.contents, options)
			checkReachability(t, before.Contents, f.entryPoints)
			checkRemovedWereUnreachable(t, f, options.Flags, before)

			flip := conditions[r.Intn(len(conditions))]
			values[flip] = false
			options.Flags = flagsForTest(t, values)
			after := optimize(t, f.contents, options)
			if len(after.Contents) > len(before.Contents) {
				t.Fatalf("%s: setting %q to false grew the output from %d to %d bytes",
					f.name, flip, len(before.Contents), len(after.Contents))
			}
		}
	}
}

// Every module that survives is reachable from an entry point by literal
// edges, unless some live module has a call site that can't be followed
func checkReachability(t *testing.T, contents string, entryPoints []string) {
	t.Helper()
	bundle, err := bundle_parser.Parse(logger.NewDeferLog(), test.SourceForTest(contents))
	require.NoError(t, err)
	result := shaker.Shake(logger.NewDeferLog(), bundle, shaker.Options{EntryPoints: entryPoints})
	test.AssertEqual(t, len(result.Removed), 0)
	test.AssertEqual(t, result.Contents, contents)
}

// Every removed module was unreachable once the regions set to false were
// gone, and nothing left in the output still names it
func checkRemovedWereUnreachable(t *testing.T, f fixture, flags *config.Flags, result Result) {
	t.Helper()
	bundle, err := bundle_parser.Parse(logger.NewDeferLog(), test.SourceForTest(f.contents))
	require.NoError(t, err)

	isDeleted := func(r logger.Range) bool {
		for _, region := range bundle.Markers {
			outer := region.Outer()
			if flags.Lookup(region.Condition) == config.False &&
				r.Loc.Start >= outer.Loc.Start && r.End() <= outer.End() {
				return true
			}
		}
		return false
	}

	var stack []string
	if len(f.entryPoints) > 0 {
		stack = append(stack, f.entryPoints...)
	} else {
		for _, entry := range bundle.EntryPoints {
			if !isDeleted(entry.Range) {
				stack = append(stack, entry.ID)
			}
		}
	}
	reachable := make(map[string]bool)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reachable[id] {
			continue
		}
		reachable[id] = true
		module, ok := bundle.Registry.Lookup(id)
		if !ok {
			continue
		}
		for _, edge := range module.Edges {
			if !isDeleted(edge.Range) {
				stack = append(stack, edge.Target)
			}
		}
	}

	for _, id := range result.Removed {
		if reachable[id] {
			t.Fatalf("%s: removed %q, which is still reachable", f.name, id)
		}
		if strings.Contains(result.Contents, strconv.Quote(id)) {
			t.Fatalf("%s: removed %q, but the output still names it", f.name, id)
		}
	}
}

func TestIndirectCalls(t *testing.T) {
	f := fixture{name: "indirect-calls", contents: indirectCallsBundle}
	options := Options{Flags: flagsForTest(t, map[string]interface{}{"treeShake.app.parse": false})}
	result := optimize(t, f.contents, options)
	if diff := cmp.Diff([]string{"./src/parse.js", "./src/unused.js"}, result.Removed); diff != "" {
		t.Fatal(diff)
	}
	checkRemovedWereUnreachable(t, f, options.Flags, result)
}

func TestAllFalseNeverWorse(t *testing.T) {
	for _, f := range fixtures {
		empty := optimize(t, f.contents, Options{EntryPoints: f.entryPoints})

		values := make(map[string]interface{})
		for _, condition := range conditionsOf(t, f.contents) {
			values[condition] = false
		}
		allFalse := optimize(t, f.contents, Options{Flags: flagsForTest(t, values), EntryPoints: f.entryPoints})

		require.LessOrEqual(t, len(allFalse.Kept)+len(allFalse.Undetermined), len(empty.Kept)+len(empty.Undetermined), f.name)
		require.LessOrEqual(t, len(allFalse.Contents), len(empty.Contents), f.name)
	}
}
