package js_validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sharedshake/sharedshake/internal/bundle_ast"
	"github.com/sharedshake/sharedshake/internal/test"
)

func TestCheck(t *testing.T) {
	require.NoError(t, Check(test.SourceForTest(test.StandardBundle), false))
	require.NoError(t, Check(test.SourceForTest(test.SplitChunkBundle), false))
	require.NoError(t, Check(test.SourceForTest(""), false))

	err := Check(test.SourceForTest("var modules = { \"a\": , };"), true)
	require.Error(t, err)

	var unparsable *bundle_ast.UnparsableInputError
	require.True(t, errors.As(err, &unparsable))
	test.AssertEqual(t, unparsable.IsOutput, true)
	require.NotNil(t, unparsable.Location)
	test.AssertEqual(t, unparsable.Location.File, "<stdin>")
	test.AssertEqual(t, unparsable.Location.Line, 1)
	test.AssertEqual(t, unparsable.Location.Column, 21)
}

func TestCheckFindsWhatBracketsMiss(t *testing.T) {
	// Brackets balance, but these are not valid JavaScript
	for _, contents := range []string{
		"a = ;",
		"({ a: 1 b: 2 })",
		"f(,)",
	} {
		require.Error(t, Check(test.SourceForTest(contents), false), contents)
	}
}
