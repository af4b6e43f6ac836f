package test

import (
	"os"
	"testing"

	"github.com/sharedshake/sharedshake/internal/logger"
)

func AssertEqual(t *testing.T, observed interface{}, expected interface{}) {
	t.Helper()
	if observed != expected {
		t.Fatalf("%v != %v", observed, expected)
	}
}

// Bundle text is usually several lines long, so show a line diff instead of
// two walls of text
func AssertEqualWithDiff(t *testing.T, observed interface{}, expected interface{}) {
	t.Helper()
	if observed != expected {
		stringA := observed.(string)
		stringB := expected.(string)
		t.Fatal(Diff(stringB, stringA, logger.GetTerminalInfo(os.Stdout).UseColorEscapes))
	}
}

func SourceForTest(contents string) logger.Source {
	return logger.Source{
		PrettyPath: "<stdin>",
		Contents:   contents,
	}
}
