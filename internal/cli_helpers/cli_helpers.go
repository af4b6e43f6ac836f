// This package contains internal CLI-related code that must be shared with
// other internal code outside of the CLI package.

package cli_helpers

import (
	"fmt"
	"strconv"

	"github.com/sharedshake/sharedshake/pkg/api"
)

type ErrorWithNote struct {
	Text string
	Note string
}

func MakeErrorWithNote(text string, note string) *ErrorWithNote {
	return &ErrorWithNote{
		Text: text,
		Note: note,
	}
}

func ParsePossiblyUnused(text string) (api.PossiblyUnused, *ErrorWithNote) {
	switch text {
	case "keep":
		return api.PossiblyUnusedKeep, nil
	case "remove":
		return api.PossiblyUnusedRemove, nil
	default:
		return api.PossiblyUnusedKeep, MakeErrorWithNote(
			fmt.Sprintf("Invalid possibly-unused policy: %q", text),
			"Valid values are \"keep\" or \"remove\".",
		)
	}
}

func ParseLogLevel(text string) (api.LogLevel, *ErrorWithNote) {
	switch text {
	case "verbose":
		return api.LogLevelVerbose, nil
	case "info":
		return api.LogLevelInfo, nil
	case "warning":
		return api.LogLevelWarning, nil
	case "error":
		return api.LogLevelError, nil
	case "silent":
		return api.LogLevelSilent, nil
	default:
		return api.LogLevelSilent, MakeErrorWithNote(
			fmt.Sprintf("Invalid log level: %q", text),
			"Valid values are \"verbose\", \"info\", \"warning\", \"error\", or \"silent\".",
		)
	}
}

func ParseColor(text string) (api.StderrColor, *ErrorWithNote) {
	switch text {
	case "true":
		return api.ColorAlways, nil
	case "false":
		return api.ColorNever, nil
	default:
		return api.ColorIfTerminal, MakeErrorWithNote(
			fmt.Sprintf("Invalid color value: %q", text),
			"Valid values are \"true\" or \"false\".",
		)
	}
}

// ParsePositiveInt reads the value of a flag such as "--parallel=4"
func ParsePositiveInt(flag string, text string) (int, *ErrorWithNote) {
	value, err := strconv.Atoi(text)
	if err != nil || value < 1 {
		return 0, MakeErrorWithNote(
			fmt.Sprintf("Invalid value for %q: %q", flag, text),
			"The value must be a positive integer.",
		)
	}
	return value, nil
}
