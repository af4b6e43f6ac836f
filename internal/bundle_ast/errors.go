package bundle_ast

import (
	"fmt"

	"github.com/sharedshake/sharedshake/internal/logger"
)

// An opener without a closer, a closer without an opener, a nested opener,
// an opener with an unreadable condition, or a region that crosses a bracket
type MalformedMarkerError struct {
	Text     string
	Location *logger.MsgLocation
	Range    logger.Range
}

func (err *MalformedMarkerError) Error() string {
	return formatError(err.Location, err.Text)
}

func (err *MalformedMarkerError) Msg() logger.Msg {
	return logger.Msg{Kind: logger.Error, Data: logger.MsgData{Text: err.Text, Location: err.Location}}
}

// The text doesn't parse. "IsOutput" is set when the text was produced by a
// rewrite, which means a bug or a marker placed somewhere it can't be
// removed from.
type UnparsableInputError struct {
	Text     string
	Location *logger.MsgLocation
	Range    logger.Range
	IsOutput bool
}

func (err *UnparsableInputError) Error() string {
	if err.IsOutput {
		return formatError(err.Location, "Rewritten output does not parse: "+err.Text)
	}
	return formatError(err.Location, err.Text)
}

func (err *UnparsableInputError) Msg() logger.Msg {
	text := err.Text
	if err.IsOutput {
		text = "Rewritten output does not parse: " + text
	}
	return logger.Msg{Kind: logger.Error, Data: logger.MsgData{Text: text, Location: err.Location}}
}

func formatError(location *logger.MsgLocation, text string) string {
	if location == nil {
		return text
	}
	return fmt.Sprintf("%s:%d:%d: %s", location.File, location.Line, location.Column, text)
}
