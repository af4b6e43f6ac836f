package logger_test

import (
	"testing"

	"github.com/sharedshake/sharedshake/internal/logger"
	"github.com/sharedshake/sharedshake/internal/test"
)

func TestMsgIDs(t *testing.T) {
	for id := logger.MsgID_None; id < logger.MsgID_END; id++ {
		str := logger.MsgIDToString(id)
		if str == "" {
			continue
		}

		back, ok := logger.StringToMsgID(str)
		if !ok {
			t.Fatalf("Failed to find message id for the string %q", str)
		}
		test.AssertEqual(t, back, id)
	}
}

func TestMsgStringWithSource(t *testing.T) {
	source := logger.Source{PrettyPath: "chunk.js", Contents: "var a = 1;\nvar b = /* @common:if */ 2;\n"}
	log := logger.NewDeferLog()
	log.AddError(&source, logger.Range{Loc: logger.Loc{Start: 19}, Len: 16}, "Unmatched marker")
	msgs := log.Done()
	test.AssertEqual(t, len(msgs), 1)

	text := msgs[0].String(logger.OutputOptions{IncludeSource: true}, logger.TerminalInfo{})
	test.AssertEqualWithDiff(t, text, `chunk.js:2:8: error: Unmatched marker
var b = /* @common:if */ 2;
        ~~~~~~~~~~~~~~~~
`)
}

func TestMsgStringWithoutSource(t *testing.T) {
	msg := logger.Msg{Kind: logger.Warning, Data: logger.MsgData{Text: "No entry points"}}
	test.AssertEqual(t, msg.String(logger.OutputOptions{}, logger.TerminalInfo{}), "warning: No entry points\n")
}

func TestLevelFiltering(t *testing.T) {
	log := logger.NewDeferLog()
	log.Level = logger.LevelWarning
	log.AddID(logger.MsgID_Timing, logger.Info, nil, logger.Range{}, "dropped")
	log.AddID(logger.MsgID_Shake_NoEntryPoints, logger.Warning, nil, logger.Range{}, "kept")
	msgs := log.Done()
	test.AssertEqual(t, len(msgs), 1)
	test.AssertEqual(t, msgs[0].Data.Text, "kept")
	test.AssertEqual(t, log.HasErrors(), false)
}

func TestMessagesSortByLocation(t *testing.T) {
	source := logger.Source{PrettyPath: "a.js", Contents: "x\ny\nz\n"}
	log := logger.NewDeferLog()
	log.AddError(&source, logger.Range{Loc: logger.Loc{Start: 4}}, "third")
	log.AddError(&source, logger.Range{Loc: logger.Loc{Start: 0}}, "first")
	log.AddError(nil, logger.Range{}, "no location")
	msgs := log.Done()
	test.AssertEqual(t, msgs[0].Data.Text, "no location")
	test.AssertEqual(t, msgs[1].Data.Text, "first")
	test.AssertEqual(t, msgs[2].Data.Text, "third")
	test.AssertEqual(t, log.HasErrors(), true)
}
