package js_lexer

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sharedshake/sharedshake/internal/logger"
	"github.com/sharedshake/sharedshake/internal/test"
)

func lexToken(t *testing.T, contents string) T {
	t.Helper()
	log := logger.NewDeferLog()
	lexer := NewLexer(log, test.SourceForTest(contents))
	return lexer.Token
}

func expectLexerError(t *testing.T, contents string, expected string) {
	t.Helper()
	t.Run(contents, func(t *testing.T) {
		t.Helper()
		log := logger.NewDeferLog()
		func() {
			defer func() {
				r := recover()
				if _, isLexerPanic := r.(LexerPanic); r != nil && !isLexerPanic {
					panic(r)
				}
			}()
			lexer := NewLexer(log, test.SourceForTest(contents))
			for lexer.Token != TEndOfFile {
				lexer.Next()
			}
		}()
		msgs := log.Done()
		text := ""
		for _, msg := range msgs {
			text += msg.String(logger.OutputOptions{}, logger.TerminalInfo{})
		}
		test.AssertEqual(t, text, expected)
	})
}

func lexAll(t *testing.T, contents string) []T {
	t.Helper()
	log := logger.NewDeferLog()
	lexer := NewLexer(log, test.SourceForTest(contents))
	var tokens []T
	for lexer.Token != TEndOfFile {
		tokens = append(tokens, lexer.Token)
		lexer.Next()
	}
	return tokens
}

func TestComment(t *testing.T) {
	expectLexerError(t, "/*", "<stdin>: error: Expected \"*/\" to terminate multi-line comment\n")
	expectLexerError(t, "/*/", "<stdin>: error: Expected \"*/\" to terminate multi-line comment\n")
	expectLexerError(t, "/**/", "")
	expectLexerError(t, "//", "")
}

func TestCommentsBefore(t *testing.T) {
	source := test.SourceForTest("a /* @common:if [condition=\"x.y\"] */ // tail\nb")
	lexer := NewLexer(logger.NewDeferLog(), source)
	test.AssertEqual(t, lexer.Token, TIdentifier)
	test.AssertEqual(t, len(lexer.CommentsBefore), 0)

	lexer.Next()
	test.AssertEqual(t, lexer.Token, TIdentifier)
	test.AssertEqual(t, lexer.Identifier, "b")
	test.AssertEqual(t, lexer.HasNewlineBefore, true)
	test.AssertEqual(t, len(lexer.CommentsBefore), 2)

	block := lexer.CommentsBefore[0]
	test.AssertEqual(t, block.IsBlock, true)
	test.AssertEqual(t, block.Text, "/* @common:if [condition=\"x.y\"] */")
	test.AssertEqual(t, source.TextForRange(block.Range), block.Text)

	line := lexer.CommentsBefore[1]
	test.AssertEqual(t, line.IsBlock, false)
	test.AssertEqual(t, line.Text, "// tail")
}

func TestHashbang(t *testing.T) {
	test.AssertEqual(t, lexToken(t, "#!/usr/bin/env node\nx"), TIdentifier)
	test.AssertEqual(t, lexToken(t, "#!"), TEndOfFile)
	expectLexerError(t, " #!", "<stdin>: error: Syntax error \"!\"\n")
}

func TestIdentifier(t *testing.T) {
	expectIdentifier := func(contents string, expected string) {
		t.Helper()
		lexer := NewLexer(logger.NewDeferLog(), test.SourceForTest(contents))
		test.AssertEqual(t, lexer.Token, TIdentifier)
		test.AssertEqual(t, lexer.Identifier, expected)
	}

	expectIdentifier("_", "_")
	expectIdentifier("$", "$")
	expectIdentifier("__webpack_require__", "__webpack_require__")
	expectIdentifier("\\u0061b", "ab")
	expectIdentifier("\\u{61}b", "ab")
	expectIdentifier("\\u0076ar", "var")
	expectIdentifier("ünïcödé", "ünïcödé")

	test.AssertEqual(t, lexToken(t, "var"), TVar)
	test.AssertEqual(t, lexToken(t, "function"), TFunction)
	test.AssertEqual(t, lexToken(t, "typeof"), TTypeof)
	test.AssertEqual(t, lexToken(t, "#priv"), TPrivateIdentifier)

	test.AssertEqual(t, IsIdentifier("exports"), true)
	test.AssertEqual(t, IsIdentifier("default"), false)
	test.AssertEqual(t, IsIdentifier("1a"), false)
	test.AssertEqual(t, IsIdentifier(""), false)
}

func TestNumericLiteral(t *testing.T) {
	expectNumber := func(contents string, expected float64) {
		t.Helper()
		lexer := NewLexer(logger.NewDeferLog(), test.SourceForTest(contents))
		test.AssertEqual(t, lexer.Token, TNumericLiteral)
		test.AssertEqual(t, lexer.Number, expected)
	}

	expectNumber("0", 0)
	expectNumber("123", 123)
	expectNumber("1_000", 1000)
	expectNumber("0x1F", 31)
	expectNumber("0o17", 15)
	expectNumber("0b101", 5)
	expectNumber("017", 15)
	expectNumber("1.5", 1.5)
	expectNumber(".5", 0.5)
	expectNumber("1e3", 1000)
	expectNumber("1e+3", 1000)
	expectNumber("25e-1", 2.5)

	test.AssertEqual(t, lexToken(t, "10n"), TBigIntegerLiteral)
	expectLexerError(t, "1x", "<stdin>: error: Invalid number \"1x\"\n")
	expectLexerError(t, "0b2", "<stdin>: error: Invalid number \"0b2\"\n")
}

func TestStringLiteral(t *testing.T) {
	expectString := func(contents string, expected string) {
		t.Helper()
		lexer := NewLexer(logger.NewDeferLog(), test.SourceForTest(contents))
		test.AssertEqual(t, lexer.Token, TStringLiteral)
		test.AssertEqual(t, lexer.StringValue, expected)
	}

	expectString("''", "")
	expectString("'./src/index.js'", "./src/index.js")
	expectString("\"a\\\"b\"", "a\"b")
	expectString("'\\x41'", "A")
	expectString("'\\u0041'", "A")
	expectString("'\\u{1F600}'", "\U0001F600")
	expectString("'a\\\nb'", "ab")
	expectString("'\\n\\t'", "\n\t")

	expectLexerError(t, "'abc", "<stdin>: error: Unterminated string literal\n")
	expectLexerError(t, "'a\nb'", "<stdin>: error: Unterminated string literal\n")
}

func TestTemplate(t *testing.T) {
	test.AssertEqual(t, lexToken(t, "`abc`"), TNoSubstitutionTemplateLiteral)
	test.AssertEqual(t, lexToken(t, "`a${"), TTemplateHead)

	log := logger.NewDeferLog()
	lexer := NewLexer(log, test.SourceForTest("`a${b}c${d}e`"))
	test.AssertEqual(t, lexer.Token, TTemplateHead)
	lexer.Next()
	test.AssertEqual(t, lexer.Token, TIdentifier)
	lexer.Next()
	lexer.RescanCloseBraceAsTemplateToken()
	test.AssertEqual(t, lexer.Token, TTemplateMiddle)
	test.AssertEqual(t, lexer.StringValue, "c")
	lexer.Next()
	lexer.Next()
	lexer.RescanCloseBraceAsTemplateToken()
	test.AssertEqual(t, lexer.Token, TTemplateTail)
	test.AssertEqual(t, lexer.StringValue, "e")
	lexer.Next()
	test.AssertEqual(t, lexer.Token, TEndOfFile)
}

func TestRegExp(t *testing.T) {
	expectRegExp := func(contents string, raw string) {
		t.Helper()
		lexer := NewLexer(logger.NewDeferLog(), test.SourceForTest(contents))
		test.AssertEqual(t, lexer.Token, TSlash)
		lexer.ScanRegExp()
		test.AssertEqual(t, lexer.Token, TRegExp)
		test.AssertEqual(t, lexer.Raw(), raw)
	}

	expectRegExp("/x/", "/x/")
	expectRegExp("/x/gimsuy;", "/x/gimsuy")
	expectRegExp("/[/]*/ + 1", "/[/]*/")
	expectRegExp("/\\//g", "/\\//g")
}

func TestPunctuation(t *testing.T) {
	if diff := cmp.Diff([]T{TIdentifier, TBarBar, TIdentifier}, lexAll(t, "a || b")); diff != "" {
		t.Fatal(diff)
	}
	test.AssertEqual(t, len(lexAll(t, "a ||= b")), 3)
	test.AssertEqual(t, lexAll(t, "a ||= b")[1], TOperator)
	test.AssertEqual(t, lexAll(t, "(a) => a")[3], TEqualsGreaterThan)
	test.AssertEqual(t, lexAll(t, "a?.b")[1], TQuestionDot)
	test.AssertEqual(t, lexAll(t, "a?.1:b")[1], TQuestion)
	test.AssertEqual(t, lexAll(t, "...a")[0], TDotDotDot)
	test.AssertEqual(t, lexAll(t, "a++")[1], TPlusPlus)
	test.AssertEqual(t, lexAll(t, "a--")[1], TMinusMinus)
	test.AssertEqual(t, lexAll(t, "a >>>= b")[1], TOperator)
	test.AssertEqual(t, len(lexAll(t, "a >>>= b")), 3)
	test.AssertEqual(t, lexAll(t, "a /= b")[1], TSlashEquals)
}
