package js_lexer

// The lexer converts a bundle to a stream of tokens. Like a full JavaScript
// parser, the caller drives it one token at a time, because some tokens are
// context-sensitive: whether "/" starts a regular expression and whether "}"
// continues a template literal are decided by the caller, which then asks
// the lexer to rescan.
//
// Only what the bundle model needs is decoded. Identifiers are slices of the
// input, string literals are decoded to Go strings (module ids and property
// keys), and numbers are decoded to float64 so "12" and 12 name the same
// module. Every comment is kept with its range because conditional markers
// and module annotations live in comments.

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sharedshake/sharedshake/internal/logger"
)

type T uint8

// If you add a new token, remember to add it to "tokenToString" too
const (
	TEndOfFile T = iota
	TSyntaxError

	// "#!/usr/bin/env node"
	THashbang

	// Literals
	TNoSubstitutionTemplateLiteral // Contents are in lexer.StringValue
	TNumericLiteral                // Contents are in lexer.Number
	TStringLiteral                 // Contents are in lexer.StringValue
	TBigIntegerLiteral             // Contents are in lexer.Identifier
	TRegExp

	// Pseudo-literals
	TTemplateHead
	TTemplateMiddle
	TTemplateTail

	// Punctuation
	TBarBar
	TCloseBrace
	TCloseBracket
	TCloseParen
	TColon
	TComma
	TDot
	TDotDotDot
	TEquals
	TEqualsGreaterThan
	TMinusMinus
	TOpenBrace
	TOpenBracket
	TOpenParen
	TPlusPlus
	TQuestion
	TQuestionDot
	TSemicolon
	TSlash
	TSlashEquals

	// Every other operator. The bundle model never needs to tell them apart,
	// only to know that an expression continues after them.
	TOperator

	// Class-private fields and methods
	TPrivateIdentifier

	// Identifiers
	TIdentifier // Contents are in lexer.Identifier

	// Reserved words
	TBreak
	TCase
	TCatch
	TClass
	TConst
	TContinue
	TDebugger
	TDefault
	TDelete
	TDo
	TElse
	TEnum
	TExport
	TExtends
	TFalse
	TFinally
	TFor
	TFunction
	TIf
	TImport
	TIn
	TInstanceof
	TNew
	TNull
	TReturn
	TSuper
	TSwitch
	TThis
	TThrow
	TTrue
	TTry
	TTypeof
	TVar
	TVoid
	TWhile
	TWith
)

var Keywords = map[string]T{
	"break":      TBreak,
	"case":       TCase,
	"catch":      TCatch,
	"class":      TClass,
	"const":      TConst,
	"continue":   TContinue,
	"debugger":   TDebugger,
	"default":    TDefault,
	"delete":     TDelete,
	"do":         TDo,
	"else":       TElse,
	"enum":       TEnum,
	"export":     TExport,
	"extends":    TExtends,
	"false":      TFalse,
	"finally":    TFinally,
	"for":        TFor,
	"function":   TFunction,
	"if":         TIf,
	"import":     TImport,
	"in":         TIn,
	"instanceof": TInstanceof,
	"new":        TNew,
	"null":       TNull,
	"return":     TReturn,
	"super":      TSuper,
	"switch":     TSwitch,
	"this":       TThis,
	"throw":      TThrow,
	"true":       TTrue,
	"try":        TTry,
	"typeof":     TTypeof,
	"var":        TVar,
	"void":       TVoid,
	"while":      TWhile,
	"with":       TWith,
}

var tokenToString = map[T]string{
	TEndOfFile:   "end of file",
	TSyntaxError: "syntax error",
	THashbang:    "hashbang comment",

	TNoSubstitutionTemplateLiteral: "template literal",
	TNumericLiteral:                "number",
	TStringLiteral:                 "string",
	TBigIntegerLiteral:             "bigint",
	TRegExp:                        "regular expression",

	TTemplateHead:   "template literal",
	TTemplateMiddle: "template literal",
	TTemplateTail:   "template literal",

	TBarBar:            "\"||\"",
	TCloseBrace:        "\"}\"",
	TCloseBracket:      "\"]\"",
	TCloseParen:        "\")\"",
	TColon:             "\":\"",
	TComma:             "\",\"",
	TDot:               "\".\"",
	TDotDotDot:         "\"...\"",
	TEquals:            "\"=\"",
	TEqualsGreaterThan: "\"=>\"",
	TMinusMinus:        "\"--\"",
	TOpenBrace:         "\"{\"",
	TOpenBracket:       "\"[\"",
	TOpenParen:         "\"(\"",
	TPlusPlus:          "\"++\"",
	TQuestion:          "\"?\"",
	TQuestionDot:       "\"?.\"",
	TSemicolon:         "\";\"",
	TSlash:             "\"/\"",
	TSlashEquals:       "\"/=\"",
	TOperator:          "operator",

	TPrivateIdentifier: "private identifier",
	TIdentifier:        "identifier",
}

func (t T) String() string {
	if text, ok := tokenToString[t]; ok {
		return text
	}
	for name, keyword := range Keywords {
		if keyword == t {
			return fmt.Sprintf("%q", name)
		}
	}
	return "token"
}

type Comment struct {
	Text    string
	Range   logger.Range
	IsBlock bool
}

type Lexer struct {
	log              logger.Log
	source           logger.Source
	current          int
	start            int
	end              int
	Token            T
	HasNewlineBefore bool
	codePoint        rune
	Identifier       string
	StringValue      string
	Number           float64

	// Comments between the previous token and the current one, in order
	CommentsBefore []Comment

	rescanCloseBraceAsTemplateToken bool
}

type LexerPanic struct{}

func NewLexer(log logger.Log, source logger.Source) Lexer {
	lexer := Lexer{
		log:    log,
		source: source,
	}
	lexer.step()
	lexer.Next()
	return lexer
}

func (lexer *Lexer) Loc() logger.Loc {
	return logger.Loc{Start: int32(lexer.start)}
}

func (lexer *Lexer) Range() logger.Range {
	return logger.Range{Loc: logger.Loc{Start: int32(lexer.start)}, Len: int32(lexer.end - lexer.start)}
}

func (lexer *Lexer) Raw() string {
	return lexer.source.Contents[lexer.start:lexer.end]
}

func (lexer *Lexer) IsIdentifierOrKeyword() bool {
	return lexer.Token >= TIdentifier
}

func (lexer *Lexer) SyntaxError() {
	loc := logger.Loc{Start: int32(lexer.end)}
	message := "Unexpected end of file"
	if lexer.end < len(lexer.source.Contents) {
		c, _ := utf8.DecodeRuneInString(lexer.source.Contents[lexer.end:])
		if c < 0x20 {
			message = fmt.Sprintf("Syntax error \"\\x%02X\"", c)
		} else if c >= 0x80 {
			message = fmt.Sprintf("Syntax error \"\\u{%x}\"", c)
		} else if c != '"' {
			message = fmt.Sprintf("Syntax error \"%c\"", c)
		} else {
			message = "Syntax error '\"'"
		}
	}
	lexer.addRangeError(logger.Range{Loc: loc}, message)
	panic(LexerPanic{})
}

func (lexer *Lexer) Unexpected() {
	found := fmt.Sprintf("%q", lexer.Raw())
	if lexer.start == len(lexer.source.Contents) {
		found = "end of file"
	}
	lexer.addRangeError(lexer.Range(), fmt.Sprintf("Unexpected %s", found))
	panic(LexerPanic{})
}

// ExpectedClosing reports a bracket that was never closed. The note points at
// the opening bracket, which is usually far away in a generated bundle.
func (lexer *Lexer) ExpectedClosing(token T, openRange logger.Range) {
	found := fmt.Sprintf("%q", lexer.Raw())
	if lexer.start == len(lexer.source.Contents) {
		found = "end of file"
	}
	lexer.log.AddMsg(logger.Msg{
		Kind: logger.Error,
		Data: logger.MsgData{
			Text:     fmt.Sprintf("Expected %s but found %s", token, found),
			Location: logger.LocationOrNil(&lexer.source, lexer.Range()),
		},
		Notes: []logger.MsgData{{
			Text:     "The unbalanced opening bracket is here:",
			Location: logger.LocationOrNil(&lexer.source, openRange),
		}},
	})
	panic(LexerPanic{})
}

func IsIdentifierStart(codePoint rune) bool {
	switch codePoint {
	case '_', '$',
		'a', 'b', 'c', 'd', 'e', 'f', 'g', 'h', 'i', 'j', 'k', 'l', 'm',
		'n', 'o', 'p', 'q', 'r', 's', 't', 'u', 'v', 'w', 'x', 'y', 'z',
		'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L', 'M',
		'N', 'O', 'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X', 'Y', 'Z':
		return true
	}

	// All ASCII identifier start code points are listed above
	if codePoint < 0x7F {
		return false
	}

	return unicode.IsLetter(codePoint) || unicode.Is(unicode.Nl, codePoint)
}

func IsIdentifierContinue(codePoint rune) bool {
	switch codePoint {
	case '_', '$', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9',
		'a', 'b', 'c', 'd', 'e', 'f', 'g', 'h', 'i', 'j', 'k', 'l', 'm',
		'n', 'o', 'p', 'q', 'r', 's', 't', 'u', 'v', 'w', 'x', 'y', 'z',
		'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L', 'M',
		'N', 'O', 'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X', 'Y', 'Z':
		return true
	}

	// All ASCII identifier continue code points are listed above
	if codePoint < 0x7F {
		return false
	}

	// ZWNJ and ZWJ are allowed in identifiers
	if codePoint == 0x200C || codePoint == 0x200D {
		return true
	}

	return unicode.IsLetter(codePoint) || unicode.IsDigit(codePoint) ||
		unicode.In(codePoint, unicode.Mn, unicode.Mc, unicode.Nd, unicode.Pc, unicode.Nl)
}

func IsIdentifier(text string) bool {
	if len(text) == 0 {
		return false
	}
	for i, codePoint := range text {
		if i == 0 {
			if !IsIdentifierStart(codePoint) {
				return false
			}
		} else if !IsIdentifierContinue(codePoint) {
			return false
		}
	}
	return Keywords[text] == 0
}

// See the "White Space Code Points" table in the ECMAScript standard
func IsWhitespace(codePoint rune) bool {
	switch codePoint {
	case
		'\u0009', // character tabulation
		'\u000B', // line tabulation
		'\u000C', // form feed
		'\u0020', // space
		'\u00A0', // no-break space
		'\uFEFF': // zero width non-breaking space
		return true
	}
	return codePoint > 0x7F && unicode.Is(unicode.Zs, codePoint)
}

func (lexer *Lexer) Next() {
	lexer.HasNewlineBefore = lexer.end == 0
	lexer.CommentsBefore = nil

	for {
		lexer.start = lexer.end
		lexer.Token = 0

		switch lexer.codePoint {
		case -1: // This indicates the end of the file
			lexer.Token = TEndOfFile

		case '#':
			if lexer.start == 0 && strings.HasPrefix(lexer.source.Contents, "#!") {
				// "#!/usr/bin/env node"
				lexer.Token = THashbang
			hashbang:
				for {
					lexer.step()
					switch lexer.codePoint {
					case '\r', '\n', '\u2028', '\u2029', -1:
						break hashbang
					}
				}
				lexer.Identifier = lexer.Raw()
				continue
			}

			// "#foo"
			lexer.step()
			if !IsIdentifierStart(lexer.codePoint) {
				lexer.SyntaxError()
			}
			lexer.step()
			for IsIdentifierContinue(lexer.codePoint) {
				lexer.step()
			}
			lexer.Identifier = lexer.Raw()
			lexer.Token = TPrivateIdentifier

		case '\r', '\n', '\u2028', '\u2029':
			lexer.step()
			lexer.HasNewlineBefore = true
			continue

		case '\t', ' ':
			lexer.step()
			continue

		case '(':
			lexer.step()
			lexer.Token = TOpenParen

		case ')':
			lexer.step()
			lexer.Token = TCloseParen

		case '[':
			lexer.step()
			lexer.Token = TOpenBracket

		case ']':
			lexer.step()
			lexer.Token = TCloseBracket

		case '{':
			lexer.step()
			lexer.Token = TOpenBrace

		case '}':
			lexer.step()
			lexer.Token = TCloseBrace

		case ',':
			lexer.step()
			lexer.Token = TComma

		case ':':
			lexer.step()
			lexer.Token = TColon

		case ';':
			lexer.step()
			lexer.Token = TSemicolon

		case '@', '~':
			lexer.step()
			lexer.Token = TOperator

		case '?':
			// '?' or '?.' or '??' or '??='
			lexer.step()
			switch lexer.codePoint {
			case '?':
				lexer.step()
				if lexer.codePoint == '=' {
					lexer.step()
				}
				lexer.Token = TOperator
			case '.':
				lexer.Token = TQuestion

				// Lookahead to disambiguate with 'a?.1:b'
				if lexer.current < len(lexer.source.Contents) {
					if c := lexer.source.Contents[lexer.current]; c < '0' || c > '9' {
						lexer.step()
						lexer.Token = TQuestionDot
					}
				}
			default:
				lexer.Token = TQuestion
			}

		case '%', '^':
			// '%' or '%=' or '^' or '^='
			lexer.step()
			if lexer.codePoint == '=' {
				lexer.step()
			}
			lexer.Token = TOperator

		case '&':
			// '&' or '&=' or '&&' or '&&='
			lexer.step()
			switch lexer.codePoint {
			case '=':
				lexer.step()
			case '&':
				lexer.step()
				if lexer.codePoint == '=' {
					lexer.step()
				}
			}
			lexer.Token = TOperator

		case '|':
			// '|' or '|=' or '||' or '||='
			lexer.step()
			lexer.Token = TOperator
			switch lexer.codePoint {
			case '=':
				lexer.step()
			case '|':
				lexer.step()
				if lexer.codePoint == '=' {
					lexer.step()
				} else {
					lexer.Token = TBarBar
				}
			}

		case '+', '-':
			// '+' or '+=' or '++', and the same for '-'
			c := lexer.codePoint
			lexer.step()
			lexer.Token = TOperator
			switch lexer.codePoint {
			case '=':
				lexer.step()
			case c:
				lexer.step()
				if c == '+' {
					lexer.Token = TPlusPlus
				} else {
					lexer.Token = TMinusMinus
				}
			}

		case '*':
			// '*' or '*=' or '**' or '**='
			lexer.step()
			if lexer.codePoint == '*' {
				lexer.step()
			}
			if lexer.codePoint == '=' {
				lexer.step()
			}
			lexer.Token = TOperator

		case '/':
			// '/' or '/=' or '//' or '/* ... */'
			lexer.step()
			switch lexer.codePoint {
			case '=':
				lexer.step()
				lexer.Token = TSlashEquals

			case '/':
			singleLineComment:
				for {
					lexer.step()
					switch lexer.codePoint {
					case '\r', '\n', '\u2028', '\u2029', -1:
						break singleLineComment
					}
				}
				lexer.addComment(false)
				continue

			case '*':
				lexer.step()
			multiLineComment:
				for {
					switch lexer.codePoint {
					case '*':
						lexer.step()
						if lexer.codePoint == '/' {
							lexer.step()
							break multiLineComment
						}

					case '\r', '\n', '\u2028', '\u2029':
						lexer.step()
						lexer.HasNewlineBefore = true

					case -1: // This indicates the end of the file
						lexer.addRangeError(logger.Range{Loc: lexer.Loc(), Len: 2}, "Expected \"*/\" to terminate multi-line comment")
						panic(LexerPanic{})

					default:
						lexer.step()
					}
				}
				lexer.addComment(true)
				continue

			default:
				lexer.Token = TSlash
			}

		case '=':
			// '=' or '=>' or '==' or '==='
			lexer.step()
			switch lexer.codePoint {
			case '>':
				lexer.step()
				lexer.Token = TEqualsGreaterThan
			case '=':
				lexer.step()
				if lexer.codePoint == '=' {
					lexer.step()
				}
				lexer.Token = TOperator
			default:
				lexer.Token = TEquals
			}

		case '<', '>':
			// '<' '<=' '<<' '<<=' '>' '>=' '>>' '>>=' '>>>' '>>>='
			c := lexer.codePoint
			lexer.step()
			for i := 0; i < 2 && lexer.codePoint == c; i++ {
				if c == '<' && i == 1 {
					break
				}
				lexer.step()
			}
			if lexer.codePoint == '=' {
				lexer.step()
			}
			lexer.Token = TOperator

		case '!':
			// '!' or '!=' or '!=='
			lexer.step()
			if lexer.codePoint == '=' {
				lexer.step()
				if lexer.codePoint == '=' {
					lexer.step()
				}
			}
			lexer.Token = TOperator

		case '\'', '"', '`':
			lexer.scanStringOrTemplate()

		case '_', '$',
			'a', 'b', 'c', 'd', 'e', 'f', 'g', 'h', 'i', 'j', 'k', 'l', 'm',
			'n', 'o', 'p', 'q', 'r', 's', 't', 'u', 'v', 'w', 'x', 'y', 'z',
			'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L', 'M',
			'N', 'O', 'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X', 'Y', 'Z',
			'\\':
			lexer.scanIdentifier()

		case '.', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
			lexer.parseNumericLiteralOrDot()

		default:
			// Check for unusual whitespace characters
			if IsWhitespace(lexer.codePoint) {
				lexer.step()
				continue
			}

			if IsIdentifierStart(lexer.codePoint) {
				lexer.scanIdentifier()
				break
			}

			lexer.end = lexer.current
			lexer.Token = TSyntaxError
		}

		return
	}
}

func (lexer *Lexer) scanIdentifier() {
	for {
		if lexer.codePoint == '\\' {
			// "\u0061" or "\u{61}"
			lexer.step()
			if lexer.codePoint != 'u' {
				lexer.SyntaxError()
			}
			lexer.step()
			if lexer.codePoint == '{' {
				for lexer.codePoint != '}' {
					if lexer.codePoint == -1 {
						lexer.SyntaxError()
					}
					lexer.step()
				}
				lexer.step()
			} else {
				for i := 0; i < 4; i++ {
					if !isHexDigit(lexer.codePoint) {
						lexer.SyntaxError()
					}
					lexer.step()
				}
			}
			continue
		}
		if !IsIdentifierContinue(lexer.codePoint) {
			break
		}
		lexer.step()
	}

	contents := lexer.Raw()
	if strings.IndexByte(contents, '\\') != -1 {
		// An escaped keyword is just an identifier
		lexer.Identifier = decodeEscapeSequences(contents)
		lexer.Token = TIdentifier
		return
	}
	lexer.Identifier = contents
	lexer.Token = Keywords[contents]
	if lexer.Token == 0 {
		lexer.Token = TIdentifier
	}
}

func (lexer *Lexer) scanStringOrTemplate() {
	quote := lexer.codePoint
	needsSlowPath := false
	suffixLen := 1

	if quote != '`' {
		lexer.Token = TStringLiteral
	} else if lexer.rescanCloseBraceAsTemplateToken {
		lexer.Token = TTemplateTail
	} else {
		lexer.Token = TNoSubstitutionTemplateLiteral
	}
	lexer.step()

stringLiteral:
	for {
		switch lexer.codePoint {
		case '\\':
			needsSlowPath = true
			lexer.step()

			// Handle Windows CRLF
			if lexer.codePoint == '\r' {
				lexer.step()
				if lexer.codePoint == '\n' {
					lexer.step()
				}
				continue
			}

		case -1: // This indicates the end of the file
			lexer.addRangeError(logger.Range{Loc: lexer.Loc()}, "Unterminated string literal")
			panic(LexerPanic{})

		case '\r', '\n':
			if quote != '`' {
				lexer.addRangeError(logger.Range{Loc: logger.Loc{Start: int32(lexer.end)}}, "Unterminated string literal")
				panic(LexerPanic{})
			}

		case '$':
			if quote == '`' {
				lexer.step()
				if lexer.codePoint == '{' {
					suffixLen = 2
					lexer.step()
					if lexer.rescanCloseBraceAsTemplateToken {
						lexer.Token = TTemplateMiddle
					} else {
						lexer.Token = TTemplateHead
					}
					break stringLiteral
				}
				continue stringLiteral
			}

		case quote:
			lexer.step()
			break stringLiteral
		}
		lexer.step()
	}

	text := lexer.source.Contents[lexer.start+1 : lexer.end-suffixLen]
	if needsSlowPath {
		lexer.StringValue = decodeEscapeSequences(text)
	} else {
		lexer.StringValue = text
	}
}

func (lexer *Lexer) parseNumericLiteralOrDot() {
	// Number or dot
	first := lexer.codePoint
	lexer.step()

	// Dot without a digit after it
	if first == '.' && (lexer.codePoint < '0' || lexer.codePoint > '9') {
		// "..."
		if lexer.codePoint == '.' && lexer.current < len(lexer.source.Contents) &&
			lexer.source.Contents[lexer.current] == '.' {
			lexer.step()
			lexer.step()
			lexer.Token = TDotDotDot
			return
		}

		// "."
		lexer.Token = TDot
		return
	}

	// Scan the whole literal first and decode it afterward. An exponent sign is
	// the only character that can't appear anywhere else in a number.
	for {
		c := lexer.codePoint
		if c == 'e' || c == 'E' {
			lexer.step()
			if lexer.codePoint == '+' || lexer.codePoint == '-' {
				raw := lexer.Raw()
				if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
					lexer.step()
				}
			}
			continue
		}
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '.' || c == '_' {
			lexer.step()
			continue
		}
		break
	}

	raw := lexer.Raw()
	if strings.HasSuffix(raw, "n") && !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
		lexer.Identifier = raw
		lexer.Token = TBigIntegerLiteral
		return
	}

	value, ok := ParseNumber(raw)
	if !ok {
		lexer.addRangeError(lexer.Range(), fmt.Sprintf("Invalid number %q", raw))
		panic(LexerPanic{})
	}
	lexer.Number = value
	lexer.Token = TNumericLiteral

	// An identifier can't immediately follow a number
	if IsIdentifierStart(lexer.codePoint) {
		lexer.SyntaxError()
	}
}

// ParseNumber decodes the text of a numeric literal. Module ids in
// production bundles are plain integers, but any literal form is accepted.
func ParseNumber(raw string) (float64, bool) {
	text := strings.ReplaceAll(raw, "_", "")
	if len(text) > 2 && text[0] == '0' {
		base := 0
		switch text[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			value, err := strconv.ParseUint(text[2:], base, 64)
			return float64(value), err == nil
		}

		// Legacy octal "0777"
		if value, err := strconv.ParseUint(text[1:], 8, 64); err == nil {
			return float64(value), true
		}
	}
	value, err := strconv.ParseFloat(text, 64)
	return value, err == nil
}

func (lexer *Lexer) ScanRegExp() {
	validateAndStep := func() {
		if lexer.codePoint == '\\' {
			lexer.step()
		}

		switch lexer.codePoint {
		case '\r', '\n', 0x2028, 0x2029, -1:
			// Newlines aren't allowed in regular expressions
			lexer.SyntaxError()

		default:
			lexer.step()
		}
	}

	for {
		switch lexer.codePoint {
		case '/':
			lexer.step()
			for IsIdentifierContinue(lexer.codePoint) {
				switch lexer.codePoint {
				case 'd', 'g', 'i', 'm', 's', 'u', 'v', 'y':
					lexer.step()

				default:
					lexer.SyntaxError()
				}
			}
			lexer.Token = TRegExp
			return

		case '[':
			lexer.step()
			for lexer.codePoint != ']' {
				validateAndStep()
			}
			lexer.step()

		default:
			validateAndStep()
		}
	}
}

func (lexer *Lexer) RescanCloseBraceAsTemplateToken() {
	if lexer.Token != TCloseBrace {
		lexer.Unexpected()
	}

	lexer.rescanCloseBraceAsTemplateToken = true
	lexer.codePoint = '`'
	lexer.current = lexer.end
	lexer.end -= 1
	lexer.Next()
	lexer.rescanCloseBraceAsTemplateToken = false
}

func (lexer *Lexer) step() {
	codePoint, width := utf8.DecodeRuneInString(lexer.source.Contents[lexer.current:])

	// Use -1 to indicate the end of the file
	if width == 0 {
		codePoint = -1
	}

	lexer.codePoint = codePoint
	lexer.end = lexer.current
	lexer.current += width
}

func (lexer *Lexer) addComment(isBlock bool) {
	lexer.CommentsBefore = append(lexer.CommentsBefore, Comment{
		Text:    lexer.source.Contents[lexer.start:lexer.end],
		Range:   lexer.Range(),
		IsBlock: isBlock,
	})
}

func (lexer *Lexer) addRangeError(r logger.Range, text string) {
	lexer.log.AddError(&lexer.source, r, text)
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// Escapes are rare in generated module ids, so this is the slow path only
func decodeEscapeSequences(text string) string {
	var sb strings.Builder
	i := 0
	for i < len(text) {
		c := text[i]
		if c != '\\' || i+1 >= len(text) {
			sb.WriteByte(c)
			i++
			continue
		}
		i++
		c = text[i]
		i++
		switch c {
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'v':
			sb.WriteByte('\v')
		case '0':
			sb.WriteByte(0)

		case '\r':
			// Line continuation, including Windows CRLF
			if i < len(text) && text[i] == '\n' {
				i++
			}
		case '\n':
			// Line continuation

		case 'x':
			if i+2 <= len(text) {
				if value, err := strconv.ParseUint(text[i:i+2], 16, 8); err == nil {
					sb.WriteRune(rune(value))
					i += 2
					continue
				}
			}
			sb.WriteByte('x')

		case 'u':
			if i < len(text) && text[i] == '{' {
				if end := strings.IndexByte(text[i:], '}'); end != -1 {
					if value, err := strconv.ParseUint(text[i+1:i+end], 16, 32); err == nil {
						sb.WriteRune(rune(value))
						i += end + 1
						continue
					}
				}
			} else if i+4 <= len(text) {
				if value, err := strconv.ParseUint(text[i:i+4], 16, 16); err == nil {
					sb.WriteRune(rune(value))
					i += 4
					continue
				}
			}
			sb.WriteByte('u')

		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
