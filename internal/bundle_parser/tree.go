package bundle_parser

// Generated bundles are parsed into a token tree instead of a full syntax
// tree. Every bracket pair becomes a group node holding the tokens between
// the brackets, so "the object literal bound to this variable" or "the
// arguments of this call" are just a node and its neighbors. That is all the
// structure registry detection and call-site scanning need, and it keeps the
// parser independent of most of the language grammar.

import (
	"github.com/sharedshake/sharedshake/internal/js_lexer"
	"github.com/sharedshake/sharedshake/internal/logger"
)

type node struct {
	parent   *node
	children []*node // Only for groups

	// For identifiers and keywords this is the name, for string literals and
	// template literals without substitutions this is the decoded value
	text string
	num  float64

	// For groups this is the opening token
	r          logger.Range
	closeRange logger.Range

	index            int // Position in the parent's children
	kind             js_lexer.T
	hasNewlineBefore bool
}

type comment struct {
	js_lexer.Comment

	// The innermost group that contains the comment
	group *node
}

func (n *node) isGroup() bool {
	switch n.kind {
	case js_lexer.TOpenParen, js_lexer.TOpenBracket, js_lexer.TOpenBrace, js_lexer.TTemplateHead:
		return true
	}
	return false
}

func (n *node) end() int32 {
	if n.isGroup() {
		return n.closeRange.End()
	}
	return n.r.End()
}

func (n *node) fullRange() logger.Range {
	return logger.Range{Loc: n.r.Loc, Len: n.end() - n.r.Loc.Start}
}

func (n *node) prev() *node {
	if n.parent == nil || n.index == 0 {
		return nil
	}
	return n.parent.children[n.index-1]
}

func (n *node) next() *node {
	if n.parent == nil || n.index+1 >= len(n.parent.children) {
		return nil
	}
	return n.parent.children[n.index+1]
}

func (n *node) isIdentifier(name string) bool {
	return n != nil && n.kind == js_lexer.TIdentifier && n.text == name
}

// Whether this token is the property name of a member access such as "a.b"
func (n *node) isPropertyName() bool {
	prev := n.prev()
	return prev != nil && (prev.kind == js_lexer.TDot || prev.kind == js_lexer.TQuestionDot)
}

func closingFor(kind js_lexer.T) js_lexer.T {
	switch kind {
	case js_lexer.TOpenParen:
		return js_lexer.TCloseParen
	case js_lexer.TOpenBracket:
		return js_lexer.TCloseBracket
	default:
		return js_lexer.TCloseBrace
	}
}

type treeParser struct {
	lexer    js_lexer.Lexer
	root     *node
	comments []comment
}

// This panics with "js_lexer.LexerPanic" after logging an error when the
// brackets don't balance or a token can't be scanned
func buildTree(log logger.Log, source logger.Source) (*node, []comment) {
	p := &treeParser{
		root: &node{kind: js_lexer.TEndOfFile},
	}
	p.lexer = js_lexer.NewLexer(log, source)
	p.parseChildren(p.root)
	return p.root, p.comments
}

func (p *treeParser) parseChildren(group *node) {
	for {
		for _, c := range p.lexer.CommentsBefore {
			p.comments = append(p.comments, comment{Comment: c, group: group})
		}

		switch p.lexer.Token {
		case js_lexer.TEndOfFile:
			if group != p.root {
				p.lexer.ExpectedClosing(closingFor(group.kind), group.r)
			}
			return

		case js_lexer.TCloseParen, js_lexer.TCloseBracket, js_lexer.TCloseBrace:
			// The caller consumes the closing token
			if group == p.root || p.lexer.Token != closingFor(group.kind) {
				p.lexer.Unexpected()
			}
			return

		case js_lexer.TOpenParen, js_lexer.TOpenBracket, js_lexer.TOpenBrace:
			n := p.appendToken(group)
			p.lexer.Next()
			p.parseChildren(n)
			n.closeRange = p.lexer.Range()
			p.lexer.Next()

		case js_lexer.TTemplateHead:
			// The substitutions all become children of the template node,
			// separated by the middle parts of the template
			n := p.appendToken(group)
			p.lexer.Next()
			for {
				p.parseChildren(n)
				p.lexer.RescanCloseBraceAsTemplateToken()
				if p.lexer.Token == js_lexer.TTemplateTail {
					n.closeRange = p.lexer.Range()
					p.lexer.Next()
					break
				}
				p.appendToken(n)
				p.lexer.Next()
			}

		case js_lexer.TSlash, js_lexer.TSlashEquals:
			if regExpAllowedAfter(lastChild(group)) {
				p.lexer.ScanRegExp()
			}
			p.appendToken(group)
			p.lexer.Next()

		case js_lexer.TSyntaxError:
			p.lexer.SyntaxError()

		default:
			p.appendToken(group)
			p.lexer.Next()
		}
	}
}

func (p *treeParser) appendToken(group *node) *node {
	n := &node{
		parent:           group,
		index:            len(group.children),
		kind:             p.lexer.Token,
		r:                p.lexer.Range(),
		hasNewlineBefore: p.lexer.HasNewlineBefore,
	}
	switch n.kind {
	case js_lexer.TStringLiteral, js_lexer.TNoSubstitutionTemplateLiteral:
		n.text = p.lexer.StringValue
	case js_lexer.TNumericLiteral:
		n.num = p.lexer.Number
	default:
		if p.lexer.IsIdentifierOrKeyword() {
			n.text = p.lexer.Identifier
		}
	}
	group.children = append(group.children, n)
	return n
}

func lastChild(group *node) *node {
	if len(group.children) == 0 {
		return nil
	}
	return group.children[len(group.children)-1]
}

// A "/" starts a regular expression unless it follows something that ends an
// expression. This only looks at the previous token, which is enough for the
// code bundlers generate.
func regExpAllowedAfter(prev *node) bool {
	if prev == nil {
		return true
	}

	switch prev.kind {
	case js_lexer.TIdentifier:
		// "await /x/" and "yield /x/" take an operand
		if (prev.text == "await" || prev.text == "yield") && !prev.isPropertyName() {
			return true
		}
		return false

	case js_lexer.TPrivateIdentifier,
		js_lexer.TNumericLiteral, js_lexer.TStringLiteral, js_lexer.TBigIntegerLiteral,
		js_lexer.TRegExp, js_lexer.TNoSubstitutionTemplateLiteral,
		js_lexer.TPlusPlus, js_lexer.TMinusMinus,
		js_lexer.TThis, js_lexer.TSuper, js_lexer.TNull, js_lexer.TTrue, js_lexer.TFalse,
		js_lexer.TOpenBracket, js_lexer.TTemplateHead:
		return false

	case js_lexer.TOpenParen:
		// The condition of "if (x) /re/.test(y)" is followed by a statement
		before := prev.prev()
		if before != nil && before.isIdentifier("await") {
			before = before.prev()
		}
		if before != nil {
			switch before.kind {
			case js_lexer.TIf, js_lexer.TWhile, js_lexer.TFor, js_lexer.TWith:
				return true
			}
		}
		return false

	case js_lexer.TOpenBrace:
		// A block statement is followed by a new statement, an object literal
		// by an operator
		before := prev.prev()
		if before == nil {
			return true
		}
		switch before.kind {
		case js_lexer.TOpenParen, js_lexer.TEqualsGreaterThan, js_lexer.TSemicolon,
			js_lexer.TElse, js_lexer.TTry, js_lexer.TFinally, js_lexer.TDo:
			return true
		}
		return false
	}

	// Keywords used as property names end an expression: "a.return / 2"
	if prev.kind >= js_lexer.TBreak && prev.isPropertyName() {
		return false
	}
	return true
}
