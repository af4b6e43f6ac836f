package bundle_parser

import (
	"fmt"
	"strings"

	"github.com/sharedshake/sharedshake/internal/bundle_ast"
	"github.com/sharedshake/sharedshake/internal/js_lexer"
	"github.com/sharedshake/sharedshake/internal/logger"
)

// Runtime helpers that call a module by id in every bundle the registry
// shapes come from. Each factory's own require parameter and every function
// that indexes the registry variable are added per bundle.
var wellKnownRequireNames = []string{
	"__webpack_require__",
	"__webpack_exec__",
}

type property struct {
	key   *node
	value []*node

	// The "," after this property, or nil
	comma *node

	// The ":" between key and value
	colon *node
}

type factory struct {
	params []string

	// The tokens of the function body. For a block body this is the single
	// brace group, for an expression body it's every token of the expression.
	body []*node
}

type candidate struct {
	object     *node
	properties []property
	factories  []factory
	shape      bundle_ast.RegistryShape
	name       string
	strong     bool
}

// Splits the children of a group at its top-level commas
func splitByComma(nodes []*node) (segments [][]*node, commas []*node) {
	start := 0
	for i, n := range nodes {
		if n.kind == js_lexer.TComma {
			segments = append(segments, nodes[start:i])
			commas = append(commas, n)
			start = i + 1
		}
	}
	segments = append(segments, nodes[start:])
	return
}

// Returns the properties of an object literal if every property has a plain
// key and an explicit value
func parseProperties(object *node) ([]property, bool) {
	segments, commas := splitByComma(object.children)
	var properties []property
	for i, segment := range segments {
		if len(segment) == 0 {
			// Only a trailing comma may produce an empty segment
			if i == len(segments)-1 && i > 0 {
				break
			}
			if len(segments) == 1 {
				return nil, true
			}
			return nil, false
		}
		if len(segment) < 3 || segment[1].kind != js_lexer.TColon {
			return nil, false
		}
		key := segment[0]
		switch {
		case key.kind == js_lexer.TStringLiteral, key.kind == js_lexer.TNumericLiteral:
		case key.kind >= js_lexer.TIdentifier:
		default:
			return nil, false
		}
		prop := property{key: key, colon: segment[1], value: segment[2:]}
		if i < len(commas) {
			prop.comma = commas[i]
		}
		properties = append(properties, prop)
	}
	return properties, true
}

func propertyKeyID(key *node) string {
	if key.kind == js_lexer.TNumericLiteral {
		return bundle_ast.NormalizeNumericID(key.num)
	}
	return key.text
}

func parseFactory(value []*node) (factory, bool) {
	// "(function(module) { ... })"
	if len(value) == 1 && value[0].kind == js_lexer.TOpenParen {
		if f, ok := parseFactory(value[0].children); ok {
			return f, true
		}
	}

	if len(value) == 0 {
		return factory{}, false
	}

	// "function name?(module, exports, require) { ... }"
	if value[0].kind == js_lexer.TFunction {
		rest := value[1:]
		if len(rest) > 0 && rest[0].kind == js_lexer.TIdentifier {
			rest = rest[1:]
		}
		if len(rest) == 2 && rest[0].kind == js_lexer.TOpenParen && rest[1].kind == js_lexer.TOpenBrace {
			return factory{params: parameterNames(rest[0]), body: rest[1:]}, true
		}
		return factory{}, false
	}

	// "(module, exports, require) => ..." or "module => ..."
	if len(value) >= 3 && value[1].kind == js_lexer.TEqualsGreaterThan {
		var params []string
		switch value[0].kind {
		case js_lexer.TOpenParen:
			params = parameterNames(value[0])
		case js_lexer.TIdentifier:
			params = []string{value[0].text}
		default:
			return factory{}, false
		}
		return factory{params: params, body: value[2:]}, true
	}

	return factory{}, false
}

// Destructured and defaulted parameters are returned as "" except for the
// name being bound by a default value
func parameterNames(parens *node) []string {
	if len(parens.children) == 0 {
		return nil
	}
	segments, _ := splitByComma(parens.children)
	names := make([]string, 0, len(segments))
	for _, segment := range segments {
		if len(segment) > 0 && segment[0].kind == js_lexer.TIdentifier {
			names = append(names, segment[0].text)
		} else {
			names = append(names, "")
		}
	}
	return names
}

func (f factory) param(index int) string {
	if index < len(f.params) {
		return f.params[index]
	}
	return ""
}

// An object literal qualifies when every value is a module factory. Empty
// literals only qualify in the split-chunk shape, where an empty module map
// is legitimate.
func factoryMap(object *node, allowEmpty bool) ([]property, []factory, bool) {
	properties, ok := parseProperties(object)
	if !ok || (len(properties) == 0 && !allowEmpty) {
		return nil, nil, false
	}
	factories := make([]factory, len(properties))
	for i, prop := range properties {
		f, ok := parseFactory(prop.value)
		if !ok {
			return nil, nil, false
		}
		factories[i] = f
	}
	return properties, factories, true
}

// Walks every node of the tree in source order
func visit(n *node, callback func(*node) bool) {
	for _, child := range n.children {
		if callback(child) {
			visit(child, callback)
		}
	}
}

func findCandidates(root *node) (candidates []candidate) {
	visit(root, func(n *node) bool {
		if n.kind != js_lexer.TOpenBrace {
			return true
		}

		if c, ok := matchSplitChunk(n); ok {
			candidates = append(candidates, c)
			return false
		}

		properties, factories, ok := factoryMap(n, false)
		if !ok {
			return true
		}
		c := candidate{object: n, properties: properties, factories: factories}
		if name, ok := boundName(n); ok {
			c.shape = bundle_ast.RegistryStandard
			c.name = name
		}
		candidates = append(candidates, c)

		// Module registries don't nest
		return false
	})
	return
}

// "NAME = {...}" or "NAME = ({...})", where NAME may be a member expression
func boundName(object *node) (string, bool) {
	target := object
	if parent := object.parent; parent != nil && parent.kind == js_lexer.TOpenParen && len(parent.children) == 1 {
		target = parent
	}
	equals := target.prev()
	if equals == nil || equals.kind != js_lexer.TEquals {
		return "", false
	}

	// Collect "a.b.c" backward from the "="
	var parts []string
	for n := equals.prev(); n != nil; {
		if n.kind != js_lexer.TIdentifier {
			break
		}
		parts = append(parts, n.text)
		dot := n.prev()
		if dot == nil || dot.kind != js_lexer.TDot {
			break
		}
		n = dot.prev()
	}
	if len(parts) == 0 {
		return "", false
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "."), true
}

// "(RECEIVER).push([[chunk ids], {...}, runtime?])"
func matchSplitChunk(object *node) (candidate, bool) {
	array := object.parent
	if array == nil || array.kind != js_lexer.TOpenBracket {
		return candidate{}, false
	}
	elements, _ := splitByComma(array.children)
	if len(elements) < 2 || len(elements) > 3 ||
		len(elements[0]) != 1 || elements[0][0].kind != js_lexer.TOpenBracket ||
		len(elements[1]) != 1 || elements[1][0] != object {
		return candidate{}, false
	}

	args := array.parent
	if args == nil || args.kind != js_lexer.TOpenParen || len(args.children) != 1 {
		return candidate{}, false
	}
	push := args.prev()
	if !push.isIdentifier("push") || !push.isPropertyName() {
		return candidate{}, false
	}
	receiver := push.prev().prev()
	if receiver == nil {
		return candidate{}, false
	}

	properties, factories, ok := factoryMap(object, true)
	if !ok {
		return candidate{}, false
	}

	c := candidate{
		object:     object,
		properties: properties,
		factories:  factories,
		shape:      bundle_ast.RegistrySplitChunk,
	}
	if receiver.kind == js_lexer.TOpenParen {
		c.name, c.strong = lazilyInitialized(receiver)
	} else if receiver.kind == js_lexer.TIdentifier {
		c.name = receiver.text
	}
	return c, true
}

// Matches "X = X || []" and returns the text of X
func lazilyInitialized(parens *node) (string, bool) {
	children := parens.children
	for i, n := range children {
		if n.kind != js_lexer.TEquals || i == 0 {
			continue
		}
		name := joinTokens(children[:i])
		rest := children[i+1:]
		for j, m := range rest {
			if m.kind == js_lexer.TBarBar && j > 0 && joinTokens(rest[:j]) == name && j+2 == len(rest) {
				last := rest[j+1]
				if last.kind == js_lexer.TOpenBracket && len(last.children) == 0 {
					return name, true
				}
			}
		}
		return name, false
	}
	return "", false
}

func joinTokens(nodes []*node) string {
	var sb strings.Builder
	for _, n := range nodes {
		switch n.kind {
		case js_lexer.TDot:
			sb.WriteByte('.')
		case js_lexer.TOpenBracket:
			if len(n.children) == 1 && n.children[0].kind == js_lexer.TStringLiteral {
				sb.WriteString(fmt.Sprintf("[%q]", n.children[0].text))
			} else {
				sb.WriteString("[...]")
			}
		default:
			sb.WriteString(n.text)
		}
	}
	return sb.String()
}

// Picks the registry among the candidates. Candidates that match a shape
// win over loose object literals, and confirmed matches win over plain ones.
// Picking the largest literal is the last resort and is warned about.
func chooseRegistry(log logger.Log, source *logger.Source, candidates []candidate) (*candidate, bundle_ast.RegistryMatch) {
	var strong, weak, loose []*candidate
	for i := range candidates {
		c := &candidates[i]
		switch {
		case c.shape != bundle_ast.RegistryNone && c.strong:
			strong = append(strong, c)
		case c.shape != bundle_ast.RegistryNone:
			weak = append(weak, c)
		default:
			loose = append(loose, c)
		}
	}

	for _, group := range [][]*candidate{strong, weak, loose} {
		if len(group) == 0 {
			continue
		}
		if len(group) == 1 {
			c := group[0]
			switch {
			case c.strong:
				return c, bundle_ast.MatchStrong
			case c.shape != bundle_ast.RegistryNone:
				return c, bundle_ast.MatchWeak
			}
			log.AddID(logger.MsgID_Registry_AmbiguousFallback, logger.Warning, source, c.object.r,
				"The module registry is not bound to a variable or pushed to a chunk array")
			return c, bundle_ast.MatchLargestFallback
		}

		largest := group[0]
		for _, c := range group[1:] {
			if c.object.fullRange().Len > largest.object.fullRange().Len {
				largest = c
			}
		}
		var notes []logger.MsgData
		for _, c := range group {
			if c != largest {
				notes = append(notes, logger.MsgData{
					Text:     "Another candidate is here:",
					Location: logger.LocationOrNil(source, c.object.r),
				})
			}
		}
		log.AddIDWithNotes(logger.MsgID_Registry_AmbiguousFallback, logger.Warning, source, largest.object.r,
			fmt.Sprintf("Could not tell which of %d object literals is the module registry, using the largest one", len(group)),
			notes)
		return largest, bundle_ast.MatchLargestFallback
	}

	return nil, bundle_ast.MatchWeak
}
