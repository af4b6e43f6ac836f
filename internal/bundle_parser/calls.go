package bundle_parser

import (
	"github.com/sharedshake/sharedshake/internal/bundle_ast"
	"github.com/sharedshake/sharedshake/internal/js_lexer"
	"github.com/sharedshake/sharedshake/internal/logger"
)

type referenceKind uint8

const (
	// Not a module call: a helper such as "require.d(...)", a parameter
	// declaration, or "typeof require"
	referenceIgnored referenceKind = iota

	// A call with a literal module id
	referenceLiteral

	// The target can't be determined
	referenceUndetermined
)

type reference struct {
	id    string
	r     logger.Range
	kind  referenceKind
	entry bool // Whether this form also starts the module as an entry point
}

func literalID(nodes []*node) (string, bool) {
	if len(nodes) != 1 {
		return "", false
	}
	n := nodes[0]
	switch n.kind {
	case js_lexer.TStringLiteral, js_lexer.TNoSubstitutionTemplateLiteral:
		return n.text, true
	case js_lexer.TNumericLiteral:
		return bundle_ast.NormalizeNumericID(n.num), true
	}
	return "", false
}

// Splits call arguments, ignoring a trailing comma
func callArguments(args *node) [][]*node {
	if len(args.children) == 0 {
		return nil
	}
	segments, _ := splitByComma(args.children)
	if last := segments[len(segments)-1]; len(last) == 0 && len(segments) > 1 {
		segments = segments[:len(segments)-1]
	}
	return segments
}

// Matches "(id)" and "(require.s = id)" for a call to "name"
func singleArgumentID(name string, args *node) (string, bool) {
	segments := callArguments(args)
	if len(segments) != 1 {
		return "", false
	}
	arg := segments[0]
	if id, ok := literalID(arg); ok {
		return id, true
	}
	if len(arg) == 5 && arg[0].isIdentifier(name) && arg[1].kind == js_lexer.TDot &&
		arg[2].text == "s" && arg[3].kind == js_lexer.TEquals {
		return literalID(arg[4:])
	}
	return "", false
}

// Matches "(require, id, ...)" for a call to "bind"
func boundArgumentID(name string, args *node) (string, bool) {
	segments := callArguments(args)
	if len(segments) < 2 || len(segments[0]) != 1 || !segments[0][0].isIdentifier(name) {
		return "", false
	}
	return literalID(segments[1])
}

// The id passed through "call" or "apply". The receiver is ignored.
func forwardedArgumentID(method string, args *node) (string, bool) {
	segments := callArguments(args)
	if len(segments) != 2 {
		return "", false
	}
	if method == "call" {
		return literalID(segments[1])
	}
	list := segments[1]
	if len(list) != 1 || list[0].kind != js_lexer.TOpenBracket {
		return "", false
	}
	elements := callArguments(list[0])
	if len(elements) != 1 {
		return "", false
	}
	return literalID(elements[0])
}

// Whether an identifier is being declared as a function parameter, which
// shadows rather than uses the require function
func isParameterDeclaration(n *node) bool {
	if next := n.next(); next != nil && next.kind == js_lexer.TEqualsGreaterThan {
		return true
	}
	parent := n.parent
	if parent == nil || parent.kind != js_lexer.TOpenParen {
		return false
	}
	after := parent.next()
	return after != nil && (after.kind == js_lexer.TOpenBrace || after.kind == js_lexer.TEqualsGreaterThan)
}

func rangeThrough(first *node, last *node) logger.Range {
	return logger.Range{Loc: first.r.Loc, Len: last.end() - first.r.Loc.Start}
}

// Whether an identifier is the receiver passed to "bind", as in
// "require.bind(require, id)"
func isBindReceiver(n *node) bool {
	parent := n.parent
	if n.index != 0 || parent == nil || parent.kind != js_lexer.TOpenParen {
		return false
	}
	bind := parent.prev()
	return bind.isIdentifier("bind") && bind.isPropertyName()
}

// Returns the body of a function whose parameter list declares "name"
func shadowedBody(params *node, name string) *node {
	if params.kind != js_lexer.TOpenParen {
		return nil
	}
	declared := false
	for _, param := range parameterNames(params) {
		if param == name {
			declared = true
		}
	}
	if !declared {
		return nil
	}
	body := params.next()
	if body != nil && body.kind == js_lexer.TEqualsGreaterThan {
		body = body.next()
	}
	if body != nil && body.kind == js_lexer.TOpenBrace {
		return body
	}
	return nil
}

// Classifies one occurrence of the require function's name
func classifyReference(n *node, name string) reference {
	if n.isPropertyName() || isParameterDeclaration(n) || isBindReceiver(n) {
		return reference{}
	}
	if prev := n.prev(); prev != nil {
		switch prev.kind {
		case js_lexer.TTypeof, js_lexer.TVar, js_lexer.TConst, js_lexer.TFunction:
			return reference{}
		}
		if prev.isIdentifier("let") {
			return reference{}
		}
	}

	next := n.next()
	if next == nil {
		return reference{kind: referenceUndetermined, r: n.r}
	}

	switch next.kind {
	case js_lexer.TOpenParen:
		// "require(id)" or "require(require.s = id)"
		r := rangeThrough(n, next)
		if id, ok := singleArgumentID(name, next); ok {
			return reference{kind: referenceLiteral, id: id, r: r, entry: true}
		}
		return reference{kind: referenceUndetermined, r: r}

	case js_lexer.TDot:
		prop := next.next()
		if prop == nil || prop.kind < js_lexer.TIdentifier {
			return reference{}
		}
		after := prop.next()

		switch prop.text {
		case "bind":
			// "require.bind(require, id)" calls the module later
			if after != nil && after.kind == js_lexer.TOpenParen {
				r := rangeThrough(n, after)
				if id, ok := boundArgumentID(name, after); ok {
					return reference{kind: referenceLiteral, id: id, r: r}
				}
				return reference{kind: referenceUndetermined, r: r}
			}
			return reference{kind: referenceUndetermined, r: rangeThrough(n, prop)}

		case "call", "apply":
			// "require.call(this, id)" and "require.apply(this, [id])"
			if after != nil && after.kind == js_lexer.TOpenParen {
				r := rangeThrough(n, after)
				if id, ok := forwardedArgumentID(prop.text, after); ok {
					return reference{kind: referenceLiteral, id: id, r: r}
				}
				return reference{kind: referenceUndetermined, r: r}
			}
			return reference{kind: referenceUndetermined, r: rangeThrough(n, prop)}

		case "m", "c":
			// Direct access to the module map or the module cache
			if after != nil && after.kind == js_lexer.TOpenBracket {
				r := rangeThrough(n, after)
				if id, ok := literalID(after.children); ok {
					return reference{kind: referenceLiteral, id: id, r: r}
				}
				return reference{kind: referenceUndetermined, r: r}
			}
			if after == nil || after.kind != js_lexer.TEquals {
				return reference{kind: referenceUndetermined, r: rangeThrough(n, prop)}
			}
		}

		// "require.t.bind(require, id, mode)" creates a namespace object later
		if after != nil && after.kind == js_lexer.TDot {
			if bind := after.next(); bind.isIdentifier("bind") {
				if args := bind.next(); args != nil && args.kind == js_lexer.TOpenParen {
					r := rangeThrough(n, args)
					if id, ok := boundArgumentID(name, args); ok {
						return reference{kind: referenceLiteral, id: id, r: r}
					}
					return reference{kind: referenceUndetermined, r: r}
				}
			}
		}

		// Runtime helpers such as "require.d" and "require.r" never run
		// another module by id
		return reference{}

	case js_lexer.TQuestionDot:
		return reference{}
	}

	// The require function escapes, so anything may be called through it
	return reference{kind: referenceUndetermined, r: n.r}
}

func isEvalCall(n *node) bool {
	if !n.isIdentifier("eval") || n.isPropertyName() {
		return false
	}
	next := n.next()
	return next != nil && next.kind == js_lexer.TOpenParen
}

func visitNodes(nodes []*node, callback func(*node)) {
	for _, n := range nodes {
		callback(n)
		if len(n.children) > 0 {
			visitNodes(n.children, callback)
		}
	}
}

// Like "visitNodes" but skips the bodies of nested functions that declare a
// parameter with the given name
func visitScope(nodes []*node, name string, callback func(*node)) {
	var skip *node
	for _, n := range nodes {
		if n == skip {
			continue
		}
		callback(n)
		if name != "" {
			if body := shadowedBody(n, name); body != nil {
				skip = body
			}
		}
		if len(n.children) > 0 {
			visitScope(n.children, name, callback)
		}
	}
}

func scanModule(f factory, module *bundle_ast.Module) {
	requireName := f.param(2)
	visitScope(f.body, requireName, func(n *node) {
		if isEvalCall(n) {
			module.Undetermined = append(module.Undetermined, rangeThrough(n, n.next()))
			return
		}
		if requireName == "" || !n.isIdentifier(requireName) {
			return
		}
		switch ref := classifyReference(n, requireName); ref.kind {
		case referenceLiteral:
			module.Edges = append(module.Edges, bundle_ast.Edge{Target: ref.id, Range: ref.r})
		case referenceUndetermined:
			module.Undetermined = append(module.Undetermined, ref.r)
		}
	})
	module.Exports = findExports(f)
}

// Every name that calls a module by id outside the registry
func requireLikeNames(root *node, c *candidate) map[string]bool {
	names := make(map[string]bool)
	for _, name := range wellKnownRequireNames {
		names[name] = true
	}
	for _, f := range c.factories {
		if name := f.param(2); name != "" {
			names[name] = true
		}
	}
	if c.shape == bundle_ast.RegistryStandard {
		for _, name := range functionsIndexing(root, c) {
			names[name] = true
		}
	}
	return names
}

// Finds "function NAME(...) { ... REGISTRY[...] ... }"
func functionsIndexing(root *node, c *candidate) (result []string) {
	visit(root, func(n *node) bool {
		if n == c.object {
			return false
		}
		if n.kind != js_lexer.TFunction {
			return true
		}
		name := n.next()
		if name == nil || name.kind != js_lexer.TIdentifier {
			return true
		}
		params := name.next()
		if params == nil || params.kind != js_lexer.TOpenParen {
			return true
		}
		body := params.next()
		if body == nil || body.kind != js_lexer.TOpenBrace {
			return true
		}
		found := false
		visitNodes(body.children, func(m *node) {
			if !found && m.isIdentifier(c.name) && !m.isPropertyName() {
				if next := m.next(); next != nil && next.kind == js_lexer.TOpenBracket {
					found = true
				}
			}
		})
		if found {
			result = append(result, name.text)
		}
		return true
	})
	return
}

// Literal calls to a require-like name outside the registry object, in
// source order
func topLevelCalls(root *node, c *candidate) (result []reference) {
	names := requireLikeNames(root, c)
	visit(root, func(n *node) bool {
		if n == c.object {
			return false
		}
		if n.kind == js_lexer.TIdentifier && names[n.text] {
			if ref := classifyReference(n, n.text); ref.kind == referenceLiteral && ref.entry {
				result = append(result, ref)
			}
		}
		return true
	})
	return
}

// A standard registry is confirmed when code outside of it calls one of its
// modules by a literal id
func confirmStandard(root *node, c *candidate) bool {
	keys := make(map[string]bool, len(c.properties))
	for _, prop := range c.properties {
		keys[propertyKeyID(prop.key)] = true
	}
	for _, ref := range topLevelCalls(root, c) {
		if keys[ref.id] {
			return true
		}
	}
	return false
}

func findEntryPoints(root *node, c *candidate, registry *bundle_ast.Registry) (entries []bundle_ast.EntryPoint) {
	seen := make(map[string]bool)
	for _, ref := range topLevelCalls(root, c) {
		if _, ok := registry.ModuleIndex[ref.id]; ok && !seen[ref.id] {
			seen[ref.id] = true
			entries = append(entries, bundle_ast.EntryPoint{ID: ref.id, Range: ref.r})
		}
	}
	return
}

func findExports(f factory) (exports []bundle_ast.ExportBinding) {
	moduleName := f.param(0)
	exportsName := f.param(1)
	requireName := f.param(2)

	// "require.d(exports, { name: () => value, ... })"
	if requireName != "" {
		visitNodes(f.body, func(n *node) {
			if !n.isIdentifier(requireName) || n.isPropertyName() {
				return
			}
			dot := n.next()
			if dot == nil || dot.kind != js_lexer.TDot {
				return
			}
			d := dot.next()
			if !d.isIdentifier("d") {
				return
			}
			args := d.next()
			if args == nil || args.kind != js_lexer.TOpenParen {
				return
			}
			segments := callArguments(args)
			if len(segments) != 2 || len(segments[1]) != 1 || segments[1][0].kind != js_lexer.TOpenBrace {
				return
			}
			properties, ok := parseProperties(segments[1][0])
			if !ok {
				return
			}
			for _, prop := range properties {
				if prop.key.kind == js_lexer.TNumericLiteral {
					continue
				}
				binding := bundle_ast.ExportBinding{
					Kind:       bundle_ast.ExportGetterProperty,
					Name:       prop.key.text,
					Range:      rangeThrough(prop.key, prop.value[len(prop.value)-1]),
					CommaAfter: -1,
				}
				if prop.comma != nil {
					binding.CommaAfter = prop.comma.r.Loc.Start
				}
				exports = append(exports, binding)
			}
		})
	}

	// "exports.name = value;" as a statement of the factory body
	if len(f.body) != 1 || f.body[0].kind != js_lexer.TOpenBrace {
		return
	}
	statements := f.body[0].children
	for i, n := range statements {
		if i > 0 {
			switch statements[i-1].kind {
			case js_lexer.TSemicolon, js_lexer.TOpenBrace:
			default:
				continue
			}
		}

		var rest []*node
		switch {
		case n.isIdentifier(exportsName), n.isIdentifier("exports"):
			rest = statements[i+1:]
		case n.isIdentifier(moduleName), n.isIdentifier("module"):
			if len(statements) > i+2 && statements[i+1].kind == js_lexer.TDot && statements[i+2].isIdentifier("exports") {
				rest = statements[i+3:]
			}
		}
		if len(rest) < 4 || rest[0].kind != js_lexer.TDot || rest[1].kind < js_lexer.TIdentifier || rest[2].kind != js_lexer.TEquals {
			continue
		}

		// The value must end with an explicit ";" on the same level, without
		// a line break that automatic semicolon insertion could have ended the
		// statement at, and must not assign anything else
		var semicolon *node
		for _, m := range rest[3:] {
			if m.kind == js_lexer.TSemicolon {
				semicolon = m
				break
			}
			if m.hasNewlineBefore || m.kind == js_lexer.TEquals {
				break
			}
		}
		if semicolon == nil {
			continue
		}
		exports = append(exports, bundle_ast.ExportBinding{
			Kind:       bundle_ast.ExportAssignment,
			Name:       rest[1].text,
			Range:      rangeThrough(n, semicolon),
			CommaAfter: -1,
		})
	}
	return
}
