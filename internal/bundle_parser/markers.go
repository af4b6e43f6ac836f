package bundle_parser

import (
	"fmt"
	"strings"

	"github.com/sharedshake/sharedshake/internal/bundle_ast"
	"github.com/sharedshake/sharedshake/internal/logger"
)

const (
	openerKeyword = "@common:if"
	closerKeyword = "@common:endif"
)

type markerKind uint8

const (
	notMarker markerKind = iota
	markerOpener
	markerCloser
	markerInvalid
)

// Recognizes "/* @common:if [condition="a.b.c"] */" and "/* @common:endif */".
// Whitespace inside the comment is free-form since code generators and
// formatters disagree about it.
func parseMarker(text string) (markerKind, string) {
	if !strings.HasPrefix(text, "/*") || !strings.HasSuffix(text, "*/") || len(text) < 4 {
		return notMarker, ""
	}
	body := strings.TrimSpace(text[2 : len(text)-2])

	if body == closerKeyword {
		return markerCloser, ""
	}
	if !strings.HasPrefix(body, openerKeyword) {
		if strings.HasPrefix(body, closerKeyword) {
			return markerInvalid, ""
		}
		return notMarker, ""
	}

	// "[condition="a.b.c"]"
	rest := strings.TrimSpace(body[len(openerKeyword):])
	if !strings.HasPrefix(rest, "[") || !strings.HasSuffix(rest, "]") {
		return markerInvalid, ""
	}
	rest = strings.TrimSpace(rest[1 : len(rest)-1])
	if !strings.HasPrefix(rest, "condition") {
		return markerInvalid, ""
	}
	rest = strings.TrimSpace(rest[len("condition"):])
	if !strings.HasPrefix(rest, "=") {
		return markerInvalid, ""
	}
	rest = strings.TrimSpace(rest[1:])
	if len(rest) < 2 || rest[0] != '"' || rest[len(rest)-1] != '"' {
		return markerInvalid, ""
	}
	condition := rest[1 : len(rest)-1]
	if !IsValidCondition(condition) {
		return markerInvalid, condition
	}
	return markerOpener, condition
}

// A condition is a dot-separated path of non-empty segments without
// whitespace or quotes
func IsValidCondition(condition string) bool {
	if condition == "" {
		return false
	}
	for _, segment := range strings.Split(condition, ".") {
		if segment == "" {
			return false
		}
		for _, c := range segment {
			switch c {
			case ' ', '\t', '\n', '\r', '"', '[', ']':
				return false
			}
		}
	}
	return true
}

func markerError(source *logger.Source, r logger.Range, text string) *bundle_ast.MalformedMarkerError {
	return &bundle_ast.MalformedMarkerError{
		Text:     text,
		Location: logger.LocationOrNil(source, r),
		Range:    r,
	}
}

// One linear scan over the comments, which are already in source order
func scanMarkers(source *logger.Source, comments []comment) ([]bundle_ast.MarkerRegion, error) {
	var regions []bundle_ast.MarkerRegion
	var open *comment
	var condition string

	for i := range comments {
		c := &comments[i]
		if !c.IsBlock {
			continue
		}

		kind, text := parseMarker(c.Text)
		switch kind {
		case markerInvalid:
			if text != "" {
				return nil, markerError(source, c.Range, fmt.Sprintf("Invalid marker condition %q", text))
			}
			return nil, markerError(source, c.Range, "Invalid marker syntax")

		case markerOpener:
			if open != nil {
				err := markerError(source, c.Range, "Nested marker regions are not supported")
				err.Text += fmt.Sprintf(" (the region for %q is still open)", condition)
				return nil, err
			}
			open = c
			condition = text

		case markerCloser:
			if open == nil {
				return nil, markerError(source, c.Range, "Found a closing marker without an opening marker")
			}
			if open.group != c.group {
				return nil, markerError(source, open.Range,
					fmt.Sprintf("The region for %q crosses a bracket boundary", condition))
			}
			regions = append(regions, bundle_ast.MarkerRegion{
				Condition: condition,
				Opener:    open.Range,
				Closer:    c.Range,
			})
			open = nil
		}
	}

	if open != nil {
		return nil, markerError(source, open.Range,
			fmt.Sprintf("The region for %q has no closing marker", condition))
	}
	return regions, nil
}
