package rewrite

// Every stage rewrites text the same way: collect edits against the original
// text, then build the output in one pass by copying the gaps between edits
// and splicing in the replacements. Edits never see each other's output, so
// earlier edits can't shift the offsets of later ones.

import (
	"fmt"
	"sort"

	"github.com/sharedshake/sharedshake/internal/helpers"
	"github.com/sharedshake/sharedshake/internal/logger"
)

type Edit struct {
	Replacement string
	Range       logger.Range
}

func Delete(r logger.Range) Edit {
	return Edit{Range: r}
}

func Replace(r logger.Range, replacement string) Edit {
	return Edit{Range: r, Replacement: replacement}
}

func Insert(offset int32, text string) Edit {
	return Edit{Range: logger.Range{Loc: logger.Loc{Start: offset}}, Replacement: text}
}

type OverlapError struct {
	First  logger.Range
	Second logger.Range
}

func (err *OverlapError) Error() string {
	return fmt.Sprintf("Edit at [%d, %d) overlaps edit at [%d, %d)",
		err.Second.Loc.Start, err.Second.End(), err.First.Loc.Start, err.First.End())
}

// Apply sorts the edits by position and splices them into the contents.
// Edits at the same position are applied in the order they were given. Two
// insertions may share a position, but no edit may overlap another.
func Apply(contents string, edits []Edit) (string, error) {
	if len(edits) == 0 {
		return contents, nil
	}

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i int, j int) bool {
		return sorted[i].Range.Loc.Start < sorted[j].Range.Loc.Start
	})

	j := helpers.Joiner{}
	end := int32(0)
	for i, edit := range sorted {
		start := edit.Range.Loc.Start
		if start < 0 || edit.Range.End() > int32(len(contents)) {
			return "", fmt.Errorf("Edit at [%d, %d) is outside the text", start, edit.Range.End())
		}
		if start < end {
			return "", &OverlapError{First: sorted[i-1].Range, Second: edit.Range}
		}
		j.AddString(contents[end:start])
		j.AddString(edit.Replacement)
		end = edit.Range.End()
	}
	j.AddString(contents[end:])
	return j.Done(), nil
}

// ApplySeparated is like Apply but inserts a space at a splice where the text
// on both sides would otherwise fuse into a different token, such as "a" and
// "b" becoming "ab" once the comment between them is removed
func ApplySeparated(contents string, edits []Edit) (string, error) {
	if len(edits) == 0 {
		return contents, nil
	}

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i int, j int) bool {
		return sorted[i].Range.Loc.Start < sorted[j].Range.Loc.Start
	})

	j := helpers.Joiner{}
	atSplice := false
	add := func(text string) {
		if text == "" {
			return
		}
		if atSplice && j.Length() > 0 && NeedsSpaceBetween(j.LastByte(), text[0]) {
			j.AddString(" ")
		}
		j.AddString(text)
		atSplice = false
	}

	end := int32(0)
	for i, edit := range sorted {
		start := edit.Range.Loc.Start
		if start < 0 || edit.Range.End() > int32(len(contents)) {
			return "", fmt.Errorf("Edit at [%d, %d) is outside the text", start, edit.Range.End())
		}
		if start < end {
			return "", &OverlapError{First: sorted[i-1].Range, Second: edit.Range}
		}
		add(contents[end:start])
		atSplice = true
		add(edit.Replacement)
		if edit.Replacement != "" {
			atSplice = true
		}
		end = edit.Range.End()
	}
	add(contents[end:])
	return j.Done(), nil
}

// Two edits fuse tokens when the text on one side of a splice ends with a
// character that combines with the first character on the other side
func NeedsSpaceBetween(before byte, after byte) bool {
	switch {
	case helpers.IsIdentifierByte(before) && helpers.IsIdentifierByte(after):
		return true
	case before == '+' && after == '+', before == '-' && after == '-':
		return true
	case before == '/' && (after == '/' || after == '*'):
		return true
	}
	return false
}
