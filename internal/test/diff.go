package test

import (
	"fmt"
	"strings"

	"github.com/sharedshake/sharedshake/internal/logger"
)

// Unchanged runs longer than this are folded so a two-line change inside a
// large bundle stays readable
const contextLines = 3

type diffLine struct {
	text string
	op   byte // ' ', '-' or '+'
}

func Diff(old string, new string, color bool) string {
	lines := diffRec(nil, strings.Split(old, "\n"), strings.Split(new, "\n"))
	lines = foldContext(lines)

	result := make([]string, 0, len(lines))
	for _, line := range lines {
		if !color {
			result = append(result, string(line.op)+line.text)
			continue
		}
		switch line.op {
		case '-':
			result = append(result, fmt.Sprintf("%s-%s%s", logger.TerminalColors.Red, line.text, logger.TerminalColors.Reset))
		case '+':
			result = append(result, fmt.Sprintf("%s+%s%s", logger.TerminalColors.Green, line.text, logger.TerminalColors.Reset))
		default:
			result = append(result, fmt.Sprintf("%s %s%s", logger.TerminalColors.Dim, line.text, logger.TerminalColors.Reset))
		}
	}
	return strings.Join(result, "\n")
}

// A simple recursive line-by-line diff: split around the longest common run
// of lines and recurse on both sides
func diffRec(result []diffLine, old []string, new []string) []diffLine {
	o, n, common := lcSubstr(old, new)

	if common == 0 {
		// Everything changed
		for _, line := range old {
			result = append(result, diffLine{text: line, op: '-'})
		}
		for _, line := range new {
			result = append(result, diffLine{text: line, op: '+'})
		}
		return result
	}

	result = diffRec(result, old[:o], new[:n])
	for _, line := range old[o : o+common] {
		result = append(result, diffLine{text: line, op: ' '})
	}
	return diffRec(result, old[o+common:], new[n+common:])
}

func foldContext(lines []diffLine) []diffLine {
	var folded []diffLine
	i := 0
	for i < len(lines) {
		if lines[i].op != ' ' {
			folded = append(folded, lines[i])
			i++
			continue
		}
		j := i
		for j < len(lines) && lines[j].op == ' ' {
			j++
		}
		if j-i > 2*contextLines+1 {
			folded = append(folded, lines[i:i+contextLines]...)
			folded = append(folded, diffLine{text: fmt.Sprintf("... (%d unchanged lines)", j-i-2*contextLines), op: ' '})
			folded = append(folded, lines[j-contextLines:j]...)
		} else {
			folded = append(folded, lines[i:j]...)
		}
		i = j
	}
	return folded
}

// From: https://en.wikipedia.org/wiki/Longest_common_substring_problem
func lcSubstr(S []string, T []string) (int, int, int) {
	r := len(S)
	n := len(T)
	Lprev := make([]int, n)
	Lnext := make([]int, n)
	z := 0
	retI := 0
	retJ := 0

	for i := 0; i < r; i++ {
		for j := 0; j < n; j++ {
			if S[i] == T[j] {
				if j == 0 {
					Lnext[j] = 1
				} else {
					Lnext[j] = Lprev[j-1] + 1
				}
				if Lnext[j] > z {
					z = Lnext[j]
					retI = i + 1
					retJ = j + 1
				}
			} else {
				Lnext[j] = 0
			}
		}
		Lprev, Lnext = Lnext, Lprev
	}

	return retI - z, retJ - z, z
}
