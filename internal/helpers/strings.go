package helpers

import (
	"fmt"
	"strings"
)

func StringArrayToQuotedCommaSeparatedString(a []string) string {
	sb := strings.Builder{}
	for i, str := range a {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("%q", str))
	}
	return sb.String()
}

// IsIdentifierByte reports whether two bytes with this value on both sides of
// a splice would fuse into one token.
func IsIdentifierByte(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') || c >= 0x80
}
