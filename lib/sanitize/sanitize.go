// Package sanitize validates client identifiers and keys before they are used
// as map keys or identity set members.
//
// The wire protocol separates a command from its argument with a single space,
// so only letters, digits and whitespace are accepted. Anything else (';', ':',
// control characters, ...) is rejected to keep protocol delimiters out of keys.
package sanitize

import (
	"strings"
	"unicode"
)

// IsValid reports whether s is an acceptable identifier or key.
// Empty and all-whitespace strings are rejected, as is any string containing a
// rune that is neither alphanumeric nor whitespace.
func IsValid(s string) bool {
	if strings.TrimFunc(s, IsSpace) == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) && !IsSpace(r) {
			return false
		}
	}
	return true
}

// IsSpace reports whether r counts as whitespace. On top of unicode.IsSpace
// this includes the ASCII information separators 0x1C to 0x1F, which are
// whitespace in the Unicode bidi classes.
func IsSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}
