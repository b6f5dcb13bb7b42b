package pack

import (
	"strings"
	"unicode"
)

// FallbackBaseName is used when nothing of the addon name survives sanitizing.
const FallbackBaseName = "addon"

// maxBaseRunes keeps "{base}_BP/scripts/main.js" and "{base}.mcaddon" well inside
// common 255-byte file name limits.
const maxBaseRunes = 128

// reserved are the characters Windows refuses in file names. '/' and '\' also cover
// path traversal on every platform.
const reserved = `<>:"/\|?*`

// BaseName derives the archive folder and file stem from an addon name.
//
// Reserved characters and non-whitespace control characters are dropped, each run of
// whitespace becomes a single underscore, and leading dots are stripped. Nothing else
// changes: "My Cool  Addon" becomes "My_Cool_Addon". The result holds at most 128
// runes; an empty result yields FallbackBaseName.
func BaseName(name string) string {
	var b strings.Builder
	inSpace := false
	n := 0
	for _, r := range name {
		if n >= maxBaseRunes {
			break
		}
		switch {
		case r == '.' && n == 0:
			continue
		case unicode.IsSpace(r):
			if !inSpace {
				b.WriteByte('_')
				n++
			}
			inSpace = true
			continue
		case strings.ContainsRune(reserved, r), unicode.IsControl(r), r == unicode.ReplacementChar:
			continue
		}
		inSpace = false
		b.WriteRune(r)
		n++
	}

	if n == 0 {
		return FallbackBaseName
	}
	return b.String()
}
