package server

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// cleanText 规范化玩家提供的文本：NFC、全角折叠、去控制字符、空白归一，最多 limit 个字符
func cleanText(s string, limit int) string {
	if s == "" {
		return ""
	}
	s = width.Fold.String(norm.NFC.String(s))

	var b strings.Builder
	b.Grow(len(s))
	n := 0
	for _, r := range s {
		if limit > 0 && n >= limit {
			break
		}
		r, ok := cleanRune(r)
		if !ok {
			continue
		}
		b.WriteRune(r)
		n++
	}
	return strings.TrimSpace(b.String())
}

func cleanRune(r rune) (rune, bool) {
	switch {
	case r == '\r':
		return 0, false
	case unicode.IsSpace(r):
		return ' ', true
	case unicode.IsControl(r):
		return 0, false
	case unicode.Is(unicode.Cf, r):
		return 0, false
	case !unicode.IsPrint(r):
		return 0, false
	default:
		return r, true
	}
}
