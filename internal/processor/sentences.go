package processor

import (
	"strings"
	"unicode"
)

// SplitSentences 按句末标点与换行切分句子，去掉首尾空白并丢弃空句。
// 句末标点（. ! ? …，可连续出现，后面可跟右引号/右括号）之后必须是空白或文本结尾，
// 因此 3.14、example.com 之类不会被切开；换行总是句子边界。
func SplitSentences(text string) []string {
	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}

	rs := []rune(text)
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		if r == '\n' || r == '\r' {
			flush()
			continue
		}
		cur.WriteRune(r)
		if !isTerminal(r) {
			continue
		}
		j := i + 1
		for j < len(rs) && (isTerminal(rs[j]) || isCloser(rs[j])) {
			cur.WriteRune(rs[j])
			j++
		}
		if j == len(rs) || unicode.IsSpace(rs[j]) {
			flush()
		}
		i = j - 1
	}
	flush()
	return out
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '…':
		return true
	}
	return false
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '»', '”', '’':
		return true
	}
	return false
}
