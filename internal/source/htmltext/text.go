// Package htmltext turns rendered post bodies into newline-normalized plain text.
package htmltext

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	blankRun = regexp.MustCompile(`\n{3,}`)
	digits   = regexp.MustCompile(`[\d,]+`)
)

const blockTags = "p,div,li,h1,h2,h3,h4,h5,h6,tr,blockquote,pre,table"

// Text extracts readable text from sel. Script and style elements are dropped,
// <br> and block boundaries become newlines. sel is modified in place.
func Text(sel *goquery.Selection) string {
	sel.Find("script,style,noscript").Remove()
	sel.Find("br").ReplaceWithHtml("\n")
	sel.Find(blockTags).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	return Normalize(sel.Text())
}

// Normalize trims trailing spaces on every line and collapses runs of three or
// more newlines to two.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	s = strings.Join(lines, "\n")
	s = blankRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// FirstText returns the trimmed text of the first selector that matches in doc.
func FirstText(doc *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if m := doc.Find(sel).First(); m.Length() > 0 {
			return strings.TrimSpace(m.Text())
		}
	}
	return ""
}

// Count parses the first digit group of s ("조회 1,234" → 1234). Unparseable input yields 0.
func Count(s string) int {
	m := digits.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return 0
	}
	return n
}

// Attr returns the first non-empty attribute among names.
func Attr(s *goquery.Selection, names ...string) string {
	for _, n := range names {
		if v, ok := s.Attr(n); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// IntAttr parses an integer attribute, returning 0 when absent or invalid.
func IntAttr(s *goquery.Selection, name string) int {
	v, ok := s.Attr(name)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(v), "px"))
	if err != nil {
		return 0
	}
	return n
}
