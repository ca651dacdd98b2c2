package summarizer

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var reWhitespace = regexp.MustCompile(`\s+`)

// plainText strips markup from s and collapses whitespace. Input that does
// not parse as HTML is returned with whitespace collapsed.
func plainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return normalizeText(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return normalizeText(s)
	}
	doc.Find("script, style").Remove()
	doc.Find("p, div, br, li, tr, h1, h2, h3, h4, h5, h6").AfterHtml(" ")

	return normalizeText(doc.Text())
}

func normalizeText(text string) string {
	text = reWhitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// truncate cuts s to at most n runes. n <= 0 means no limit.
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
