package service

import (
	"fmt"
	"html"
	"strings"
	"time"

	"newsdigest/internal/domain"
	"newsdigest/internal/summarizer"
)

const (
	paragraphSeparator = "<br><br>"
	generatedAtLayout  = "2006-01-02 15:04:05"
)

// anchor links text to url. Both are HTML-escaped, so a title such as
// "Tom & Jerry" is stored as "Tom &amp; Jerry" and renders unchanged.
func anchor(url, text string) string {
	return fmt.Sprintf(`<a href="%s" target="_blank">%s</a>`, html.EscapeString(url), html.EscapeString(text))
}

func joinSentences(sentences []string) string {
	return strings.Join(sentences, " ")
}

func paragraph(category domain.Category, sentences []string) string {
	return fmt.Sprintf("<b>%s News:</b> %s", category.Label(), joinSentences(sentences))
}

// renderParagraphs emits one paragraph per non-empty category in the fixed
// category order.
func renderParagraphs(sentences map[domain.Category][]string) string {
	var paragraphs []string
	for _, category := range domain.Categories {
		if len(sentences[category]) == 0 {
			continue
		}
		paragraphs = append(paragraphs, paragraph(category, sentences[category]))
	}
	return strings.Join(paragraphs, paragraphSeparator)
}

// renderFallback links the titles of already stored articles when a run
// produced no new sentences.
func renderFallback(articles []domain.Article) string {
	byCategory := make(map[domain.Category][]string)
	for _, a := range articles {
		byCategory[a.Category] = append(byCategory[a.Category], anchor(a.URL, a.Title))
	}
	return renderParagraphs(byCategory)
}

func renderSummary(body string, generatedAt time.Time) string {
	if body == "" {
		body = summarizer.NoSummary
	}
	return body + paragraphSeparator + "<i>Digest generated at " + generatedAt.Format(generatedAtLayout) + "</i>"
}
