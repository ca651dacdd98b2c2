package domain

import (
	"errors"
	"time"
)

// Stored column limits, in runes.
const (
	MaxTitleLength  = 300
	MaxSourceLength = 100
)

var ErrNotFound = errors.New("not found")

type Article struct {
	ID          int64     `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	URL         string    `db:"url" json:"url"`
	Content     string    `db:"content" json:"content"`
	PublishedAt time.Time `db:"published_at" json:"published_at"`
	Category    Category  `db:"category" json:"category"`
	Source      string    `db:"source" json:"source"`
}

// ArticleFilter narrows article listings. Zero values mean no restriction.
type ArticleFilter struct {
	Category Category
	Limit    uint64
	Offset   uint64
}

// RawArticle is an article as returned by the news provider, before it is
// deduplicated or summarized.
type RawArticle struct {
	Title       string
	Description string
	Content     string
	FullContent string
	Link        string
	URL         string
	SourceName  string
}

// CanonicalURL returns the primary link, falling back to the secondary url field.
func (r RawArticle) CanonicalURL() string {
	if r.Link != "" {
		return r.Link
	}
	return r.URL
}

// Body is the text handed to the summarizer.
func (r RawArticle) Body() string {
	return firstNonEmpty(r.FullContent, r.Content)
}

// StoredContent is the text persisted on Article.Content.
func (r RawArticle) StoredContent() string {
	return firstNonEmpty(r.FullContent, r.Content, r.Description)
}

// TruncateTitle cuts s to MaxTitleLength runes.
func TruncateTitle(s string) string {
	return truncateRunes(s, MaxTitleLength)
}

// TruncateSource cuts s to MaxSourceLength runes.
func TruncateSource(s string) string {
	return truncateRunes(s, MaxSourceLength)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
