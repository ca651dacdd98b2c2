package api

import (
	"time"

	"newsdigest/internal/domain"
)

type ArticleResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Content     string    `json:"content"`
	PublishedAt time.Time `json:"published_at"`
	Category    string    `json:"category"`
	Source      string    `json:"source"`
}

type DigestResponse struct {
	ID        int64             `json:"id"`
	Date      string            `json:"date"`
	Summary   string            `json:"summary"`
	CreatedAt time.Time         `json:"created_at"`
	Articles  []ArticleResponse `json:"articles"`
}

type SectionResponse struct {
	Category  string `json:"category"`
	Paragraph string `json:"paragraph"`
}

// HealthResponse mirrors the database connectivity of the service.
type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database,omitempty"`
	SeenStore string `json:"seen_store,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func newArticleResponse(a domain.Article) ArticleResponse {
	return ArticleResponse{
		ID:          a.ID,
		Title:       a.Title,
		URL:         a.URL,
		Content:     a.Content,
		PublishedAt: a.PublishedAt,
		Category:    string(a.Category),
		Source:      a.Source,
	}
}

func newArticleResponses(articles []domain.Article) []ArticleResponse {
	out := make([]ArticleResponse, 0, len(articles))
	for _, a := range articles {
		out = append(out, newArticleResponse(a))
	}
	return out
}

func newDigestResponse(d domain.Digest) DigestResponse {
	return DigestResponse{
		ID:        d.ID,
		Date:      d.Date.Format(time.DateOnly),
		Summary:   d.Summary,
		CreatedAt: d.CreatedAt,
		Articles:  newArticleResponses(d.Articles),
	}
}

func newSectionResponses(sections []domain.Section) []SectionResponse {
	out := make([]SectionResponse, 0, len(sections))
	for _, s := range sections {
		out = append(out, SectionResponse{Category: s.Category, Paragraph: s.Paragraph})
	}
	return out
}
