package newsdata

// APIResponse represents the newsdata.io latest-news response structure.
type APIResponse struct {
	Status       string   `json:"status"`
	TotalResults int      `json:"totalResults"`
	Results      []Result `json:"results"`
	NextPage     string   `json:"nextPage"`
}

type Result struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Content     string      `json:"content"`
	FullContent string      `json:"full_content"`
	Link        string      `json:"link"`
	URL         string      `json:"url"`
	SourceName  string      `json:"source_name"`
	SourceID    string      `json:"source_id"`
	Source      *SourceInfo `json:"source"`
	PubDate     string      `json:"pubDate"`
}

type SourceInfo struct {
	Name string `json:"name"`
}

// errorResponse is returned by the API with a non-success status field.
type errorResponse struct {
	Status  string `json:"status"`
	Results struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"results"`
}
