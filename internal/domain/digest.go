package domain

import "time"

type Digest struct {
	ID        int64     `db:"id" json:"id"`
	Date      time.Time `db:"date" json:"date"`
	Summary   string    `db:"summary" json:"summary"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	Articles  []Article `db:"-" json:"articles"`
}

// Section is one category paragraph of an unsaved digest preview.
type Section struct {
	Category  string `json:"category"`
	Paragraph string `json:"paragraph"`
}

// RunStats holds statistics about a single digest run.
type RunStats struct {
	RunID        string
	Fetched      int
	SkippedSeen  int
	SkippedNoURL int
	Summarized   int
	Degraded     int
	Failed       int
	Created      int
	FetchErrors  int
	Fallback     bool
	Duration     time.Duration
}
