// Package summarizer turns a provider article into a one-sentence summary
// using an OpenAI-compatible chat completions API.
package summarizer

import "fmt"

// Status classifies the outcome of one summarization attempt.
type Status int

const (
	// StatusOK means the model produced a summary.
	StatusOK Status = iota
	// StatusDegraded means the model call failed and Text holds the article title.
	StatusDegraded
	// StatusFailed means the caller's context ended before a result; Text is empty.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusDegraded:
		return "degraded"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// NoSummary is used as degraded text when the article has no title.
const NoSummary = "No summary available."

type Result struct {
	Status Status
	Text   string
	// Err is the underlying cause for degraded and failed results.
	Err error
}

func OK(text string) Result {
	return Result{Status: StatusOK, Text: text}
}

func Degraded(title string, cause error) Result {
	if title == "" {
		title = NoSummary
	}
	return Result{Status: StatusDegraded, Text: title, Err: cause}
}

func Failed(cause error) Result {
	return Result{Status: StatusFailed, Err: cause}
}
