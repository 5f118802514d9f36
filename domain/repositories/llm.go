package repositories

import "context"

// DraftRequest carries the prompts for one document generation call.
type DraftRequest struct {
	System string
	User   string
}

// Drafter abstracts the text-generation provider used for note drafting.
type Drafter interface {
	// Draft generates the full document in one call.
	Draft(ctx context.Context, req DraftRequest) (string, error)

	// DraftStream generates the document incrementally. Content deltas
	// arrive on the first channel, which is closed when the stream ends; the
	// second channel then yields exactly one value, the terminal error or
	// nil.
	DraftStream(ctx context.Context, req DraftRequest) (<-chan string, <-chan error)
}
