package services

import (
	"context"
	"fmt"
)

// Searcher answers information-retrieval requests
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// PlaceholderSearch echoes the query back. It stands in until a real search
// backend is wired.
type PlaceholderSearch struct{}

// Search returns a deterministic placeholder for query
func (PlaceholderSearch) Search(_ context.Context, query string) (string, error) {
	return fmt.Sprintf("[Search Results for: %s]\nFound relevant information...", query), nil
}
