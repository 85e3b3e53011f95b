package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/tools/duckduckgo"
)

// maxResultLen keeps research notes from crowding out the step prompt.
const maxResultLen = 4000

// Searcher is the subset of the DuckDuckGo tool used here.
type Searcher interface {
	Call(ctx context.Context, input string) (string, error)
}

type SearchTool struct {
	client Searcher
}

func NewSearchTool() (*SearchTool, error) {
	ddg, err := duckduckgo.New(5, duckduckgo.DefaultUserAgent)
	if err != nil {
		return nil, err
	}
	return &SearchTool{client: ddg}, nil
}

func (s *SearchTool) Name() string {
	return "search"
}

func (s *SearchTool) Description() string {
	return "Search the web using DuckDuckGo for local growing conditions and seasons."
}

// Execute takes the plain query text.
func (s *SearchTool) Execute(ctx context.Context, input string) (string, error) {
	query := strings.TrimSpace(input)
	if query == "" {
		return "", fmt.Errorf("empty search query")
	}

	res, err := s.client.Call(ctx, query)
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}
	return truncate(res, maxResultLen), nil
}
