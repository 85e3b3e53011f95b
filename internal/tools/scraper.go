package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

const maxPageBytes = 5 << 20

// ReaderTool fetches a reference page, e.g. an extension service crop guide,
// and extracts its readable text.
type ReaderTool struct {
	UserAgent  string
	HTTPClient *http.Client
	MaxChars   int
}

func NewReaderTool(timeout time.Duration) *ReaderTool {
	return &ReaderTool{
		UserAgent:  "Mozilla/5.0 (compatible; agroplan/1.0)",
		HTTPClient: &http.Client{Timeout: timeout},
		MaxChars:   maxResultLen,
	}
}

func (s *ReaderTool) Name() string {
	return "reader"
}

func (s *ReaderTool) Description() string {
	return "Fetch a webpage URL and extract the main content as clean, sanitized text."
}

// Execute takes the page URL as input.
func (s *ReaderTool) Execute(ctx context.Context, input string) (string, error) {
	pageURL, err := url.Parse(strings.TrimSpace(input))
	if err != nil || (pageURL.Scheme != "http" && pageURL.Scheme != "https") || pageURL.Host == "" {
		return "", fmt.Errorf("invalid page URL %q", input)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.UserAgent)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch page: status code %d", resp.StatusCode)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxPageBytes), pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	// Sanitize output (remove any remaining HTML tags or scripts)
	content := strings.TrimSpace(bluemonday.StrictPolicy().Sanitize(article.TextContent))
	if content == "" {
		return "", fmt.Errorf("page %s has no readable content", pageURL)
	}

	var sb strings.Builder
	if article.Title != "" {
		fmt.Fprintf(&sb, "TITLE: %s\n", article.Title)
	}
	if article.Excerpt != "" {
		fmt.Fprintf(&sb, "EXCERPT: %s\n", article.Excerpt)
	}
	sb.WriteString("\n")
	sb.WriteString(truncate(content, s.MaxChars))
	return sb.String(), nil
}
