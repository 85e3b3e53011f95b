// Package speech converts text to short-lived audio clips.
package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// maxChunkRunes is the longest text the translate TTS endpoint accepts per request.
const maxChunkRunes = 100

// Synthesizer turns text into audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

// GoogleTTS synthesizes MP3 audio through the Google Translate TTS endpoint.
type GoogleTTS struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

func NewGoogleTTS(baseURL string, timeout time.Duration) *GoogleTTS {
	return &GoogleTTS{
		BaseURL:    baseURL,
		UserAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Synthesize requests each chunk in order and concatenates the MP3 frames.
func (g *GoogleTTS) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	chunks := splitText(text, maxChunkRunes)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("nothing to synthesize")
	}

	var audio bytes.Buffer
	for i, chunk := range chunks {
		if err := g.fetch(ctx, &audio, chunk, language, i, len(chunks)); err != nil {
			return nil, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return audio.Bytes(), nil
}

func (g *GoogleTTS) fetch(ctx context.Context, dst *bytes.Buffer, chunk, language string, idx, total int) error {
	endpoint, err := url.Parse(g.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base url: %w", err)
	}
	q := endpoint.Query()
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", language)
	q.Set("q", chunk)
	q.Set("textlen", strconv.Itoa(len([]rune(chunk))))
	q.Set("idx", strconv.Itoa(idx))
	q.Set("total", strconv.Itoa(total))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", g.UserAgent)

	httpClient := g.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status code %d", resp.StatusCode)
	}
	if _, err := io.Copy(dst, resp.Body); err != nil {
		return fmt.Errorf("failed to read audio: %w", err)
	}
	return nil
}

// splitText breaks text into chunks of at most max runes, preferring sentence
// and then word boundaries.
func splitText(text string, max int) []string {
	words := strings.FieldsFunc(text, unicode.IsSpace)

	var chunks []string
	var cur []rune
	flush := func() {
		if s := strings.TrimSpace(string(cur)); s != "" {
			chunks = append(chunks, s)
		}
		cur = cur[:0]
	}

	for _, w := range words {
		wr := []rune(w)
		for len(wr) > max {
			flush()
			chunks = append(chunks, string(wr[:max]))
			wr = wr[max:]
		}
		if len(cur) > 0 && len(cur)+1+len(wr) > max {
			flush()
		}
		if len(cur) > 0 {
			cur = append(cur, ' ')
		}
		cur = append(cur, wr...)
		if strings.ContainsAny(string(wr[len(wr)-1:]), ".!?;") && len(cur) > max/2 {
			flush()
		}
	}
	flush()
	return chunks
}
