package speech

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Clip is an in-memory audio artifact for a single playback.
type Clip struct {
	Key    string // step id, or "weather"
	Format string // MIME type
	Data   []byte
}

// NarrationError reports a speech failure. It never aborts a run.
type NarrationError struct {
	Key string
	Err error
}

func (e *NarrationError) Error() string {
	return fmt.Sprintf("narration failed for %s: %v", e.Key, e.Err)
}

func (e *NarrationError) Unwrap() error {
	return e.Err
}

// IsNarrationError reports whether err is a NarrationError.
func IsNarrationError(err error) bool {
	var ne *NarrationError
	return errors.As(err, &ne)
}

var markdownNoise = regexp.MustCompile("[*_#`>|~]+")

// Narrator wraps a Synthesizer with the acquire, play, release lifecycle.
type Narrator struct {
	synth    Synthesizer
	language string
	policy   *bluemonday.Policy
}

func NewNarrator(synth Synthesizer, language string) *Narrator {
	if language == "" {
		language = "en"
	}
	return &Narrator{
		synth:    synth,
		language: language,
		policy:   bluemonday.StrictPolicy(),
	}
}

// Narrate synthesizes text, hands the clip to play, then releases it.
// The clip must not be retained by play after it returns.
func (n *Narrator) Narrate(ctx context.Context, key, text string, play func(Clip) error) error {
	if n == nil || n.synth == nil {
		return nil
	}
	spoken := n.Speakable(text)
	if spoken == "" {
		return nil
	}

	data, err := n.synth.Synthesize(ctx, spoken, n.language)
	if err != nil {
		return &NarrationError{Key: key, Err: err}
	}
	if len(data) == 0 {
		return &NarrationError{Key: key, Err: errors.New("empty audio")}
	}

	clip := Clip{Key: key, Format: "audio/mpeg", Data: data}
	defer release(&clip)

	if err := play(clip); err != nil {
		return &NarrationError{Key: key, Err: fmt.Errorf("playback: %w", err)}
	}
	return nil
}

// Speakable strips markup so the voice does not read symbols aloud.
func (n *Narrator) Speakable(text string) string {
	text = html.UnescapeString(n.policy.Sanitize(text))
	text = markdownNoise.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

func release(c *Clip) {
	clear(c.Data)
	c.Data = nil
}
