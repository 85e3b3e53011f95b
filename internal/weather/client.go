// Package weather looks up current conditions from an OpenWeatherMap-style API.
package weather

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxBodySize bounds the provider response.
const maxBodySize = 1 << 20

// ErrLocationNotFound is reported when the provider does not know the location.
var ErrLocationNotFound = errors.New("location not found")

// UnavailableError classifies a failed lookup. Callers degrade instead of aborting.
type UnavailableError struct {
	Location string
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("weather unavailable for %q: %v", e.Location, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether err is an UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// Provider abstracts a current-weather source.
type Provider interface {
	Lookup(ctx context.Context, location string) (Snapshot, error)
}

// Client queries the OpenWeatherMap current weather endpoint.
type Client struct {
	BaseURL    string
	APIKey     string
	Units      string
	HTTPClient *http.Client
}

func NewClient(baseURL, apiKey, units string, timeout time.Duration) *Client {
	if units == "" {
		units = "metric"
	}
	return &Client{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Units:      units,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// payload mirrors the subset of the provider response we read.
type payload struct {
	Cod  code `json:"cod"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Message string `json:"message"`
}

// code accepts both 200 and "404"; the provider is inconsistent.
type code string

func (c *code) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = code(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*c = code(n.String())
	return nil
}

// Lookup issues exactly one request. A provider "not found" yields Unavailable
// with a nil error; every other failure yields Unavailable and *UnavailableError.
func (c *Client) Lookup(ctx context.Context, location string) (Snapshot, error) {
	fail := func(err error) (Snapshot, error) {
		return Unavailable, &UnavailableError{Location: location, Err: err}
	}

	endpoint, err := url.Parse(c.BaseURL)
	if err != nil {
		return fail(fmt.Errorf("invalid base url: %w", err))
	}
	q := endpoint.Query()
	q.Set("q", location)
	q.Set("appid", c.APIKey)
	q.Set("units", c.Units)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fail(fmt.Errorf("failed to create request: %w", err))
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fail(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fail(fmt.Errorf("failed to read response: %w", err))
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fail(fmt.Errorf("status code %d", resp.StatusCode))
		}
		return fail(fmt.Errorf("malformed response: %w", err))
	}

	if p.Cod == "404" {
		return Unavailable, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(p.Message)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return fail(fmt.Errorf("status code %d: %s", resp.StatusCode, msg))
	}
	if len(p.Weather) == 0 {
		return fail(errors.New("malformed response: missing weather conditions"))
	}

	return Snapshot{
		Temperature: p.Main.Temp,
		Humidity:    p.Main.Humidity,
		Condition:   p.Weather[0].Main,
		Description: p.Weather[0].Description,
		WindSpeed:   p.Wind.Speed,
		Available:   true,
	}, nil
}
