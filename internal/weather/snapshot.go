package weather

import (
	"fmt"
	"strconv"
)

// Snapshot is the normalized current-weather reading for one location.
type Snapshot struct {
	Temperature float64 // °C
	Humidity    int     // %
	Condition   string  // provider's coarse group, e.g. "Clouds"
	Description string
	WindSpeed   float64 // m/s
	Available   bool
}

// Unavailable is the "no data" sentinel returned instead of a reading.
var Unavailable = Snapshot{}

var icons = map[string]string{
	"Clear":        "🌞",
	"Clouds":       "☁️",
	"Drizzle":      "🌦️",
	"Rain":         "🌧️",
	"Thunderstorm": "⛈️",
	"Snow":         "❄️",
	"Mist":         "🌫️",
	"Smoke":        "🌫️",
	"Haze":         "🌫️",
	"Dust":         "🌫️",
	"Fog":          "🌫️",
	"Sand":         "🌫️",
	"Ash":          "🌫️",
	"Squall":       "🌫️",
	"Tornado":      "🌪️",
}

// Icon returns the emoji for the condition, or "❓" when unknown.
func (s Snapshot) Icon() string {
	if icon, ok := icons[s.Condition]; ok {
		return icon
	}
	return "❓"
}

// Summary renders the one-line textual weather report.
func (s Snapshot) Summary() string {
	if !s.Available {
		return ""
	}
	return fmt.Sprintf("Temperature: %s°C, Humidity: %d%%, Weather: %s, Wind Speed: %s m/s",
		formatFloat(s.Temperature), s.Humidity, s.Description, formatFloat(s.WindSpeed))
}

// SpeechText is the spoken variant of Summary.
func (s Snapshot) SpeechText() string {
	if !s.Available {
		return ""
	}
	return fmt.Sprintf("Temperature: %s degrees Celsius. Humidity: %d percent. Weather: %s. Wind Speed: %s meters per second.",
		formatFloat(s.Temperature), s.Humidity, s.Description, formatFloat(s.WindSpeed))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
