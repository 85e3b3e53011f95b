package calendar

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"time"
)

// Header is the first row of the exported file.
var Header = []string{"Date", "Task", "Details", "Tips"}

// WriteCSV writes the header row followed by one row per entry.
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, e := range entries {
		if err := cw.Write([]string{e.Date, e.Task, e.Details, e.Tip}); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSV returns the export as bytes, for attaching to a chat message.
func CSV(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileName is the suggested download name for a crop's calendar.
func FileName(crop string, day time.Time) string {
	name := []rune{}
	for _, r := range crop {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			name = append(name, r)
		case r == ' ' || r == '-' || r == '_':
			name = append(name, '_')
		}
	}
	if len(name) == 0 {
		name = []rune("crop")
	}
	return fmt.Sprintf("%s_calendar_%s.csv", string(name), day.Format("2006-01-02"))
}
