package observability

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

var startTime = time.Now()

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[92m"
	colorYellow = "\033[93m"
	colorRed    = "\033[91m"
	colorBrown  = "\033[33m"
)

var sproutFrames = []string{".", "o", "O", "@"}
var sproutIdx = 0

// termMu synchronizes ALL terminal output so that the cursor
// save/restore in PrintLiveStatus can never be interrupted by a log write.
var termMu sync.Mutex

func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return w
}

// termWriter is a mutex-guarded io.Writer for log output.
type termWriter struct {
	out io.Writer
}

func (tw termWriter) Write(p []byte) (n int, err error) {
	termMu.Lock()
	defer termMu.Unlock()
	return tw.out.Write(p)
}

// NewTermWriter returns an io.Writer for log output that is serialised with
// PrintLiveStatus.
func NewTermWriter() io.Writer {
	return termWriter{out: os.Stderr}
}

func PrintBanner() {
	fmt.Print("\033[2J\033[H")

	banner := `
    _                          _
   /_\  __ _ _ _ ___ _ __| |__ _ _ _
  / _ \/ _' | '_/ _ \ '_ \ / _' | ' \
 /_/ \_\__, |_| \___/ .__/_\__,_|_||_|
       |___/        |_|

      >> PLANTING CALENDARS AND FIELD ADVICE <<
`

	width := termWidth()
	for _, l := range strings.Split(banner, "\n") {
		padding := (width - len(l)) / 2
		if padding < 0 {
			padding = 0
		}
		fmt.Printf("%s%s%s\n", strings.Repeat(" ", padding), colorGreen+l, colorReset)
	}
}

func InitializeTerminal() {
	// Banner: 1-9, status: 10, logs scroll from 12.
	fmt.Print("\033[12;r")
	fmt.Print("\033[12;1H")
}

func CleanupTerminal() {
	fmt.Print("\033[r\033[2J\033[H")
}

// PrintLiveStatus redraws the single status line under the banner.
func PrintLiveStatus() {
	line := statusLine(time.Now())

	termMu.Lock()
	fmt.Print(line)
	termMu.Unlock()
}

func statusLine(now time.Time) string {
	stage, run, active, lastHB := GetStatus()

	pulseText, pulseColor := "OFFLINE", colorRed
	switch delta := now.Sub(lastHB); {
	case delta < 40*time.Second:
		pulseText, pulseColor = "HEALTHY", colorGreen
	case delta < 90*time.Second:
		pulseText, pulseColor = "LAGGING", colorYellow
	}

	sprout := " "
	if stage != StageIdle {
		sprout = sproutFrames[sproutIdx]
		sproutIdx = (sproutIdx + 1) % len(sproutFrames)
	}

	if run == "" {
		run = "waiting..."
	}
	if len(run) > 12 {
		run = run[:8] + "..."
	}

	uptime := now.Sub(startTime).Round(time.Second)

	return fmt.Sprintf(
		"\033[s\033[10;1H\033[K%s[%s] %s%-8s%s | %s%-9s%s %s [%s] runs:%d [%v]\033[u",
		colorReset,
		lastHB.Format("15:04:05"),
		pulseColor, pulseText, colorReset,
		colorBrown, stage, colorReset,
		sprout,
		run,
		active,
		uptime,
	)
}
