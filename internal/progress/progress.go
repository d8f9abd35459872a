package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Bar renders fingerprinting progress on a single terminal line.
type Bar struct {
	total      int64
	current    int64
	skipped    int64
	width      int
	writer     io.Writer
	mu         sync.Mutex
	lastDir    string
	enabled    bool
	lastUpdate time.Time
}

// New returns a bar writing to w. Output is suppressed unless w is a
// terminal.
func New(w io.Writer) *Bar {
	return &Bar{
		width:      40,
		writer:     w,
		enabled:    isTerminal(w),
		lastUpdate: time.Now(),
	}
}

// NewForced returns a bar that always renders, regardless of w.
func NewForced(w io.Writer) *Bar {
	b := New(w)
	b.enabled = true
	return b
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fileInfo, err := f.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// SetTotal sets the number of files that will be fingerprinted.
func (b *Bar) SetTotal(total int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.total = total
	b.current = 0
	b.skipped = 0
}

// Increment marks one file as done. failed files are counted as skipped.
func (b *Bar) Increment(path string, failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current++
	if failed {
		b.skipped++
	}
	b.lastDir = filepath.Dir(path)

	if !b.enabled {
		return
	}

	// at most every 100ms
	now := time.Now()
	if now.Sub(b.lastUpdate) > 100*time.Millisecond || b.current == b.total {
		b.lastUpdate = now
		b.render()
	}
}

// Current returns the number of files done so far.
func (b *Bar) Current() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// render must be called with mu already locked
func (b *Bar) render() {
	if b.total == 0 {
		return
	}

	percent := float64(b.current) / float64(b.total) * 100
	filledWidth := int(float64(b.width) * float64(b.current) / float64(b.total))

	if filledWidth > b.width {
		filledWidth = b.width
	}

	bar := strings.Repeat("█", filledWidth) + strings.Repeat("░", b.width-filledWidth)

	var extra string
	if b.skipped > 0 {
		extra = fmt.Sprintf(" | %d skipped", b.skipped)
	}
	if b.lastDir != "" {
		extra += " | " + filepath.Base(b.lastDir)
	}

	fmt.Fprintf(b.writer, "\r\033[K[%s] %3d%% (%d/%d)%s",
		bar, int(percent), b.current, b.total, extra)
}

// Finish clears the progress line.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.enabled || b.total == 0 {
		return
	}
	b.render()
	fmt.Fprintf(b.writer, "\n")
}
