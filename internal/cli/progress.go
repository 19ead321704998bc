package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"segfetch/pkg/segfetch"
)

const progressBarWidth = 24

// progressRenderer prints bus events as headless progress lines. It runs on
// the bus dispatchers, so all state is guarded by mu.
type progressRenderer struct {
	mu       sync.Mutex
	out      io.Writer
	inline   bool
	tasks    map[string]*cliProgressState
	lastLine string
}

type cliProgressState struct {
	filename  string
	parts     int
	started   time.Time
	percent   float64
	lastPrint time.Time
}

func newProgressRenderer(out io.Writer, inline bool) *progressRenderer {
	return &progressRenderer{out: out, inline: inline, tasks: make(map[string]*cliProgressState)}
}

// attach subscribes the renderer to every event kind of c.
func (r *progressRenderer) attach(c *segfetch.Client) func() {
	return c.SubscribeAll(r.handle)
}

func (r *progressRenderer) handle(e segfetch.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch m := e.(type) {
	case segfetch.Start:
		r.finalizeInline()
		r.tasks[m.FileID] = &cliProgressState{
			filename: filepath.Base(m.Destination),
			parts:    m.Parts,
			started:  time.Now(),
		}
		fmt.Fprintf(r.out, "Started: %s [%s] (%d %s)\n", filepath.Base(m.Destination), shortID(m.FileID), m.Parts, plural(m.Parts, "part", "parts"))
	case segfetch.ProgressUpdate:
		st := r.tasks[m.FileID]
		if st == nil {
			return
		}
		st.percent = m.Percent
		now := time.Now()
		if !r.inline && m.Percent < 100 && now.Sub(st.lastPrint) < 750*time.Millisecond {
			return
		}
		st.lastPrint = now
		line := formatProgressLine(st.filename, m.FileID, m.Percent, now.Sub(st.started))
		if r.inline {
			fmt.Fprintf(r.out, "\r%s", line)
			r.lastLine = line
			return
		}
		fmt.Fprintln(r.out, line)
	case segfetch.Finish:
		r.finalizeInline()
		st := r.tasks[m.FileID]
		delete(r.tasks, m.FileID)
		name := shortID(m.FileID)
		elapsed := time.Duration(0)
		if st != nil {
			name = st.filename
			elapsed = time.Since(st.started)
		}
		if m.Status == segfetch.StatusSuccess {
			fmt.Fprintf(r.out, "Completed: %s [%s] (in %s)\n", name, shortID(m.FileID), elapsed.Round(time.Millisecond))
			return
		}
		fmt.Fprintf(r.out, "Failed: %s [%s]\n", name, shortID(m.FileID))
	}
}

func (r *progressRenderer) finalizeInline() {
	if r.lastLine == "" {
		return
	}
	fmt.Fprint(r.out, "\n")
	r.lastLine = ""
}

func formatProgressLine(filename, id string, percent float64, elapsed time.Duration) string {
	bar := renderProgressBar(percent, progressBarWidth)
	return fmt.Sprintf("%s [%s] |%s| %5.1f%% %s", filename, shortID(id), bar, percent, formatElapsed(elapsed))
}

func renderProgressBar(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	fill := int(percent * float64(width) / 100)
	return strings.Repeat("#", fill) + strings.Repeat("-", width-fill)
}

func formatElapsed(d time.Duration) string {
	seconds := int64(d.Seconds())
	if seconds < 3600 {
		return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
