package download

import (
	"math"
	"sync"

	"segfetch/internal/events"
)

// reporter is the only path by which a task publishes events. Progress is
// reported at one-decimal resolution and only when it grows. Once Finish has
// been published the reporter is sealed and drops everything else.
type reporter struct {
	mu     sync.Mutex
	pub    events.Publisher
	fileID string
	last   float64
	sealed bool
}

func newReporter(pub events.Publisher, fileID string) *reporter {
	if pub == nil {
		pub = events.Discard
	}
	return &reporter{pub: pub, fileID: fileID, last: -1}
}

func (r *reporter) start(url, destination string, parts int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return
	}
	r.pub.Publish(events.Start{FileID: r.fileID, URL: url, Destination: destination, Parts: parts})
}

// progress is safe to call from every part worker at once.
func (r *reporter) progress(percent float64) {
	rounded := roundPercent(percent)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed || rounded <= r.last {
		return
	}
	r.last = rounded
	r.pub.Publish(events.ProgressUpdate{FileID: r.fileID, Percent: rounded})
}

func (r *reporter) finish(status events.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return
	}
	r.sealed = true
	r.pub.Publish(events.Finish{FileID: r.fileID, Status: status})
}

// roundPercent truncates to one decimal in [0,100] so 99.97 never shows as 100.
func roundPercent(p float64) float64 {
	if p <= 0 || math.IsNaN(p) {
		return 0
	}
	if p >= 100 {
		return 100
	}
	return math.Floor(p*10) / 10
}
