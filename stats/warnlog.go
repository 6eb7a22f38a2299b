// WarnLog keeps a bounded history of recent protocol-warning strings
// (truncated datagrams, discarded ancillary data, unexpected EOF with a
// partial frame — the "Protocol" class of errors in spec.md §7),
// surfaced alongside the Stats snapshot on SIGUSR1.
//
// Backed by github.com/eapache/queue, the teacher's own choice of ring
// deque for exactly this shape of problem — declared in its go.mod but
// never imported anywhere in its own source.
package stats

import (
	"sync"
	"time"

	"github.com/eapache/queue"
)

// WarnEntry is one recorded warning.
type WarnEntry struct {
	At      time.Time
	Message string
}

// WarnLog is a fixed-capacity ring of the most recent WarnEntry values.
type WarnLog struct {
	mu       sync.Mutex
	q        *queue.Queue
	capacity int
}

// NewWarnLog creates a WarnLog retaining at most capacity entries.
func NewWarnLog(capacity int) *WarnLog {
	if capacity <= 0 {
		capacity = 32
	}
	return &WarnLog{q: queue.New(), capacity: capacity}
}

// Add appends a warning, evicting the oldest entry if at capacity.
func (w *WarnLog) Add(message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.q.Add(WarnEntry{At: time.Now(), Message: message})
	for w.q.Length() > w.capacity {
		w.q.Remove()
	}
}

// Recent returns a copy of the currently retained warnings, oldest
// first.
func (w *WarnLog) Recent() []WarnEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := w.q.Length()
	out := make([]WarnEntry, n)
	for i := 0; i < n; i++ {
		out[i] = w.q.Get(i).(WarnEntry)
	}
	return out
}
