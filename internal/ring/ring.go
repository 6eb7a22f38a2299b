// Package ring implements the bounded single-producer/single-consumer
// byte ring used as the backlog between a datagram source and a
// datagram sink. It is deliberately a mutex-and-condition-variable
// design, not a lock-free cell ring: the producer must be able to
// commit a length prefix and its payload as one atomic unit, which a
// lock-free ring of independently-sequenced cells cannot express.
package ring

import (
	"sync"

	"github.com/mckelvie-org/dg-cat/internal/dgerr"
)

// Batch describes a contiguous or wrapped view into the ring's backing
// array, analogous to a two-element struct iovec: First is always
// present (possibly empty), Second is non-empty only when the view
// wraps past the end of the backing array.
type Batch struct {
	First  []byte
	Second []byte
}

// Len returns the total number of bytes described by the batch.
func (b Batch) Len() int { return len(b.First) + len(b.Second) }

// Empty reports whether the batch describes zero bytes.
func (b Batch) Empty() bool { return len(b.First) == 0 && len(b.Second) == 0 }

// Stats is a point-in-time snapshot of backlog occupancy. Sources pass
// Used to stats.RingStats.RecordBacklog after each commit, and the
// copier reads it for the live backlog metric.
type Stats struct {
	Capacity       int
	Used           int
	MaxBacklogUsed int
}

// Ring is a fixed-capacity byte ring with condition-variable-gated
// producer/consumer handoff, grounded on original_source's
// BufferQueue (include/dg_cat/buffer_queue.hpp).
type Ring struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	buf  []byte
	head int // next write position
	tail int // next read position
	used int

	eof         bool
	maxUsedSeen int

	discarded int
}

// New allocates a ring with the given byte capacity. Capacity must be
// at least large enough to hold one maximum-size reservation; callers
// enforce that via config.Validate before constructing the ring.
func New(capacity int) *Ring {
	r := &Ring{buf: make([]byte, capacity)}
	r.notFull = sync.NewCond(&r.mu)
	r.notEmpty = sync.NewCond(&r.mu)
	return r
}

// Cap returns the ring's total byte capacity.
func (r *Ring) Cap() int { return len(r.buf) }

// Reserve blocks the producer until at least nMin contiguous-or-wrapped
// bytes of free space are available, or the ring has been closed for
// writing by a concurrent SetEOF (which never happens from the producer
// side in practice, but is handled defensively), returning a Batch the
// caller fills before calling CommitProduce. Reserve never blocks past
// ring capacity: nMin must be <= Cap(), checked by the caller.
func (r *Ring) Reserve(nMin int) Batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.freeLocked() < nMin && !r.eof {
		r.notFull.Wait()
	}
	return r.freeBatchLocked()
}

// CommitProduce advances the write cursor by n bytes, which must have
// been written into the slices returned by the most recent Reserve
// call, and wakes any consumer blocked in StartConsume.
func (r *Ring) CommitProduce(n int) {
	r.mu.Lock()
	r.head = (r.head + n) % len(r.buf)
	r.used += n
	if r.used > r.maxUsedSeen {
		r.maxUsedSeen = r.used
	}
	r.mu.Unlock()
	r.notEmpty.Broadcast()
}

// RecordDiscarded increments the count of datagrams the producer threw
// away before they reached the ring (e.g. MSG_TRUNC/ancillary-only
// receives), for stats purposes only.
func (r *Ring) RecordDiscarded(n int) {
	r.mu.Lock()
	r.discarded += n
	r.mu.Unlock()
}

// SetEOF marks the ring as closed for further production. Any consumer
// blocked in StartConsume is woken; once all remaining bytes are
// drained, StartConsume returns dgerr.ErrRingClosed.
func (r *Ring) SetEOF() {
	r.mu.Lock()
	r.eof = true
	r.mu.Unlock()
	r.notEmpty.Broadcast()
	r.notFull.Broadcast()
}

// IsEOF reports whether SetEOF has been called.
func (r *Ring) IsEOF() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eof
}

// StartConsume blocks until at least nMin bytes are available or the
// ring is at EOF, returning up to nMax bytes as a Batch. If EOF has
// been reached and fewer than nMin bytes remain permanently (no more
// will ever arrive), it returns whatever is left (possibly empty) with
// a nil error; callers distinguish a genuine short-by-design drain from
// a protocol violation themselves, matching spec.md's framing checks.
func (r *Ring) StartConsume(nMin, nMax int) (Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.used < nMin && !r.eof {
		r.notEmpty.Wait()
	}
	if r.used == 0 && r.eof {
		return Batch{}, dgerr.ErrRingClosed
	}
	n := r.used
	if n > nMax {
		n = nMax
	}
	return r.usedBatchLocked(n), nil
}

// CommitConsume advances the read cursor by n bytes, which must have
// been fully consumed from the slices returned by the most recent
// StartConsume call, and wakes any producer blocked in Reserve.
func (r *Ring) CommitConsume(n int) {
	r.mu.Lock()
	r.tail = (r.tail + n) % len(r.buf)
	r.used -= n
	r.mu.Unlock()
	r.notFull.Broadcast()
}

// Snapshot returns a point-in-time occupancy snapshot.
func (r *Ring) Snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Capacity:       len(r.buf),
		Used:           r.used,
		MaxBacklogUsed: r.maxUsedSeen,
	}
}

// Discarded returns the number of datagrams recorded via
// RecordDiscarded.
func (r *Ring) Discarded() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.discarded
}

func (r *Ring) freeLocked() int { return len(r.buf) - r.used }

// freeBatchLocked returns the writable region starting at head, split
// at the backing array's end if the free region wraps.
func (r *Ring) freeBatchLocked() Batch {
	free := r.freeLocked()
	if free == 0 {
		return Batch{}
	}
	end := len(r.buf) - r.head
	if free <= end {
		return Batch{First: r.buf[r.head : r.head+free]}
	}
	return Batch{First: r.buf[r.head:], Second: r.buf[:free-end]}
}

// usedBatchLocked returns the readable region starting at tail, up to
// n bytes, split at the backing array's end if it wraps.
func (r *Ring) usedBatchLocked(n int) Batch {
	if n == 0 {
		return Batch{}
	}
	end := len(r.buf) - r.tail
	if n <= end {
		return Batch{First: r.buf[r.tail : r.tail+n]}
	}
	return Batch{First: r.buf[r.tail:], Second: r.buf[:n-end]}
}

// CopyInto writes src into the batch returned by Reserve, splitting
// across First/Second as needed, and returns the number of bytes
// written (always len(src); src must not exceed the reservation).
func (b Batch) CopyInto(src []byte) int {
	n := copy(b.First, src)
	if n < len(src) {
		n += copy(b.Second, src[n:])
	}
	return n
}

// CopyOut reads up to len(dst) bytes out of the batch into dst and
// returns the number of bytes copied.
func (b Batch) CopyOut(dst []byte) int {
	n := copy(dst, b.First)
	if n < len(dst) {
		n += copy(dst[n:], b.Second)
	}
	return n
}
