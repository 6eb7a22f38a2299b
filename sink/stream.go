package sink

import (
	"fmt"
	"os"

	"github.com/mckelvie-org/dg-cat/config"
	"github.com/mckelvie-org/dg-cat/internal/ring"
	"github.com/mckelvie-org/dg-cat/stats"
)

// streamSink is the C7 byte-stream sink, grounded on original_source's
// FileDatagramDestination::copy_from_buffer_queue
// (include/dg_cat/file_datagram_destination.hpp): drain the ring and
// write framed bytes straight through (prefix included, since the
// ring already stores the wire format), coalescing into one write per
// drained batch, then fsync on EOF. Partial writes are retried in a
// loop rather than treated as fatal — the robust variant spec.md §9
// explicitly permits without changing observable output.
type streamSink struct {
	cfg   *config.Config
	f     *os.File
	isStd bool
}

func newStreamSinkStdout(cfg *config.Config) *streamSink {
	return &streamSink{cfg: cfg, f: os.Stdout, isStd: true}
}

func newStreamSinkFile(cfg *config.Config, path string) (*streamSink, error) {
	flags := os.O_WRONLY | os.O_CREATE
	if cfg.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("stream sink: %w", err)
	}
	return &streamSink{cfg: cfg, f: f}, nil
}

func (s *streamSink) CopyFromRing(r *ring.Ring, reg *stats.Registry, warnLog *stats.WarnLog) error {
	defer func() {
		_ = s.f.Sync()
	}()

	buf := make([]byte, s.cfg.MaxWriteSize)
	for {
		batch, err := r.StartConsume(1, len(buf))
		if err != nil {
			return nil
		}
		if batch.Empty() {
			continue
		}
		n := batch.CopyOut(buf)
		if err := writeFully(s.f, buf[:n]); err != nil {
			return fmt.Errorf("stream sink: write: %w", err)
		}
		r.CommitConsume(n)
		// DgDestinationStats is intentionally minimal upstream too: a
		// stream sink's batches don't align to datagram boundaries, so
		// only raw byte throughput is tracked here, not a send count.
		reg.Sink().RecordBytes(n)
	}
}

func writeFully(f *os.File, b []byte) error {
	for len(b) > 0 {
		n, err := f.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func (s *streamSink) Close() error {
	if s.isStd {
		return nil
	}
	return s.f.Close()
}
