package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mckelvie-org/dg-cat/config"
	"github.com/mckelvie-org/dg-cat/internal/dgerr"
	"github.com/mckelvie-org/dg-cat/internal/framing"
	"github.com/mckelvie-org/dg-cat/internal/ring"
	"github.com/mckelvie-org/dg-cat/stats"
)

// streamSource is the C4 byte-stream source: reads raw bytes, carves
// out framed datagrams front-to-back, and keeps any residual partial
// frame for the next read, grounded on original_source's
// FileDatagramSource::copy_to_buffer_queue
// (include/dg_cat/file_datagram_source.hpp).
type streamSource struct {
	cfg   *config.Config
	f     *os.File
	isStd bool

	mu    sync.Mutex
	force bool
}

func newStreamSourceStdin(cfg *config.Config) *streamSource {
	return &streamSource{cfg: cfg, f: os.Stdin, isStd: true}
}

func newStreamSourceFile(cfg *config.Config, path string) (*streamSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("stream source: %w", err)
	}
	return &streamSource{cfg: cfg, f: f}, nil
}

func (s *streamSource) CopyToRing(r *ring.Ring, reg *stats.Registry, warnLog *stats.WarnLog) error {
	defer r.SetEOF()

	buf := make([]byte, 0, s.cfg.MaxReadSize)
	nMin := framing.PrefixLen
	var produced int64

	for {
		s.mu.Lock()
		forced := s.force
		s.mu.Unlock()
		if forced {
			return nil
		}
		if maxDatagramsReached(s.cfg, produced) {
			return nil
		}

		if cap(buf)-len(buf) < nMin {
			grown := make([]byte, len(buf), len(buf)+nMin)
			copy(grown, buf)
			buf = grown
		}
		readSlice := buf[len(buf):cap(buf)]
		n, err := s.f.Read(readSlice)
		if n > 0 {
			buf = buf[:len(buf)+n]
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(buf) != 0 {
					if warnLog != nil {
						warnLog.Add("unexpected eof with partial datagram")
					}
					return dgerr.ErrPartialFrame
				}
				return nil
			}
			return fmt.Errorf("stream source: read: %w", err)
		}
		if n == 0 {
			continue
		}
		if len(buf) < nMin {
			continue
		}

		carved := 0
		off := 0
		for off+framing.PrefixLen <= len(buf) {
			if maxDatagramsReached(s.cfg, produced) {
				return nil
			}
			dgLen := int(framing.DecodePrefix(buf[off:]))
			if err := framing.CheckLength(uint32(dgLen), s.cfg.MaxDatagramSize); err != nil {
				return fmt.Errorf("stream source: %w", err)
			}
			total := framing.PrefixLen + dgLen
			if off+total > len(buf) {
				nMin = total
				break
			}
			if err := s.commitFrame(r, reg, buf[off+framing.PrefixLen:off+total]); err != nil {
				return err
			}
			off += total
			carved++
			produced++
			nMin = framing.PrefixLen
		}
		if carved == 0 {
			continue
		}
		remaining := copy(buf, buf[off:])
		buf = buf[:remaining]
	}
}

func (s *streamSource) commitFrame(r *ring.Ring, reg *stats.Registry, payload []byte) error {
	total := framing.PrefixLen + len(payload)
	batch := r.Reserve(total)
	var hdr [framing.PrefixLen]byte
	framing.EncodePrefix(hdr[:], uint32(len(payload)))
	n := batch.CopyInto(hdr[:])
	rest := shrinkBatch(batch, n)
	rest.CopyInto(payload)
	r.CommitProduce(total)
	reg.Ring().RecordDatagram(len(payload))
	reg.Ring().RecordBacklog(r.Snapshot().Used)
	reg.Source().RecordBatch(1, time.Now())
	return nil
}

func (s *streamSource) ForceEOF() {
	s.mu.Lock()
	s.force = true
	s.mu.Unlock()
	if !s.isStd {
		_ = s.f.Close()
	}
}

func (s *streamSource) Close() error {
	if s.isStd {
		return nil
	}
	return s.f.Close()
}
