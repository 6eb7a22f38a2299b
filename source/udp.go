package source

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/mckelvie-org/dg-cat/config"
	"github.com/mckelvie-org/dg-cat/internal/addrutil"
	"github.com/mckelvie-org/dg-cat/internal/dgerr"
	"github.com/mckelvie-org/dg-cat/internal/framing"
	"github.com/mckelvie-org/dg-cat/internal/ring"
	"github.com/mckelvie-org/dg-cat/internal/rxbuf"
	"github.com/mckelvie-org/dg-cat/stats"
)

// udpSource is the C3 UDP source, grounded on original_source's
// UdpDatagramSource (include/dg_cat/udp_datagram_source.hpp): bind to
// the first working address candidate, then batch-receive into
// preallocated slots with a timeout that switches from StartTimeout
// (before the first datagram) to EOFTimeout (afterward).
type udpSource struct {
	cfg  *config.Config
	pool *rxbuf.Pool
	conn *net.UDPConn

	mu              sync.Mutex
	force           bool
	portableTimeout time.Duration // applied via conn.SetReadDeadline by both platforms' recvBatch
}

// maxDatagramsReached reports whether cfg.MaxDatagrams (spec.md §3,
// <=0 means unlimited) has already been hit. Enforced in the source
// (every source already knows when it has produced one datagram)
// rather than in the sink, so the cap applies uniformly regardless of
// destination type.
func maxDatagramsReached(cfg *config.Config, produced int64) bool {
	return cfg.MaxDatagrams > 0 && produced >= cfg.MaxDatagrams
}

func newUDPSource(cfg *config.Config, hostport string) (*udpSource, error) {
	if !hasColon(hostport) {
		hostport = ":" + hostport
	}
	candidates, err := addrutil.ResolveUDPCandidates(context.Background(), hostport)
	if err != nil {
		return nil, fmt.Errorf("udp source: %w", err)
	}
	conn, err := addrutil.BindFirstUDP(candidates)
	if err != nil {
		return nil, fmt.Errorf("udp source: %w", err)
	}
	return &udpSource{
		cfg:  cfg,
		pool: rxbuf.New(cfg.MaxDatagramSize),
		conn: conn,
	}, nil
}

func hasColon(s string) bool {
	for _, c := range s {
		if c == ':' {
			return true
		}
	}
	return false
}

// recvdDatagram describes one datagram decoded out of a batch receive.
type recvdDatagram struct {
	buf []byte
	n   int
}

// CopyToRing implements Source.
//
// The receive timeout actually handed to the socket is clamped to
// PollingInterval: original_source's --polling-interval names the
// quantum at which a blocked recvmmsg wakes up to re-check force_eof,
// distinct from --eof-timeout/--start-timeout, which name how long of
// silence means end-of-stream. We poll in PollingInterval-sized steps
// and track the deadline ourselves so ForceEOF's descriptor close is
// noticed within one polling quantum even when eof_timeout is large.
func (s *udpSource) CopyToRing(r *ring.Ring, reg *stats.Registry, warnLog *stats.WarnLog) error {
	defer r.SetEOF()

	var lastTimeout time.Duration = -1
	var deadline time.Time
	var produced int64
	eofTimeout := s.cfg.StartTimeout
	if eofTimeout > 0 {
		deadline = time.Now().Add(eofTimeout)
	}

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
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return nil
		}

		quantum := s.cfg.PollingInterval
		if !deadline.IsZero() {
			if remaining := time.Until(deadline); remaining < quantum {
				quantum = remaining
			}
		}
		if quantum <= 0 {
			quantum = time.Millisecond
		}
		if quantum != lastTimeout {
			if err := s.setRecvTimeout(quantum); err != nil {
				return fmt.Errorf("udp source: set recv timeout: %w", err)
			}
			lastTimeout = quantum
		}

		dgs, discarded, err := s.recvBatch()
		if err != nil {
			s.mu.Lock()
			forcedNow := s.force
			s.mu.Unlock()
			if forcedNow || errors.Is(err, dgerr.ErrForceEOF) {
				// ForceEOF closed the descriptor out from under a
				// blocked recv; that's an expected shutdown signal,
				// not a failure, matching UdpDatagramSource::force_eof
				// checking _force_eof before rethrowing a socket error.
				return nil
			}
			if isTimeoutErr(err) {
				if !deadline.IsZero() && !time.Now().Before(deadline) {
					return nil // configured timeout elapsed with no traffic => EOF
				}
				continue
			}
			return fmt.Errorf("udp source: recv: %w", err)
		}
		if discarded > 0 {
			r.RecordDiscarded(discarded)
			reg.Ring().RecordDiscarded(int64(discarded))
			if warnLog != nil {
				warnLog.Add(fmt.Sprintf("discarded %d ancillary/truncated datagrams", discarded))
			}
		}
		if len(dgs) == 0 {
			continue
		}

		if len(dgs) > 1 && len(dgs) == s.cfg.MaxIovecs && warnLog != nil {
			warnLog.Add(fmt.Sprintf("batch filled max_iovecs (%d); datagrams may have been waiting", s.cfg.MaxIovecs))
		}

		now := time.Now()
		committed := 0
		for _, dg := range dgs {
			if maxDatagramsReached(s.cfg, produced) {
				s.pool.Put(dg.buf)
				continue
			}
			if err := s.commitOne(r, reg, dg); err != nil {
				return err
			}
			produced++
			committed++
		}
		if committed > 0 {
			reg.Source().RecordBatch(committed, now)
		}
		if s.cfg.EOFTimeout > 0 {
			deadline = now.Add(s.cfg.EOFTimeout)
		} else {
			deadline = time.Time{}
		}
	}
}

func (s *udpSource) commitOne(r *ring.Ring, reg *stats.Registry, dg recvdDatagram) error {
	if dg.n > s.cfg.MaxDatagramSize {
		return fmt.Errorf("udp source: %w (%d bytes)", dgerr.ErrDatagramTooLarge, dg.n)
	}
	total := framing.PrefixLen + dg.n
	batch := r.Reserve(total)
	hdr := [framing.PrefixLen]byte{}
	framing.EncodePrefix(hdr[:], uint32(dg.n))
	written := batch.CopyInto(hdr[:])
	batch2 := shrinkBatch(batch, written)
	batch2.CopyInto(dg.buf[:dg.n])
	r.CommitProduce(total)
	reg.Ring().RecordDatagram(dg.n)
	reg.Ring().RecordBacklog(r.Snapshot().Used)
	s.pool.Put(dg.buf)
	return nil
}

// shrinkBatch returns the tail of a Batch after skipping n bytes
// already written, so a second CopyInto call continues where the
// first left off (used to write the length prefix, then the payload,
// into the same reservation).
func shrinkBatch(b ring.Batch, n int) ring.Batch {
	if n <= len(b.First) {
		return ring.Batch{First: b.First[n:], Second: b.Second}
	}
	n -= len(b.First)
	return ring.Batch{First: b.Second[n:]}
}

func (s *udpSource) ForceEOF() {
	s.mu.Lock()
	s.force = true
	s.mu.Unlock()
	_ = s.conn.Close()
}

func (s *udpSource) Close() error {
	return s.conn.Close()
}

func isTimeoutErr(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}
