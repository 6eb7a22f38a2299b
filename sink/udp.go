package sink

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/mckelvie-org/dg-cat/config"
	"github.com/mckelvie-org/dg-cat/internal/addrutil"
	"github.com/mckelvie-org/dg-cat/internal/dgerr"
	"github.com/mckelvie-org/dg-cat/internal/framing"
	"github.com/mckelvie-org/dg-cat/internal/ring"
	"github.com/mckelvie-org/dg-cat/stats"
)

// udpSink is the C6 UDP sink, grounded on original_source's
// UdpDatagramDestination::copy_from_buffer_queue
// (include/dg_cat/udp_datagram_destination.hpp): connect to the first
// working address candidate, then drain the ring one framed datagram
// at a time, honoring an optional rate limit whose scheduling
// deliberately does not correct for drift ("burst after stall" is
// preserved, per spec.md §9).
type udpSink struct {
	cfg  *config.Config
	conn *net.UDPConn

	nextSend time.Time
	interval time.Duration
}

func newUDPSink(cfg *config.Config, hostport string) (*udpSink, error) {
	candidates, err := addrutil.ResolveUDPCandidates(context.Background(), hostport)
	if err != nil {
		return nil, fmt.Errorf("udp sink: %w", err)
	}
	conn, err := addrutil.ConnectFirstUDP(candidates)
	if err != nil {
		return nil, fmt.Errorf("udp sink: %w", err)
	}
	s := &udpSink{cfg: cfg, conn: conn}
	if cfg.MaxDatagramRate > 0 {
		s.interval = time.Duration(float64(time.Second) / cfg.MaxDatagramRate)
	}
	return s, nil
}

func (s *udpSink) CopyFromRing(r *ring.Ring, reg *stats.Registry, warnLog *stats.WarnLog) error {
	s.nextSend = time.Now()

	// Config.MaxDatagrams is enforced by the source (every source
	// already knows when it has produced one datagram); once the
	// source stops and closes the ring, this loop drains whatever is
	// left and exits cleanly on dgerr.ErrRingClosed.
	for {
		batch, err := r.StartConsume(framing.PrefixLen, framing.PrefixLen)
		if err != nil {
			return nil // ring closed and drained => clean EOF
		}
		if batch.Len() < framing.PrefixLen {
			if warnLog != nil {
				warnLog.Add("unexpected eof with partial datagram")
			}
			return dgerr.ErrPartialFrame
		}
		var hdr [framing.PrefixLen]byte
		batch.CopyOut(hdr[:])
		dgLen := int(framing.DecodePrefix(hdr[:]))

		full, err := r.StartConsume(framing.PrefixLen+dgLen, framing.PrefixLen+dgLen)
		if err != nil || full.Len() < framing.PrefixLen+dgLen {
			if warnLog != nil {
				warnLog.Add("unexpected eof with partial datagram")
			}
			return dgerr.ErrPartialFrame
		}

		payload := make([]byte, dgLen)
		tmp := make([]byte, framing.PrefixLen+dgLen)
		full.CopyOut(tmp)
		copy(payload, tmp[framing.PrefixLen:])

		if s.interval > 0 {
			if now := time.Now(); now.Before(s.nextSend) {
				time.Sleep(s.nextSend.Sub(now))
			}
		}
		if _, err := s.conn.Write(payload); err != nil {
			return fmt.Errorf("udp sink: write: %w", err)
		}
		if s.interval > 0 {
			s.nextSend = s.nextSend.Add(s.interval) // no catch-up, by design
		}

		r.CommitConsume(framing.PrefixLen + dgLen)
		reg.Sink().RecordSend(dgLen)
	}
}

func (s *udpSink) Close() error {
	return s.conn.Close()
}
