//go:build linux

// Linux UDP source receive path: batch receive via unix.Recvmmsg under
// a net.Conn read deadline, grounded on original_source's
// UdpDatagramSource::copy_to_buffer_queue (recvmmsg bounded by a
// socket timeout) and on the teacher's own syscall idiom in
// internal/transport/transport_linux.go.
//
// The deadline is applied via conn.SetReadDeadline rather than
// SO_RCVTIMEO: Go's runtime always puts a net.UDPConn's descriptor in
// non-blocking mode, so SO_RCVTIMEO never has any effect on it — a
// non-blocking Recvmmsg just returns EAGAIN immediately regardless of
// what the socket option is set to. Returning false from the
// rawConn.Read callback on EAGAIN hands control back to the runtime
// poller, which parks the calling goroutine until the descriptor is
// actually readable or the deadline set by SetReadDeadline elapses —
// the genuine suspension spec.md §5 requires, instead of a busy-spin
// that repeatedly calls Recvmmsg until time.Now() catches up.
package source

import (
	"time"

	"golang.org/x/sys/unix"
)

func (s *udpSource) setRecvTimeout(d time.Duration) error {
	s.portableTimeout = d
	return nil
}

// recvBatch performs one unix.Recvmmsg call into s.cfg.MaxIovecs
// preallocated slots, discarding MSG_TRUNC/ancillary-only entries the
// way BufferQueue::producer_commit_batch does.
func (s *udpSource) recvBatch() ([]recvdDatagram, int, error) {
	n := s.cfg.MaxIovecs
	bufs := s.pool.GetN(n)
	msgs := make([]unix.Iovec, n)
	hdrs := make([]unix.Mmsghdr, n)
	for i := range bufs {
		msgs[i] = unix.Iovec{Base: &bufs[i][0]}
		msgs[i].SetLen(len(bufs[i]))
		hdrs[i].Hdr.Iov = &msgs[i]
		hdrs[i].Hdr.Iovlen = 1
	}

	if err := s.conn.SetReadDeadline(time.Now().Add(s.portableTimeout)); err != nil {
		return nil, 0, err
	}

	rawConn, err := s.conn.SyscallConn()
	if err != nil {
		return nil, 0, err
	}
	var (
		recvd   int
		recvErr error
	)
	err = rawConn.Read(func(fd uintptr) bool {
		recvd, recvErr = unix.Recvmmsg(int(fd), hdrs, unix.MSG_WAITFORONE, nil)
		if recvErr == unix.EAGAIN || recvErr == unix.EWOULDBLOCK {
			return false // not actually readable; let the poller park us until it is, or until the deadline
		}
		if recvErr == unix.EINTR {
			return false // ask the poller to retry
		}
		return true
	})
	if err != nil {
		// The read deadline elapsed while parked in the poller; err is
		// the poller's own net.Error with Timeout() == true.
		return nil, 0, err
	}
	if recvErr != nil {
		return nil, 0, recvErr
	}

	out := make([]recvdDatagram, 0, recvd)
	discarded := 0
	for i := 0; i < recvd; i++ {
		if hdrs[i].Hdr.Flags&(unix.MSG_TRUNC|unix.MSG_ERRQUEUE|unix.MSG_OOB) != 0 {
			discarded++
			s.pool.Put(bufs[i])
			continue
		}
		out = append(out, recvdDatagram{buf: bufs[i], n: int(hdrs[i].Len)})
	}
	for i := recvd; i < n; i++ {
		s.pool.Put(bufs[i])
	}
	return out, discarded, nil
}
