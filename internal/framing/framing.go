// Package framing implements the wire framing dg-cat uses on
// byte-stream transports: a 4-byte big-endian length prefix followed by
// exactly that many payload bytes, matching original_source's
// htonl/ntohl prefix convention (include/dg_cat/buffer_queue.hpp,
// file_datagram_source.hpp). UDP transports carry one datagram per
// packet and need no framing at all.
package framing

import (
	"encoding/binary"

	"github.com/mckelvie-org/dg-cat/internal/dgerr"
)

// PrefixLen is the size in bytes of the length prefix.
const PrefixLen = 4

// EncodePrefix writes the big-endian length prefix for a payload of n
// bytes into dst, which must be at least PrefixLen bytes.
func EncodePrefix(dst []byte, n uint32) {
	binary.BigEndian.PutUint32(dst, n)
}

// DecodePrefix reads a big-endian length prefix from src, which must be
// at least PrefixLen bytes.
func DecodePrefix(src []byte) uint32 {
	return binary.BigEndian.Uint32(src)
}

// CheckLength validates a decoded payload length against the
// configured maximum datagram size, returning dgerr.ErrDatagramTooLarge
// if it is exceeded.
func CheckLength(n uint32, maxDatagramSize int) error {
	if int64(n) > int64(maxDatagramSize) {
		return dgerr.ErrDatagramTooLarge
	}
	return nil
}

// TotalLength sums the lengths of a set of buffers, the Go analogue of
// totalling an iovec array before a writev/sendmsg call.
func TotalLength(bufs ...[]byte) int {
	total := 0
	for _, b := range bufs {
		total += len(b)
	}
	return total
}
