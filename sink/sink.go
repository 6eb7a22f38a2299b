// Package sink implements the C6/C7 datagram sinks: UDP socket and
// byte-stream file/pipe, grounded on original_source's
// UdpDatagramDestination and FileDatagramDestination
// (include/dg_cat/udp_datagram_destination.hpp,
// include/dg_cat/file_datagram_destination.hpp).
package sink

import (
	"fmt"
	"strings"

	"github.com/mckelvie-org/dg-cat/config"
	"github.com/mckelvie-org/dg-cat/internal/dgerr"
	"github.com/mckelvie-org/dg-cat/internal/ring"
	"github.com/mckelvie-org/dg-cat/stats"
)

// Sink is implemented by every datagram sink: it drains r until EOF,
// writing to the underlying transport.
type Sink interface {
	// CopyFromRing runs the sink's drain loop until the ring reaches
	// EOF and is empty, or an error occurs.
	CopyFromRing(r *ring.Ring, reg *stats.Registry, warnLog *stats.WarnLog) error

	Close() error
}

// Open parses cfg.Dst and constructs the corresponding Sink, matching
// the same endpoint grammar as source.Open.
func Open(cfg *config.Config) (Sink, error) {
	endpoint := cfg.Dst
	switch {
	case endpoint == "-" || endpoint == "stdout":
		return newStreamSinkStdout(cfg), nil
	case strings.HasPrefix(endpoint, "udp://"):
		return newUDPSink(cfg, strings.TrimPrefix(endpoint, "udp://"))
	case strings.HasPrefix(endpoint, "file://"):
		return newStreamSinkFile(cfg, strings.TrimPrefix(endpoint, "file://"))
	default:
		if !strings.Contains(endpoint, "://") {
			return newStreamSinkFile(cfg, endpoint)
		}
		return nil, fmt.Errorf("sink %q: %w", endpoint, dgerr.ErrUnknownEndpoint)
	}
}
