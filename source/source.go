// Package source implements the C3/C4/C5 datagram sources: UDP socket,
// byte-stream file/pipe, and a synthetic random generator. Each
// produces framed datagrams into the shared ring.Ring, grounded on
// original_source's UdpDatagramSource, FileDatagramSource, and
// RandomDatagramSource (include/dg_cat/*.hpp).
package source

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/mckelvie-org/dg-cat/config"
	"github.com/mckelvie-org/dg-cat/internal/dgerr"
	"github.com/mckelvie-org/dg-cat/internal/ring"
	"github.com/mckelvie-org/dg-cat/stats"
)

// Source is implemented by every datagram source: it drains into r
// until exhausted or force-stopped, recording into reg/warnLog as it
// goes.
type Source interface {
	// CopyToRing runs the source's receive loop until EOF or error.
	// It calls r.SetEOF() before returning, matching the original's
	// contract that the producer side always marks EOF on exit
	// (datagram_copier.hpp's thread body).
	CopyToRing(r *ring.Ring, reg *stats.Registry, warnLog *stats.WarnLog) error

	// ForceEOF asks the source to stop as soon as possible, matching
	// DatagramSource::force_eof.
	ForceEOF()

	Close() error
}

// Open parses cfg.Src and constructs the corresponding Source,
// matching the endpoint URI grammar of spec.md §6: udp://[addr:]port,
// file://path or a bare path, random://?n=&min_size=&max_size=&seed=,
// and stdin/-.
func Open(cfg *config.Config) (Source, error) {
	endpoint := cfg.Src
	switch {
	case endpoint == "-" || endpoint == "stdin":
		return newStreamSourceStdin(cfg), nil
	case strings.HasPrefix(endpoint, "udp://"):
		return newUDPSource(cfg, strings.TrimPrefix(endpoint, "udp://"))
	case strings.HasPrefix(endpoint, "random://"):
		return newRandomSource(cfg, strings.TrimPrefix(endpoint, "random://"))
	case strings.HasPrefix(endpoint, "file://"):
		return newStreamSourceFile(cfg, strings.TrimPrefix(endpoint, "file://"))
	default:
		if _, err := url.Parse(endpoint); err == nil && !strings.Contains(endpoint, "://") {
			return newStreamSourceFile(cfg, endpoint)
		}
		return nil, fmt.Errorf("source %q: %w", endpoint, dgerr.ErrUnknownEndpoint)
	}
}
