package source

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mckelvie-org/dg-cat/config"
	"github.com/mckelvie-org/dg-cat/internal/dgerr"
	"github.com/mckelvie-org/dg-cat/internal/framing"
	"github.com/mckelvie-org/dg-cat/internal/ring"
	"github.com/mckelvie-org/dg-cat/stats"
)

const defaultMaxRandomSize = 1472

// randomSource is the C5 synthetic generator, grounded on
// original_source's RandomDatagramSource
// (include/dg_cat/random_datagram_source.hpp): a query string of
// n/min_size/max_size/seed, unknown keys rejected outright.
type randomSource struct {
	cfg *config.Config
	rng *rand.Rand

	n       int64 // <=0 => unlimited
	minSize int
	maxSize int

	mu    sync.Mutex
	force bool
}

func newRandomSource(cfg *config.Config, query string) (*randomSource, error) {
	query = strings.TrimPrefix(query, "?")
	rs := &randomSource{
		cfg:     cfg,
		n:       -1,
		minSize: 0,
		maxSize: defaultMaxRandomSize,
	}
	var seed uint64
	if query != "" {
		for _, kv := range strings.Split(query, "&") {
			if kv == "" {
				continue
			}
			parts := strings.SplitN(kv, "=", 2)
			if len(parts) != 2 {
				return nil, fmt.Errorf("random source: missing '=' in %q: %w", kv, dgerr.ErrUnknownEndpoint)
			}
			key, val := parts[0], parts[1]
			iv, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("random source: invalid value for %q: %w", key, err)
			}
			switch key {
			case "n":
				rs.n = iv
			case "min_size":
				rs.minSize = int(iv)
			case "max_size":
				rs.maxSize = int(iv)
			case "seed":
				seed = uint64(iv)
			default:
				return nil, fmt.Errorf("random source: unrecognized key %q: %w", key, dgerr.ErrUnknownEndpoint)
			}
		}
	}
	if seed == 0 {
		seed = rand.Uint64()
	}
	rs.rng = rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
	return rs, nil
}

const hexDigits = "0123456789abcdef"

func (s *randomSource) CopyToRing(r *ring.Ring, reg *stats.Registry, warnLog *stats.WarnLog) error {
	defer r.SetEOF()

	var generated int64
	for {
		s.mu.Lock()
		forced := s.force
		s.mu.Unlock()
		if forced {
			return nil
		}
		if s.n > 0 && generated >= s.n {
			return nil
		}
		if maxDatagramsReached(s.cfg, generated) {
			return nil
		}

		dgSize := s.minSize
		if s.maxSize > s.minSize {
			dgSize += s.rng.IntN(s.maxSize - s.minSize + 1)
		}
		if dgSize > s.cfg.MaxDatagramSize {
			dgSize = s.cfg.MaxDatagramSize
		}
		payload := make([]byte, dgSize)
		for i := range payload {
			payload[i] = hexDigits[s.rng.IntN(16)]
		}

		total := framing.PrefixLen + dgSize
		batch := r.Reserve(total)
		var hdr [framing.PrefixLen]byte
		framing.EncodePrefix(hdr[:], uint32(dgSize))
		n := batch.CopyInto(hdr[:])
		shrinkBatch(batch, n).CopyInto(payload)
		r.CommitProduce(total)

		reg.Ring().RecordDatagram(dgSize)
		reg.Ring().RecordBacklog(r.Snapshot().Used)
		reg.Source().RecordBatch(1, time.Now())
		generated++
	}
}

func (s *randomSource) ForceEOF() {
	s.mu.Lock()
	s.force = true
	s.mu.Unlock()
}

func (s *randomSource) Close() error { return nil }
