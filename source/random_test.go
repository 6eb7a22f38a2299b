package source

import (
	"testing"

	"github.com/mckelvie-org/dg-cat/config"
	"github.com/mckelvie-org/dg-cat/internal/framing"
	"github.com/mckelvie-org/dg-cat/internal/ring"
	"github.com/mckelvie-org/dg-cat/stats"
)

func TestRandomSourceGeneratesExactCount(t *testing.T) {
	cfg := config.New("random://?n=5&min_size=4&max_size=4&seed=42", "-")
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	src, err := newRandomSource(cfg, "?n=5&min_size=4&max_size=4&seed=42")
	if err != nil {
		t.Fatal(err)
	}

	r := ring.New(4096)
	reg := stats.NewRegistry()

	done := make(chan error, 1)
	go func() { done <- src.CopyToRing(r, reg, nil) }()

	count := 0
	for {
		batch, err := r.StartConsume(4, 8)
		if err != nil {
			break
		}
		hdr := make([]byte, 4)
		batch.CopyOut(hdr)
		total := 4 + int(framing.DecodePrefix(hdr))
		full, err := r.StartConsume(total, total)
		if err != nil {
			break
		}
		r.CommitConsume(full.Len())
		count++
	}
	if err := <-done; err != nil {
		t.Fatalf("CopyToRing: %v", err)
	}
	if count != 5 {
		t.Fatalf("got %d datagrams, want 5", count)
	}
}

func TestRandomSourceRejectsUnknownKey(t *testing.T) {
	cfg := config.New("random://?bogus=1", "-")
	_, err := newRandomSource(cfg, "?bogus=1")
	if err == nil {
		t.Fatalf("expected error for unknown query key")
	}
}
