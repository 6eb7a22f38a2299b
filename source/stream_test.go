package source

import (
	"os"
	"testing"

	"github.com/mckelvie-org/dg-cat/config"
	"github.com/mckelvie-org/dg-cat/internal/framing"
	"github.com/mckelvie-org/dg-cat/internal/ring"
	"github.com/mckelvie-org/dg-cat/stats"
)

func writeFramedTestFile(t *testing.T, payloads ...[]byte) string {
	t.Helper()
	tmp, err := os.CreateTemp(t.TempDir(), "dgcat-stream-src-*")
	if err != nil {
		t.Fatal(err)
	}
	defer tmp.Close()
	for _, p := range payloads {
		var hdr [framing.PrefixLen]byte
		framing.EncodePrefix(hdr[:], uint32(len(p)))
		if _, err := tmp.Write(hdr[:]); err != nil {
			t.Fatal(err)
		}
		if _, err := tmp.Write(p); err != nil {
			t.Fatal(err)
		}
	}
	return tmp.Name()
}

func TestStreamSourceCarvesFramedDatagrams(t *testing.T) {
	path := writeFramedTestFile(t, []byte("hello"), []byte("world!"))

	cfg := config.New(path, "-")
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	src, err := newStreamSourceFile(cfg, path)
	if err != nil {
		t.Fatal(err)
	}

	r := ring.New(4096)
	reg := stats.NewRegistry()
	if err := src.CopyToRing(r, reg, nil); err != nil {
		t.Fatalf("CopyToRing: %v", err)
	}

	var got []string
	for {
		hdrBatch, err := r.StartConsume(framing.PrefixLen, framing.PrefixLen)
		if err != nil {
			break
		}
		var hdr [framing.PrefixLen]byte
		hdrBatch.CopyOut(hdr[:])
		n := int(framing.DecodePrefix(hdr[:]))
		full, err := r.StartConsume(framing.PrefixLen+n, framing.PrefixLen+n)
		if err != nil {
			break
		}
		buf := make([]byte, framing.PrefixLen+n)
		full.CopyOut(buf)
		got = append(got, string(buf[framing.PrefixLen:]))
		r.CommitConsume(framing.PrefixLen + n)
	}
	if len(got) != 2 || got[0] != "hello" || got[1] != "world!" {
		t.Fatalf("got %v, want [hello world!]", got)
	}
}

func TestStreamSourcePartialFrameAtEOF(t *testing.T) {
	path := writeFramedTestFile(t, []byte("ok"))
	// Truncate the file to chop off the last byte of the payload.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data[:len(data)-1], 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.New(path, "-")
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	src, err := newStreamSourceFile(cfg, path)
	if err != nil {
		t.Fatal(err)
	}

	r := ring.New(4096)
	reg := stats.NewRegistry()
	if err := src.CopyToRing(r, reg, nil); err == nil {
		t.Fatalf("expected ErrPartialFrame, got nil")
	}
}
