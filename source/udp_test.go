package source

import (
	"net"
	"testing"
	"time"

	"github.com/mckelvie-org/dg-cat/config"
	"github.com/mckelvie-org/dg-cat/internal/framing"
	"github.com/mckelvie-org/dg-cat/internal/ring"
	"github.com/mckelvie-org/dg-cat/stats"
)

func TestUDPSourceReceivesDatagramsUntilEOFTimeout(t *testing.T) {
	cfg := config.New("udp://127.0.0.1:0", "-",
		config.WithPollingInterval(20*time.Millisecond),
		config.WithStartTimeout(500*time.Millisecond),
		config.WithEOFTimeout(100*time.Millisecond),
	)
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	src, err := newUDPSource(cfg, "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	sender, err := net.DialUDP("udp", nil, src.conn.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatal(err)
	}
	defer sender.Close()

	r := ring.New(4096)
	reg := stats.NewRegistry()

	done := make(chan error, 1)
	go func() { done <- src.CopyToRing(r, reg, nil) }()

	sender.Write([]byte("one"))
	sender.Write([]byte("two"))

	if err := <-done; err != nil {
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
	if len(got) != 2 {
		t.Fatalf("got %d datagrams %v, want 2", len(got), got)
	}
}

func TestUDPSourceForceEOFUnblocksReceive(t *testing.T) {
	cfg := config.New("udp://127.0.0.1:0", "-",
		config.WithPollingInterval(20*time.Millisecond),
		config.WithStartTimeout(-1),
		config.WithEOFTimeout(0),
	)
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	src, err := newUDPSource(cfg, "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	r := ring.New(4096)
	reg := stats.NewRegistry()

	done := make(chan error, 1)
	go func() { done <- src.CopyToRing(r, reg, nil) }()

	time.Sleep(50 * time.Millisecond)
	src.ForceEOF()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("CopyToRing: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ForceEOF did not unblock CopyToRing in time")
	}
}
