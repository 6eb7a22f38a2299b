package ring

import (
	"sync"
	"testing"
)

func TestReserveCommitConsumeRoundTrip(t *testing.T) {
	r := New(16)

	batch := r.Reserve(5)
	if batch.Len() < 5 {
		t.Fatalf("expected at least 5 bytes free, got %d", batch.Len())
	}
	n := batch.CopyInto([]byte("hello"))
	if n != 5 {
		t.Fatalf("CopyInto returned %d, want 5", n)
	}
	r.CommitProduce(5)

	out, err := r.StartConsume(5, 5)
	if err != nil {
		t.Fatalf("StartConsume: %v", err)
	}
	dst := make([]byte, 5)
	if got := out.CopyOut(dst); got != 5 {
		t.Fatalf("CopyOut returned %d, want 5", got)
	}
	if string(dst) != "hello" {
		t.Fatalf("got %q, want hello", dst)
	}
	r.CommitConsume(5)

	snap := r.Snapshot()
	if snap.Used != 0 {
		t.Fatalf("expected empty ring after drain, used=%d", snap.Used)
	}
}

func TestWrapAround(t *testing.T) {
	r := New(8)

	b := r.Reserve(6)
	b.CopyInto([]byte("abcdef"))
	r.CommitProduce(6)

	out, err := r.StartConsume(6, 6)
	if err != nil {
		t.Fatal(err)
	}
	dst := make([]byte, 6)
	out.CopyOut(dst)
	r.CommitConsume(6)

	// head is now at 6, tail at 6; reserve 6 bytes, which must wrap.
	b2 := r.Reserve(6)
	if b2.Len() < 6 {
		t.Fatalf("expected 6 bytes free after drain, got %d", b2.Len())
	}
	if len(b2.Second) == 0 {
		t.Fatalf("expected reservation to wrap past end of backing array")
	}
	b2.CopyInto([]byte("ghijkl"))
	r.CommitProduce(6)

	out2, err := r.StartConsume(6, 6)
	if err != nil {
		t.Fatal(err)
	}
	dst2 := make([]byte, 6)
	out2.CopyOut(dst2)
	if string(dst2) != "ghijkl" {
		t.Fatalf("got %q, want ghijkl", dst2)
	}
}

func TestSetEOFDrainsThenCloses(t *testing.T) {
	r := New(16)
	b := r.Reserve(3)
	b.CopyInto([]byte("abc"))
	r.CommitProduce(3)
	r.SetEOF()

	out, err := r.StartConsume(1, 16)
	if err != nil {
		t.Fatalf("expected remaining bytes before close, got err: %v", err)
	}
	if out.Len() != 3 {
		t.Fatalf("expected 3 remaining bytes, got %d", out.Len())
	}
	r.CommitConsume(3)

	_, err = r.StartConsume(1, 16)
	if err == nil {
		t.Fatalf("expected ErrRingClosed after drain+eof")
	}
}

func TestConcurrentProducerConsumer(t *testing.T) {
	r := New(64)
	const total = 10000
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			b := r.Reserve(1)
			b.CopyInto([]byte{byte(i)})
			r.CommitProduce(1)
		}
		r.SetEOF()
	}()

	received := 0
	go func() {
		defer wg.Done()
		for {
			b, err := r.StartConsume(1, 64)
			if err != nil {
				return
			}
			received += b.Len()
			r.CommitConsume(b.Len())
		}
	}()

	wg.Wait()
	if received != total {
		t.Fatalf("received %d bytes, want %d", received, total)
	}
}
