package rxbuf

import "testing"

func TestGetPutRoundTrip(t *testing.T) {
	p := New(128)
	b := p.Get()
	if len(b) != 128 {
		t.Fatalf("got slot len %d, want 128", len(b))
	}
	b[0] = 0xAB
	p.Put(b)
	b2 := p.Get()
	if len(b2) != 128 {
		t.Fatalf("got slot len %d, want 128", len(b2))
	}
}

func TestGetNReturnsDistinctSlots(t *testing.T) {
	p := New(16)
	slots := p.GetN(4)
	if len(slots) != 4 {
		t.Fatalf("got %d slots, want 4", len(slots))
	}
	for i, s := range slots {
		if len(s) != 16 {
			t.Fatalf("slot %d: got len %d, want 16", i, len(s))
		}
		s[0] = byte(i)
	}
	for i, s := range slots {
		if s[0] != byte(i) {
			t.Fatalf("slot %d: slots alias each other", i)
		}
	}
}

func TestPutRejectsUndersizedBuffer(t *testing.T) {
	p := New(64)
	p.Put(make([]byte, 4))
	b := p.Get()
	if len(b) != 64 {
		t.Fatalf("got slot len %d, want 64", len(b))
	}
}
