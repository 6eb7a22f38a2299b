package copier

import (
	"os"
	"testing"

	"github.com/mckelvie-org/dg-cat/config"
	"github.com/mckelvie-org/dg-cat/internal/framing"
)

func TestCopierRandomToFile(t *testing.T) {
	tmp, err := os.CreateTemp(t.TempDir(), "dgcat-copier-*")
	if err != nil {
		t.Fatal(err)
	}
	path := tmp.Name()
	tmp.Close()

	cfg := config.New("random://?n=10&min_size=8&max_size=8&seed=7", path)
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	c, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	if err := c.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	off := 0
	for off+framing.PrefixLen <= len(data) {
		n := int(framing.DecodePrefix(data[off:]))
		off += framing.PrefixLen + n
		count++
	}
	if count != 10 {
		t.Fatalf("got %d datagrams in output, want 10 (read %d of %d bytes)", count, off, len(data))
	}
}
