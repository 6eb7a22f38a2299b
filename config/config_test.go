package config

import (
	"errors"
	"testing"
	"time"

	"github.com/mckelvie-org/dg-cat/internal/dgerr"
)

func TestValidateResolvesSentinels(t *testing.T) {
	c := New("udp://9000", "-", WithMaxBacklog(0), WithEOFTimeout(5*time.Second))
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if c.MaxBacklog != DefaultMaxBacklog {
		t.Fatalf("got MaxBacklog %d, want default %d", c.MaxBacklog, DefaultMaxBacklog)
	}
	if c.StartTimeout != c.EOFTimeout {
		t.Fatalf("got StartTimeout %v, want it to mirror EOFTimeout %v", c.StartTimeout, c.EOFTimeout)
	}
}

func TestValidateRejectsBacklogSmallerThanOneDatagram(t *testing.T) {
	c := New("udp://9000", "-", WithMaxDatagramSize(1000), WithMaxBacklog(10))
	err := c.Validate()
	if !errors.Is(err, dgerr.ErrInvalidConfig) {
		t.Fatalf("got %v, want dgerr.ErrInvalidConfig", err)
	}
}

func TestValidateRejectsMissingEndpoints(t *testing.T) {
	c := New("", "-")
	if err := c.Validate(); !errors.Is(err, dgerr.ErrInvalidConfig) {
		t.Fatalf("got %v, want dgerr.ErrInvalidConfig", err)
	}
}

func TestValidateLeavesExplicitStartTimeoutAlone(t *testing.T) {
	c := New("udp://9000", "-", WithStartTimeout(3*time.Second), WithEOFTimeout(9*time.Second))
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if c.StartTimeout != 3*time.Second {
		t.Fatalf("got StartTimeout %v, want unchanged 3s", c.StartTimeout)
	}
}
