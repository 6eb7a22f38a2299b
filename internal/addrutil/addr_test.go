package addrutil

import (
	"context"
	"errors"
	"testing"

	"github.com/mckelvie-org/dg-cat/internal/dgerr"
)

func TestResolveUDPCandidatesLoopback(t *testing.T) {
	candidates, err := ResolveUDPCandidates(context.Background(), "127.0.0.1:9000")
	if err != nil {
		t.Fatalf("ResolveUDPCandidates: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Port != 9000 {
		t.Fatalf("got %v, want one candidate on port 9000", candidates)
	}
}

func TestResolveUDPCandidatesEmptyHostMeansAny(t *testing.T) {
	candidates, err := ResolveUDPCandidates(context.Background(), ":9001")
	if err != nil {
		t.Fatalf("ResolveUDPCandidates: %v", err)
	}
	if len(candidates) != 1 || candidates[0].IP.String() != "0.0.0.0" {
		t.Fatalf("got %v, want 0.0.0.0:9001", candidates)
	}
}

func TestResolveUDPCandidatesRejectsBadPort(t *testing.T) {
	_, err := ResolveUDPCandidates(context.Background(), "127.0.0.1:notaport")
	if err == nil {
		t.Fatalf("expected error for invalid port")
	}
}

func TestBindFirstUDPRoundTrip(t *testing.T) {
	candidates, err := ResolveUDPCandidates(context.Background(), "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	conn, err := BindFirstUDP(candidates)
	if err != nil {
		t.Fatalf("BindFirstUDP: %v", err)
	}
	defer conn.Close()
}

func TestConnectFirstUDPNoCandidatesIsNoAddressCandidate(t *testing.T) {
	_, err := ConnectFirstUDP(nil)
	if !errors.Is(err, dgerr.ErrNoAddressCandidate) {
		t.Fatalf("got %v, want dgerr.ErrNoAddressCandidate", err)
	}
}
