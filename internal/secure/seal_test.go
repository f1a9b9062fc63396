package secure

import (
	"strings"
	"testing"
)

const testKey = "6368616e676520746869732070617373776f726420746f206120736563726574"

func TestSealOpenRoundTrip(t *testing.T) {
	sealer, err := NewSealer(testKey)
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}

	sealed, err := sealer.Seal("refresh-token-value")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if sealed == "refresh-token-value" {
		t.Fatal("sealed value equals plaintext")
	}

	opened, err := sealer.Open(sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if opened != "refresh-token-value" {
		t.Fatalf("expected round trip, got %q", opened)
	}
}

func TestSealProducesDistinctCiphertexts(t *testing.T) {
	sealer, err := NewSealer(testKey)
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}

	a, err := sealer.Seal("token")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	b, err := sealer.Seal("token")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if a == b {
		t.Fatal("expected random nonces to produce distinct ciphertexts")
	}
}

func TestOpenRejectsTamperedValue(t *testing.T) {
	sealer, err := NewSealer(testKey)
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}

	sealed, err := sealer.Seal("token")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	tampered := strings.Replace(sealed, sealed[:1], "A", 1)
	if tampered == sealed {
		tampered = "B" + sealed[1:]
	}
	if _, err := sealer.Open(tampered); err == nil {
		t.Fatal("expected tampered value to fail authentication")
	}
}

func TestNewSealerRejectsBadKeys(t *testing.T) {
	if _, err := NewSealer("not-hex"); err == nil {
		t.Fatal("expected error for non-hex key")
	}
	if _, err := NewSealer("abcd"); err == nil {
		t.Fatal("expected error for short key")
	}
}
