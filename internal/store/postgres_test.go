package store

import (
	"testing"

	"github.com/rawblock/isa-sentinel/internal/ring"
)

func TestEncodeVector(t *testing.T) {
	v := []ring.Element{ring.FromUint64(1), ring.FromUint64(2)}
	got := encodeVector(v)
	want := "0100000000000000000000000000000000000000000000000000000000000000," +
		"0200000000000000000000000000000000000000000000000000000000000000"
	if got != want {
		t.Fatalf("encodeVector = %q, want %q", got, want)
	}
}

func TestEncodeVectorEmpty(t *testing.T) {
	if got := encodeVector(nil); got != "" {
		t.Fatalf("encodeVector(nil) = %q, want empty string", got)
	}
}
