package serialize

import (
	"testing"

	"github.com/rawblock/isa-sentinel/internal/ring"
)

func sampleVector(n int) ([]ring.Element, []uint64) {
	snapshot := make([]ring.Element, n)
	counters := make([]uint64, n)
	for i := 0; i < n; i++ {
		snapshot[i] = ring.FromUint64(uint64(i*1000 + 7))
		counters[i] = uint64(i + 1)
	}
	return snapshot, counters
}

func TestFixedRoundTrip(t *testing.T) {
	snapshot, counters := sampleVector(3)
	blob := EncodeFixed(CurrentVersion, snapshot, counters)

	v, gotSnap, gotCounters, err := DecodeFixed(blob, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != CurrentVersion {
		t.Fatalf("version = %+v, want %+v", v, CurrentVersion)
	}
	for i := range snapshot {
		if gotSnap[i] != snapshot[i] || gotCounters[i] != counters[i] {
			t.Fatalf("axis %d round-trip mismatch", i)
		}
	}
}

func TestDynamicRoundTrip(t *testing.T) {
	snapshot, counters := sampleVector(5)
	blob := EncodeDynamic(CurrentVersion, snapshot, counters)

	_, gotSnap, gotCounters, err := DecodeDynamic(blob)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotSnap) != 5 {
		t.Fatalf("decoded %d axes, want 5", len(gotSnap))
	}
	for i := range snapshot {
		if gotSnap[i] != snapshot[i] || gotCounters[i] != counters[i] {
			t.Fatalf("axis %d round-trip mismatch", i)
		}
	}
}

func TestIncompatibleMajorVersionRejected(t *testing.T) {
	snapshot, counters := sampleVector(1)
	blob := EncodeFixed(Version{Major: SupportedMajor + 1, Minor: 0, Patch: 0}, snapshot, counters)

	_, _, _, err := DecodeFixed(blob, 1)
	if err == nil {
		t.Fatalf("expected IncompatibleVersion error")
	}
	if _, ok := err.(*IncompatibleVersion); !ok {
		t.Fatalf("err = %T, want *IncompatibleVersion", err)
	}
}

func TestMinorPatchDifferencesAccepted(t *testing.T) {
	snapshot, counters := sampleVector(1)
	blob := EncodeFixed(Version{Major: SupportedMajor, Minor: 99, Patch: 7}, snapshot, counters)

	v, _, _, err := DecodeFixed(blob, 1)
	if err != nil {
		t.Fatalf("unexpected error on minor/patch mismatch: %v", err)
	}
	if v.Minor != 99 || v.Patch != 7 {
		t.Fatalf("minor/patch not preserved: %+v", v)
	}
}

func TestMalformedStateOnTruncation(t *testing.T) {
	snapshot, counters := sampleVector(2)
	blob := EncodeFixed(CurrentVersion, snapshot, counters)
	truncated := blob[:len(blob)-5]

	_, _, _, err := DecodeFixed(truncated, 2)
	if err == nil {
		t.Fatalf("expected MalformedState on truncated input")
	}
	if _, ok := err.(*MalformedState); !ok {
		t.Fatalf("err = %T, want *MalformedState", err)
	}
}

func TestMalformedStateOnShortHeader(t *testing.T) {
	_, _, _, err := DecodeFixed([]byte{1, 2, 3}, 1)
	if _, ok := err.(*MalformedState); !ok {
		t.Fatalf("err = %T, want *MalformedState", err)
	}
}

func TestEncodePanicsOnLengthMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on mismatched snapshot/counter lengths")
		}
	}()
	EncodeFixed(CurrentVersion, []ring.Element{ring.Zero}, nil)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	snapshot, counters := sampleVector(4)
	payload := EncodeDynamic(CurrentVersion, snapshot, counters)
	blob := WrapEnvelope(payload)

	unwrapped, err := UnwrapEnvelope(blob)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, gotSnap, _, err := DecodeDynamic(unwrapped)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	for i := range snapshot {
		if gotSnap[i] != snapshot[i] {
			t.Fatalf("axis %d mismatch after envelope round trip", i)
		}
	}
}

func TestEnvelopeDetectsTampering(t *testing.T) {
	snapshot, counters := sampleVector(2)
	payload := EncodeFixed(CurrentVersion, snapshot, counters)
	blob := WrapEnvelope(payload)

	tampered := make([]byte, len(blob))
	copy(tampered, blob)
	tampered[len(tampered)-1] ^= 0xFF // flip every bit of the last payload byte

	if _, err := UnwrapEnvelope(tampered); err == nil {
		t.Fatalf("expected checksum mismatch error after tampering")
	}
}
