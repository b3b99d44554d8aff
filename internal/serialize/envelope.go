package serialize

import (
	"crypto/subtle"
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// checksumLen is the width of a chainhash.Hash (SHA-256d digest).
const checksumLen = chainhash.HashSize

// WrapEnvelope prefixes payload (the output of EncodeFixed/EncodeDynamic)
// with a u32 LE length and a SHA-256d checksum over payload, so a
// corrupted blob is caught before the version/record parser ever runs.
// This is a supplement on top of the core wire format, not a
// replacement for it.
func WrapEnvelope(payload []byte) []byte {
	sum := chainhash.DoubleHashH(payload)
	out := make([]byte, 0, 4+checksumLen+len(payload))
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	out = append(out, lenBuf[:]...)
	out = append(out, sum[:]...)
	out = append(out, payload...)
	return out
}

// UnwrapEnvelope verifies the checksum and length prefix written by
// WrapEnvelope and returns the inner payload, ready for DecodeFixed or
// DecodeDynamic.
func UnwrapEnvelope(blob []byte) ([]byte, error) {
	if len(blob) < 4+checksumLen {
		return nil, &MalformedState{Reason: "envelope shorter than its length+checksum prefix"}
	}
	n := binary.LittleEndian.Uint32(blob[0:4])
	wantSum := blob[4 : 4+checksumLen]
	payload := blob[4+checksumLen:]
	if uint32(len(payload)) != n {
		return nil, &MalformedState{Reason: "envelope length prefix does not match payload size"}
	}
	gotSum := chainhash.DoubleHashH(payload)
	if subtle.ConstantTimeCompare(gotSum[:], wantSum) != 1 {
		return nil, &MalformedState{Reason: "envelope checksum mismatch: payload corrupted or tampered with"}
	}
	return payload, nil
}
