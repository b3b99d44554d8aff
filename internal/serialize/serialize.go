// Package serialize implements the wire/on-disk format for a state
// vector: a version header, an optional axis count, and N repetitions
// of (state, counter). See WrapEnvelope/UnwrapEnvelope for the
// tamper-evident wrapper built on top of this core format.
package serialize

import (
	"encoding/binary"
	"fmt"

	"github.com/rawblock/isa-sentinel/internal/ring"
)

// Version is the three-part (major, minor, patch) header every
// serialised blob carries.
type Version struct {
	Major, Minor, Patch uint16
}

// SupportedMajor is the only major version this build can deserialise.
// Minor and patch differences are always accepted.
const SupportedMajor = 1

// CurrentVersion is stamped on every blob this build produces.
var CurrentVersion = Version{Major: SupportedMajor, Minor: 0, Patch: 0}

// IncompatibleVersion is returned when a blob's major version does not
// match SupportedMajor.
type IncompatibleVersion struct {
	Found, Supported uint16
}

func (e *IncompatibleVersion) Error() string {
	return fmt.Sprintf("serialize: incompatible major version: found %d, supported %d", e.Found, e.Supported)
}

// MalformedState is returned when a blob is truncated or otherwise
// cannot be parsed once its version has been accepted.
type MalformedState struct {
	Reason string
}

func (e *MalformedState) Error() string {
	return "serialize: malformed state: " + e.Reason
}

const (
	versionHeaderLen = 6  // 3x u16 LE
	axisCountLen     = 4  // u32 LE
	recordLen        = 40 // 32-byte state + 8-byte counter
)

// EncodeFixed serialises a state vector for a fixed-N deployment: no
// axis count is written, since N is implicit from deployment
// configuration on both ends.
func EncodeFixed(v Version, snapshot []ring.Element, counters []uint64) []byte {
	if len(snapshot) != len(counters) {
		panic("serialize: snapshot and counters must have equal length")
	}
	out := make([]byte, 0, versionHeaderLen+len(snapshot)*recordLen)
	out = appendVersion(out, v)
	return appendRecords(out, snapshot, counters)
}

// EncodeDynamic serialises a state vector for a dynamic-N deployment,
// prefixing the record list with a u32 LE axis count.
func EncodeDynamic(v Version, snapshot []ring.Element, counters []uint64) []byte {
	if len(snapshot) != len(counters) {
		panic("serialize: snapshot and counters must have equal length")
	}
	out := make([]byte, 0, versionHeaderLen+axisCountLen+len(snapshot)*recordLen)
	out = appendVersion(out, v)
	var nBuf [4]byte
	binary.LittleEndian.PutUint32(nBuf[:], uint32(len(snapshot)))
	out = append(out, nBuf[:]...)
	return appendRecords(out, snapshot, counters)
}

func appendVersion(out []byte, v Version) []byte {
	var buf [versionHeaderLen]byte
	binary.LittleEndian.PutUint16(buf[0:2], v.Major)
	binary.LittleEndian.PutUint16(buf[2:4], v.Minor)
	binary.LittleEndian.PutUint16(buf[4:6], v.Patch)
	return append(out, buf[:]...)
}

func appendRecords(out []byte, snapshot []ring.Element, counters []uint64) []byte {
	for i, e := range snapshot {
		b := e.Bytes()
		out = append(out, b[:]...)
		var cBuf [8]byte
		binary.LittleEndian.PutUint64(cBuf[:], counters[i])
		out = append(out, cBuf[:]...)
	}
	return out
}

func decodeVersion(data []byte) (Version, []byte, error) {
	if len(data) < versionHeaderLen {
		return Version{}, nil, &MalformedState{Reason: "blob shorter than the version header"}
	}
	v := Version{
		Major: binary.LittleEndian.Uint16(data[0:2]),
		Minor: binary.LittleEndian.Uint16(data[2:4]),
		Patch: binary.LittleEndian.Uint16(data[4:6]),
	}
	if v.Major != SupportedMajor {
		return Version{}, nil, &IncompatibleVersion{Found: v.Major, Supported: SupportedMajor}
	}
	return v, data[versionHeaderLen:], nil
}

func parseRecords(rest []byte, n int) ([]ring.Element, []uint64, error) {
	if len(rest) != n*recordLen {
		return nil, nil, &MalformedState{Reason: fmt.Sprintf("expected %d bytes of records for n=%d, got %d", n*recordLen, n, len(rest))}
	}
	snapshot := make([]ring.Element, n)
	counters := make([]uint64, n)
	for i := 0; i < n; i++ {
		off := i * recordLen
		snapshot[i] = ring.FromBytes(rest[off : off+ring.Size])
		counters[i] = binary.LittleEndian.Uint64(rest[off+ring.Size : off+recordLen])
	}
	return snapshot, counters, nil
}

// DecodeFixed parses a fixed-N blob expecting exactly n axes.
func DecodeFixed(data []byte, n int) (Version, []ring.Element, []uint64, error) {
	v, rest, err := decodeVersion(data)
	if err != nil {
		return Version{}, nil, nil, err
	}
	snapshot, counters, err := parseRecords(rest, n)
	if err != nil {
		return Version{}, nil, nil, err
	}
	return v, snapshot, counters, nil
}

// DecodeDynamic parses a dynamic-N blob, reading the axis count from
// its u32 LE prefix.
func DecodeDynamic(data []byte) (Version, []ring.Element, []uint64, error) {
	v, rest, err := decodeVersion(data)
	if err != nil {
		return Version{}, nil, nil, err
	}
	if len(rest) < axisCountLen {
		return Version{}, nil, nil, &MalformedState{Reason: "blob shorter than the axis-count field"}
	}
	n := int(binary.LittleEndian.Uint32(rest[:axisCountLen]))
	snapshot, counters, err := parseRecords(rest[axisCountLen:], n)
	if err != nil {
		return Version{}, nil, nil, err
	}
	return v, snapshot, counters, nil
}
