// Package ring implements the 256-bit additive ring Z/2^256 that backs the
// integrity-state accumulator. Elements are canonically 32 little-endian
// bytes; all four limb-wise operations run a fixed carry/borrow chain with
// no branch on the value of an input, so timing leaks nothing about secret
// state.
package ring

import (
	"math/big"
	"math/bits"
)

// Size is the canonical byte width of a ring element.
const Size = 32

// Element is a 256-bit unsigned integer stored as four 64-bit limbs in
// little-endian limb order (Limb[0] holds the least-significant 64 bits),
// mirroring the little-endian byte encoding used on the wire.
type Element [4]uint64

// Zero is the additive identity.
var Zero = Element{}

// Max is the largest representable element, 2^256 - 1.
var Max = Element{^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0)}

// FromBytes decodes 32 little-endian bytes into an Element. Panics if b is
// not exactly Size bytes — callers at trust boundaries validate length
// before calling this.
func FromBytes(b []byte) Element {
	if len(b) != Size {
		panic("ring: FromBytes requires exactly 32 bytes")
	}
	var e Element
	for i := 0; i < 4; i++ {
		e[i] = leUint64(b[i*8 : i*8+8])
	}
	return e
}

// Bytes encodes the element as 32 little-endian bytes.
func (e Element) Bytes() [Size]byte {
	var out [Size]byte
	for i := 0; i < 4; i++ {
		putLeUint64(out[i*8:i*8+8], e[i])
	}
	return out
}

func leUint64(b []byte) uint64 {
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
}

func putLeUint64(b []byte, v uint64) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	b[4] = byte(v >> 32)
	b[5] = byte(v >> 40)
	b[6] = byte(v >> 48)
	b[7] = byte(v >> 56)
}

// Add returns a+b mod 2^256. The final carry out of limb 3 is discarded,
// which is exactly reduction modulo 2^256.
func Add(a, b Element) Element {
	var out Element
	var carry uint64
	out[0], carry = bits.Add64(a[0], b[0], 0)
	out[1], carry = bits.Add64(a[1], b[1], carry)
	out[2], carry = bits.Add64(a[2], b[2], carry)
	out[3], _ = bits.Add64(a[3], b[3], carry)
	return out
}

// Sub returns a-b mod 2^256. Any final borrow is discarded, which is
// equivalent to adding 2^256 — the wraparound defined by the ring.
func Sub(a, b Element) Element {
	var out Element
	var borrow uint64
	out[0], borrow = bits.Sub64(a[0], b[0], 0)
	out[1], borrow = bits.Sub64(a[1], b[1], borrow)
	out[2], borrow = bits.Sub64(a[2], b[2], borrow)
	out[3], _ = bits.Sub64(a[3], b[3], borrow)
	return out
}

// Neg returns the additive inverse of a, i.e. Sub(Zero, a).
func Neg(a Element) Element {
	return Sub(Zero, a)
}

// CmpMag performs an unsigned 256-bit magnitude comparison (not modular):
// -1 if a<b, 0 if a==b, 1 if a>b. The sign comes from the borrow-out bit
// of a four-limb Sub64 chain (a<b iff the subtraction underflows);
// equality comes from an OR-reduction of per-limb XORs folded into a
// single bit via the standard x|-x nonzero test. No branch in this
// function depends on a or b.
func CmpMag(a, b Element) int {
	_, br0 := bits.Sub64(a[0], b[0], 0)
	_, br1 := bits.Sub64(a[1], b[1], br0)
	_, br2 := bits.Sub64(a[2], b[2], br1)
	_, borrow := bits.Sub64(a[3], b[3], br2)

	diff := (a[0] ^ b[0]) | (a[1] ^ b[1]) | (a[2] ^ b[2]) | (a[3] ^ b[3])
	notEqual := (diff | -diff) >> 63 // 1 if a != b, 0 if a == b

	gt := notEqual &^ borrow // 1 iff a>b: not equal and no borrow
	return int(gt) - int(borrow)
}

// Equal reports whether a and b are byte-identical.
func Equal(a, b Element) bool {
	return a == b
}

// IsZero reports whether e is the additive identity.
func IsZero(e Element) bool {
	return e == Zero
}

// ToBig returns e's magnitude as an unsigned big.Int, for callers that
// need exact arbitrary-precision arithmetic over a ring element (e.g.
// scaling a divergence by an integer ratio without float rounding).
func ToBig(e Element) *big.Int {
	b := e.Bytes()
	be := make([]byte, Size)
	for i := 0; i < Size; i++ {
		be[i] = b[Size-1-i]
	}
	return new(big.Int).SetBytes(be)
}

// FromUint64 returns the ring element whose magnitude equals v.
func FromUint64(v uint64) Element {
	return Element{v, 0, 0, 0}
}
