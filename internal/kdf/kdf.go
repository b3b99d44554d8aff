// Package kdf implements the sole cryptographic primitive used by the
// integrity-state accumulator: a domain-separated keyed pseudo-random
// function realised via BLAKE3's key-derivation mode, fixed to the
// context string "MA-ISA-KDF-v1".
//
// derive(salt, info) is the full contract: preimage- and
// collision-resistant to at least 2^128, full single-bit avalanche. No
// other hash or cipher is invoked anywhere in the core.
package kdf

import "github.com/zeebo/blake3"

// Context is the fixed ASCII domain-separation string for the canonical
// PRF. Any implementation interoperating at the byte level MUST use this
// exact string.
const Context = "MA-ISA-KDF-v1"

// Size is the output width of derive, in bytes.
const Size = 32

// Derive computes derive(salt, info) -> 32 bytes using BLAKE3's
// key-derivation mode: the fixed Context selects the domain, and
// (salt || info) is the key material digested to produce the derived
// output. Two invocations with identical (salt, info) always produce
// identical output; flipping a single bit of either input changes
// roughly half of the output bits.
func Derive(salt [32]byte, info []byte) [32]byte {
	h := blake3.NewDeriveKey(Context)
	h.Write(salt[:])
	h.Write(info)

	var out [32]byte
	d := h.Digest()
	if _, err := d.Read(out[:]); err != nil {
		// blake3's extendable-output reader over an in-memory buffer
		// cannot fail; a non-nil error here indicates a corrupted
		// build of the hash package itself.
		panic("kdf: blake3 digest read failed: " + err.Error())
	}
	return out
}

// Hash computes a plain collision-resistant digest of data, used by the
// axis accumulator to pre-hash (event, Δt, entropy) into the 32-byte
// "info" value before it is fed to Derive. This reuses the same PRF
// construction (Context-bound BLAKE3) rather than introducing a second
// primitive into the core.
func Hash(data ...[]byte) [32]byte {
	h := blake3.NewDeriveKey(Context)
	for _, d := range data {
		h.Write(d)
	}
	var out [32]byte
	d := h.Digest()
	if _, err := d.Read(out[:]); err != nil {
		panic("kdf: blake3 digest read failed: " + err.Error())
	}
	return out
}
