// Package address implements the 256-bit content address space used to
// route chunks and messages: XorName values and the binary Prefix that
// partitions them into sections.
package address

import (
	"bytes"
	"crypto/rand"
	"fmt"

	"github.com/luxfi/overlay/utils/formatting"
)

// Size is the length in bytes of a XorName.
const Size = 32

// XorName is a 256-bit opaque address. It supports the XOR metric and
// bitwise prefix comparison used throughout routing and section
// membership.
type XorName [Size]byte

// Empty is the zero address.
var Empty XorName

// String returns a hex encoding of the address.
func (n XorName) String() string {
	s, _ := formatting.Encode(formatting.HexNC, n[:])
	return s
}

// Bytes returns the raw bytes of the address.
func (n XorName) Bytes() []byte {
	return n[:]
}

// Equal reports whether two addresses are identical.
func (n XorName) Equal(other XorName) bool {
	return n == other
}

// Bit returns the i-th bit (0 = most significant) of the address.
func (n XorName) Bit(i uint) bool {
	byteIdx := i / 8
	bitIdx := 7 - (i % 8)
	return (n[byteIdx]>>bitIdx)&1 == 1
}

// Xor returns the bitwise XOR distance between two addresses.
func (n XorName) Xor(other XorName) XorName {
	var out XorName
	for i := range n {
		out[i] = n[i] ^ other[i]
	}
	return out
}

// CloserTo reports whether n is strictly closer to target than other is,
// under the XOR metric, breaking ties by the lower address (spec §4.5
// tie-break rule).
func (n XorName) CloserTo(other, target XorName) bool {
	d1 := n.Xor(target)
	d2 := other.Xor(target)
	cmp := bytes.Compare(d1[:], d2[:])
	if cmp != 0 {
		return cmp < 0
	}
	return bytes.Compare(n[:], other[:]) < 0
}

// Random returns a cryptographically random address, used for generating
// fresh identities after a rejected join (spec §4.5, scenario S5).
func Random() (XorName, error) {
	var n XorName
	if _, err := rand.Read(n[:]); err != nil {
		return Empty, fmt.Errorf("address: generate random: %w", err)
	}
	return n, nil
}

// FromBytes copies a hash digest into a XorName, erroring if the length
// does not match Size.
func FromBytes(b []byte) (XorName, error) {
	var n XorName
	if len(b) != Size {
		return Empty, fmt.Errorf("address: want %d bytes, got %d", Size, len(b))
	}
	copy(n[:], b)
	return n, nil
}
