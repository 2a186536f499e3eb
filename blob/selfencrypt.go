// Package blob implements the self-encrypting, content-addressed chunk
// store: a self-encryptor that turns arbitrary bytes into a tree of
// encrypted leaf chunks described by a DataMap, and the packer that wraps
// oversized data maps into further self-encrypted levels (spec §4.7).
package blob

import (
	"github.com/zeebo/blake3"
)

// leafTarget is the approximate pre-encryption size of one leaf chunk.
// Actual leaves are sized to split the input evenly once the minimum chunk
// count is applied. A var, not a const, so tests can shrink it to exercise
// packing recursion without multi-gigabyte fixtures.
var leafTarget = 1 << 18 // 256 KiB

// minChunks is the minimum number of leaf chunks any non-empty input is
// split into, mirroring the self-encryption scheme's three-way
// obfuscation requirement.
const minChunks = 3

// ChunkInfo describes one encrypted leaf chunk: the hash of its plaintext
// (used to derive the decryption keystream), the hash of its ciphertext
// (its content address in storage), and its plaintext size.
type ChunkInfo struct {
	PreHash  [32]byte
	PostHash [32]byte
	Size     uint32
}

// DataMap describes, in order, the encrypted leaf chunks that reconstruct
// one piece of data.
type DataMap struct {
	Chunks []ChunkInfo
}

// TotalSize returns the sum of all chunk plaintext sizes.
func (m DataMap) TotalSize() int {
	total := 0
	for _, c := range m.Chunks {
		total += int(c.Size)
	}
	return total
}

// selfEncrypt splits data into leaf chunks, encrypts each, and stores the
// ciphertext in backend keyed by its content hash. It returns the
// resulting DataMap. Both the chunk boundaries and the per-leaf keystream
// are pure functions of the input bytes, so encrypting the same bytes
// twice always yields the same DataMap and the same stored ciphertexts
// (spec §4.7 "Determinism").
func selfEncrypt(data []byte, backend Storage) (DataMap, error) {
	bounds := splitBoundaries(len(data))
	chunks := make([]ChunkInfo, 0, len(bounds)-1)

	for i := 0; i < len(bounds)-1; i++ {
		plain := data[bounds[i]:bounds[i+1]]
		preHash := blake3.Sum256(plain)
		cipher := xorKeystream(plain, leafSeed(preHash, i))
		postHash := blake3.Sum256(cipher)

		if err := backend.Put(postHash, cipher); err != nil {
			return DataMap{}, err
		}
		chunks = append(chunks, ChunkInfo{
			PreHash:  preHash,
			PostHash: postHash,
			Size:     uint32(len(plain)),
		})
	}
	return DataMap{Chunks: chunks}, nil
}

// selfDecryptRange reconstructs the [offset, offset+length) byte range
// described by m, fetching leaf ciphertexts from backend as needed.
func selfDecryptRange(m DataMap, backend Storage, offset, length int) ([]byte, error) {
	total := m.TotalSize()
	if offset < 0 || offset > total {
		return nil, ErrOffsetOutOfRange
	}
	end := offset + length
	if end > total {
		end = total
	}

	out := make([]byte, 0, end-offset)
	pos := 0
	for i, info := range m.Chunks {
		chunkStart, chunkEnd := pos, pos+int(info.Size)
		pos = chunkEnd
		if chunkEnd <= offset || chunkStart >= end {
			continue
		}

		cipher, err := backend.Get(info.PostHash)
		if err != nil {
			return nil, err
		}
		plain := xorKeystream(cipher, leafSeed(info.PreHash, i))

		lo := 0
		if offset > chunkStart {
			lo = offset - chunkStart
		}
		hi := len(plain)
		if end < chunkEnd {
			hi = len(plain) - (chunkEnd - end)
		}
		out = append(out, plain[lo:hi]...)
	}
	return out, nil
}

// deleteChunks removes every leaf chunk referenced by m from backend.
func deleteChunks(m DataMap, backend Storage) error {
	for _, info := range m.Chunks {
		if err := backend.Delete(info.PostHash); err != nil {
			return err
		}
	}
	return nil
}

// splitBoundaries returns the byte offsets partitioning n bytes into at
// least minChunks roughly-equal pieces, each close to leafTarget.
func splitBoundaries(n int) []int {
	if n == 0 {
		return make([]int, minChunks+1)
	}

	count := n / leafTarget
	if n%leafTarget != 0 {
		count++
	}
	if count < minChunks {
		count = minChunks
	}

	base := n / count
	rem := n % count
	bounds := make([]int, count+1)
	cur := 0
	for i := 0; i < count; i++ {
		size := base
		if i < rem {
			size++
		}
		cur += size
		bounds[i+1] = cur
	}
	return bounds
}

// leafSeed derives the keystream seed for leaf index i from its
// plaintext hash, binding the keystream to both the chunk's content and
// its position.
func leafSeed(preHash [32]byte, index int) []byte {
	seed := make([]byte, 0, len(preHash)+8)
	seed = append(seed, preHash[:]...)
	seed = append(seed,
		byte(index>>24), byte(index>>16), byte(index>>8), byte(index),
	)
	return seed
}

// xorKeystream XORs data with a BLAKE3 extendable-output keystream seeded
// by seed. Encryption and decryption are the same operation.
func xorKeystream(data, seed []byte) []byte {
	h := blake3.New()
	h.Write(seed)
	ks := make([]byte, len(data))
	_, _ = h.Digest().Read(ks)

	out := make([]byte, len(data))
	for i := range data {
		out[i] = data[i] ^ ks[i]
	}
	return out
}
