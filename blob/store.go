package blob

import (
	"bytes"

	"github.com/luxfi/crypto/bls"

	"github.com/luxfi/overlay/address"
)

// Visibility selects a chunk's access policy: Public chunks are
// content-addressed by their bytes alone and immutable once written;
// Private chunks are additionally bound to an owner key, and only that
// owner may delete them (spec §4.7).
type Visibility struct {
	Public bool
	Owner  *bls.PublicKey
}

// PublicVisibility returns the visibility policy for a public chunk.
func PublicVisibility() Visibility {
	return Visibility{Public: true}
}

// PrivateVisibility returns the visibility policy for a chunk owned by
// owner.
func PrivateVisibility(owner *bls.PublicKey) Visibility {
	return Visibility{Public: false, Owner: owner}
}

// Store is the self-encrypting, content-addressed blob store. It packs
// arbitrary-length data into a chain of encrypted leaf chunks and,
// recursively, data-map chunks, addressed by the content hash of its
// final (small enough to fit in one chunk) envelope (spec §4.7).
type Store struct {
	backend Storage
}

// NewStore returns a Store backed by backend.
func NewStore(backend Storage) *Store {
	return &Store{backend: backend}
}

// Put self-encrypts data, recursively packing the result until it fits
// in one chunk, stores the final chunk, and returns its address. Put is
// idempotent: calling it twice with identical data and visibility
// produces the same address and simply rewrites the same content.
func (s *Store) Put(data []byte, vis Visibility) (address.XorName, error) {
	return pack(data, vis, s.backend)
}

// DryRunAddress computes the address Put(data, vis) would return,
// without touching the real backend. Because packing is a pure function
// of its input bytes, this always matches the address a subsequent real
// Put produces (spec §4.7 "Determinism").
func (s *Store) DryRunAddress(data []byte, vis Visibility) (address.XorName, error) {
	return pack(data, vis, NewMemStorage())
}

// pack implements the recursive chunk-packing loop: self-encrypt data
// into a leaf DataMap, wrap it as a tagged chunk, and — while that chunk
// is still too large to store directly — self-encrypt the chunk's own
// serialized bytes into a further DataMap and wrap that instead.
func pack(data []byte, vis Visibility, backend Storage) (address.XorName, error) {
	dm, err := selfEncrypt(data, backend)
	if err != nil {
		return address.Empty, err
	}
	env := chunkEnvelope{Level: rootLevel, Map: dm}

	for {
		payload := encodeEnvelope(env)
		wrapped := encodeChunk(vis, payload)
		if len(wrapped) <= MaxChunkSize {
			addr := chunkAddress(payload, vis.Owner)
			if err := backend.Put(addr, wrapped); err != nil {
				return address.Empty, err
			}
			return addr, nil
		}

		dm2, err := selfEncrypt(wrapped, backend)
		if err != nil {
			return address.Empty, err
		}
		env = chunkEnvelope{Level: childLevel, Map: dm2}
	}
}

// Get reconstructs the [offset, offset+length) range of the data stored
// under head, walking down through any packed levels.
func (s *Store) Get(head address.XorName, offset, length int) ([]byte, error) {
	wrapped, err := s.backend.Get(head)
	if err != nil {
		return nil, err
	}
	_, payload, err := decodeChunk(wrapped)
	if err != nil {
		return nil, err
	}

	for {
		env, err := decodeEnvelope(payload)
		if err != nil {
			return nil, err
		}
		if env.Level == rootLevel {
			return selfDecryptRange(env.Map, s.backend, offset, length)
		}

		full, err := selfDecryptRange(env.Map, s.backend, 0, env.Map.TotalSize())
		if err != nil {
			return nil, err
		}
		_, nextPayload, err := decodeChunk(full)
		if err != nil {
			return nil, err
		}
		payload = nextPayload
	}
}

// Delete removes the chunk at head and every leaf chunk packed beneath
// it. Only the recorded owner of a private chunk may delete it; public
// chunks can never be deleted (spec §4.7).
func (s *Store) Delete(head address.XorName, caller *bls.PublicKey) error {
	wrapped, err := s.backend.Get(head)
	if err != nil {
		return err
	}
	vis, payload, err := decodeChunk(wrapped)
	if err != nil {
		return err
	}
	if vis.Public {
		return ErrCannotDeletePublic
	}
	if caller == nil || !bytes.Equal(ownerBytes(caller), ownerBytes(vis.Owner)) {
		return ErrNotOwner
	}

	if err := s.backend.Delete(head); err != nil {
		return err
	}

	for {
		env, err := decodeEnvelope(payload)
		if err != nil {
			return err
		}
		if env.Level == rootLevel {
			return deleteChunks(env.Map, s.backend)
		}

		full, err := selfDecryptRange(env.Map, s.backend, 0, env.Map.TotalSize())
		if err != nil {
			return err
		}
		if err := deleteChunks(env.Map, s.backend); err != nil {
			return err
		}
		_, nextPayload, err := decodeChunk(full)
		if err != nil {
			return err
		}
		payload = nextPayload
	}
}

// encodeChunk tags payload with its visibility, producing the bytes
// stored (and addressed) on the network.
func encodeChunk(vis Visibility, payload []byte) []byte {
	ob := ownerBytes(vis.Owner)
	buf := make([]byte, 0, 3+len(ob)+len(payload))
	if vis.Public {
		buf = append(buf, 0)
	} else {
		buf = append(buf, 1)
	}
	buf = append(buf, byte(len(ob)>>8), byte(len(ob)))
	buf = append(buf, ob...)
	buf = append(buf, payload...)
	return buf
}

// decodeChunk is the inverse of encodeChunk.
func decodeChunk(b []byte) (Visibility, []byte, error) {
	if len(b) < 3 {
		return Visibility{}, nil, errShortChunk
	}
	public := b[0] == 0
	obLen := int(b[1])<<8 | int(b[2])
	b = b[3:]
	if len(b) < obLen {
		return Visibility{}, nil, errShortChunk
	}
	var owner *bls.PublicKey
	if obLen > 0 {
		pk, err := bls.PublicKeyFromCompressedBytes(b[:obLen])
		if err != nil {
			return Visibility{}, nil, err
		}
		owner = pk
	}
	return Visibility{Public: public, Owner: owner}, b[obLen:], nil
}
