package blob

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/crypto/bls"
	"github.com/zeebo/blake3"

	"github.com/luxfi/overlay/address"
)

// MaxChunkSize is the largest payload a single on-the-wire chunk may
// carry before it must be packed into a further self-encrypted level
// (spec §4.7).
const MaxChunkSize = 1 << 20 // 1 MiB

var (
	// ErrChunkTooLarge names a chunk over MaxChunkSize. No function in
	// this package returns it: Put keeps packing further levels until the
	// head chunk fits.
	ErrChunkTooLarge = errors.New("blob: chunk exceeds max size")
	// ErrOffsetOutOfRange is returned when a Get's offset exceeds the
	// data's total length.
	ErrOffsetOutOfRange = errors.New("blob: offset out of range")
	// ErrNotFound is returned when the head chunk is absent from storage.
	ErrNotFound = errors.New("blob: not found")
	// ErrCannotDeletePublic is returned when Delete is called on a chunk
	// whose final level is public (Public chunks are immutable and
	// shared by address; only the owner of a Private chunk may delete).
	ErrCannotDeletePublic = errors.New("blob: cannot delete a public chunk")
	// ErrNotOwner is returned when a delete is attempted with an owner
	// key that does not match the chunk's recorded owner.
	ErrNotOwner = errors.New("blob: caller is not the owner")

	errShortChunk = errors.New("blob: truncated chunk")
)

// Storage is the content-addressed backend blob depends on to persist
// encrypted leaf chunks and packed envelope chunks. A real node wires
// this to its network/adult store; tests and dry-run address
// computation use an in-memory implementation.
type Storage interface {
	Put(addr address.XorName, data []byte) error
	Get(addr address.XorName) ([]byte, error)
	Delete(addr address.XorName) error
}

// MemStorage is an in-memory Storage, safe for concurrent use.
type MemStorage struct {
	mu   sync.RWMutex
	data map[address.XorName][]byte
}

// NewMemStorage returns an empty in-memory store.
func NewMemStorage() *MemStorage {
	return &MemStorage{data: make(map[address.XorName][]byte)}
}

// Put implements Storage.
func (s *MemStorage) Put(addr address.XorName, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.data[addr] = cp
	return nil
}

// Get implements Storage.
func (s *MemStorage) Get(addr address.XorName) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[addr]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

// Delete implements Storage.
func (s *MemStorage) Delete(addr address.XorName) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, addr)
	return nil
}

// level distinguishes a DataMap that is the true root of a blob from one
// that is itself nested inside the next level up.
type level uint8

const (
	rootLevel level = iota
	childLevel
)

// chunkEnvelope is the payload every on-the-wire chunk carries while
// packing is still in progress: a tagged data map, either the final Root
// describing the caller's bytes, or a Child describing the serialized
// bytes of the next chunk up the chain.
type chunkEnvelope struct {
	Level level
	Map   DataMap
}

// ownerBytes returns the compressed owner key, or nil for public chunks.
func ownerBytes(owner *bls.PublicKey) []byte {
	if owner == nil {
		return nil
	}
	return bls.PublicKeyToCompressedBytes(owner)
}

// chunkAddress computes a chunk's content address: hash(payload) for
// public chunks, hash(payload ‖ owner) for private ones (spec §4.7).
func chunkAddress(payload []byte, owner *bls.PublicKey) address.XorName {
	h := blake3.New()
	h.Write(payload)
	if ob := ownerBytes(owner); ob != nil {
		h.Write(ob)
	}
	var out address.XorName
	sum := h.Sum(nil)
	copy(out[:], sum)
	return out
}

// encodeEnvelope serializes a chunkEnvelope to bytes. The format is
// internal to this package: a level tag followed by a count-prefixed
// list of fixed-size chunk records.
func encodeEnvelope(e chunkEnvelope) []byte {
	buf := make([]byte, 0, 1+4+len(e.Map.Chunks)*(32+32+4))
	buf = append(buf, byte(e.Level))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(e.Map.Chunks)))
	for _, c := range e.Map.Chunks {
		buf = append(buf, c.PreHash[:]...)
		buf = append(buf, c.PostHash[:]...)
		buf = binary.BigEndian.AppendUint32(buf, c.Size)
	}
	return buf
}

// decodeEnvelope is the inverse of encodeEnvelope.
func decodeEnvelope(b []byte) (chunkEnvelope, error) {
	if len(b) < 5 {
		return chunkEnvelope{}, fmt.Errorf("blob: envelope too short")
	}
	lvl := level(b[0])
	count := binary.BigEndian.Uint32(b[1:5])
	b = b[5:]

	const recSize = 32 + 32 + 4
	if uint64(len(b)) != uint64(count)*recSize {
		return chunkEnvelope{}, fmt.Errorf("blob: envelope length mismatch")
	}

	chunks := make([]ChunkInfo, count)
	for i := range chunks {
		rec := b[i*recSize : (i+1)*recSize]
		copy(chunks[i].PreHash[:], rec[0:32])
		copy(chunks[i].PostHash[:], rec[32:64])
		chunks[i].Size = binary.BigEndian.Uint32(rec[64:68])
	}
	return chunkEnvelope{Level: lvl, Map: DataMap{Chunks: chunks}}, nil
}
