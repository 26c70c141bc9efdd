// Package keyspace maps the 32-bit number space onto chunked artifact keys.
//
// The space [0, 2^32) is cut into chunks of ChunkSize numbers. Chunk i is
// named by four path segments built from the index, most-significant byte
// first: aa/bb/cc/dddddd, where the last segment is the whole index in
// hexadecimal padded to six digits.
package keyspace

import (
	"fmt"

	"github.com/roach88/iseven/internal/domain"
)

// Size is the number of values in the key space.
const Size uint64 = 1 << 32

// DefaultChunkSize is the number of values covered by one artifact.
const DefaultChunkSize uint64 = 100_000

// Layout describes how the key space is chunked.
type Layout struct {
	ChunkSize uint64
}

// Default returns the layout used by the generator and scanner unless
// configured otherwise.
func Default() Layout {
	return Layout{ChunkSize: DefaultChunkSize}
}

// Validate checks that the layout can address the whole key space.
func (l Layout) Validate() error {
	if l.ChunkSize == 0 || l.ChunkSize > Size {
		return domain.NewValidationError(fmt.Sprintf("chunk size %d must be in [1, %d]", l.ChunkSize, Size), nil)
	}
	return nil
}

// Count returns the number of keys: ceil(2^32 / ChunkSize).
func (l Layout) Count() uint64 {
	return (Size + l.ChunkSize - 1) / l.ChunkSize
}

// Item returns the work item for chunk index i.
func (l Layout) Item(i uint32) domain.WorkItem {
	return domain.WorkItem{Index: i, Name: Name(i)}
}

// Range returns the half-open range [lo, hi) of values chunk i covers.
// The last chunk is short when ChunkSize does not divide 2^32.
func (l Layout) Range(i uint32) (lo, hi uint64) {
	lo = uint64(i) * l.ChunkSize
	hi = min(lo+l.ChunkSize, Size)
	return lo, hi
}

// Locate returns the index of the chunk covering n.
func (l Layout) Locate(n uint32) uint32 {
	return uint32(uint64(n) / l.ChunkSize)
}

// Name renders the relative key path for chunk index i.
func Name(i uint32) string {
	return fmt.Sprintf("%02x/%02x/%02x/%06x", (i>>24)&0xff, (i>>16)&0xff, (i>>8)&0xff, i)
}
