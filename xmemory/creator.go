package xmemory

import (
	"sync"

	"github.com/pkg/errors"
)

var ErrBlockSize = errors.New("xmemory: block size must be positive")

// BlockAllocator hands out fixed-size blocks carved from larger chunks, so a
// pool of n blocks costs ceil(n*blockSize/chunkSize) allocations instead of n.
// Every block is capped with a full slice expression: appending to one can
// never overwrite its neighbour.
type BlockAllocator struct {
	blockSize int
	chunkSize int
	buf       []byte
	idx       int
	chunks    int
	blocks    int
	mutex     sync.Mutex
}

type AllocatorStats struct {
	BlockSize int
	ChunkSize int
	Chunks    int // chunk allocations, including oversize blocks
	Blocks    int // blocks handed out
}

// NewBlockAllocator returns an allocator for blocks of blockSize bytes. A
// chunkSize smaller than blockSize means every block gets its own allocation.
func NewBlockAllocator(blockSize, chunkSize int) (*BlockAllocator, error) {
	if blockSize <= 0 {
		return nil, errors.Wrapf(ErrBlockSize, "block size %d", blockSize)
	}
	if chunkSize < blockSize {
		chunkSize = blockSize
	}
	// round down to whole blocks so no chunk tail is wasted
	chunkSize -= chunkSize % blockSize
	return &BlockAllocator{
		blockSize: blockSize,
		chunkSize: chunkSize,
	}, nil
}

func (cr *BlockAllocator) Alloc() []byte {
	cr.mutex.Lock()
	defer cr.mutex.Unlock()
	if cr.idx+cr.blockSize > len(cr.buf) {
		cr.buf = make([]byte, cr.chunkSize)
		cr.idx = 0
		cr.chunks++
	}
	current := cr.buf[cr.idx : cr.idx+cr.blockSize : cr.idx+cr.blockSize]
	cr.idx += cr.blockSize
	cr.blocks++
	return current
}

func (cr *BlockAllocator) AllocN(n int) [][]byte {
	out := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, cr.Alloc())
	}
	return out
}

func (cr *BlockAllocator) Stats() AllocatorStats {
	cr.mutex.Lock()
	defer cr.mutex.Unlock()
	return AllocatorStats{
		BlockSize: cr.blockSize,
		ChunkSize: cr.chunkSize,
		Chunks:    cr.chunks,
		Blocks:    cr.blocks,
	}
}
