// Package decompool implements the bounded decompressor pool (C11): a
// fixed-depth set of preallocated Decompressor instances handed out on
// pull and returned on push, so a lookup never pays allocation cost for
// its scratch buffers. Grounded on DecompressorPool in
// original_source/proof_of_space/src/plots/decompressor.rs, translated
// from its VecDeque+Mutex+spin-loop implementation into a buffered
// channel, the idiom this module's teacher code uses for worker pools
// (tx-pool.go).
package decompool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GalactechsLLC/dg-xch-utils-sub000/decompressor"
	"github.com/google/uuid"
)

// ErrTimeout is returned by PullWait when no instance becomes available
// before the deadline.
var ErrTimeout = errors.New("decompool: timed out waiting for a decompressor")

// Instance pairs a Decompressor with a stable id, useful for logging which
// pool member served a given lookup.
type Instance struct {
	ID           uuid.UUID
	Decompressor *decompressor.Decompressor
}

// Pool is a fixed-depth, preallocated set of decompressor instances.
type Pool struct {
	depth int
	slots chan *Instance
}

// New builds a Pool of the given depth, each instance preallocated for cfg.
func New(depth int, cfg decompressor.Config) *Pool {
	p := &Pool{depth: depth, slots: make(chan *Instance, depth)}
	for i := 0; i < depth; i++ {
		p.slots <- &Instance{ID: uuid.New(), Decompressor: decompressor.New(cfg)}
	}
	return p
}

// Len reports how many instances are currently idle in the pool.
func (p *Pool) Len() int { return len(p.slots) }

// Depth reports the pool's fixed capacity.
func (p *Pool) Depth() int { return p.depth }

// PullWait blocks until an instance is available or timeout elapses,
// mirroring DecompressorPool::pull_wait's timeout contract without its
// busy-spin implementation.
func (p *Pool) PullWait(timeout time.Duration) (*Instance, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	select {
	case inst := <-p.slots:
		return inst, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
}

// Push returns an instance to the pool; it never blocks because the
// channel is sized exactly to depth and every instance is pulled before
// being pushed back.
func (p *Pool) Push(inst *Instance) {
	p.slots <- inst
}
