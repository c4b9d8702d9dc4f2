// Package chacha8 implements the 8-round (4 double-round) ChaCha stream
// cipher used to key table-1 generation. It deliberately does not reuse
// golang.org/x/crypto/chacha20, which hardcodes 20 rounds; this is a
// distinct, narrower primitive ported bit-for-bit from the reference
// proof-of-space implementation's chacha8.rs.
package chacha8

import "encoding/binary"

const (
	blockSizeBytes = 64
	stateWords     = 16
)

var sigma = [4]uint32{0x61707865, 0x3320646e, 0x79622d32, 0x6b206574}

// Context holds the 16-word ChaCha8 initial state (constants, key, counter,
// nonce) set up once by KeySetup and reused across GetKeystream calls.
type Context struct {
	input [stateWords]uint32
}

func rotl32(x uint32, n uint) uint32 {
	return (x << n) | (x >> (32 - n))
}

func quarterRound(state *[stateWords]uint32, a, b, c, d int) {
	state[a] += state[b]
	state[d] ^= state[a]
	state[d] = rotl32(state[d], 16)

	state[c] += state[d]
	state[b] ^= state[c]
	state[b] = rotl32(state[b], 12)

	state[a] += state[b]
	state[d] ^= state[a]
	state[d] = rotl32(state[d], 8)

	state[c] += state[d]
	state[b] ^= state[c]
	state[b] = rotl32(state[b], 7)
}

// KeySetup initializes ctx with the standard ChaCha constants, a 32-byte
// key (loaded little-endian into words 4..11), an optional 8-byte nonce
// (words 14..15, zero if nil) and a zeroed block counter (words 12..13).
func KeySetup(ctx *Context, key [32]byte, nonce *[8]byte) {
	ctx.input[0] = sigma[0]
	ctx.input[1] = sigma[1]
	ctx.input[2] = sigma[2]
	ctx.input[3] = sigma[3]
	for i := 0; i < 8; i++ {
		ctx.input[4+i] = binary.LittleEndian.Uint32(key[i*4 : i*4+4])
	}
	ctx.input[12] = 0
	ctx.input[13] = 0
	if nonce != nil {
		ctx.input[14] = binary.LittleEndian.Uint32(nonce[0:4])
		ctx.input[15] = binary.LittleEndian.Uint32(nonce[4:8])
	} else {
		ctx.input[14] = 0
		ctx.input[15] = 0
	}
}

// GetKeystream fills out with nBlocks*64 bytes of keystream starting at
// block counter pos. out is grown/truncated to exactly that length.
func GetKeystream(ctx *Context, pos uint64, nBlocks uint32, out *[]byte) {
	need := int(nBlocks) * blockSizeBytes
	if cap(*out) < need {
		*out = make([]byte, need)
	} else {
		*out = (*out)[:need]
	}
	j12 := uint32(pos)
	j13 := uint32(pos >> 32)

	working := ctx.input
	working[12] = j12
	working[13] = j13

	for block := 0; block < int(nBlocks); block++ {
		state := working

		for r := 0; r < 4; r++ {
			// Column rounds.
			quarterRound(&state, 0, 4, 8, 12)
			quarterRound(&state, 1, 5, 9, 13)
			quarterRound(&state, 2, 6, 10, 14)
			quarterRound(&state, 3, 7, 11, 15)
			// Diagonal rounds.
			quarterRound(&state, 0, 5, 10, 15)
			quarterRound(&state, 1, 6, 11, 12)
			quarterRound(&state, 2, 7, 8, 13)
			quarterRound(&state, 3, 4, 9, 14)
		}

		base := block * blockSizeBytes
		for i := 0; i < stateWords; i++ {
			v := state[i] + working[i]
			binary.LittleEndian.PutUint32((*out)[base+i*4:base+i*4+4], v)
		}

		// Advance the 64-bit block counter with carry, matching the
		// reference implementation's wrapping add across words 12/13.
		working[12]++
		if working[12] == 0 {
			working[13]++
		}
	}
}
