package chacha8

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// These exercise internal consistency properties (determinism, block
// advancement, key/nonce sensitivity) rather than an external test vector:
// this is the reference implementation's 8-round (4 double-round) variant,
// not RFC 7539's 20-round ChaCha20, so published ChaCha20 vectors don't
// apply to it directly.

func TestGetKeystreamIsDeterministic(t *testing.T) {
	var key [32]byte
	key[0] = 0x42
	var ctx Context
	KeySetup(&ctx, key, nil)

	var out1, out2 []byte
	GetKeystream(&ctx, 0, 2, &out1)
	GetKeystream(&ctx, 0, 2, &out2)
	require.Equal(t, out1, out2)
}

func TestGetKeystreamBlocksDiffer(t *testing.T) {
	var key [32]byte
	var ctx Context
	KeySetup(&ctx, key, nil)

	var out []byte
	GetKeystream(&ctx, 0, 2, &out)
	require.NotEqual(t, out[:64], out[64:128], "successive blocks must not repeat")
}

func TestGetKeystreamMultiBlockMatchesSeparateCalls(t *testing.T) {
	var key [32]byte
	for i := range key {
		key[i] = byte(i)
	}
	var nonce [8]byte
	nonce[0] = 7

	var ctx Context
	KeySetup(&ctx, key, &nonce)

	var combined []byte
	GetKeystream(&ctx, 3, 2, &combined)

	var block0, block1 []byte
	GetKeystream(&ctx, 3, 1, &block0)
	GetKeystream(&ctx, 4, 1, &block1)

	require.Equal(t, combined[:64], block0)
	require.Equal(t, combined[64:], block1)
}

func TestGetKeystreamKeySensitivity(t *testing.T) {
	var key1, key2 [32]byte
	key2[0] = 1

	var ctx1, ctx2 Context
	KeySetup(&ctx1, key1, nil)
	KeySetup(&ctx2, key2, nil)

	var out1, out2 []byte
	GetKeystream(&ctx1, 0, 1, &out1)
	GetKeystream(&ctx2, 0, 1, &out2)
	require.False(t, bytes.Equal(out1, out2), "changing one key byte must change the keystream")
}

func TestGetKeystreamNonceSensitivity(t *testing.T) {
	var key [32]byte
	var nonce1, nonce2 [8]byte
	nonce2[7] = 1

	var ctx1, ctx2 Context
	KeySetup(&ctx1, key, &nonce1)
	KeySetup(&ctx2, key, &nonce2)

	var out1, out2 []byte
	GetKeystream(&ctx1, 0, 1, &out1)
	GetKeystream(&ctx2, 0, 1, &out2)
	require.False(t, bytes.Equal(out1, out2))
}

func TestGetKeystreamCounterCarriesIntoWord13(t *testing.T) {
	var key [32]byte
	var ctx Context
	KeySetup(&ctx, key, nil)

	var out []byte
	// pos = 2^32-1 then the next block's counter must carry: word 12 wraps
	// to 0 and word 13 increments, matching the reference's 64-bit counter
	// split across input words 12/13.
	GetKeystream(&ctx, 1<<32-1, 2, &out)
	require.NotEqual(t, out[:64], out[64:128])

	var wantSecondBlock []byte
	GetKeystream(&ctx, 1<<32, 1, &wantSecondBlock)
	require.Equal(t, wantSecondBlock, out[64:128])
}

func TestGetKeystreamOutputLength(t *testing.T) {
	var key [32]byte
	var ctx Context
	KeySetup(&ctx, key, nil)

	var out []byte
	GetKeystream(&ctx, 0, 5, &out)
	require.Len(t, out, 5*blockSizeBytes)
}
