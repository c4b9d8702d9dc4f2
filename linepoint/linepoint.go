// Package linepoint implements the bijection between an ordered pair of
// table indices (x,y) and a single integer line point, plus its square-root
// inverse. Ported from the triangle-number pairing function used throughout
// the reference proof-of-space plotter/decompressor (LinePoint in
// plots/decompressor.rs and the f_calc/plot_reader call sites).
package linepoint

import "math/big"

// Triangle64 returns n*(n-1)/2, the nth triangular number.
func Triangle64(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	return n * (n - 1) / 2
}

// Encode64 returns LP(x,y) = triangle(max(x,y)) + min(x,y) as a 64-bit
// value; valid whenever 2k <= 64 (k <= 32, the only size this module
// supports).
func Encode64(x, y uint64) uint64 {
	big_, small := x, y
	if small > big_ {
		big_, small = small, big_
	}
	return Triangle64(big_) + small
}

// Decode64 is the inverse of Encode64: given a line point it returns
// (big, small) with big >= small, such that Encode64(big, small) == lp.
func Decode64(lp uint64) (big_, small uint64) {
	// big = floor((sqrt(8*lp+1)+1)/2), computed via big.Int to avoid
	// overflowing 8*lp+1 in a float64 mantissa for k close to 32.
	discriminant := new(big.Int).SetUint64(lp)
	discriminant.Mul(discriminant, big.NewInt(8))
	discriminant.Add(discriminant, big.NewInt(1))
	root := new(big.Int).Sqrt(discriminant)
	root.Add(root, big.NewInt(1))
	root.Div(root, big.NewInt(2))
	b := root.Uint64()
	// The integer sqrt can be off by one at the boundary; correct it the
	// same way the reference implementation's callers do, by nudging b
	// down until triangle(b) <= lp.
	for b > 0 && Triangle64(b) > lp {
		b--
	}
	for Triangle64(b+1) <= lp {
		b++
	}
	return b, lp - Triangle64(b)
}

// Encode128 is the 128-bit variant used for k=32 at compression level>=9,
// where two x values are packed half-width each and the resulting line
// point can exceed 64 bits.
func Encode128(x, y *big.Int) *big.Int {
	big_, small := new(big.Int).Set(x), new(big.Int).Set(y)
	if small.Cmp(big_) > 0 {
		big_, small = small, big_
	}
	t := triangleBig(big_)
	return t.Add(t, small)
}

// Decode128 is Encode128's inverse.
func Decode128(lp *big.Int) (big_, small *big.Int) {
	discriminant := new(big.Int).Mul(lp, big.NewInt(8))
	discriminant.Add(discriminant, big.NewInt(1))
	root := new(big.Int).Sqrt(discriminant)
	root.Add(root, big.NewInt(1))
	root.Div(root, big.NewInt(2))
	for triangleBig(root).Cmp(lp) > 0 {
		root.Sub(root, big.NewInt(1))
	}
	for {
		next := new(big.Int).Add(root, big.NewInt(1))
		if triangleBig(next).Cmp(lp) <= 0 {
			root = next
		} else {
			break
		}
	}
	small = new(big.Int).Sub(lp, triangleBig(root))
	return root, small
}

func triangleBig(n *big.Int) *big.Int {
	if n.Sign() == 0 {
		return big.NewInt(0)
	}
	nm1 := new(big.Int).Sub(n, big.NewInt(1))
	t := new(big.Int).Mul(n, nm1)
	return t.Div(t, big.NewInt(2))
}
