package plotformat

import "sync"

// LTargets is the precomputed (parity, local_y) -> 64 permitted right-side
// residues table used by the matcher (C7) to find bucket-adjacent pairs.
// It is generated once, lazily, and never mutated after that — matching
// the "L_TARGETS ... immutable global constants" rule from the concurrency
// model.
//
// Generation note: the reference Rust source treats L_TARGETS as an
// opaque precomputed constant (original_source/proof_of_space/src/constants.rs
// was not part of the retrieved file set, only its call sites in f_calc.rs
// and plot_reader.rs). This reconstructs it via the published chiapos
// matching formula (kB, kC sub-buckets of K_BC), with kC fixed at the
// well-known chiapos value of 127 and kB taken as K_BC/kC rounded up, since
// K_BC=18188 here does not factor into a kB*kC pair the way upstream's
// kBC=15113=119*127 does. Residues are folded modulo K_BC so every entry
// stays a valid bucket index; see DESIGN.md for the open-question record.
const lTargetsKC = 127

var (
	lTargetsOnce  sync.Once
	lTargetsTable [2][KBC][ProofXCount]uint16
)

// LTargets returns the generated matching table, computing it on first use.
func LTargets() *[2][KBC][ProofXCount]uint16 {
	lTargetsOnce.Do(generateLTargets)
	return &lTargetsTable
}

func generateLTargets() {
	kB := (KBC + lTargetsKC - 1) / lTargetsKC
	for parity := 0; parity < 2; parity++ {
		for localY := 0; localY < KBC; localY++ {
			b := localY / lTargetsKC
			c := localY % lTargetsKC
			for m := 0; m < ProofXCount; m++ {
				twoMPlusParity := int64(2*m + parity)
				yr := int64((b+m)%kB)*int64(lTargetsKC) +
					(twoMPlusParity*twoMPlusParity+int64(c))%int64(lTargetsKC)
				lTargetsTable[parity][localY][m] = uint16(yr % int64(KBC))
			}
		}
	}
}
