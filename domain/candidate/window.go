package candidate

import (
	"gokryptos/domain/cipher"
)

// Window extracts the scorable residues of a plaintext: determined
// cells outside the anchor spans, in index order. Anchor cells are
// masked because every lawful candidate reproduces them verbatim, so
// scoring them would hand all candidates the same head start and let
// null samples recycle known plaintext.
func Window(p Plaintext, anchors cipher.AnchorSet) []cipher.Residue {
	var out []cipher.Residue
	for i := 0; i < p.Len(); i++ {
		if anchors.Covers(i) {
			continue
		}
		if r, ok := p.At(i).Residue(); ok {
			out = append(out, r)
		}
	}
	return out
}
