package cipher

import (
	"testing"
)

// TestFamilyInverse verifies decrypt(encrypt(P,K),K) == P and
// encrypt(decrypt(C,K),K) == C for every family and every residue pair.
func TestFamilyInverse(t *testing.T) {
	for _, f := range Families() {
		for p := 0; p < Modulus; p++ {
			for k := 0; k < Modulus; k++ {
				pr, kr := Residue(p), Residue(k)
				c := f.Encrypt(pr, kr)
				if got := f.Decrypt(c, kr); got != pr {
					t.Fatalf("%s: decrypt(encrypt(%d,%d)) = %d, want %d", f, p, k, got, p)
				}
				if got := f.Encrypt(f.Decrypt(pr, kr), kr); got != pr {
					t.Fatalf("%s: encrypt(decrypt(%d,%d)) = %d, want %d", f, p, k, got, p)
				}
			}
		}
	}
}

// TestKeyResidue verifies the key relation closes the triangle: the key
// derived from (P, C) re-encrypts P to C.
func TestKeyResidue(t *testing.T) {
	for _, f := range Families() {
		for p := 0; p < Modulus; p++ {
			for c := 0; c < Modulus; c++ {
				pr, cr := Residue(p), Residue(c)
				k := f.KeyResidue(pr, cr)
				if got := f.Encrypt(pr, k); got != cr {
					t.Fatalf("%s: encrypt(%d, key(%d,%d)=%d) = %d, want %d", f, p, p, c, k, got, c)
				}
			}
		}
	}
}

// TestFamilyRelations pins the three relations to known values.
func TestFamilyRelations(t *testing.T) {
	tests := []struct {
		family  Family
		p, k, c Residue
	}{
		// Vigenere: C = P + K
		{Vigenere, 0, 0, 0},
		{Vigenere, 4, 10, 14},  // E + K(10) = O
		{Vigenere, 25, 1, 0},   // Z + B wraps to A
		// Beaufort: C = K - P
		{Beaufort, 0, 0, 0},
		{Beaufort, 4, 10, 6},   // K(10) - E = G
		{Beaufort, 19, 18, 25}, // S - T wraps to Z
		// Variant-Beaufort: C = P - K
		{VariantBeaufort, 0, 0, 0},
		{VariantBeaufort, 14, 10, 4}, // O - K(10) = E
		{VariantBeaufort, 1, 3, 24},  // B - D wraps to Y
	}

	for _, test := range tests {
		if got := test.family.Encrypt(test.p, test.k); got != test.c {
			t.Errorf("%s.Encrypt(%d,%d) = %d, want %d", test.family, test.p, test.k, got, test.c)
		}
		if got := test.family.Decrypt(test.c, test.k); got != test.p {
			t.Errorf("%s.Decrypt(%d,%d) = %d, want %d", test.family, test.c, test.k, got, test.p)
		}
		if got := test.family.KeyResidue(test.p, test.c); got != test.k {
			t.Errorf("%s.KeyResidue(%d,%d) = %d, want %d", test.family, test.p, test.c, got, test.k)
		}
	}
}

// TestZeroKeyIdentity documents why Option-A exempts Beaufort: a zero key
// is a pass-through for the additive families but not for Beaufort.
func TestZeroKeyIdentity(t *testing.T) {
	for p := 0; p < Modulus; p++ {
		pr := Residue(p)
		if got := Vigenere.Encrypt(pr, 0); got != pr {
			t.Errorf("Vigenere with K=0 should pass through, got %d for %d", got, p)
		}
		if got := VariantBeaufort.Encrypt(pr, 0); got != pr {
			t.Errorf("VariantBeaufort with K=0 should pass through, got %d for %d", got, p)
		}
	}

	// Beaufort K=0 maps P to -P; only A (0) and N (13) are fixed points.
	identical := 0
	for p := 0; p < Modulus; p++ {
		pr := Residue(p)
		if Beaufort.Encrypt(pr, 0) == pr {
			identical++
		}
	}
	if identical != 2 {
		t.Errorf("Beaufort with K=0 should fix exactly A and N, fixed %d residues", identical)
	}
}

func TestFamilyAdditive(t *testing.T) {
	if !Vigenere.Additive() || !VariantBeaufort.Additive() {
		t.Error("Vigenere and VariantBeaufort must be additive")
	}
	if Beaufort.Additive() {
		t.Error("Beaufort must not be additive")
	}
}

func TestParseFamily(t *testing.T) {
	tests := []struct {
		input    string
		expected Family
		hasError bool
	}{
		{"vigenere", Vigenere, false},
		{"vig", Vigenere, false},
		{"Beaufort", Beaufort, false},
		{"bf", Beaufort, false},
		{"variant_beaufort", VariantBeaufort, false},
		{"variant-beaufort", VariantBeaufort, false},
		{"vb", VariantBeaufort, false},
		{"caesar", 0, true},
		{"", 0, true},
	}

	for _, test := range tests {
		got, err := ParseFamily(test.input)
		if test.hasError {
			if err == nil {
				t.Errorf("ParseFamily(%q): expected error", test.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFamily(%q): unexpected error %v", test.input, err)
		}
		if got != test.expected {
			t.Errorf("ParseFamily(%q) = %s, want %s", test.input, got, test.expected)
		}
	}
}

func TestResidueOf(t *testing.T) {
	if r, ok := ResidueOf('A'); !ok || r != 0 {
		t.Errorf("ResidueOf('A') = %d,%v, want 0,true", r, ok)
	}
	if r, ok := ResidueOf('Z'); !ok || r != 25 {
		t.Errorf("ResidueOf('Z') = %d,%v, want 25,true", r, ok)
	}
	for _, b := range []byte{'a', '?', ' ', '0'} {
		if _, ok := ResidueOf(b); ok {
			t.Errorf("ResidueOf(%q) should reject non-uppercase input", b)
		}
	}
}
