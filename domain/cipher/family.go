package cipher

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Modulus is the alphabet size shared by all families.
const Modulus = 26

// Residue is a letter expressed as its alphabet index, A=0 through Z=25.
type Residue uint8

// Letter returns the uppercase ASCII letter for the residue.
func (r Residue) Letter() byte {
	return 'A' + byte(r)
}

// ResidueOf converts an uppercase ASCII letter to its residue.
// The second return is false for anything outside A-Z.
func ResidueOf(b byte) (Residue, bool) {
	if b < 'A' || b > 'Z' {
		return 0, false
	}
	return Residue(b - 'A'), true
}

func mod(a int) Residue {
	return Residue(((a % Modulus) + Modulus) % Modulus)
}

// Family identifies one of the three tabula-recta cipher relations.
// The set is closed: every switch over Family is exhaustive and an
// out-of-range value is a programming error, not an input error.
type Family uint8

const (
	Vigenere Family = iota
	Beaufort
	VariantBeaufort
)

// Families lists all members in declaration order.
func Families() []Family {
	return []Family{Vigenere, Beaufort, VariantBeaufort}
}

// String returns the canonical lowercase name.
func (f Family) String() string {
	switch f {
	case Vigenere:
		return "vigenere"
	case Beaufort:
		return "beaufort"
	case VariantBeaufort:
		return "variant_beaufort"
	}
	panic(fmt.Sprintf("cipher: unknown family %d", uint8(f)))
}

// ParseFamily resolves a family by name. Accepted spellings are the
// canonical names plus the short forms "vig", "bf" and "vb".
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vigenere", "vig":
		return Vigenere, nil
	case "beaufort", "bf":
		return Beaufort, nil
	case "variant_beaufort", "variant-beaufort", "vb":
		return VariantBeaufort, nil
	}
	return 0, fmt.Errorf("unknown cipher family %q", s)
}

// Additive reports whether the family is additive, i.e. a zero key
// residue makes ciphertext equal plaintext. Beaufort is not additive:
// K=0 there maps P to -P, which is an identity only for A and N.
func (f Family) Additive() bool {
	switch f {
	case Vigenere, VariantBeaufort:
		return true
	case Beaufort:
		return false
	}
	panic(fmt.Sprintf("cipher: unknown family %d", uint8(f)))
}

// Encrypt returns the ciphertext residue for plaintext p under key k.
func (f Family) Encrypt(p, k Residue) Residue {
	switch f {
	case Vigenere:
		return mod(int(p) + int(k))
	case Beaufort:
		return mod(int(k) - int(p))
	case VariantBeaufort:
		return mod(int(p) - int(k))
	}
	panic(fmt.Sprintf("cipher: unknown family %d", uint8(f)))
}

// Decrypt returns the plaintext residue for ciphertext c under key k.
func (f Family) Decrypt(c, k Residue) Residue {
	switch f {
	case Vigenere:
		return mod(int(c) - int(k))
	case Beaufort:
		return mod(int(k) - int(c))
	case VariantBeaufort:
		return mod(int(c) + int(k))
	}
	panic(fmt.Sprintf("cipher: unknown family %d", uint8(f)))
}

// KeyResidue returns the key residue implied by a plaintext/ciphertext pair.
func (f Family) KeyResidue(p, c Residue) Residue {
	switch f {
	case Vigenere:
		return mod(int(c) - int(p))
	case Beaufort:
		return mod(int(c) + int(p))
	case VariantBeaufort:
		return mod(int(p) - int(c))
	}
	panic(fmt.Sprintf("cipher: unknown family %d", uint8(f)))
}

// MarshalJSON encodes the family as its canonical name.
func (f Family) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON decodes a family from any accepted spelling.
func (f *Family) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseFamily(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
