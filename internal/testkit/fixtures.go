package testkit

import (
	"fmt"

	"gokryptos/domain/cipher"
	"gokryptos/domain/schedule"
)

// K4Ciphertext is the 97-letter fourth Kryptos panel.
const K4Ciphertext = "OBKRUOXOGHULBSOLIFBBWFLRVQQPRNGKSSOTWTQSJQSSEKZZWATJKLUDIAWINFBNYPVTTMZFPKWGDKZXTJCDIGKUHUAUEKCAR"

// Start indices of the three published clue spans within K4.
const (
	EastStart        = 21
	NortheastStart   = 25
	BerlinClockStart = 63
)

// K4Text parses the panel ciphertext.
func K4Text() cipher.Text {
	return cipher.MustText(K4Ciphertext)
}

func mustAnchor(start int, plaintext string) cipher.Anchor {
	a, err := cipher.NewAnchor(start, plaintext)
	if err != nil {
		panic(fmt.Sprintf("testkit: bad anchor fixture: %v", err))
	}
	return a
}

func mustSet(textLen int, anchors ...cipher.Anchor) cipher.AnchorSet {
	s, err := cipher.NewAnchorSet(textLen, anchors...)
	if err != nil {
		panic(fmt.Sprintf("testkit: bad anchor set fixture: %v", err))
	}
	return s
}

// K4Anchors returns the full clue set: EAST, NORTHEAST and BERLINCLOCK.
func K4Anchors() cipher.AnchorSet {
	return mustSet(len(K4Ciphertext),
		mustAnchor(EastStart, "EAST"),
		mustAnchor(NortheastStart, "NORTHEAST"),
		mustAnchor(BerlinClockStart, "BERLINCLOCK"),
	)
}

// K4AnchorsEastNortheast returns only the two 1990s clues.
func K4AnchorsEastNortheast() cipher.AnchorSet {
	return mustSet(len(K4Ciphertext),
		mustAnchor(EastStart, "EAST"),
		mustAnchor(NortheastStart, "NORTHEAST"),
	)
}

// K4AnchorsEast returns the single EAST clue.
func K4AnchorsEast() cipher.AnchorSet {
	return mustSet(len(K4Ciphertext), mustAnchor(EastStart, "EAST"))
}

// ReferencePlan is the smallest plan lawful for all three clues under
// the baseline formula at period 17, phase 0: the cells at indices 32
// and 73 encrypt to themselves, so their classes (2 and 4) must run a
// non-additive family. Everything else stays Vigenere.
func ReferencePlan() schedule.Plan {
	classes := make([]schedule.ClassConfig, 6)
	for c := range classes {
		fam := cipher.Vigenere
		if c == 2 || c == 4 {
			fam = cipher.Beaufort
		}
		classes[c] = schedule.ClassConfig{Family: fam, Period: 17, Phase: 0}
	}
	plan, err := schedule.NewPlan("baseline", classes)
	if err != nil {
		panic(fmt.Sprintf("testkit: bad reference plan: %v", err))
	}
	return plan
}

// Encipher builds a ciphertext for the plan, reading the key residue
// for each position's wheel slot from the key function. Fixtures built
// this way have a known true schedule, which makes them useful for
// round-trip and full-propagation cases.
func Encipher(plan schedule.Plan, plaintext string, key func(class, slot int) cipher.Residue) (cipher.Text, error) {
	formula := plan.Formula()
	buf := make([]byte, len(plaintext))
	for i := 0; i < len(plaintext); i++ {
		p, ok := cipher.ResidueOf(plaintext[i])
		if !ok {
			return cipher.Text{}, fmt.Errorf("testkit: plaintext byte %q at %d is not a letter", plaintext[i], i)
		}
		class := formula.ClassOf(i)
		cc := plan.Class(class)
		slot := (i + cc.Phase) % cc.Period
		buf[i] = cc.Family.Encrypt(p, key(class, slot)).Letter()
	}
	return cipher.ParseText(string(buf))
}
