package ports

// LexiconPort provides the word lists linguistic metrics score against.
// Words are uppercase A-Z.
type LexiconPort interface {
	// IsWord reports membership in the combined lexicon
	IsWord(word string) bool

	// IsFunctionWord reports membership in the function-word list
	IsFunctionWord(word string) bool

	// WordLengths returns the distinct word lengths present, longest first.
	// Greedy tiling scans lengths in this order
	WordLengths() []int

	// Size returns the total number of distinct words
	Size() int
}
