package lexicon

import (
	_ "embed"
	"sort"
	"strings"

	"gokryptos/ports"
)

//go:embed words/function_words.txt
var functionWordsRaw string

//go:embed words/content_words.txt
var contentWordsRaw string

// Adapter serves the embedded word lists. Lists are parsed once at
// construction; lookups are map hits.
type Adapter struct {
	words    map[string]bool
	function map[string]bool
	lengths  []int
}

var _ ports.LexiconPort = (*Adapter)(nil)

// New parses the embedded lists.
func New() *Adapter {
	a := &Adapter{
		words:    make(map[string]bool),
		function: make(map[string]bool),
	}
	for _, w := range parseList(functionWordsRaw) {
		a.function[w] = true
		a.words[w] = true
	}
	for _, w := range parseList(contentWordsRaw) {
		a.words[w] = true
	}

	seen := make(map[int]bool)
	for w := range a.words {
		seen[len(w)] = true
	}
	for l := range seen {
		a.lengths = append(a.lengths, l)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(a.lengths)))
	return a
}

func parseList(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		w := strings.ToUpper(strings.TrimSpace(line))
		if w == "" {
			continue
		}
		out = append(out, w)
	}
	return out
}

// IsWord reports membership in the combined lexicon.
func (a *Adapter) IsWord(word string) bool {
	return a.words[word]
}

// IsFunctionWord reports membership in the function-word list.
func (a *Adapter) IsFunctionWord(word string) bool {
	return a.function[word]
}

// WordLengths returns the distinct word lengths, longest first.
func (a *Adapter) WordLengths() []int {
	out := make([]int, len(a.lengths))
	copy(out, a.lengths)
	return out
}

// Size returns the number of distinct words.
func (a *Adapter) Size() int {
	return len(a.words)
}
