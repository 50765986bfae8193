package analyzer

import (
	"strings"
	"unicode"
)

// Tokenizer splits catalog text into lowercase terms with optional plural
// folding and stopword removal.
type Tokenizer struct {
	stopwords map[string]struct{}
	fold      bool
}

// NewTokenizer creates a new Tokenizer. With foldPlurals set, regular English
// plurals map onto their singular ("creams" and "cream" hash alike).
func NewTokenizer(foldPlurals bool) *Tokenizer {
	return &Tokenizer{
		stopwords: defaultStopwords(),
		fold:      foldPlurals,
	}
}

// Tokenize splits text into tokens.
func (t *Tokenizer) Tokenize(text string) []string {
	words := splitWords(text)
	tokens := make([]string, 0, len(words))

	for _, word := range words {
		word = strings.ToLower(word)
		if len([]rune(word)) < 2 {
			continue
		}
		if _, isStop := t.stopwords[word]; isStop {
			continue
		}
		if t.fold {
			word = foldPlural(word)
		}
		tokens = append(tokens, word)
	}

	return tokens
}

// foldPlural strips regular plural endings. Words of four letters or fewer
// are left alone so that "gas", "lens" and "bus" survive.
func foldPlural(word string) string {
	n := len(word)
	if n <= 4 {
		return word
	}
	switch {
	case strings.HasSuffix(word, "ies"):
		return word[:n-3] + "y"
	case strings.HasSuffix(word, "sses"),
		strings.HasSuffix(word, "shes"),
		strings.HasSuffix(word, "ches"),
		strings.HasSuffix(word, "xes"):
		return word[:n-2]
	case strings.HasSuffix(word, "ss"),
		strings.HasSuffix(word, "us"),
		strings.HasSuffix(word, "is"):
		return word
	case strings.HasSuffix(word, "s"):
		return word[:n-1]
	}
	return word
}

// splitWords splits text into runs of letters and digits. Hyphens and
// punctuation separate words, so "oil-free" yields "oil" and "free".
func splitWords(text string) []string {
	var words []string
	var current strings.Builder

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else {
			if current.Len() > 0 {
				words = append(words, current.String())
				current.Reset()
			}
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}

	return words
}

// defaultStopwords returns common English stopwords plus the field labels
// every product document repeats.
func defaultStopwords() map[string]struct{} {
	stops := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "were", "will", "with", "this",
		"have", "had", "but", "you", "your", "we", "our",
		"they", "their", "if", "or", "so",
		"can", "do", "does", "did", "been", "being", "would",
		"could", "should", "may", "might", "which",
		"what", "when", "where", "how", "any",
		"some", "such", "than", "too", "very", "just", "also",
		// document field labels
		"product", "name", "brand", "category", "price", "rank",
		"suitable", "types", "introduction", "formula", "analysis",
		"comedogenic", "risk", "sensitivity", "irritation",
		"ingredients", "undetermined",
	}
	m := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		m[s] = struct{}{}
	}
	return m
}
