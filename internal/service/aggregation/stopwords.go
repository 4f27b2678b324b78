// internal/service/aggregation/stopwords.go

package aggregation

import "strings"

// stopWords are common English words that occasionally surface as trend
// names and carry no topical signal.
var stopWords = map[string]bool{}

func init() {
	words := []string{
		"a", "able", "about", "across", "after", "all", "almost", "also",
		"am", "among", "an", "and", "any", "are", "as", "at", "be",
		"because", "been", "but", "by", "can", "cannot", "could", "dear",
		"did", "do", "does", "either", "else", "ever", "every", "for",
		"from", "get", "got", "had", "has", "have", "he", "her", "hers",
		"him", "his", "how", "however", "i", "if", "in", "into", "is",
		"it", "its", "just", "least", "let", "like", "likely", "may",
		"me", "might", "most", "must", "my", "neither", "no", "nor",
		"not", "of", "off", "often", "on", "only", "or", "other", "our",
		"own", "rather", "said", "say", "says", "she", "should", "since",
		"so", "some", "than", "that", "the", "their", "them", "then",
		"there", "these", "they", "this", "tis", "to", "too", "twas",
		"us", "wants", "was", "we", "were", "what", "when", "where",
		"which", "while", "who", "whom", "why", "will", "with", "would",
		"yet", "you", "your",
	}

	for _, w := range words {
		stopWords[w] = true
	}
}

// isStopWord reports whether the trend name is a bare stop word.
func isStopWord(name string) bool {
	return stopWords[strings.ToLower(name)]
}
