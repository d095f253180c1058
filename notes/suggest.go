package notes

import (
	"sort"
	"strings"

	prose "github.com/jdkato/prose/v2"
)

// Words that tag well-formed notes poorly; kept deliberately small, the
// frequency ranking does most of the filtering.
var tagStopwords = map[string]struct{}{
	"thing": {}, "things": {}, "note": {}, "notes": {}, "item": {}, "items": {},
	"way": {}, "ways": {}, "time": {}, "times": {}, "day": {}, "days": {},
}

// SuggestTags extracts up to max candidate tags from note content by
// ranking the most frequent nouns. Returns nil for content with no
// usable nouns.
func SuggestTags(content string, max int) ([]string, error) {
	if strings.TrimSpace(content) == "" || max <= 0 {
		return nil, nil
	}

	doc, err := prose.NewDocument(content)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, tok := range doc.Tokens() {
		switch tok.Tag {
		case "NN", "NNS", "NNP", "NNPS":
		default:
			continue
		}
		word := strings.ToLower(strings.Trim(tok.Text, ".,;:!?\"'()[]{}"))
		if len([]rune(word)) < 3 {
			continue
		}
		if _, skip := tagStopwords[word]; skip {
			continue
		}
		counts[word]++
	}
	if len(counts) == 0 {
		return nil, nil
	}

	candidates := make([]string, 0, len(counts))
	for word := range counts {
		candidates = append(candidates, word)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if counts[candidates[i]] != counts[candidates[j]] {
			return counts[candidates[i]] > counts[candidates[j]]
		}
		return candidates[i] < candidates[j]
	})

	if len(candidates) > max {
		candidates = candidates[:max]
	}
	return candidates, nil
}
