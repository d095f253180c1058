package notes

import (
	"strings"
	"testing"
)

func TestSuggestTagsEmptyContent(t *testing.T) {
	for _, content := range []string{"", "   ", "\n\t"} {
		tags, err := SuggestTags(content, 5)
		if err != nil {
			t.Fatal(err)
		}
		if tags != nil {
			t.Errorf("SuggestTags(%q) = %v, want nil", content, tags)
		}
	}
}

func TestSuggestTagsZeroLimit(t *testing.T) {
	tags, err := SuggestTags("some perfectly taggable content", 0)
	if err != nil {
		t.Fatal(err)
	}
	if tags != nil {
		t.Errorf("tags = %v, want nil", tags)
	}
}

func TestSuggestTagsRanksFrequentNouns(t *testing.T) {
	content := "The budget review covered the budget for marketing. " +
		"The budget was cut, and the marketing team adjusted their budget forecast. " +
		"Marketing asked for a revised budget."

	tags, err := SuggestTags(content, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) == 0 {
		t.Fatal("no tags suggested")
	}
	if len(tags) > 3 {
		t.Fatalf("got %d tags, limit was 3", len(tags))
	}
	if tags[0] != "budget" {
		t.Errorf("top tag = %q, want budget", tags[0])
	}
	for _, tag := range tags {
		if tag != strings.ToLower(tag) {
			t.Errorf("tag %q not lowercased", tag)
		}
		if len([]rune(tag)) < 3 {
			t.Errorf("tag %q shorter than minimum", tag)
		}
	}
}

func TestSuggestTagsFiltersStopwords(t *testing.T) {
	content := "Things and more things. A thing here, a thing there, things everywhere."
	tags, err := SuggestTags(content, 5)
	if err != nil {
		t.Fatal(err)
	}
	for _, tag := range tags {
		if _, banned := tagStopwords[tag]; banned {
			t.Errorf("stopword %q suggested as tag", tag)
		}
	}
}
