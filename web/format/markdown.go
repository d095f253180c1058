package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	lru "github.com/hashicorp/golang-lru"
)

// Renderer converts note markdown to HTML for preview and export. The
// conversion is pure, so results are cached per (note id, updated_at).
type Renderer struct {
	cache *lru.Cache
}

func NewRenderer(cacheSize int) (*Renderer, error) {
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Renderer{cache: cache}, nil
}

// RenderNote renders note content, reusing a cached result while the
// note has not been updated since.
func (r *Renderer) RenderNote(noteID string, updatedAt time.Time, content string) string {
	key := fmt.Sprintf("%s@%d", noteID, updatedAt.UnixNano())
	if cached, ok := r.cache.Get(key); ok {
		return cached.(string)
	}
	html := RenderMarkdown(content)
	r.cache.Add(key, html)
	return html
}

// RenderMarkdown converts a markdown string to HTML.
func RenderMarkdown(content string) string {
	normalized := PreprocessText(content)
	return string(markdown.ToHTML([]byte(normalized), nil, nil))
}

// PreprocessText normalizes text before rendering.
func PreprocessText(text string) string {
	if text == "" {
		return text
	}

	// Replace curly quotes (helps readability)
	text = strings.NewReplacer(
		"“", "\"",
		"”", "\"",
		"‘", "'",
		"’", "'",
	).Replace(text)

	return text
}
