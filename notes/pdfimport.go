package notes

import (
	"fmt"
	"strings"

	prose "github.com/jdkato/prose/v2"
	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// PDFImporter turns an uploaded PDF into note content.
type PDFImporter struct {
	logger   *zap.Logger
	maxPages int
}

func NewPDFImporter(maxPages int, logger *zap.Logger) *PDFImporter {
	return &PDFImporter{logger: logger, maxPages: maxPages}
}

// ExtractText extracts plain text from the PDF at path, up to the
// configured page limit. Pages that fail to decode are skipped rather
// than failing the whole import.
func (pi *PDFImporter) ExtractText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	totalPages := r.NumPage()
	pages := totalPages
	if pi.maxPages > 0 && pages > pi.maxPages {
		pages = pi.maxPages
	}

	var fullText strings.Builder
	for pageNum := 1; pageNum <= pages; pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			pi.logger.Warn("Skipping null page", zap.Int("page", pageNum))
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pi.logger.Warn("Failed to extract text from page",
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}
		fullText.WriteString(text)
		fullText.WriteString("\n\n")
	}

	extracted := NormalizeImportedText(fullText.String())
	pi.logger.Info("PDF text extraction completed",
		zap.String("path", path),
		zap.Int("pages", pages),
		zap.Int("total_pages", totalPages),
		zap.Int("characters", len(extracted)))
	return extracted, nil
}

// NormalizeImportedText collapses extraction artifacts into readable
// paragraphs, one sentence-segmented paragraph per extracted block.
func NormalizeImportedText(text string) string {
	blocks := strings.Split(text, "\n\n")
	var out []string
	for _, block := range blocks {
		block = strings.Join(strings.Fields(block), " ")
		if block == "" {
			continue
		}
		doc, err := prose.NewDocument(block)
		if err != nil {
			out = append(out, block)
			continue
		}
		var sentences []string
		for _, sent := range doc.Sentences() {
			sentences = append(sentences, strings.TrimSpace(sent.Text))
		}
		if len(sentences) == 0 {
			out = append(out, block)
			continue
		}
		out = append(out, strings.Join(sentences, " "))
	}
	return strings.Join(out, "\n\n")
}
