package loader

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"docqa/types"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
)

// Extraction is the plain-text view of an uploaded file.
type Extraction struct {
	Text  string
	Pages int
	Chars int
}

// Extract turns raw upload bytes into plain text. PDF input goes through
// pdfcpu; anything else is treated as UTF-8 text.
func Extract(filename string, raw []byte) (Extraction, error) {
	if len(raw) == 0 {
		return Extraction{}, fmt.Errorf("%w: %s is empty", types.ErrExtractionFailed, filename)
	}
	if bytes.HasPrefix(raw, []byte("%PDF-")) {
		return extractPDF(filename, raw)
	}
	if !utf8.Valid(raw) {
		return Extraction{}, fmt.Errorf("%w: %s is neither PDF nor UTF-8 text", types.ErrExtractionFailed, filename)
	}
	text := string(raw)
	return Extraction{Text: text, Pages: 1, Chars: len(text)}, nil
}

func extractPDF(filename string, raw []byte) (Extraction, error) {
	ctx, err := api.ReadContext(bytes.NewReader(raw), api.LoadConfiguration())
	if err != nil {
		return Extraction{}, fmt.Errorf("%w: %s: %v", types.ErrExtractionFailed, filename, err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return Extraction{}, fmt.Errorf("%w: %s: %v", types.ErrExtractionFailed, filename, err)
	}

	var sb strings.Builder
	for page := 1; page <= ctx.PageCount; page++ {
		r, err := pdfcpu.ExtractPageContent(ctx, page)
		if err != nil {
			return Extraction{}, fmt.Errorf("%w: %s page %d: %v", types.ErrExtractionFailed, filename, page, err)
		}
		if r == nil {
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil {
			return Extraction{}, fmt.Errorf("%w: %s page %d: %v", types.ErrExtractionFailed, filename, page, err)
		}
		pageText := textFromContent(content)
		if pageText != "" {
			sb.WriteString(pageText)
			sb.WriteString("\n")
		}
	}

	text := sb.String()
	return Extraction{Text: text, Pages: ctx.PageCount, Chars: len(text)}, nil
}

// textFromContent pulls the literal strings out of a decoded PDF content
// stream. Text-showing operators (Tj, TJ, ', ") carry their payload as
// parenthesized literals, which is all we need for indexing.
func textFromContent(content []byte) string {
	var sb strings.Builder
	depth := 0
	escaped := false
	for i := 0; i < len(content); i++ {
		c := content[i]
		if depth == 0 {
			if c == '(' {
				depth = 1
			}
			continue
		}
		if escaped {
			switch c {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '(', ')', '\\':
				sb.WriteByte(c)
			}
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '(':
			depth++
			sb.WriteByte(c)
		case ')':
			depth--
			if depth == 0 {
				sb.WriteByte(' ')
			} else {
				sb.WriteByte(c)
			}
		default:
			sb.WriteByte(c)
		}
	}
	return strings.TrimSpace(sb.String())
}
