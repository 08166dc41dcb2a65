package markitdown

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PdfConverter handles PDF files.
type PdfConverter struct{}

// NewPdfConverter creates a new PdfConverter.
func NewPdfConverter() *PdfConverter {
	return &PdfConverter{}
}

func (c *PdfConverter) Accepts(info StreamInfo) bool {
	if info.Extension == ".pdf" {
		return true
	}
	return strings.HasPrefix(strings.ToLower(info.MIMEType), "application/pdf")
}

func (c *PdfConverter) Convert(reader io.ReadSeeker, info StreamInfo) (*DocumentConverterResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read PDF: %w", err)
	}

	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	var md strings.Builder
	for i := 1; i <= pdfReader.NumPage(); i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text := strings.TrimSpace(extractPageText(page))
		if text == "" {
			continue
		}

		md.WriteString(text)
		md.WriteString("\n\n")
	}

	if strings.TrimSpace(md.String()) == "" {
		return &DocumentConverterResult{
			Markdown: "[No readable text content found in PDF]",
		}, nil
	}

	return &DocumentConverterResult{Markdown: md.String()}, nil
}

// extractPageText extracts text from a single PDF page using GetTextByRow,
// falling back to Y-position grouping of the raw content stream when row
// extraction yields nothing.
func extractPageText(page pdf.Page) string {
	rows, err := page.GetTextByRow()
	if err == nil && len(rows) > 0 {
		var result strings.Builder
		for _, row := range rows {
			var line strings.Builder
			pendingBoundary := false
			for _, word := range row.Content {
				if word.S == "" {
					// Empty string between words marks a boundary.
					pendingBoundary = true
					continue
				}
				if line.Len() > 0 && pendingBoundary && !strings.HasSuffix(line.String(), " ") {
					line.WriteString(" ")
				}
				line.WriteString(word.S)
				pendingBoundary = false
			}
			if text := strings.TrimSpace(line.String()); text != "" {
				result.WriteString(text)
				result.WriteString("\n")
			}
		}
		if strings.TrimSpace(result.String()) != "" {
			return result.String()
		}
	}

	return extractByPosition(page)
}

type positionedText struct {
	x, y float64
	s    string
	size float64
}

// extractByPosition groups raw text fragments into lines by Y proximity and
// orders each line by X. Word gaps are inferred from font-size-relative
// spacing.
func extractByPosition(page pdf.Page) string {
	content := page.Content()
	var frags []positionedText
	for _, t := range content.Text {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		frags = append(frags, positionedText{x: t.X, y: t.Y, s: t.S, size: t.FontSize})
	}
	if len(frags) == 0 {
		return ""
	}

	yTolerance := 3.0
	if frags[0].size > 0 {
		yTolerance = frags[0].size * 0.3
	}

	type line struct {
		y     float64
		frags []positionedText
	}
	var lines []line
	for _, f := range frags {
		placed := false
		for i := range lines {
			if abs(lines[i].y-f.y) < yTolerance {
				lines[i].frags = append(lines[i].frags, f)
				placed = true
				break
			}
		}
		if !placed {
			lines = append(lines, line{y: f.y, frags: []positionedText{f}})
		}
	}

	// PDF coordinates grow upward; top line first.
	sort.Slice(lines, func(i, j int) bool { return lines[i].y > lines[j].y })

	var result strings.Builder
	for _, ln := range lines {
		sort.Slice(ln.frags, func(i, j int) bool { return ln.frags[i].x < ln.frags[j].x })

		var text strings.Builder
		var lastEnd float64
		for i, f := range ln.frags {
			if i > 0 {
				threshold := f.size * 0.2
				if threshold < 1.0 {
					threshold = 1.0
				}
				if f.x-lastEnd > threshold {
					text.WriteString(" ")
				}
			}
			text.WriteString(f.s)
			lastEnd = f.x + float64(len([]rune(f.s)))*f.size*0.55
		}
		if s := strings.TrimSpace(text.String()); s != "" {
			result.WriteString(s)
			result.WriteString("\n")
		}
	}

	return result.String()
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
