package markitdown

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CsvConverter handles CSV files.
type CsvConverter struct{}

// NewCsvConverter creates a new CsvConverter.
func NewCsvConverter() *CsvConverter {
	return &CsvConverter{}
}

func (c *CsvConverter) Accepts(info StreamInfo) bool {
	if info.Extension == ".csv" {
		return true
	}
	mime := strings.ToLower(info.MIMEType)
	return strings.HasPrefix(mime, "text/csv") || strings.HasPrefix(mime, "application/csv")
}

func (c *CsvConverter) Convert(reader io.ReadSeeker, info StreamInfo) (*DocumentConverterResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	text := DecodeText(data, info.Charset)

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1 // allow ragged rows
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse CSV: %w", err)
	}

	if len(records) == 0 {
		return &DocumentConverterResult{Markdown: ""}, nil
	}

	return &DocumentConverterResult{
		Markdown: renderMarkdownTable(records),
	}, nil
}

// renderMarkdownTable renders a 2D string slice as a markdown table with the
// first record as header. Rows shorter than the header are padded.
func renderMarkdownTable(records [][]string) string {
	if len(records) == 0 {
		return ""
	}

	numCols := len(records[0])

	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("| ")
		for i := 0; i < numCols; i++ {
			if i < len(cells) {
				b.WriteString(cells[i])
			}
			b.WriteString(" | ")
		}
		b.WriteString("\n")
	}

	writeRow(records[0])

	b.WriteString("| ")
	for i := 0; i < numCols; i++ {
		b.WriteString("--- | ")
	}
	b.WriteString("\n")

	for _, row := range records[1:] {
		writeRow(row)
	}

	return b.String()
}
