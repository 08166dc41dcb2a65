package markitdown

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/japanese"
)

func TestConvertBytesCSV(t *testing.T) {
	m := New()

	result, err := m.ConvertBytes([]byte("name,age\nAlice,30\nBob,25\n"), StreamInfo{Extension: ".csv"})
	if err != nil {
		t.Fatalf("ConvertBytes error: %v", err)
	}

	for _, want := range []string{"| name | age |", "| Alice | 30 |", "| --- |"} {
		if !strings.Contains(result.Markdown, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, result.Markdown)
		}
	}
}

func TestConvertBytesCSVWithCharset(t *testing.T) {
	m := New()

	encoded, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte("名前,年齢\n佐藤太郎,30\n"))
	if err != nil {
		t.Fatal(err)
	}

	result, err := m.ConvertBytes(encoded, StreamInfo{
		Extension: ".csv",
		MIMEType:  "text/csv",
		Charset:   "cp932",
	})
	if err != nil {
		t.Fatalf("ConvertBytes error: %v", err)
	}

	for _, want := range []string{"名前", "佐藤太郎"} {
		if !strings.Contains(result.Markdown, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
}

func TestConvertBytesJSON(t *testing.T) {
	m := New()

	result, err := m.ConvertBytes([]byte(`{"id": "5b64c88c", "name": "widget"}`), StreamInfo{Extension: ".json"})
	if err != nil {
		t.Fatalf("ConvertBytes error: %v", err)
	}
	if !strings.Contains(result.Markdown, "5b64c88c") {
		t.Errorf("expected JSON content to pass through, got:\n%s", result.Markdown)
	}
}

func TestConvertBytesHTML(t *testing.T) {
	m := New()

	html := `<html><head><title>Sample Page</title><script>ignored()</script></head>
<body><h1>Sample Page</h1><p>Plain text with <b>bold</b> words.</p></body></html>`

	result, err := m.ConvertBytes([]byte(html), StreamInfo{Extension: ".html"})
	if err != nil {
		t.Fatalf("ConvertBytes error: %v", err)
	}
	if result.Title != "Sample Page" {
		t.Errorf("title = %q, want %q", result.Title, "Sample Page")
	}
	if !strings.Contains(result.Markdown, "**bold**") {
		t.Errorf("expected bold markdown, got:\n%s", result.Markdown)
	}
	if strings.Contains(result.Markdown, "ignored()") {
		t.Errorf("script content leaked into output")
	}
}

func TestConvertBytesXLSX(t *testing.T) {
	f := excelize.NewFile()
	for cell, v := range map[string]string{
		"A1": "id", "B1": "label",
		"A2": "09060124", "B2": "affc7dad",
	} {
		if err := f.SetCellValue("Sheet1", cell, v); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	m := New()
	result, err := m.ConvertBytes(buf.Bytes(), StreamInfo{Extension: ".xlsx"})
	if err != nil {
		t.Fatalf("ConvertBytes error: %v", err)
	}

	for _, want := range []string{"## Sheet1", "09060124", "affc7dad"} {
		if !strings.Contains(result.Markdown, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, result.Markdown)
		}
	}
}

const testDocumentXML = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"
            xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <w:body>
    <w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Quarterly Report</w:t></w:r></w:p>
    <w:p><w:r><w:t>Revenue grew in </w:t></w:r><w:r><w:t>Q3.</w:t></w:r></w:p>
    <w:p><w:pPr><w:numPr><w:ilvl w:val="0"/></w:numPr></w:pPr><w:r><w:t>First item</w:t></w:r></w:p>
    <w:p><w:hyperlink r:id="rId1"><w:r><w:t>example</w:t></w:r></w:hyperlink></w:p>
    <w:tbl>
      <w:tr><w:tc><w:p><w:r><w:t>Name</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Age</w:t></w:r></w:p></w:tc></w:tr>
      <w:tr><w:tc><w:p><w:r><w:t>Alice</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>30</w:t></w:r></w:p></w:tc></w:tr>
    </w:tbl>
  </w:body>
</w:document>`

const testDocumentRels = `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink" Target="https://example.com" TargetMode="External"/>
</Relationships>`

func buildZip(t *testing.T, members map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range members {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestConvertBytesDOCX(t *testing.T) {
	data := buildZip(t, map[string]string{
		"word/document.xml":            testDocumentXML,
		"word/_rels/document.xml.rels": testDocumentRels,
	})

	m := New()
	result, err := m.ConvertBytes(data, StreamInfo{Extension: ".docx"})
	if err != nil {
		t.Fatalf("ConvertBytes error: %v", err)
	}

	for _, want := range []string{
		"# Quarterly Report",
		"Revenue grew in Q3.",
		"- First item",
		"[example](https://example.com)",
		"| Name | Age |",
		"| Alice | 30 |",
	} {
		if !strings.Contains(result.Markdown, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, result.Markdown)
		}
	}
}

const testTableStyleDocumentXML = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:tbl>
      <w:tr><w:tc><w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Cell heading</w:t></w:r></w:p></w:tc></w:tr>
    </w:tbl>
    <w:p><w:r><w:t>Plain body paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`

func TestConvertBytesDOCXCellStyleStaysInCell(t *testing.T) {
	data := buildZip(t, map[string]string{
		"word/document.xml": testTableStyleDocumentXML,
	})

	m := New()
	result, err := m.ConvertBytes(data, StreamInfo{Extension: ".docx"})
	if err != nil {
		t.Fatalf("ConvertBytes error: %v", err)
	}

	if !strings.Contains(result.Markdown, "| Cell heading |") {
		t.Errorf("expected table output, got:\n%s", result.Markdown)
	}
	if !strings.Contains(result.Markdown, "Plain body paragraph.") {
		t.Errorf("expected body paragraph, got:\n%s", result.Markdown)
	}
	if strings.Contains(result.Markdown, "# Plain body paragraph.") {
		t.Errorf("cell paragraph style leaked onto body paragraph:\n%s", result.Markdown)
	}
}

// buildPDF assembles a minimal one-page PDF with a single text object.
func buildPDF(t *testing.T, text string) []byte {
	t.Helper()
	var buf bytes.Buffer
	var offsets []int
	addObj := func(s string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(s)
	}

	buf.WriteString("%PDF-1.4\n")
	addObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	addObj("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	addObj("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] " +
		"/Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>\nendobj\n")
	stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	addObj(fmt.Sprintf("4 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n",
		len(stream), stream))
	addObj("5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xref)
	return buf.Bytes()
}

func TestConvertBytesPDF(t *testing.T) {
	m := New()

	result, err := m.ConvertBytes(buildPDF(t, "Hello from page one"), StreamInfo{Extension: ".pdf"})
	if err != nil {
		t.Fatalf("ConvertBytes error: %v", err)
	}
	if !strings.Contains(result.Markdown, "Hello from page one") {
		t.Errorf("expected PDF text in output, got:\n%s", result.Markdown)
	}
}

const testSlideXML = `<?xml version="1.0" encoding="UTF-8"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"
       xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <p:cSld><p:spTree><p:sp><p:txBody>
    <a:p><a:r><a:t>Launch Plan</a:t></a:r></a:p>
    <a:p><a:r><a:t>Ship the conversion API</a:t></a:r></a:p>
  </p:txBody></p:sp></p:spTree></p:cSld>
</p:sld>`

func TestConvertBytesPPTX(t *testing.T) {
	data := buildZip(t, map[string]string{
		"ppt/slides/slide1.xml": testSlideXML,
	})

	m := New()
	result, err := m.ConvertBytes(data, StreamInfo{Extension: ".pptx"})
	if err != nil {
		t.Fatalf("ConvertBytes error: %v", err)
	}

	for _, want := range []string{"## Slide 1", "### Launch Plan", "Ship the conversion API"} {
		if !strings.Contains(result.Markdown, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, result.Markdown)
		}
	}
	if result.Title != "Launch Plan" {
		t.Errorf("title = %q, want %q", result.Title, "Launch Plan")
	}
}

const testRSSXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
  <title>Engineering Blog</title>
  <description>Posts about infrastructure.</description>
  <item>
    <title>Release Notes</title>
    <link>https://example.com/release</link>
    <description>&lt;p&gt;Version 2 shipped with &lt;b&gt;faster&lt;/b&gt; parsing.&lt;/p&gt;</description>
  </item>
</channel></rss>`

func TestConvertBytesFeed(t *testing.T) {
	m := New()

	result, err := m.ConvertBytes([]byte(testRSSXML), StreamInfo{Extension: ".xml"})
	if err != nil {
		t.Fatalf("ConvertBytes error: %v", err)
	}

	for _, want := range []string{"# Engineering Blog", "## Release Notes", "**faster**"} {
		if !strings.Contains(result.Markdown, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, result.Markdown)
		}
	}
	for _, notWant := range []string{"<rss", "<item>"} {
		if strings.Contains(result.Markdown, notWant) {
			t.Errorf("expected output NOT to contain %q", notWant)
		}
	}
}

func TestConvertBytesNonFeedXMLFallsThrough(t *testing.T) {
	m := New()

	result, err := m.ConvertBytes([]byte(`<config><key>value-9700dc99</key></config>`), StreamInfo{Extension: ".xml"})
	if err != nil {
		t.Fatalf("ConvertBytes error: %v", err)
	}
	if !strings.Contains(result.Markdown, "value-9700dc99") {
		t.Errorf("expected plaintext fallback for non-feed XML, got:\n%s", result.Markdown)
	}
}

func TestConvertBytesImage(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 2))); err != nil {
		t.Fatal(err)
	}

	m := New()
	result, err := m.ConvertBytes(buf.Bytes(), StreamInfo{Extension: ".png", Filename: "pixel.png"})
	if err != nil {
		t.Fatalf("ConvertBytes error: %v", err)
	}

	for _, want := range []string{"Format: PNG", "Dimensions: 3x2", "pixel.png"} {
		if !strings.Contains(result.Markdown, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, result.Markdown)
		}
	}
}

func TestConvertBytesUnsupported(t *testing.T) {
	m := New()

	_, err := m.ConvertBytes([]byte{0x00, 0x01, 0x02, 0x03}, StreamInfo{Extension: ".bin"})
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !IsUnsupportedFormat(err) {
		t.Errorf("expected UnsupportedFormatError, got %T: %v", err, err)
	}
}

func TestNormalization(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trailing whitespace", "hello   \nworld   \n", "hello\nworld"},
		{"multiple newlines", "hello\n\n\n\n\nworld", "hello\n\nworld"},
		{"crlf", "hello\r\nworld\r\n", "hello\nworld"},
		{"control characters", "hello\x00world\x01test", "helloworldtest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeOutput(tt.input); got != tt.want {
				t.Errorf("normalizeOutput(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestConverterAccepts(t *testing.T) {
	tests := []struct {
		name      string
		converter DocumentConverter
		info      StreamInfo
		want      bool
	}{
		{"pdf by ext", NewPdfConverter(), StreamInfo{Extension: ".pdf"}, true},
		{"pdf by mime", NewPdfConverter(), StreamInfo{MIMEType: "application/pdf"}, true},
		{"pdf wrong ext", NewPdfConverter(), StreamInfo{Extension: ".txt"}, false},
		{"csv by ext", NewCsvConverter(), StreamInfo{Extension: ".csv"}, true},
		{"csv by mime", NewCsvConverter(), StreamInfo{MIMEType: "text/csv"}, true},
		{"html by ext", NewHTMLConverter(nil), StreamInfo{Extension: ".html"}, true},
		{"html by mime", NewHTMLConverter(nil), StreamInfo{MIMEType: "text/html"}, true},
		{"plaintext txt", NewPlainTextConverter(), StreamInfo{Extension: ".txt"}, true},
		{"plaintext json", NewPlainTextConverter(), StreamInfo{Extension: ".json"}, true},
		{"feed by ext", NewFeedConverter(), StreamInfo{Extension: ".rss"}, true},
		{"feed xml", NewFeedConverter(), StreamInfo{Extension: ".xml"}, true},
		{"docx by ext", NewDocxConverter(), StreamInfo{Extension: ".docx"}, true},
		{"pptx by ext", NewPptxConverter(), StreamInfo{Extension: ".pptx"}, true},
		{"xlsx by ext", NewXlsxConverter(), StreamInfo{Extension: ".xlsx"}, true},
		{"xls by ext", NewXlsConverter(), StreamInfo{Extension: ".xls"}, true},
		{"image png", NewImageConverter(), StreamInfo{Extension: ".png"}, true},
		{"image by mime", NewImageConverter(), StreamInfo{MIMEType: "image/jpeg"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.converter.Accepts(tt.info); got != tt.want {
				t.Errorf("Accepts(%+v) = %v, want %v", tt.info, got, tt.want)
			}
		})
	}
}

func TestDecodeText(t *testing.T) {
	encoded, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte("東京"))
	if err != nil {
		t.Fatal(err)
	}
	if got := DecodeText(encoded, "shift_jis"); got != "東京" {
		t.Errorf("DecodeText = %q, want %q", got, "東京")
	}

	if got := DecodeText([]byte("plain ascii"), ""); got != "plain ascii" {
		t.Errorf("DecodeText = %q, want %q", got, "plain ascii")
	}
}
