// Package classify decides which conversion backend handles an input:
// documents go to the markitdown engine, HTML goes to the web-extraction
// adapter. The policy matches the service contract: a recognized file
// extension is trusted first, then the declared MIME type, then sniffed
// content; anything else is unsupported.
package classify

import (
	"archive/zip"
	"bytes"
	"errors"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrUnsupportedFormat is returned when neither extension, declared MIME, nor
// content sniffing yields a supported format.
var ErrUnsupportedFormat = errors.New("unsupported or invalid file format")

// Kind selects the conversion backend.
type Kind int

const (
	// KindDocument routes to the document backend.
	KindDocument Kind = iota
	// KindWeb routes to the web-extraction adapter.
	KindWeb
)

// Source describes a classified input.
type Source struct {
	Kind      Kind
	Extension string // normalized, with leading dot
	MIMEType  string // declared or detected media type
}

// documentExts are extensions handled by the document backend.
var documentExts = map[string]bool{
	".pdf":  true,
	".pptx": true,
	".docx": true,
	".xlsx": true,
	".xls":  true,
	".csv":  true,
	".json": true,
	".xml":  true,
	".rss":  true,
	".atom": true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".txt":  true,
	".md":   true,
}

// webExts are extensions handled by the web-extraction adapter.
var webExts = map[string]bool{
	".html": true,
	".htm":  true,
}

// Classify maps an input to a backend. name is the upload filename or URL
// path, declaredMIME the Content-Type reported by the client or origin server
// (may be empty), and data the raw content.
func Classify(name, declaredMIME string, data []byte) (*Source, error) {
	ext := ExtensionOf(name)

	// Explicit extension wins.
	if src, ok := classifyExtension(ext, declaredMIME); ok {
		return src, nil
	}

	// Declared MIME next.
	if src, ok := classifyMIME(declaredMIME, declaredMIME); ok {
		return src, nil
	}

	// Finally sniff the content.
	if src, ok := sniff(data, declaredMIME); ok {
		return src, nil
	}

	return nil, ErrUnsupportedFormat
}

// ExtensionOf extracts a lowercase file extension from a filename or URL,
// dropping any query string.
func ExtensionOf(name string) string {
	name = strings.Split(name, "?")[0]
	name = strings.Split(name, "#")[0]
	return strings.ToLower(path.Ext(name))
}

func classifyExtension(ext, declaredMIME string) (*Source, bool) {
	switch {
	case webExts[ext]:
		return &Source{Kind: KindWeb, Extension: ext, MIMEType: usableMIME(declaredMIME, "text/html")}, true
	case documentExts[ext]:
		return &Source{Kind: KindDocument, Extension: ext, MIMEType: usableMIME(declaredMIME, extToMIME[ext])}, true
	}
	return nil, false
}

// usableMIME prefers the declared type unless it is missing or the generic
// binary type, which multipart writers attach when the client gave none.
func usableMIME(declared, derived string) string {
	if declared == "" || strings.HasPrefix(declared, "application/octet-stream") {
		return derived
	}
	return declared
}

func classifyMIME(mime, declaredMIME string) (*Source, bool) {
	mime = strings.ToLower(strings.TrimSpace(strings.Split(mime, ";")[0]))
	if mime == "" {
		return nil, false
	}
	if strings.HasPrefix(mime, "text/html") || strings.HasPrefix(mime, "application/xhtml") {
		return &Source{Kind: KindWeb, Extension: ".html", MIMEType: declaredMIME}, true
	}
	if ext, ok := mimeToExt[mime]; ok {
		return &Source{Kind: KindDocument, Extension: ext, MIMEType: declaredMIME}, true
	}
	return nil, false
}

var extToMIME = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".xls":  "application/vnd.ms-excel",
	".csv":  "text/csv",
	".json": "application/json",
	".xml":  "text/xml",
	".rss":  "application/rss+xml",
	".atom": "application/atom+xml",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".txt":  "text/plain",
	".md":   "text/markdown",
}

var mimeToExt = map[string]string{
	"application/pdf": ".pdf",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   ".docx",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         ".xlsx",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": ".pptx",
	"application/vnd.ms-excel": ".xls",
	"text/csv":                 ".csv",
	"application/json":         ".json",
	"text/xml":                 ".xml",
	"application/xml":          ".xml",
	"application/rss+xml":      ".rss",
	"application/atom+xml":     ".atom",
	"image/png":                ".png",
	"image/jpeg":               ".jpg",
	"text/plain":               ".txt",
	"text/markdown":            ".md",
}

// sniff inspects magic bytes. OOXML containers all start with a ZIP header,
// so the member names decide between docx/xlsx/pptx, mirroring the engine's
// package layout expectations.
func sniff(data []byte, declaredMIME string) (*Source, bool) {
	if len(data) == 0 {
		return nil, false
	}

	switch {
	case bytes.HasPrefix(data, []byte("%PDF")):
		return &Source{Kind: KindDocument, Extension: ".pdf", MIMEType: "application/pdf"}, true
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return &Source{Kind: KindDocument, Extension: ".png", MIMEType: "image/png"}, true
	case bytes.HasPrefix(data, []byte("\xff\xd8\xff")):
		return &Source{Kind: KindDocument, Extension: ".jpg", MIMEType: "image/jpeg"}, true
	case bytes.HasPrefix(data, []byte("PK")):
		if ext := sniffOOXML(data); ext != "" {
			return &Source{Kind: KindDocument, Extension: ext, MIMEType: declaredMIME}, true
		}
		return nil, false
	}

	// mimetype handles HTML and the text formats.
	mtype := mimetype.Detect(data)
	if src, ok := classifyMIME(mtype.String(), mtype.String()); ok {
		return src, true
	}

	// Last resort CSV estimate, as the original service did.
	if looksLikeCSV(data) {
		return &Source{Kind: KindDocument, Extension: ".csv", MIMEType: "text/csv"}, true
	}

	return nil, false
}

// sniffOOXML peeks inside a ZIP container for office package markers.
func sniffOOXML(data []byte) string {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	for _, f := range zr.File {
		switch {
		case strings.HasPrefix(f.Name, "word/"):
			return ".docx"
		case strings.HasPrefix(f.Name, "xl/"):
			return ".xlsx"
		case strings.HasPrefix(f.Name, "ppt/"):
			return ".pptx"
		}
	}
	return ""
}

func looksLikeCSV(data []byte) bool {
	sample := data
	if len(sample) > 1024 {
		sample = sample[:1024]
	}
	s := string(sample)
	if strings.HasPrefix(strings.TrimSpace(s), "<") {
		return false
	}
	return strings.Contains(s, ",") || strings.Contains(s, ";")
}
