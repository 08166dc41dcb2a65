// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package markitdown

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/gabriel-vasile/mimetype"
)

const (
	// PrioritySpecific is for format-specific converters (PDF, DOCX, etc.).
	PrioritySpecific = 0.0
	// PriorityGeneric is for fallback converters (HTML, PlainText).
	PriorityGeneric = 10.0
)

type registeredConverter struct {
	converter DocumentConverter
	priority  float64
	name      string
}

// MarkItDown is the document-to-markdown conversion engine used as the
// document backend of the conversion API. It dispatches bytes to the first
// registered converter that accepts the input's StreamInfo.
type MarkItDown struct {
	converters   []registeredConverter
	keepDataURIs bool
}

// New creates a new MarkItDown instance with the given options.
func New(opts ...Option) *MarkItDown {
	m := &MarkItDown{}
	for _, opt := range opts {
		opt(m)
	}
	m.enableBuiltins()
	return m
}

// RegisterConverter adds a custom converter with the given priority.
// Lower priority values are tried first.
func (m *MarkItDown) RegisterConverter(name string, c DocumentConverter, priority float64) {
	m.converters = append(m.converters, registeredConverter{
		converter: c,
		priority:  priority,
		name:      name,
	})
	sort.SliceStable(m.converters, func(i, j int) bool {
		return m.converters[i].priority < m.converters[j].priority
	})
}

// ConvertBytes converts in-memory content to markdown. If info.MIMEType is
// empty it is detected from the content before dispatch.
func (m *MarkItDown) ConvertBytes(data []byte, info StreamInfo) (*DocumentConverterResult, error) {
	if info.MIMEType == "" {
		info.MIMEType = detectMIMEType(data, info.Extension)
	}
	return m.convert(bytes.NewReader(data), info)
}

// ConvertReader converts a stream to markdown using the provided StreamInfo.
// The reader must support seeking so converters can be tried in order.
func (m *MarkItDown) ConvertReader(r io.ReadSeeker, info StreamInfo) (*DocumentConverterResult, error) {
	return m.convert(r, info)
}

// convert is the internal dispatch method.
func (m *MarkItDown) convert(r io.ReadSeeker, info StreamInfo) (*DocumentConverterResult, error) {
	var failedAttempts []FailedConversionAttempt

	for _, rc := range m.converters {
		if !rc.converter.Accepts(info) {
			continue
		}

		// Reset reader position before conversion
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek: %w", err)
		}

		result, err := rc.converter.Convert(r, info)
		if err != nil {
			failedAttempts = append(failedAttempts, FailedConversionAttempt{
				Converter: rc.name,
				Err:       err,
			})
			continue
		}

		result.Markdown = normalizeOutput(result.Markdown)
		return result, nil
	}

	if len(failedAttempts) > 0 {
		return nil, &ConversionError{Attempts: failedAttempts}
	}

	return nil, &UnsupportedFormatError{
		Extension: info.Extension,
		MIMEType:  info.MIMEType,
	}
}

// enableBuiltins registers all built-in converters.
func (m *MarkItDown) enableBuiltins() {
	// Specific format converters (priority 0.0 - tried first)
	m.RegisterConverter("csv", NewCsvConverter(), PrioritySpecific)
	m.RegisterConverter("feed", NewFeedConverter(), PrioritySpecific)
	m.RegisterConverter("docx", NewDocxConverter(), PrioritySpecific)
	m.RegisterConverter("xlsx", NewXlsxConverter(), PrioritySpecific)
	m.RegisterConverter("xls", NewXlsConverter(), PrioritySpecific)
	m.RegisterConverter("pptx", NewPptxConverter(), PrioritySpecific)
	m.RegisterConverter("pdf", NewPdfConverter(), PrioritySpecific)
	m.RegisterConverter("image", NewImageConverter(), PrioritySpecific)

	// Generic format converters (priority 10.0 - tried last as fallbacks)
	m.RegisterConverter("html", NewHTMLConverter(m), PriorityGeneric)
	m.RegisterConverter("plaintext", NewPlainTextConverter(), PriorityGeneric)
}

// detectMIMEType detects the MIME type from content, falling back to the
// extension when sniffing is inconclusive.
func detectMIMEType(data []byte, ext string) string {
	mtype := mimetype.Detect(data)
	if mtype.String() != "application/octet-stream" {
		return mtype.String()
	}
	return mimeFromExtension(ext)
}

// mimeFromExtension returns a MIME type for the extensions the engine handles.
func mimeFromExtension(ext string) string {
	extMap := map[string]string{
		".pdf":      "application/pdf",
		".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		".pptx":     "application/vnd.openxmlformats-officedocument.presentationml.presentation",
		".ppt":      "application/vnd.ms-powerpoint",
		".xlsx":     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		".xls":      "application/vnd.ms-excel",
		".html":     "text/html",
		".htm":      "text/html",
		".csv":      "text/csv",
		".txt":      "text/plain",
		".md":       "text/markdown",
		".markdown": "text/markdown",
		".json":     "application/json",
		".xml":      "text/xml",
		".rss":      "application/rss+xml",
		".atom":     "application/atom+xml",
		".png":      "image/png",
		".jpg":      "image/jpeg",
		".jpeg":     "image/jpeg",
	}
	if m, ok := extMap[ext]; ok {
		return m
	}
	return "application/octet-stream"
}
