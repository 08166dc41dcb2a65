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
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/nicholasgasior/markitdown-api/internal/ooxml"
)

// DocxConverter handles DOCX files by walking word/document.xml and emitting
// markdown directly: heading styles become ATX headings, numbered/bulleted
// paragraphs become list items, tables become markdown tables, and hyperlinks
// are resolved through the package relationships.
type DocxConverter struct{}

// NewDocxConverter creates a new DocxConverter.
func NewDocxConverter() *DocxConverter {
	return &DocxConverter{}
}

func (c *DocxConverter) Accepts(info StreamInfo) bool {
	if info.Extension == ".docx" {
		return true
	}
	mime := strings.ToLower(info.MIMEType)
	return strings.HasPrefix(mime, "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
}

func (c *DocxConverter) Convert(reader io.ReadSeeker, info StreamInfo) (*DocumentConverterResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read DOCX: %w", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open DOCX package: %w", err)
	}

	rels, err := ooxml.ParseRelationships(zr, "word/_rels/document.xml.rels")
	if err != nil {
		return nil, err
	}

	docXML, err := ooxml.ReadFile(zr, "word/document.xml")
	if err != nil {
		return nil, fmt.Errorf("read document.xml: %w", err)
	}

	md, title, err := docxToMarkdown(docXML, rels)
	if err != nil {
		return nil, fmt.Errorf("parse document.xml: %w", err)
	}

	return &DocumentConverterResult{
		Markdown: md,
		Title:    title,
	}, nil
}

// docxToMarkdown walks the WordprocessingML token stream. Only the body
// structure the API needs survives: paragraphs, heading styles, list items,
// tables, hyperlinks, tabs, and breaks.
func docxToMarkdown(docXML []byte, rels map[string]ooxml.Relationship) (string, string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(docXML))

	var (
		out   strings.Builder
		title string

		para      strings.Builder
		paraStyle string
		paraList  bool
		inText    bool

		linkTarget string
		linkText   strings.Builder

		tableDepth int
		tableRows  [][]string
		rowCells   []string
		cellText   strings.Builder
	)

	appendText := func(s string) {
		switch {
		case linkTarget != "":
			linkText.WriteString(s)
		case tableDepth > 0:
			cellText.WriteString(s)
		default:
			para.WriteString(s)
		}
	}

	flushParagraph := func() {
		text := strings.TrimSpace(para.String())
		para.Reset()
		style := paraStyle
		isList := paraList
		paraStyle = ""
		paraList = false

		if text == "" {
			return
		}

		switch {
		case style == "Title":
			if title == "" {
				title = text
			}
			out.WriteString("# " + text + "\n\n")
		case headingLevel(style) > 0:
			out.WriteString(strings.Repeat("#", headingLevel(style)) + " " + text + "\n\n")
		case isList:
			out.WriteString("- " + text + "\n")
		default:
			out.WriteString(text + "\n\n")
		}
	}

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "pStyle":
				paraStyle = attrValue(t, "val")
			case "numPr":
				paraList = true
			case "hyperlink":
				if id := attrValue(t, "id"); id != "" {
					if rel, ok := rels[id]; ok {
						linkTarget = rel.Target
						linkText.Reset()
					}
				}
			case "tbl":
				tableDepth++
				if tableDepth == 1 {
					tableRows = nil
				}
			case "tr":
				if tableDepth == 1 {
					rowCells = nil
				}
			case "tc":
				if tableDepth == 1 {
					cellText.Reset()
				}
			case "tab":
				appendText("\t")
			case "br", "cr":
				appendText("\n")
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "hyperlink":
				if linkTarget != "" {
					text := strings.TrimSpace(linkText.String())
					target := linkTarget
					linkTarget = ""
					if text != "" {
						appendText(fmt.Sprintf("[%s](%s)", text, target))
					}
				}
			case "tc":
				if tableDepth == 1 {
					rowCells = append(rowCells, strings.TrimSpace(cellText.String()))
				}
			case "tr":
				if tableDepth == 1 && len(rowCells) > 0 {
					tableRows = append(tableRows, rowCells)
				}
			case "tbl":
				tableDepth--
				if tableDepth == 0 && len(tableRows) > 0 {
					out.WriteString(renderMarkdownTable(tableRows))
					out.WriteString("\n")
				}
			case "p":
				if tableDepth == 0 {
					flushParagraph()
				} else {
					// Paragraph breaks inside a cell collapse to a space.
					// Cell paragraph properties must not leak past the cell.
					cellText.WriteString(" ")
					paraStyle = ""
					paraList = false
				}
			}

		case xml.CharData:
			if inText {
				appendText(string(t))
			}
		}
	}

	return out.String(), title, nil
}

// headingLevel maps Word style IDs like "Heading1" to markdown levels 1-6.
func headingLevel(style string) int {
	if !strings.HasPrefix(style, "Heading") {
		return 0
	}
	rest := strings.TrimPrefix(style, "Heading")
	if len(rest) != 1 || rest[0] < '1' || rest[0] > '6' {
		return 0
	}
	return int(rest[0] - '0')
}

// attrValue returns the value of the named attribute, ignoring namespaces.
func attrValue(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
