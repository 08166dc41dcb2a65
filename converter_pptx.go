package markitdown

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/nicholasgasior/markitdown-api/internal/ooxml"
)

var reSlideMember = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// PptxConverter handles PPTX files. Each slide becomes a section: the first
// text frame is treated as the slide title, remaining text runs become
// paragraphs in slide order.
type PptxConverter struct{}

// NewPptxConverter creates a new PptxConverter.
func NewPptxConverter() *PptxConverter {
	return &PptxConverter{}
}

func (c *PptxConverter) Accepts(info StreamInfo) bool {
	if info.Extension == ".pptx" {
		return true
	}
	mime := strings.ToLower(info.MIMEType)
	return strings.HasPrefix(mime, "application/vnd.openxmlformats-officedocument.presentationml.presentation")
}

func (c *PptxConverter) Convert(reader io.ReadSeeker, info StreamInfo) (*DocumentConverterResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read PPTX: %w", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open PPTX package: %w", err)
	}

	slides := slideMembers(zr)
	if len(slides) == 0 {
		return nil, fmt.Errorf("no slides found in PPTX package")
	}

	var md strings.Builder
	var title string
	for i, member := range slides {
		slideXML, err := ooxml.ReadFile(zr, member)
		if err != nil {
			continue
		}

		paragraphs, err := slideParagraphs(slideXML)
		if err != nil || len(paragraphs) == 0 {
			continue
		}

		fmt.Fprintf(&md, "## Slide %d\n\n", i+1)

		// First text frame paragraph doubles as the slide title.
		if title == "" {
			title = paragraphs[0]
		}
		fmt.Fprintf(&md, "### %s\n\n", paragraphs[0])
		for _, p := range paragraphs[1:] {
			md.WriteString(p)
			md.WriteString("\n\n")
		}
	}

	return &DocumentConverterResult{
		Markdown: md.String(),
		Title:    title,
	}, nil
}

// slideMembers returns slide XML member names in presentation order.
func slideMembers(zr *zip.Reader) []string {
	type slide struct {
		name string
		num  int
	}
	var slides []slide
	for _, f := range zr.File {
		m := reSlideMember.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		slides = append(slides, slide{name: f.Name, num: n})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	names := make([]string, len(slides))
	for i, s := range slides {
		names[i] = s.name
	}
	return names
}

// slideParagraphs extracts the text of a slide: one entry per DrawingML
// paragraph (a:p), concatenating its text runs (a:t).
func slideParagraphs(slideXML []byte) ([]string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(slideXML))

	var (
		paragraphs []string
		para       strings.Builder
		inText     bool
	)

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "br":
				para.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if text := strings.TrimSpace(para.String()); text != "" {
					paragraphs = append(paragraphs, text)
				}
				para.Reset()
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}

	return paragraphs, nil
}
