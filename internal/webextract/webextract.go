// Package webextract converts HTML pages to markdown. It prefers readability
// article extraction and falls back to a whole-page conversion when the
// primary extractor errors or finds no usable text.
package webextract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/hashicorp/go-multierror"

	markitdown "github.com/nicholasgasior/markitdown-api"
)

// Method names reported in conversion metadata.
const (
	MethodReadability    = "readability"
	MethodHTMLToMarkdown = "html-to-markdown"
)

// Result is a successful extraction.
type Result struct {
	Markdown string
	Title    string
	// Method records which extractor produced the markdown.
	Method string
}

type extractFunc func(html, sourceURL string) (*Result, error)

// Extractor runs the primary/fallback extraction pipeline.
type Extractor struct {
	primary  extractFunc
	fallback extractFunc
}

// New creates an Extractor with readability as primary and html-to-markdown
// as fallback.
func New() *Extractor {
	html := markitdown.NewHTMLConverter(nil)
	return &Extractor{
		primary:  extractReadability,
		fallback: fallbackFunc(html),
	}
}

// Extract converts HTML bytes to markdown. The charset hint comes from the
// origin Content-Type header and may be empty, in which case the encoding is
// detected. The fallback extractor runs when the primary one returns an error
// or only whitespace.
func (e *Extractor) Extract(data []byte, sourceURL, charset string) (*Result, error) {
	html := markitdown.DecodeText(data, charset)

	var errs *multierror.Error

	res, err := e.primary(html, sourceURL)
	if err == nil && strings.TrimSpace(res.Markdown) != "" {
		return res, nil
	}
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("primary extractor: %w", err))
	} else {
		errs = multierror.Append(errs, fmt.Errorf("primary extractor: no text content"))
	}

	res, err = e.fallback(html, sourceURL)
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("fallback extractor: %w", err))
		return nil, errs.ErrorOrNil()
	}
	if strings.TrimSpace(res.Markdown) == "" {
		errs = multierror.Append(errs, fmt.Errorf("fallback extractor: no text content"))
		return nil, errs.ErrorOrNil()
	}
	return res, nil
}

// extractReadability runs go-readability over the page and converts the
// distilled article HTML to markdown.
func extractReadability(html, sourceURL string) (*Result, error) {
	pageURL, err := url.Parse(sourceURL)
	if err != nil {
		pageURL = &url.URL{}
	}

	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(html), pageURL)
	if err != nil {
		return nil, fmt.Errorf("readability parse: %w", err)
	}

	md, err := markitdown.NewHTMLConverter(nil).ConvertString(article.Content)
	if err != nil {
		return nil, fmt.Errorf("convert article: %w", err)
	}

	return &Result{
		Markdown: md.Markdown,
		Title:    strings.TrimSpace(article.Title),
		Method:   MethodReadability,
	}, nil
}

// fallbackFunc builds the whole-page extractor: boilerplate elements are
// stripped with goquery, then the remaining document is converted.
func fallbackFunc(html *markitdown.HTMLConverter) extractFunc {
	return func(page, sourceURL string) (*Result, error) {
		cleaned, err := stripBoilerplate(page)
		if err != nil {
			// Unparseable input still gets a conversion attempt.
			cleaned = page
		}

		res, err := html.ConvertString(cleaned)
		if err != nil {
			return nil, err
		}

		return &Result{
			Markdown: res.Markdown,
			Title:    res.Title,
			Method:   MethodHTMLToMarkdown,
		}, nil
	}
}

// stripBoilerplate removes navigation chrome before whole-page conversion.
func stripBoilerplate(page string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, noscript, nav, header, footer, aside, form").Remove()

	return doc.Html()
}
