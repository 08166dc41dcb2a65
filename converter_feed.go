package markitdown

import (
	"fmt"
	"io"
	"strings"

	"github.com/mmcdole/gofeed"
)

// FeedConverter handles RSS and Atom feeds, including .xml inputs that parse
// as feeds.
type FeedConverter struct{}

// NewFeedConverter creates a new FeedConverter.
func NewFeedConverter() *FeedConverter {
	return &FeedConverter{}
}

func (c *FeedConverter) Accepts(info StreamInfo) bool {
	switch info.Extension {
	case ".rss", ".atom", ".xml":
		return true
	}
	mime := strings.ToLower(info.MIMEType)
	switch {
	case strings.HasPrefix(mime, "application/rss"),
		strings.HasPrefix(mime, "application/atom"),
		strings.HasPrefix(mime, "text/xml"),
		strings.HasPrefix(mime, "application/xml"):
		return true
	}
	return false
}

func (c *FeedConverter) Convert(reader io.ReadSeeker, info StreamInfo) (*DocumentConverterResult, error) {
	feed, err := gofeed.NewParser().Parse(reader)
	if err != nil {
		// Non-feed XML falls through to the plaintext converter.
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	var b strings.Builder
	if feed.Title != "" {
		fmt.Fprintf(&b, "# %s\n", feed.Title)
	}
	if feed.Description != "" {
		fmt.Fprintf(&b, "%s\n", feed.Description)
	}
	b.WriteString("\n")

	for _, item := range feed.Items {
		if item.Title != "" {
			fmt.Fprintf(&b, "## %s\n", item.Title)
		}
		if item.Published != "" {
			fmt.Fprintf(&b, "Published: %s\n\n", item.Published)
		} else if item.Updated != "" {
			fmt.Fprintf(&b, "Updated: %s\n\n", item.Updated)
		}

		content := item.Content
		if content == "" {
			content = item.Description
		}
		if content != "" {
			// Item bodies are frequently HTML.
			if md, err := convertHTMLToMarkdown(content); err == nil {
				content = md
			}
			b.WriteString(strings.TrimSpace(content))
			b.WriteString("\n\n")
		}
		if item.Link != "" {
			fmt.Fprintf(&b, "[Read more](%s)\n\n", item.Link)
		}
	}

	return &DocumentConverterResult{
		Markdown: b.String(),
		Title:    feed.Title,
	}, nil
}
