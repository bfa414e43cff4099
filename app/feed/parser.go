package feed

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"

	"github.com/mmcdole/gofeed"
)

var ErrParse = errors.New("malformed feed document")

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses raw RSS/Atom bytes into a Document. The self link prefers the
// feed's explicitly declared rel=self URL over the generic feed link. A
// malformed document fails as a whole; there is no partial recovery.
func (p *Parser) Run(data []byte) (*Document, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	doc := &Document{
		SelfLink: cmp.Or(parsed.FeedLink, parsed.Link),
		Title:    parsed.Title,
	}

	doc.Entries = make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		doc.Entries = append(doc.Entries, p.normalizeEntry(item))
	}

	return doc, nil
}

func (p *Parser) normalizeEntry(item *gofeed.Item) Entry {
	entry := Entry{
		Title:   item.Title,
		Link:    item.Link,
		Content: cmp.Or(item.Content, item.Description),
		Summary: item.Description,
	}

	if item.PublishedParsed != nil {
		entry.Published = item.PublishedParsed
	}

	return entry
}
