package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"path"
	"strings"
)

const (
	DefaultTitle   = "Untitled"
	DefaultAuthors = "Unknown"

	pdfContentType = "application/pdf"
)

// Link is an alternate or enclosure URL attached to a feed entry.
type Link struct {
	Href string
	Type string
}

// Item is one feed entry, the unit of work for a pipeline run.
type Item struct {
	ID        string
	Title     string
	Link      string
	Links     []Link
	Summary   string
	Published string
	Authors   string
	Source    string
	FeedURL   string
}

// NewItem applies the documented defaults and derives a stable ID.
// It returns false when the entry carries nothing to identify it by.
func NewItem(raw Item) (Item, bool) {
	item := raw
	item.ID = strings.TrimSpace(item.ID)
	item.Title = strings.TrimSpace(item.Title)
	item.Link = strings.TrimSpace(item.Link)
	item.Authors = strings.TrimSpace(item.Authors)

	if item.ID == "" {
		item.ID = item.Link
	}
	if item.ID == "" && item.Title != "" {
		item.ID = "title:" + hashOf(item.Title)
	}
	if item.ID == "" {
		return Item{}, false
	}

	if item.Title == "" {
		item.Title = DefaultTitle
	}
	if item.Authors == "" {
		item.Authors = DefaultAuthors
	}
	return item, true
}

// PDFLink returns the URL of the document to download, or "" when the entry
// does not link to a PDF.
func (i Item) PDFLink() string {
	for _, l := range i.Links {
		if strings.EqualFold(strings.TrimSpace(l.Type), pdfContentType) && l.Href != "" {
			return l.Href
		}
	}
	if hasPDFPath(i.Link) {
		return i.Link
	}
	for _, l := range i.Links {
		if hasPDFPath(l.Href) {
			return l.Href
		}
	}
	return ""
}

// TitleKey derives a blob name from the title: spaces and slashes become
// underscores and ext is appended.
func (i Item) TitleKey(ext string) string {
	name := strings.NewReplacer(" ", "_", "/", "_", "\\", "_").Replace(i.Title)
	if name == "" {
		name = hashOf(i.ID)
	}
	return name + ext
}

// RemoteKey returns the last path segment of the PDF link.
func (i Item) RemoteKey() string {
	link := i.PDFLink()
	if link == "" {
		return ""
	}
	if u, err := url.Parse(link); err == nil && u.Path != "" {
		if base := path.Base(u.Path); base != "/" && base != "." {
			return base
		}
	}
	parts := strings.Split(strings.TrimRight(link, "/"), "/")
	return parts[len(parts)-1]
}

func hasPDFPath(link string) bool {
	if link == "" {
		return false
	}
	u, err := url.Parse(link)
	if err != nil {
		return strings.HasSuffix(strings.ToLower(link), ".pdf")
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".pdf")
}

func hashOf(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}
