package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// plainText strips markup from feed summaries and collapses whitespace.
func plainText(s string) string {
	if strings.ContainsRune(s, '<') {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}
