package crawler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText reduces an HTML fragment from a product description to text,
// one block per line.
func PlainText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}

	var lines []string
	doc.Find("h1, h2, h3, p, li").Each(func(_ int, s *goquery.Selection) {
		if t := collapseSpaces(s.Text()); t != "" {
			lines = append(lines, t)
		}
	})

	// Fragments without block elements are plain text wrapped in <body>.
	if len(lines) == 0 {
		return collapseSpaces(doc.Text())
	}

	return strings.Join(lines, "\n")
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
