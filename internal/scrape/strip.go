package scrape

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// boilerplateSelectors are removed from the document before text extraction.
var boilerplateSelectors = []string{
	"nav", "header", "footer", "aside", "script", "style", "noscript",
	"form", "iframe", "svg",
	"[role=navigation]", "[role=banner]", "[role=contentinfo]",
	".cookie-banner", ".cookie-consent", "#cookie-banner",
}

// StripBoilerplate extracts readable text from an HTML page, excluding
// navigation, header and footer regions. Block-level elements become
// newline-separated paragraphs; runs of whitespace collapse to one space.
func StripBoilerplate(html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	for _, sel := range boilerplateSelectors {
		doc.Find(sel).Remove()
	}

	// Prefer the main content region when the page declares one.
	root := doc.Find("main, article, [role=main]").First()
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	var b strings.Builder
	root.Find("h1, h2, h3, h4, p, li, td, blockquote, figcaption").Each(func(i int, s *goquery.Selection) {
		text := collapseSpace(s.Text())
		if text == "" {
			return
		}
		b.WriteString(text)
		b.WriteByte('\n')
	})

	text := strings.TrimSpace(b.String())
	if text == "" {
		// Pages without block structure still deserve their raw text.
		text = collapseSpace(root.Text())
	}
	return text, nil
}

// ExtractLinks returns all same-document hrefs resolved against baseURL.
func ExtractLinks(baseURL string, html []byte) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil
	}

	var links []string
	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists {
			return
		}
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(u)
		resolved.Fragment = ""
		links = append(links, resolved.String())
	})
	return links
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
