package sources

import (
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// ToMarkdown converts page HTML to markdown so article and post bodies go
// to the model as clean text instead of raw markup. Relative links are
// resolved against baseURL, keeping its scheme. Conversion failures fall
// back to the input unchanged.
func ToMarkdown(html, baseURL string) string {
	base, baseErr := url.Parse(baseURL)
	opts := &md.Options{
		GetAbsoluteURL: func(_ *goquery.Selection, rawURL string, _ string) string {
			if baseErr != nil {
				return rawURL
			}
			ref, err := url.Parse(rawURL)
			if err != nil {
				return rawURL
			}
			return base.ResolveReference(ref).String()
		},
	}

	converter := md.NewConverter(md.DomainFromURL(baseURL), true, opts)
	markdown, err := converter.ConvertString(html)
	if err != nil {
		return html
	}
	return strings.TrimSpace(markdown)
}
