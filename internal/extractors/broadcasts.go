// Package extractors turns the HTML of each supported site into records.
// Extractors are pure: no I/O, no logging, safe for concurrent use.
package extractors

import (
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"canales-taurinos/internal/scraper/extract"
	"canales-taurinos/pkg/models"
	"canales-taurinos/pkg/utils"
)

// minSignalDescription is the description length that alone keeps a paragraph
const minSignalDescription = 10

// Broadcasts extracts the televised-events agenda. Each justified paragraph
// is one listing; its links may sit in the paragraph right after it.
type Broadcasts struct {
	BaseURL    string
	Paragraphs extract.Cascade
}

func NewBroadcasts(baseURL string) *Broadcasts {
	return &Broadcasts{
		BaseURL: baseURL,
		Paragraphs: extract.Cascade{
			extract.BySelector("p.has-text-align-justify"),
			extract.BySelector(".entry-content p"),
			extract.BySelector("article p"),
		},
	}
}

func (b *Broadcasts) Extract(html string) ([]models.Broadcast, error) {
	doc, err := extract.Parse("broadcasts", html)
	if err != nil {
		return nil, err
	}

	out := []models.Broadcast{}
	paragraphs, _, ok := b.Paragraphs.Select(doc.Selection)
	if !ok {
		return out, nil
	}

	paragraphs.Each(func(_ int, p *goquery.Selection) {
		date, rest := extract.ExtractDate(extract.Text(p))
		links := b.links(p)

		if date == models.UnknownDate && len(links) == 0 && utf8.RuneCountInString(rest) < minSignalDescription {
			return
		}

		out = append(out, models.Broadcast{
			Date:        date,
			Description: utils.GetStringOrDefault(rest, models.UnknownDescription),
			Links:       links,
		})
	})
	return out, nil
}

// links collects anchors of p and of the paragraph following it, resolved
// and deduplicated by URL in document order.
func (b *Broadcasts) links(p *goquery.Selection) []models.Link {
	anchors := p.Find("a[href]").AddSelection(p.NextFiltered("p").Find("a[href]"))

	links := []models.Link{}
	seen := make(map[string]struct{})
	anchors.Each(func(_ int, a *goquery.Selection) {
		resolved, ok := extract.ResolveURL(b.BaseURL, extract.Attr(a, "href"))
		if !ok {
			return
		}
		if _, dup := seen[resolved]; dup {
			return
		}
		seen[resolved] = struct{}{}
		links = append(links, models.Link{
			Label: utils.GetStringOrDefault(extract.Text(a), resolved),
			URL:   resolved,
		})
	})
	return links
}
