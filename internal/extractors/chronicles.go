package extractors

import (
	"github.com/PuerkitoBio/goquery"

	"canales-taurinos/internal/scraper/extract"
	"canales-taurinos/pkg/models"
)

// Chronicles extracts the list of published event reports
type Chronicles struct {
	BaseURL  string
	Articles extract.Cascade
}

func NewChronicles(baseURL string) *Chronicles {
	return &Chronicles{
		BaseURL: baseURL,
		Articles: extract.Cascade{
			extract.BySelector("article.elementor-post"),
			extract.BySelector("article.post"),
			extract.ByContent("article with title link", "article", func(a *goquery.Selection) bool {
				return a.Find("h2 a, h3 a").Length() > 0
			}),
		},
	}
}

func (c *Chronicles) Extract(html string) ([]models.Chronicle, error) {
	doc, err := extract.Parse("chronicles", html)
	if err != nil {
		return nil, err
	}

	out := []models.Chronicle{}
	articles, _, ok := c.Articles.Select(doc.Selection)
	if !ok {
		return out, nil
	}

	articles.Each(func(_ int, article *goquery.Selection) {
		anchor := extract.FirstOf(article, "h3.elementor-post__title a", "h2.entry-title a", "h3 a", "h2 a")
		excerpt := extract.FirstOf(article, "div.elementor-post__excerpt p", ".entry-summary p", "p")
		if anchor.Length() == 0 || excerpt.Length() == 0 {
			return
		}

		title := extract.Text(anchor)
		link, ok := extract.ResolveURL(c.BaseURL, extract.Attr(anchor, "href"))
		if title == "" || !ok {
			return
		}

		out = append(out, models.Chronicle{
			Title:   title,
			Link:    link,
			Excerpt: extract.Text(excerpt),
		})
	})
	return out, nil
}
