package extractors

import (
	"github.com/PuerkitoBio/goquery"

	"canales-taurinos/internal/scraper/extract"
	"canales-taurinos/pkg/models"
	"canales-taurinos/pkg/utils"
)

// Calendar extracts the ticketing calendar cards
type Calendar struct {
	BaseURL string
	Cards   extract.Cascade
}

func NewCalendar(baseURL string) *Calendar {
	return &Calendar{
		BaseURL: baseURL,
		Cards: extract.Cascade{
			extract.BySelector(".card.evento"),
			extract.BySelector("article.evento, div.evento"),
			extract.ByContent("card with date", ".card", func(card *goquery.Selection) bool {
				return card.Find(".fecha").Length() > 0
			}),
		},
	}
}

func (c *Calendar) Extract(html string) ([]models.CalendarEvent, error) {
	doc, err := extract.Parse("calendar", html)
	if err != nil {
		return nil, err
	}

	out := []models.CalendarEvent{}
	cards, _, ok := c.Cards.Select(doc.Selection)
	if !ok {
		return out, nil
	}

	cards.Each(func(_ int, card *goquery.Selection) {
		body := card.Find(".card-body").First()
		if body.Length() == 0 {
			body = card
		}

		date := extract.FirstText(body, ".fecha")
		name := extract.FirstText(body, ".nombre-evento", ".card-title")
		if date == "" || name == "" {
			return
		}

		city := body.Find(".ciudad").First()
		out = append(out, models.CalendarEvent{
			Date:     date,
			City:     utils.GetStringOrDefault(extract.Attr(city, "data-nombre-ciudad"), utils.GetStringOrDefault(extract.Text(city), models.UnknownCity)),
			Name:     name,
			Category: utils.GetStringOrDefault(extract.FirstText(body, ".evento-cat"), models.UnknownCategory),
			Location: extract.FirstText(body, ".location"),
			Link:     c.ticketLink(body),
		})
	})
	return out, nil
}

func (c *Calendar) ticketLink(body *goquery.Selection) *string {
	resolved, ok := extract.ResolveURL(c.BaseURL, extract.Attr(body.Find("a.reservar"), "href"))
	if !ok {
		return nil
	}
	return &resolved
}
