package extract

import "github.com/PuerkitoBio/goquery"

type finder func(*goquery.Selection) *goquery.Selection

// rowFinders covers semantic tables first and ARIA grids built from divs last
var rowFinders = []finder{
	func(c *goquery.Selection) *goquery.Selection { return c.Find("tbody tr") },
	func(c *goquery.Selection) *goquery.Selection { return c.Find("tr") },
	func(c *goquery.Selection) *goquery.Selection {
		return c.Find(`[role="row"]`).FilterFunction(func(_ int, row *goquery.Selection) bool {
			return row.Find(`[role="cell"]`).Length() > 0
		})
	},
}

var cellFinders = []finder{
	func(r *goquery.Selection) *goquery.Selection { return r.Find("td") },
	func(r *goquery.Selection) *goquery.Selection { return r.Find(`[role="cell"]`) },
	func(r *goquery.Selection) *goquery.Selection { return r.ChildrenFiltered("div, span") },
}

// Rows returns the data rows of container using the first finder that finds any
func Rows(container *goquery.Selection) *goquery.Selection {
	for _, find := range rowFinders {
		if rows := find(container); rows.Length() > 0 {
			return rows
		}
	}
	return container.Slice(0, 0)
}

// Cells returns the collapsed text of each cell of row, or nil
func Cells(row *goquery.Selection) []string {
	for _, find := range cellFinders {
		cells := find(row)
		if cells.Length() == 0 {
			continue
		}
		out := make([]string, 0, cells.Length())
		cells.Each(func(_ int, cell *goquery.Selection) {
			out = append(out, Text(cell))
		})
		return out
	}
	return nil
}

// Cell returns cells[i] or "" when the row is shorter
func Cell(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}
