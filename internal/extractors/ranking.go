package extractors

import (
	"regexp"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"canales-taurinos/internal/scraper/extract"
	"canales-taurinos/pkg/models"
)

// RankingLayout maps ranking columns to fields. Feats and Ears are the sum
// of their per-category columns.
type RankingLayout struct {
	Position int
	Name     int
	Tails    int
	Feats    []int
	Ears     []int
}

// DefaultRankingLayout matches the published escalafón table
func DefaultRankingLayout() RankingLayout {
	return RankingLayout{
		Position: 0,
		Name:     1,
		Tails:    4,
		Feats:    []int{5, 6, 7},
		Ears:     []int{8, 9, 10},
	}
}

var rankingHeader = regexp.MustCompile(`posici|torero|lidiador|festejos|orejas|rabos`)

// Ranking extracts the bullfighter ranking table
type Ranking struct {
	Layout RankingLayout
	Tables extract.Cascade
}

func NewRanking() *Ranking {
	keywords := extract.KeywordPredicate(rankingHeader)
	candidates := []string{
		"table#sorter",
		"table.listadoTabla",
		".tablalistado table",
		".tablalistado",
		".wp-block-table table",
		".table-responsive table",
		"section table",
		`div[role="table"]`,
		"table",
	}

	tables := make(extract.Cascade, 0, len(candidates)+1)
	for _, sel := range candidates {
		tables = append(tables, extract.ByContent("ranking header in "+sel, sel, keywords))
	}
	tables = append(tables, extract.ByContent("first populated table", "table", extract.HasBodyRows))

	return &Ranking{Layout: DefaultRankingLayout(), Tables: tables}
}

func (r *Ranking) Extract(html string) ([]models.RankingEntry, error) {
	doc, err := extract.Parse("ranking", html)
	if err != nil {
		return nil, err
	}

	out := []models.RankingEntry{}
	table, _, ok := r.Tables.First(doc.Selection)
	if !ok {
		return out, nil
	}

	extract.Rows(table).Each(func(_ int, row *goquery.Selection) {
		cells := extract.Cells(row)
		position, ok := extract.ParsePositive(extract.Cell(cells, r.Layout.Position))
		if !ok {
			return
		}
		name := extract.Cell(cells, r.Layout.Name)
		if name == "" {
			return
		}

		out = append(out, models.RankingEntry{
			Position: strconv.Itoa(position),
			Name:     name,
			Feats:    strconv.Itoa(extract.SumCounts(cells, r.Layout.Feats...)),
			Ears:     strconv.Itoa(extract.SumCounts(cells, r.Layout.Ears...)),
			Tails:    strconv.Itoa(extract.ParseCount(extract.Cell(cells, r.Layout.Tails))),
		})
	})
	return out, nil
}
