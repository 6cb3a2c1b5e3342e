package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type StrategyKind int

const (
	// Structural matches on a selector alone
	Structural StrategyKind = iota
	// Heuristic narrows a selector's matches with a content predicate
	Heuristic
)

func (k StrategyKind) String() string {
	if k == Heuristic {
		return "heuristic"
	}
	return "structural"
}

// Strategy is one way of locating the element(s) holding the data
type Strategy struct {
	Name      string
	Kind      StrategyKind
	Selector  string
	Predicate func(*goquery.Selection) bool
}

// BySelector builds a structural strategy
func BySelector(selector string) Strategy {
	return Strategy{Name: selector, Kind: Structural, Selector: selector}
}

// ByContent builds a heuristic strategy
func ByContent(name, selector string, predicate func(*goquery.Selection) bool) Strategy {
	return Strategy{Name: name, Kind: Heuristic, Selector: selector, Predicate: predicate}
}

func (s Strategy) apply(root *goquery.Selection) *goquery.Selection {
	found := root.Find(s.Selector)
	if s.Predicate == nil {
		return found
	}
	return found.FilterFunction(func(_ int, el *goquery.Selection) bool {
		return s.Predicate(el)
	})
}

// Cascade is an ordered strategy list, most specific first. The first
// strategy producing at least one match wins.
type Cascade []Strategy

// Select returns every match of the winning strategy
func (c Cascade) Select(root *goquery.Selection) (*goquery.Selection, Strategy, bool) {
	for _, s := range c {
		if found := s.apply(root); found.Length() > 0 {
			return found, s, true
		}
	}
	return nil, Strategy{}, false
}

// First returns the first match of the winning strategy
func (c Cascade) First(root *goquery.Selection) (*goquery.Selection, Strategy, bool) {
	found, s, ok := c.Select(root)
	if !ok {
		return nil, s, false
	}
	return found.First(), s, true
}

// FirstText returns the collapsed text of the first selector with non-empty text
func FirstText(root *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if text := Text(root.Find(sel).First()); text != "" {
			return text
		}
	}
	return ""
}

// HeaderText is the text of a table's header: its thead, else its first row
func HeaderText(table *goquery.Selection) string {
	if head := Text(table.Find("thead")); head != "" {
		return head
	}
	if row := table.Find("tr").First(); row.Length() > 0 {
		return Text(row)
	}
	return Text(table.Find(`[role="row"]`).First())
}

// KeywordPredicate matches tables whose header text matches re
func KeywordPredicate(re *regexp.Regexp) func(*goquery.Selection) bool {
	return func(table *goquery.Selection) bool {
		return re.MatchString(strings.ToLower(HeaderText(table)))
	}
}

// HasBodyRows matches tables with at least one body row
func HasBodyRows(table *goquery.Selection) bool {
	return table.Find("tbody tr").Length() > 0
}

// FirstOf returns the first element matched by the earliest selector that
// matches anything, or an empty selection
func FirstOf(root *goquery.Selection, selectors ...string) *goquery.Selection {
	for _, sel := range selectors {
		if found := root.Find(sel); found.Length() > 0 {
			return found.First()
		}
	}
	return root.Slice(0, 0)
}
