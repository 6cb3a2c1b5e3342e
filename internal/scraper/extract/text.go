package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CollapseSpace trims s and folds every whitespace run into one space
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Text is the collapsed text content of sel
func Text(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	return CollapseSpace(sel.Text())
}

// Attr is the trimmed attribute value of the first element of sel
func Attr(sel *goquery.Selection, name string) string {
	if sel == nil {
		return ""
	}
	v, _ := sel.First().Attr(name)
	return strings.TrimSpace(v)
}
