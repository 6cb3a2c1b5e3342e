// Package extract holds the reusable pieces every source extractor is built
// from: selector cascades, table probing, text and number cleanup, date and
// link handling.
package extract

import (
	"bytes"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"canales-taurinos/pkg/utils"
)

var errBinaryContent = errors.New("content is binary, not markup")

// Parse reads html into a document. It fails only when the input is not
// markup at all; any text, including an empty string, parses.
func Parse(source, html string) (*goquery.Document, error) {
	head := html
	if len(head) > 512 {
		head = head[:512]
	}
	if bytes.IndexByte([]byte(head), 0) >= 0 {
		return nil, &utils.ParseError{Source: source, Err: errBinaryContent}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &utils.ParseError{Source: source, Err: err}
	}
	return doc, nil
}
