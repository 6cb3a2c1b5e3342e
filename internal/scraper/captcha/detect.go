package captcha

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Kind names the widget family of a challenge
type Kind string

const (
	KindTurnstile Kind = "turnstile"
	KindRecaptcha Kind = "recaptcha"
)

// Challenge is a solvable widget found in a rendered page
type Challenge struct {
	Kind    Kind
	SiteKey string
	PageURL string
}

// Turnstile keys start with 0x and appear in the challenge iframe path
var turnstileFrameKey = regexp.MustCompile(`challenges\.cloudflare\.com/[^"']*?/(0x[0-9A-Za-z_-]{10,})/`)

// Detect finds the first Turnstile or reCAPTCHA widget carrying a sitekey.
// Pages that only show a generic interstitial have nothing to solve.
func Detect(html string) (Challenge, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Challenge{}, false
	}

	if key := siteKey(doc, ".cf-turnstile[data-sitekey]"); key != "" {
		return Challenge{Kind: KindTurnstile, SiteKey: key}, true
	}
	if key := siteKey(doc, ".g-recaptcha[data-sitekey]"); key != "" {
		return Challenge{Kind: KindRecaptcha, SiteKey: key}, true
	}
	if m := turnstileFrameKey.FindStringSubmatch(html); m != nil {
		return Challenge{Kind: KindTurnstile, SiteKey: m[1]}, true
	}

	// bare widget containers without the usual class
	if key := siteKey(doc, "[data-sitekey]"); key != "" {
		if strings.HasPrefix(key, "0x") {
			return Challenge{Kind: KindTurnstile, SiteKey: key}, true
		}
		return Challenge{Kind: KindRecaptcha, SiteKey: key}, true
	}
	return Challenge{}, false
}

func siteKey(doc *goquery.Document, selector string) string {
	key, _ := doc.Find(selector).First().Attr("data-sitekey")
	return strings.TrimSpace(key)
}
