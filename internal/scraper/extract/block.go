package extract

import "strings"

type blockMarker struct {
	reason string
	needle string
}

// blockMarkers are lower-case fragments typical of anti-bot interstitials
var blockMarkers = []blockMarker{
	{"access_denied", "access denied"},
	{"access_denied", "acceso denegado"},
	{"forbidden", "403 forbidden"},
	{"cloudflare", "cf-challenge"},
	{"cloudflare", "cf-browser-verification"},
	{"cloudflare", "__cf_chl_"},
	{"cloudflare", "checking your browser"},
	{"cloudflare", "just a moment..."},
	{"cloudflare", "ddos protection by cloudflare"},
	{"turnstile", "cf-turnstile"},
	{"recaptcha", "g-recaptcha"},
	{"blocked", "you have been blocked"},
	{"blocked", "request blocked"},
}

// DetectBlock reports whether html looks like a block or challenge page
// rather than the real document, with a short reason.
func DetectBlock(html string) (bool, string) {
	lower := strings.ToLower(html)
	for _, m := range blockMarkers {
		if strings.Contains(lower, m.needle) {
			return true, m.reason
		}
	}
	return false, ""
}
