package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"canales-taurinos/pkg/models"
)

// datePatterns run in order: long form with weekday, numeric, long form
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:lunes|martes|mi[eé]rcoles|jueves|viernes|s[aá]bado|domingo) \d{1,2} de \p{L}+ de \d{4}`),
	regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{2,4}`),
	regexp.MustCompile(`(?i)\d{1,2} de \p{L}+ de \d{4}`),
}

// ExtractDate finds the first date in text using the pattern cascade. It
// returns the matched date (or the unknown-date placeholder) and the text
// with that first occurrence removed and whitespace collapsed.
func ExtractDate(text string) (date string, rest string) {
	for _, re := range datePatterns {
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		date = text[loc[0]:loc[1]]
		return date, CollapseSpace(text[:loc[0]] + " " + text[loc[1]:])
	}
	return models.UnknownDate, CollapseSpace(text)
}

var spanishMonths = map[string]time.Month{
	"enero":      time.January,
	"febrero":    time.February,
	"marzo":      time.March,
	"abril":      time.April,
	"mayo":       time.May,
	"junio":      time.June,
	"julio":      time.July,
	"agosto":     time.August,
	"septiembre": time.September,
	"setiembre":  time.September,
	"octubre":    time.October,
	"noviembre":  time.November,
	"diciembre":  time.December,
}

var (
	longDate    = regexp.MustCompile(`(?i)(\d{1,2})\s+de\s+(\p{L}+)\s+de\s+(\d{4})`)
	numericDate = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)
)

// ParseSpanishDate understands "26 de diciembre de 2025" (weekday optional)
// and "26/12/2025". The result is noon in loc, so date comparisons are not
// thrown off by DST shifts.
func ParseSpanishDate(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}

	var day, year int
	var month time.Month

	if m := longDate.FindStringSubmatch(s); m != nil {
		mon, ok := spanishMonths[strings.ToLower(m[2])]
		if !ok {
			return time.Time{}, false
		}
		day, _ = strconv.Atoi(m[1])
		year, _ = strconv.Atoi(m[3])
		month = mon
	} else if m := numericDate.FindStringSubmatch(s); m != nil {
		day, _ = strconv.Atoi(m[1])
		mon, _ := strconv.Atoi(m[2])
		year, _ = strconv.Atoi(m[3])
		if mon < 1 || mon > 12 {
			return time.Time{}, false
		}
		month = time.Month(mon)
	} else {
		return time.Time{}, false
	}

	t := time.Date(year, month, day, 12, 0, 0, 0, loc)
	// reject overflow such as 31/02 which time.Date would normalize
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}
