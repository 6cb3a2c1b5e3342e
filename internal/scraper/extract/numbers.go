package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var nonNumeric = regexp.MustCompile(`[^0-9-]`)

// ParseCount reads a tally cell. Everything but digits and minus signs is
// dropped first; what remains is read as a leading integer. Empty or
// unreadable input is 0.
func ParseCount(s string) int {
	n, ok := leadingInt(nonNumeric.ReplaceAllString(s, ""))
	if !ok {
		return 0
	}
	return n
}

// SumCounts adds ParseCount over the given cell indexes; missing cells count as 0
func SumCounts(cells []string, idx ...int) int {
	total := 0
	for _, i := range idx {
		total += ParseCount(Cell(cells, i))
	}
	return total
}

// ParsePositive reads a leading integer ("3", "3º", " 12.") and reports
// whether it is greater than zero.
func ParsePositive(s string) (int, bool) {
	n, ok := leadingInt(strings.TrimSpace(s))
	if !ok || n <= 0 {
		return 0, false
	}
	return n, true
}

func leadingInt(s string) (int, bool) {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0, false
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
