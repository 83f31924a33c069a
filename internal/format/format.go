// Package format renders project values the way the dashboard table shows them.
package format

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

var (
	jo   = decimal.New(1, 9) // budgets are quoted in thousands of won
	eok  = decimal.New(1, 8)
	man  = decimal.New(1, 4)
	zero = decimal.Zero
)

// Budget turns a raw budget string into a short Korean amount label.
// Only the digits of raw are considered; raw is returned unchanged when it has none.
func Budget(raw string) string {
	if raw == "" {
		return "-"
	}

	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if digits == "" {
		return raw
	}

	num, err := decimal.NewFromString(digits)
	if err != nil || num.LessThan(zero) {
		return raw
	}

	switch {
	case num.GreaterThanOrEqual(jo):
		return num.Div(jo).StringFixed(1) + "조원"
	case num.GreaterThanOrEqual(eok):
		return num.Div(eok).StringFixed(0) + "억원"
	case num.GreaterThanOrEqual(man):
		return num.Div(man).StringFixed(0) + "만원"
	default:
		return humanize.Comma(num.IntPart()) + "원"
	}
}

// GradeClass returns the badge class for a grade label.
func GradeClass(grade string) string {
	switch {
	case strings.Contains(grade, "A급"):
		return "grade-a"
	case strings.Contains(grade, "B급"):
		return "grade-b"
	case strings.Contains(grade, "C급"):
		return "grade-c"
	default:
		return ""
	}
}

// ScoreClass buckets a relevance score.
func ScoreClass(score float64) string {
	switch {
	case score >= 250:
		return "score-high"
	case score >= 150:
		return "score-medium"
	default:
		return "score-low"
	}
}

// Count renders a counter with thousands separators.
func Count(n int) string {
	return humanize.Comma(int64(n))
}
