package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/gmsas95/ledgerbot/internal/textnorm"
)

var (
	isoMonthRe   = regexp.MustCompile(`^(\d{4})-(\d{1,2})$`)
	slashMonthRe = regexp.MustCompile(`^(\d{1,2})/(\d{4})$`)
)

// monthAliases maps folded month tokens in English, Vietnamese and Korean to a month
var monthAliases = buildMonthAliases()

func buildMonthAliases() map[string]time.Month {
	english := [][]string{
		{"january", "jan"}, {"february", "feb"}, {"march", "mar"},
		{"april", "apr"}, {"may"}, {"june", "jun"},
		{"july", "jul"}, {"august", "aug"}, {"september", "sep", "sept"},
		{"october", "oct"}, {"november", "nov"}, {"december", "dec"},
	}

	m := make(map[string]time.Month)
	for i, names := range english {
		month := time.Month(i + 1)
		for _, n := range names {
			m[n] = month
		}
		m[fmt.Sprintf("t%d", i+1)] = month
		m[fmt.Sprintf("thg%d", i+1)] = month
		m[fmt.Sprintf("tháng%d", i+1)] = month
		m[fmt.Sprintf("%d월", i+1)] = month
	}
	return m
}

// LookupMonth resolves a single token to a month name alias
func LookupMonth(token string) (time.Month, bool) {
	m, ok := monthAliases[textnorm.TrimPunct(textnorm.Fold(token))]
	return m, ok
}

// MonthResult is the outcome of month extraction
type MonthResult struct {
	Year        int
	Month       time.Month
	IsBackdated bool
	Found       bool
	// Rest holds the remaining tokens in their original order
	Rest []string
}

// ExtractMonth consumes the first month-shaped token. A bare month name later
// in the year than now refers to last year ("dec" in March is last December).
func ExtractMonth(tokens []string, now time.Time) MonthResult {
	res := MonthResult{Year: now.Year(), Month: now.Month()}

	for i, tok := range tokens {
		y, m, ok := ParseMonthToken(tok, now)
		if !ok {
			continue
		}
		res.Year, res.Month, res.Found = y, m, true
		res.IsBackdated = y != now.Year() || m != now.Month()
		res.Rest = append(append([]string{}, tokens[:i]...), tokens[i+1:]...)
		return res
	}

	res.Rest = append([]string{}, tokens...)
	return res
}

// ParseMonthToken resolves one token to a year and month, with the same
// year rule as ExtractMonth
func ParseMonthToken(tok string, now time.Time) (int, time.Month, bool) {
	if g := isoMonthRe.FindStringSubmatch(tok); g != nil {
		return yearMonth(g[1], g[2])
	}
	if g := slashMonthRe.FindStringSubmatch(tok); g != nil {
		return yearMonth(g[2], g[1])
	}
	if m, ok := LookupMonth(tok); ok {
		year := now.Year()
		if m > now.Month() {
			year--
		}
		return year, m, true
	}
	return 0, 0, false
}

func yearMonth(ys, ms string) (int, time.Month, bool) {
	y, _ := strconv.Atoi(ys)
	m, _ := strconv.Atoi(ms)
	if m < 1 || m > 12 {
		return 0, 0, false
	}
	return y, time.Month(m), true
}
