package commands

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/gmsas95/ledgerbot/internal/errors"
)

var (
	rangeRe = regexp.MustCompile(`^(\d+)-(\d+)$`)
	lastRe  = regexp.MustCompile(`^last(?:\s+(\d+))?$`)
	commaRe = regexp.MustCompile(`\s*,\s*`)
)

// maxRange bounds "a-b" so a typo cannot expand into a huge list
const maxRange = 100

// Targets is a parsed target specification: explicit 1-based positions, or
// the last N entries of the cached list.
type Targets struct {
	Positions []int
	Last      int
}

// ParseTargets reads "3", "1,3,5", "2-4", "1,3-5" or "last [N]"
func ParseTargets(spec string) (Targets, error) {
	s := strings.TrimSpace(strings.ToLower(spec))
	if s == "" {
		return Targets{}, apperrors.ErrInvalidTarget
	}

	if m := lastRe.FindStringSubmatch(s); m != nil {
		n := 1
		if m[1] != "" {
			n, _ = strconv.Atoi(m[1])
		}
		if n < 1 {
			return Targets{}, apperrors.From(apperrors.ErrInvalidTarget, fmt.Errorf("last %d", n))
		}
		return Targets{Last: n}, nil
	}

	var out []int
	for _, part := range commaRe.Split(s, -1) {
		if m := rangeRe.FindStringSubmatch(part); m != nil {
			a, _ := strconv.Atoi(m[1])
			b, _ := strconv.Atoi(m[2])
			if a > b {
				a, b = b, a
			}
			if b-a >= maxRange {
				return Targets{}, apperrors.From(apperrors.ErrInvalidTarget, fmt.Errorf("range %s too large", part))
			}
			for i := a; i <= b; i++ {
				out = append(out, i)
			}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return Targets{}, apperrors.From(apperrors.ErrInvalidTarget, fmt.Errorf("%q", part))
		}
		out = append(out, n)
	}
	return Targets{Positions: out}, nil
}

// Resolve turns targets into sorted, de-duplicated 1-based positions within a
// list of size n. Any position outside 1..n fails the whole resolution.
func (t Targets) Resolve(n int) ([]int, error) {
	if n == 0 {
		return nil, apperrors.ErrNoList
	}

	if t.Last > 0 {
		count := t.Last
		if count > n {
			count = n
		}
		out := make([]int, 0, count)
		for i := n - count + 1; i <= n; i++ {
			out = append(out, i)
		}
		return out, nil
	}

	seen := make(map[int]bool, len(t.Positions))
	var out []int
	for _, p := range t.Positions {
		if p < 1 || p > n {
			return nil, apperrors.From(apperrors.ErrOutOfRange, fmt.Errorf("#%d", p))
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Ints(out)
	return out, nil
}
