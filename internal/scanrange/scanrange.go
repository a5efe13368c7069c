// Package scanrange parses human-authored interval strings like
// "1-5,8,10-" into an ordered, non-overlapping list of closed integer
// intervals and iterates the selected values in ascending order.
package scanrange

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrFormat means the range string does not follow the grammar
	ErrFormat = errors.New("scanrange: invalid range string")
	// ErrNotAscending means intervals overlap or are out of order
	ErrNotAscending = errors.New("scanrange: intervals not ascending")
	// ErrEmpty means the range string selects no intervals
	ErrEmpty = errors.New("scanrange: empty range")
	// ErrInternal means the parser produced an odd edge count
	ErrInternal = errors.New("scanrange: internal format error")
)

var (
	charsetRe  = regexp.MustCompile(`^[\d,\-\s]*$`)
	singleRe   = regexp.MustCompile(`^\s*(\d+)\s*$`)
	intervalRe = regexp.MustCompile(`^\s*(\d*)\s*-\s*(\d*)\s*$`)
)

// Range is an ordered list of closed [start,end] intervals, strictly
// ascending and clamped to the bounds given at parse time.
type Range struct {
	edges []int // flat start,end pairs
}

// Parse builds a Range from an interval string. An empty string selects
// the full [min,max] interval. Open bounds default to min and max: an
// open start is only valid in the first piece, an open end only in the
// last one.
func Parse(s string, min, max int) (*Range, error) {
	r := &Range{}
	if strings.TrimSpace(s) == "" {
		r.edges = []int{min, max}
		return r, nil
	}
	if !charsetRe.MatchString(s) {
		return nil, fmt.Errorf("%w: unexpected character in %q", ErrFormat, s)
	}
	pieces := strings.Split(s, ",")
	for i, piece := range pieces {
		start, end, err := parsePiece(piece, i == 0, i == len(pieces)-1, min, max)
		if err != nil {
			return nil, err
		}
		if start < min {
			start = min
		}
		if end > max {
			end = max
		}
		if start > end {
			// Entirely outside the caller's bounds, selects nothing
			continue
		}
		if len(r.edges) > 0 && start <= r.edges[len(r.edges)-1] {
			return nil, fmt.Errorf("%w: %q", ErrNotAscending, piece)
		}
		r.edges = append(r.edges, start, end)
	}
	if len(r.edges) == 0 {
		return nil, ErrEmpty
	}
	if len(r.edges)%2 != 0 {
		return nil, ErrInternal
	}
	return r, nil
}

func parsePiece(piece string, first, last bool, min, max int) (int, int, error) {
	if m := singleRe.FindStringSubmatch(piece); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %q", ErrFormat, piece)
		}
		return n, n, nil
	}
	m := intervalRe.FindStringSubmatch(piece)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: piece %q", ErrFormat, piece)
	}
	start, end := min, max
	if m[1] == "" && !first {
		return 0, 0, fmt.Errorf("%w: piece %q (open start only valid first)", ErrFormat, piece)
	}
	if m[2] == "" && !last {
		return 0, 0, fmt.Errorf("%w: piece %q (open end only valid last)", ErrFormat, piece)
	}
	var err error
	if m[1] != "" {
		if start, err = strconv.Atoi(m[1]); err != nil {
			return 0, 0, fmt.Errorf("%w: %q", ErrFormat, piece)
		}
	}
	if m[2] != "" {
		if end, err = strconv.Atoi(m[2]); err != nil {
			return 0, 0, fmt.Errorf("%w: %q", ErrFormat, piece)
		}
	}
	if start > end {
		return 0, 0, fmt.Errorf("%w: piece %q (start after end)", ErrFormat, piece)
	}
	return start, end, nil
}

// Min returns the first selected value.
func (r *Range) Min() int { return r.edges[0] }

// Max returns the last selected value.
func (r *Range) Max() int { return r.edges[len(r.edges)-1] }

// Count returns the total number of selected values.
func (r *Range) Count() int {
	n := 0
	for i := 0; i < len(r.edges); i += 2 {
		n += r.edges[i+1] - r.edges[i] + 1
	}
	return n
}

// Contains reports whether n falls inside one of the intervals.
func (r *Range) Contains(n int) bool {
	for i := 0; i < len(r.edges); i += 2 {
		if n < r.edges[i] {
			return false
		}
		if n <= r.edges[i+1] {
			return true
		}
	}
	return false
}

// Iter starts a fresh ascending iteration over the selected values.
// A Range can be iterated any number of times.
func (r *Range) Iter() *Iter {
	return &Iter{r: r}
}

// Iter walks the values of a Range in ascending order.
type Iter struct {
	r    *Range
	seg  int
	cur  int
	open bool
}

// Next returns the next selected value, or ok=false when exhausted.
func (it *Iter) Next() (int, bool) {
	for {
		if it.seg*2 >= len(it.r.edges) {
			return 0, false
		}
		if !it.open {
			it.cur = it.r.edges[it.seg*2]
			it.open = true
			return it.cur, true
		}
		if it.cur < it.r.edges[it.seg*2+1] {
			it.cur++
			return it.cur, true
		}
		it.seg++
		it.open = false
	}
}

// Values materializes the whole sequence. Intended for small ranges
// and tests; the converter iterates lazily.
func (r *Range) Values() []int {
	vals := make([]int, 0, r.Count())
	it := r.Iter()
	for v, ok := it.Next(); ok; v, ok = it.Next() {
		vals = append(vals, v)
	}
	return vals
}
