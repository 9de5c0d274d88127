// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pagerange parses human-entered page selections such as
// "all", "1-3", or "1,4,7-9" into a sorted set of 1-based page numbers.
package pagerange

import (
	"sort"
	"strconv"
	"strings"
)

// Selection is an ascending, duplicate-free list of 1-based page numbers.
type Selection []int

// All returns every page from 1 to totalPages.
func All(totalPages int) Selection {
	if totalPages <= 0 {
		return Selection{}
	}
	sel := make(Selection, totalPages)
	for i := range sel {
		sel[i] = i + 1
	}
	return sel
}

// Parse resolves expr against a document of totalPages pages.
//
// An empty expression or "all" (any case) selects every page. Otherwise the
// expression is a comma-separated list of page numbers and lo-hi ranges.
// Numbers outside [1, totalPages] are dropped, ranges are clamped to that
// interval, and malformed tokens are skipped. The result may be empty.
func Parse(expr string, totalPages int) Selection {
	if totalPages <= 0 {
		return Selection{}
	}
	s := strings.TrimSpace(expr)
	if s == "" || strings.EqualFold(s, "all") {
		return All(totalPages)
	}

	seen := make(map[int]bool)
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		lo, hi, ok := parseToken(tok)
		if !ok {
			continue
		}
		lo = max(lo, 1)
		hi = min(hi, totalPages)
		for p := lo; p <= hi; p++ {
			seen[p] = true
		}
	}

	sel := make(Selection, 0, len(seen))
	for p := range seen {
		sel = append(sel, p)
	}
	sort.Ints(sel)
	return sel
}

// parseToken reads either "n" or "lo-hi". A single number n yields [n, n],
// so out-of-range singles fall out of the clamp in Parse.
func parseToken(tok string) (lo, hi int, ok bool) {
	a, b, isRange := strings.Cut(tok, "-")
	if !isRange {
		n, err := strconv.Atoi(tok)
		if err != nil {
			return 0, 0, false
		}
		return n, n, true
	}
	lo, err := strconv.Atoi(strings.TrimSpace(a))
	if err != nil {
		return 0, 0, false
	}
	hi, err = strconv.Atoi(strings.TrimSpace(b))
	if err != nil {
		return 0, 0, false
	}
	return lo, hi, true
}
