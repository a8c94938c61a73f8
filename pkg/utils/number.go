// Package utils provides common utility functions for Stock Unlock.
package utils

import (
	"strconv"
	"strings"
)

// ParseNumber parses a numeric field from tabular source data. Thousands
// separators, currency symbols, percent signs, and surrounding whitespace are
// tolerated. Returns nil when the field is missing or not a number, so callers
// can keep "absent" distinct from zero.
func ParseNumber(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" || strings.EqualFold(s, "na") || strings.EqualFold(s, "n/a") {
		return nil
	}

	cleaned := strings.NewReplacer(",", "", "%", "", "₹", "", "$", "").Replace(s)
	cleaned = strings.TrimSpace(cleaned)

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &v
}

// Float64Ptr returns a pointer to v. Handy for building fixture records.
func Float64Ptr(v float64) *float64 {
	return &v
}
