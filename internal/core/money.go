// Package core provides amount parsing for form input.
//
// Amounts are whole numbers in the farm's bookkeeping unit (thousands of
// rupiah). The form may send them with id-ID thousand separators.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseAmount converts a form value to an integer amount.
//
// An empty value means "no leg" and parses to zero. Dots or commas are accepted
// only as thousand separators, so every group after the first must have three
// digits. Negative values are rejected with ErrNegativeAmount.
//
// Examples:
//
//	ParseAmount("")        -> 0, nil
//	ParseAmount("1500")    -> 1500, nil
//	ParseAmount("1.500")   -> 1500, nil
//	ParseAmount("1.5")     -> 0, ErrInvalidAmount
//	ParseAmount("-20")     -> 0, ErrNegativeAmount
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeAmount
	}
	s = strings.TrimPrefix(s, "+")

	groups := strings.FieldsFunc(s, func(r rune) bool { return r == '.' || r == ',' })
	if len(groups) == 0 || strings.HasSuffix(s, ".") || strings.HasSuffix(s, ",") {
		return 0, ErrInvalidAmount
	}
	// FieldsFunc collapses adjacent separators; "1..500" must not pass.
	if len(strings.Join(groups, "")) != len(s)-(len(groups)-1) {
		return 0, ErrInvalidAmount
	}
	for i, g := range groups {
		if i > 0 && len(g) != 3 {
			return 0, ErrInvalidAmount
		}
		for _, r := range g {
			if !unicode.IsDigit(r) {
				return 0, ErrInvalidAmount
			}
		}
	}

	v, err := strconv.ParseInt(strings.Join(groups, ""), 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return v, nil
}
