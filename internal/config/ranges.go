package config

import (
	"fmt"
	"strconv"
	"strings"
)

// RegisterRange is an inclusive range of register addresses.
type RegisterRange struct {
	Lo, Hi byte
}

// Contains reports whether reg lies in the range.
func (r RegisterRange) Contains(reg byte) bool {
	return reg >= r.Lo && reg <= r.Hi
}

// ParseRegisterRanges parses a list such as "0x19-0x1C,0x37,0x6B".
// An empty string yields no ranges.
func ParseRegisterRanges(s string) ([]RegisterRange, error) {
	var out []RegisterRange
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		if !isRange {
			hi = lo
		}
		l, err := strconv.ParseUint(strings.TrimSpace(lo), 0, 8)
		if err != nil {
			return nil, fmt.Errorf("bad register %q: %w", lo, err)
		}
		h, err := strconv.ParseUint(strings.TrimSpace(hi), 0, 8)
		if err != nil {
			return nil, fmt.Errorf("bad register %q: %w", hi, err)
		}
		if l > h {
			return nil, fmt.Errorf("empty range %q", part)
		}
		out = append(out, RegisterRange{Lo: byte(l), Hi: byte(h)})
	}
	return out, nil
}

// RegisterAllowed reports whether reg falls in any of the ranges.
func RegisterAllowed(ranges []RegisterRange, reg byte) bool {
	for _, r := range ranges {
		if r.Contains(reg) {
			return true
		}
	}
	return false
}
