package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// BusinessHours is a daily [Start, End) window in whole hours
type BusinessHours struct {
	Start int
	End   int
}

// ParseBusinessHours parses "HH-HH"
func ParseBusinessHours(s string) (BusinessHours, error) {
	from, to, ok := strings.Cut(s, "-")
	if !ok {
		return BusinessHours{}, fmt.Errorf("invalid BUSINESS_HOURS %q: want HH-HH", s)
	}
	start, err := strconv.Atoi(strings.TrimSpace(from))
	if err != nil {
		return BusinessHours{}, fmt.Errorf("invalid BUSINESS_HOURS start: %w", err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(to))
	if err != nil {
		return BusinessHours{}, fmt.Errorf("invalid BUSINESS_HOURS end: %w", err)
	}
	if start < 0 || end > 24 || start >= end {
		return BusinessHours{}, fmt.Errorf("invalid BUSINESS_HOURS %q", s)
	}
	return BusinessHours{Start: start, End: end}, nil
}

// Contains reports whether t falls inside the window (local time of t)
func (b BusinessHours) Contains(t time.Time) bool {
	h := t.Hour()
	return h >= b.Start && h < b.End
}
