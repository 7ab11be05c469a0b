package utils

import (
	"fmt"
	"time"
)

// DateLayoutISO8601 is the wire format of all date fields (`YYYY-MM-DD`).
const DateLayoutISO8601 = "2006-01-02"

// dateLayoutCompact is the 8-digit `YYYYMMDD` encoding some warehouse exports use.
const dateLayoutCompact = "20060102"

// ParseDate parses an ISO-8601 `YYYY-MM-DD` date.
func ParseDate(value string) (time.Time, error) {
	d, err := time.Parse(DateLayoutISO8601, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", value, err)
	}
	return d, nil
}

// NormalizeDate accepts either the ISO-8601 or the compact 8-digit date encoding and returns the
// ISO-8601 form. Malformed values are rejected.
func NormalizeDate(value string) (string, error) {
	if d, err := time.Parse(DateLayoutISO8601, value); err == nil {
		return d.Format(DateLayoutISO8601), nil
	}
	if d, err := time.Parse(dateLayoutCompact, value); err == nil {
		return d.Format(DateLayoutISO8601), nil
	}
	return "", fmt.Errorf("unrecognized date encoding %q", value)
}

// ValidateDateRange validates that both dates parse and that end >= start (inclusive range).
func ValidateDateRange(startDate, endDate string) error {
	start, err := ParseDate(startDate)
	if err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}

	end, err := ParseDate(endDate)
	if err != nil {
		return fmt.Errorf("invalid end date: %w", err)
	}

	if end.Before(start) {
		return fmt.Errorf("end date %s cannot be before start date %s", endDate, startDate)
	}

	return nil
}
