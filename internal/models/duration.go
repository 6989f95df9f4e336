package models

import "strings"

// DurationUnit is the unit of a plan duration.
type DurationUnit string

const (
	DurationDays   DurationUnit = "days"
	DurationMonths DurationUnit = "months"
	DurationYears  DurationUnit = "years"
)

// ParseDurationUnit accepts singular or plural unit names in any case.
// Unrecognised input is returned as-is so callers can reject it.
func ParseDurationUnit(raw string) DurationUnit {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "day", "days":
		return DurationDays
	case "month", "months":
		return DurationMonths
	case "year", "years":
		return DurationYears
	default:
		return DurationUnit(raw)
	}
}

// DurationSpec describes a plan length.
type DurationSpec struct {
	Amount int          `json:"amount"`
	Unit   DurationUnit `json:"unit"`
}
