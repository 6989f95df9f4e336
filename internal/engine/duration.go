package engine

import (
	"fmt"
	"time"

	"github.com/noah-isme/studio-ops-api/internal/models"
	appErrors "github.com/noah-isme/studio-ops-api/pkg/errors"
)

// CalculateEndDate returns the last valid day of a plan starting on start.
//
// Day durations count the start day itself, so a 1-day pass ends on its start date.
// Month and year durations land on the same day-of-month, clamped to the end of the
// target month when that day does not exist there. A missing start yields a missing end.
func CalculateEndDate(start models.Date, amount int, unit models.DurationUnit) (models.Date, error) {
	if amount < 0 {
		return models.Date{}, appErrors.Clone(appErrors.ErrInvalidArgument, fmt.Sprintf("duration amount must not be negative, got %d", amount))
	}
	switch unit {
	case models.DurationDays, models.DurationMonths, models.DurationYears:
	default:
		return models.Date{}, appErrors.Clone(appErrors.ErrInvalidArgument, fmt.Sprintf("unsupported duration unit %q", unit))
	}
	if start.IsZero() {
		return models.Date{}, nil
	}

	switch unit {
	case models.DurationDays:
		if amount == 0 {
			return start, nil
		}
		return start.AddDays(amount - 1), nil
	case models.DurationMonths:
		return addMonthsClamped(start, amount), nil
	default:
		return addMonthsClamped(start, amount*12), nil
	}
}

// EndDateFor applies a DurationSpec.
func EndDateFor(start models.Date, spec models.DurationSpec) (models.Date, error) {
	return CalculateEndDate(start, spec.Amount, spec.Unit)
}

func addMonthsClamped(start models.Date, months int) models.Date {
	index := int(start.Month-1) + months
	year := start.Year + index/12
	month := time.Month(index%12 + 1)
	day := start.Day
	if last := models.DaysInMonth(year, month); day > last {
		day = last
	}
	return models.Date{Year: year, Month: month, Day: day}
}
