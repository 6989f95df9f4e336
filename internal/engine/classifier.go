package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/studio-ops-api/internal/models"
)

const (
	// CriticalThresholdDays is the last day count that still reads as critical.
	CriticalThresholdDays = 7
	// WarningThresholdDays is the last day count that still reads as warning.
	WarningThresholdDays = 14
)

// UnknownClientName is shown when a booking or subscription points at a missing user.
const UnknownClientName = "Unknown Client"

// Classify derives the urgency tier and usage figures of sub as of today.
// The stored status is ignored here; callers combine both when building alerts.
func Classify(sub models.Subscription, today models.Date) models.Classification {
	days := 0
	if !sub.EndDate.IsZero() {
		days = today.DaysUntil(sub.EndDate)
	}

	result := models.Classification{
		Tier:          TierFor(days),
		DaysRemaining: days,
		Unlimited:     sub.IsUnlimited(),
	}
	if sub.EndDate.IsZero() {
		// no end date on record: treat as already lapsed rather than guessing
		result.Tier = models.TierExpired
	}

	used := sub.MonthlyClassQuota - sub.RemainingClasses
	if used < 0 {
		used = 0
	}
	result.UsedClasses = used
	if !result.Unlimited && sub.MonthlyClassQuota > 0 {
		pct := roundedPercent(used, sub.MonthlyClassQuota)
		if pct > 100 {
			pct = 100
		}
		result.UsagePercentage = pct
	}
	result.RemainingLabel = remainingLabel(result.Tier, days)
	return result
}

// TierFor maps a remaining day count onto its tier.
func TierFor(daysRemaining int) models.UrgencyTier {
	switch {
	case daysRemaining < 0:
		return models.TierExpired
	case daysRemaining == 0:
		return models.TierExpiredToday
	case daysRemaining <= CriticalThresholdDays:
		return models.TierCritical
	case daysRemaining <= WarningThresholdDays:
		return models.TierWarning
	default:
		return models.TierNormal
	}
}

func remainingLabel(tier models.UrgencyTier, days int) string {
	switch tier {
	case models.TierExpiredToday:
		return "expires today"
	case models.TierExpired:
		if days >= 0 {
			return "expired"
		}
		return fmt.Sprintf("expired %s ago", pluralDays(-days))
	default:
		return fmt.Sprintf("%s left", pluralDays(days))
	}
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

// EndingSoon lists active subscriptions in the warning or critical tier that still have
// at least one day left, soonest first and then by client name.
func EndingSoon(subs []models.Subscription, users []models.User, today models.Date) []models.SubscriptionAlert {
	return BuildAlerts(subs, users, today).EndingSoon
}

// BuildAlerts classifies every subscription once and sorts the results into staff alert lists.
func BuildAlerts(subs []models.Subscription, users []models.User, today models.Date) models.SubscriptionAlerts {
	directory := indexUsers(users)
	alerts := models.SubscriptionAlerts{
		EndingSoon:    []models.SubscriptionAlert{},
		ExpiringToday: []models.SubscriptionAlert{},
		Lapsed:        []models.SubscriptionAlert{},
	}
	for _, sub := range subs {
		if models.ParseSubscriptionStatus(string(sub.Status)) != models.SubscriptionStatusActive {
			continue
		}
		classification := Classify(sub, today)
		alert := models.SubscriptionAlert{
			Subscription:   sub,
			Classification: classification,
		}
		alert.ClientName, alert.ClientEmail = directory.resolve(sub.UserID)

		switch classification.Tier {
		case models.TierWarning, models.TierCritical:
			if classification.DaysRemaining > 0 {
				alerts.EndingSoon = append(alerts.EndingSoon, alert)
			}
		case models.TierExpiredToday:
			alerts.ExpiringToday = append(alerts.ExpiringToday, alert)
		case models.TierExpired:
			alerts.Lapsed = append(alerts.Lapsed, alert)
		}
	}
	sortAlerts(alerts.EndingSoon)
	sortAlerts(alerts.ExpiringToday)
	sortAlerts(alerts.Lapsed)
	return alerts
}

func sortAlerts(list []models.SubscriptionAlert) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Classification.DaysRemaining != b.Classification.DaysRemaining {
			return a.Classification.DaysRemaining < b.Classification.DaysRemaining
		}
		an, bn := strings.ToLower(a.ClientName), strings.ToLower(b.ClientName)
		if an != bn {
			return an < bn
		}
		return a.Subscription.ID < b.Subscription.ID
	})
}
