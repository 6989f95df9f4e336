package models

import (
	"strings"
	"time"
)

// SubscriptionStatus is the status flag written by the assignment workflow.
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusUnknown   SubscriptionStatus = "unknown"
)

// ParseSubscriptionStatus normalises a stored status value.
func ParseSubscriptionStatus(raw string) SubscriptionStatus {
	switch SubscriptionStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case SubscriptionStatusActive:
		return SubscriptionStatusActive
	case SubscriptionStatusExpired:
		return SubscriptionStatusExpired
	case SubscriptionStatusCancelled:
		return SubscriptionStatusCancelled
	default:
		return SubscriptionStatusUnknown
	}
}

// UnlimitedClassQuota is the quota sentinel; any quota at or above it means unlimited classes.
const UnlimitedClassQuota = 999

// Subscription is a client's membership plan assignment.
type Subscription struct {
	ID                string             `db:"id" json:"id"`
	UserID            string             `db:"user_id" json:"user_id"`
	PlanName          string             `db:"plan_name" json:"plan_name"`
	Status            SubscriptionStatus `db:"status" json:"status"`
	StartDate         Date               `db:"start_date" json:"start_date"`
	EndDate           Date               `db:"end_date" json:"end_date"`
	MonthlyClassQuota int                `db:"monthly_class_quota" json:"monthly_class_quota"`
	RemainingClasses  int                `db:"remaining_classes" json:"remaining_classes"`
	EquipmentAccess   string             `db:"equipment_access" json:"equipment_access"`
	MonthlyPrice      float64            `db:"monthly_price" json:"monthly_price"`
	CreatedAt         time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time          `db:"updated_at" json:"updated_at"`
}

// IsUnlimited reports whether the quota is the unlimited sentinel.
func (s Subscription) IsUnlimited() bool {
	return s.MonthlyClassQuota >= UnlimitedClassQuota
}

// SubscriptionFilter narrows subscription listings.
type SubscriptionFilter struct {
	Statuses  []SubscriptionStatus
	UserID    string
	EndAfter  *Date
	EndBefore *Date
}

// UrgencyTier classifies how soon a subscription runs out. It is derived, never stored.
type UrgencyTier string

const (
	TierNormal       UrgencyTier = "normal"
	TierWarning      UrgencyTier = "warning"
	TierCritical     UrgencyTier = "critical"
	TierExpiredToday UrgencyTier = "expired_today"
	TierExpired      UrgencyTier = "expired"
)

// Classification is the derived lifecycle view of one subscription.
type Classification struct {
	Tier            UrgencyTier `json:"tier"`
	DaysRemaining   int         `json:"days_remaining"`
	UsedClasses     int         `json:"used_classes"`
	UsagePercentage int         `json:"usage_percentage"`
	Unlimited       bool        `json:"unlimited"`
	RemainingLabel  string      `json:"remaining_label"`
}

// SubscriptionAlert pairs a subscription with its owner and classification.
type SubscriptionAlert struct {
	Subscription   Subscription   `json:"subscription"`
	ClientName     string         `json:"client_name"`
	ClientEmail    string         `json:"client_email,omitempty"`
	Classification Classification `json:"classification"`
}

// SubscriptionAlerts groups the staff alert lists.
type SubscriptionAlerts struct {
	EndingSoon    []SubscriptionAlert `json:"ending_soon"`
	ExpiringToday []SubscriptionAlert `json:"expiring_today"`
	Lapsed        []SubscriptionAlert `json:"lapsed"`
}
