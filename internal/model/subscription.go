package model

import (
	"encoding/json"
	"time"
)

// ResourceType names a rate-limited resource under subscription plans.
type ResourceType string

const (
	ResourceCourses  ResourceType = "courses"
	ResourceSessions ResourceType = "sessions"
	ResourceGroups   ResourceType = "groups"
	ResourcePacks    ResourceType = "packs"
)

// KnownResourceTypes lists every resource type the usage tracker can sync
// against an authoritative count.
var KnownResourceTypes = []ResourceType{
	ResourceCourses,
	ResourceSessions,
	ResourceGroups,
	ResourcePacks,
}

func (rt ResourceType) Known() bool {
	for _, k := range KnownResourceTypes {
		if rt == k {
			return true
		}
	}
	return false
}

// UnlimitedUsage marks a plan limit with no cap.
const UnlimitedUsage = -1

// swagger:model SubscriptionPlan
type SubscriptionPlan struct {
	BaseModel
	Name     string          `gorm:"size:100;not null;unique" json:"name"`
	Price    float64         `gorm:"default:0" json:"price"`
	Priority int             `gorm:"default:0;index" json:"priority"` // higher = more capable
	Features json.RawMessage `gorm:"type:json" json:"features,omitempty"`
	IsActive bool            `gorm:"default:true" json:"isActive"`

	Limits []SubscriptionPlanLimit `gorm:"foreignKey:PlanID" json:"limits,omitempty"`
}

func (SubscriptionPlan) TableName() string {
	return "subscription_plans"
}

// LimitFor resolves the plan's limit for a resource type from preloaded
// limits. A missing row means no quota at all (0), not unlimited. Only -1
// marks an unlimited quota; any other negative value is malformed data and
// reads as 0 so a typo can never grant unlimited usage.
func (p *SubscriptionPlan) LimitFor(rt ResourceType) int {
	for _, l := range p.Limits {
		if l.ResourceType == rt {
			if l.LimitValue < UnlimitedUsage {
				return 0
			}
			return l.LimitValue
		}
	}
	return 0
}

type SubscriptionPlanLimit struct {
	BaseModel
	PlanID       uint         `gorm:"uniqueIndex:idx_plan_resource;type:bigint unsigned" json:"planId"`
	ResourceType ResourceType `gorm:"uniqueIndex:idx_plan_resource;size:30" json:"resourceType"`
	LimitValue   int          `gorm:"default:0" json:"limitValue"` // -1 = unlimited
}

func (SubscriptionPlanLimit) TableName() string {
	return "subscription_plan_limits"
}

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

// swagger:model UserSubscription
type UserSubscription struct {
	BaseModel
	UserID      uint               `gorm:"index;type:bigint unsigned" json:"userId"`
	PlanID      uint               `gorm:"index;type:bigint unsigned" json:"planId"`
	Plan        *SubscriptionPlan  `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	Status      SubscriptionStatus `gorm:"size:20;default:'active';index" json:"status"`
	StartedAt   time.Time          `json:"startedAt"`
	ExpiresAt   *time.Time         `json:"expiresAt,omitempty"`
	CancelledAt *time.Time         `json:"cancelledAt,omitempty"`
}

func (UserSubscription) TableName() string {
	return "user_subscriptions"
}

// UsageTracking is a per (user, resource type) running counter. It caches a
// value recomputable from the authoritative resource tables and is
// reconciled through the explicit sync operation.
type UsageTracking struct {
	BaseModel
	UserID       uint         `gorm:"uniqueIndex:idx_user_resource;type:bigint unsigned" json:"userId"`
	ResourceType ResourceType `gorm:"uniqueIndex:idx_user_resource;size:30" json:"resourceType"`
	CurrentCount int          `gorm:"default:0" json:"currentCount"`
}

func (UsageTracking) TableName() string {
	return "usage_tracking"
}
