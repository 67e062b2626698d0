package service

import (
	"errors"
	"time"

	"edulearn_backend/internal/model"
	"edulearn_backend/internal/util"
	"edulearn_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PlanStore persists subscription plans and user subscriptions.
// ReplaceActive must cancel the old subscription and create the new one in
// a single transaction.
type PlanStore interface {
	FindPlan(id uint) (*model.SubscriptionPlan, error)
	ListPlans() ([]model.SubscriptionPlan, error)
	ActiveSubscription(userID uint) (*model.UserSubscription, error)
	ReplaceActive(userID uint, old *model.UserSubscription, next *model.UserSubscription) error
	CancelSubscription(sub *model.UserSubscription) error
	FreePlan() (*model.SubscriptionPlan, error)
}

// UsageStore maintains the tracked counters. Increment and Decrement must
// be atomic at the database, not read-modify-write in the application.
type UsageStore interface {
	Current(userID uint, rt model.ResourceType) (int, error)
	Increment(userID uint, rt model.ResourceType, amount int) error
	Decrement(userID uint, rt model.ResourceType, amount int) error
	Set(userID uint, rt model.ResourceType, count int) error
	AllForUser(userID uint) ([]model.UsageTracking, error)
}

// ResourceCounter serves authoritative instructor-owned counts from the
// resource tables, for reconciling the tracked counters.
type ResourceCounter interface {
	CountOwned(userID uint, rt model.ResourceType) (int, error)
}

// subscriptionPeriod is the fixed billing period applied to new
// subscriptions.
const subscriptionPeriod = 30 * 24 * time.Hour

type SubscriptionService struct {
	Plans     PlanStore
	Usage     UsageStore
	Resources ResourceCounter

	now func() time.Time
}

func NewSubscriptionService(plans PlanStore, usage UsageStore, resources ResourceCounter) *SubscriptionService {
	return &SubscriptionService{Plans: plans, Usage: usage, Resources: resources, now: time.Now}
}

// ActivePlan resolves the user's current plan with its limits.
func (s *SubscriptionService) ActivePlan(userID uint) (*model.SubscriptionPlan, error) {
	sub, err := s.Plans.ActiveSubscription(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNoActivePlan
		}
		return nil, err
	}
	if sub.ExpiresAt != nil && s.now().After(*sub.ExpiresAt) {
		return nil, util.ErrNoActivePlan
	}
	if sub.Plan != nil {
		return sub.Plan, nil
	}
	return s.Plans.FindPlan(sub.PlanID)
}

// CheckLimit reports whether the user may create one more unit of the
// resource type. Reaching the limit blocks the next creation: with limit L
// and usage L the answer is already false.
func (s *SubscriptionService) CheckLimit(userID uint, rt model.ResourceType) (bool, error) {
	plan, err := s.ActivePlan(userID)
	if err != nil {
		return false, err
	}

	limit := plan.LimitFor(rt)
	if limit == model.UnlimitedUsage {
		return true, nil
	}
	if limit <= 0 {
		return false, nil
	}

	usage, err := s.Usage.Current(userID, rt)
	if err != nil {
		return false, err
	}
	return usage < limit, nil
}

// RequireCapacity is CheckLimit with a detailed error: when the quota is
// exhausted it returns a LimitViolationError carrying the current usage
// and the limit, for the creation endpoints to surface.
func (s *SubscriptionService) RequireCapacity(userID uint, rt model.ResourceType) error {
	plan, err := s.ActivePlan(userID)
	if err != nil {
		return err
	}

	limit := plan.LimitFor(rt)
	if limit == model.UnlimitedUsage {
		return nil
	}

	usage := 0
	if limit > 0 {
		if usage, err = s.Usage.Current(userID, rt); err != nil {
			return err
		}
		if usage < limit {
			return nil
		}
	}
	return &util.LimitViolationError{Violations: []util.LimitViolation{{
		ResourceType: rt,
		CurrentUsage: usage,
		Limit:        limit,
	}}}
}

// CapacityLimit resolves the active plan's limit for the resource type,
// for callers that enforce it transactionally at the store.
func (s *SubscriptionService) CapacityLimit(userID uint, rt model.ResourceType) (int, error) {
	plan, err := s.ActivePlan(userID)
	if err != nil {
		return 0, err
	}
	return plan.LimitFor(rt), nil
}

func (s *SubscriptionService) IncrementUsage(userID uint, rt model.ResourceType) error {
	return s.Usage.Increment(userID, rt, 1)
}

func (s *SubscriptionService) DecrementUsage(userID uint, rt model.ResourceType) error {
	return s.Usage.Decrement(userID, rt, 1)
}

// SyncUsage overwrites the tracked counter with the authoritative count
// from the resource tables. This is the remediation path when the cache
// and reality diverge.
func (s *SubscriptionService) SyncUsage(userID uint, rt model.ResourceType) (int, error) {
	if !rt.Known() {
		return 0, errors.New("unknown resource type: " + string(rt))
	}
	count, err := s.Resources.CountOwned(userID, rt)
	if err != nil {
		return 0, err
	}
	if err := s.Usage.Set(userID, rt, count); err != nil {
		return 0, err
	}
	logger.Log.Info("usage counter synced",
		zap.Uint("userId", userID),
		zap.String("resource", string(rt)),
		zap.Int("count", count))
	return count, nil
}

// UsagePercentage reports how much of the quota is consumed: 100 with no
// quota at all, 0 when unlimited, capped at 100 otherwise.
func (s *SubscriptionService) UsagePercentage(userID uint, rt model.ResourceType) (float64, error) {
	plan, err := s.ActivePlan(userID)
	if err != nil {
		return 0, err
	}

	limit := plan.LimitFor(rt)
	if limit == model.UnlimitedUsage {
		return 0, nil
	}
	if limit == 0 {
		return 100, nil
	}

	usage, err := s.Usage.Current(userID, rt)
	if err != nil {
		return 0, err
	}
	pct := util.Round2(float64(usage) / float64(limit) * 100)
	if pct > 100 {
		pct = 100
	}
	return pct, nil
}

// Upgrade moves the user to a strictly higher-priority plan, cancelling the
// current subscription and creating the replacement in one transaction.
func (s *SubscriptionService) Upgrade(userID, planID uint) (*model.UserSubscription, error) {
	next, err := s.Plans.FindPlan(planID)
	if err != nil {
		return nil, err
	}

	current, err := s.Plans.ActiveSubscription(userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if current != nil {
		currentPlan, err := s.planOf(current)
		if err != nil {
			return nil, err
		}
		if next.Priority <= currentPlan.Priority {
			return nil, util.ErrInvalidDirection
		}
	}

	return s.replace(userID, current, next)
}

// Downgrade moves the user to a strictly lower-priority plan, but only when
// current live usage fits every limit of the target plan. A violation
// rejects the whole transition and leaves the subscription untouched.
func (s *SubscriptionService) Downgrade(userID, planID uint) (*model.UserSubscription, error) {
	next, err := s.Plans.FindPlan(planID)
	if err != nil {
		return nil, err
	}

	current, err := s.Plans.ActiveSubscription(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNoActivePlan
		}
		return nil, err
	}

	currentPlan, err := s.planOf(current)
	if err != nil {
		return nil, err
	}
	if next.Priority >= currentPlan.Priority {
		return nil, util.ErrInvalidDirection
	}

	if err := s.checkFits(userID, next); err != nil {
		return nil, err
	}

	return s.replace(userID, current, next)
}

// Cancel ends the active subscription. When a free plan exists the user is
// moved onto it through the same validated downgrade path, atomically: if
// current usage does not fit the free tier the cancellation is rejected
// and the existing subscription survives.
func (s *SubscriptionService) Cancel(userID uint) (*model.UserSubscription, error) {
	current, err := s.Plans.ActiveSubscription(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNoActivePlan
		}
		return nil, err
	}

	free, err := s.Plans.FreePlan()
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		// No free tier configured: plain cancellation.
		if err := s.Plans.CancelSubscription(current); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err := s.checkFits(userID, free); err != nil {
		return nil, err
	}

	return s.replace(userID, current, free)
}

// checkFits compares live usage against the target plan's limit for every
// known resource type and collects all violations. Resource types the plan
// never mentions carry a limit of 0, same as LimitFor resolves them, so a
// plan silent on a resource cannot be downgraded into while holding any.
func (s *SubscriptionService) checkFits(userID uint, plan *model.SubscriptionPlan) error {
	var violations []util.LimitViolation
	for _, rt := range model.KnownResourceTypes {
		limit := plan.LimitFor(rt)
		if limit == model.UnlimitedUsage {
			continue
		}
		usage, err := s.Resources.CountOwned(userID, rt)
		if err != nil {
			return err
		}
		if usage > limit {
			violations = append(violations, util.LimitViolation{
				ResourceType: rt,
				CurrentUsage: usage,
				Limit:        limit,
			})
		}
	}
	if len(violations) > 0 {
		return &util.LimitViolationError{Violations: violations}
	}
	return nil
}

func (s *SubscriptionService) replace(userID uint, old *model.UserSubscription, plan *model.SubscriptionPlan) (*model.UserSubscription, error) {
	now := s.now()
	expires := now.Add(subscriptionPeriod)
	next := &model.UserSubscription{
		UserID:    userID,
		PlanID:    plan.ID,
		Status:    model.SubscriptionActive,
		StartedAt: now,
		ExpiresAt: &expires,
	}

	if err := s.Plans.ReplaceActive(userID, old, next); err != nil {
		return nil, err
	}

	logger.Log.Info("subscription plan changed",
		zap.Uint("userId", userID),
		zap.String("plan", plan.Name),
		zap.Int("priority", plan.Priority))

	next.Plan = plan
	return next, nil
}

func (s *SubscriptionService) planOf(sub *model.UserSubscription) (*model.SubscriptionPlan, error) {
	if sub.Plan != nil {
		return sub.Plan, nil
	}
	return s.Plans.FindPlan(sub.PlanID)
}
