package service

import (
	"testing"
	"time"

	"edulearn_backend/internal/model"
	"edulearn_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakePlanStore struct {
	plans    map[uint]*model.SubscriptionPlan
	active   *model.UserSubscription
	freeID   uint
	replaces int
	cancels  int
}

func (f *fakePlanStore) FindPlan(id uint) (*model.SubscriptionPlan, error) {
	p, ok := f.plans[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (f *fakePlanStore) ListPlans() ([]model.SubscriptionPlan, error) {
	var out []model.SubscriptionPlan
	for _, p := range f.plans {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakePlanStore) ActiveSubscription(userID uint) (*model.UserSubscription, error) {
	if f.active == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.active, nil
}

func (f *fakePlanStore) ReplaceActive(userID uint, old *model.UserSubscription, next *model.UserSubscription) error {
	if old != nil {
		old.Status = model.SubscriptionCancelled
	}
	f.active = next
	f.replaces++
	return nil
}

func (f *fakePlanStore) CancelSubscription(sub *model.UserSubscription) error {
	sub.Status = model.SubscriptionCancelled
	f.active = nil
	f.cancels++
	return nil
}

func (f *fakePlanStore) FreePlan() (*model.SubscriptionPlan, error) {
	if f.freeID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return f.plans[f.freeID], nil
}

type fakeUsageStore struct {
	counts map[model.ResourceType]int
}

func newFakeUsageStore() *fakeUsageStore {
	return &fakeUsageStore{counts: make(map[model.ResourceType]int)}
}

func (f *fakeUsageStore) Current(userID uint, rt model.ResourceType) (int, error) {
	return f.counts[rt], nil
}

func (f *fakeUsageStore) Increment(userID uint, rt model.ResourceType, amount int) error {
	f.counts[rt] += amount
	return nil
}

func (f *fakeUsageStore) Decrement(userID uint, rt model.ResourceType, amount int) error {
	f.counts[rt] -= amount
	if f.counts[rt] < 0 {
		f.counts[rt] = 0
	}
	return nil
}

func (f *fakeUsageStore) Set(userID uint, rt model.ResourceType, count int) error {
	f.counts[rt] = count
	return nil
}

func (f *fakeUsageStore) AllForUser(userID uint) ([]model.UsageTracking, error) {
	var out []model.UsageTracking
	for rt, n := range f.counts {
		out = append(out, model.UsageTracking{UserID: userID, ResourceType: rt, CurrentCount: n})
	}
	return out, nil
}

type fakeCounter struct {
	counts map[model.ResourceType]int
}

func (f *fakeCounter) CountOwned(userID uint, rt model.ResourceType) (int, error) {
	return f.counts[rt], nil
}

func plan(id uint, name string, priority int, limits map[model.ResourceType]int) *model.SubscriptionPlan {
	p := &model.SubscriptionPlan{
		BaseModel: model.BaseModel{ID: id},
		Name:      name,
		Priority:  priority,
		IsActive:  true,
	}
	for rt, v := range limits {
		p.Limits = append(p.Limits, model.SubscriptionPlanLimit{
			PlanID: id, ResourceType: rt, LimitValue: v,
		})
	}
	return p
}

const (
	freePlanID  = uint(1)
	basicPlanID = uint(2)
	proPlanID   = uint(3)
)

// subFixture wires the three-tier plan ladder: free (1 course), basic
// (3 courses, 5 sessions) and pro (unlimited courses, 20 sessions).
type subFixture struct {
	svc     *SubscriptionService
	plans   *fakePlanStore
	usage   *fakeUsageStore
	counter *fakeCounter
}

func newSubFixture(activePlan uint) *subFixture {
	plans := &fakePlanStore{
		plans: map[uint]*model.SubscriptionPlan{
			freePlanID:  plan(freePlanID, "free", 0, map[model.ResourceType]int{model.ResourceCourses: 1}),
			basicPlanID: plan(basicPlanID, "basic", 10, map[model.ResourceType]int{model.ResourceCourses: 3, model.ResourceSessions: 5}),
			proPlanID:   plan(proPlanID, "pro", 20, map[model.ResourceType]int{model.ResourceCourses: model.UnlimitedUsage, model.ResourceSessions: 20}),
		},
		freeID: freePlanID,
	}
	if activePlan != 0 {
		plans.active = &model.UserSubscription{
			BaseModel: model.BaseModel{ID: 50},
			UserID:    fixtureUserID,
			PlanID:    activePlan,
			Plan:      plans.plans[activePlan],
			Status:    model.SubscriptionActive,
			StartedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		}
	}

	usage := newFakeUsageStore()
	counter := &fakeCounter{counts: make(map[model.ResourceType]int)}
	svc := NewSubscriptionService(plans, usage, counter)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	return &subFixture{
		svc:     svc,
		plans:   plans,
		usage:   usage,
		counter: counter,
	}
}

func TestCheckLimit(t *testing.T) {
	t.Run("no subscription denies with no-active-plan", func(t *testing.T) {
		f := newSubFixture(0)

		_, err := f.svc.CheckLimit(fixtureUserID, model.ResourceCourses)
		assert.ErrorIs(t, err, util.ErrNoActivePlan)
	})

	t.Run("expired subscription denies with no-active-plan", func(t *testing.T) {
		f := newSubFixture(basicPlanID)
		past := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
		f.plans.active.ExpiresAt = &past

		_, err := f.svc.CheckLimit(fixtureUserID, model.ResourceCourses)
		assert.ErrorIs(t, err, util.ErrNoActivePlan)
	})

	t.Run("usage below the limit allows", func(t *testing.T) {
		f := newSubFixture(basicPlanID)
		f.usage.counts[model.ResourceCourses] = 2

		ok, err := f.svc.CheckLimit(fixtureUserID, model.ResourceCourses)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("usage at the limit blocks the next creation", func(t *testing.T) {
		f := newSubFixture(basicPlanID)
		f.usage.counts[model.ResourceCourses] = 3

		ok, err := f.svc.CheckLimit(fixtureUserID, model.ResourceCourses)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unlimited always allows", func(t *testing.T) {
		f := newSubFixture(proPlanID)
		f.usage.counts[model.ResourceCourses] = 100000

		ok, err := f.svc.CheckLimit(fixtureUserID, model.ResourceCourses)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("a resource the plan never mentions is forbidden", func(t *testing.T) {
		f := newSubFixture(basicPlanID)

		ok, err := f.svc.CheckLimit(fixtureUserID, model.ResourceGroups)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("a malformed negative limit denies instead of reading as unlimited", func(t *testing.T) {
		f := newSubFixture(basicPlanID)
		broken := plan(basicPlanID, "basic", 10, map[model.ResourceType]int{model.ResourceCourses: -2})
		f.plans.plans[basicPlanID] = broken
		f.plans.active.Plan = broken

		ok, err := f.svc.CheckLimit(fixtureUserID, model.ResourceCourses)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestRequireCapacity(t *testing.T) {
	t.Run("full quota carries the violation detail", func(t *testing.T) {
		f := newSubFixture(basicPlanID)
		f.usage.counts[model.ResourceCourses] = 3

		err := f.svc.RequireCapacity(fixtureUserID, model.ResourceCourses)
		violation, ok := util.AsLimitViolation(err)
		require.True(t, ok)
		require.Len(t, violation.Violations, 1)
		assert.Equal(t, model.ResourceCourses, violation.Violations[0].ResourceType)
		assert.Equal(t, 3, violation.Violations[0].CurrentUsage)
		assert.Equal(t, 3, violation.Violations[0].Limit)
	})

	t.Run("capacity available", func(t *testing.T) {
		f := newSubFixture(basicPlanID)
		assert.NoError(t, f.svc.RequireCapacity(fixtureUserID, model.ResourceCourses))
	})

	t.Run("unlimited never violates", func(t *testing.T) {
		f := newSubFixture(proPlanID)
		f.usage.counts[model.ResourceCourses] = 100000
		assert.NoError(t, f.svc.RequireCapacity(fixtureUserID, model.ResourceCourses))
	})
}

func TestUsagePercentage(t *testing.T) {
	t.Run("fractions round to two decimals", func(t *testing.T) {
		f := newSubFixture(basicPlanID)
		f.usage.counts[model.ResourceCourses] = 1

		pct, err := f.svc.UsagePercentage(fixtureUserID, model.ResourceCourses)
		require.NoError(t, err)
		assert.Equal(t, 33.33, pct)
	})

	t.Run("no quota at all reads as fully used", func(t *testing.T) {
		f := newSubFixture(basicPlanID)

		pct, err := f.svc.UsagePercentage(fixtureUserID, model.ResourceGroups)
		require.NoError(t, err)
		assert.Equal(t, 100.0, pct)
	})

	t.Run("unlimited reads as untouched", func(t *testing.T) {
		f := newSubFixture(proPlanID)
		f.usage.counts[model.ResourceCourses] = 500

		pct, err := f.svc.UsagePercentage(fixtureUserID, model.ResourceCourses)
		require.NoError(t, err)
		assert.Equal(t, 0.0, pct)
	})

	t.Run("overshoot caps at one hundred", func(t *testing.T) {
		f := newSubFixture(basicPlanID)
		f.usage.counts[model.ResourceCourses] = 7

		pct, err := f.svc.UsagePercentage(fixtureUserID, model.ResourceCourses)
		require.NoError(t, err)
		assert.Equal(t, 100.0, pct)
	})
}

func TestSyncUsage(t *testing.T) {
	t.Run("overwrites the tracked counter", func(t *testing.T) {
		f := newSubFixture(basicPlanID)
		f.usage.counts[model.ResourceCourses] = 9
		f.counter.counts[model.ResourceCourses] = 2

		count, err := f.svc.SyncUsage(fixtureUserID, model.ResourceCourses)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
		assert.Equal(t, 2, f.usage.counts[model.ResourceCourses])
	})

	t.Run("rejects unknown resource types", func(t *testing.T) {
		f := newSubFixture(basicPlanID)

		_, err := f.svc.SyncUsage(fixtureUserID, "widgets")
		assert.Error(t, err)
	})
}

func TestUpgrade(t *testing.T) {
	t.Run("moves to a higher tier", func(t *testing.T) {
		f := newSubFixture(basicPlanID)
		old := f.plans.active

		sub, err := f.svc.Upgrade(fixtureUserID, proPlanID)
		require.NoError(t, err)
		assert.Equal(t, proPlanID, sub.PlanID)
		assert.Equal(t, model.SubscriptionActive, sub.Status)
		assert.Equal(t, model.SubscriptionCancelled, old.Status)
		assert.Equal(t, 1, f.plans.replaces)
	})

	t.Run("first subscription needs no current plan", func(t *testing.T) {
		f := newSubFixture(0)

		sub, err := f.svc.Upgrade(fixtureUserID, basicPlanID)
		require.NoError(t, err)
		assert.Equal(t, basicPlanID, sub.PlanID)
	})

	t.Run("same or lower tier is the wrong direction", func(t *testing.T) {
		f := newSubFixture(basicPlanID)

		_, err := f.svc.Upgrade(fixtureUserID, basicPlanID)
		assert.ErrorIs(t, err, util.ErrInvalidDirection)

		_, err = f.svc.Upgrade(fixtureUserID, freePlanID)
		assert.ErrorIs(t, err, util.ErrInvalidDirection)
	})

	t.Run("never checks usage", func(t *testing.T) {
		f := newSubFixture(basicPlanID)
		f.counter.counts[model.ResourceSessions] = 100 // above even pro's limit

		_, err := f.svc.Upgrade(fixtureUserID, proPlanID)
		assert.NoError(t, err)
	})
}

func TestDowngrade(t *testing.T) {
	t.Run("fits within the lower tier", func(t *testing.T) {
		f := newSubFixture(proPlanID)
		f.counter.counts[model.ResourceCourses] = 2

		sub, err := f.svc.Downgrade(fixtureUserID, basicPlanID)
		require.NoError(t, err)
		assert.Equal(t, basicPlanID, sub.PlanID)
	})

	t.Run("enumerates every violated limit", func(t *testing.T) {
		f := newSubFixture(proPlanID)
		f.counter.counts[model.ResourceCourses] = 10
		f.counter.counts[model.ResourceSessions] = 8

		_, err := f.svc.Downgrade(fixtureUserID, basicPlanID)
		violation, ok := util.AsLimitViolation(err)
		require.True(t, ok)
		require.Len(t, violation.Violations, 2)

		byResource := make(map[model.ResourceType]util.LimitViolation)
		for _, v := range violation.Violations {
			byResource[v.ResourceType] = v
		}
		assert.Equal(t, 10, byResource[model.ResourceCourses].CurrentUsage)
		assert.Equal(t, 3, byResource[model.ResourceCourses].Limit)
		assert.Equal(t, 8, byResource[model.ResourceSessions].CurrentUsage)
		assert.Equal(t, 5, byResource[model.ResourceSessions].Limit)

		// The transition must not have happened.
		assert.Equal(t, proPlanID, f.plans.active.PlanID)
		assert.Equal(t, 0, f.plans.replaces)
	})

	t.Run("a resource the target plan never mentions counts as zero quota", func(t *testing.T) {
		f := newSubFixture(proPlanID)
		f.counter.counts[model.ResourceCourses] = 2 // fits basic's 3
		f.counter.counts[model.ResourceGroups] = 2  // basic has no groups row

		_, err := f.svc.Downgrade(fixtureUserID, basicPlanID)
		violation, ok := util.AsLimitViolation(err)
		require.True(t, ok)
		require.Len(t, violation.Violations, 1)
		assert.Equal(t, model.ResourceGroups, violation.Violations[0].ResourceType)
		assert.Equal(t, 2, violation.Violations[0].CurrentUsage)
		assert.Equal(t, 0, violation.Violations[0].Limit)
		assert.Equal(t, 0, f.plans.replaces)
	})

	t.Run("same or higher tier is the wrong direction", func(t *testing.T) {
		f := newSubFixture(basicPlanID)

		_, err := f.svc.Downgrade(fixtureUserID, basicPlanID)
		assert.ErrorIs(t, err, util.ErrInvalidDirection)

		_, err = f.svc.Downgrade(fixtureUserID, proPlanID)
		assert.ErrorIs(t, err, util.ErrInvalidDirection)
	})

	t.Run("no active plan", func(t *testing.T) {
		f := newSubFixture(0)

		_, err := f.svc.Downgrade(fixtureUserID, freePlanID)
		assert.ErrorIs(t, err, util.ErrNoActivePlan)
	})
}

func TestCancel(t *testing.T) {
	t.Run("falls back to the free tier when usage fits", func(t *testing.T) {
		f := newSubFixture(proPlanID)
		f.counter.counts[model.ResourceCourses] = 1

		sub, err := f.svc.Cancel(fixtureUserID)
		require.NoError(t, err)
		require.NotNil(t, sub)
		assert.Equal(t, freePlanID, sub.PlanID)
	})

	t.Run("rejected atomically when usage exceeds the free tier", func(t *testing.T) {
		f := newSubFixture(proPlanID)
		f.counter.counts[model.ResourceCourses] = 4

		_, err := f.svc.Cancel(fixtureUserID)
		violation, ok := util.AsLimitViolation(err)
		require.True(t, ok)
		assert.Equal(t, 4, violation.Violations[0].CurrentUsage)
		assert.Equal(t, 1, violation.Violations[0].Limit)

		// Still on the original plan; nothing was cancelled.
		assert.Equal(t, proPlanID, f.plans.active.PlanID)
		assert.Equal(t, model.SubscriptionActive, f.plans.active.Status)
		assert.Equal(t, 0, f.plans.replaces)
		assert.Equal(t, 0, f.plans.cancels)
	})

	t.Run("plain cancellation without a free tier", func(t *testing.T) {
		f := newSubFixture(basicPlanID)
		f.plans.freeID = 0
		old := f.plans.active

		sub, err := f.svc.Cancel(fixtureUserID)
		require.NoError(t, err)
		assert.Nil(t, sub)
		assert.Equal(t, model.SubscriptionCancelled, old.Status)
		assert.Equal(t, 1, f.plans.cancels)
	})

	t.Run("no active plan", func(t *testing.T) {
		f := newSubFixture(0)

		_, err := f.svc.Cancel(fixtureUserID)
		assert.ErrorIs(t, err, util.ErrNoActivePlan)
	})
}
