package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"edulearn_backend/internal/model"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const planCacheTTL = 10 * time.Minute

// SubscriptionRepository persists plans and subscriptions. Plan rows change
// rarely and are read on every quota check, so they sit behind a Redis
// read-through cache; a nil client degrades to straight DB reads.
type SubscriptionRepository struct {
	DB    *gorm.DB
	Redis *redis.Client
	ctx   context.Context
}

func NewSubscriptionRepository(db *gorm.DB, rdb *redis.Client) *SubscriptionRepository {
	return &SubscriptionRepository{
		DB:    db,
		Redis: rdb,
		ctx:   context.Background(),
	}
}

func planCacheKey(id uint) string {
	return fmt.Sprintf("subscription:plan:%d", id)
}

func (r *SubscriptionRepository) FindPlan(id uint) (*model.SubscriptionPlan, error) {
	if r.Redis != nil {
		if raw, err := r.Redis.Get(r.ctx, planCacheKey(id)).Bytes(); err == nil {
			var plan model.SubscriptionPlan
			if json.Unmarshal(raw, &plan) == nil {
				return &plan, nil
			}
		}
	}

	var plan model.SubscriptionPlan
	err := r.DB.Preload("Limits").First(&plan, id).Error
	if err != nil {
		return nil, err
	}

	if r.Redis != nil {
		if raw, err := json.Marshal(&plan); err == nil {
			r.Redis.Set(r.ctx, planCacheKey(plan.ID), raw, planCacheTTL)
		}
	}
	return &plan, nil
}

func (r *SubscriptionRepository) ListPlans() ([]model.SubscriptionPlan, error) {
	var plans []model.SubscriptionPlan
	err := r.DB.Preload("Limits").
		Where("is_active = ?", true).
		Order("priority ASC").
		Find(&plans).Error
	return plans, err
}

func (r *SubscriptionRepository) ActiveSubscription(userID uint) (*model.UserSubscription, error) {
	var sub model.UserSubscription
	err := r.DB.Preload("Plan.Limits").Preload("Plan").
		Where("user_id = ? AND status = ?", userID, model.SubscriptionActive).
		Order("started_at DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ReplaceActive cancels the old subscription and creates its replacement
// atomically, so the user never holds zero or two active subscriptions.
func (r *SubscriptionRepository) ReplaceActive(userID uint, old *model.UserSubscription, next *model.UserSubscription) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if old != nil {
			now := time.Now()
			err := tx.Model(&model.UserSubscription{}).
				Where("id = ? AND status = ?", old.ID, model.SubscriptionActive).
				Updates(map[string]interface{}{
					"status":       model.SubscriptionCancelled,
					"cancelled_at": now,
				}).Error
			if err != nil {
				return err
			}
			old.Status = model.SubscriptionCancelled
			old.CancelledAt = &now
		}
		return tx.Create(next).Error
	})
}

func (r *SubscriptionRepository) CancelSubscription(sub *model.UserSubscription) error {
	now := time.Now()
	err := r.DB.Model(&model.UserSubscription{}).
		Where("id = ?", sub.ID).
		Updates(map[string]interface{}{
			"status":       model.SubscriptionCancelled,
			"cancelled_at": now,
		}).Error
	if err != nil {
		return err
	}
	sub.Status = model.SubscriptionCancelled
	sub.CancelledAt = &now
	return nil
}

// FreePlan resolves the fallback tier users land on after cancellation:
// the cheapest active zero-price plan.
func (r *SubscriptionRepository) FreePlan() (*model.SubscriptionPlan, error) {
	var plan model.SubscriptionPlan
	err := r.DB.Preload("Limits").
		Where("price = 0 AND is_active = ?", true).
		Order("priority ASC").
		First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// InvalidatePlanCache drops a cached plan after an admin edit.
func (r *SubscriptionRepository) InvalidatePlanCache(id uint) {
	if r.Redis != nil {
		r.Redis.Del(r.ctx, planCacheKey(id))
	}
}
