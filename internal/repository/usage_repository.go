package repository

import (
	"edulearn_backend/internal/model"

	"gorm.io/gorm"
)

// UsageRepository maintains the per (user, resource type) counters. The
// mutations are single atomic statements, not read-modify-write, so
// concurrent creations cannot lose increments.
type UsageRepository struct {
	DB *gorm.DB
}

func NewUsageRepository(db *gorm.DB) *UsageRepository {
	return &UsageRepository{DB: db}
}

func (r *UsageRepository) Current(userID uint, rt model.ResourceType) (int, error) {
	var count int
	err := r.DB.Raw(
		"SELECT COALESCE(current_count, 0) FROM usage_tracking WHERE user_id = ? AND resource_type = ? AND deleted_at IS NULL",
		userID, rt,
	).Scan(&count).Error
	return count, err
}

func (r *UsageRepository) Increment(userID uint, rt model.ResourceType, amount int) error {
	return r.DB.Exec(
		"INSERT INTO usage_tracking (user_id, resource_type, current_count, created_at, updated_at) "+
			"VALUES (?, ?, ?, NOW(3), NOW(3)) "+
			"ON DUPLICATE KEY UPDATE current_count = current_count + VALUES(current_count), updated_at = NOW(3)",
		userID, rt, amount,
	).Error
}

// Decrement floors at zero: deleting a resource created before tracking
// began must not drive the counter negative.
func (r *UsageRepository) Decrement(userID uint, rt model.ResourceType, amount int) error {
	return r.DB.Exec(
		"UPDATE usage_tracking SET current_count = GREATEST(current_count - ?, 0), updated_at = NOW(3) "+
			"WHERE user_id = ? AND resource_type = ? AND deleted_at IS NULL",
		amount, userID, rt,
	).Error
}

// Set overwrites the counter with an authoritative count during sync.
func (r *UsageRepository) Set(userID uint, rt model.ResourceType, count int) error {
	return r.DB.Exec(
		"INSERT INTO usage_tracking (user_id, resource_type, current_count, created_at, updated_at) "+
			"VALUES (?, ?, ?, NOW(3), NOW(3)) "+
			"ON DUPLICATE KEY UPDATE current_count = VALUES(current_count), updated_at = NOW(3)",
		userID, rt, count,
	).Error
}

func (r *UsageRepository) AllForUser(userID uint) ([]model.UsageTracking, error) {
	var rows []model.UsageTracking
	err := r.DB.
		Where("user_id = ?", userID).
		Order("resource_type ASC").
		Find(&rows).Error
	return rows, err
}
