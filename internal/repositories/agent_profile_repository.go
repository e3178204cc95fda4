package repositories

import (
	"errors"
	"time"

	"smartdalali_backend/internal/models"

	"gorm.io/gorm"
)

var ErrAgentProfileNotFound = errors.New("agent profile not found")

type AgentProfileRepository interface {
	FindByUserID(userID string) (*models.AgentProfile, error)
	// UpdateSubscription writes the subscription window fields; the callback
	// reconciler is the only caller in the payment flow.
	UpdateSubscription(profileID string, active bool, expires time.Time) error
	// DeactivateExpired flips subscription_active off for profiles whose
	// window has lapsed. Used by the background worker.
	DeactivateExpired(now time.Time) (int64, error)
}

type AgentProfileRepositoryImpl struct {
	db *gorm.DB
}

func NewAgentProfileRepository(db *gorm.DB) AgentProfileRepository {
	return &AgentProfileRepositoryImpl{db: db}
}

func (r *AgentProfileRepositoryImpl) FindByUserID(userID string) (*models.AgentProfile, error) {
	var profile models.AgentProfile
	if err := r.db.First(&profile, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAgentProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (r *AgentProfileRepositoryImpl) UpdateSubscription(profileID string, active bool, expires time.Time) error {
	return r.db.Model(&models.AgentProfile{}).
		Where("id = ?", profileID).
		Updates(map[string]interface{}{
			"subscription_active":  active,
			"subscription_expires": expires,
		}).Error
}

func (r *AgentProfileRepositoryImpl) DeactivateExpired(now time.Time) (int64, error) {
	result := r.db.Model(&models.AgentProfile{}).
		Where("subscription_active = ? AND subscription_expires IS NOT NULL AND subscription_expires < ?", true, now).
		Update("subscription_active", false)
	return result.RowsAffected, result.Error
}
