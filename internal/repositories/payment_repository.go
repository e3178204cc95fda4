package repositories

import (
	"errors"
	"time"

	"smartdalali_backend/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrPaymentNotFound = errors.New("payment not found")

type PaymentRepository interface {
	Create(payment *models.Payment) error
	FindByID(id string) (*models.Payment, error)
	FindByTransactionID(transactionID string) (*models.Payment, error)

	// Role-scoped listings, newest first.
	FindAll() ([]models.Payment, error)
	FindByUser(userID string) ([]models.Payment, error)
	// FindByUserOrPropertyOwner is the agent scope: the agent's own payments
	// plus payments made against properties the agent owns.
	FindByUserOrPropertyOwner(userID string) ([]models.Payment, error)

	// Reconcile applies the terminal callback transition guarded on
	// status=pending. Returns false when the guard did not match, which is
	// how a duplicate callback becomes a no-op.
	Reconcile(id string, status models.PaymentStatus, callbackPayload datatypes.JSON) (bool, error)

	// TransitionStatus moves a payment from one status to another with a
	// compare-and-swap on the current status.
	TransitionStatus(id string, from, to models.PaymentStatus) (bool, error)

	// SetStatus is the unguarded administrative write (review/flag).
	SetStatus(id string, status models.PaymentStatus) error

	// FailStalePending marks payments stuck in pending since before the
	// cutoff as failed. Used by the background worker.
	FailStalePending(cutoff time.Time) (int64, error)
}

type PaymentRepositoryImpl struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &PaymentRepositoryImpl{db: db}
}

func (r *PaymentRepositoryImpl) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

func (r *PaymentRepositoryImpl) FindByID(id string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.Preload("User").Preload("Property").First(&payment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepositoryImpl) FindByTransactionID(transactionID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.Preload("User").Preload("Property").
		First(&payment, "transaction_id = ?", transactionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepositoryImpl) FindAll() ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Preload("User").Preload("Property").
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}

func (r *PaymentRepositoryImpl) FindByUser(userID string) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Preload("User").Preload("Property").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}

func (r *PaymentRepositoryImpl) FindByUserOrPropertyOwner(userID string) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Preload("User").Preload("Property").
		Joins("LEFT JOIN properties ON properties.id = payments.property_id").
		Where("payments.user_id = ? OR properties.owner_id = ?", userID, userID).
		Order("payments.created_at DESC").
		Find(&payments).Error
	return payments, err
}

func (r *PaymentRepositoryImpl) Reconcile(id string, status models.PaymentStatus, callbackPayload datatypes.JSON) (bool, error) {
	result := r.db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, models.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":           status,
			"callback_payload": callbackPayload,
		})
	return result.RowsAffected > 0, result.Error
}

func (r *PaymentRepositoryImpl) TransitionStatus(id string, from, to models.PaymentStatus) (bool, error) {
	result := r.db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return result.RowsAffected > 0, result.Error
}

func (r *PaymentRepositoryImpl) SetStatus(id string, status models.PaymentStatus) error {
	return r.db.Model(&models.Payment{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *PaymentRepositoryImpl) FailStalePending(cutoff time.Time) (int64, error) {
	result := r.db.Model(&models.Payment{}).
		Where("status = ? AND created_at < ?", models.PaymentStatusPending, cutoff).
		Update("status", models.PaymentStatusFailed)
	return result.RowsAffected, result.Error
}
