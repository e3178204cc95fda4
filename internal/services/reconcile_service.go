package services

import (
	"context"
	"encoding/json"
	"time"

	"smartdalali_backend/internal/dto"
	"smartdalali_backend/internal/email"
	"smartdalali_backend/internal/logger"
	"smartdalali_backend/internal/models"
	"smartdalali_backend/internal/repositories"
	"smartdalali_backend/pkg/apperrors"

	"gorm.io/datatypes"
)

// subscriptionExtension is the window granted per successful payment.
const subscriptionExtension = 30 * 24 * time.Hour

// ReconcileService consumes asynchronous gateway callbacks. It never
// surfaces an error to the gateway: a malformed or unmatched payload is
// acknowledged and dropped so external retry loops cannot spiral.
type ReconcileService interface {
	ProcessCallback(ctx context.Context, raw []byte)
}

type reconcileService struct {
	payments   repositories.PaymentRepository
	properties repositories.PropertyRepository
	agents     repositories.AgentProfileRepository
	users      repositories.UserRepository
	mailer     email.Sender
	now        func() time.Time
}

func NewReconcileService(
	payments repositories.PaymentRepository,
	properties repositories.PropertyRepository,
	agents repositories.AgentProfileRepository,
	users repositories.UserRepository,
	mailer email.Sender,
) ReconcileService {
	return &reconcileService{
		payments:   payments,
		properties: properties,
		agents:     agents,
		users:      users,
		mailer:     mailer,
		now:        time.Now,
	}
}

func (s *reconcileService) ProcessCallback(ctx context.Context, raw []byte) {
	var payload dto.StkCallbackPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		logger.CtxWarn(ctx, "malformed gateway callback dropped", "error", err.Error())
		return
	}

	cb := payload.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		logger.CtxWarn(ctx, "gateway callback without CheckoutRequestID dropped")
		return
	}

	payment, err := s.payments.FindByTransactionID(cb.CheckoutRequestID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrPaymentNotFound) {
			// Unknown transaction - acknowledge and move on.
			logger.CtxInfo(ctx, "callback for unknown transaction ignored", "transaction_id", cb.CheckoutRequestID)
			return
		}
		logger.CtxWithError(ctx, "callback payment lookup failed", err, "transaction_id", cb.CheckoutRequestID)
		return
	}

	status := models.PaymentStatusFailed
	if cb.ResultCode != nil && *cb.ResultCode == 0 {
		status = models.PaymentStatusCompleted
	}

	applied, err := s.payments.Reconcile(payment.ID, status, datatypes.JSON(raw))
	if err != nil {
		logger.CtxWithError(ctx, "callback reconcile failed", err, "payment_id", payment.ID)
		return
	}
	if !applied {
		// Already out of pending: a duplicate or racing callback. The
		// subscription window must not be extended a second time.
		logger.CtxInfo(ctx, "duplicate callback ignored",
			"payment_id", payment.ID,
			"transaction_id", cb.CheckoutRequestID,
		)
		return
	}

	logger.CtxInfo(ctx, "payment reconciled",
		"payment_id", payment.ID,
		"transaction_id", cb.CheckoutRequestID,
		"status", string(status),
	)

	if status != models.PaymentStatusCompleted {
		return
	}

	if payment.PropertyID != nil {
		s.extendOwnerSubscription(ctx, payment)
	}
	s.notifyPayer(ctx, payment)
}

// extendOwnerSubscription applies the stacking policy: a still-running
// window gains 30 days on top of its current expiry, a lapsed or missing
// window restarts at now + 30 days.
func (s *reconcileService) extendOwnerSubscription(ctx context.Context, payment *models.Payment) {
	property, err := s.properties.FindByID(*payment.PropertyID)
	if err != nil {
		logger.CtxWithError(ctx, "property lookup failed during reconciliation", err, "property_id", *payment.PropertyID)
		return
	}

	profile, err := s.agents.FindByUserID(property.OwnerID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrAgentProfileNotFound) {
			// Owner is not an agent; nothing to extend.
			return
		}
		logger.CtxWithError(ctx, "agent profile lookup failed during reconciliation", err, "owner_id", property.OwnerID)
		return
	}

	now := s.now()
	var expires time.Time
	if profile.SubscriptionExpires != nil && profile.SubscriptionExpires.After(now) {
		expires = profile.SubscriptionExpires.Add(subscriptionExtension)
	} else {
		expires = now.Add(subscriptionExtension)
	}

	if err := s.agents.UpdateSubscription(profile.ID, true, expires); err != nil {
		logger.CtxWithError(ctx, "subscription extension failed", err, "profile_id", profile.ID)
		return
	}

	logger.CtxInfo(ctx, "agent subscription extended",
		"profile_id", profile.ID,
		"expires", expires.Format(time.RFC3339),
	)

	s.notifyOwner(ctx, property.OwnerID, expires)
}

func (s *reconcileService) notifyOwner(ctx context.Context, ownerID string, expires time.Time) {
	if s.mailer == nil {
		return
	}

	owner, err := s.users.FindByID(ownerID)
	if err != nil {
		logger.CtxWarn(ctx, "owner lookup failed, extension email skipped", "error", err.Error(), "owner_id", ownerID)
		return
	}

	if err := s.mailer.SendSubscriptionExtended(owner.Email, owner.DisplayName(), expires); err != nil {
		logger.CtxWarn(ctx, "subscription extension email failed", "error", err.Error(), "owner_id", ownerID)
	}
}

func (s *reconcileService) notifyPayer(ctx context.Context, payment *models.Payment) {
	if s.mailer == nil || payment.User.Email == "" {
		return
	}

	propertyTitle := ""
	if payment.Property != nil {
		propertyTitle = payment.Property.Title
	}

	err := s.mailer.SendPaymentCompleted(
		payment.User.Email,
		payment.User.DisplayName(),
		payment.Amount.StringFixed(2),
		payment.TransactionID,
		propertyTitle,
	)
	if err != nil {
		logger.CtxWarn(ctx, "payment confirmation email failed", "error", err.Error(), "payment_id", payment.ID)
	}
}
