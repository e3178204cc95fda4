package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"smartdalali_backend/internal/dto"
	"smartdalali_backend/internal/gateway"
	"smartdalali_backend/internal/logger"
	"smartdalali_backend/internal/models"
	"smartdalali_backend/internal/repositories"
	"smartdalali_backend/pkg/apperrors"
)

type PaymentService interface {
	// InitiateSTKPush validates the property and delegates to the gateway.
	// A Payment row is persisted only after the gateway accepted the push;
	// the returned body is the gateway's acknowledgement, unmodified.
	InitiateSTKPush(ctx context.Context, userID, propertyID string, req *dto.StkPushRequest) (json.RawMessage, error)

	GetStatus(userID string, role models.UserRole, paymentID string) (*dto.PaymentStatusResponse, error)
	ListPayments(userID string, role models.UserRole) ([]dto.PaymentListItem, error)
	AdminListPayments() ([]dto.AdminPaymentItem, error)

	// Retry resets a failed payment to pending so it becomes eligible for a
	// fresh gateway attempt. Re-dispatch happens out-of-band.
	Retry(paymentID string) error
	Review(paymentID string) error
	Flag(paymentID string) error

	Plans() []dto.SubscriptionPlan
}

type paymentService struct {
	payments    repositories.PaymentRepository
	properties  repositories.PropertyRepository
	gateway     gateway.StkPusher
	callbackURL string
}

func NewPaymentService(
	payments repositories.PaymentRepository,
	properties repositories.PropertyRepository,
	gw gateway.StkPusher,
	callbackURL string,
) PaymentService {
	return &paymentService{
		payments:    payments,
		properties:  properties,
		gateway:     gw,
		callbackURL: callbackURL,
	}
}

func (s *paymentService) InitiateSTKPush(ctx context.Context, userID, propertyID string, req *dto.StkPushRequest) (json.RawMessage, error) {
	if !req.Amount.IsPositive() {
		return nil, apperrors.NewBadRequestError("Amount must be greater than zero")
	}

	property, err := s.properties.FindByID(propertyID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrPropertyNotFound) {
			return nil, apperrors.ErrPropertyNotFound(err)
		}
		return nil, err
	}

	if s.gateway == nil {
		return nil, apperrors.ErrGatewayUnavailable(gateway.ErrMissingCredentials)
	}

	resp, err := s.gateway.STKPush(ctx, &gateway.STKPushParams{
		Phone:            req.Phone,
		Amount:           req.Amount,
		AccountReference: fmt.Sprintf("Property-%s", property.ID),
		TransactionDesc:  fmt.Sprintf("Pay for property %s", property.ID),
		CallbackURL:      s.callbackURL,
	})
	if err != nil {
		return nil, apperrors.ErrGatewayRequestFailed(err)
	}

	payment := &models.Payment{
		UserID:         userID,
		PropertyID:     &property.ID,
		Method:         models.PaymentMethodMpesa,
		Amount:         req.Amount,
		TransactionID:  resp.CheckoutRequestID,
		Status:         models.PaymentStatusPending,
		RequestPayload: []byte(resp.Raw),
	}
	if err := s.payments.Create(payment); err != nil {
		return nil, err
	}

	logger.CtxInfo(ctx, "stk push initiated",
		"payment_id", payment.ID,
		"transaction_id", payment.TransactionID,
		"property_id", property.ID,
	)

	return json.RawMessage(resp.Raw), nil
}

func (s *paymentService) GetStatus(userID string, role models.UserRole, paymentID string) (*dto.PaymentStatusResponse, error) {
	payment, err := s.findVisible(userID, role, paymentID)
	if err != nil {
		return nil, err
	}

	return &dto.PaymentStatusResponse{
		ID:            payment.ID,
		Status:        string(payment.Status),
		TransactionID: payment.TransactionID,
		Amount:        payment.Amount.StringFixed(2),
		Method:        string(payment.Method),
		PropertyID:    payment.PropertyID,
		RawPayload:    json.RawMessage(payment.RawPayload()),
	}, nil
}

// findVisible fetches a payment and applies the role scope: admins see
// everything, everyone else sees their own payments and payments against
// properties they own. A payment outside the scope reads as not found so
// existence is not leaked.
func (s *paymentService) findVisible(userID string, role models.UserRole, paymentID string) (*models.Payment, error) {
	payment, err := s.payments.FindByID(paymentID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrPaymentNotFound) {
			return nil, apperrors.ErrPaymentNotFound(err)
		}
		return nil, err
	}

	if role == models.UserRoleAdmin || payment.UserID == userID {
		return payment, nil
	}
	if payment.Property != nil && payment.Property.OwnerID == userID {
		return payment, nil
	}

	return nil, apperrors.ErrPaymentNotFound(repositories.ErrPaymentNotFound)
}

func (s *paymentService) ListPayments(userID string, role models.UserRole) ([]dto.PaymentListItem, error) {
	var (
		payments []models.Payment
		err      error
	)

	switch role {
	case models.UserRoleAdmin:
		payments, err = s.payments.FindAll()
	case models.UserRoleAgent:
		payments, err = s.payments.FindByUserOrPropertyOwner(userID)
	default:
		payments, err = s.payments.FindByUser(userID)
	}
	if err != nil {
		return nil, err
	}

	items := make([]dto.PaymentListItem, 0, len(payments))
	for i := range payments {
		items = append(items, toListItem(&payments[i]))
	}
	return items, nil
}

func toListItem(p *models.Payment) dto.PaymentListItem {
	item := dto.PaymentListItem{
		ID: p.ID,
		User: dto.PaymentUserRef{
			ID:    p.UserID,
			Email: p.User.Email,
			Name:  p.User.DisplayName(),
		},
		Method:        string(p.Method),
		Amount:        p.Amount.StringFixed(2),
		Status:        string(p.Status),
		TransactionID: p.TransactionID,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
	if p.Property != nil {
		item.Property = &dto.PaymentPropertyRef{
			ID:    p.Property.ID,
			Title: p.Property.Title,
		}
	}
	return item
}

func (s *paymentService) AdminListPayments() ([]dto.AdminPaymentItem, error) {
	payments, err := s.payments.FindAll()
	if err != nil {
		return nil, err
	}

	items := make([]dto.AdminPaymentItem, 0, len(payments))
	for i := range payments {
		p := &payments[i]
		amount, _ := p.Amount.Float64()
		item := dto.AdminPaymentItem{
			ID:            p.ID,
			TransactionID: p.TransactionID,
			Amount:        amount,
			Status:        string(p.Status),
			Type:          string(p.Method),
			User:          p.User.DisplayName(),
			Date:          p.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if p.Property != nil {
			title := p.Property.Title
			item.Property = &title
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *paymentService) Retry(paymentID string) error {
	payment, err := s.payments.FindByID(paymentID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrPaymentNotFound) {
			return apperrors.ErrPaymentNotFound(err)
		}
		return err
	}

	if payment.Status != models.PaymentStatusFailed {
		return apperrors.ErrInvalidStatus("payment", "Only failed payments can be retried")
	}

	applied, err := s.payments.TransitionStatus(paymentID, models.PaymentStatusFailed, models.PaymentStatusPending)
	if err != nil {
		return err
	}
	if !applied {
		// Lost the race with a concurrent status change.
		return apperrors.ErrInvalidStatus("payment", "Only failed payments can be retried")
	}

	return nil
}

func (s *paymentService) Review(paymentID string) error {
	return s.adminSetStatus(paymentID, models.PaymentStatusReviewed)
}

func (s *paymentService) Flag(paymentID string) error {
	return s.adminSetStatus(paymentID, models.PaymentStatusFlagged)
}

func (s *paymentService) adminSetStatus(paymentID string, status models.PaymentStatus) error {
	if _, err := s.payments.FindByID(paymentID); err != nil {
		if apperrors.Is(err, repositories.ErrPaymentNotFound) {
			return apperrors.ErrPaymentNotFound(err)
		}
		return err
	}
	return s.payments.SetStatus(paymentID, status)
}

// Plans returns the static subscription catalog. Not persisted; exposed
// alongside payments for discovery.
func (s *paymentService) Plans() []dto.SubscriptionPlan {
	return PlanCatalog()
}
