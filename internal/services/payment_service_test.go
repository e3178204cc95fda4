package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"smartdalali_backend/internal/dto"
	"smartdalali_backend/internal/gateway"
	"smartdalali_backend/internal/models"
	"smartdalali_backend/pkg/apperrors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func httpCodeOf(t *testing.T, err error) int {
	t.Helper()
	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr), "expected *apperrors.AppError, got %v", err)
	return appErr.HTTPCode
}

func TestInitiateSTKPush_PersistsPendingPayment(t *testing.T) {
	payments := newFakePaymentRepo()
	props := newFakePropertyRepo()
	property := props.add(&models.Property{OwnerID: "owner-1", Title: "Beach Villa"})

	raw := json.RawMessage(`{"CheckoutRequestID":"ws_CO_9","ResponseCode":"0","CustomerMessage":"Success"}`)
	gw := &fakeGateway{resp: &gateway.STKPushResponse{
		CheckoutRequestID: "ws_CO_9",
		ResponseCode:      "0",
		Raw:               raw,
	}}

	svc := NewPaymentService(payments, props, gw, "https://api.example.com/api/v1/payments/mpesa/callback")

	resp, err := svc.InitiateSTKPush(context.Background(), "buyer-1", property.ID, &dto.StkPushRequest{
		Phone:  "255700000001",
		Amount: decimal.NewFromInt(50000),
	})
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(resp))

	require.NotNil(t, gw.lastParams)
	assert.Equal(t, "255700000001", gw.lastParams.Phone)
	assert.Equal(t, "https://api.example.com/api/v1/payments/mpesa/callback", gw.lastParams.CallbackURL)

	stored, err := payments.FindByTransactionID("ws_CO_9")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, stored.Status)
	assert.Equal(t, models.PaymentMethodMpesa, stored.Method)
	assert.Equal(t, "buyer-1", stored.UserID)
	require.NotNil(t, stored.PropertyID)
	assert.Equal(t, property.ID, *stored.PropertyID)
	assert.JSONEq(t, string(raw), string(stored.RequestPayload))
}

func TestInitiateSTKPush_PropertyNotFound(t *testing.T) {
	svc := NewPaymentService(newFakePaymentRepo(), newFakePropertyRepo(), &fakeGateway{}, "")

	_, err := svc.InitiateSTKPush(context.Background(), "buyer-1", "missing", &dto.StkPushRequest{
		Phone:  "255700000001",
		Amount: decimal.NewFromInt(1000),
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httpCodeOf(t, err))
}

func TestInitiateSTKPush_GatewayUnavailable(t *testing.T) {
	props := newFakePropertyRepo()
	property := props.add(&models.Property{OwnerID: "owner-1"})

	svc := NewPaymentService(newFakePaymentRepo(), props, nil, "")

	_, err := svc.InitiateSTKPush(context.Background(), "buyer-1", property.ID, &dto.StkPushRequest{
		Phone:  "255700000001",
		Amount: decimal.NewFromInt(1000),
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotImplemented, httpCodeOf(t, err))
}

func TestInitiateSTKPush_GatewayCallFailed(t *testing.T) {
	payments := newFakePaymentRepo()
	props := newFakePropertyRepo()
	property := props.add(&models.Property{OwnerID: "owner-1"})
	gw := &fakeGateway{err: errors.New("connection refused")}

	svc := NewPaymentService(payments, props, gw, "")

	_, err := svc.InitiateSTKPush(context.Background(), "buyer-1", property.ID, &dto.StkPushRequest{
		Phone:  "255700000001",
		Amount: decimal.NewFromInt(1000),
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, httpCodeOf(t, err))

	// A rejected push must leave no trace.
	all, _ := payments.FindAll()
	assert.Empty(t, all)
}

func TestInitiateSTKPush_NonPositiveAmount(t *testing.T) {
	props := newFakePropertyRepo()
	property := props.add(&models.Property{OwnerID: "owner-1"})

	svc := NewPaymentService(newFakePaymentRepo(), props, &fakeGateway{}, "")

	_, err := svc.InitiateSTKPush(context.Background(), "buyer-1", property.ID, &dto.StkPushRequest{
		Phone:  "255700000001",
		Amount: decimal.Zero,
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httpCodeOf(t, err))
}

// scopeFixture builds three payments: one by the buyer, one on the agent's
// property, one unrelated to either.
func scopeFixture(t *testing.T) (PaymentService, *fakePaymentRepo, [3]*models.Payment) {
	t.Helper()

	payments := newFakePaymentRepo()
	props := newFakePropertyRepo()

	agentProperty := props.add(&models.Property{OwnerID: "agent-1", Title: "Agent Listing"})
	otherProperty := props.add(&models.Property{OwnerID: "someone-else", Title: "Other Listing"})

	p1 := payments.add(&models.Payment{
		UserID: "buyer-1", Method: models.PaymentMethodMpesa,
		Amount: decimal.NewFromInt(1000), TransactionID: "tx-1",
		Status: models.PaymentStatusPending,
		User:   models.User{Email: "buyer1@example.com"},
	})
	p2 := payments.add(&models.Payment{
		UserID: "buyer-2", PropertyID: &agentProperty.ID, Property: agentProperty,
		Method: models.PaymentMethodMpesa, Amount: decimal.NewFromInt(2000),
		TransactionID: "tx-2", Status: models.PaymentStatusCompleted,
		User: models.User{Email: "buyer2@example.com", FirstName: "Neema", LastName: "Said"},
	})
	p3 := payments.add(&models.Payment{
		UserID: "buyer-3", PropertyID: &otherProperty.ID, Property: otherProperty,
		Method: models.PaymentMethodMpesa, Amount: decimal.NewFromInt(3000),
		TransactionID: "tx-3", Status: models.PaymentStatusFailed,
	})

	svc := NewPaymentService(payments, props, &fakeGateway{}, "")
	return svc, payments, [3]*models.Payment{p1, p2, p3}
}

func TestGetStatus_RoleScope(t *testing.T) {
	svc, _, ps := scopeFixture(t)

	// Buyer sees own payment.
	resp, err := svc.GetStatus("buyer-1", models.UserRoleBuyer, ps[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "tx-1", resp.TransactionID)

	// Buyer cannot see someone else's payment; reads as not found.
	_, err = svc.GetStatus("buyer-1", models.UserRoleBuyer, ps[2].ID)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httpCodeOf(t, err))

	// Agent sees payments against owned properties.
	resp, err = svc.GetStatus("agent-1", models.UserRoleAgent, ps[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "tx-2", resp.TransactionID)

	// Admin sees everything.
	resp, err = svc.GetStatus("admin-1", models.UserRoleAdmin, ps[2].ID)
	require.NoError(t, err)
	assert.Equal(t, "tx-3", resp.TransactionID)
}

func TestListPayments_RoleScope(t *testing.T) {
	svc, _, _ := scopeFixture(t)

	adminItems, err := svc.ListPayments("admin-1", models.UserRoleAdmin)
	require.NoError(t, err)
	assert.Len(t, adminItems, 3)

	agentItems, err := svc.ListPayments("agent-1", models.UserRoleAgent)
	require.NoError(t, err)
	require.Len(t, agentItems, 1)

	// The agent's one visible payment is the charge against their listing.
	item := agentItems[0]
	assert.Equal(t, "tx-2", item.TransactionID)
	assert.Equal(t, "2000.00", item.Amount)
	assert.Equal(t, "completed", item.Status)
	assert.Equal(t, "mpesa", item.Method)
	assert.Equal(t, "buyer-2", item.User.ID)
	assert.Equal(t, "buyer2@example.com", item.User.Email)
	assert.Equal(t, "Neema Said", item.User.Name)
	require.NotNil(t, item.Property)
	assert.Equal(t, "Agent Listing", item.Property.Title)

	buyerItems, err := svc.ListPayments("buyer-1", models.UserRoleBuyer)
	require.NoError(t, err)
	require.Len(t, buyerItems, 1)
	assert.Equal(t, "tx-1", buyerItems[0].TransactionID)
	assert.Equal(t, "1000.00", buyerItems[0].Amount)
	assert.Nil(t, buyerItems[0].Property)
}

func TestAdminListPayments_Denormalization(t *testing.T) {
	payments := newFakePaymentRepo()
	props := newFakePropertyRepo()
	property := props.add(&models.Property{OwnerID: "owner-1", Title: "City Center Office"})

	created := time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)
	payments.add(&models.Payment{
		BaseModel: models.BaseModel{CreatedAt: created},
		UserID:    "buyer-1", PropertyID: &property.ID, Property: property,
		Method: models.PaymentMethodMpesa, Amount: decimal.NewFromFloat(50000),
		TransactionID: "tx-adm", Status: models.PaymentStatusCompleted,
		User:          models.User{Email: "jane@example.com", FirstName: "Jane", LastName: "Mushi"},
	})

	svc := NewPaymentService(payments, props, &fakeGateway{}, "")

	items, err := svc.AdminListPayments()
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "tx-adm", item.TransactionID)
	assert.Equal(t, float64(50000), item.Amount)
	assert.Equal(t, "completed", item.Status)
	assert.Equal(t, "mpesa", item.Type)
	assert.Equal(t, "Jane Mushi", item.User)
	assert.Equal(t, "2026-01-15 09:30:00", item.Date)
	require.NotNil(t, item.Property)
	assert.Equal(t, "City Center Office", *item.Property)
}

func TestRetry_FailedGoesBackToPending(t *testing.T) {
	payments := newFakePaymentRepo()
	p := payments.add(&models.Payment{
		UserID: "buyer-1", Method: models.PaymentMethodMpesa,
		Amount: decimal.NewFromInt(1000), TransactionID: "tx-r",
		Status: models.PaymentStatusFailed,
	})

	svc := NewPaymentService(payments, newFakePropertyRepo(), &fakeGateway{}, "")

	require.NoError(t, svc.Retry(p.ID))
	assert.Equal(t, models.PaymentStatusPending, p.Status)
}

func TestRetry_RejectsNonFailed(t *testing.T) {
	payments := newFakePaymentRepo()
	p := payments.add(&models.Payment{
		UserID: "buyer-1", Method: models.PaymentMethodMpesa,
		Amount: decimal.NewFromInt(1000), TransactionID: "tx-r2",
		Status: models.PaymentStatusCompleted,
	})

	svc := NewPaymentService(payments, newFakePropertyRepo(), &fakeGateway{}, "")

	err := svc.Retry(p.ID)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httpCodeOf(t, err))
	assert.Equal(t, models.PaymentStatusCompleted, p.Status)
}

func TestRetry_UnknownPayment(t *testing.T) {
	svc := NewPaymentService(newFakePaymentRepo(), newFakePropertyRepo(), &fakeGateway{}, "")

	err := svc.Retry("missing")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httpCodeOf(t, err))
}

func TestReviewAndFlag(t *testing.T) {
	payments := newFakePaymentRepo()
	p1 := payments.add(&models.Payment{UserID: "u", Method: models.PaymentMethodMpesa, Amount: decimal.NewFromInt(1), TransactionID: "tx-a", Status: models.PaymentStatusCompleted})
	p2 := payments.add(&models.Payment{UserID: "u", Method: models.PaymentMethodMpesa, Amount: decimal.NewFromInt(1), TransactionID: "tx-b", Status: models.PaymentStatusPending})

	svc := NewPaymentService(payments, newFakePropertyRepo(), &fakeGateway{}, "")

	require.NoError(t, svc.Review(p1.ID))
	assert.Equal(t, models.PaymentStatusReviewed, p1.Status)

	require.NoError(t, svc.Flag(p2.ID))
	assert.Equal(t, models.PaymentStatusFlagged, p2.Status)
}

func TestPlans_StaticCatalog(t *testing.T) {
	svc := NewPaymentService(newFakePaymentRepo(), newFakePropertyRepo(), &fakeGateway{}, "")

	plans := svc.Plans()
	require.Len(t, plans, 2)

	assert.Equal(t, "monthly", plans[0].ID)
	assert.True(t, decimal.NewFromInt(50000).Equal(plans[0].Price))
	assert.Equal(t, 30, plans[0].DurationDays)

	assert.Equal(t, "annual", plans[1].ID)
	assert.True(t, decimal.NewFromInt(500000).Equal(plans[1].Price))
	assert.Equal(t, 365, plans[1].DurationDays)
}
