package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// StkPushRequest is the body of the initiation endpoint.
type StkPushRequest struct {
	Phone  string          `json:"phone" validate:"required,min=9,max=20"`
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

// PaymentStatusResponse is the polling view of a single payment.
type PaymentStatusResponse struct {
	ID            string          `json:"id"`
	Status        string          `json:"status"`
	TransactionID string          `json:"transaction_id"`
	Amount        string          `json:"amount"`
	Method        string          `json:"method"`
	PropertyID    *string         `json:"property_id"`
	RawPayload    json.RawMessage `json:"raw_payload"`
}

type PaymentUserRef struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type PaymentPropertyRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// PaymentListItem is the role-scoped listing view.
type PaymentListItem struct {
	ID            string              `json:"id"`
	User          PaymentUserRef      `json:"user"`
	Property      *PaymentPropertyRef `json:"property"`
	Method        string              `json:"method"`
	Amount        string              `json:"amount"`
	Status        string              `json:"status"`
	TransactionID string              `json:"transaction_id"`
	CreatedAt     string              `json:"created_at"`
}

// AdminPaymentItem is the denormalized admin-panel row. Field names match
// the admin frontend contract.
type AdminPaymentItem struct {
	ID            string  `json:"id"`
	TransactionID string  `json:"transactionId"`
	Amount        float64 `json:"amount"`
	Status        string  `json:"status"`
	Type          string  `json:"type"`
	User          string  `json:"user"`
	Date          string  `json:"date"`
	Property      *string `json:"property"`
}

// SubscriptionPlan is an entry of the static plan catalog.
type SubscriptionPlan struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Description  string          `json:"description"`
	Features     []string        `json:"features"`
	DurationDays int             `json:"duration"`
}

// StkCallbackPayload mirrors the Daraja result structure. Parsing is
// tolerant: absent keys stay zero-valued, an absent ResultCode stays nil
// and is never treated as success.
type StkCallbackPayload struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        *int   `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
		} `json:"stkCallback"`
	} `json:"Body"`
}
