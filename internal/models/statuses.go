package models

type UserStatus string
type UserRole string
type PaymentMethod string
type PaymentStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"

	UserRoleAdmin UserRole = "admin"
	UserRoleAgent UserRole = "agent"
	UserRoleBuyer UserRole = "buyer"

	PaymentMethodMpesa PaymentMethod = "mpesa"
	PaymentMethodCard  PaymentMethod = "card"

	// Single unified enumeration. pending is the only automated entry state,
	// the callback reconciler is the only automated exit from it. reviewed
	// and flagged are set by admin review actions; confirmed and cancelled
	// are reachable only through direct administrative edits.
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusReviewed  PaymentStatus = "reviewed"
	PaymentStatusFlagged   PaymentStatus = "flagged"
)

func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentStatusPending, PaymentStatusConfirmed, PaymentStatusCompleted,
		PaymentStatusCancelled, PaymentStatusFailed, PaymentStatusReviewed,
		PaymentStatusFlagged:
		return true
	}
	return false
}
