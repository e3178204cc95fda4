package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Payment is one charge attempt. Created only by the initiator
// (status=pending), moved out of pending only by the callback reconciler
// or the admin retry action. Never deleted by the payment flow; deleting
// the referenced property cascades to its payments.
type Payment struct {
	BaseModel
	UserID     string    `gorm:"not null;index"`
	PropertyID *string   `gorm:"type:uuid;index"`
	Method     PaymentMethod   `gorm:"type:varchar(20);not null"`
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	// TransactionID is the gateway's CheckoutRequestID, the sole correlation
	// key for callbacks. Unique so a duplicate callback can never match two
	// rows.
	TransactionID string        `gorm:"size:128;uniqueIndex"`
	Status        PaymentStatus `gorm:"type:varchar(32);not null;default:'pending'"`

	// RequestPayload holds the gateway's initiation response verbatim and is
	// immutable after create. CallbackPayload holds the asynchronous result
	// payload; kept separate so reconciliation never destroys the audit
	// trail of the original request.
	RequestPayload  datatypes.JSON `gorm:"type:jsonb"`
	CallbackPayload datatypes.JSON `gorm:"type:jsonb"`

	// Relations
	User     User      `gorm:"foreignKey:UserID"`
	Property *Property `gorm:"foreignKey:PropertyID;constraint:OnDelete:CASCADE"`
}

// RawPayload is the payload exposed on the status endpoint: the callback
// result once reconciled, the initiation response before that.
func (p *Payment) RawPayload() datatypes.JSON {
	if len(p.CallbackPayload) > 0 {
		return p.CallbackPayload
	}
	return p.RequestPayload
}
