package models

import (
	"github.com/shopspring/decimal"
)

type Property struct {
	BaseModel
	OwnerID     string          `gorm:"not null;index"`
	Title       string          `gorm:"type:varchar(255);not null"`
	Description string          `gorm:"type:text"`
	Price       decimal.Decimal `gorm:"type:decimal(14,2)"`
	City        string          `gorm:"type:varchar(100)"`
	IsPublished bool            `gorm:"default:false"`

	// Relations
	Owner User `gorm:"foreignKey:OwnerID"`
}
