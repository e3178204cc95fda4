package models

import "time"

type User struct {
	BaseModel
	Email        string     `gorm:"uniqueIndex;not null"`
	PasswordHash string     `gorm:"not null"`
	FirstName    string     `gorm:"type:varchar(100)"`
	LastName     string     `gorm:"type:varchar(100)"`
	Role         UserRole   `gorm:"type:varchar(20);not null"`
	Status       UserStatus `gorm:"type:varchar(20);default:'active'"`

	// Relations
	AgentProfile *AgentProfile `gorm:"foreignKey:UserID"`
}

// DisplayName matches the admin listing convention: full name when set,
// email otherwise.
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName + " " + u.LastName
	}
	return u.Email
}

// AgentProfile carries the subscription window for a listing agent.
// SubscriptionActive and SubscriptionExpires are written only by the
// callback reconciler (extension) and the expiry worker (deactivation).
type AgentProfile struct {
	BaseModel
	UserID              string `gorm:"not null;uniqueIndex"`
	Agency              string `gorm:"type:varchar(255)"`
	Phone               string `gorm:"type:varchar(20)"`
	SubscriptionActive  bool   `gorm:"default:false"`
	SubscriptionExpires *time.Time

	// Relations
	User User `gorm:"foreignKey:UserID"`
}
