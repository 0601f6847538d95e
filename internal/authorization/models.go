package authorization

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// AccountMember grants a user a role inside another user's account. The
// account owner needs no row; ownership is implied by the account id.
type AccountMember struct {
	AccountID snowflake.ID `gorm:"primaryKey" json:"account_id"`
	UserID    snowflake.ID `gorm:"primaryKey" json:"user_id"`
	Role      string       `gorm:"type:text;not null" json:"role"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (AccountMember) TableName() string { return "account_members" }
