package models

import (
	"time"

	"github.com/reelcraft/reelcraft/internal/constants"

	"gorm.io/gorm"
)

// User 买家与手作人共用的账号
type User struct {
	ID           uint   `gorm:"primarykey" json:"id"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	DisplayName  string `gorm:"default:''" json:"display_name"` // 手作人对外展示的署名也取自这里
	Role         string `gorm:"size:16;not null;default:'buyer';index" json:"role"`
	Status       string `gorm:"default:'active'" json:"status"`
	// TokenVersion 登出时递增，旧 Token 全部失效
	TokenVersion       uint64         `gorm:"not null;default:0" json:"-"`
	TokenInvalidBefore *time.Time     `gorm:"index" json:"-"`
	LastLoginAt        *time.Time     `json:"last_login_at"`
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// IsArtisan 是否已开通手作人身份
func (u User) IsArtisan() bool {
	return u.Role == constants.UserRoleArtisan
}
