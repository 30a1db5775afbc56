package models

import (
	"time"

	"gorm.io/gorm"
)

// Artisan 手作人（一个用户至多一个手作人身份）
type Artisan struct {
	ID        uint           `gorm:"primarykey" json:"id"`                // 主键
	UserID    uint           `gorm:"uniqueIndex;not null" json:"user_id"` // 用户ID
	Bio       string         `gorm:"type:text" json:"bio"`                // 简介
	CreatedAt time.Time      `gorm:"index" json:"created_at"`             // 创建时间
	UpdatedAt time.Time      `json:"updated_at"`                          // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                      // 软删除时间

	User User `gorm:"foreignKey:UserID" json:"user"` // 关联用户
}

// TableName 指定表名
func (Artisan) TableName() string {
	return "artisans"
}

// DisplayName 展示名：昵称为空时退回邮箱
func (a Artisan) DisplayName() string {
	if a.User.DisplayName != "" {
		return a.User.DisplayName
	}
	return a.User.Email
}
