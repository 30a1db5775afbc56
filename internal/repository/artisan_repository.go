package repository

import (
	"errors"

	"github.com/reelcraft/reelcraft/internal/constants"
	"github.com/reelcraft/reelcraft/internal/models"

	"gorm.io/gorm"
)

// ArtisanRepository 手作人数据访问接口
type ArtisanRepository interface {
	GetByUserID(userID uint) (*models.Artisan, error)
	Create(artisan *models.Artisan) error
}

// GormArtisanRepository GORM 实现
type GormArtisanRepository struct {
	db *gorm.DB
}

// NewArtisanRepository 创建手作人仓库
func NewArtisanRepository(db *gorm.DB) *GormArtisanRepository {
	return &GormArtisanRepository{db: db}
}

// GetByUserID 按用户获取手作人身份
func (r *GormArtisanRepository) GetByUserID(userID uint) (*models.Artisan, error) {
	var artisan models.Artisan
	if err := r.db.Preload("User").Where("user_id = ?", userID).First(&artisan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &artisan, nil
}

// Create 开通手作人身份，同一事务内把账号角色升级为 artisan
func (r *GormArtisanRepository) Create(artisan *models.Artisan) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("User").Create(artisan).Error; err != nil {
			return err
		}
		result := tx.Model(&models.User{}).Where("id = ?", artisan.UserID).Update("role", constants.UserRoleArtisan)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
