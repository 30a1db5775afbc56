package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/reelcraft/reelcraft/internal/config"
	"github.com/reelcraft/reelcraft/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.Tables()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, title, price string, active bool) *models.Product {
	t.Helper()
	var artisan models.Artisan
	if err := db.Preload("User").First(&artisan).Error; err != nil {
		user := models.User{Email: "maker@example.com", PasswordHash: "x", DisplayName: "Studio Loam", Status: "active"}
		if err := db.Create(&user).Error; err != nil {
			t.Fatalf("create artisan user failed: %v", err)
		}
		artisan = models.Artisan{UserID: user.ID, User: user}
		if err := db.Omit("User").Create(&artisan).Error; err != nil {
			t.Fatalf("create artisan failed: %v", err)
		}
	}
	product := &models.Product{
		ArtisanID:   artisan.ID,
		Title:       title,
		PriceAmount: models.NewMoneyFromDecimal(decimal.RequireFromString(price)),
		IsActive:    true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	if !active {
		if err := db.Model(product).Update("is_active", false).Error; err != nil {
			t.Fatalf("deactivate product failed: %v", err)
		}
		product.IsActive = false
	}
	return product
}

func testConfig() *config.Config {
	return &config.Config{
		UserJWT: config.JWTConfig{SecretKey: "test-secret", ExpireHours: 2},
		Security: config.SecurityConfig{PasswordPolicy: config.PasswordPolicyConfig{
			MinLength:     8,
			RequireLower:  true,
			RequireNumber: true,
		}},
		Cart: config.CartConfig{ViewCacheTTLSeconds: 60, MaxQuantity: 10},
	}
}
