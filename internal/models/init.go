package models

import (
	"strings"

	"github.com/reelcraft/reelcraft/internal/logger"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// demoProduct 演示商品
type demoProduct struct {
	title    string
	price    string
	imageURL string
	videoURL string
}

var demoProducts = []demoProduct{
	{"Hand-thrown stoneware mug", "24.00", "https://cdn.reelcraft.dev/img/mug.jpg", "https://cdn.reelcraft.dev/reels/mug.mp4"},
	{"Walnut serving board", "58.50", "https://cdn.reelcraft.dev/img/board.jpg", "https://cdn.reelcraft.dev/reels/board.mp4"},
	{"Indigo-dyed linen scarf", "36.00", "https://cdn.reelcraft.dev/img/scarf.jpg", "https://cdn.reelcraft.dev/reels/scarf.mp4"},
	{"Beeswax taper candles (pair)", "14.75", "https://cdn.reelcraft.dev/img/candles.jpg", "https://cdn.reelcraft.dev/reels/candles.mp4"},
}

// InitDemoCatalog 库中没有商品时创建演示手作人及其商品
func InitDemoCatalog(email, password string) error {
	var count int64
	if err := DB.Model(&Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		email = "maker@reelcraft.dev"
	}
	if password == "" {
		password = "maker12345"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := User{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  "Studio Loam",
		Status:       "active",
	}
	if err := DB.Create(&user).Error; err != nil {
		return err
	}
	artisan := Artisan{UserID: user.ID, Bio: "Small-batch pieces filmed at the bench."}
	if err := DB.Create(&artisan).Error; err != nil {
		return err
	}
	for i, item := range demoProducts {
		product := Product{
			ArtisanID:   artisan.ID,
			Title:       item.title,
			PriceAmount: NewMoneyFromDecimal(decimal.RequireFromString(item.price)),
			ImageURL:    item.imageURL,
			VideoURL:    item.videoURL,
			IsActive:    true,
			SortOrder:   len(demoProducts) - i,
		}
		if err := DB.Create(&product).Error; err != nil {
			return err
		}
	}

	if password == "maker12345" {
		logger.Warnw("demo_artisan_created_with_default_password", "email", email)
	} else {
		logger.Infow("demo_artisan_created", "email", email, "password_hidden", true)
	}
	logger.Infow("demo_catalog_created", "products", len(demoProducts))
	return nil
}
