package public

import (
	"time"

	"github.com/reelcraft/reelcraft/internal/http/response"
	"github.com/reelcraft/reelcraft/internal/models"
	"github.com/reelcraft/reelcraft/internal/service"

	"github.com/gin-gonic/gin"
)

// UserRegisterRequest 注册请求
type UserRegisterRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
}

// UserLoginRequest 登录请求
type UserLoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserProfile 用户信息
type UserProfile struct {
	ID          uint       `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

// ArtisanProfile 手作人身份信息
type ArtisanProfile struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Bio  string `json:"bio"`
}

// UserAuthResponse 登录/注册响应
type UserAuthResponse struct {
	User      UserProfile `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// RegisterUser 用户注册
func (h *Handler) RegisterUser(c *gin.Context) {
	var req UserRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	result, err := h.UserAuthService.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		respondUserAuthError(c, err, "error.register_failed")
		return
	}
	response.Success(c, buildUserAuthResponse(result))
}

// LoginUser 用户登录
func (h *Handler) LoginUser(c *gin.Context) {
	var req UserLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	result, err := h.UserAuthService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondUserAuthError(c, err, "error.login_failed")
		return
	}
	response.Success(c, buildUserAuthResponse(result))
}

// LogoutUser 注销当前用户全部 Token
func (h *Handler) LogoutUser(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	if err := h.UserAuthService.Logout(c.Request.Context(), uid); err != nil {
		respondUserAuthError(c, err, "error.logout_failed")
		return
	}
	response.Success(c, gin.H{"logged_out": true})
}

// GetCurrentUser 当前用户信息（含手作人身份）
func (h *Handler) GetCurrentUser(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	user, err := h.UserRepo.GetByID(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	if user == nil {
		respondError(c, response.CodeNotFound, "error.user_not_found", nil)
		return
	}
	var artisan *ArtisanProfile
	if h.ArtisanRepo != nil && user.IsArtisan() {
		record, err := h.ArtisanRepo.GetByUserID(uid)
		if err != nil {
			respondError(c, response.CodeInternal, "error.internal", err)
			return
		}
		if record != nil {
			artisan = &ArtisanProfile{ID: record.ID, Name: record.DisplayName(), Bio: record.Bio}
		}
	}
	response.Success(c, gin.H{
		"user":    toUserProfile(user),
		"artisan": artisan,
	})
}

func buildUserAuthResponse(result *service.AuthResult) UserAuthResponse {
	return UserAuthResponse{
		User:      toUserProfile(result.User),
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	}
}

func toUserProfile(user *models.User) UserProfile {
	if user == nil {
		return UserProfile{}
	}
	return UserProfile{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		Status:      user.Status,
		LastLoginAt: user.LastLoginAt,
	}
}
