package service

import (
	"unicode"

	"github.com/reelcraft/reelcraft/internal/config"
)

// PasswordPolicyError 注册密码未通过策略，Key 对应 response 文案表
type PasswordPolicyError struct {
	Key  string
	Args []interface{}
}

func (e *PasswordPolicyError) Error() string {
	return ErrWeakPassword.Error() + ": " + e.Key
}

func (e *PasswordPolicyError) Unwrap() error {
	return ErrWeakPassword
}

type passwordClasses struct {
	upper, lower, number, special bool
}

func classifyPassword(password string) passwordClasses {
	var cls passwordClasses
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			cls.upper = true
		case unicode.IsLower(r):
			cls.lower = true
		case unicode.IsDigit(r):
			cls.number = true
		default:
			cls.special = true
		}
	}
	return cls
}

// 按顺序检查，返回第一条未满足的规则
var passwordClassRules = []struct {
	key      string
	required func(config.PasswordPolicyConfig) bool
	present  func(passwordClasses) bool
}{
	{"error.password_require_upper", func(p config.PasswordPolicyConfig) bool { return p.RequireUpper }, func(c passwordClasses) bool { return c.upper }},
	{"error.password_require_lower", func(p config.PasswordPolicyConfig) bool { return p.RequireLower }, func(c passwordClasses) bool { return c.lower }},
	{"error.password_require_number", func(p config.PasswordPolicyConfig) bool { return p.RequireNumber }, func(c passwordClasses) bool { return c.number }},
	{"error.password_require_special", func(p config.PasswordPolicyConfig) bool { return p.RequireSpecial }, func(c passwordClasses) bool { return c.special }},
}

func validatePassword(policy config.PasswordPolicyConfig, password string) error {
	if policy.MinLength > 0 && len([]rune(password)) < policy.MinLength {
		return &PasswordPolicyError{Key: "error.password_min_length", Args: []interface{}{policy.MinLength}}
	}
	cls := classifyPassword(password)
	for _, rule := range passwordClassRules {
		if rule.required(policy) && !rule.present(cls) {
			return &PasswordPolicyError{Key: rule.key}
		}
	}
	return nil
}
