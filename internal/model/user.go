package model

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleDoctor    Role = "doctor"
	RoleAssistant Role = "assistant"
)

type User struct {
	Base
	Username           string     `db:"username" json:"username"`
	Email              string     `db:"email" json:"email"`
	PasswordHash       string     `db:"password_hash" json:"-"`
	FirstName          string     `db:"first_name" json:"first_name"`
	LastName           string     `db:"last_name" json:"last_name"`
	Role               Role       `db:"role" json:"role"`
	Phone              string     `db:"phone" json:"phone"`
	CertificateNumber  string     `db:"certificate_number" json:"certificate_number"`
	DataMaskingEnabled bool       `db:"data_masking_enabled" json:"data_masking_enabled"`
	IsActive           bool       `db:"is_active" json:"is_active"`
	LastLogin          *time.Time `db:"last_login" json:"last_login,omitempty"`
	FailedLoginCount   int        `db:"failed_login_count" json:"-"`
	LockedUntil        *time.Time `db:"locked_until" json:"-"`
}

func (u *User) FullName() string {
	switch {
	case u.FirstName == "" && u.LastName == "":
		return u.Username
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.LastName + " " + u.FirstName
	}
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type CreateUserRequest struct {
	Username           string `json:"username" binding:"required,min=3,max=50"`
	Email              string `json:"email" binding:"required,email"`
	Password           string `json:"password" binding:"required,min=8"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	Role               string `json:"role" binding:"required,role"`
	Phone              string `json:"phone"`
	CertificateNumber  string `json:"certificate_number"`
	DataMaskingEnabled bool   `json:"data_masking_enabled"`
}

type UpdateUserRequest struct {
	Email              *string `json:"email" binding:"omitempty,email"`
	FirstName          *string `json:"first_name"`
	LastName           *string `json:"last_name"`
	Role               *string `json:"role" binding:"omitempty,role"`
	Phone              *string `json:"phone"`
	CertificateNumber  *string `json:"certificate_number"`
	DataMaskingEnabled *bool   `json:"data_masking_enabled"`
	IsActive           *bool   `json:"is_active"`
	Password           *string `json:"password" binding:"omitempty,min=8"`
}

// Token is a stored refresh token or password reset token. Refresh
// tokens are recorded by JTI so logout can revoke them.
type Token struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	TokenType string     `db:"token_type" json:"token_type"`
	Value     string     `db:"value" json:"-"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

const (
	TokenTypeRefreshRevocation = "refresh_revocation"
	TokenTypePasswordReset     = "password_reset"
)
