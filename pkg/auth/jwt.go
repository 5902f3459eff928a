package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongType    = errors.New("wrong token type")
)

// Claims is the JWT payload for both access and refresh tokens. The
// masking flag rides along so handlers can apply field masking without
// an extra user lookup.
type Claims struct {
	jwt.RegisteredClaims
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Masking   bool      `json:"masking"`
	TokenType string    `json:"token_type"`
}

// Config holds token signing configuration.
type Config struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// Identity is the subset of the user record baked into tokens.
type Identity struct {
	UserID   uuid.UUID
	Username string
	Role     string
	Masking  bool
}

// Manager issues and validates the API's JWTs.
type Manager struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewManager(cfg Config) *Manager {
	accessExpiry := cfg.AccessExpiry
	if accessExpiry == 0 {
		accessExpiry = time.Hour
	}
	refreshExpiry := cfg.RefreshExpiry
	if refreshExpiry == 0 {
		refreshExpiry = 7 * 24 * time.Hour
	}
	return &Manager{
		secret:        []byte(cfg.Secret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

func (m *Manager) GenerateAccessToken(id Identity) (string, error) {
	return m.generate(id, TokenTypeAccess, m.accessExpiry)
}

// GenerateRefreshToken returns the signed token and its JTI. The JTI is
// what logout stores to revoke the token before expiry.
func (m *Manager) GenerateRefreshToken(id Identity) (string, uuid.UUID, error) {
	jti := uuid.New()
	token, err := m.generateWithID(id, TokenTypeRefresh, m.refreshExpiry, jti)
	return token, jti, err
}

func (m *Manager) generate(id Identity, tokenType string, expiry time.Duration) (string, error) {
	token, err := m.generateWithID(id, tokenType, expiry, uuid.New())
	return token, err
}

func (m *Manager) generateWithID(id Identity, tokenType string, expiry time.Duration, jti uuid.UUID) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			Subject:   id.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
		UserID:    id.UserID,
		Username:  id.Username,
		Role:      id.Role,
		Masking:   id.Masking,
		TokenType: tokenType,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (m *Manager) ValidateAccessToken(token string) (*Claims, error) {
	return m.validate(token, TokenTypeAccess)
}

func (m *Manager) ValidateRefreshToken(token string) (*Claims, error) {
	return m.validate(token, TokenTypeRefresh)
}

func (m *Manager) validate(token, wantType string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != wantType {
		return nil, ErrWrongType
	}
	return claims, nil
}
