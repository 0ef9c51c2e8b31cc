package auth

import (
	"errors"
	"time"

	"github.com/avlobanov/aerobook/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the request-scoped identity passed into every workflow call.
type Claims struct {
	UserID int64       `json:"user_id"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

func (c Claims) IsAdmin() bool {
	return c.Role == domain.RoleAdmin
}

// CanAccessUser reports whether the caller may read resources owned by the
// given user: the owner themselves or an admin.
func (c Claims) CanAccessUser(userID int64) bool {
	return c.UserID == userID || c.IsAdmin()
}

type TokenManager struct {
	secret   []byte
	issuer   string
	tokenTTL time.Duration
}

func NewTokenManager(secret, issuer string, tokenTTL time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), issuer: issuer, tokenTTL: tokenTTL}
}

func (m *TokenManager) Issue(user *domain.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   user.Email,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *TokenManager) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
