package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ironspideychinu/TuckHub/models"
)

const (
	tokenIssuer = "TuckHub"
	tokenTTL    = 7 * 24 * time.Hour
)

type Claims struct {
	UserID   string              `json:"user_id"`
	Role     models.Role         `json:"role"`
	Provider models.AuthProvider `json:"provider"`
	jwt.RegisteredClaims
}

// TokenSigner issues and checks HS256 tokens with one shared secret.
type TokenSigner struct {
	secret []byte
	now    func() time.Time
}

func NewTokenSigner(secret string) *TokenSigner {
	return &TokenSigner{secret: []byte(secret), now: time.Now}
}

func (s *TokenSigner) Generate(userID string, role models.Role, provider models.AuthProvider) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:   userID,
		Role:     role,
		Provider: provider,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *TokenSigner) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	if claims.UserID == "" {
		return nil, errors.New("token carries no user id")
	}
	if _, err := models.ParseRole(string(claims.Role)); err != nil {
		return nil, err
	}

	return claims, nil
}
