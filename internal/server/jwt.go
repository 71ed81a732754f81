package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kolavi/blog-pipeline/internal/config"
)

// TokenService issues and verifies the HS256 bearer tokens that gate the
// /blog routes. The authenticated identity travels in the registered
// "sub" claim as a UUID string.
type TokenService struct {
	config *config.JWTConfig
}

// NewTokenService creates a TokenService with the given configuration.
func NewTokenService(cfg *config.JWTConfig) *TokenService {
	return &TokenService{config: cfg}
}

// Issue signs a token for the given subject, valid for the configured
// number of hours.
func (s *TokenService) Issue(subject uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject.String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.config.ExpirationHours) * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateSubject verifies a token and returns its subject. Implements
// middleware.TokenValidator.
func (s *TokenService) ValidateSubject(tokenString string) (uuid.UUID, error) {
	if tokenString == "" {
		return uuid.Nil, fmt.Errorf("token string is empty")
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrSignatureInvalid):
			return uuid.Nil, fmt.Errorf("invalid token signature: %w", err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return uuid.Nil, fmt.Errorf("token expired: %w", err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return uuid.Nil, fmt.Errorf("malformed token: %w", err)
		default:
			return uuid.Nil, fmt.Errorf("failed to parse token: %w", err)
		}
	}
	if !token.Valid {
		return uuid.Nil, fmt.Errorf("token is not valid")
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("token subject is not a valid id: %w", err)
	}
	return subject, nil
}
