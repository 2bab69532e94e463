// Package service — collaborators of the chat core: tokens, credit,
// interview scoring and exchange rates.
package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/boddenberg/banco-agil-bfa-go/internal/domain"
)

const tokenIssuer = "banco-agil-bfa"

// ============================================================
// TokenService — access tokens issued after chat authentication
// ============================================================

// JWTClaims represents the custom claims in access tokens.
type JWTClaims struct {
	Sub  string `json:"sub"`
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// TokenService signs and validates HS256 access tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns the access token lifetime.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// IssueToken signs an access token for the CPF.
func (s *TokenService) IssueToken(cpf string) (string, error) {
	now := s.now()
	claims := JWTClaims{
		Sub:  cpf,
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    tokenIssuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates the token and returns the CPF it was issued for.
func (s *TokenService) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", &domain.ErrUnauthorized{Message: "Token inválido ou expirado"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return "", &domain.ErrUnauthorized{Message: "Token inválido"}
	}
	if claims.Type != "access" {
		return "", &domain.ErrUnauthorized{Message: "Tipo de token inválido"}
	}
	if claims.Sub == "" {
		return "", &domain.ErrUnauthorized{Message: "Token sem titular"}
	}
	return claims.Sub, nil
}
