package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VerificationClaims binds a registration to the nick and email it was issued for.
type VerificationClaims struct {
	Nick  string `json:"nick"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTConfig holds signing configuration for verification codes.
type JWTConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

// GenerateVerificationCode creates a signed, expiring code for a pending registration.
func GenerateVerificationCode(cfg *JWTConfig, nick, email string) (string, error) {
	now := time.Now()
	claims := VerificationClaims{
		Nick:  nick,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			Subject:   nick,
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}

// ParseVerificationCode validates a verification code and returns its claims.
func ParseVerificationCode(cfg *JWTConfig, code string) (*VerificationClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	token, err := jwt.ParseWithClaims(code, &VerificationClaims{}, func(token *jwt.Token) (interface{}, error) {
		return cfg.Secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse verification code: %w", err)
	}

	claims, ok := token.Claims.(*VerificationClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid verification code claims")
	}
	return claims, nil
}
