package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "todo-copilot"

// Claims carried by agent tokens.
type Claims struct {
	jwt.RegisteredClaims
}

// Signer issues and validates HS256 agent tokens with a shared secret.
type Signer struct {
	secret []byte
}

// NewSigner returns nil when secret is empty, meaning auth is disabled.
func NewSigner(secret string) *Signer {
	if secret == "" {
		return nil
	}
	return &Signer{secret: []byte(secret)}
}

// Issue creates a token for subject. ttl <= 0 means no expiry.
func (s *Signer) Issue(subject string, ttl time.Duration) (string, *time.Time, error) {
	if subject == "" {
		return "", nil, errors.New("empty subject")
	}
	now := time.Now()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:  subject,
		Issuer:   issuer,
		IssuedAt: jwt.NewNumericDate(now),
	}}
	var exp *time.Time
	if ttl > 0 {
		e := now.Add(ttl)
		exp = &e
		claims.ExpiresAt = jwt.NewNumericDate(e)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, exp, nil
}

// Validate checks signature, issuer and expiry and returns the claims.
func (s *Signer) Validate(tokenStr string) (*Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token claims")
	}
	return &claims, nil
}

// Inspect decodes claims without verifying the signature, for display.
func Inspect(tokenStr string) (*Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &claims); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return &claims, nil
}
