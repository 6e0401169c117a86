package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTParser validates HS256 tokens and extracts the "sub" claim.
type JWTParser struct {
	secret []byte
	leeway time.Duration
}

// NewJWTParser returns a parser for tokens signed with secret.
func NewJWTParser(secret string, leeway time.Duration) (*JWTParser, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &JWTParser{secret: []byte(secret), leeway: leeway}, nil
}

// Parse returns the subject of a valid token.
func (p *JWTParser) Parse(token string) (string, error) {
	claims := jwt.RegisteredClaims{}
	t, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(p.leeway),
	)
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}
	if !t.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrMissingSubject
	}
	return claims.Subject, nil
}

// Issue signs a token for subject that expires after ttl. Used by tooling
// and tests; production tokens come from the auth service.
func (p *JWTParser) Issue(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}
