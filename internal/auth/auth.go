// Package auth provides password hashing and JWT-based authentication for
// Fieldbook. Tokens are signed with HMAC-SHA256 using a secret supplied by
// configuration; the subject is the user's public UUID so internal ids never
// leave the process.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fieldbook-crm/fieldbook/internal/model"
)

const issuer = "fieldbook"

// Claims extends jwt.RegisteredClaims with the user's role at issue time.
// The role claim is informational only; authorization always re-reads the
// current role from storage.
type Claims struct {
	jwt.RegisteredClaims
	Role model.UserRole `json:"role"`
}

// JWTManager handles JWT creation and validation using HS256.
type JWTManager struct {
	secret     []byte
	expiration time.Duration
}

// NewJWTManager creates a JWTManager. An empty secret is a configuration
// error, fatal at startup.
func NewJWTManager(secret []byte, expiration time.Duration) (*JWTManager, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("auth: JWT secret must not be empty")
	}
	return &JWTManager{secret: secret, expiration: expiration}, nil
}

// IssueToken creates a signed JWT for the given user.
func (m *JWTManager) IssueToken(user model.User) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(m.expiration)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UUID.String(),
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{issuer},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.New().String(),
		},
		Role: user.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, exp, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (m *JWTManager) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return m.secret, nil
		},
		jwt.WithAudience(issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: validate token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}

	if claims.Issuer != issuer {
		return nil, fmt.Errorf("auth: invalid issuer: %s", claims.Issuer)
	}

	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, fmt.Errorf("auth: invalid subject (expected UUID): %w", err)
	}

	return claims, nil
}

// SubjectUUID returns the token subject parsed as a user UUID.
func (c *Claims) SubjectUUID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}
