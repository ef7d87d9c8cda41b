package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldbook-crm/fieldbook/internal/auth"
	"github.com/fieldbook-crm/fieldbook/internal/model"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := auth.HashPassword("hunter2-but-longer")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	valid, err := auth.VerifyPassword("hunter2-but-longer", hash)
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = auth.VerifyPassword("wrong-password", hash)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	_, err := auth.VerifyPassword("anything", "not-a-valid-encoding")
	assert.Error(t, err)
}

func TestJWTIssueAndValidate(t *testing.T) {
	mgr, err := auth.NewJWTManager([]byte("test-secret"), time.Hour)
	require.NoError(t, err)

	user := model.User{
		UUID:     uuid.New(),
		Username: "kovacs.anna",
		Role:     model.RoleManager,
	}

	token, expiresAt, err := mgr.IssueToken(user)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := mgr.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.UUID.String(), claims.Subject)
	assert.Equal(t, model.RoleManager, claims.Role)

	subject, err := claims.SubjectUUID()
	require.NoError(t, err)
	assert.Equal(t, user.UUID, subject)
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	mgr, err := auth.NewJWTManager([]byte("secret-one"), time.Hour)
	require.NoError(t, err)
	other, err := auth.NewJWTManager([]byte("secret-two"), time.Hour)
	require.NoError(t, err)

	token, _, err := mgr.IssueToken(model.User{UUID: uuid.New(), Role: model.RoleAgent})
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTRejectsExpired(t *testing.T) {
	mgr, err := auth.NewJWTManager([]byte("test-secret"), -time.Minute)
	require.NoError(t, err)

	token, _, err := mgr.IssueToken(model.User{UUID: uuid.New(), Role: model.RoleAgent})
	require.NoError(t, err)

	_, err = mgr.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTRejectsWrongAlgorithm(t *testing.T) {
	mgr, err := auth.NewJWTManager([]byte("test-secret"), time.Hour)
	require.NoError(t, err)

	// Forge an unsigned token claiming the "none" algorithm.
	claims := jwt.RegisteredClaims{
		Subject:   uuid.New().String(),
		Issuer:    "fieldbook",
		Audience:  jwt.ClaimStrings{"fieldbook"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	forged := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := forged.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = mgr.ValidateToken(signed)
	assert.Error(t, err)
}

func TestNewJWTManagerEmptySecret(t *testing.T) {
	_, err := auth.NewJWTManager(nil, time.Hour)
	assert.Error(t, err)
}
