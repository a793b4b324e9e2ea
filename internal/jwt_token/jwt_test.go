package jwttoken_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "attest/internal/jwt_token"
)

func TestSignAndValidate(t *testing.T) {
	validator := jwttoken.NewValidator("secret", "attest")

	token, err := validator.Sign("issuer-service", time.Hour)
	require.NoError(t, err)

	subject, err := validator.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "issuer-service", subject)
}

func TestExpiredTokenRejected(t *testing.T) {
	validator := jwttoken.NewValidator("secret", "attest")

	token, err := validator.Sign("issuer-service", -time.Minute)
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestWrongKeyRejected(t *testing.T) {
	signer := jwttoken.NewValidator("secret-a", "attest")
	validator := jwttoken.NewValidator("secret-b", "attest")

	token, err := signer.Sign("issuer-service", time.Hour)
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.Error(t, err)
}

func TestWrongIssuerRejected(t *testing.T) {
	signer := jwttoken.NewValidator("secret", "someone-else")
	validator := jwttoken.NewValidator("secret", "attest")

	token, err := signer.Sign("issuer-service", time.Hour)
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "issuer")
}

func TestGarbageTokenRejected(t *testing.T) {
	validator := jwttoken.NewValidator("secret", "attest")
	_, err := validator.ValidateToken("not.a.token")
	assert.Error(t, err)
}
