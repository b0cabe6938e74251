package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfwise/api/models"
)

func TestGenerateAndValidateJWT(t *testing.T) {
	user := &models.User{
		ID:    42,
		Email: "ada@example.com",
		Role:  "admin",
	}

	tokenString, err := GenerateJWT(user)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims, err := ValidateJWT(tokenString)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "42", claims.Subject)
}

func TestValidateJWT_RejectsGarbage(t *testing.T) {
	_, err := ValidateJWT("not.a.token")
	assert.Error(t, err)
}

func TestValidateJWT_RejectsTamperedToken(t *testing.T) {
	user := &models.User{ID: 1, Email: "a@b.c", Role: "user"}
	tokenString, err := GenerateJWT(user)
	require.NoError(t, err)

	tampered := tokenString[:len(tokenString)-2] + "xx"
	_, err = ValidateJWT(tampered)
	assert.Error(t, err)
}
