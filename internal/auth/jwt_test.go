package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidateToken(t *testing.T) {
	mgr := NewManager("test-secret", time.Hour)

	token, err := mgr.IssueToken("u1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := mgr.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := NewManager("secret-a", time.Hour).IssueToken("u1")
	require.NoError(t, err)

	_, err = NewManager("secret-b", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateExpiredToken(t *testing.T) {
	mgr := NewManager("test-secret", -time.Minute)
	token, err := mgr.IssueToken("u1")
	require.NoError(t, err)

	_, err = mgr.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateGarbageToken(t *testing.T) {
	_, err := NewManager("test-secret", time.Hour).ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("supersecret")
	require.NoError(t, err)
	assert.NotEqual(t, "supersecret", hash)

	assert.True(t, CheckPassword("supersecret", hash))
	assert.False(t, CheckPassword("wrong", hash))
}
