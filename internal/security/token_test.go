package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectionToken_RoundTrip(t *testing.T) {
	mgr := NewSelectionTokenManager("test-secret", time.Hour)
	sessionID := uuid.New()

	token, err := mgr.Generate(sessionID, "user-42")
	require.NoError(t, err)

	claims, err := mgr.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, sessionID, claims.SessionID)
	assert.Equal(t, "user-42", claims.UserID)
	assert.Equal(t, PurposeDishSelection, claims.Purpose)
}

func TestSelectionToken_WrongSecret(t *testing.T) {
	mgr := NewSelectionTokenManager("secret-a", time.Hour)
	other := NewSelectionTokenManager("secret-b", time.Hour)

	token, err := mgr.Generate(uuid.New(), "user-1")
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.Error(t, err)
}

func TestSelectionToken_Expired(t *testing.T) {
	mgr := NewSelectionTokenManager("test-secret", -time.Minute)

	token, err := mgr.Generate(uuid.New(), "user-1")
	require.NoError(t, err)

	_, err = mgr.Verify(token)
	assert.Error(t, err)
}

func TestSelectionToken_WrongPurpose(t *testing.T) {
	// A token signed with the shared secret but minted for another use must
	// be rejected by the purpose check.
	secret := "shared-secret"
	claims := SelectionClaims{
		SessionID: uuid.New(),
		UserID:    "user-1",
		Purpose:   "password_reset",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	mgr := NewSelectionTokenManager(secret, time.Hour)
	_, err = mgr.Verify(foreign)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "purpose")
}

func TestJWTManager_ValidateAccessToken(t *testing.T) {
	secret := "access-secret"
	mgr := NewJWTManager(secret)

	claims := AccessClaims{
		UserID:   "user-7",
		Email:    "cook@example.com",
		Username: "cook",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	got, err := mgr.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-7", got.UserID)
	assert.Equal(t, "cook@example.com", got.Email)
}

func TestJWTManager_RejectsGarbage(t *testing.T) {
	mgr := NewJWTManager("access-secret")

	_, err := mgr.ValidateAccessToken("not-a-token")
	assert.Error(t, err)
}
