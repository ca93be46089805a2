package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// PurposeDishSelection tags selection capability tokens. The purpose claim is
// always checked before the payload is used, so a token minted for another
// signed-token use in the surrounding system can never resume a session.
const PurposeDishSelection = "dish_selection"

// SelectionClaims are the claims of a dish-selection capability token.
type SelectionClaims struct {
	SessionID uuid.UUID `json:"session_id"`
	UserID    string    `json:"user_id"`
	Purpose   string    `json:"purpose"`
	jwt.RegisteredClaims
}

// SelectionTokenManager mints and verifies dish-selection capability tokens.
type SelectionTokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewSelectionTokenManager creates a new selection token manager
func NewSelectionTokenManager(secret string, ttl time.Duration) *SelectionTokenManager {
	return &SelectionTokenManager{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Generate mints a capability token binding a session to a user.
func (m *SelectionTokenManager) Generate(sessionID uuid.UUID, userID string) (string, error) {
	now := time.Now()
	claims := SelectionClaims{
		SessionID: sessionID,
		UserID:    userID,
		Purpose:   PurposeDishSelection,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "cookflow",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify validates signature, expiry and purpose, in that order. It performs
// no session lookup; callers resolve the session only after Verify succeeds.
func (m *SelectionTokenManager) Verify(tokenString string) (*SelectionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SelectionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*SelectionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	if claims.Purpose != PurposeDishSelection {
		return nil, errors.New("invalid token purpose")
	}

	return claims, nil
}

// TTL returns the token lifetime.
func (m *SelectionTokenManager) TTL() time.Duration {
	return m.ttl
}
