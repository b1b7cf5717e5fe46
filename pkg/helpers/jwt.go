package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTManager handles generation and validation of JWT tokens
type JWTManager struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

func NewJWTManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTManager {
	return &JWTManager{
		AccessSecret:  []byte(accessSecret),
		RefreshSecret: []byte(refreshSecret),
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
	}
}

// Claims identify the user and the session (sid) a token belongs to.
// Every token carries its own id (jti). For refresh tokens the session store
// remembers it so a refresh token can be used once.
type Claims struct {
	UserID    string `json:"uid"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func (m *JWTManager) GenerateAccessToken(userID, sessionID string) (string, time.Time, error) {
	return m.sign(m.AccessSecret, m.AccessTTL, userID, sessionID, uuid.NewString())
}

func (m *JWTManager) GenerateRefreshToken(userID, sessionID, tokenID string) (string, time.Time, error) {
	return m.sign(m.RefreshSecret, m.RefreshTTL, userID, sessionID, tokenID)
}

func (m *JWTManager) sign(secret []byte, ttl time.Duration, userID, sessionID, tokenID string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	claims := &Claims{
		UserID:    userID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(secret)
	return s, exp, err
}

func (m *JWTManager) ParseAccessToken(tokenStr string) (*Claims, error) {
	return parseToken(tokenStr, m.AccessSecret)
}

func (m *JWTManager) ParseRefreshToken(tokenStr string) (*Claims, error) {
	return parseToken(tokenStr, m.RefreshSecret)
}

// SessionIDOf returns the sid of a correctly signed token even when it has expired.
// Used on sign-out, where an expired access token must still end its session.
func (m *JWTManager) SessionIDOf(tokenStr string, refresh bool) (string, bool) {
	secret := m.AccessSecret
	if refresh {
		secret = m.RefreshSecret
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, keyFunc(secret), jwt.WithoutClaimsValidation())
	if err != nil || claims.SessionID == "" {
		return "", false
	}
	return claims.SessionID, true
}

func keyFunc(secret []byte) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}
}

func parseToken(tokenStr string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, keyFunc(secret))
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
