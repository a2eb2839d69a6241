package stubapi

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenService issues signed access tokens and opaque refresh tokens. Refresh
// tokens are stored hashed and rotated on every use.
type tokenService struct {
	secret          []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration

	mu      sync.Mutex
	refresh map[string]refreshRecord // hash -> record
}

type refreshRecord struct {
	userID    string
	expiresAt time.Time
}

type accessClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

type tokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

func newTokenService(secret string, accessTTL, refreshTTL time.Duration) *tokenService {
	return &tokenService{
		secret:          []byte(secret),
		accessTokenTTL:  accessTTL,
		refreshTokenTTL: refreshTTL,
		refresh:         make(map[string]refreshRecord),
	}
}

func (s *tokenService) Issue(userID string) (*tokenPair, error) {
	accessExpiry := time.Now().Add(s.accessTokenTTL)
	claims := accessClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(accessExpiry),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   userID,
		},
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}

	refreshRaw, err := generateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("generating refresh token: %w", err)
	}

	s.mu.Lock()
	s.refresh[hashToken(refreshRaw)] = refreshRecord{
		userID:    userID,
		expiresAt: time.Now().Add(s.refreshTokenTTL),
	}
	s.mu.Unlock()

	return &tokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshRaw,
		ExpiresAt:    accessExpiry,
	}, nil
}

// Rotate consumes a refresh token and issues a new pair. The old token is
// invalid afterwards even when issuing fails.
func (s *tokenService) Rotate(refreshToken string) (*tokenPair, error) {
	hash := hashToken(refreshToken)

	s.mu.Lock()
	record, ok := s.refresh[hash]
	if ok {
		delete(s.refresh, hash)
	}
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("unknown refresh token")
	}
	if time.Now().After(record.expiresAt) {
		return nil, fmt.Errorf("refresh token expired")
	}

	return s.Issue(record.userID)
}

// Revoke drops a refresh token, e.g. on logout.
func (s *tokenService) Revoke(refreshToken string) {
	s.mu.Lock()
	delete(s.refresh, hashToken(refreshToken))
	s.mu.Unlock()
}

func (s *tokenService) Validate(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &accessClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token claims")
	}
	return claims.UserID, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

func generateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
