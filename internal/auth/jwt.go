// Package auth issues and checks the signed tokens that identify staff members
// on the WebSocket, HTTP and Telegram screens.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"complaintdesk/backend/internal/models"

	jwt "github.com/golang-jwt/jwt/v5"
)

const issuer = "complaintdesk-service"

// Claims carries the signed-in user id.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Service signs and verifies HS256 tokens.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// GenerateToken creates a token for userID that expires after the configured TTL.
func (s *Service) GenerateToken(userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", models.ErrUnauthenticated
	}
	now := s.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseToken verifies tokenString and returns the user id it was issued for.
// Any failure is reported as ErrUnauthenticated.
func (s *Service) ParseToken(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: token expired", models.ErrUnauthenticated)
		}
		return "", fmt.Errorf("%w: %v", models.ErrUnauthenticated, err)
	}
	if !token.Valid || claims.UserID == "" {
		return "", fmt.Errorf("%w: token has no user", models.ErrUnauthenticated)
	}
	return claims.UserID, nil
}

// BearerToken extracts the token from an "Authorization: Bearer ..." header.
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
