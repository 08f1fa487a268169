// Package resettoken issues and validates the anti-forgery tokens that guard
// the sort reset action. Tokens are HS256 JWTs bound to a user and to a
// purpose derived from the content type.
package resettoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"sortmemo/internal/domain"
)

var (
	ErrMissing         = errors.New("reset token missing")
	ErrPurposeMismatch = errors.New("reset token purpose mismatch")
	ErrSubjectMismatch = errors.New("reset token subject mismatch")
)

type claims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Purpose returns the token scope for resetting one content type.
func Purpose(contentType string) string {
	return domain.ResetAction + "_" + contentType
}

func (s *Service) Issue(userID, contentType string) (string, error) {
	now := s.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Purpose: Purpose(contentType),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign reset token: %w", err)
	}
	return signed, nil
}

func (s *Service) Validate(token, userID, contentType string) error {
	if token == "" {
		return ErrMissing
	}
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return err
	}
	if !parsed.Valid {
		return jwt.ErrTokenSignatureInvalid
	}
	if c.Subject != userID {
		return ErrSubjectMismatch
	}
	if c.Purpose != Purpose(contentType) {
		return ErrPurposeMismatch
	}
	return nil
}
