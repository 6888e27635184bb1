package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	apperrors "github.com/spotsapp/spots-api/internal/pkg/errors"
)

// DefaultTokenTTL is the validity window of an identity token.
const DefaultTokenTTL = 30 * 24 * time.Hour

const tokenIssuer = "spots-api"

// Claims is the identity asserted by a token.
type Claims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService issues and validates identity tokens signed with a process-wide secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service. ttl <= 0 means DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("token signing secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue signs a token for the account valid for the configured window.
func (s *TokenService) Issue(accountID, email string) (string, error) {
	if accountID == "" {
		return "", errors.New("account id is required to issue a token")
	}
	now := s.now()
	claims := &Claims{
		ID:    accountID,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// ExtractBearer strips a leading "Bearer" marker, with or without the separating
// space and in any letter case. Anything else is returned trimmed but unchanged.
func ExtractBearer(raw string) string {
	token := strings.TrimSpace(raw)
	const prefix = "bearer"
	if len(token) >= len(prefix) && strings.EqualFold(token[:len(prefix)], prefix) {
		token = strings.TrimSpace(token[len(prefix):])
	}
	return token
}

// DecodeUnverified reads the claims without checking the signature or expiry.
// The result identifies which record to load and must not grant privileges by itself.
func (s *TokenService) DecodeUnverified(token string) (*Claims, error) {
	token = ExtractBearer(token)
	if token == "" {
		return nil, apperrors.New(apperrors.ErrUnauthorized, "authentication token is missing")
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, apperrors.New(apperrors.ErrUnauthorized, "authentication token is malformed")
	}
	if claims.ID == "" {
		return nil, apperrors.New(apperrors.ErrUnauthorized, "authentication token carries no identity")
	}
	return claims, nil
}

// Verify checks signature, algorithm and expiry. Every failure is an ErrUnauthorized.
func (s *TokenService) Verify(token string) (*Claims, error) {
	token = ExtractBearer(token)
	if token == "" {
		return nil, apperrors.New(apperrors.ErrUnauthorized, "authentication token is missing")
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, apperrors.New(apperrors.ErrUnauthorized, "authentication token has expired")
		}
		return nil, apperrors.New(apperrors.ErrUnauthorized, "authentication token is invalid")
	}
	if !parsed.Valid || claims.ID == "" {
		return nil, apperrors.New(apperrors.ErrUnauthorized, "authentication token is invalid")
	}
	return claims, nil
}
