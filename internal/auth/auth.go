// Package auth implements the credential verifier and the access guard. Tokens are HS256 JWTs signed
// with a server secret; the verified claim is attached to the request context and later checks (role,
// self-only) read it from there.
package auth

import (
	"strings"
	"time"

	"classmaster/internal/models"
	"classmaster/internal/qerrors"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
)

const bearerPrefix = "Bearer "

// Claims is the identity extracted from a verified token.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs caller-supplied payloads for POST /jwt.
type TokenIssuer struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

func NewTokenIssuer(secret string, expiration time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), expiration: expiration, now: time.Now}
}

// Issue signs req with a fixed expiry.
func (i *TokenIssuer) Issue(req models.TokenRequest) (string, error) {
	email := models.NormalizeEmail(req.Email)
	if email == "" {
		return "", qerrors.NewValidationError("email", "required")
	}

	now := i.now()
	claims := Claims{
		Email: email,
		Name:  req.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.expiration)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}

	return token, nil
}

// Verifier validates bearer tokens signed by a TokenIssuer with the same secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses an Authorization header value. A missing header yields qerrors.UnauthenticatedError;
// a malformed, badly signed or expired token yields qerrors.InvalidTokenError.
func (v *Verifier) Verify(header string) (*Claims, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, qerrors.UnauthenticatedError
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return nil, qerrors.InvalidTokenError
	}

	raw := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if raw == "" {
		return nil, qerrors.InvalidTokenError
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, qerrors.InvalidTokenError
	}

	claims.Email = models.NormalizeEmail(claims.Email)
	if claims.Email == "" {
		return nil, qerrors.InvalidTokenError
	}

	return claims, nil
}
