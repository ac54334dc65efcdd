// Package auth handles bearer tokens, password hashing and the request gates
// (authentication, role, ownership) for the blog API.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. Client POSTs /api/auth/register or /api/auth/login
//  2. Server verifies the credentials and issues a signed JWT carrying the
//     user's ID and role
//  3. Client sends it back on every protected call:
//     Authorization: Bearer <token>
//  4. RequireAuth validates the token, turns it into a Principal and stores
//     it in the request context
//  5. RequireRole and Principal.CanModify decide what that principal may do
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<userID>","role":"professor","exp":1234567890,...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
//
// The server verifies the signature with the secret alone, without touching
// the database. The flip side: a token stays valid until it expires even if
// the user is deleted or demoted in the meantime.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/edublog/internal/model"
)

const (
	// DefaultTokenTTL is how long an issued token stays valid.
	DefaultTokenTTL = 24 * time.Hour

	// DefaultIssuer is the "iss" claim stamped on and required of tokens.
	DefaultIssuer = "edublog"
)

// TokenService handles JWT creation and validation.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewTokenService creates a TokenService with the given secret and token
// lifetime. A non-positive ttl falls back to DefaultTokenTTL.
//
// The secret should be at least 32 bytes of random data in production:
//
//	EDUBLOG_AUTH_JWTSECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, issuer: DefaultIssuer}, nil
}

// WithIssuer returns a copy of s that issues and accepts tokens for iss.
// An empty iss keeps the current issuer.
func (s *TokenService) WithIssuer(iss string) *TokenService {
	c := *s
	if iss != "" {
		c.issuer = iss
	}
	return &c
}

// claims is the JWT payload. "sub" holds the user ID; Role is our own claim.
type claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Generate creates and signs a token for the given user, valid for the
// service's configured lifetime.
func (s *TokenService) Generate(userID string, role model.Role) (string, error) {
	return s.GenerateWithDuration(userID, role, s.ttl)
}

// GenerateWithDuration creates a token with a custom expiry duration.
// Used in tests to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID string, role model.Role, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    s.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string and returns the Principal it
// was issued for.
//
// VALIDATION CHECKS:
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired, and has an expiry at all
//   - Issuer is ours
//   - Algorithm is HS256 (prevents "alg":"none" and key-confusion attacks)
//   - Subject is present and the role is one we know
func (s *TokenService) Validate(tokenStr string) (Principal, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, fmt.Errorf("auth: token expired")
		}
		return Principal{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Principal{}, fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" {
		return Principal{}, fmt.Errorf("auth: token has no subject")
	}
	if !c.Role.Valid() {
		return Principal{}, fmt.Errorf("auth: token has unknown role %q", c.Role)
	}

	return Principal{ID: c.Subject, Role: c.Role}, nil
}
