// Package auth resolves who is calling: signed session cookies, admin
// passwords, and the external identity provider.
//
// SESSION FLOW:
//  1. POST /api/login/accessToken stores the provider access token in a
//     signed "access_token" cookie.
//  2. POST /api/admin/login stores the admin's profile in a signed
//     "admin_userinfo" cookie plus a signed "admin" marker cookie.
//  3. On every request the Resolver middleware runs its interceptors in
//     order and puts an immutable Session into the request context.
//
// All cookies are HS256 JWTs. The "kind" claim ties a token to the cookie it
// was issued for, so an admin_userinfo token is rejected when presented as
// the admin marker and vice versa.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sakif/event-board/internal/model"
)

const issuer = "event-board"

// Kind names the cookie a session token was issued for.
type Kind string

const (
	KindAccessToken   Kind = "access_token"
	KindAdmin         Kind = "admin"
	KindAdminUserinfo Kind = "admin_userinfo"
)

// SessionCodec signs and verifies session tokens.
type SessionCodec struct {
	secret []byte
	ttl    time.Duration
}

// NewSessionCodec returns a codec issuing tokens valid for ttl.
func NewSessionCodec(secret string, ttl time.Duration) (*SessionCodec, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: session TTL must be positive")
	}
	return &SessionCodec{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is the lifetime of issued tokens; cookies use it as Max-Age.
func (c *SessionCodec) TTL() time.Duration {
	return c.ttl
}

type sessionClaims struct {
	Kind        Kind   `json:"kind"`
	AccessToken string `json:"tok,omitempty"`
	Email       string `json:"email,omitempty"`
	Name        string `json:"name,omitempty"`
	Picture     string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// IssueAccessToken wraps a provider access token.
func (c *SessionCodec) IssueAccessToken(token string) (string, error) {
	return c.sign(sessionClaims{Kind: KindAccessToken, AccessToken: token})
}

// IssueAdmin returns the admin marker token for sub.
func (c *SessionCodec) IssueAdmin(sub string) (string, error) {
	return c.sign(sessionClaims{
		Kind:             KindAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: sub},
	})
}

// IssueAdminUserinfo carries the admin's display profile.
func (c *SessionCodec) IssueAdminUserinfo(id model.Identity) (string, error) {
	return c.sign(sessionClaims{
		Kind:             KindAdminUserinfo,
		Email:            id.Email,
		Name:             id.Name,
		Picture:          id.Picture,
		RegisteredClaims: jwt.RegisteredClaims{Subject: id.Sub},
	})
}

// ParseAccessToken returns the provider token stored in an access_token cookie.
func (c *SessionCodec) ParseAccessToken(raw string) (string, error) {
	cl, err := c.parse(raw, KindAccessToken)
	if err != nil {
		return "", err
	}
	if cl.AccessToken == "" {
		return "", errors.New("auth: session token carries no access token")
	}
	return cl.AccessToken, nil
}

// ParseAdmin returns the subject of an admin marker token.
func (c *SessionCodec) ParseAdmin(raw string) (string, error) {
	cl, err := c.parse(raw, KindAdmin)
	if err != nil {
		return "", err
	}
	return cl.Subject, nil
}

// ParseAdminUserinfo returns the identity stored in an admin_userinfo token.
// A token without a subject is rejected.
func (c *SessionCodec) ParseAdminUserinfo(raw string) (*model.Identity, error) {
	cl, err := c.parse(raw, KindAdminUserinfo)
	if err != nil {
		return nil, err
	}
	if cl.Subject == "" {
		return nil, errors.New("auth: token has no subject")
	}
	return &model.Identity{
		Sub:     cl.Subject,
		Email:   cl.Email,
		Name:    cl.Name,
		Picture: cl.Picture,
	}, nil
}

func (c *SessionCodec) sign(cl sessionClaims) (string, error) {
	now := time.Now()
	cl.Issuer = issuer
	cl.ID = uuid.NewString()
	cl.IssuedAt = jwt.NewNumericDate(now)
	cl.ExpiresAt = jwt.NewNumericDate(now.Add(c.ttl))

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

func (c *SessionCodec) parse(raw string, want Kind) (*sessionClaims, error) {
	token, err := jwt.ParseWithClaims(
		raw,
		&sessionClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	cl, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if cl.Kind != want {
		return nil, fmt.Errorf("auth: token kind %q, want %q", cl.Kind, want)
	}
	return cl, nil
}
