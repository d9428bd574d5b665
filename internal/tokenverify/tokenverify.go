// Package tokenverify validates bearer tokens independently of how they were
// parsed, so both the HTTP middleware and the NATS endpoint share one set of
// rules.
package tokenverify

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken   = errors.New("invalid_token")
	ErrTokenExpired   = errors.New("token_expired")
	ErrSubjectMissing = errors.New("subject_missing")
)

type Parser interface {
	Parse(token string) (*jwt.Token, jwt.MapClaims, error)
}

// Result carries the identity claims this service issues.
type Result struct {
	UUID     string
	Username string
	Email    string
	Scopes   []string
	Claims   map[string]any
}

func Verify(parser Parser, token string, nowFn func() time.Time) (*Result, error) {
	if parser == nil {
		return nil, ErrInvalidToken
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	tok, claims, err := parser.Parse(token)
	if err != nil || tok == nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if exp, err := claims.GetExpirationTime(); err != nil || exp == nil || nowFn().After(exp.Time) {
		return nil, ErrTokenExpired
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrSubjectMissing
	}
	username, _ := claims["username"].(string)
	email, _ := claims["email"].(string)
	return &Result{
		UUID:     sub,
		Username: username,
		Email:    email,
		Scopes:   stringSlice(claims["scopes"]),
		Claims:   map[string]any(claims),
	}, nil
}

// stringSlice coerces a decoded JSON claim, which arrives as []any, back into
// a string list.
func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
