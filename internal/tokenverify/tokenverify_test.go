package tokenverify

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type stubParser struct {
	tok    *jwt.Token
	claims jwt.MapClaims
	err    error
}

func (p *stubParser) Parse(string) (*jwt.Token, jwt.MapClaims, error) {
	return p.tok, p.claims, p.err
}

func validClaims(exp time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":      "11111111-2222-3333-4444-555555555555",
		"username": "KK123",
		"email":    "test@amida.com",
		"scopes":   []any{"", "admin"},
		"exp":      float64(exp.Unix()),
	}
}

func fixedNow() time.Time {
	return time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)
}

func TestVerifyExtractsIdentity(t *testing.T) {
	parser := &stubParser{
		tok:    &jwt.Token{Valid: true},
		claims: validClaims(fixedNow().Add(time.Hour)),
	}

	result, err := Verify(parser, "token", fixedNow)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.UUID != "11111111-2222-3333-4444-555555555555" {
		t.Fatalf("uuid = %q", result.UUID)
	}
	if result.Username != "KK123" || result.Email != "test@amida.com" {
		t.Fatalf("identity = %q / %q", result.Username, result.Email)
	}
	if len(result.Scopes) != 2 || result.Scopes[1] != "admin" {
		t.Fatalf("scopes = %v", result.Scopes)
	}
}

func TestVerifyRejectsParseFailure(t *testing.T) {
	parser := &stubParser{err: jwt.ErrTokenMalformed}
	if _, err := Verify(parser, "garbage", fixedNow); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v", err)
	}
}

func TestVerifyRejectsInvalidatedToken(t *testing.T) {
	parser := &stubParser{
		tok:    &jwt.Token{Valid: false},
		claims: validClaims(fixedNow().Add(time.Hour)),
	}
	if _, err := Verify(parser, "token", fixedNow); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	parser := &stubParser{
		tok:    &jwt.Token{Valid: true},
		claims: validClaims(fixedNow().Add(-time.Minute)),
	}
	if _, err := Verify(parser, "token", fixedNow); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v", err)
	}
}

func TestVerifyRejectsMissingSubject(t *testing.T) {
	claims := validClaims(fixedNow().Add(time.Hour))
	delete(claims, "sub")
	parser := &stubParser{tok: &jwt.Token{Valid: true}, claims: claims}
	if _, err := Verify(parser, "token", fixedNow); !errors.Is(err, ErrSubjectMissing) {
		t.Fatalf("err = %v", err)
	}
}

func TestVerifyNilParser(t *testing.T) {
	if _, err := Verify(nil, "token", fixedNow); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v", err)
	}
}
