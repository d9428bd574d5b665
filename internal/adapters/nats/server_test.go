package natsadapter

import (
	"encoding/json"
	"testing"

	nats "github.com/nats-io/nats.go"

	"github.com/amida-tech/amida-auth-microservice/config"
	"github.com/amida-tech/amida-auth-microservice/internal/domain"
	"github.com/amida-tech/amida-auth-microservice/internal/usecase"
)

func newVerifySigner(t *testing.T, ttl int) usecase.JWTSigner {
	t.Helper()
	signer, err := usecase.NewJWTSigner(&config.Config{
		JWTMode:   "hmac",
		JWTSecret: "unit-test-secret",
		JWTTTL:    ttl,
	})
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	return signer
}

func capture(h *VerifyHandler) *verifyResponse {
	var got verifyResponse
	h.respondFn = func(_ *nats.Msg, resp verifyResponse) {
		got = resp
	}
	return &got
}

func requestPayload(t *testing.T, token string) []byte {
	t.Helper()
	data, err := json.Marshal(verifyRequest{Token: token})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestVerifyHandlerValidToken(t *testing.T) {
	signer := newVerifySigner(t, 3600)
	token, err := signer.Sign(&domain.User{
		ID:       7,
		UUID:     "uuid-7",
		Username: "KK123",
		Email:    "test@amida.com",
		Scopes:   []string{"", "admin"},
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	h := NewVerifyHandler(signer)
	got := capture(h)
	h.handle(&nats.Msg{Data: requestPayload(t, token)})

	if !got.OK {
		t.Fatalf("response = %+v", got)
	}
	if got.UUID != "uuid-7" || got.Username != "KK123" || got.Email != "test@amida.com" {
		t.Fatalf("identity = %+v", got)
	}
	if len(got.Scopes) != 2 || got.Scopes[1] != "admin" {
		t.Fatalf("scopes = %v", got.Scopes)
	}
}

func TestVerifyHandlerExpiredToken(t *testing.T) {
	signer := newVerifySigner(t, -120)
	token, err := signer.Sign(&domain.User{ID: 1, UUID: "u", Username: "x", Email: "x@y.z"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	h := NewVerifyHandler(signer)
	got := capture(h)
	h.handle(&nats.Msg{Data: requestPayload(t, token)})

	if got.OK {
		t.Fatal("expired token verified")
	}
	// The 30s parse leeway is exceeded, so the parser already rejects it.
	if got.Error != "invalid_token" && got.Error != "expired" {
		t.Fatalf("error = %q", got.Error)
	}
}

func TestVerifyHandlerGarbageToken(t *testing.T) {
	h := NewVerifyHandler(newVerifySigner(t, 3600))
	got := capture(h)
	h.handle(&nats.Msg{Data: requestPayload(t, "not-a-jwt")})

	if got.OK || got.Error != "invalid_token" {
		t.Fatalf("response = %+v", got)
	}
}

func TestVerifyHandlerBadPayload(t *testing.T) {
	h := NewVerifyHandler(newVerifySigner(t, 3600))
	got := capture(h)
	h.handle(&nats.Msg{Data: []byte("{not json")})

	if got.OK || got.Error != "invalid_payload" {
		t.Fatalf("response = %+v", got)
	}
}
