package usecase

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/amida-tech/amida-auth-microservice/config"
	"github.com/amida-tech/amida-auth-microservice/internal/domain"
)

// JWTSigner issues and validates bearer tokens. The signing mode and key
// material are fixed at construction and never change for the process
// lifetime.
type JWTSigner interface {
	Sign(user *domain.User) (string, error)
	Parse(token string) (*jwt.Token, jwt.MapClaims, error)
	TTL() time.Duration
}

type jwtSigner struct {
	ttl       time.Duration
	hmacKey   []byte
	private   *rsa.PrivateKey
	publicKey *rsa.PublicKey
}

func NewJWTSigner(cfg *config.Config) (JWTSigner, error) {
	s := &jwtSigner{ttl: time.Duration(cfg.JWTTTL) * time.Second}
	switch cfg.JWTMode {
	case "hmac", "":
		if cfg.JWTSecret == "" {
			return nil, errors.New("hmac mode requires JWT_SECRET")
		}
		s.hmacKey = []byte(cfg.JWTSecret)
	case "rsa":
		privPEM, err := os.ReadFile(cfg.JWTPrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
		pubPEM, err := os.ReadFile(cfg.JWTPublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read public key: %w", err)
		}
		priv, err := jwt.ParseRSAPrivateKeyFromPEM(privPEM)
		if err != nil {
			return nil, err
		}
		pub, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
		if err != nil {
			return nil, err
		}
		s.private = priv
		s.publicKey = pub
	default:
		return nil, fmt.Errorf("unknown jwt mode %q", cfg.JWTMode)
	}
	return s, nil
}

func (s *jwtSigner) TTL() time.Duration { return s.ttl }

// Sign issues a token whose claims carry the user's identity and scopes.
func (s *jwtSigner) Sign(user *domain.User) (string, error) {
	token := jwt.New(jwt.GetSigningMethod(s.method()))
	now := time.Now().UTC()
	claims := token.Claims.(jwt.MapClaims)
	claims["sub"] = user.UUID
	claims["id"] = user.ID
	claims["uuid"] = user.UUID
	claims["username"] = user.Username
	claims["email"] = user.Email
	claims["scopes"] = user.Scopes
	claims["verifiedContactMethods"] = user.VerifiedContactMethods
	claims["exp"] = now.Add(s.ttl).Unix()
	claims["iat"] = now.Unix()
	if s.hmacKey != nil {
		return token.SignedString(s.hmacKey)
	}
	return token.SignedString(s.private)
}

func (s *jwtSigner) Parse(tokenStr string) (*jwt.Token, jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{s.method()}), jwt.WithLeeway(30*time.Second))
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if s.hmacKey != nil {
			return s.hmacKey, nil
		}
		return s.publicKey, nil
	})
	return token, claims, err
}

func (s *jwtSigner) method() string {
	if s.hmacKey != nil {
		return jwt.SigningMethodHS256.Alg()
	}
	return jwt.SigningMethodRS256.Alg()
}
