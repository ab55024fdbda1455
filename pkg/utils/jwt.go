package utils

import (
	"errors"
	"fmt"
	"time"

	"go-bpm/internal/common/models"
	"go-bpm/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "go-bpm"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrUnknownKind  = errors.New("unknown actor kind")
)

// ActorClaims is the token payload. Subject holds the actor id and Kind
// selects both the collection it lives in and the key that signed it.
type ActorClaims struct {
	Kind models.ActorKind `json:"kind"`
	jwt.RegisteredClaims
}

// TokenSigner issues and verifies actor tokens, one HMAC key per actor kind.
type TokenSigner struct {
	keys map[models.ActorKind][]byte
	ttl  time.Duration
	now  func() time.Time
}

func NewTokenSigner(cfg *config.Config) *TokenSigner {
	return &TokenSigner{
		keys: map[models.ActorKind][]byte{
			models.ActorOwner:    []byte(cfg.OwnerTokenSecret),
			models.ActorEmployee: []byte(cfg.EmployeeSecret),
			models.ActorAdmin:    []byte(cfg.AdminTokenSecret),
			models.ActorSupport:  []byte(cfg.SupportSecret),
		},
		ttl: cfg.TokenTTL,
		now: time.Now,
	}
}

// TTL is the lifetime of issued tokens.
func (s *TokenSigner) TTL() time.Duration {
	return s.ttl
}

func (s *TokenSigner) GenerateToken(kind models.ActorKind, actorID string) (string, error) {
	key, ok := s.keys[kind]
	if !ok || !kind.Valid() {
		return "", ErrUnknownKind
	}
	if actorID == "" {
		return "", errors.New("actor id is required")
	}

	now := s.now().UTC()
	claims := ActorClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   actorID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks the kind claim against the allow-list before
// verifying the signature with that kind's key only.
func (s *TokenSigner) ValidateToken(tokenString string) (*ActorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ActorClaims{}, func(t *jwt.Token) (interface{}, error) {
		claims, ok := t.Claims.(*ActorClaims)
		if !ok || !claims.Kind.Valid() {
			return nil, ErrUnknownKind
		}
		key, ok := s.keys[claims.Kind]
		if !ok {
			return nil, ErrUnknownKind
		}
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, ErrUnknownKind) {
			return nil, ErrUnknownKind
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*ActorClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
