package local

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"attachr/internal/domain"
)

// Query parameters carried by a signed local URL.
const (
	ParamExpires   = "expires"
	ParamSignature = "signature"
)

type urlClaims struct {
	Method string `json:"m"`
	jwt.RegisteredClaims
}

// Signer issues and checks HS256 signatures over method, key and expiry.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner creates a Signer using secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// Sign returns the expiry timestamp and signature for a GET of key.
func (s *Signer) Sign(key string, ttl time.Duration) (expires int64, signature string, err error) {
	exp := s.now().Add(ttl).Truncate(time.Second)
	claims := urlClaims{
		Method: http.MethodGet,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   key,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return 0, "", fmt.Errorf("signing url: %w", err)
	}
	return exp.Unix(), signed, nil
}

// Verify checks that signature authorizes method on key until expires.
func (s *Signer) Verify(method, key, expires, signature string) error {
	if signature == "" || expires == "" {
		return domain.ErrInvalidSignature
	}
	expUnix, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return domain.ErrInvalidSignature
	}

	claims := &urlClaims{}
	_, err = jwt.ParseWithClaims(signature, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.ErrSignatureExpired
		}
		return domain.ErrInvalidSignature
	}

	if claims.Subject != key || claims.Method != method {
		return domain.ErrInvalidSignature
	}
	if claims.ExpiresAt == nil || claims.ExpiresAt.Unix() != expUnix {
		return domain.ErrInvalidSignature
	}
	return nil
}
