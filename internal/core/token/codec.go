// Package token encodes and decodes the signed, time-bounded bearer tokens
// used for access and refresh.
//
// Tokens are HS256 JWTs. The subject is the username; the "typ" claim carries
// the kind and "jti" makes every minted token unique. The signing key is
// supplied by configuration when the codec is built; extra verify-only keys
// allow a key to be replaced without code changes, selected by the "kid"
// header.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/wfm/task-system/internal/core/domain"
)

// Kind distinguishes access tokens from refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// DefaultLeeway is the clock skew tolerated when checking expiry.
const DefaultLeeway = 5 * time.Second

// MinSecretLength is the shortest HMAC secret the codec accepts.
const MinSecretLength = 32

var ErrWeakSecret = errors.New("token: signing secret too short")

// Key is a named HMAC secret.
type Key struct {
	ID     string
	Secret []byte
}

// Claims is the payload carried by every token.
type Claims struct {
	Role string `json:"role,omitempty"`
	Kind Kind   `json:"typ"`
	jwt.RegisteredClaims
}

// Option customises a Codec.
type Option func(*Codec)

// WithLeeway overrides DefaultLeeway.
func WithLeeway(d time.Duration) Option {
	return func(c *Codec) {
		if d >= 0 {
			c.leeway = d
		}
	}
}

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// WithVerifyKeys registers keys that are accepted for verification but never
// used for signing.
func WithVerifyKeys(keys ...Key) Option {
	return func(c *Codec) {
		for _, k := range keys {
			if k.ID != "" && len(k.Secret) > 0 {
				c.verify[k.ID] = k.Secret
			}
		}
	}
}

// Codec signs and verifies tokens. It holds no mutable state after
// construction and is safe for concurrent use.
type Codec struct {
	signing Key
	verify  map[string][]byte
	leeway  time.Duration
	now     func() time.Time
}

// NewCodec builds a Codec that signs with key.
func NewCodec(key Key, opts ...Option) (*Codec, error) {
	if len(key.Secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	c := &Codec{
		signing: key,
		verify:  make(map[string][]byte),
		leeway:  DefaultLeeway,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if key.ID != "" {
		c.verify[key.ID] = key.Secret
	}
	return c, nil
}

// Leeway returns the configured skew tolerance.
func (c *Codec) Leeway() time.Duration {
	return c.leeway
}

// Encode mints a token for subject that expires ttl from now.
func (c *Codec) Encode(subject string, role domain.Role, kind Kind, ttl time.Duration) (string, Claims, error) {
	now := c.now().UTC()
	claims := Claims{
		Role: string(role),
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if c.signing.ID != "" {
		t.Header["kid"] = c.signing.ID
	}

	raw, err := t.SignedString(c.signing.Secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return raw, claims, nil
}

// Decode verifies raw and returns its claims. The clock is read once and
// that instant is used for every time-based check.
func (c *Codec) Decode(raw string) (Claims, error) {
	now := c.now()

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, c.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(c.leeway),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, classify(err)
	}
	if claims.Subject == "" || claims.Kind == "" {
		return Claims{}, domain.ErrMalformedToken
	}
	return claims, nil
}

func (c *Codec) keyFunc(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return c.signing.Secret, nil
	}
	secret, ok := c.verify[kid]
	if !ok {
		return nil, fmt.Errorf("unknown key id %q", kid)
	}
	return secret, nil
}

// classify maps jwt parser errors onto the domain taxonomy.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", domain.ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", domain.ErrBadSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", domain.ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", domain.ErrMalformedToken, err)
	}
}
