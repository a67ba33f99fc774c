package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the identity contained in a JWT.
type Claims struct {
	Sub   string
	Email string
	Name  string
	Exp   int64
	Iat   int64
}

// tokenClaims is the wire form: registered claims plus the profile fields.
type tokenClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

const devSecret = "dev-secret"

var (
	ErrMissingSecret = errors.New("jwt secret not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

// Signer issues and verifies HS256 tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner builds a signer. An empty secret is only accepted outside production.
func NewSigner(secret string, production bool) (*Signer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		if production {
			return nil, ErrMissingSecret
		}
		secret = devSecret
	}
	return &Signer{secret: []byte(secret), ttl: 24 * time.Hour, now: time.Now}, nil
}

// WithTTL returns a copy of the signer issuing tokens valid for ttl.
func (s *Signer) WithTTL(ttl time.Duration) *Signer {
	cp := *s
	if ttl > 0 {
		cp.ttl = ttl
	}
	return &cp
}

// Sign issues a token for claims. Iat and Exp default to now and now+ttl.
func (s *Signer) Sign(claims Claims) (string, error) {
	if claims.Sub == "" {
		return "", errors.New("sub is required")
	}

	now := s.now().UTC()
	issued := now
	if claims.Iat != 0 {
		issued = time.Unix(claims.Iat, 0)
	}
	expires := now.Add(s.ttl)
	if claims.Exp != 0 {
		expires = time.Unix(claims.Exp, 0)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Email: claims.Email,
		Name:  claims.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Sub,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of a token and returns its claims.
// Every failure wraps ErrInvalidToken.
func (s *Signer) Verify(token string) (Claims, error) {
	var parsed tokenClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if parsed.Subject == "" {
		return Claims{}, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}

	claims := Claims{Sub: parsed.Subject, Email: parsed.Email, Name: parsed.Name}
	if parsed.ExpiresAt != nil {
		claims.Exp = parsed.ExpiresAt.Unix()
	}
	if parsed.IssuedAt != nil {
		claims.Iat = parsed.IssuedAt.Unix()
	}
	return claims, nil
}
