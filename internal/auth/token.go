package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token verification failures. All of them wrap ErrToken.
var (
	ErrToken            = errors.New("invalid token")
	ErrMalformed        = fmt.Errorf("%w: malformed", ErrToken)
	ErrInvalidSignature = fmt.Errorf("%w: signature mismatch", ErrToken)
	ErrExpired          = fmt.Errorf("%w: expired", ErrToken)
)

var errMissingIdentity = errors.New("sub and id claims are required")

// Claims is the payload of an access token.
type Claims struct {
	UserID int64  `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Validate is invoked by the jwt parser after the signature has been
// checked.
func (c *Claims) Validate() error {
	if strings.TrimSpace(c.Subject) == "" || c.UserID < 1 {
		return errMissingIdentity
	}
	return nil
}

// Username returns the subject claim.
func (c Claims) Username() string {
	return c.Subject
}

// SigningConfig holds the process-wide token settings shared by the issuer
// and verifier.
type SigningConfig struct {
	Secret    []byte
	Algorithm string
}

func (c SigningConfig) method() (*jwt.SigningMethodHMAC, error) {
	if len(c.Secret) == 0 {
		return nil, errors.New("signing secret is required")
	}
	alg := c.Algorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
	}
	return method, nil
}

// Option customises an issuer or verifier.
type Option func(*clock)

type clock struct {
	now func() time.Time
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(c *clock) {
		c.now = now
	}
}

func newClock(opts []Option) clock {
	c := clock{now: time.Now}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// TokenIssuer signs access tokens.
type TokenIssuer struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	clock  clock
}

func NewTokenIssuer(cfg SigningConfig, opts ...Option) (*TokenIssuer, error) {
	method, err := cfg.method()
	if err != nil {
		return nil, err
	}
	return &TokenIssuer{
		secret: cfg.Secret,
		method: method,
		clock:  newClock(opts),
	}, nil
}

// Issue returns a compact signed token for the given identity that expires
// exactly lifetime after its issued-at time.
func (i *TokenIssuer) Issue(username string, userID int64, role string, lifetime time.Duration) (string, error) {
	if strings.TrimSpace(username) == "" || userID < 1 {
		return "", errMissingIdentity
	}
	// Claims carry second precision; truncate so exp - iat == lifetime.
	lifetime = lifetime.Truncate(time.Second)
	if lifetime <= 0 {
		return "", errors.New("token lifetime must be at least one second")
	}
	now := i.clock.now().UTC().Truncate(time.Second)
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	}
	token := jwt.NewWithClaims(i.method, claims)
	return token.SignedString(i.secret)
}

// TokenVerifier validates access tokens.
type TokenVerifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewTokenVerifier(cfg SigningConfig, opts ...Option) (*TokenVerifier, error) {
	method, err := cfg.method()
	if err != nil {
		return nil, err
	}
	c := newClock(opts)
	return &TokenVerifier{
		secret: cfg.Secret,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{method.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(c.now),
		),
	}, nil
}

// Verify checks the signature and expiry of tokenString and returns its
// claims. Errors are one of ErrMalformed, ErrInvalidSignature or ErrExpired.
func (v *TokenVerifier) Verify(tokenString string) (Claims, error) {
	var claims Claims
	_, err := v.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return Claims{}, classifyTokenError(err)
	}
	return claims, nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, errMissingIdentity),
		errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
