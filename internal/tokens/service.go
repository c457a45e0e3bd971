// Package tokens issues and verifies RS256 bearer tokens.
package tokens

import (
	"crypto/rsa"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vaultledger/vaultledger/internal/shared"
)

// DefaultTTL applies when Config.TTL is zero.
const DefaultTTL = time.Hour

// Claims is the token body. Subject carries the stringified user id.
type Claims struct {
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Config tunes token issuance.
type Config struct {
	TTL    time.Duration
	Issuer string
}

// Service is stateless; safe for concurrent use.
type Service struct {
	private *rsa.PrivateKey
	public  *rsa.PublicKey
	ttl     time.Duration
	issuer  string
	now     func() time.Time
}

// NewService constructs a token service from the loaded key pair.
func NewService(private *rsa.PrivateKey, public *rsa.PublicKey, cfg Config) (*Service, error) {
	if private == nil || public == nil {
		return nil, shared.Wrap(shared.ErrConfig, "tokens: key pair required", nil)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{private: private, public: public, ttl: ttl, issuer: cfg.Issuer, now: time.Now}, nil
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// TTL reports the configured token lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for the given identity.
func (s *Service) Issue(userID int64, role string) (string, error) {
	issuedAt := s.now().Truncate(time.Second)
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.private)
	if err != nil {
		return "", shared.Wrap(shared.ErrProcess, "tokens: sign", err)
	}
	return signed, nil
}

// Verify checks the signature before any claim. A signature-valid token past
// its expiry yields shared.ErrTokenExpired; every other failure yields
// shared.ErrTokenInvalid.
func (s *Service) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.public, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, shared.ErrTokenExpired
		}
		return nil, shared.ErrTokenInvalid
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, shared.ErrTokenInvalid
	}
	if sub, err := strconv.ParseInt(claims.Subject, 10, 64); err != nil || sub != claims.UserID {
		return nil, shared.ErrTokenInvalid
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, shared.ErrTokenInvalid
	}
	return claims, nil
}

// Identity converts verified claims into the request identity.
func (c *Claims) Identity() *shared.Identity {
	return &shared.Identity{UserID: c.UserID, Role: c.Role}
}
