package service

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/rolegate/authd/internal/core/domain"
	"github.com/rolegate/authd/internal/core/ports"
)

const (
	claimPermissions = "permissions"
	claimRoles       = "roles"

	minKeyBytes = 32
)

var errWeakKey = errors.New("signing key must be at least 256 bits")

// DecodeSigningKey decodes a base64 secret into an HMAC key of at least 256 bits.
func DecodeSigningKey(secret string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}
	if len(key) < minKeyBytes {
		return nil, errWeakKey
	}
	return key, nil
}

// signingMethodFor picks the strongest HMAC variant the key length allows.
func signingMethodFor(key []byte) jwt.SigningMethod {
	switch {
	case len(key) >= 64:
		return jwt.SigningMethodHS512
	case len(key) >= 48:
		return jwt.SigningMethodHS384
	default:
		return jwt.SigningMethodHS256
	}
}

type tokenService struct {
	key      []byte
	validity time.Duration
	clock    ports.Clock
	log      zerolog.Logger
}

// NewTokenService returns a TokenService signing with the base64 secret.
func NewTokenService(secret string, validity time.Duration, clock ports.Clock, log zerolog.Logger) (ports.TokenService, error) {
	key, err := DecodeSigningKey(secret)
	if err != nil {
		return nil, err
	}
	if validity <= 0 {
		return nil, fmt.Errorf("token validity must be positive, got %s", validity)
	}
	return &tokenService{key: key, validity: validity, clock: clock, log: log}, nil
}

// Issue signs a token for a. The permissions claim holds a's effective
// permissions; a roles claim is added only when a exposes role names.
func (s *tokenService) Issue(a domain.Authority, extra map[string]any) (string, error) {
	claims := make(map[string]any, len(extra)+2)
	for k, v := range extra {
		claims[k] = v
	}
	claims[claimPermissions] = a.EffectivePermissions().Names()
	if rb, ok := a.(domain.RoleBearer); ok {
		claims[claimRoles] = rb.RoleNames()
	}

	return s.IssueToken(ports.TokenParams{
		Subject:  a.Subject(),
		Validity: s.validity,
		Key:      s.key,
		Claims:   claims,
	})
}

// IssueToken is the low-level signing primitive. An empty key falls back to
// the service key.
func (s *tokenService) IssueToken(p ports.TokenParams) (string, error) {
	key := p.Key
	if len(key) == 0 {
		key = s.key
	}
	if len(key) < minKeyBytes {
		return "", errWeakKey
	}

	now := s.clock.Now()
	claims := jwt.MapClaims{}
	for k, v := range p.Claims {
		claims[k] = v
	}
	claims["sub"] = p.Subject
	claims["iat"] = jwt.NewNumericDate(now)
	claims["exp"] = jwt.NewNumericDate(now.Add(p.Validity))
	if p.ID != "" {
		claims["jti"] = p.ID
	}
	if p.Issuer != "" {
		claims["iss"] = p.Issuer
	}

	signed, err := jwt.NewWithClaims(signingMethodFor(key), claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseClaims verifies the signature and expiry of token against the clock.
// Every failure wraps domain.ErrUnauthorised.
func (s *tokenService) ParseClaims(token string) (*ports.TokenClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.key, nil },
		jwt.WithValidMethods([]string{
			jwt.SigningMethodHS256.Alg(),
			jwt.SigningMethodHS384.Alg(),
			jwt.SigningMethodHS512.Alg(),
		}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		s.log.Debug().Err(err).Msg("token rejected")
		return nil, fmt.Errorf("%w: failed to parse JWT: %w", domain.ErrUnauthorised, err)
	}

	out := &ports.TokenClaims{
		Permissions: stringsClaim(claims[claimPermissions]),
		Roles:       stringsClaim(claims[claimRoles]),
	}
	out.Subject, _ = claims.GetSubject()
	out.Issuer, _ = claims.GetIssuer()
	out.ID, _ = claims["jti"].(string)
	if iat, _ := claims.GetIssuedAt(); iat != nil {
		out.IssuedAt = iat.Time
	}
	if exp, _ := claims.GetExpirationTime(); exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// IsValid reports whether token belongs to expectedSubject and has not yet
// expired.
func (s *tokenService) IsValid(token, expectedSubject string) bool {
	claims, err := s.ParseClaims(token)
	if err != nil {
		return false
	}
	subjectOK := claims.Subject == expectedSubject
	notExpired := s.clock.Now().Before(claims.ExpiresAt)
	return subjectOK && notExpired
}

// ExtractPrincipal rebuilds a principal from the token claims alone.
func (s *tokenService) ExtractPrincipal(token string) (*domain.Principal, error) {
	claims, err := s.ParseClaims(token)
	if err != nil {
		return nil, err
	}
	return &domain.Principal{
		Email:       claims.Subject,
		Permissions: domain.PermissionSetOf(claims.Permissions...),
		Roles:       claims.Roles,
	}, nil
}

// stringsClaim reads a JSON array claim. Any other shape yields nil.
func stringsClaim(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch v := it.(type) {
		case nil:
		case string:
			out = append(out, v)
		default:
			out = append(out, fmt.Sprint(v))
		}
	}
	return out
}
