package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rolegate/authd/internal/core/ports"
)

// ServiceTokenConfig describes the token this service presents to others.
type ServiceTokenConfig struct {
	ID          string
	Issuer      string
	Subject     string
	Validity    time.Duration
	Secret      string
	Permissions []string
}

// ServiceTokenIssuer mints service-to-service tokens. They are not tied to
// any user and are signed with their own key.
type ServiceTokenIssuer struct {
	tokens ports.TokenService
	cfg    ServiceTokenConfig
	key    []byte
}

func NewServiceTokenIssuer(tokens ports.TokenService, cfg ServiceTokenConfig) (*ServiceTokenIssuer, error) {
	if cfg.Subject == "" {
		return nil, fmt.Errorf("service token: subject is required")
	}
	if cfg.Validity <= 0 {
		return nil, fmt.Errorf("service token: validity must be positive, got %s", cfg.Validity)
	}
	key, err := DecodeSigningKey(cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("service token: %w", err)
	}
	return &ServiceTokenIssuer{tokens: tokens, cfg: cfg, key: key}, nil
}

// Issue returns a fresh token. Without a configured id every token gets a
// random jti.
func (i *ServiceTokenIssuer) Issue() (string, error) {
	id := i.cfg.ID
	if id == "" {
		id = uuid.NewString()
	}

	var claims map[string]any
	if len(i.cfg.Permissions) > 0 {
		claims = map[string]any{claimPermissions: i.cfg.Permissions}
	}

	return i.tokens.IssueToken(ports.TokenParams{
		ID:       id,
		Issuer:   i.cfg.Issuer,
		Subject:  i.cfg.Subject,
		Validity: i.cfg.Validity,
		Key:      i.key,
		Claims:   claims,
	})
}
