package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rolegate/authd/internal/core/domain"
	"github.com/rolegate/authd/internal/core/ports"
)

const bearerPrefix = "Bearer "

// Authentication modes.
const (
	ModeDatabase  = "database"
	ModeStateless = "stateless"
)

// bearerToken returns the credential of a "Bearer <token>" header. The
// prefix is matched case-sensitively.
func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	return header[len(bearerPrefix):], true
}

// NewAuthenticator picks the authentication strategy once, at startup.
func NewAuthenticator(useDatabase bool, tokens ports.TokenService, users ports.UserRepository, log zerolog.Logger) ports.Authenticator {
	if useDatabase {
		return &databaseAuthenticator{tokens: tokens, users: users, log: log}
	}
	return &statelessAuthenticator{tokens: tokens, log: log}
}

// databaseAuthenticator trusts the token for identity only and re-resolves
// permissions from the store on every request.
type databaseAuthenticator struct {
	tokens ports.TokenService
	users  ports.UserRepository
	log    zerolog.Logger
}

func (a *databaseAuthenticator) Mode() string { return ModeDatabase }

func (a *databaseAuthenticator) ResolvePrincipal(ctx context.Context, header string) (*domain.Principal, error) {
	token, ok := bearerToken(header)
	if !ok {
		return nil, nil
	}

	claims, err := a.tokens.ParseClaims(token)
	if err != nil {
		return nil, err
	}

	user, err := a.users.FindByEmail(ctx, claims.Subject)
	if errors.Is(err, domain.ErrUserNotFound) {
		a.log.Debug().Str("subject", claims.Subject).Msg("token subject no longer exists")
		return nil, fmt.Errorf("%w: unknown subject", domain.ErrUnauthorised)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve principal: %w", err)
	}

	if !a.tokens.IsValid(token, user.Email) {
		return nil, fmt.Errorf("%w: token not valid for subject", domain.ErrUnauthorised)
	}
	return domain.PrincipalFromUser(user), nil
}

// statelessAuthenticator rebuilds the principal from the token claims and
// never touches the store.
type statelessAuthenticator struct {
	tokens ports.TokenService
	log    zerolog.Logger
}

func (a *statelessAuthenticator) Mode() string { return ModeStateless }

func (a *statelessAuthenticator) ResolvePrincipal(_ context.Context, header string) (*domain.Principal, error) {
	token, ok := bearerToken(header)
	if !ok {
		return nil, nil
	}

	principal, err := a.tokens.ExtractPrincipal(token)
	if err != nil {
		return nil, err
	}
	if !a.tokens.IsValid(token, principal.Email) {
		return nil, fmt.Errorf("%w: token not valid for subject", domain.ErrUnauthorised)
	}
	return principal, nil
}
