package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rolegate/authd/internal/api/metrics"
	"github.com/rolegate/authd/internal/core/service"
	"github.com/rolegate/authd/internal/infrastructure/security"
	"github.com/rolegate/authd/pkg/logger"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue tokens",
}

var tokenServiceCmd = &cobra.Command{
	Use:   "service",
	Short: "Print a service-to-service token",
	Long: `Print a token for SERVICE_TOKEN_SUBJECT signed with SERVICE_TOKEN_SECRET.
When SERVICE_TOKEN_SECRET is unset the SECURITY_SECRET key is used.`,
	Example: `  authd token service
  SERVICE_TOKEN_SUBJECT=billing SERVICE_TOKEN_PERMISSIONS=user::view::all authd token service`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		tokens, err := service.NewTokenService(cfg.Security.Secret, cfg.Security.TokenValidity, security.SystemClock{}, logger.Component("token"))
		if err != nil {
			return err
		}

		secret := cfg.ServiceToken.Secret
		if secret == "" {
			secret = cfg.Security.Secret
		}
		issuer, err := service.NewServiceTokenIssuer(tokens, service.ServiceTokenConfig{
			ID:          cfg.ServiceToken.ID,
			Issuer:      cfg.ServiceToken.Issuer,
			Subject:     cfg.ServiceToken.Subject,
			Validity:    cfg.ServiceToken.Validity,
			Secret:      secret,
			Permissions: cfg.ServiceToken.Permissions,
		})
		if err != nil {
			return err
		}

		token, err := issuer.Issue()
		if err != nil {
			return err
		}
		metrics.TokensIssuedTotal.WithLabelValues("service").Inc()

		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	},
}

func init() {
	tokenCmd.AddCommand(tokenServiceCmd)
}
