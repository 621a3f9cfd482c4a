package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"github.com/rolegate/authd/internal/pkg/config"
	"github.com/rolegate/authd/pkg/logger"
)

var (
	cfg *config.Config
	log zerolog.Logger

	prettyFlag bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "authd",
	Short: "Role and permission based authentication service.",
	Long: `authd authenticates users and authorizes their actions through roles and
permissions, issuing signed bearer tokens that carry the caller's permissions.

Configuration is read from the environment (SECURITY_SECRET is required).`,
	SilenceUsage:      true,
	PersistentPreRunE: loadRuntime,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&prettyFlag, "pretty", false, "human readable console logs")
	rootCmd.AddCommand(serveCmd, bootstrapCmd, tokenCmd)
}

// loadRuntime reads configuration and initialises the process logger before
// any subcommand runs.
func loadRuntime(cmd *cobra.Command, _ []string) error {
	loaded, err := config.LoadWith(cmd.Context(), envconfig.OsLookuper())
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	cfg = loaded

	logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  prettyFlag || cfg.IsDevelopment(),
		Output:  cmd.ErrOrStderr(),
		Service: "authd",
	})
	log = logger.Get()
	return nil
}
