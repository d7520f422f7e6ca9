package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/issuer-allocation/cmd/cli/commands"
	"github.com/jakechorley/issuer-allocation/internal/config"
	"github.com/jakechorley/issuer-allocation/pkg/utils/logging"
)

var (
	env string
	app = &commands.AppContext{}
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "issuer-allocation",
		Short: "Issuer Allocation CLI - Split issuer reviews fairly across a team",
		Long: `A CLI tool that assigns issuers to team members by country tier and point weight,
then reports how each member's workload compares with the team average.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.Logger != nil {
				_ = app.Logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	_ = rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(commands.AllocateCmd(app))
	rootCmd.AddCommand(commands.ValidateCmd(app))
	rootCmd.AddCommand(commands.TiersCmd(app))
	rootCmd.AddCommand(commands.InteractiveCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up the logger and config. The Sheets client is created on first use.
func initApp(cmd *cobra.Command) error {
	var err error
	app.Env = env
	app.Ctx = cmd.Context()
	if app.Ctx == nil {
		app.Ctx = context.Background()
	}

	app.Logger, err = logging.InitLogger(env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env), zap.String("command", cmd.Name()))

	if cmd.Annotations[commands.SkipConfigAnnotation] == "true" {
		return nil
	}

	app.Logger.Info("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully",
		zap.Int("team_members", len(app.Cfg.TeamMembers)),
		zap.String("duplicate_policy", app.Cfg.DuplicatePolicy))

	return nil
}
