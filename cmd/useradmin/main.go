package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vculp/identity-server/internal/application"
	"github.com/vculp/identity-server/internal/infrastructure/config"
	"github.com/vculp/identity-server/internal/infrastructure/database"
	"github.com/vculp/identity-server/internal/infrastructure/repository"
	"github.com/vculp/identity-server/internal/interfaces/cli/useradmin"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// session is the state shared by every command once the database is open
type session struct {
	db      *database.Postgres
	logger  *zap.Logger
	console *useradmin.Console
}

func (s *session) close() {
	s.db.Close()
	_ = s.logger.Sync()
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.NewPostgres(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	manager := application.NewUserManager(repository.NewUserRepository(db, logger), logger)
	console := useradmin.NewConsole(cmd.InOrStdin(), cmd.OutOrStdout(), secretReader(cmd), manager)

	return &session{db: db, logger: logger, console: console}, nil
}

func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		return zap.NewDevelopment()
	}
	// Keep the console readable: only problems are logged.
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "useradmin",
		Short:        "Administer identity server users",
		Long:         "useradmin creates users and resets passwords in the identity server database. Without a subcommand it shows an interactive menu.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()
			return s.console.Run(cmd.Context())
		},
	}
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	rootCmd.AddCommand(newCreateCmd(), newResetPasswordCmd())
	return rootCmd
}
