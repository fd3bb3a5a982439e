package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"service-queue/internal/app"
	"service-queue/internal/config"
	"service-queue/internal/logging"
)

var cfgFile string

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "service-queue",
		Short:         "Walk-in service queue API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newEntryCmd(),
		newOperatorCmd(),
	)
	return rootCmd
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("host", defaults.GetString("app.host"), "HTTP listen host")
	cmd.PersistentFlags().String("port", defaults.GetString("app.port"), "HTTP listen port")
	cmd.PersistentFlags().String("db-driver", defaults.GetString("db.driver"), "Database driver (mysql, postgres, sqlite)")
	cmd.PersistentFlags().String("db-dsn", "", "Database DSN (overrides env)")
	cmd.PersistentFlags().String("flag-backend", defaults.GetString("flag.backend"), "Notification flag backend (redis, memory)")
	cmd.PersistentFlags().String("tenant-scope", defaults.GetString("tenant.scope"), "Tenant scope of the notification flag")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")

	bindFlag(cmd, "app.host", "host")
	bindFlag(cmd, "app.port", "port")
	bindFlag(cmd, "db.driver", "db-driver")
	bindFlag(cmd, "db.dsn", "db-dsn")
	bindFlag(cmd, "flag.backend", "flag-backend")
	bindFlag(cmd, "tenant.scope", "tenant-scope")
	bindFlag(cmd, "log.level", "log-level")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if _, err := config.LoadEnv(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return err
		}
		return nil
	}

	viper.SetConfigName("service-queue")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return err
		}
	}
	return nil
}

// bootstrap loads the configuration and builds the App for one command run.
func bootstrap(ctx context.Context) (*app.App, func(), error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Sync() //nolint:errcheck
		return nil, nil, err
	}

	cleanup := func() {
		if err := a.Close(context.Background()); err != nil {
			logger.Warn("close failed", zap.Error(err))
		}
		logger.Sync() //nolint:errcheck
	}
	return a, cleanup, nil
}

func runServer(ctx context.Context) error {
	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := bootstrap(signalCtx)
	if err != nil {
		return err
	}
	defer cleanup()

	return a.Serve(signalCtx)
}
