package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/securenotes/backend/internal/config"
	"github.com/securenotes/backend/internal/database"
	"github.com/securenotes/backend/internal/document"
	"github.com/securenotes/backend/internal/logging"
	"github.com/securenotes/backend/internal/ratelimit"
	"github.com/securenotes/backend/internal/server"
	"github.com/securenotes/backend/internal/session"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "securenotes-api",
		Short: "Securenotes encrypted document backend",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-driver", defaults.GetString("database.driver"), "Database driver (sqlite, postgres)")
	cmd.PersistentFlags().String("database-dsn", defaults.GetString("database.dsn"), "Database DSN (file path for sqlite)")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().Bool("trust-proxy", defaults.GetBool("rate.trust_proxy"), "Trust X-Real-IP / X-Forwarded-For headers")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.driver", "database-driver")
	bindFlag(cmd, "database.dsn", "database-dsn")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "rate.trust_proxy", "trust-proxy")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.Open(appConfig.DatabaseDriver, appConfig.DatabaseDSN, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	sessions, err := session.NewService(session.ServiceConfig{
		Database: db,
		Clock:    time.Now,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	documents, err := document.NewService(document.ServiceConfig{
		Database:    db,
		Clock:       time.Now,
		URLProvider: document.NewRandomURLProvider(),
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	var limiter *ratelimit.Limiter
	if appConfig.Rate.Enabled {
		limiter, err = ratelimit.NewLimiter(ratelimit.LimiterConfig{
			Policies: map[ratelimit.Class]ratelimit.Policy{
				ratelimit.ClassGlobal:        {Limit: appConfig.Rate.Global.Limit, Window: appConfig.Rate.Global.Window},
				ratelimit.ClassSessionCreate: {Limit: appConfig.Rate.SessionCreate.Limit, Window: appConfig.Rate.SessionCreate.Window},
				ratelimit.ClassSessionAccess: {Limit: appConfig.Rate.SessionAccess.Limit, Window: appConfig.Rate.SessionAccess.Window},
				ratelimit.ClassDocument:      {Limit: appConfig.Rate.Document.Limit, Window: appConfig.Rate.Document.Window},
			},
			Logger: logger,
		})
		if err != nil {
			return err
		}
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Sessions:       sessions,
		Documents:      documents,
		Limiter:        limiter,
		Logger:         logger,
		AllowedOrigins: appConfig.AllowedOrigins,
		TrustProxy:     appConfig.Rate.TrustProxy,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
