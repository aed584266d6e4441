package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/minglehq/mingle/backend/internal/auth"
	"github.com/minglehq/mingle/backend/internal/config"
	"github.com/minglehq/mingle/backend/internal/database"
	"github.com/minglehq/mingle/backend/internal/logging"
	"github.com/minglehq/mingle/backend/internal/messages"
	"github.com/minglehq/mingle/backend/internal/posts"
	"github.com/minglehq/mingle/backend/internal/realtime"
	"github.com/minglehq/mingle/backend/internal/server"
	"github.com/minglehq/mingle/backend/internal/social"
	"github.com/minglehq/mingle/backend/internal/stories"
	"github.com/minglehq/mingle/backend/internal/users"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "mingle-api",
		Short: "Mingle social backend service",
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
	cmd.PersistentFlags().String("database-dsn", defaults.GetString("database.dsn"), "MySQL DSN")
	cmd.PersistentFlags().String("redis-address", defaults.GetString("redis.address"), "Redis address for the follower cache (empty disables caching)")
	cmd.PersistentFlags().String("uploads-dir", defaults.GetString("uploads.dir"), "Directory for uploaded images")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("token.ttl_minutes"), "Session token TTL in minutes")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Session signing secret (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.dsn", "database-dsn")
	bindFlag(cmd, "redis.address", "redis-address")
	bindFlag(cmd, "uploads.dir", "uploads-dir")
	bindFlag(cmd, "token.ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
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

	db, err := database.Open(appConfig.DatabaseDSN, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := os.MkdirAll(appConfig.UploadsDir, 0o755); err != nil {
		return err
	}

	var followerCache *social.FollowerCache
	if appConfig.RedisAddress != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: appConfig.RedisAddress})
		defer redisClient.Close()
		followerCache = social.NewFollowerCache(redisClient, 0)
		logger.Info("follower cache enabled", zap.String("address", appConfig.RedisAddress))
	}

	userService, err := users.NewService(users.ServiceConfig{Database: db})
	if err != nil {
		return err
	}
	postService, err := posts.NewService(posts.ServiceConfig{Database: db})
	if err != nil {
		return err
	}
	socialService, err := social.NewService(social.ServiceConfig{Database: db, Cache: followerCache, Logger: logger})
	if err != nil {
		return err
	}
	messageService, err := messages.NewService(messages.ServiceConfig{Database: db})
	if err != nil {
		return err
	}
	storyService, err := stories.NewService(stories.ServiceConfig{Database: db})
	if err != nil {
		return err
	}

	tokenIssuer := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        "mingle-auth",
		Audience:      "mingle-api",
		TokenTTL:      time.Duration(appConfig.TokenTTLMinutes) * time.Minute,
	})

	presence := realtime.NewRegistry()
	hub, err := realtime.NewHub(realtime.HubConfig{
		Presence: presence,
		Messages: messageService,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	notifier, err := realtime.NewNotifier(realtime.NotifierConfig{
		Directory: server.Directory{Users: userService, Social: socialService, Posts: postService},
		Delivery:  hub,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Users:      userService,
		Posts:      postService,
		Social:     socialService,
		Messages:   messageService,
		Stories:    storyService,
		Tokens:     tokenIssuer,
		Hub:        hub,
		Notifier:   notifier,
		UploadsDir: appConfig.UploadsDir,
		Logger:     logger,
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
