package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Nixie-Tech-LLC/signage/internal/db"
	"github.com/Nixie-Tech-LLC/signage/internal/heartbeat"
	"github.com/Nixie-Tech-LLC/signage/internal/schedule"
)

const shutdownTimeout = 10 * time.Second

var rootCmd = &cobra.Command{
	Use:          "signage-server",
	Short:        "Digital signage backend",
	Long:         `Serves the admin API, resolves playlists for displays and tracks unit liveness.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, closer, err := LoadEnvironment()
		if err != nil {
			return err
		}
		defer closer.Close()

		store, err := db.Open(cmd.Context(), env.DatabaseDriver, env.DatabaseURL)
		if err != nil {
			return err
		}
		log.Info().Str("driver", env.DatabaseDriver).Msg("migrations applied")
		return store.Close()
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo fleet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, closer, err := LoadEnvironment()
		if err != nil {
			return err
		}
		defer closer.Close()

		store, err := db.Open(cmd.Context(), env.DatabaseDriver, env.DatabaseURL)
		if err != nil {
			return err
		}
		defer store.Close()
		return db.Seed(cmd.Context(), store, time.Now().UTC())
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("server-address", ":8080", "HTTP listen address")
	flags.String("database-driver", "sqlite", "postgres or sqlite")
	flags.String("database-url", "signage.db", "database DSN or SQLite file")
	flags.String("log-level", "info", "zerolog level")
	flags.String("log-file", "", "also write JSON logs to this rotated file")

	for _, name := range []string{"server-address", "database-driver", "database-url", "log-level", "log-file"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}

	serveCmd.Flags().Bool("seed", false, "load the demo fleet before serving")
	_ = viper.BindPFlag("seed", serveCmd.Flags().Lookup("seed"))

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	env, closer, err := LoadEnvironment()
	if err != nil {
		return err
	}
	defer closer.Close()
	if err := env.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := db.Open(ctx, env.DatabaseDriver, env.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	if env.Seed {
		if err := db.Seed(ctx, store, time.Now().UTC()); err != nil {
			return err
		}
	}
	if err := EnsureAdmin(ctx, store, env); err != nil {
		return err
	}

	playlistCache, err := InitCache(ctx, env)
	if err != nil {
		return err
	}
	if c, ok := playlistCache.(io.Closer); ok {
		defer c.Close()
	}
	storageSystem, err := InitStorage(env)
	if err != nil {
		return err
	}
	resolver := schedule.NewResolver(store, playlistCache, env.DefaultPlaylistID)

	hb := heartbeat.NewService(store, env.HeartbeatTimeout)
	go hb.RunSweeper(ctx, env.SweepInterval)

	broker, err := InitMQTT(ctx, env, hb)
	if err != nil {
		return err
	}
	if broker != nil {
		defer broker.Close()
	}

	tmpl, err := LoadTemplates()
	if err != nil {
		return err
	}

	if env.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	RegisterRoutes(r, env, store, storageSystem, resolver, hb, tmpl)

	srv := &http.Server{
		Addr:              env.ServerAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", env.ServerAddress).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
