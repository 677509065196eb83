package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Nixie-Tech-LLC/signage/internal/config"
	"github.com/Nixie-Tech-LLC/signage/internal/logger"
	"github.com/Nixie-Tech-LLC/signage/internal/mqtt"
	"github.com/Nixie-Tech-LLC/signage/internal/player"
)

var rootCmd = &cobra.Command{
	Use:          "signage-player",
	Short:        "Headless playlist player for one display unit",
	Long:         `Polls the server for the unit's resolved playlist, rotates items and reports heartbeats.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	flags := rootCmd.Flags()
	flags.String("server-url", "http://localhost:8080", "signage server base URL")
	flags.String("unit", "", "unit id or hostname")
	flags.Duration("poll-interval", player.DefaultPollInterval, "playlist poll interval")
	flags.Duration("heartbeat-interval", player.DefaultHeartbeatInterval, "heartbeat interval")
	flags.String("mqtt-broker-url", "", "publish heartbeats over MQTT instead of HTTP")
	flags.String("log-level", "info", "zerolog level")
	flags.String("log-file", "", "also write JSON logs to this rotated file")

	for _, name := range []string{"server-url", "unit", "poll-interval", "heartbeat-interval", "mqtt-broker-url", "log-level", "log-file"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadPlayer(viper.GetViper())
	if err != nil {
		return err
	}
	closer, err := logger.Setup(logger.Options{Level: cfg.LogLevel, Environment: cfg.Environment, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer closer.Close()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source := &player.HTTPSource{BaseURL: cfg.ServerURL, Unit: cfg.Unit}

	var reporter player.Reporter = &player.HTTPReporter{HTTPSource: *source}
	if cfg.MQTTBrokerURL != "" {
		client, err := mqtt.Connect(cfg.MQTTBrokerURL, "signage-player-"+uuid.NewString()[:8])
		if err != nil {
			return err
		}
		defer client.Close()
		reporter = &player.MQTTReporter{Publisher: client, Hostname: cfg.Unit}
	}

	p := player.New(source, player.Options{
		PollInterval:      cfg.PollInterval,
		HeartbeatInterval: cfg.HeartbeatInterval,
		Reporter:          reporter,
		Observers:         []player.Observer{logSnapshot},
	})

	log.Info().Str("unit", cfg.Unit).Str("server", cfg.ServerURL).Msg("player starting")
	return p.Run(ctx)
}

func logSnapshot(s player.Snapshot) {
	ev := log.Info().
		Str("state", string(s.State)).
		Int("index", s.Index).
		Int("len", s.Len).
		Str("playlist_id", s.PlaylistID).
		Bool("offline", s.Offline)
	if s.Current != nil {
		ev = ev.Str("content_id", s.Current.ID).
			Str("title", s.Current.Title).
			Str("url", s.Current.URL).
			Time("until", s.Deadline)
	}
	ev.Msg("now showing")
}
