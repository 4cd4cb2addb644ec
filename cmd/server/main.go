package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"localchat/internal/config"
)

const releaseVersion = "0.1.0"

func main() {
	log.SetFlags(0)
	cfg := &config.Config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

func newCmd(cfg *config.Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("LOCALCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "localchat",
		Short:         "A two-user chat room synchronized through a shared key-value store, with a side of tic-tac-toe.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: LOCALCHAT_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: LOCALCHAT_PORT)")
	fs.StringVar(&cfg.RedisURL, "redis-url", "redis://localhost:6379", "shared store backend (env: LOCALCHAT_REDIS_URL)")
	fs.StringVar(&cfg.RoomCode, "room-code", "0000", "shared secret gating the room (env: LOCALCHAT_ROOM_CODE)")
	fs.StringVar(&cfg.SessionSecret, "session-secret", "", "key for signing session tokens (env: LOCALCHAT_SESSION_SECRET)")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", 2*time.Second, "heartbeat and sync cadence per tab (env: LOCALCHAT_POLL_INTERVAL)")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "log level: debug, info, warn, error (env: LOCALCHAT_LOG_LEVEL)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("localchat v{{.Version}}\n")
	cmd.SilenceUsage = true

	return cmd
}
