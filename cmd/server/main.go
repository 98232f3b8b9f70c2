package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/roomrelay/internal/app"
	"github.com/vovakirdan/roomrelay/internal/config"
	"github.com/vovakirdan/roomrelay/internal/log"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "roomrelay-server [port]",
	Short: "Run the room chat relay",
	Long: "Accept TCP clients speaking the line protocol, let them create and join rooms, " +
		"and relay each message to the other members of the sender's room.",
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if len(args) == 1 {
			if err := flags.Set("port", args[0]); err != nil {
				return fmt.Errorf("invalid port %q: %w", args[0], err)
			}
		}

		bootLogger := log.New("info")
		cfg, path, err := config.Load(bootLogger, configPath, flags)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger := log.New(cfg.LogLevel)
		logger.Info().
			Str("config", path).
			Str("addr", cfg.Addr()).
			Str("http_addr", cfg.HTTPAddr).
			Msg("starting roomrelay server")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := app.New(cfg, logger).Run(ctx); err != nil {
			return fmt.Errorf("server exited: %w", err)
		}
		logger.Info().Msg("server stopped")
		return nil
	},
}

func init() {
	defaults := config.Default()

	flags := rootCmd.Flags()
	flags.StringVar(&configPath, "config", "", "path to config file")
	flags.String("host", defaults.Host, "TCP listen host")
	flags.Int("port", defaults.Port, "TCP listen port")
	flags.String("http-addr", defaults.HTTPAddr, "HTTP listen address for WebSocket and room listing (empty disables)")
	flags.String("log-level", defaults.LogLevel, "log level (debug, info, warn, error, disabled)")
	flags.Bool("color", defaults.Color, "colorize server notices")
	flags.Int("read-buffer-bytes", defaults.ReadBufferBytes, "maximum bytes per TCP read")
	flags.Duration("write-timeout", defaults.WriteTimeout, "per-message write timeout")
	flags.Duration("shutdown-timeout", defaults.ShutdownTimeout, "graceful shutdown timeout")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "roomrelay-server:", err)
		os.Exit(1)
	}
}
