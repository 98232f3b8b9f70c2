package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/roomrelay/internal/config"
	"github.com/vovakirdan/roomrelay/internal/log"
)

var (
	host     string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "roomrelay-client [port]",
	Short: "Interactive client for the room chat relay",
	Long: "Connect to a roomrelay server, print everything it sends and send each line " +
		"typed on stdin as one message. Use /createRoom, /joinRoom and /exitRoom to move between rooms.",
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		port := config.Default().Port
		if len(args) == 1 {
			p, err := strconv.Atoi(args[0])
			if err != nil || p <= 0 || p > 65535 {
				return fmt.Errorf("invalid port %q", args[0])
			}
			port = p
		}

		logger := log.NewWithWriter(os.Stderr, logLevel)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return run(ctx, net.JoinHostPort(host, strconv.Itoa(port)), os.Stdin, os.Stdout, logger)
	},
}

func init() {
	rootCmd.Flags().StringVar(&host, "host", "localhost", "server host")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error, disabled)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "roomrelay-client:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, addr string, in io.Reader, out io.Writer, logger *zerolog.Logger) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	logger.Info().Str("addr", addr).Msg("connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Unblock both loops when either side finishes.
	stopClose := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stopClose()

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		defer cancel()
		readLoop(conn, out, logger)
	}()

	writeLoop(ctx, conn, in, logger)
	cancel()
	<-readDone
	return nil
}

// readLoop prints each chunk the server sends on its own line.
func readLoop(conn net.Conn, out io.Writer, logger *zerolog.Logger) {
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			fmt.Fprintln(out, string(buf[:n]))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out, "server closed the connection")
			} else if !errors.Is(err, net.ErrClosed) {
				logger.Error().Err(err).Msg("read")
			}
			return
		}
	}
}

// writeLoop sends every stdin line, without its line terminator, as one
// message.
func writeLoop(ctx context.Context, conn net.Conn, in io.Reader, logger *zerolog.Logger) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if line == "" {
				continue
			}
			if _, err := io.WriteString(conn, line); err != nil {
				if !errors.Is(err, net.ErrClosed) {
					logger.Error().Err(err).Msg("send")
				}
				return
			}
		}
	}
}
