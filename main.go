// Command coworkd runs the coworking realtime client core from a terminal.
//
// It connects to a channel server with the configured identity, joins the
// lobby, and streams session state snapshots as they change. It is the
// headless assembly of the same core the desktop application embeds:
// configuration comes from cowork.toml, COWORK_* environment variables,
// and flags; collaborator backends (document store, sign-in flows) are not
// wired here, so user ids pass through unresolved.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/cowork-labs/cowork-core/config"
	"github.com/cowork-labs/cowork-core/logger"
	"github.com/cowork-labs/cowork-core/service"
	"github.com/cowork-labs/cowork-core/session"
	"github.com/cowork-labs/cowork-core/transport/channel"
)

// Version information
const (
	Version = "0.3.0"
	AppName = "Cowork Realtime Client"
)

func main() {
	// Load .env if present; only complain about real read failures.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}

	if err := newRootCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "coworkd",
		Usage: "headless client for the coworking realtime channel",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to cowork.toml"},
			&cli.StringFlag{Name: "host", Usage: "channel server host (overrides config)"},
			&cli.StringFlag{Name: "user-id", Usage: "user id to connect as (overrides config)"},
			&cli.StringFlag{Name: "token", Usage: "bearer token (overrides config)"},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "connect, join the lobby, and stream session state",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "join", Usage: "session id to join after connecting"},
				},
				Action: runAction,
			},
			{
				Name:  "version",
				Usage: "print version information",
				Action: func(_ context.Context, _ *cli.Command) error {
					fmt.Printf("%s v%s\n", AppName, Version)
					return nil
				},
			},
		},
	}
}

// runAction assembles the core and pumps snapshots until interrupted.
func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	if v := cmd.String("host"); v != "" {
		cfg.Host = v
	}
	if v := cmd.String("user-id"); v != "" {
		cfg.UserID = v
	}
	if v := cmd.String("token"); v != "" {
		cfg.Token = v
	}
	if cmd.Bool("debug") {
		cfg.LogLevel = "debug"
	}

	logger.Setup(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return err
	}

	reporter := logReporter{}
	identity := service.StaticIdentity{User: cfg.UserID, BearerToken: cfg.Token}

	factory := func(hooks session.Hooks) session.Transport {
		return channel.NewSocket(channel.SocketOptions{
			Scheme:         cfg.Scheme,
			Host:           cfg.Host,
			Reporter:       reporter,
			OnEnvelope:     hooks.OnEnvelope,
			OnConnectivity: hooks.OnConnectivity,
			OnClosed:       hooks.OnClosed,
		})
	}

	coord, err := session.NewCoordinator(factory, identity, passthroughDirectory{}, reporter)
	if err != nil {
		return err
	}
	defer coord.Close()

	snapshots, cancel := coord.Subscribe()
	defer cancel()

	slog.Info("connecting", "host", cfg.Host, "user_id", cfg.UserID)
	coord.Connect()
	pendingJoin := cmd.String("join")

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				return nil
			}
			printSnapshot(snap)
			if pendingJoin != "" && snap.Phase == session.PhaseLobbyJoined {
				coord.JoinSession(pendingJoin)
				pendingJoin = ""
			}
		case <-sigCtx.Done():
			slog.Info("shutting down")
			coord.Disconnect()
			return nil
		}
	}
}

func printSnapshot(snap session.Snapshot) {
	sessionID := "-"
	roster := 0
	if snap.CurrentSession != nil {
		sessionID = snap.CurrentSession.ID
		roster = len(snap.CurrentSession.UserIDs)
	}
	slog.Info("session state",
		"phase", string(snap.Phase),
		"connected", snap.IsConnected,
		"joined", snap.HasJoinedSession,
		"session", sessionID,
		"roster", roster,
		"available", len(snap.AvailableSessions),
		"mode", string(snap.SelectedMode),
	)
}

// logReporter routes recovered failures to the log. The desktop app swaps
// in a reporter that drives user-visible error toasts.
type logReporter struct{}

func (logReporter) Report(kind service.ErrorKind, err error) {
	slog.Warn("recovered failure", "kind", string(kind), "error", err)
}

// passthroughDirectory satisfies service.Directory for headless runs where
// no document store is attached: user ids pass through unresolved and the
// lobby directory stays empty.
type passthroughDirectory struct{}

func (passthroughDirectory) ResolveUsers(_ context.Context, ids []string) ([]service.User, error) {
	users := make([]service.User, 0, len(ids))
	for _, id := range ids {
		users = append(users, service.User{ID: id, Name: id})
	}
	return users, nil
}

func (passthroughDirectory) SessionsForUser(ctx context.Context, _ string) (<-chan []service.Session, error) {
	ch := make(chan []service.Session)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (passthroughDirectory) ResolveSession(context.Context, string) (*service.Session, error) {
	return nil, nil
}
