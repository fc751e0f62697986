// tvremote drives a networked TV over its websocket remote-control channel.
//
// Pairing credentials are kept in a YAML file (--store) or a PostgreSQL
// table (--store-dsn), so the device only prompts on the first run.
//
// Usage:
//
//	tvremote --host 192.168.1.20 --key KEY_VOLUP
//	tvremote --host 192.168.1.20 --text "hello"
//	tvremote --host 192.168.1.20 --apps
//	tvremote --host 192.168.1.20 --interactive
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	tvremote "github.com/tvremote/go-tvremote"
	"github.com/tvremote/go-tvremote/tokenstore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type flags struct {
	host        string
	port        int
	name        string
	mac         string
	storePath   string
	storeDSN    string
	key         string
	text        string
	apps        bool
	interactive bool
	logLevel    string
}

func parseFlags(args []string) (flags, error) {
	var f flags
	flagSet := pflag.NewFlagSet("tvremote", pflag.ContinueOnError)
	flagSet.StringVar(&f.host, "host", "", "device address (default: $TVREMOTE_HOST)")
	flagSet.IntVar(&f.port, "port", 0, "8001 plaintext or 8002 encrypted (default: stored port, then 8001)")
	flagSet.StringVar(&f.name, "name", "", "name shown on the device when pairing")
	flagSet.StringVar(&f.mac, "mac", "", "MAC address for wake-on-LAN")
	flagSet.StringVar(&f.storePath, "store", defaultStorePath(), "credentials file")
	flagSet.StringVar(&f.storeDSN, "store-dsn", "", "PostgreSQL DSN; stores credentials in the database instead of --store")
	flagSet.StringVarP(&f.key, "key", "k", "", "send one key, e.g. KEY_VOLUP")
	flagSet.StringVarP(&f.text, "text", "t", "", "type text into the focused input field")
	flagSet.BoolVar(&f.apps, "apps", false, "list installed applications")
	flagSet.BoolVarP(&f.interactive, "interactive", "i", false, "start an interactive shell")
	flagSet.StringVar(&f.logLevel, "log-level", "info", "debug, info, warn or error")

	if err := flagSet.Parse(args); err != nil {
		return f, err
	}
	if f.key == "" && f.text == "" && !f.apps && !f.interactive {
		f.interactive = true
	}
	return f, nil
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "tvremote.yaml"
	}
	return filepath.Join(dir, "tvremote", "credentials.yaml")
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("--log-level: %w", err)
	}
	return level, nil
}

func openStore(ctx context.Context, f flags) (tokenstore.Store, func(), error) {
	if f.storeDSN == "" {
		return tokenstore.NewFile(f.storePath), func() {}, nil
	}
	pg, err := tokenstore.OpenPostgres(ctx, f.storeDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		pg.Close()
		return nil, nil, err
	}
	return pg, func() { pg.Close() }, nil
}

func run() error {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	level, err := parseLevel(f.logLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, f)
	if err != nil {
		return fmt.Errorf("opening credential store: %w", err)
	}
	defer closeStore()

	cfg := tvremote.Config{Host: f.host, Port: f.port, Name: f.name, MAC: f.mac}
	if cfg.Host == "" {
		cfg.Host = os.Getenv("TVREMOTE_HOST")
	}
	if cfg.Host != "" {
		creds, err := store.Load(ctx, cfg.Host)
		switch {
		case err == nil:
			cfg = tokenstore.Apply(cfg, creds)
			logger.Debug("loaded credentials", "host", cfg.Host, "paired", creds.Paired)
		case errors.Is(err, tokenstore.ErrNotFound):
		default:
			return fmt.Errorf("loading credentials: %w", err)
		}
	}
	cfg.Path = f.storePath
	if f.storeDSN != "" {
		cfg.Path = "postgres"
	}
	cfg.Save = tokenstore.SaveHook(ctx, store)

	remote, err := tvremote.NewRemote(cfg, tvremote.LogErrors(logger), tvremote.WithLogger(logger))
	if err != nil {
		return err
	}
	defer remote.Close()

	opened, err := remote.Open(ctx)
	if err != nil {
		return err
	}
	if !opened {
		return fmt.Errorf("%s did not accept the connection, is it switched on?", remote.Config().Host)
	}

	switch {
	case f.interactive:
		sh, err := newShell(remote)
		if err != nil {
			return err
		}
		return sh.run(ctx)
	case f.key != "":
		return remote.Control(ctx, f.key, tvremote.CmdClick)
	case f.text != "":
		return remote.InputText(ctx, f.text)
	case f.apps:
		return printApplications(ctx, remote, os.Stdout)
	}
	return nil
}
