// Command fxremit is a terminal client for the remittance API.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/eshaffer321/fxremit-go/internal/transport"
	"github.com/eshaffer321/fxremit-go/pkg/remit"
	"github.com/eshaffer321/fxremit-go/pkg/session"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const usage = `Usage: fxremit [-config file] [-v] <command> [flags]

Commands:
  login      log in and store the session
  status     show whether a session is stored
  rates      list exchange rates
  deals      list booked deals
  book       book a deal
  branches   list branches
  purposes   list remittance purposes
  logout     clear the stored session
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv)
	stop()
	os.Exit(code)
}

// run is main without process globals; it returns the exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	fs := flag.NewFlagSet("fxremit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", "", "Path to the YAML config file")
	verbose := fs.Bool("v", false, "Enable debug logging")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	path, explicit := *configPath, *configPath != ""
	if !explicit {
		path = defaultConfigPath
	}
	cfg, err := loadConfig(path, explicit, getenv)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}

	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", fs.Arg(0))
		fs.Usage()
		return 2
	}

	app, err := newApp(ctx, cfg, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer app.Close()

	if err := cmd(ctx, app, fs.Args()[1:]); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// app bundles what every command needs
type app struct {
	client *remit.Client
	store  *session.Store
	out    io.Writer
	errOut io.Writer
}

func newApp(ctx context.Context, cfg *Config, stdout, stderr io.Writer) (*app, error) {
	store, err := session.Open(ctx, cfg.Session)
	if err != nil {
		return nil, err
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.WarnLevel
	}
	zl := zerolog.New(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	opts := &remit.ClientOptions{
		BaseURL:            cfg.BaseURL,
		Timeout:            cfg.Timeout,
		APIKey:             cfg.APIKey,
		Store:              store,
		Logger:             remit.NewZerologLogger(zl),
		RetryConfig:        cfg.Retry,
		ReplayAfterRefresh: cfg.ReplayAfterRefresh,
		SentryDSN:          cfg.SentryDSN,
		Prompter: remit.PrompterFunc(func(_ context.Context, message string) error {
			_, err := fmt.Fprintf(stderr, "%s\n", message)
			return err
		}),
	}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		opts.RateLimiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	if cfg.ConnectivityAddr != "" {
		opts.Connectivity = &transport.DialChecker{Address: cfg.ConnectivityAddr}
	}

	client, err := remit.NewClient(opts)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &app{client: client, store: store, out: stdout, errOut: stderr}, nil
}

func (a *app) Close() {
	a.client.Close()
	_ = a.store.Close()
}
