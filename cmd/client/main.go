package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"vibecraft.ai/internal/client"
	"vibecraft.ai/internal/config"
	"vibecraft.ai/internal/debughttp"
	"vibecraft.ai/internal/recorder"
	"vibecraft.ai/internal/settings"
	"vibecraft.ai/internal/transport/ws"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to client yaml config (defaults built in)")
		endpoint    = flag.String("endpoint", "", "game server ws url (or set VIBECRAFT_ENDPOINT)")
		logLevel    = flag.String("log-level", "", "debug|info|warn|error")
		debugListen = flag.String("debug-listen", "", "serve the read-only inspector on this address")
		envFile     = flag.String("env-file", ".env", "dotenv file loaded before reading the environment")
		statusEvery = flag.Duration("status-every", 10*time.Second, "log a status line this often (0 disables)")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	cfg.ApplyEnv(os.Getenv)
	if strings.TrimSpace(*endpoint) != "" {
		cfg.Endpoint = strings.TrimSpace(*endpoint)
	}
	if strings.TrimSpace(*logLevel) != "" {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(*logLevel))
	}
	if strings.TrimSpace(*debugListen) != "" {
		cfg.Debug.Listen = strings.TrimSpace(*debugListen)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signalContext()
	defer cancel()

	if err := run(ctx, cfg, logger, *statusEvery); err != nil {
		logger.Error("client stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger, statusEvery time.Duration) (err error) {
	store, err := settings.OpenSQLite(cfg.Settings.DBPath)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	defer func() { err = multierr.Append(err, store.Close()) }()

	stored, err := store.Load(ctx)
	if err != nil {
		return err
	}
	st := stored.Merge(cfg.SettingsOverride())
	if st != stored {
		if err := store.Save(ctx, st); err != nil {
			return err
		}
	}

	tcfg := cfg.TransportConfig()
	var rec *recorder.Writer
	if cfg.Recorder.Enabled {
		rec = recorder.NewWriter(cfg.Recorder.Dir)
		defer func() { err = multierr.Append(err, rec.Close()) }()
		tcfg.OnFrame = func(frame []byte) {
			if werr := rec.WriteFrame(frame); werr != nil {
				logger.Warn("record frame", zap.Error(werr))
			}
		}
		logger.Info("recording frames", zap.String("dir", cfg.Recorder.Dir), zap.String("session", rec.Session()))
	}

	var c *client.Client
	tcfg.OnConnect = func(conn uint64) { c.HandleConnect(conn) }
	tcfg.OnDisconnect = func(err error) { c.HandleDisconnect(err) }
	tr := ws.New(tcfg, logger)
	c = client.New(client.Options{
		ClearOnReconnect: cfg.Client.ClearOnReconnect,
		LogHistory:       cfg.Client.LogHistory,
		VibeBufferBytes:  cfg.Client.VibeBufferBytes,
	}, tr, logger)

	if n := c.ApplySettings(st); n > 0 {
		logger.Info("startup actions queued", zap.Int("count", n))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Run(ctx) })

	if cfg.Debug.Listen != "" {
		srv := &http.Server{
			Addr:              cfg.Debug.Listen,
			Handler:           debughttp.Routes(c),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("inspector listening", zap.String("addr", cfg.Debug.Listen))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("inspector: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if statusEvery > 0 {
		g.Go(func() error {
			t := time.NewTicker(statusEvery)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-t.C:
					s := c.Status()
					logger.Info("status",
						zap.Bool("connected", s.Connected),
						zap.Int("queued", s.Queued),
						zap.Uint64("server_tick", s.ServerTick),
						zap.Int("entities", s.Entities),
						zap.Uint64("next_command_tick", s.NextTick),
					)
					if rec != nil {
						if err := rec.Sync(); err != nil {
							logger.Warn("sync recording", zap.Error(err))
						}
					}
				}
			}
		})
	}

	logger.Info("client starting", zap.String("endpoint", cfg.Endpoint), zap.Bool("reconnect", cfg.Transport.Reconnect))
	return g.Wait()
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zc.Build()
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
