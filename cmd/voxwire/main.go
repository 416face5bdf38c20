// Command voxwire is a realtime voice client: it streams microphone audio to
// a conversational realtime endpoint and plays the synthesised responses.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/perimetra/voxwire/internal/config"
	"github.com/perimetra/voxwire/internal/health"
	"github.com/perimetra/voxwire/internal/observe"
	"github.com/perimetra/voxwire/internal/voice"
	"github.com/perimetra/voxwire/pkg/audio/capture"
	"github.com/perimetra/voxwire/pkg/audio/playback"
	"github.com/perimetra/voxwire/pkg/realtime"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	sayText := flag.String("say", "", "optional text message to inject once the session is open")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voxwire: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxwire: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("voxwire starting",
		"version", version,
		"config", *configPath,
		"model", cfg.Realtime.Model,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "voxwire",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Audio devices ─────────────────────────────────────────────────────────
	player, err := playback.NewPortAudioPlayer()
	if err != nil {
		slog.Error("failed to open audio output", "err", err)
		return 1
	}

	// ── Realtime client and controller ────────────────────────────────────────
	var clientOpts []realtime.Option
	if cfg.Realtime.Model != "" {
		clientOpts = append(clientOpts, realtime.WithModel(cfg.Realtime.Model))
	}
	if cfg.Realtime.BaseURL != "" {
		clientOpts = append(clientOpts, realtime.WithBaseURL(cfg.Realtime.BaseURL))
	}
	client := realtime.NewClient(cfg.Realtime.APIKey, clientOpts...)

	var reconnector *voice.Reconnector

	ctrl := voice.NewController(voice.Config{
		Dialer:         voice.NewDialer(client),
		Mic:            capture.New(),
		Player:         player,
		Voice:          cfg.Realtime.Voice,
		Instructions:   cfg.Realtime.Instructions,
		ConnectTimeout: cfg.Realtime.ConnectTimeout,
		OnStateChange: func(connected bool) {
			if !connected && reconnector != nil {
				reconnector.NotifyDisconnect()
			}
		},
		OnMessage: func(evt realtime.ServerEvent) {
			if evt.Type == realtime.EventTranscriptDelta && evt.Delta != "" {
				fmt.Print(evt.Delta)
			}
		},
	})

	if cfg.Reconnect.Enabled {
		reconnector = voice.NewReconnector(voice.ReconnectorConfig{
			Connect:    ctrl.Connect,
			MaxRetries: cfg.Reconnect.MaxRetries,
			Backoff:    cfg.Reconnect.Backoff,
			MaxBackoff: cfg.Reconnect.MaxBackoff,
		})
		reconnector.Monitor(ctx)
		defer reconnector.Stop()
	}

	printStartupSummary(cfg)

	// ── Run ───────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	if cfg.Server.MetricsAddr != "" {
		srv := localServer(cfg.Server.MetricsAddr, ctrl)
		g.Go(func() error {
			slog.Info("metrics endpoint listening", "addr", cfg.Server.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shCtx)
		})
	}

	g.Go(func() error {
		if err := ctrl.Connect(gctx); err != nil {
			return err
		}
		if *sayText != "" {
			if err := ctrl.SendText(*sayText); err != nil {
				slog.Warn("failed to send text message", "err", err)
			}
		}
		slog.Info("session open — press Ctrl+C to hang up")
		<-gctx.Done()
		return nil
	})

	runErr := g.Wait()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutting down…")
	if err := ctrl.Disconnect(); err != nil {
		slog.Warn("disconnect error", "err", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("run error", "err", runErr)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// localServer builds the HTTP server exposing /metrics, /healthz, and
// /readyz on the configured address.
func localServer(addr string, ctrl *voice.Controller) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())

	h := health.New(
		health.Probe{Name: "session", Check: func(_ context.Context) error {
			if !ctrl.Connected() {
				return errors.New("no open session")
			}
			return nil
		}},
	).WithSessionState(ctrl.State)
	h.Register(mux)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         voxwire — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printField("Model", cfg.Realtime.Model)
	printField("Voice", cfg.Realtime.Voice)
	printField("Endpoint", cfg.Realtime.BaseURL)
	if cfg.Reconnect.Enabled {
		printField("Reconnect", fmt.Sprintf("on (max %d)", cfg.Reconnect.MaxRetries))
	} else {
		printField("Reconnect", "off")
	}
	printField("Metrics", cfg.Server.MetricsAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printField(name, value string) {
	if value == "" {
		value = "(default)"
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", name, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
