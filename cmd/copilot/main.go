// Copilot is a Telegram chat bot that answers text, voice, PDF and image
// messages through OpenAI and Perplexity and keeps in-memory reminders.
//
// Usage:
//
//	copilot [flags]
//	copilot --config /path/to/copilot.yaml --env .env
//
// @title       Copilot HTTP API
// @version     0.1.0
// @description Local test surface for the copilot chat bot.
// @BasePath    /
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	openaiprovider "github.com/nadzzz/copilot/internal/ai/openai"
	"github.com/nadzzz/copilot/internal/audio"
	"github.com/nadzzz/copilot/internal/config"
	"github.com/nadzzz/copilot/internal/dispatch"
	"github.com/nadzzz/copilot/internal/document"
	"github.com/nadzzz/copilot/internal/health"
	"github.com/nadzzz/copilot/internal/intent"
	"github.com/nadzzz/copilot/internal/metrics"
	"github.com/nadzzz/copilot/internal/proxy"
	"github.com/nadzzz/copilot/internal/reminder"
	"github.com/nadzzz/copilot/internal/search/perplexity"
	"github.com/nadzzz/copilot/internal/transport"
	httptransport "github.com/nadzzz/copilot/internal/transport/http"
	"github.com/nadzzz/copilot/internal/transport/telegram"
	"github.com/nadzzz/copilot/internal/tts"
	"github.com/nadzzz/copilot/internal/tts/piper"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	showVersion := flag.BoolP("version", "v", false, "print version and exit")
	configFile := flag.StringP("config", "c", "", "path to config file (e.g. configs/copilot.yaml)")
	envFile := flag.StringP("env", "e", ".env", "env file with TELEGRAM_TOKEN, OPENAI_API_KEY, PERPLEXITY_API_KEY")
	flag.Parse()

	if *showVersion {
		fmt.Printf("copilot %s\n", version)
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load(*configFile, *envFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging.
	config.SetupLogging(cfg.Logging)
	slog.Info("copilot starting", "version", version)

	if err := run(cfg); err != nil {
		slog.Error("copilot failed", "error", err)
		os.Exit(1)
	}
	slog.Info("copilot stopped")
}

func run(cfg *config.Config) error {
	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	httpClient, err := proxy.NewHTTPClient(cfg.Proxy.SOCKS5)
	if err != nil {
		return err
	}

	aiProvider := openaiprovider.New(cfg.OpenAI, httpClient)
	defer aiProvider.Close()

	// Initialize the speech backend.
	var speech tts.Synthesizer
	switch cfg.TTS.Backend {
	case "piper":
		speech = piper.New(cfg.TTS.Piper)
		slog.Info("using piper speech", "endpoint", cfg.TTS.Piper.Endpoint, "voice", cfg.TTS.Piper.Voice)
	default:
		speech = aiProvider
		slog.Info("using openai speech", "model", cfg.OpenAI.SpeechModel, "voice", cfg.OpenAI.Voice)
	}
	defer speech.Close()

	m := metrics.Default()
	store := reminder.NewStore()

	deps := dispatch.Deps{
		AI:         aiProvider,
		Search:     perplexity.New(cfg.Search, httpClient),
		Speech:     speech,
		Transcoder: audio.NewFFmpeg(cfg.Audio),
		Documents:  document.NewPDF(),
		Classifier: intent.New(nil),
		Reminders:  store,
		Metrics:    m,
		MaxChars:   cfg.Documents.MaxChars,
		Language:   cfg.OpenAI.Language,
	}
	dispatcher := dispatch.New(deps)

	bot, err := telegram.New(cfg.Transports.Telegram, httpClient)
	if err != nil {
		return err
	}

	routes := []route{{transport: bot, handler: dispatcher.Handle}}
	if cfg.Transports.HTTP.Enabled {
		debug := dispatch.New(debugDeps(deps))
		routes = append(routes, route{
			transport: httptransport.New(cfg.Transports.HTTP.Port, debug.Reminders()),
			handler:   debug.Handle,
		})
	}

	scheduler := reminder.NewScheduler(store, bot, cfg.Reminders.CheckInterval, m)
	healthServer := health.New(cfg.Server.HealthPort, cfg.Server.GRPCPort, nil)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return healthServer.ListenAndServe(ctx)
	})

	for _, r := range routes {
		g.Go(func() error {
			t := r.transport
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx, r.handler); err != nil {
				return fmt.Errorf("transport %s: %w", t.Name(), err)
			}
			return nil
		})
	}

	g.Go(func() error {
		return scheduler.Run(ctx)
	})

	// Mark as ready once all transports are started.
	healthServer.SetReady(true)
	slog.Info("copilot ready",
		"transports", len(routes),
		"tts_backend", cfg.TTS.Backend,
		"health_port", cfg.Server.HealthPort)

	// Block until shutdown signal or the first failure.
	<-ctx.Done()
	healthServer.SetReady(false)
	slog.Info("shutting down, draining...")

	for _, r := range routes {
		if err := r.transport.Close(); err != nil {
			slog.Error("transport close error", "name", r.transport.Name(), "error", err)
		}
	}

	return g.Wait()
}

// route pairs a transport with the handler serving its messages.
type route struct {
	transport transport.Transport
	handler   transport.Handler
}

// debugDeps derives the dependencies of the HTTP debug transport. Reminders
// created there go to a store of their own that the scheduler never reads,
// and its traffic stays out of the exported metrics.
func debugDeps(deps dispatch.Deps) dispatch.Deps {
	deps.Reminders = reminder.NewStore()
	deps.Metrics = nil
	return deps
}
