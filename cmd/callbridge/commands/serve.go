package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/openai/openai-go/option"
	"github.com/spf13/cobra"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/call"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/cli"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/fallback"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/kv"
	openairealtime "github.com/carhubcentralts-hue/prosaasil-sub006/pkg/openai-realtime"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/realtime"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/tenant"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Answer telephony media streams",
	Long: `Start the HTTP server that answers telephony media streams.

Endpoints:
  GET /media-stream   WebSocket media stream, one call per connection
  GET /calls          live call snapshots (JSON, or YAML with ?format=yaml)
  GET /healthz        liveness
  GET /debug/logs     recent log lines

On SIGINT or SIGTERM live calls are ended and the server drains.

Example:
  callbridge -c prod serve
  callbridge -c dev serve --listen :9000 --tenants ./tenants.yaml`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "listen address (overrides the context)")
	serveCmd.Flags().String("tenants", "", "tenant file (overrides the context)")
	serveCmd.Flags().Bool("no-cache", false, "keep rendered prompts in memory only")
}

func runServe(cmd *cobra.Command, args []string) error {
	cctx, err := getContext()
	if err != nil {
		return err
	}
	listen, _ := cmd.Flags().GetString("listen")
	if listen == "" {
		listen = cctx.ListenAddr()
	}
	tenantPath, _ := cmd.Flags().GetString("tenants")
	if tenantPath == "" {
		tenantPath = cctx.TenantFile
	}
	if tenantPath == "" {
		return fmt.Errorf("no tenant file: set --tenants or the context's tenant_file")
	}
	noCache, _ := cmd.Flags().GetBool("no-cache")

	logger := slog.Default()

	file, err := tenant.Load(tenantPath)
	if err != nil {
		return err
	}
	clients, err := realtimeClients(cmd.Context(), cctx, file.Providers(), logger)
	if err != nil {
		return err
	}
	dir, err := tenant.NewDirectory(file, clients, logger)
	if err != nil {
		return err
	}

	store, err := openPromptStore(cctx, noCache, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	renderer := speechRenderer(cctx)
	prompts := fallback.NewSource(renderer, fallback.NewCache(store, 0), logger)

	srv := newServer(dir.Resolve, prompts, recentLogs, logger)
	if renderer != nil {
		go warmPrompts(srv.ctx, prompts, dir, logger)
	} else {
		logger.Info("no openai key, uncached prompts fall back to the tone")
	}

	httpSrv := &http.Server{
		Addr:              listen,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("callbridge listening", "addr", listen, "tenants", len(file.Tenants), "providers", file.Providers())
		errCh <- httpSrv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String(), "live_calls", srv.registry.Len())
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			srv.shutdown(call.ReasonShutdown)
			return fmt.Errorf("listen %s: %w", listen, err)
		}
	}

	srv.shutdown(call.ReasonShutdown)
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("stopped", "calls_served", srv.registry.Total())
	return nil
}

// realtimeClients builds one client per provider named by the tenant file.
func realtimeClients(ctx context.Context, cctx *cli.Context, providers []string, logger *slog.Logger) (map[string]*realtime.Client, error) {
	clients := make(map[string]*realtime.Client, len(providers))
	for _, name := range providers {
		var p realtime.Provider
		switch name {
		case "openai":
			if cctx.OpenAI == nil || cctx.OpenAI.APIKey == "" {
				return nil, fmt.Errorf("context %q has no openai credentials", cctx.Name)
			}
			opts := []openairealtime.Option{openairealtime.WithLogger(logger)}
			if cctx.OpenAI.BaseURL != "" {
				opts = append(opts, openairealtime.WithWebSocketURL(cctx.OpenAI.BaseURL))
			}
			p = realtime.NewOpenAI(openairealtime.NewClient(cctx.OpenAI.APIKey, opts...), "")
		case "gemini":
			if cctx.Gemini == nil || cctx.Gemini.APIKey == "" {
				return nil, fmt.Errorf("context %q has no gemini credentials", cctx.Name)
			}
			gc, err := realtime.NewGeminiClient(ctx, cctx.Gemini.APIKey)
			if err != nil {
				return nil, fmt.Errorf("gemini client: %w", err)
			}
			p = realtime.NewGemini(gc, "")
		default:
			return nil, fmt.Errorf("unknown provider %q", name)
		}
		clients[name] = realtime.NewClient(p, realtime.RetryConfig{}, logger.With("provider", name))
	}
	return clients, nil
}

// speechRenderer returns the prompt renderer of cctx, or nil when it has no
// OpenAI key; prompts then fall back to the tone.
func speechRenderer(cctx *cli.Context) fallback.Renderer {
	if cctx.OpenAI == nil || cctx.OpenAI.APIKey == "" {
		return nil
	}
	var opts []option.RequestOption
	if cctx.OpenAI.BaseURL != "" && !isWebSocketURL(cctx.OpenAI.BaseURL) {
		opts = append(opts, option.WithBaseURL(cctx.OpenAI.BaseURL))
	}
	sp := fallback.NewOpenAISpeech(cctx.OpenAI.APIKey, opts...)
	if cctx.SpeechModel != "" {
		sp = sp.WithModel(cctx.SpeechModel)
	}
	return sp
}

func isWebSocketURL(u string) bool {
	return strings.HasPrefix(u, "ws://") || strings.HasPrefix(u, "wss://")
}

func openPromptStore(cctx *cli.Context, inMemory bool, logger *slog.Logger) (kv.Store, error) {
	if inMemory {
		return kv.NewMemory(), nil
	}
	paths, err := cli.NewPaths()
	if err != nil {
		return nil, err
	}
	paths = paths.ForContext(cctx)
	if err := paths.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	store, err := kv.NewBadger(kv.BadgerOptions{Dir: paths.PromptCacheDir(), Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("prompt cache: %w", err)
	}
	return store, nil
}

// warmPrompts renders every apology and playback message ahead of the
// first call that needs it.
func warmPrompts(ctx context.Context, src *fallback.Source, dir *tenant.Directory, logger *slog.Logger) {
	for voice, texts := range dir.Apologies() {
		if failed := src.Warm(ctx, voice, texts...); failed > 0 {
			logger.Warn("prompt warm-up incomplete", "voice", voice, "failed", failed, "total", len(texts))
		}
	}
}
