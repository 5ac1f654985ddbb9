package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/bridge"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/call"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/cli"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/mediastream"
)

// server accepts media stream connections and runs one call controller per
// connection.
type server struct {
	resolve  call.Resolver
	prompter call.Prompter
	bridge   bridge.Config
	logs     *cli.LogWriter
	logger   *slog.Logger

	registry *call.Registry
	upgrader websocket.Upgrader

	// ctx outlives individual requests; hijacked connections are not
	// cancelled by net/http.
	ctx    context.Context
	cancel context.CancelFunc

	closing atomic.Bool
	wg      sync.WaitGroup
}

func newServer(resolve call.Resolver, prompter call.Prompter, logs *cli.LogWriter, logger *slog.Logger) *server {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &server{
		resolve:  resolve,
		prompter: prompter,
		logs:     logs,
		logger:   logger,
		registry: call.NewRegistry(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Telephony providers do not send a browser Origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /media-stream", s.handleMediaStream)
	mux.HandleFunc("GET /calls", s.handleCalls)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /debug/logs", s.handleLogs)
	return mux
}

func (s *server) handleMediaStream(w http.ResponseWriter, r *http.Request) {
	if s.closing.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("media stream upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	s.wg.Add(1)
	defer s.wg.Done()

	logger := s.logger.With("remote", r.RemoteAddr)
	br := bridge.New(s.bridge, logger)
	ctrl := call.New(br, call.Options{
		Resolve:  s.resolve,
		Prompter: s.prompter,
		Logger:   logger,
	})
	remove := s.registry.Add(ctrl)
	defer remove()
	if s.closing.Load() {
		ctrl.Close(call.ReasonShutdown)
	}

	conn := mediastream.NewConn(ws, br, logger)
	served := make(chan error, 1)
	go func() { served <- conn.Serve(s.ctx) }()

	// The controller logs its own outcome.
	_ = ctrl.Run(s.ctx)
	if err := <-served; err != nil {
		logger.Warn("media stream closed", "error", err, "frames", conn.Frames(), "bad_frames", conn.BadFrames())
	}
}

type callsView struct {
	Live  int             `json:"live"`
	Total uint64          `json:"total"`
	Calls []call.Snapshot `json:"calls"`
}

func (s *server) handleCalls(w http.ResponseWriter, r *http.Request) {
	format := cli.FormatJSON
	if r.URL.Query().Get("format") == "yaml" {
		format = cli.FormatYAML
		w.Header().Set("Content-Type", "application/yaml")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	view := callsView{
		Live:  s.registry.Len(),
		Total: s.registry.Total(),
		Calls: s.registry.Snapshots(),
	}
	if err := cli.Output(view, cli.OutputOptions{Format: format, Writer: w}); err != nil {
		s.logger.Warn("write calls", "error", err)
	}
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.closing.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	fmt.Fprintln(w, "ok")
}

func (s *server) handleLogs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.logs == nil {
		return
	}
	lines := s.logs.Lines()
	if len(lines) == 0 {
		return
	}
	fmt.Fprintln(w, strings.Join(lines, "\n"))
}

// shutdown refuses new calls, ends the live ones with reason and waits for
// their connections to finish.
func (s *server) shutdown(reason string) {
	s.closing.Store(true)
	s.registry.CloseAll(reason)
	s.wg.Wait()
	s.cancel()
}
