package commands

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/audio/pcm"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/bridge"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/call"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/cli"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/realtime"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/realtime/realtimetest"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/tenant"
)

const tenantsYAML = `
default: acme
tenants:
  - id: acme
    provider: openai
    voice: alloy
    greeting: Hello there
`

const startFrame = `{"event":"start","streamSid":"MZ1","start":{"streamSid":"MZ1","callSid":"CA1","accountSid":"AC1","tracks":["inbound"],"mediaFormat":{"encoding":"audio/x-mulaw","sampleRate":8000,"channels":1},"customParameters":{"tenant":"acme"}}}`

type testServer struct {
	srv  *server
	http *httptest.Server
	prov *realtimetest.Provider
	logs *cli.LogWriter
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logs := cli.NewLogWriter(100)
	logger := slog.New(slog.NewTextHandler(logs, nil))

	f, err := tenant.Parse([]byte(tenantsYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	prov := realtimetest.NewProvider()
	dir, err := tenant.NewDirectory(f, map[string]*realtime.Client{
		"openai": realtime.NewClient(prov, realtime.RetryConfig{MaxAttempts: 1}, logger),
	}, logger)
	if err != nil {
		t.Fatalf("NewDirectory: %v", err)
	}

	srv := newServer(dir.Resolve, nil, logs, logger)
	srv.bridge = bridge.Config{PollInterval: 20 * time.Millisecond}
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(func() {
		srv.shutdown(call.ReasonShutdown)
		ts.Close()
	})
	return &testServer{srv: srv, http: ts, prov: prov, logs: logs}
}

func (s *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.http.URL, "http") + "/media-stream"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func (s *testServer) get(t *testing.T, path string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(s.http.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return resp.StatusCode, body
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type envelope struct {
	Event     string `json:"event"`
	StreamSID string `json:"streamSid"`
}

// readUntil reads envelopes until one has the given event.
func readUntil(t *testing.T, ws *websocket.Conn, event string) []envelope {
	t.Helper()
	var seen []envelope
	ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			t.Fatalf("read (waiting for %s, seen %v): %v", event, seen, err)
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("bad envelope %s: %v", data, err)
		}
		seen = append(seen, env)
		if env.Event == event {
			return seen
		}
	}
}

func TestServer_Call(t *testing.T) {
	s := newTestServer(t)
	ws := s.dial(t)

	if err := ws.WriteMessage(websocket.TextMessage, []byte(startFrame)); err != nil {
		t.Fatalf("write start: %v", err)
	}
	conn := s.prov.NextConn(3 * time.Second)
	if conn == nil {
		t.Fatal("no realtime connection")
	}
	if !conn.WaitSent(3*time.Second, func(sent []realtimetest.Sent) bool { return len(sent) > 0 }) {
		t.Fatal("greeting not sent")
	}
	if got := conn.Sent()[0]; got.Op != "text" || got.Text != "Hello there" {
		t.Errorf("greeting = %+v", got)
	}

	conn.Emit(&realtime.Event{
		Kind:       realtime.EventAudio,
		ResponseID: "r1",
		Audio:      pcm.L16Mono24K.Silence(200 * time.Millisecond),
		Format:     pcm.L16Mono24K,
	})
	seen := readUntil(t, ws, "media")
	for _, env := range seen {
		if env.StreamSID != "MZ1" {
			t.Errorf("envelope %+v has wrong stream id", env)
		}
	}

	code, body := s.get(t, "/calls")
	if code != http.StatusOK {
		t.Fatalf("/calls status = %d", code)
	}
	var view callsView
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatalf("decode /calls: %v\n%s", err, body)
	}
	if view.Live != 1 || view.Total != 1 || len(view.Calls) != 1 {
		t.Fatalf("/calls = %+v", view)
	}
	if c := view.Calls[0]; c.CallID != "CA1" || c.Tenant != "acme" || c.Voice != "alloy" {
		t.Errorf("call = %+v", c)
	}

	stop := `{"event":"stop","streamSid":"MZ1","stop":{"accountSid":"AC1","callSid":"CA1"}}`
	if err := ws.WriteMessage(websocket.TextMessage, []byte(stop)); err != nil {
		t.Fatalf("write stop: %v", err)
	}
	waitFor(t, "call removal", func() bool { return s.srv.registry.Len() == 0 })
	waitFor(t, "realtime close", conn.Closed)
}

func TestServer_CallsYAML(t *testing.T) {
	s := newTestServer(t)
	code, body := s.get(t, "/calls?format=yaml")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if !strings.Contains(string(body), "live: 0") {
		t.Errorf("body = %q", body)
	}
}

func TestServer_Shutdown(t *testing.T) {
	s := newTestServer(t)
	ws := s.dial(t)
	if err := ws.WriteMessage(websocket.TextMessage, []byte(startFrame)); err != nil {
		t.Fatalf("write start: %v", err)
	}
	conn := s.prov.NextConn(3 * time.Second)
	if conn == nil {
		t.Fatal("no realtime connection")
	}
	waitFor(t, "call registration", func() bool { return s.srv.registry.Len() == 1 })

	done := make(chan struct{})
	go func() {
		s.srv.shutdown(call.ReasonShutdown)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("shutdown did not finish")
	}

	if !conn.Closed() {
		t.Error("realtime connection still open")
	}
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
	if code, _ := s.get(t, "/healthz"); code != http.StatusServiceUnavailable {
		t.Errorf("/healthz after shutdown = %d", code)
	}
}

func TestServer_HealthAndLogs(t *testing.T) {
	s := newTestServer(t)
	code, body := s.get(t, "/healthz")
	if code != http.StatusOK || strings.TrimSpace(string(body)) != "ok" {
		t.Errorf("/healthz = %d %q", code, body)
	}

	s.srv.logger.Info("marker line", "n", 1)
	_, body = s.get(t, "/debug/logs")
	if !strings.Contains(string(body), "marker line") {
		t.Errorf("/debug/logs = %q", body)
	}
}
