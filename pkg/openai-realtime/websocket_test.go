package openairealtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeServer upgrades one connection, forwards every client message on
// recv and writes each string from script as a text message.
func fakeServer(t *testing.T, script []string, recv chan<- map[string]any) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		c, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		go func() {
			for {
				_, data, err := c.ReadMessage()
				if err != nil {
					return
				}
				var m map[string]any
				json.Unmarshal(data, &m)
				if recv != nil {
					recv <- m
				}
			}
		}()
		for _, msg := range script {
			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		time.Sleep(time.Second)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConn_EventsRepairAndContinue(t *testing.T) {
	srv := fakeServer(t, []string{
		`{"type":"session.created","session":{"id":"sess_1"}}`,
		`{"type":"response.audio.delta","response_id":"resp_1","delta":"AAEC"}`,
		`{"type":"response.audio.delta","response_id":"resp_1","delta":"AAECAw"}`,
		`{"type":"response.audio.delta","response_id":"resp_1","delta":"@@@"}`,
		`not json`,
		`{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`,
		`{"type":"response.done","response":{"id":"resp_1","status":"completed"}}`,
	}, nil)

	c, err := NewClient("sk-test", WithWebSocketURL(wsURL(srv))).Dial(context.Background(), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	var types []string
	var audio [][]byte
	var malformed, apiErrors int
	for ev, err := range c.Events() {
		if err != nil {
			if errors.Is(err, ErrMalformed) {
				malformed++
				continue
			}
			if _, ok := AsError(err); ok {
				apiErrors++
				continue
			}
			break
		}
		types = append(types, ev.Type)
		if ev.Type == EventTypeResponseAudioDelta {
			audio = append(audio, ev.Audio)
		}
		if ev.Type == EventTypeResponseDone {
			break
		}
	}

	if malformed != 2 || apiErrors != 1 {
		t.Errorf("malformed=%d apiErrors=%d, want 2 and 1", malformed, apiErrors)
	}
	if len(audio) != 2 {
		t.Fatalf("audio deltas = %d, want 2", len(audio))
	}
	// "AAEC" is 3 bytes, trimmed to one whole sample.
	if len(audio[0]) != 2 {
		t.Errorf("first delta len = %d, want 2", len(audio[0]))
	}
	// Unpadded "AAECAw" is 4 bytes.
	if len(audio[1]) != 4 {
		t.Errorf("second delta len = %d, want 4", len(audio[1]))
	}
	if c.SessionID() != "sess_1" {
		t.Errorf("SessionID = %q", c.SessionID())
	}
	if types[len(types)-1] != EventTypeResponseDone {
		t.Errorf("last event = %s", types[len(types)-1])
	}
}

func TestConn_SendManualTurn(t *testing.T) {
	recv := make(chan map[string]any, 8)
	srv := fakeServer(t, nil, recv)

	c, err := NewClient("sk-test", WithWebSocketURL(wsURL(srv))).Dial(context.Background(), &DialConfig{Model: ModelGPTRealtime})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	if err := c.UpdateSession(&SessionConfig{Voice: VoiceAlloy, ManualTurns: true}); err != nil {
		t.Fatal(err)
	}
	if err := c.AppendAudio([]byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	if err := c.CancelResponse("resp_9"); err != nil {
		t.Fatal(err)
	}

	got := func() map[string]any {
		select {
		case m := <-recv:
			return m
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for client event")
			return nil
		}
	}

	upd := got()
	if upd["type"] != EventTypeSessionUpdate {
		t.Fatalf("first event type = %v", upd["type"])
	}
	sess, _ := upd["session"].(map[string]any)
	td, present := sess["turn_detection"]
	if !present || td != nil {
		t.Errorf("turn_detection = %v (present %v), want explicit null", td, present)
	}
	if sess["voice"] != VoiceAlloy {
		t.Errorf("voice = %v", sess["voice"])
	}

	app := got()
	if app["type"] != EventTypeInputAudioBufferAppend || app["audio"] != "AQIDBA==" {
		t.Errorf("append = %v", app)
	}
	cancel := got()
	if cancel["type"] != EventTypeResponseCancel || cancel["response_id"] != "resp_9" {
		t.Errorf("cancel = %v", cancel)
	}
}

func TestClient_DialErrors(t *testing.T) {
	if _, err := NewClient("").Dial(context.Background(), nil); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Dial without key = %v, want ErrNoAPIKey", err)
	}

	srv := fakeServer(t, nil, nil)
	_, err := NewClient("sk-wrong", WithWebSocketURL(wsURL(srv))).Dial(context.Background(), nil)
	apiErr, ok := AsError(err)
	if !ok {
		t.Fatalf("Dial with bad key = %v, want *Error", err)
	}
	if apiErr.HTTPStatus != http.StatusUnauthorized || apiErr.Retryable() {
		t.Errorf("HTTPStatus=%d Retryable=%v", apiErr.HTTPStatus, apiErr.Retryable())
	}
}

func TestSessionConfig_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(SessionConfig{Voice: VoiceEcho, TurnDetection: &TurnDetection{Type: "server_vad"}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"server_vad"`) {
		t.Errorf("server VAD dropped: %s", data)
	}
	data, _ = json.Marshal(SessionConfig{Voice: VoiceEcho, ManualTurns: true, TurnDetection: &TurnDetection{Type: "server_vad"}})
	if !strings.Contains(string(data), `"turn_detection":null`) {
		t.Errorf("manual turns not null: %s", data)
	}
}
