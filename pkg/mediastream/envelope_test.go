package mediastream

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/bridge"
)

func TestDecode(t *testing.T) {
	audio := make([]byte, 160)
	for i := range audio {
		audio[i] = byte(i)
	}
	unpadded := base64.RawStdEncoding.EncodeToString(audio[:10])

	tests := []struct {
		name    string
		in      string
		kind    bridge.Kind
		ok      bool
		wantErr bool
	}{
		{name: "connected", in: `{"event":"connected","protocol":"Call","version":"1.0.0"}`},
		{name: "start", in: `{"event":"start","streamSid":"MZ1","start":{"streamSid":"MZ1","callSid":"CA1","accountSid":"AC1","tracks":["inbound"],"mediaFormat":{"encoding":"audio/x-mulaw","sampleRate":8000,"channels":1},"customParameters":{"tenant":"acme"}}}`, kind: bridge.KindStart, ok: true},
		{name: "media", in: `{"event":"media","streamSid":"MZ1","media":{"track":"inbound","chunk":"1","timestamp":"20","payload":"` + base64.StdEncoding.EncodeToString(audio) + `"}}`, kind: bridge.KindMedia, ok: true},
		{name: "media unpadded", in: `{"event":"media","media":{"payload":"` + unpadded + `"}}`, kind: bridge.KindMedia, ok: true},
		{name: "media outbound track", in: `{"event":"media","media":{"track":"outbound","payload":"AAAA"}}`},
		{name: "media empty", in: `{"event":"media","media":{"payload":""}}`},
		{name: "media bad payload", in: `{"event":"media","media":{"payload":"A"}}`, wantErr: true},
		{name: "media missing", in: `{"event":"media"}`, wantErr: true},
		{name: "mark", in: `{"event":"mark","mark":{"name":"reply-1"}}`, kind: bridge.KindMark, ok: true},
		{name: "stop", in: `{"event":"stop","stop":{"accountSid":"AC1","callSid":"CA1"}}`, kind: bridge.KindStop, ok: true},
		{name: "dtmf", in: `{"event":"dtmf","dtmf":{"digit":"1"}}`},
		{name: "unknown", in: `{"event":"bogus"}`, wantErr: true},
		{name: "not json", in: `{"event":`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok, err := Decode([]byte(tt.in))
			if tt.wantErr {
				if !errors.Is(err, ErrFrame) {
					t.Fatalf("err = %v, want ErrFrame", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && msg.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", msg.Kind, tt.kind)
			}
		})
	}
}

func TestDecode_Fields(t *testing.T) {
	msg, _, err := Decode([]byte(`{"event":"start","streamSid":"MZ9","start":{"callSid":"CA9","mediaFormat":{"encoding":"audio/x-mulaw","sampleRate":8000,"channels":1},"customParameters":{"tenant":"acme"}}}`))
	if err != nil {
		t.Fatal(err)
	}
	if msg.Start.StreamSID != "MZ9" {
		t.Errorf("StreamSID = %q, want fallback to envelope MZ9", msg.Start.StreamSID)
	}
	if msg.Start.CallSID != "CA9" || msg.Start.CustomParameters["tenant"] != "acme" {
		t.Errorf("start = %+v", msg.Start)
	}
	if msg.Start.MediaFormat.SampleRate != 8000 {
		t.Errorf("sampleRate = %d", msg.Start.MediaFormat.SampleRate)
	}

	msg, _, err = Decode([]byte(`{"event":"media","media":{"payload":"AQID"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if string(msg.Payload) != "\x01\x02\x03" {
		t.Errorf("payload = %v", msg.Payload)
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		msg   bridge.Message
		event string
	}{
		{bridge.Media([]byte{1, 2, 3}), EventMedia},
		{bridge.Mark("reply-1"), EventMark},
		{bridge.Clear(), EventClear},
	}
	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			data, err := Encode("MZ1", tt.msg)
			if err != nil {
				t.Fatal(err)
			}
			var env Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				t.Fatal(err)
			}
			if env.Event != tt.event || env.StreamSID != "MZ1" {
				t.Fatalf("envelope = %s", data)
			}
			switch tt.event {
			case EventMedia:
				if env.Media == nil || env.Media.Payload != "AQID" {
					t.Errorf("media = %s", data)
				}
			case EventMark:
				if env.Mark == nil || env.Mark.Name != "reply-1" {
					t.Errorf("mark = %s", data)
				}
			}
		})
	}

	if _, err := Encode("MZ1", bridge.Message{Kind: bridge.KindStop}); err == nil {
		t.Error("Encode(stop) should fail")
	}
}
