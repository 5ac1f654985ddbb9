package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type sample struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := Output(sample{"a", 1}, OutputOptions{Format: FormatJSON, Writer: &buf}); err != nil {
		t.Fatal(err)
	}
	var got sample
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if got.Name != "a" || got.Value != 1 {
		t.Errorf("JSON round trip = %+v", got)
	}

	buf.Reset()
	if err := Output(sample{"b", 2}, OutputOptions{Writer: &buf}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "name: b") {
		t.Errorf("YAML output = %q", buf.String())
	}

	buf.Reset()
	if err := Output("raw text", OutputOptions{Format: FormatRaw, Writer: &buf}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "raw text" {
		t.Errorf("raw output = %q", buf.String())
	}

	if err := Output(1, OutputOptions{Format: "xml", Writer: &buf}); err == nil {
		t.Error("unknown format accepted")
	}
}

func TestOutput_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := Output(sample{"c", 3}, OutputOptions{Format: FormatJSON, File: path}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"name": "c"`) {
		t.Errorf("file = %q", data)
	}
	if err := OutputBytes([]byte{1}, ""); err == nil {
		t.Error("OutputBytes without path succeeded")
	}
}

func TestParseRequest(t *testing.T) {
	var v sample
	if err := ParseRequest([]byte("name: y\nvalue: 7\n"), "req.yaml", &v); err != nil {
		t.Fatal(err)
	}
	if v.Value != 7 {
		t.Errorf("yaml value = %d", v.Value)
	}
	var w struct {
		Name string `yaml:"name"`
	}
	if err := ParseRequest([]byte(`{"name":"j"}`), "req", &w); err != nil || w.Name != "j" {
		t.Errorf("untyped = %+v, %v", w, err)
	}
	if err := ParseRequest([]byte("{"), "req.json", &v); err == nil {
		t.Error("broken JSON accepted")
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{3060 * time.Millisecond, "3.06s"},
		{90 * time.Second, "1m30.0s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
	if got := FormatBytes(1536); got != "1.50 KB" {
		t.Errorf("FormatBytes = %q", got)
	}
}

func TestLogWriter(t *testing.T) {
	w := NewLogWriter(3)
	w.Write([]byte("one\ntwo\n"))
	w.Write([]byte("three\nfour\n"))
	got := w.Lines()
	if strings.Join(got, ",") != "two,three,four" {
		t.Errorf("lines = %v", got)
	}
}

func TestSummary(t *testing.T) {
	out := Summary{
		Title: "replay",
		Rows:  []Row{{"utterances", "2"}, {"speech", "3.06s"}},
		Notes: []string{"threshold 0.012"},
	}.Render()
	for _, want := range []string{"replay", "utterances", "3.06s", "threshold 0.012"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
