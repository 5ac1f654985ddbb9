package encoding

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestBase64_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Base64("hello world"))
	if err != nil {
		t.Fatalf("MarshalJSON error: %v", err)
	}
	if want := `"aGVsbG8gd29ybGQ="`; string(b) != want {
		t.Errorf("MarshalJSON = %s; want %s", b, want)
	}
}

func TestBase64_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []byte
		wantErr bool
	}{
		{name: "valid", input: `"aGVsbG8gd29ybGQ="`, want: []byte("hello world")},
		{name: "missing padding", input: `"aGVsbG8gd29ybGQ"`, want: []byte("hello world")},
		{name: "empty", input: `""`, want: []byte{}},
		{name: "null", input: `null`, want: nil},
		{name: "number", input: `123`, wantErr: true},
		{name: "garbage", input: `"!!!!"`, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var data Base64
			err := json.Unmarshal([]byte(tc.input), &data)
			if tc.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("UnmarshalJSON error: %v", err)
			}
			if string(data) != string(tc.want) {
				t.Errorf("UnmarshalJSON = %v; want %v", data, tc.want)
			}
		})
	}
}

func TestDecodeLenient(t *testing.T) {
	// 0xfb 0xff encodes to "+/8=" in the standard alphabet.
	tests := []struct {
		name  string
		input string
		want  []byte
	}{
		{"standard", "+/8=", []byte{0xfb, 0xff}},
		{"url alphabet", "-_8", []byte{0xfb, 0xff}},
		{"whitespace", " +/\n8= ", []byte{0xfb, 0xff}},
		{"extra padding", "+/8===", []byte{0xfb, 0xff}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeLenient(tc.input)
			if err != nil {
				t.Fatalf("DecodeLenient(%q) error: %v", tc.input, err)
			}
			if string(got) != string(tc.want) {
				t.Errorf("DecodeLenient(%q) = %x, want %x", tc.input, got, tc.want)
			}
		})
	}
}

func TestDecodeLenient_Rejects(t *testing.T) {
	for _, in := range []string{"a", "abcde", "ab$d"} {
		if _, err := DecodeLenient(in); !errors.Is(err, ErrBase64) {
			t.Errorf("DecodeLenient(%q) = %v, want ErrBase64", in, err)
		}
	}
}
