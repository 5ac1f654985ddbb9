package resampler

import (
	"bytes"
	"math"
	"testing"
)

func sine(rate int, samples int) []byte {
	b := make([]byte, 2*samples)
	for i := 0; i < samples; i++ {
		s := int16(math.Sin(2*math.Pi*440*float64(i)/float64(rate)) * 12000)
		b[2*i] = byte(s)
		b[2*i+1] = byte(s >> 8)
	}
	return b
}

func TestResample_SameRate(t *testing.T) {
	in := sine(16000, 320)
	out, dropped, err := Resample(in, 16000, 16000)
	if err != nil {
		t.Fatalf("Resample error: %v", err)
	}
	if dropped != 0 {
		t.Errorf("dropped = %d, want 0", dropped)
	}
	if !bytes.Equal(in, out) {
		t.Fatal("same-rate resample should copy input")
	}
	out[0] ^= 0xFF
	if bytes.Equal(in, out) {
		t.Fatal("output must not alias input")
	}
}

func TestResample_TruncatedSample(t *testing.T) {
	in := append(sine(8000, 160), 0x42)
	out, dropped, err := Resample(in, 8000, 8000)
	if err != nil {
		t.Fatalf("Resample error: %v", err)
	}
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	if len(out) != 320 {
		t.Errorf("len(out) = %d, want 320", len(out))
	}
}

func TestResample_EvenLength(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
	}{
		{"8k->16k", 8000, 16000},
		{"8k->24k", 8000, 24000},
		{"24k->8k", 24000, 8000},
		{"16k->8k", 16000, 8000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := Resample(sine(tt.from, tt.from/5), tt.from, tt.to)
			if err != nil {
				t.Fatalf("Resample error: %v", err)
			}
			if len(out)%2 != 0 {
				t.Fatalf("odd output length %d", len(out))
			}
		})
	}
}

func TestStream_CarriesOddByte(t *testing.T) {
	st, err := NewStream(8000, 8000)
	if err != nil {
		t.Fatalf("NewStream error: %v", err)
	}
	out, err := st.Process([]byte{1, 2, 3})
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if !bytes.Equal(out, []byte{1, 2}) {
		t.Errorf("out = %v, want [1 2]", out)
	}
	if st.Pending() != 1 {
		t.Errorf("Pending = %d, want 1", st.Pending())
	}
	out, err = st.Process([]byte{4})
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if !bytes.Equal(out, []byte{3, 4}) {
		t.Errorf("out = %v, want [3 4]", out)
	}
	if n := st.Close(); n != 0 {
		t.Errorf("Close discarded %d bytes, want 0", n)
	}
	if _, err := st.Process([]byte{1, 2}); err != ErrClosed {
		t.Errorf("Process after Close = %v, want ErrClosed", err)
	}
}

func TestStream_ContinuousOutput(t *testing.T) {
	st, err := NewStream(8000, 16000)
	if err != nil {
		t.Fatalf("NewStream error: %v", err)
	}
	defer st.Close()
	in := sine(8000, 8000) // 1s
	var total int
	for off := 0; off < len(in); off += 320 {
		out, err := st.Process(in[off : off+320])
		if err != nil {
			t.Fatalf("Process error: %v", err)
		}
		if len(out)%2 != 0 {
			t.Fatalf("odd chunk length %d", len(out))
		}
		total += len(out)
	}
	// Filter latency holds back some samples, but at least half of the
	// upsampled second must come out.
	if total < len(in) || total > 2*len(in)+512 {
		t.Errorf("total output %d bytes for %d input bytes", total, len(in))
	}
}

func TestNewStream_InvalidRate(t *testing.T) {
	if _, err := NewStream(0, 16000); err == nil {
		t.Fatal("expected error for zero rate")
	}
}

func TestStream_FlushEmitsTail(t *testing.T) {
	st, err := NewStream(24000, 8000)
	if err != nil {
		t.Fatalf("NewStream error: %v", err)
	}
	defer st.Close()
	in := sine(24000, 24000) // 1s
	var total int
	for off := 0; off < len(in); off += 960 {
		out, err := st.Process(in[off : off+960])
		if err != nil {
			t.Fatalf("Process error: %v", err)
		}
		total += len(out)
	}
	tail, err := st.Flush()
	if err != nil {
		t.Fatalf("Flush error: %v", err)
	}
	if len(tail) == 0 || len(tail)%2 != 0 {
		t.Fatalf("tail = %d bytes, want a non-empty even length", len(tail))
	}
	total += len(tail)
	// One second at 8k is 16000 bytes.
	if total < 15200 || total > 17600 {
		t.Errorf("total = %d bytes, want about 16000", total)
	}

	// The stream is reusable after a flush.
	if _, err := st.Process(in[:960]); err != nil {
		t.Errorf("Process after Flush: %v", err)
	}
}

func TestResample_IncludesTail(t *testing.T) {
	in := sine(8000, 1600) // 200ms
	out, _, err := Resample(in, 8000, 16000)
	if err != nil {
		t.Fatalf("Resample error: %v", err)
	}
	// 200ms at 16k is 6400 bytes; without the flush the filter delay is lost.
	if len(out) < 6080 || len(out) > 7040 {
		t.Errorf("len(out) = %d, want about 6400", len(out))
	}
}
