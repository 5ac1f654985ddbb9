package jsontime

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMilli_JSON(t *testing.T) {
	tm := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	data, err := json.Marshal(Milli(tm))
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if want := "1705314600000"; string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}
	var back Milli
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if !back.Time().Equal(tm) {
		t.Errorf("Unmarshal = %v, want %v", back.Time(), tm)
	}
}

func TestMilli_Zero(t *testing.T) {
	data, _ := json.Marshal(Milli{})
	if string(data) != "0" {
		t.Errorf("Marshal(zero) = %s, want 0", data)
	}
	var m Milli
	if err := json.Unmarshal([]byte("0"), &m); err != nil || !m.IsZero() {
		t.Errorf("Unmarshal(0) = %v, %v", m.Time(), err)
	}
}

func TestDuration_JSON(t *testing.T) {
	data, err := json.Marshal(Duration(1500 * time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"1.5s"` {
		t.Errorf("Marshal = %s, want \"1.5s\"", data)
	}
	tests := []struct {
		in   string
		want time.Duration
	}{
		{`"700ms"`, 700 * time.Millisecond},
		{`250`, 250 * time.Millisecond},
		{`"2m"`, 2 * time.Minute},
	}
	for _, tt := range tests {
		var d Duration
		if err := json.Unmarshal([]byte(tt.in), &d); err != nil {
			t.Errorf("Unmarshal(%s) error: %v", tt.in, err)
			continue
		}
		if d.Std() != tt.want {
			t.Errorf("Unmarshal(%s) = %v, want %v", tt.in, d, tt.want)
		}
	}
	var d Duration
	if err := json.Unmarshal([]byte(`"soon"`), &d); err == nil {
		t.Error("Unmarshal(\"soon\") should fail")
	}
}
