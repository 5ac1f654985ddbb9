package buffer

import (
	"slices"
	"testing"
)

func TestRingBuffer(t *testing.T) {
	tests := []struct {
		size int
		add  []int
		want []int
	}{
		{size: 1, add: []int{1, 2, 3}, want: []int{3}},
		{size: 2, add: []int{1, 2, 3}, want: []int{2, 3}},
		{size: 3, add: []int{1, 2, 3}, want: []int{1, 2, 3}},
		{size: 4, add: []int{1, 2, 3}, want: []int{1, 2, 3}},
		{size: 3, add: []int{1, 2, 3, 4, 5, 6, 7}, want: []int{5, 6, 7}},
		{size: 3, add: nil, want: []int{}},
	}
	for _, tt := range tests {
		rb := RingN[int](tt.size)
		for _, v := range tt.add {
			rb.Add(v)
		}
		if rb.Len() != len(tt.want) {
			t.Errorf("size=%d add=%v: len=%d, want %d", tt.size, tt.add, rb.Len(), len(tt.want))
		}
		if got := rb.Items(); !slices.Equal(got, tt.want) {
			t.Errorf("size=%d add=%v: got=%v, want %v", tt.size, tt.add, got, tt.want)
		}
	}
}

func TestRingBuffer_Reset(t *testing.T) {
	rb := RingN[string](2)
	rb.Add("a")
	rb.Add("b")
	rb.Reset()
	if rb.Len() != 0 {
		t.Fatalf("len=%d after Reset", rb.Len())
	}
	rb.Add("c")
	if got := rb.Items(); !slices.Equal(got, []string{"c"}) {
		t.Fatalf("got=%v", got)
	}
}
