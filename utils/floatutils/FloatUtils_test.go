package floatutils

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClip(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{-1, 0},
		{0.5, 0.5},
		{2, 1},
	}
	for _, test := range tests {
		if have := Clip(test.in, 0, 1); have != test.want {
			t.Errorf("clip(%v): want %v, have %v", test.in, test.want, have)
		}
	}
}

func TestMaxSlice(t *testing.T) {
	max, indices := MaxSlice([]float64{3, 1, 3, -2, 3})
	if max != 3 {
		t.Errorf("want max 3, have %v", max)
	}
	if diff := cmp.Diff([]int{0, 2, 4}, indices); diff != "" {
		t.Errorf("indices mismatch (-want +have):\n%s", diff)
	}

	if i := Argmax([]float64{0, 5, 5}); i != 1 {
		t.Errorf("want first maximum at 1, have %v", i)
	}
}
