package incident

import (
	"reflect"
	"testing"
)

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"single", []float64{42}, 42},
		{"odd count", []float64{3, 1, 2}, 2},
		{"even count", []float64{4, 1, 3, 2}, 2.5},
		{"duplicates", []float64{5, 5, 5, 5}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Median(tt.values); got != tt.want {
				t.Errorf("Median() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		p      float64
		want   float64
	}{
		{"empty", nil, 0.85, 0},
		{"single", []float64{7}, 0.85, 7},
		{"p85 of ten", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.85, 9},
		{"p100 clamps to max", []float64{1, 2, 3}, 1.0, 3},
		{"p0 is min", []float64{9, 1, 5}, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Percentile(tt.values, tt.p); got != tt.want {
				t.Errorf("Percentile() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMathDoesNotMutateInput(t *testing.T) {
	values := []float64{9, 1, 5, 3}
	snapshot := []float64{9, 1, 5, 3}

	Median(values)
	Percentile(values, 0.85)
	if !reflect.DeepEqual(values, snapshot) {
		t.Errorf("input mutated: %v, want %v", values, snapshot)
	}
}
