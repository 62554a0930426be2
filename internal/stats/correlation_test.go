package stats

import (
	"errors"
	"math"
	"testing"
)

func TestPearson_KnownValue(t *testing.T) {
	c, err := Pearson([]float64{1, 2, 3, 4, 5}, []float64{2, 1, 4, 3, 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(c.R-0.8) > 1e-12 {
		t.Errorf("expected r=0.8, got %v", c.R)
	}
	if math.Abs(c.PValue-0.104088) > 1e-4 {
		t.Errorf("expected p≈0.1041, got %v", c.PValue)
	}
	if c.N != 5 {
		t.Errorf("expected n=5, got %d", c.N)
	}
}

func TestPearson_Symmetric(t *testing.T) {
	x := []float64{3, 1, 4, 1, 5, 9}
	y := []float64{2, 7, 1, 8, 2, 8}
	a, err := Pearson(x, y)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Pearson(y, x)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(a.R-b.R) > 1e-12 || math.Abs(a.PValue-b.PValue) > 1e-12 {
		t.Errorf("expected symmetric result, got %+v and %+v", a, b)
	}
}

func TestPearson_PerfectLine(t *testing.T) {
	c, err := Pearson([]float64{1, 2, 3}, []float64{-2, -4, -6})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(c.R+1) > 1e-12 {
		t.Errorf("expected r=-1, got %v", c.R)
	}
	if c.PValue > 1e-6 {
		t.Errorf("expected p≈0 for a perfect line, got %v", c.PValue)
	}
}

func TestPearson_Errors(t *testing.T) {
	if _, err := Pearson([]float64{1, 1, 1}, []float64{1, 2, 3}); !errors.Is(err, ErrZeroVariance) {
		t.Errorf("expected ErrZeroVariance, got %v", err)
	}
	if _, err := Pearson([]float64{1, 2}, []float64{1, 2}); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
	if _, err := Pearson([]float64{1, 2, 3}, []float64{1, 2}); err == nil {
		t.Error("expected error for unaligned samples")
	}
}
