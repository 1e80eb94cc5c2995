package filter

import (
	"testing"

	"github.com/menta2k/nutrivision/pkg/types"
)

func TestIsFood(t *testing.T) {
	tests := []struct {
		label string
		want  bool
	}{
		{"tomate", true},
		{"Pollo Asado", true},
		{"plato", false},
		{"  PLATO ", false},
		{"fork", false},
		{"Servilleta", false},
		{"platano", true}, // whole-label match only
		{"plato de arroz", true},
		{"", false},
		{"   ", false},
	}

	for _, tt := range tests {
		if got := IsFood(tt.label); got != tt.want {
			t.Errorf("IsFood(%q): expected %v, got %v", tt.label, tt.want, got)
		}
	}
}

func TestDenylistExtra(t *testing.T) {
	d := NewDenylist(" Bandeja ", "")
	if d.IsFood("bandeja") {
		t.Error("Expected configured term to be denied")
	}
	if d.IsFood("plato") {
		t.Error("Expected default terms to stay denied")
	}
	if d.Len() != Default.Len()+1 {
		t.Errorf("Expected %d entries, got %d", Default.Len()+1, d.Len())
	}
}

func TestIsPhysical(t *testing.T) {
	tests := []struct {
		raw  types.RawDetection
		want bool
	}{
		{types.RawDetection{YMin: 100, XMin: 100, YMax: 200, XMax: 200}, true},
		{types.RawDetection{YMin: 200, XMin: 100, YMax: 200, XMax: 200}, false},
		{types.RawDetection{YMin: 100, XMin: 300, YMax: 200, XMax: 200}, false},
	}
	for _, tt := range tests {
		if got := IsPhysical(tt.raw); got != tt.want {
			t.Errorf("IsPhysical(%+v): expected %v, got %v", tt.raw, tt.want, got)
		}
	}
}

func TestOverlaps(t *testing.T) {
	accepted := []types.PixelBox{{X1: 0, Y1: 0, X2: 100, Y2: 100}}

	inside := types.PixelBox{X1: 10, Y1: 10, X2: 90, Y2: 90}
	if !Overlaps(inside, accepted, DefaultOverlapThreshold) {
		t.Error("Expected contained box to be suppressed")
	}

	far := types.PixelBox{X1: 200, Y1: 200, X2: 300, Y2: 300}
	if Overlaps(far, accepted, DefaultOverlapThreshold) {
		t.Error("Expected disjoint box to be accepted")
	}

	if Overlaps(inside, nil, DefaultOverlapThreshold) {
		t.Error("Expected no overlap against an empty set")
	}
}

func TestOverlapsThresholdIsStrict(t *testing.T) {
	// IoU of these two boxes is exactly 0.5
	a := types.PixelBox{X1: 0, Y1: 0, X2: 100, Y2: 100}
	b := types.PixelBox{X1: 0, Y1: 0, X2: 100, Y2: 50}
	if Overlaps(b, []types.PixelBox{a}, 0.5) {
		t.Error("Expected IoU equal to the threshold not to count as overlap")
	}
	if !Overlaps(b, []types.PixelBox{a}, 0.49) {
		t.Error("Expected IoU above the threshold to count as overlap")
	}
}
