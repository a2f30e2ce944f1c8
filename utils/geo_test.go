package utils

import (
	"math"
	"testing"

	"eco-route/model"
)

func TestHaversineDistance_KnownPair(t *testing.T) {
	// KRS Road -> Mysore Palace, roughly 1.6 km apart.
	a := model.Point{Lat: 12.3040, Lng: 76.6397}
	b := model.Point{Lat: 12.3051, Lng: 76.6551}

	d := HaversineDistance(a, b)
	if d < 1500 || d > 1800 {
		t.Errorf("distance = %.1f m, want ~1680 m", d)
	}
}

func TestHaversineDistance_Symmetric(t *testing.T) {
	a := model.Point{Lat: 12.2726, Lng: 76.6730}
	b := model.Point{Lat: 12.3550, Lng: 76.5950}
	if math.Abs(HaversineDistance(a, b)-HaversineDistance(b, a)) > 1e-9 {
		t.Error("distance is not symmetric")
	}
	if HaversineDistance(a, a) != 0 {
		t.Error("distance to self should be 0")
	}
}

func TestBoundAround_ContainsRadius(t *testing.T) {
	p := model.Point{Lat: 12.30, Lng: 76.64}
	b := BoundAround(p, 1000)

	north := model.Point{Lat: 12.30 + 0.0089, Lng: 76.64}
	if !b.Contains(ToOrb(north)) {
		t.Error("bound should contain a point ~990 m north")
	}
	far := model.Point{Lat: 12.32, Lng: 76.64}
	if b.Contains(ToOrb(far)) {
		t.Error("bound should not contain a point ~2.2 km north")
	}
}

func TestValidCoordinate(t *testing.T) {
	tests := []struct {
		p    model.Point
		want bool
	}{
		{model.Point{Lat: 12.3, Lng: 76.6}, true},
		{model.Point{Lat: 91, Lng: 0}, false},
		{model.Point{Lat: 0, Lng: -181}, false},
		{model.Point{Lat: math.NaN(), Lng: 0}, false},
		{model.Point{Lat: 0, Lng: math.Inf(1)}, false},
	}
	for _, tt := range tests {
		if got := ValidCoordinate(tt.p); got != tt.want {
			t.Errorf("ValidCoordinate(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "secret123") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}
