package parking

import (
	"testing"
	"time"
)

func TestNewVehicle(t *testing.T) {
	regNumber := "KA01HH1234"
	entry := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	vehicle := NewVehicle(Car, regNumber, entry)

	if vehicle.LicensePlate != regNumber {
		t.Errorf("Expected license plate %s, got %s", regNumber, vehicle.LicensePlate)
	}

	if vehicle.Category != Car {
		t.Errorf("Expected category %s, got %s", Car, vehicle.Category)
	}

	if !vehicle.EntryTime.Equal(entry) {
		t.Errorf("Expected entry time %v, got %v", entry, vehicle.EntryTime)
	}
}

func TestNormalizePlate(t *testing.T) {
	cases := map[string]string{
		"abc123":     "ABC123",
		"  ka01 hh ": "KA01 HH",
		"XYZ999":     "XYZ999",
		"   ":        "",
	}
	for in, want := range cases {
		if got := NormalizePlate(in); got != want {
			t.Errorf("NormalizePlate(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestParseCategory(t *testing.T) {
	for _, in := range []string{"car", "Car", " CAR "} {
		c, err := ParseCategory(in)
		if err != nil || c != Car {
			t.Errorf("ParseCategory(%q): expected Car, got %q (%v)", in, c, err)
		}
	}

	c, err := ParseCategory("motorcycle")
	if err != nil || c != Motorcycle {
		t.Errorf("Expected Motorcycle, got %q (%v)", c, err)
	}

	if _, err := ParseCategory("truck"); err == nil {
		t.Error("Expected error for unknown category")
	}
}
