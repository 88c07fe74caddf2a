package parking

import (
	"strings"
	"time"
)

type Vehicle struct {
	Category     VehicleCategory `json:"category"`
	LicensePlate string          `json:"license_plate"`
	EntryTime    time.Time       `json:"entry_time"`
}

func NewVehicle(category VehicleCategory, licensePlate string, entryTime time.Time) *Vehicle {
	return &Vehicle{
		Category:     category,
		LicensePlate: licensePlate,
		EntryTime:    entryTime,
	}
}

// NormalizePlate is the canonical form plates are stored and matched in.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}
