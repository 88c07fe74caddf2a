package parking

import (
	"fmt"
	"strings"
)

// VehicleCategory is the closed set of lot/vehicle kinds.
type VehicleCategory string

const (
	Car        VehicleCategory = "Car"
	Motorcycle VehicleCategory = "Motorcycle"
)

var categories = []VehicleCategory{Car, Motorcycle}

// Categories returns every category in registry search order.
func Categories() []VehicleCategory {
	return append([]VehicleCategory(nil), categories...)
}

func (c VehicleCategory) Valid() bool {
	return c == Car || c == Motorcycle
}

func (c VehicleCategory) String() string {
	return string(c)
}

// ParseCategory accepts the category name in any letter case.
func ParseCategory(s string) (VehicleCategory, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "car":
		return Car, nil
	case "motorcycle", "moto":
		return Motorcycle, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}
