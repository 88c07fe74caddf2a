package parking

import "github.com/shopspring/decimal"

// RateTable holds the hourly rate per category.
type RateTable struct {
	CarHourlyRate        decimal.Decimal `json:"car_hourly_rate"`
	MotorcycleHourlyRate decimal.Decimal `json:"motorcycle_hourly_rate"`
}

func DefaultRates() RateTable {
	return RateTable{
		CarHourlyRate:        decimal.NewFromInt(2),
		MotorcycleHourlyRate: decimal.NewFromInt(1),
	}
}

func NewRateTable(carHourlyRate, motorcycleHourlyRate float64) RateTable {
	return RateTable{
		CarHourlyRate:        decimal.NewFromFloat(carHourlyRate),
		MotorcycleHourlyRate: decimal.NewFromFloat(motorcycleHourlyRate),
	}
}

func (r RateTable) HourlyRate(category VehicleCategory) decimal.Decimal {
	if category == Car {
		return r.CarHourlyRate
	}
	return r.MotorcycleHourlyRate
}

func (r RateTable) Validate() error {
	if r.CarHourlyRate.IsNegative() || r.MotorcycleHourlyRate.IsNegative() {
		return ErrInvalidRate
	}
	return nil
}
