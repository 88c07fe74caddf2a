package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"parking-ledger/internal/parking"
)

// NewRegistry builds the scrape registry for /metrics. State gauges are
// read from the service on every scrape.
func NewRegistry(service ParkingService) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	for _, category := range parking.Categories() {
		labels := prometheus.Labels{"category": category.String()}
		reg.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name:        "parking_lots_occupied",
				Help:        "Lots currently holding a vehicle.",
				ConstLabels: labels,
			}, func() float64 {
				return float64(categoryStatus(service.Status(), category).Occupied)
			}),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name:        "parking_lots_capacity",
				Help:        "Lots configured for the category.",
				ConstLabels: labels,
			}, func() float64 {
				return float64(categoryStatus(service.Status(), category).Total)
			}),
		)
	}

	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "parking_revenue_billed",
			Help: "Fees billed since the state was first created.",
		}, func() float64 {
			v, _ := service.Revenue().Billed.Float64()
			return v
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "parking_revenue_outstanding",
			Help: "Fees on unpaid history records.",
		}, func() float64 {
			v, _ := service.Revenue().Outstanding.Float64()
			return v
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "parking_sessions_active",
			Help: "History records without an exit time.",
		}, func() float64 {
			return float64(service.Revenue().Active)
		}),
	)

	return reg
}

func categoryStatus(status parking.OccupancyStatus, category parking.VehicleCategory) parking.CategoryStatus {
	if category == parking.Motorcycle {
		return status.Motorcycle
	}
	return status.Car
}
