package parking

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedService wraps every Service operation in a span and records
// operation counters, occupancy and billed revenue.
type InstrumentedService struct {
	*Service
	telemetry *TelemetryProvider

	// Metrics
	parkingOperations metric.Int64Counter
	removalOperations metric.Int64Counter
	adminOperations   metric.Int64Counter
	occupancyGauge    metric.Int64UpDownCounter
	totalLotsGauge    metric.Int64UpDownCounter
	revenueBilled     metric.Float64Counter
	operationDuration metric.Float64Histogram
}

func NewInstrumentedService(svc *Service, telemetry *TelemetryProvider) (*InstrumentedService, error) {
	meter := telemetry.Meter()

	parkingOperations, err := meter.Int64Counter("parking_operations_total",
		metric.WithDescription("Total number of park operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	removalOperations, err := meter.Int64Counter("removal_operations_total",
		metric.WithDescription("Total number of vehicle removal operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	adminOperations, err := meter.Int64Counter("admin_operations_total",
		metric.WithDescription("Total number of lot, rate and history administration operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	occupancyGauge, err := meter.Int64UpDownCounter("parking_lot_occupancy",
		metric.WithDescription("Current number of occupied lots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	totalLotsGauge, err := meter.Int64UpDownCounter("parking_lot_total_lots",
		metric.WithDescription("Total number of lots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	revenueBilled, err := meter.Float64Counter("revenue_billed_total",
		metric.WithDescription("Fees billed at vehicle removal"),
		metric.WithUnit("{currency}"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("operation_duration_seconds",
		metric.WithDescription("Duration of parking service operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	is := &InstrumentedService{
		Service:           svc,
		telemetry:         telemetry,
		parkingOperations: parkingOperations,
		removalOperations: removalOperations,
		adminOperations:   adminOperations,
		occupancyGauge:    occupancyGauge,
		totalLotsGauge:    totalLotsGauge,
		revenueBilled:     revenueBilled,
		operationDuration: operationDuration,
	}

	// Seed gauges from whatever state the service already holds
	status := svc.Status()
	ctx := context.Background()
	totalLotsGauge.Add(ctx, int64(status.Car.Total+status.Motorcycle.Total))
	occupancyGauge.Add(ctx, int64(status.Car.Occupied+status.Motorcycle.Occupied))

	return is, nil
}

func (is *InstrumentedService) finish(ctx context.Context, span trace.Span, start time.Time, err error, labels []attribute.KeyValue) []attribute.KeyValue {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels,
			attribute.String("status", "failed"),
			attribute.String("reason", failureReason(err)),
		)
	} else {
		labels = append(labels, attribute.String("status", "success"))
	}
	is.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(labels...))
	return labels
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyParked):
		return "already_parked"
	case errors.Is(err, ErrLotUnavailable):
		return "lot_unavailable"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrExitBeforeEntry):
		return "exit_before_entry"
	default:
		return "invalid_input"
	}
}

func (is *InstrumentedService) CreateLots(ctx context.Context, carCount, motorcycleCount int) (CreateLotsResult, error) {
	ctx, span := is.telemetry.Tracer().Start(ctx, "parking_service.create_lots",
		trace.WithAttributes(
			attribute.Int("lots.car_count", carCount),
			attribute.Int("lots.motorcycle_count", motorcycleCount),
		))
	defer span.End()

	start := time.Now()

	result, err := is.Service.CreateLots(ctx, carCount, motorcycleCount)

	labels := is.finish(ctx, span, start, err, []attribute.KeyValue{attribute.String("operation", "create_lots")})
	is.adminOperations.Add(ctx, 1, metric.WithAttributes(labels...))

	if err == nil {
		is.totalLotsGauge.Add(ctx, int64(carCount+motorcycleCount-result.DiscardedLots))
		is.occupancyGauge.Add(ctx, -int64(len(result.Orphaned)))
		if len(result.Orphaned) > 0 {
			span.AddEvent("sessions_orphaned", trace.WithAttributes(
				attribute.Int("orphaned_count", len(result.Orphaned)),
			))
		}
	}

	return result, err
}

func (is *InstrumentedService) Park(ctx context.Context, category VehicleCategory, plate string, entry time.Time) (ParkResult, error) {
	ctx, span := is.telemetry.Tracer().Start(ctx, "parking_service.park",
		trace.WithAttributes(
			attribute.String("vehicle.license_plate", plate),
			attribute.String("vehicle.category", category.String()),
		))
	defer span.End()

	start := time.Now()

	span.AddEvent("finding_available_lot")

	result, err := is.Service.Park(ctx, category, plate, entry)

	labels := is.finish(ctx, span, start, err, []attribute.KeyValue{
		attribute.String("operation", "park"),
		attribute.String("vehicle_category", category.String()),
	})
	is.parkingOperations.Add(ctx, 1, metric.WithAttributes(labels...))

	if err == nil {
		span.SetAttributes(
			attribute.Int("allocated_lot_id", result.LotID),
			attribute.String("history_id", result.HistoryID),
		)
		span.AddEvent("lot_allocated", trace.WithAttributes(
			attribute.Int("lot_id", result.LotID),
		))
		is.occupancyGauge.Add(ctx, 1)
	}

	return result, err
}

func (is *InstrumentedService) Remove(ctx context.Context, plate string, exit time.Time) (RemoveResult, error) {
	ctx, span := is.telemetry.Tracer().Start(ctx, "parking_service.remove",
		trace.WithAttributes(
			attribute.String("vehicle.license_plate", plate),
		))
	defer span.End()

	start := time.Now()

	span.AddEvent("releasing_lot")

	result, err := is.Service.Remove(ctx, plate, exit)

	labels := []attribute.KeyValue{attribute.String("operation", "remove")}
	if err == nil {
		labels = append(labels, attribute.String("vehicle_category", result.Category.String()))
	}
	labels = is.finish(ctx, span, start, err, labels)
	is.removalOperations.Add(ctx, 1, metric.WithAttributes(labels...))

	if err == nil {
		fee := result.Fee.InexactFloat64()
		span.SetAttributes(
			attribute.Int("lot_id", result.LotID),
			attribute.String("fee", result.Fee.StringFixed(2)),
		)
		span.AddEvent("lot_released")
		is.occupancyGauge.Add(ctx, -1)
		is.revenueBilled.Add(ctx, fee, metric.WithAttributes(attribute.String("vehicle_category", result.Category.String())))
	}

	return result, err
}

func (is *InstrumentedService) MarkPaid(ctx context.Context, historyID string) error {
	ctx, span := is.telemetry.Tracer().Start(ctx, "parking_service.mark_paid",
		trace.WithAttributes(attribute.String("history_id", historyID)))
	defer span.End()

	start := time.Now()
	err := is.Service.MarkPaid(ctx, historyID)

	labels := is.finish(ctx, span, start, err, []attribute.KeyValue{attribute.String("operation", "mark_paid")})
	is.adminOperations.Add(ctx, 1, metric.WithAttributes(labels...))

	return err
}

func (is *InstrumentedService) UpdateRates(ctx context.Context, rates RateTable) error {
	ctx, span := is.telemetry.Tracer().Start(ctx, "parking_service.update_rates",
		trace.WithAttributes(
			attribute.String("rates.car_hourly", rates.CarHourlyRate.String()),
			attribute.String("rates.motorcycle_hourly", rates.MotorcycleHourlyRate.String()),
		))
	defer span.End()

	start := time.Now()
	err := is.Service.UpdateRates(ctx, rates)

	labels := is.finish(ctx, span, start, err, []attribute.KeyValue{attribute.String("operation", "update_rates")})
	is.adminOperations.Add(ctx, 1, metric.WithAttributes(labels...))

	return err
}

func (is *InstrumentedService) PatchRates(ctx context.Context, carHourlyRate, motorcycleHourlyRate *decimal.Decimal) (RateTable, error) {
	ctx, span := is.telemetry.Tracer().Start(ctx, "parking_service.update_rates")
	defer span.End()

	start := time.Now()
	rates, err := is.Service.PatchRates(ctx, carHourlyRate, motorcycleHourlyRate)
	span.SetAttributes(
		attribute.String("rates.car_hourly", rates.CarHourlyRate.String()),
		attribute.String("rates.motorcycle_hourly", rates.MotorcycleHourlyRate.String()),
	)

	labels := is.finish(ctx, span, start, err, []attribute.KeyValue{attribute.String("operation", "update_rates")})
	is.adminOperations.Add(ctx, 1, metric.WithAttributes(labels...))

	return rates, err
}

func (is *InstrumentedService) DeleteHistoryEntry(ctx context.Context, historyID string) bool {
	ctx, span := is.telemetry.Tracer().Start(ctx, "parking_service.delete_history_entry",
		trace.WithAttributes(attribute.String("history_id", historyID)))
	defer span.End()

	start := time.Now()
	deleted := is.Service.DeleteHistoryEntry(ctx, historyID)
	span.SetAttributes(attribute.Bool("deleted", deleted))

	labels := is.finish(ctx, span, start, nil, []attribute.KeyValue{attribute.String("operation", "delete_history_entry")})
	is.adminOperations.Add(ctx, 1, metric.WithAttributes(labels...))

	return deleted
}

func (is *InstrumentedService) ClearAllHistory(ctx context.Context) int {
	ctx, span := is.telemetry.Tracer().Start(ctx, "parking_service.clear_history")
	defer span.End()

	start := time.Now()
	n := is.Service.ClearAllHistory(ctx)
	span.SetAttributes(attribute.Int("deleted_count", n))

	labels := is.finish(ctx, span, start, nil, []attribute.KeyValue{attribute.String("operation", "clear_history")})
	is.adminOperations.Add(ctx, 1, metric.WithAttributes(labels...))

	return n
}
