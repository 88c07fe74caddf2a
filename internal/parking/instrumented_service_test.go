package parking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type testTelemetry struct {
	provider *TelemetryProvider
	spans    *tracetest.SpanRecorder
	reader   *sdkmetric.ManualReader
}

func newTestTelemetry(t *testing.T) *testTelemetry {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	provider := newTelemetryProvider("parking-test", tp, mp, nil)
	t.Cleanup(func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Errorf("Failed to shutdown telemetry: %v", err)
		}
	})
	return &testTelemetry{provider: provider, spans: spans, reader: reader}
}

func (tt *testTelemetry) sum(t *testing.T, name string) float64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, tt.reader.Collect(context.Background(), &rm))

	var total float64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					total += float64(dp.Value)
				}
			case metricdata.Sum[float64]:
				for _, dp := range data.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func (tt *testTelemetry) spanNames() []string {
	var names []string
	for _, s := range tt.spans.Ended() {
		names = append(names, s.Name())
	}
	return names
}

func TestInstrumentedServiceIntegration(t *testing.T) {
	tel := newTestTelemetry(t)
	is, err := NewInstrumentedService(NewService(nil, DefaultRates()), tel.provider)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = is.CreateLots(ctx, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, float64(4), tel.sum(t, "parking_lot_total_lots"))

	res, err := is.Park(ctx, Car, "KA01HH1234", t0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.LotID)
	assert.Equal(t, float64(1), tel.sum(t, "parking_lot_occupancy"))

	_, err = is.Park(ctx, Car, "KA01HH1234", t0)
	assert.ErrorIs(t, err, ErrAlreadyParked)
	assert.Equal(t, float64(2), tel.sum(t, "parking_operations_total"))

	lot, err := is.FindVehicle("KA01HH1234")
	require.NoError(t, err)
	assert.Equal(t, 1, lot.ID)

	removed, err := is.Remove(ctx, "KA01HH1234", t0.Add(150*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "6", removed.Fee.String())
	assert.Equal(t, float64(0), tel.sum(t, "parking_lot_occupancy"))
	assert.InDelta(t, 6.0, tel.sum(t, "revenue_billed_total"), 0.0001)

	require.NoError(t, is.MarkPaid(ctx, removed.HistoryID))
	require.NoError(t, is.UpdateRates(ctx, NewRateTable(3, 2)))
	assert.True(t, is.DeleteHistoryEntry(ctx, removed.HistoryID))
	assert.Equal(t, 0, is.ClearAllHistory(ctx))

	assert.Equal(t, []string{
		"parking_service.create_lots",
		"parking_service.park",
		"parking_service.park",
		"parking_service.remove",
		"parking_service.mark_paid",
		"parking_service.update_rates",
		"parking_service.delete_history_entry",
		"parking_service.clear_history",
	}, tel.spanNames())
}

func TestInstrumentedServiceRecordsFailures(t *testing.T) {
	tel := newTestTelemetry(t)
	is, err := NewInstrumentedService(NewService(nil, DefaultRates()), tel.provider)
	require.NoError(t, err)

	_, err = is.Remove(context.Background(), "NOPE", t0)
	assert.ErrorIs(t, err, ErrNotFound)

	ended := tel.spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "Error", ended[0].Status().Code.String())
	assert.Equal(t, float64(1), tel.sum(t, "removal_operations_total"))
}

func TestInstrumentedServiceSeedsGaugesFromRestoredState(t *testing.T) {
	svc := NewService(nil, DefaultRates())
	_, err := svc.CreateLots(context.Background(), 2, 2)
	require.NoError(t, err)
	_, err = svc.Park(context.Background(), Motorcycle, "MC1", t0)
	require.NoError(t, err)

	tel := newTestTelemetry(t)
	is, err := NewInstrumentedService(svc, tel.provider)
	require.NoError(t, err)

	assert.Equal(t, float64(4), tel.sum(t, "parking_lot_total_lots"))
	assert.Equal(t, float64(1), tel.sum(t, "parking_lot_occupancy"))

	_, err = is.CreateLots(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, float64(1), tel.sum(t, "parking_lot_total_lots"))
	assert.Equal(t, float64(0), tel.sum(t, "parking_lot_occupancy"))
}

func TestInstrumentedCreateLotsAdjustsGaugesFromResult(t *testing.T) {
	ctx := context.Background()
	tel := newTestTelemetry(t)
	is, err := NewInstrumentedService(NewService(nil, DefaultRates()), tel.provider)
	require.NoError(t, err)

	_, err = is.CreateLots(ctx, 2, 1)
	require.NoError(t, err)
	_, err = is.Park(ctx, Car, "C1", t0)
	require.NoError(t, err)
	_, err = is.Park(ctx, Motorcycle, "M1", t0)
	require.NoError(t, err)

	res, err := is.CreateLots(ctx, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, res.DiscardedLots)
	assert.Len(t, res.Orphaned, 2)

	assert.Equal(t, float64(3), tel.sum(t, "parking_lot_total_lots"))
	assert.Equal(t, float64(0), tel.sum(t, "parking_lot_occupancy"))
}
