package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
)

type Meta struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type CreateLotsRequest struct {
	CarCount        int `json:"car_count"`
	MotorcycleCount int `json:"motorcycle_count"`
}

type ParkVehicleRequest struct {
	Category     string     `json:"category"`
	LicensePlate string     `json:"license_plate"`
	EntryTime    *time.Time `json:"entry_time,omitempty"`
}

type RemoveVehicleRequest struct {
	LicensePlate string     `json:"license_plate"`
	ExitTime     *time.Time `json:"exit_time,omitempty"`
}

// UpdateRatesRequest leaves a rate unchanged when its field is omitted.
type UpdateRatesRequest struct {
	CarHourlyRate        *decimal.Decimal `json:"car_hourly_rate,omitempty"`
	MotorcycleHourlyRate *decimal.Decimal `json:"motorcycle_hourly_rate,omitempty"`
}

type FindVehicleResponse struct {
	LotID        int       `json:"lot_id"`
	Category     string    `json:"category"`
	LicensePlate string    `json:"license_plate"`
	EntryTime    time.Time `json:"entry_time"`
}

type ClearHistoryResponse struct {
	Deleted int `json:"deleted"`
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func extractMeta(ctx context.Context) *Meta {
	meta := &Meta{}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		meta.TraceID = span.SpanContext().TraceID().String()
	}

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		meta.RequestID = reqID
	}

	return meta
}

func WriteSuccess(ctx context.Context, w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    extractMeta(ctx),
	})
}

func WriteError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{
		Success: false,
		Error:   message,
		Meta:    extractMeta(ctx),
	})
}

// WriteFailure reports an expected operation failure with its typed code.
func WriteFailure(ctx context.Context, w http.ResponseWriter, err error) {
	status, code := classify(err)
	WriteJSON(w, status, Response{
		Success: false,
		Error:   err.Error(),
		Code:    code,
		Meta:    extractMeta(ctx),
	})
}
