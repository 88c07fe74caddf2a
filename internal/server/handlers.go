package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"parking-ledger/internal/parking"
)

// ParkingService is the operation set the HTTP layer drives.
type ParkingService interface {
	CreateLots(ctx context.Context, carCount, motorcycleCount int) (parking.CreateLotsResult, error)
	Park(ctx context.Context, category parking.VehicleCategory, plate string, entry time.Time) (parking.ParkResult, error)
	Remove(ctx context.Context, plate string, exit time.Time) (parking.RemoveResult, error)
	MarkPaid(ctx context.Context, historyID string) error
	PatchRates(ctx context.Context, carHourlyRate, motorcycleHourlyRate *decimal.Decimal) (parking.RateTable, error)
	DeleteHistoryEntry(ctx context.Context, historyID string) bool
	ClearAllHistory(ctx context.Context) int
	GetState() parking.SystemState
	Status() parking.OccupancyStatus
	Rates() parking.RateTable
	Revenue() parking.RevenueSummary
	History() []parking.HistoryEntry
	FindVehicle(plate string) (parking.Lot, error)
}

type Handler struct {
	service     ParkingService
	serviceName string
	now         func() time.Time
}

func NewHandler(service ParkingService, serviceName string) *Handler {
	return &Handler{
		service:     service,
		serviceName: serviceName,
		now:         time.Now,
	}
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, parking.ErrAlreadyParked):
		return http.StatusConflict, "ALREADY_PARKED"
	case errors.Is(err, parking.ErrLotUnavailable):
		return http.StatusConflict, "LOT_UNAVAILABLE"
	case errors.Is(err, parking.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, parking.ErrExitBeforeEntry):
		return http.StatusBadRequest, "EXIT_BEFORE_ENTRY"
	case errors.Is(err, parking.ErrInvalidCategory),
		errors.Is(err, parking.ErrInvalidRate),
		errors.Is(err, parking.ErrInvalidLotCount),
		errors.Is(err, parking.ErrEmptyPlate):
		return http.StatusBadRequest, "INVALID_INPUT"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: h.serviceName,
	})
}

func (h *Handler) CreateLots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CreateLotsRequest
	if err := decode(r, &req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.CreateLots(ctx, req.CarCount, req.MotorcycleCount)
	if err != nil {
		WriteFailure(ctx, w, err)
		return
	}

	message := "Parking lots created successfully"
	if len(result.Orphaned) > 0 {
		message = "Parking lots recreated; vehicles in discarded lots were orphaned"
	}
	WriteSuccess(ctx, w, message, result)
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(r.Context(), w, "Status retrieved successfully", h.service.Status())
}

func (h *Handler) ParkVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ParkVehicleRequest
	if err := decode(r, &req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	category, err := parking.ParseCategory(req.Category)
	if err != nil {
		WriteFailure(ctx, w, err)
		return
	}

	entry := h.now()
	if req.EntryTime != nil {
		entry = *req.EntryTime
	}

	result, err := h.service.Park(ctx, category, req.LicensePlate, entry)
	if err != nil {
		WriteFailure(ctx, w, err)
		return
	}

	WriteSuccess(ctx, w, "Vehicle parked successfully", result)
}

func (h *Handler) RemoveVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req RemoveVehicleRequest
	if err := decode(r, &req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	exit := h.now()
	if req.ExitTime != nil {
		exit = *req.ExitTime
	}

	result, err := h.service.Remove(ctx, req.LicensePlate, exit)
	if err != nil {
		WriteFailure(ctx, w, err)
		return
	}

	WriteSuccess(ctx, w, "Vehicle removed successfully", result)
}

func (h *Handler) FindVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	lot, err := h.service.FindVehicle(chi.URLParam(r, "plate"))
	if err != nil {
		WriteFailure(ctx, w, err)
		return
	}

	WriteSuccess(ctx, w, "Vehicle found", FindVehicleResponse{
		LotID:        lot.ID,
		Category:     lot.Category.String(),
		LicensePlate: lot.Vehicle.LicensePlate,
		EntryTime:    lot.Vehicle.EntryTime,
	})
}

func (h *Handler) GetRates(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(r.Context(), w, "Rates retrieved successfully", h.service.Rates())
}

func (h *Handler) UpdateRates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req UpdateRatesRequest
	if err := decode(r, &req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rates, err := h.service.PatchRates(ctx, req.CarHourlyRate, req.MotorcycleHourlyRate)
	if err != nil {
		WriteFailure(ctx, w, err)
		return
	}

	WriteSuccess(ctx, w, "Rates updated successfully", rates)
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(r.Context(), w, "History retrieved successfully", h.service.History())
}

func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := h.service.MarkPaid(ctx, id); err != nil {
		WriteFailure(ctx, w, err)
		return
	}

	WriteSuccess(ctx, w, "Payment recorded", map[string]any{"id": id, "is_paid": true})
}

func (h *Handler) DeleteHistoryEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	deleted := h.service.DeleteHistoryEntry(ctx, id)

	WriteSuccess(ctx, w, "History entry deleted", map[string]any{"id": id, "deleted": deleted})
}

func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n := h.service.ClearAllHistory(ctx)
	WriteSuccess(ctx, w, "History cleared", ClearHistoryResponse{Deleted: n})
}

func (h *Handler) GetRevenue(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(r.Context(), w, "Revenue retrieved successfully", h.service.Revenue())
}

func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(r.Context(), w, "State retrieved successfully", h.service.GetState())
}
