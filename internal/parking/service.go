package parking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"parking-ledger/internal/logging"
)

// Service is the only mutator of parking state. Every operation runs under
// one lock and touches lots, history and revenue together.
type Service struct {
	mu sync.Mutex

	lots    *LotRegistry
	ledger  *HistoryLedger
	revenue decimal.Decimal
	rates   RateTable

	store Store
}

// NewService starts from empty registries, an empty ledger, zero revenue
// and the given rates. store may be nil.
func NewService(store Store, rates RateTable) *Service {
	return &Service{
		lots:    NewLotRegistry(),
		ledger:  NewHistoryLedger(),
		revenue: decimal.Zero,
		rates:   rates,
		store:   store,
	}
}

type CreateLotsResult struct {
	CarLots        int       `json:"car_lots"`
	MotorcycleLots int       `json:"motorcycle_lots"`
	DiscardedLots  int       `json:"discarded_lots"`
	Orphaned       []Vehicle `json:"orphaned,omitempty"`
}

type ParkResult struct {
	LotID     int             `json:"lot_id"`
	Category  VehicleCategory `json:"category"`
	HistoryID string          `json:"history_id"`
}

type RemoveResult struct {
	LotID     int             `json:"lot_id"`
	Category  VehicleCategory `json:"category"`
	Fee       decimal.Decimal `json:"fee"`
	HistoryID string          `json:"history_id,omitempty"`
	Duration  string          `json:"duration"`
}

// Restore loads persisted state. A missing or unreadable record leaves the
// service empty; the error is logged, not returned.
func (s *Service) Restore(ctx context.Context) bool {
	if s.store == nil {
		return false
	}

	state, err := s.store.Load(ctx)
	if err != nil {
		logging.Error(ctx, "failed to load parking state, starting empty", "error", err)
		return false
	}
	if state == nil {
		logging.Info(ctx, "no saved parking state, starting empty")
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lots.restore(Car, state.CarLots)
	s.lots.restore(Motorcycle, state.MotorcycleLots)
	s.ledger.restore(state.History)
	s.revenue = state.Revenue
	if err := state.Rates.Validate(); err == nil {
		s.rates = state.Rates
	} else {
		logging.Warn(ctx, "ignoring saved rates", "error", err)
	}

	logging.Info(ctx, "parking state restored",
		"car_lots", len(state.CarLots),
		"motorcycle_lots", len(state.MotorcycleLots),
		"history", len(state.History),
	)
	return true
}

// CreateLots discards both pools and creates fresh ones. Vehicles parked in
// the old lots are reported back as orphaned; their sessions stay active.
func (s *Service) CreateLots(ctx context.Context, carCount, motorcycleCount int) (CreateLotsResult, error) {
	if carCount < 0 || motorcycleCount < 0 {
		return CreateLotsResult{}, fmt.Errorf("create %d car and %d motorcycle lots: %w", carCount, motorcycleCount, ErrInvalidLotCount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	discarded := s.lots.Capacity(Car) + s.lots.Capacity(Motorcycle)
	displaced := s.lots.CreateLots(carCount, motorcycleCount)

	result := CreateLotsResult{CarLots: carCount, MotorcycleLots: motorcycleCount, DiscardedLots: discarded}
	for _, v := range displaced {
		result.Orphaned = append(result.Orphaned, *v)
	}
	if len(result.Orphaned) > 0 {
		logging.Warn(ctx, "lot reset orphaned parked vehicles", "count", len(result.Orphaned))
	}

	s.persistLocked(ctx)
	return result, nil
}

// Park places the vehicle in the lowest-id free lot of its category. A plate
// that still has an active session, parked or orphaned, is rejected.
func (s *Service) Park(ctx context.Context, category VehicleCategory, plate string, entry time.Time) (ParkResult, error) {
	if !category.Valid() {
		return ParkResult{}, fmt.Errorf("park %q: %w", category, ErrInvalidCategory)
	}
	plate = NormalizePlate(plate)
	if plate == "" {
		return ParkResult{}, ErrEmptyPlate
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if lot, ok := s.lots.FindOccupantLot(plate); ok {
		return ParkResult{}, fmt.Errorf("park %s: in %s lot %d: %w", plate, lot.Category, lot.ID, ErrAlreadyParked)
	}
	if active := s.ledger.ActiveFor(plate); len(active) > 0 {
		return ParkResult{}, fmt.Errorf("park %s: open session %s from discarded lot %d: %w",
			plate, active[0].ID, active[0].LotID, ErrAlreadyParked)
	}

	lot, ok := s.lots.FindFirstFree(category)
	if !ok {
		return ParkResult{}, fmt.Errorf("park %s: %d %s lots, none free: %w", plate, s.lots.Capacity(category), category, ErrLotUnavailable)
	}

	lot.Park(NewVehicle(category, plate, entry))
	record := s.ledger.Append(category, plate, entry, lot.ID)

	s.persistLocked(ctx)
	return ParkResult{LotID: lot.ID, Category: category, HistoryID: record.ID}, nil
}

// Remove vacates the plate's lot, bills the session at the current rates
// and adds the fee to revenue.
func (s *Service) Remove(ctx context.Context, plate string, exit time.Time) (RemoveResult, error) {
	plate = NormalizePlate(plate)
	if plate == "" {
		return RemoveResult{}, ErrEmptyPlate
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lot, ok := s.lots.FindOccupantLot(plate)
	if !ok {
		return RemoveResult{}, fmt.Errorf("remove %s: %w", plate, ErrNotFound)
	}
	vehicle := lot.Vehicle
	if exit.Before(vehicle.EntryTime) {
		return RemoveResult{}, fmt.Errorf("remove %s: exit %s, entry %s: %w",
			plate, exit.Format(time.RFC3339), vehicle.EntryTime.Format(time.RFC3339), ErrExitBeforeEntry)
	}

	fee := ComputeFee(lot.Category, vehicle.EntryTime, exit, s.rates)
	result := RemoveResult{
		LotID:    lot.ID,
		Category: lot.Category,
		Fee:      fee,
		Duration: FormatDuration(vehicle.EntryTime, exit),
	}

	lot.Leave()
	s.revenue = s.revenue.Add(fee)

	record, err := s.ledger.AttachExit(plate, result.LotID, exit, fee)
	switch {
	case err == nil:
		result.HistoryID = record.ID
	case errors.Is(err, ErrNotFound):
		// the record was deleted by an administrator while the vehicle was parked
		logging.Warn(ctx, "no active history record for removed vehicle", "license_plate", plate, "lot_id", result.LotID)
	default:
		logging.Error(ctx, "history not updated for removed vehicle", "license_plate", plate, "error", err)
	}

	s.persistLocked(ctx)
	return result, nil
}

func (s *Service) MarkPaid(ctx context.Context, historyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ledger.MarkPaid(historyID); err != nil {
		return err
	}

	s.persistLocked(ctx)
	return nil
}

// UpdateRates replaces the rate table. Fees already recorded are kept.
func (s *Service) UpdateRates(ctx context.Context, rates RateTable) error {
	if err := rates.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rates = rates

	s.persistLocked(ctx)
	return nil
}

// PatchRates replaces only the rates that are given, merging under the
// service lock, and returns the resulting table.
func (s *Service) PatchRates(ctx context.Context, carHourlyRate, motorcycleHourlyRate *decimal.Decimal) (RateTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rates := s.rates
	if carHourlyRate != nil {
		rates.CarHourlyRate = *carHourlyRate
	}
	if motorcycleHourlyRate != nil {
		rates.MotorcycleHourlyRate = *motorcycleHourlyRate
	}
	if err := rates.Validate(); err != nil {
		return s.rates, err
	}
	s.rates = rates

	s.persistLocked(ctx)
	return rates, nil
}

// DeleteHistoryEntry removes one record. Revenue and lots are untouched.
func (s *Service) DeleteHistoryEntry(ctx context.Context, historyID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := s.ledger.Delete(historyID)
	if deleted {
		s.persistLocked(ctx)
	}
	return deleted
}

// ClearAllHistory empties the ledger. Revenue and lots are untouched.
func (s *Service) ClearAllHistory(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.ledger.ClearAll()

	s.persistLocked(ctx)
	return n
}

// GetState returns a deep copy of the whole aggregate.
func (s *Service) GetState() SystemState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stateLocked()
}

func (s *Service) stateLocked() SystemState {
	return SystemState{
		CarLots:        s.lots.snapshot(Car),
		MotorcycleLots: s.lots.snapshot(Motorcycle),
		History:        s.ledger.Records(),
		Revenue:        s.revenue,
		Rates:          s.rates,
	}
}

func (s *Service) Rates() RateTable {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rates
}

// FindVehicle returns a copy of the lot currently holding the plate.
func (s *Service) FindVehicle(plate string) (Lot, error) {
	plate = NormalizePlate(plate)

	s.mu.Lock()
	defer s.mu.Unlock()

	lot, ok := s.lots.FindOccupantLot(plate)
	if !ok {
		return Lot{}, fmt.Errorf("vehicle %s: %w", plate, ErrNotFound)
	}
	return lot.clone(), nil
}

func (s *Service) persistLocked(ctx context.Context) {
	if s.store == nil {
		return
	}
	state := s.stateLocked()
	if err := s.store.Save(ctx, &state); err != nil {
		logging.Error(ctx, "failed to persist parking state", "error", err)
	}
}
