package parking

import "github.com/shopspring/decimal"

type CategoryStatus struct {
	Category VehicleCategory `json:"category"`
	Total    int             `json:"total"`
	Occupied int             `json:"occupied"`
	Free     int             `json:"free"`
	Lots     []Lot           `json:"lots"`
}

type OccupancyStatus struct {
	Car        CategoryStatus `json:"car"`
	Motorcycle CategoryStatus `json:"motorcycle"`
}

type RevenueSummary struct {
	Billed      decimal.Decimal `json:"billed"`
	Collected   decimal.Decimal `json:"collected"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Sessions    int             `json:"sessions"`
	Active      int             `json:"active"`
}

// HistoryEntry is a ledger record prepared for display.
type HistoryEntry struct {
	HistoryRecord
	Duration string `json:"duration,omitempty"`
}

func (s *Service) Status() OccupancyStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return OccupancyStatus{
		Car:        s.categoryStatusLocked(Car),
		Motorcycle: s.categoryStatusLocked(Motorcycle),
	}
}

func (s *Service) categoryStatusLocked(category VehicleCategory) CategoryStatus {
	total := s.lots.Capacity(category)
	occupied := len(s.lots.Occupied(category))
	return CategoryStatus{
		Category: category,
		Total:    total,
		Occupied: occupied,
		Free:     total - occupied,
		Lots:     s.lots.snapshot(category),
	}
}

// Revenue reports the billed accumulator next to what the current ledger
// says was collected and is still owed. Deleted records drop out of the
// last two figures but never out of Billed.
func (s *Service) Revenue() RevenueSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := RevenueSummary{
		Billed:      s.revenue,
		Collected:   decimal.Zero,
		Outstanding: decimal.Zero,
	}
	for _, r := range s.ledger.Records() {
		summary.Sessions++
		if r.Active() {
			summary.Active++
			continue
		}
		if r.Fee == nil {
			continue
		}
		if r.IsPaid {
			summary.Collected = summary.Collected.Add(*r.Fee)
		} else {
			summary.Outstanding = summary.Outstanding.Add(*r.Fee)
		}
	}
	return summary
}

// History returns the ledger in display order.
func (s *Service) History() []HistoryEntry {
	s.mu.Lock()
	records := s.ledger.Records()
	s.mu.Unlock()

	SortForDisplay(records)

	entries := make([]HistoryEntry, len(records))
	for i, r := range records {
		entries[i] = HistoryEntry{HistoryRecord: r}
		if r.ExitTime != nil {
			entries[i].Duration = FormatDuration(r.EntryTime, *r.ExitTime)
		}
	}
	return entries
}
