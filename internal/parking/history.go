package parking

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HistoryRecord is one park-to-removal session. ExitTime and Fee are both
// nil while the session is active and both set once it has exited.
type HistoryRecord struct {
	ID              string           `json:"id"`
	VehicleCategory VehicleCategory  `json:"vehicle_category"`
	LicensePlate    string           `json:"license_plate"`
	EntryTime       time.Time        `json:"entry_time"`
	ExitTime        *time.Time       `json:"exit_time"`
	LotID           int              `json:"lot_id"`
	Fee             *decimal.Decimal `json:"fee"`
	IsPaid          bool             `json:"is_paid"`
}

func (h *HistoryRecord) Active() bool {
	return h.ExitTime == nil
}

func (h *HistoryRecord) clone() HistoryRecord {
	c := *h
	if h.ExitTime != nil {
		exit := *h.ExitTime
		c.ExitTime = &exit
	}
	if h.Fee != nil {
		fee := *h.Fee
		c.Fee = &fee
	}
	return c
}

// HistoryLedger keeps every session record in insertion order.
type HistoryLedger struct {
	records []*HistoryRecord
	newID   func() string
}

func NewHistoryLedger() *HistoryLedger {
	return &HistoryLedger{newID: uuid.NewString}
}

// Append records a new active session under a freshly generated id.
func (l *HistoryLedger) Append(category VehicleCategory, licensePlate string, entry time.Time, lotID int) *HistoryRecord {
	record := &HistoryRecord{
		ID:              l.newID(),
		VehicleCategory: category,
		LicensePlate:    licensePlate,
		EntryTime:       entry,
		LotID:           lotID,
	}
	l.records = append(l.records, record)
	return record
}

// AttachExit closes the single active record for plate and lot. Nothing is
// mutated unless exactly one record matches.
func (l *HistoryLedger) AttachExit(licensePlate string, lotID int, exit time.Time, fee decimal.Decimal) (*HistoryRecord, error) {
	var match *HistoryRecord
	for _, record := range l.records {
		if record.LicensePlate != licensePlate || record.LotID != lotID || !record.Active() {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("attach exit for %s in lot %d: %w", licensePlate, lotID, ErrAmbiguousSession)
		}
		match = record
	}
	if match == nil {
		return nil, fmt.Errorf("active session for %s in lot %d: %w", licensePlate, lotID, ErrNotFound)
	}

	match.ExitTime = &exit
	match.Fee = &fee
	return match, nil
}

func (l *HistoryLedger) MarkPaid(id string) (*HistoryRecord, error) {
	record, ok := l.Get(id)
	if !ok {
		return nil, fmt.Errorf("history entry %s: %w", id, ErrNotFound)
	}
	record.IsPaid = true
	return record, nil
}

func (l *HistoryLedger) Get(id string) (*HistoryRecord, bool) {
	for _, record := range l.records {
		if record.ID == id {
			return record, true
		}
	}
	return nil, false
}

// Delete reports whether a record was removed.
func (l *HistoryLedger) Delete(id string) bool {
	for i, record := range l.records {
		if record.ID == id {
			l.records = append(l.records[:i], l.records[i+1:]...)
			return true
		}
	}
	return false
}

// ClearAll drops every record and returns how many there were.
func (l *HistoryLedger) ClearAll() int {
	n := len(l.records)
	l.records = nil
	return n
}

func (l *HistoryLedger) Len() int {
	return len(l.records)
}

// ActiveFor returns the active sessions recorded for a plate.
func (l *HistoryLedger) ActiveFor(licensePlate string) []HistoryRecord {
	var out []HistoryRecord
	for _, record := range l.records {
		if record.LicensePlate == licensePlate && record.Active() {
			out = append(out, record.clone())
		}
	}
	return out
}

// Records returns copies in storage order.
func (l *HistoryLedger) Records() []HistoryRecord {
	out := make([]HistoryRecord, len(l.records))
	for i, record := range l.records {
		out[i] = record.clone()
	}
	return out
}

func (l *HistoryLedger) restore(records []HistoryRecord) {
	l.records = make([]*HistoryRecord, len(records))
	for i := range records {
		record := records[i].clone()
		l.records[i] = &record
	}
}

// DisplayBefore is the history display order. An exited record ranks ahead
// of an active one, exited records compare by exit time descending and
// active records by entry time descending.
func DisplayBefore(a, b *HistoryRecord) bool {
	switch {
	case a.ExitTime != nil && b.ExitTime != nil:
		return a.ExitTime.After(*b.ExitTime)
	case a.ExitTime != nil:
		return true
	case b.ExitTime != nil:
		return false
	default:
		return a.EntryTime.After(b.EntryTime)
	}
}

// SortForDisplay orders records in place with DisplayBefore.
func SortForDisplay(records []HistoryRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return DisplayBefore(&records[i], &records[j])
	})
}
