package parking

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// SystemState is the full aggregate: both lot pools, the ledger, the
// revenue accumulator and the rate table. Values handed out are deep copies.
type SystemState struct {
	CarLots        []Lot           `json:"car_lots"`
	MotorcycleLots []Lot           `json:"motorcycle_lots"`
	History        []HistoryRecord `json:"history"`
	Revenue        decimal.Decimal `json:"revenue"`
	Rates          RateTable       `json:"rates"`
}

// Store is the persistence bridge. Load returns nil and no error when
// nothing has been saved yet.
type Store interface {
	Load(ctx context.Context) (*SystemState, error)
	Save(ctx context.Context, state *SystemState) error
}

// EncodeState serializes a state; timestamps use RFC 3339 with nanoseconds.
func EncodeState(state *SystemState) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode parking state: %w", err)
	}
	return data, nil
}

// DecodeState parses a saved state. Fields missing from the payload keep
// their startup defaults.
func DecodeState(data []byte) (*SystemState, error) {
	state := &SystemState{Rates: DefaultRates()}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("decode parking state: %w", err)
	}
	return state, nil
}
