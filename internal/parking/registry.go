package parking

import "sort"

// LotRegistry owns the car and motorcycle lot pools and decides allocation.
type LotRegistry struct {
	carLots        []*Lot
	motorcycleLots []*Lot
}

func NewLotRegistry() *LotRegistry {
	return &LotRegistry{}
}

func newLots(count int, category VehicleCategory) []*Lot {
	lots := make([]*Lot, count)
	for i := 0; i < count; i++ {
		lots[i] = NewLot(i+1, category)
	}
	return lots
}

// CreateLots replaces both pools with fresh unoccupied lots numbered from 1.
// Vehicles parked in the discarded lots are returned to the caller.
func (r *LotRegistry) CreateLots(carCount, motorcycleCount int) []*Vehicle {
	var displaced []*Vehicle
	for _, lot := range r.all() {
		if lot.Occupied && lot.Vehicle != nil {
			displaced = append(displaced, lot.Vehicle)
		}
	}

	r.carLots = newLots(carCount, Car)
	r.motorcycleLots = newLots(motorcycleCount, Motorcycle)

	return displaced
}

func (r *LotRegistry) Lots(category VehicleCategory) []*Lot {
	if category == Motorcycle {
		return r.motorcycleLots
	}
	return r.carLots
}

// FindFirstFree returns the lowest-id unoccupied lot of the category.
func (r *LotRegistry) FindFirstFree(category VehicleCategory) (*Lot, bool) {
	for _, lot := range r.Lots(category) {
		if !lot.Occupied {
			return lot, true
		}
	}
	return nil, false
}

// FindOccupantLot searches car lots, then motorcycle lots.
func (r *LotRegistry) FindOccupantLot(licensePlate string) (*Lot, bool) {
	for _, lot := range r.all() {
		if lot.holds(licensePlate) {
			return lot, true
		}
	}
	return nil, false
}

func (r *LotRegistry) Capacity(category VehicleCategory) int {
	return len(r.Lots(category))
}

// Occupied returns the occupied lots of a category ordered by id.
func (r *LotRegistry) Occupied(category VehicleCategory) []*Lot {
	var occupiedLots []*Lot
	for _, lot := range r.Lots(category) {
		if lot.Occupied {
			occupiedLots = append(occupiedLots, lot)
		}
	}

	sort.Slice(occupiedLots, func(i, j int) bool {
		return occupiedLots[i].ID < occupiedLots[j].ID
	})

	return occupiedLots
}

func (r *LotRegistry) all() []*Lot {
	lots := make([]*Lot, 0, len(r.carLots)+len(r.motorcycleLots))
	lots = append(lots, r.carLots...)
	return append(lots, r.motorcycleLots...)
}

func (r *LotRegistry) snapshot(category VehicleCategory) []Lot {
	src := r.Lots(category)
	out := make([]Lot, len(src))
	for i, lot := range src {
		out[i] = lot.clone()
	}
	return out
}

// restore rebuilds a pool from persisted lots, forcing the category and
// the occupied flag to agree with the stored vehicle.
func (r *LotRegistry) restore(category VehicleCategory, lots []Lot) {
	pool := make([]*Lot, len(lots))
	for i := range lots {
		lot := lots[i].clone()
		lot.Category = category
		lot.Occupied = lot.Vehicle != nil
		pool[i] = &lot
	}
	if category == Motorcycle {
		r.motorcycleLots = pool
	} else {
		r.carLots = pool
	}
}
