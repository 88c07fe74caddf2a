package parking

// Lot is a single numbered space. Occupied is true exactly when Vehicle is set.
type Lot struct {
	ID       int             `json:"id"`
	Category VehicleCategory `json:"category"`
	Occupied bool            `json:"occupied"`
	Vehicle  *Vehicle        `json:"vehicle"`
}

func NewLot(id int, category VehicleCategory) *Lot {
	return &Lot{
		ID:       id,
		Category: category,
		Occupied: false,
		Vehicle:  nil,
	}
}

func (l *Lot) Park(vehicle *Vehicle) {
	l.Vehicle = vehicle
	l.Occupied = true
}

func (l *Lot) Leave() *Vehicle {
	vehicle := l.Vehicle
	l.Vehicle = nil
	l.Occupied = false
	return vehicle
}

func (l *Lot) holds(plate string) bool {
	return l.Occupied && l.Vehicle != nil && l.Vehicle.LicensePlate == plate
}

func (l *Lot) clone() Lot {
	c := *l
	if l.Vehicle != nil {
		v := *l.Vehicle
		c.Vehicle = &v
	}
	return c
}
