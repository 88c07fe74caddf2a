package parking

import (
	"testing"
	"time"
)

func TestNewLot(t *testing.T) {
	lot := NewLot(1, Car)

	if lot.ID != 1 {
		t.Errorf("Expected lot id 1, got %d", lot.ID)
	}

	if lot.Occupied {
		t.Error("Expected new lot to be unoccupied")
	}

	if lot.Vehicle != nil {
		t.Error("Expected new lot to have no vehicle")
	}
}

func TestLotPark(t *testing.T) {
	lot := NewLot(1, Car)
	vehicle := NewVehicle(Car, "KA01HH1234", time.Now())

	lot.Park(vehicle)

	if !lot.Occupied {
		t.Error("Expected lot to be occupied after parking")
	}

	if lot.Vehicle != vehicle {
		t.Error("Expected lot to contain the parked vehicle")
	}
}

func TestLotLeave(t *testing.T) {
	lot := NewLot(1, Motorcycle)
	vehicle := NewVehicle(Motorcycle, "KA01HH1234", time.Now())

	lot.Park(vehicle)
	leavingVehicle := lot.Leave()

	if lot.Occupied {
		t.Error("Expected lot to be unoccupied after leaving")
	}

	if lot.Vehicle != nil {
		t.Error("Expected lot to have no vehicle after leaving")
	}

	if leavingVehicle != vehicle {
		t.Error("Expected leaving vehicle to be the same as parked vehicle")
	}
}

func TestLotCloneIsIndependent(t *testing.T) {
	lot := NewLot(2, Car)
	lot.Park(NewVehicle(Car, "ABC123", time.Now()))

	c := lot.clone()
	c.Vehicle.LicensePlate = "CHANGED"

	if lot.Vehicle.LicensePlate != "ABC123" {
		t.Errorf("Expected original plate to be untouched, got %s", lot.Vehicle.LicensePlate)
	}
}
