package validator

import (
	"errors"
	"strings"
	"testing"

	"fleetlink/pkg/logger"
	"fleetlink/pkg/model"
)

func TestVehicleValidator_Validate(t *testing.T) {
	v := NewVehicleValidator(logger.Discard())

	tests := []struct {
		name      string
		vehicle   model.Vehicle
		wantField string
	}{
		{"valid", model.Vehicle{Name: "Tata Ace", CapacityKg: 750, Tyres: 4}, ""},
		{"missing name", model.Vehicle{CapacityKg: 750, Tyres: 4}, "name"},
		{"short name", model.Vehicle{Name: "A", CapacityKg: 750, Tyres: 4}, "name"},
		{"zero capacity", model.Vehicle{Name: "Truck", CapacityKg: 0, Tyres: 6}, "capacity_kg"},
		{"negative capacity", model.Vehicle{Name: "Truck", CapacityKg: -5, Tyres: 6}, "capacity_kg"},
		{"zero tyres", model.Vehicle{Name: "Truck", CapacityKg: 1000, Tyres: 0}, "tyres"},
		{"bad id", model.Vehicle{ID: "xyz", Name: "Truck", CapacityKg: 1000, Tyres: 6}, "id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.vehicle)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			found := false
			for _, e := range verrs {
				if e.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected failure on %s, got %v", tt.wantField, verrs)
			}
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{{Field: "name", Message: "name is required"}, {Field: "tyres", Message: "tyres is required"}}
	msg := errs.Error()
	if !strings.Contains(msg, "2 error(s)") || !strings.Contains(msg, "tyres") {
		t.Errorf("unexpected message: %s", msg)
	}
	if (ValidationErrors{}).Error() != "" {
		t.Error("empty errors should render empty")
	}
}
