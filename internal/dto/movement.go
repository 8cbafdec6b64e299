package dto

import (
	"time"

	"github.com/trustdrive/stagelink/internal/entity"
)

// MovementResponse is one row of the vehicle movement ledger.
type MovementResponse struct {
	ID            int64                 `json:"id"`
	StageID       int64                 `json:"stageId"`
	Route         string                `json:"route"`
	DepartureTime time.Time             `json:"departureTime"`
	ArrivalTime   *time.Time            `json:"arrivalTime,omitempty"`
	Status        entity.MovementStatus `json:"status"`
	Day           string                `json:"day"`
	Vehicle       *VehicleRef           `json:"vehicle,omitempty"`
	Driver        *DriverRef            `json:"driver,omitempty"`
}

// DailyStatsResponse summarises one ledger day for a stage.
type DailyStatsResponse struct {
	Day           string             `json:"day"`
	DepartedCount int                `json:"departedCount"`
	ArrivedCount  int                `json:"arrivedCount"`
	Active        []MovementResponse `json:"active"`
}

// NewMovementResponse maps a ledger row for transport.
func NewMovementResponse(m *entity.VehicleMovement) MovementResponse {
	resp := MovementResponse{
		ID:            m.ID,
		StageID:       m.StageID,
		Route:         m.Route,
		DepartureTime: m.DepartureTime,
		ArrivalTime:   m.ArrivalTime,
		Status:        m.Status,
		Day:           m.Day,
	}
	if m.Vehicle != nil {
		resp.Vehicle = &VehicleRef{ID: m.Vehicle.ID, PlateNumber: m.Vehicle.PlateNumber}
	}
	if m.Driver != nil {
		resp.Driver = &DriverRef{ID: m.Driver.ID, FullName: m.Driver.FullName, Phone: m.Driver.Phone}
	}
	return resp
}

// NewMovementResponses maps a list of ledger rows.
func NewMovementResponses(movements []entity.VehicleMovement) []MovementResponse {
	out := make([]MovementResponse, 0, len(movements))
	for i := range movements {
		out = append(out, NewMovementResponse(&movements[i]))
	}
	return out
}
