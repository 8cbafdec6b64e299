package dto

import "github.com/trustdrive/stagelink/internal/entity"

// StageResponse is a stage with its manager resolved, for admin listings.
type StageResponse struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Location string    `json:"location"`
	Manager  *SafeUser `json:"manager,omitempty"`
}

// StageResourcesResponse bundles the vehicles and drivers attached to a stage.
type StageResourcesResponse struct {
	Vehicles []VehicleResponse `json:"vehicles"`
	Drivers  []SafeUser        `json:"drivers"`
}

// VehicleResponse is a vehicle with its driver resolved.
type VehicleResponse struct {
	ID          int64      `json:"id"`
	PlateNumber string     `json:"plateNumber"`
	Category    string     `json:"category"`
	Capacity    int        `json:"capacity"`
	StageID     *int64     `json:"stageId,omitempty"`
	Driver      *DriverRef `json:"driver,omitempty"`
}

// NewStageResponse maps a stage with its manager.
func NewStageResponse(stage *entity.Stage) StageResponse {
	resp := StageResponse{
		ID:       stage.ID,
		Name:     stage.Name,
		Location: stage.Location,
	}
	if stage.Manager != nil {
		manager := NewSafeUser(stage.Manager)
		resp.Manager = &manager
	}
	return resp
}

// NewStageResponses maps a list of stages.
func NewStageResponses(stages []entity.Stage) []StageResponse {
	out := make([]StageResponse, 0, len(stages))
	for i := range stages {
		out = append(out, NewStageResponse(&stages[i]))
	}
	return out
}

// NewVehicleResponse maps a vehicle with its driver.
func NewVehicleResponse(v *entity.Vehicle) VehicleResponse {
	resp := VehicleResponse{
		ID:          v.ID,
		PlateNumber: v.PlateNumber,
		Category:    v.Category,
		Capacity:    v.Capacity,
		StageID:     v.StageID,
	}
	if v.Driver != nil {
		resp.Driver = &DriverRef{ID: v.Driver.ID, FullName: v.Driver.FullName, Phone: v.Driver.Phone}
	}
	return resp
}

// NewVehicleResponses maps a list of vehicles.
func NewVehicleResponses(vehicles []entity.Vehicle) []VehicleResponse {
	out := make([]VehicleResponse, 0, len(vehicles))
	for i := range vehicles {
		out = append(out, NewVehicleResponse(&vehicles[i]))
	}
	return out
}
