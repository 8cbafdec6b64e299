package dto

import (
	"time"

	"github.com/trustdrive/stagelink/internal/entity"
)

// StageRef is a stage resolved to display attributes.
type StageRef struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

// VehicleRef is a vehicle resolved to display attributes.
type VehicleRef struct {
	ID          int64  `json:"id"`
	PlateNumber string `json:"plateNumber"`
}

// DriverRef is a driver resolved to display attributes.
type DriverRef struct {
	ID       int64  `json:"id"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone,omitempty"`
}

// Confirmations carries the two optional confirmation stamps.
type Confirmations struct {
	StageManager *time.Time `json:"stageManager,omitempty"`
	Customer     *time.Time `json:"customer,omitempty"`
}

// ParcelOrderResponse is the redacted order view exposed to staff and
// customers; raw row metadata stays internal.
type ParcelOrderResponse struct {
	ID            int64               `json:"id"`
	OrderCode     string              `json:"orderCode"`
	CustomerName  string              `json:"customerName"`
	CustomerPhone string              `json:"customerPhone"`
	Destination   string              `json:"destination"`
	Amount        float64             `json:"amount"`
	ParcelCount   int                 `json:"parcelCount"`
	Description   string              `json:"description,omitempty"`
	DepartureTime time.Time           `json:"departureTime"`
	ETA           time.Time           `json:"eta"`
	Status        entity.ParcelStatus `json:"status"`
	Confirmations Confirmations       `json:"confirmations"`
	SenderStage   *StageRef           `json:"senderStage,omitempty"`
	ReceiverStage *StageRef           `json:"receiverStage,omitempty"`
	Vehicle       *VehicleRef         `json:"vehicle,omitempty"`
	Driver        *DriverRef          `json:"driver,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
}

// ParcelLookupResponse is returned by the customer lookup: a fresh parcel
// credential plus the redacted order.
type ParcelLookupResponse struct {
	ParcelToken string              `json:"parcelToken"`
	Order       ParcelOrderResponse `json:"order"`
}

// PickupResponse is the terminal confirmation message; the record is gone.
type PickupResponse struct {
	Message string `json:"message"`
}

// NewParcelOrderResponse redacts an order for transport.
func NewParcelOrderResponse(order *entity.ParcelOrder) ParcelOrderResponse {
	resp := ParcelOrderResponse{
		ID:            order.ID,
		OrderCode:     order.OrderCode,
		CustomerName:  order.CustomerName,
		CustomerPhone: order.CustomerPhone,
		Destination:   order.Destination,
		Amount:        order.Amount,
		ParcelCount:   order.ParcelCount,
		Description:   order.Description,
		DepartureTime: order.DepartureTime,
		ETA:           order.ETA,
		Status:        order.Status,
		Confirmations: Confirmations{
			StageManager: order.ManagerConfirmedAt,
			Customer:     order.CustomerConfirmedAt,
		},
		CreatedAt: order.CreatedAt,
	}
	if order.SenderStage != nil {
		resp.SenderStage = NewStageRef(order.SenderStage)
	}
	if order.ReceiverStage != nil {
		resp.ReceiverStage = NewStageRef(order.ReceiverStage)
	}
	if order.Vehicle != nil {
		resp.Vehicle = &VehicleRef{ID: order.Vehicle.ID, PlateNumber: order.Vehicle.PlateNumber}
	}
	if order.Driver != nil {
		resp.Driver = &DriverRef{ID: order.Driver.ID, FullName: order.Driver.FullName, Phone: order.Driver.Phone}
	}
	return resp
}

// NewParcelOrderResponses redacts a list of orders.
func NewParcelOrderResponses(orders []entity.ParcelOrder) []ParcelOrderResponse {
	out := make([]ParcelOrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, NewParcelOrderResponse(&orders[i]))
	}
	return out
}

// NewStageRef resolves a stage to display attributes.
func NewStageRef(stage *entity.Stage) *StageRef {
	return &StageRef{ID: stage.ID, Name: stage.Name, Location: stage.Location}
}
