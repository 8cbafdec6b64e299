package dto

import "github.com/trustdrive/stagelink/internal/entity"

// PassengerLogResponse is a driver's tally for one day.
type PassengerLogResponse struct {
	DriverID   int64  `json:"driverId"`
	Day        string `json:"day"`
	Passengers int    `json:"passengers"`
	Trips      int    `json:"trips"`
}

// DriverSummaryResponse is the driver dashboard: today's tally, assigned
// parcels still in flight, and a motivational quote when one is available.
type DriverSummaryResponse struct {
	Log           PassengerLogResponse  `json:"log"`
	ActiveParcels []ParcelOrderResponse `json:"activeParcels"`
	Quote         *QuoteResponse        `json:"quote,omitempty"`
}

// QuoteResponse is a dashboard quote.
type QuoteResponse struct {
	Text   string `json:"text"`
	Author string `json:"author,omitempty"`
}

// NewPassengerLogResponse maps a tally row.
func NewPassengerLogResponse(log *entity.PassengerLog) PassengerLogResponse {
	return PassengerLogResponse{
		DriverID:   log.DriverID,
		Day:        log.Day,
		Passengers: log.Passengers,
		Trips:      log.Trips,
	}
}
