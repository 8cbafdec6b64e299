package parcel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/trustdrive/stagelink/internal/entity"
)

// Lifecycle event names carried in the payload.
const (
	eventParcelCreated  = "parcel.created"
	eventParcelArrived  = "parcel.arrived"
	eventParcelPickedUp = "parcel.picked_up"
)

// LifecycleEvent is emitted on every parcel state change. The pickup event
// doubles as the audit record, carrying the final snapshot before the row is
// deleted.
type LifecycleEvent struct {
	Event         string              `json:"event"`
	OrderID       int64               `json:"order_id"`
	OrderCode     string              `json:"order_code"`
	Status        entity.ParcelStatus `json:"status"`
	SenderStage   int64               `json:"sender_stage_id"`
	ReceiverStage int64               `json:"receiver_stage_id"`
	DriverID      int64               `json:"driver_id"`
	CustomerName  string              `json:"customer_name"`
	Amount        float64             `json:"amount"`
	ParcelCount   int                 `json:"parcel_count"`
	OccurredAt    time.Time           `json:"occurred_at"`
}

func (s *Service) publishEvent(ctx context.Context, name string, order *entity.ParcelOrder) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	event := LifecycleEvent{
		Event:         name,
		OrderID:       order.ID,
		OrderCode:     order.OrderCode,
		Status:        order.Status,
		SenderStage:   order.SenderStageID,
		ReceiverStage: order.ReceiverStageID,
		DriverID:      order.DriverID,
		CustomerName:  order.CustomerName,
		Amount:        order.Amount,
		ParcelCount:   order.ParcelCount,
		OccurredAt:    time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("marshal parcel event", zap.String("event", name), zap.Error(err))
		}
		return
	}
	if err := s.publisher.Publish(ctx, []byte(fmt.Sprintf("parcel-%d", order.ID)), payload); err != nil {
		if s.logger != nil {
			s.logger.Error("publish parcel event", zap.String("event", name), zap.Error(err))
		}
	}
}
