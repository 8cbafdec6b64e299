package parcel

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/trustdrive/stagelink/internal/config"
	"github.com/trustdrive/stagelink/internal/messaging"
	parcelsvc "github.com/trustdrive/stagelink/internal/service/parcel"
	"github.com/trustdrive/stagelink/internal/worker"
)

var workerTracer = otel.Tracer("github.com/trustdrive/stagelink/worker/parcel")

// Module registers parcel lifecycle worker handlers.
var Module = fx.Module("worker_parcel",
	fx.Provide(
		fx.Annotate(
			NewLifecycleHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewLifecycleHandler consumes parcel lifecycle events. Pickup events are
// the audit trail of record, since the order row is deleted after handoff,
// so they are logged at a higher level with the full snapshot.
func NewLifecycleHandler(logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.parcels.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event parcelsvc.LifecycleEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode parcel event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}
		span.SetAttributes(attribute.String("parcel.event", event.Event))

		fields := []zap.Field{
			zap.String("event", event.Event),
			zap.Int64("order_id", event.OrderID),
			zap.String("order_code", event.OrderCode),
			zap.String("status", string(event.Status)),
			zap.Int64("sender_stage_id", event.SenderStage),
			zap.Int64("receiver_stage_id", event.ReceiverStage),
		}
		if event.Event == "parcel.picked_up" {
			fields = append(fields,
				zap.String("customer_name", event.CustomerName),
				zap.Float64("amount", event.Amount),
				zap.Int("parcel_count", event.ParcelCount),
				zap.Time("occurred_at", event.OccurredAt),
			)
			logger.Info("parcel handoff audit record", fields...)
			return nil
		}
		logger.Info("parcel lifecycle event processed", fields...)

		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
