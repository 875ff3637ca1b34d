package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/colisflow/colisflow/internal/shipments"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeRepriceTenant reprices every shipment of a tenant. Enqueued
	// after a pricing rule import rewrites the rule set.
	TaskTypeRepriceTenant = "pricing:reprice_tenant"
)

// RepriceTenantPayload identifies the tenant whose shipments need repricing.
type RepriceTenantPayload struct {
	TenantID uuid.UUID `json:"tenant_id"`
}

// NewRepriceTenantTask constructs an Asynq task.
func NewRepriceTenantTask(payload RepriceTenantPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeRepriceTenant, data, asynq.MaxRetry(3)), nil
}

// NewRepriceTenantHandler builds the handler for TaskTypeRepriceTenant tasks.
func NewRepriceTenantHandler(svc *shipments.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload RepriceTenantPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.TenantID == uuid.Nil {
			return asynq.SkipRetry
		}
		summary, err := svc.RepriceAll(ctx, payload.TenantID)
		if err != nil {
			logger.Error("reprice tenant",
				slog.String("tenant_id", payload.TenantID.String()),
				slog.Any("error", err),
			)
			return err
		}
		logger.Info("reprice tenant done",
			slog.String("tenant_id", payload.TenantID.String()),
			slog.Int("total", summary.Total),
			slog.Int("priced", summary.Priced),
			slog.Int("missing", summary.Missing),
		)
		return nil
	}
}
