package worker

import (
	"context"
	"encoding/json"

	"github.com/funkypatns/Progym-sub001/internal/model"
	"github.com/funkypatns/Progym-sub001/internal/repository"

	"github.com/rs/zerolog/log"
)

// AuditWorker persists audit events dequeued from Redis. Audit writes are
// off the request path so a slow insert never delays a force-close.
type AuditWorker struct {
	repo repository.AuditRepository
}

func NewAuditWorker(repo repository.AuditRepository) *AuditWorker {
	return &AuditWorker{repo: repo}
}

// Process persists one audit event. A returned error means the job is
// retryable; malformed payloads are dropped, not retried.
func (w *AuditWorker) Process(ctx context.Context, payload json.RawMessage) error {
	var event AuditEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Error().Err(err).Msg("failed to unmarshal audit event")
		return nil
	}

	details, err := json.Marshal(event.Details)
	if err != nil {
		details = []byte("{}")
	}

	entry := &model.AuditLog{
		Action:     event.Action,
		ActorID:    event.ActorID,
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		Details:    string(details),
	}
	if err := w.repo.Create(ctx, entry); err != nil {
		log.Error().Err(err).Str("action", event.Action).Msg("failed to persist audit entry")
		return err
	}
	log.Debug().Str("action", event.Action).Str("entity_id", event.EntityID.String()).Msg("audit entry persisted")
	return nil
}
