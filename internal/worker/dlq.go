package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Dead letter queue. A job that still fails after MaxJobAttempts is parked
// in a per-queue Redis list (dlq:{queue}) so an operator can inspect or
// replay it. Nothing here is read on the hot path.

const DLQPrefix = "dlq:"

// DeadJob is a failed job plus enough context to diagnose it.
type DeadJob struct {
	Queue    string          `json:"queue"`
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Error    string          `json:"error"`
	Attempts int             `json:"attempts"`
	DeadAt   time.Time       `json:"dead_at"`
}

// SendToDLQ parks a job that exhausted its retries.
func SendToDLQ(ctx context.Context, rdb *redis.Client, queue, jobType string, payload json.RawMessage, errMsg string, attempts int) {
	dead := DeadJob{
		Queue:    queue,
		Type:     jobType,
		Payload:  payload,
		Error:    errMsg,
		Attempts: attempts,
		DeadAt:   time.Now().UTC(),
	}
	data, err := json.Marshal(dead)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: marshal failed")
		return
	}
	if err := rdb.LPush(ctx, DLQPrefix+queue, data).Err(); err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: push failed")
		return
	}
	log.Warn().
		Str("queue", queue).
		Str("type", jobType).
		Str("error", errMsg).
		Int("attempts", attempts).
		Msg("dlq: job dead-lettered")
}

// DLQLength reports the backlog of one dead letter queue. Surfaced by the
// health endpoint so a growing backlog is visible without grepping Redis.
func DLQLength(ctx context.Context, rdb *redis.Client, queue string) int64 {
	n, err := rdb.LLen(ctx, DLQPrefix+queue).Result()
	if err != nil {
		return -1
	}
	return n
}
