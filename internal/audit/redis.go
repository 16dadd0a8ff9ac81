package audit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSink appends records to a Redis stream.
type RedisSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisSink writes to stream, trimming it to roughly maxLen entries when
// maxLen > 0.
func NewRedisSink(client *redis.Client, stream string, maxLen int64) *RedisSink {
	return &RedisSink{client: client, stream: stream, maxLen: maxLen}
}

func (s *RedisSink) Emit(ctx context.Context, r Record) {
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: []interface{}{
			"timestamp", r.Timestamp.Format(time.RFC3339Nano),
			"actor", r.Actor,
			"operation", r.Operation,
			"outcome", r.Outcome,
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		reportFailure("redis", r, err)
	}
}
