package activitymap

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	auth "github.com/goliatone/go-wedding-auth"
)

// Sink adapts a function receiving normalized records into an auth.ActivitySink.
func Sink(fn func(context.Context, Normalized) error, opts ...Option) auth.ActivitySink {
	return auth.ActivitySinkFunc(func(ctx context.Context, event auth.ActivityEvent) error {
		if fn == nil {
			return nil
		}
		return fn(ctx, Normalize(event, opts...))
	})
}

// LogSink writes normalized records to logger at info level.
func LogSink(logger *slog.Logger, opts ...Option) auth.ActivitySink {
	if logger == nil {
		logger = slog.Default()
	}
	return Sink(func(ctx context.Context, n Normalized) error {
		logger.InfoContext(ctx, "auth activity",
			"actor_id", n.ActorID,
			"verb", n.Verb,
			"object_type", n.ObjectType,
			"object_id", n.ObjectID,
			"channel", n.Channel,
			"metadata", n.Metadata,
			"occurred_at", n.OccurredAt,
		)
		return nil
	}, opts...)
}

// DefaultStream is the redis stream StreamSink appends to.
const DefaultStream = "wedding-auth:activity"

// StreamSink appends normalized records to a redis stream. Each entry
// carries the verb, the actor and the JSON encoded record. maxLen > 0
// caps the stream approximately.
func StreamSink(client redis.UniversalClient, stream string, maxLen int64, opts ...Option) auth.ActivitySink {
	if stream == "" {
		stream = DefaultStream
	}
	return Sink(func(ctx context.Context, n Normalized) error {
		payload, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("encode activity: %w", err)
		}

		args := &redis.XAddArgs{
			Stream: stream,
			Values: map[string]any{
				"verb":    n.Verb,
				"actor":   n.ActorID,
				"payload": string(payload),
			},
		}
		if maxLen > 0 {
			args.MaxLen = maxLen
			args.Approx = true
		}

		if err := client.XAdd(ctx, args).Err(); err != nil {
			return fmt.Errorf("append activity to %s: %w", stream, err)
		}
		return nil
	}, opts...)
}
