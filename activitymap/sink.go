package activitymap

import (
	"context"
	"encoding/json"

	scribe "github.com/goliatone/go-scribe"
	"github.com/redis/go-redis/v9"
)

// DefaultStream is the redis stream written by StreamSink
const DefaultStream = "scribe:activity"

// LoggerSink writes every event to logger at info level.
func LoggerSink(logger scribe.Logger, opts ...Option) scribe.ActivitySink {
	if logger == nil {
		logger = scribe.NopLogger()
	}
	return scribe.ActivitySinkFunc(func(_ context.Context, event scribe.ActivityEvent) error {
		n := Normalize(event, opts...)
		logger.Info("Session activity",
			"verb", n.Verb,
			"actor_id", n.ActorID,
			"object_id", n.ObjectID,
			"from_state", n.Metadata[MetadataKeyFromState],
			"to_state", n.Metadata[MetadataKeyToState],
		)
		return nil
	})
}

// StreamSink appends normalized events to a redis stream, trimmed to
// roughly maxLen entries.
type StreamSink struct {
	rdb    *redis.Client
	stream string
	maxLen int64
	opts   []Option
}

var _ scribe.ActivitySink = (*StreamSink)(nil)

// NewStreamSink returns a sink writing to stream. An empty stream uses
// DefaultStream.
func NewStreamSink(rdb *redis.Client, stream string, maxLen int64, opts ...Option) *StreamSink {
	if stream == "" {
		stream = DefaultStream
	}
	return &StreamSink{rdb: rdb, stream: stream, maxLen: maxLen, opts: opts}
}

// Record implements scribe.ActivitySink.
func (s *StreamSink) Record(ctx context.Context, event scribe.ActivityEvent) error {
	n := Normalize(event, s.opts...)
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"verb":    n.Verb,
			"actor":   n.ActorID,
			"payload": string(payload),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	return s.rdb.XAdd(ctx, args).Err()
}
