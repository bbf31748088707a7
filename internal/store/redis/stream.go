package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

var _ streamClient = (*redis.Client)(nil)

// Stream appends JSON payloads to a capped Redis stream.
type Stream struct {
	client streamClient
	name   string
	maxLen int64
}

func NewStream(client streamClient, name string, maxLen int64) *Stream {
	return &Stream{client: client, name: name, maxLen: maxLen}
}

func (s *Stream) Name() string {
	return s.name
}

// Publish appends one entry and returns its stream id.
func (s *Stream) Publish(ctx context.Context, kind string, payload []byte) (string, error) {
	args := &redis.XAddArgs{
		Stream: s.name,
		Values: map[string]interface{}{"type": kind, "payload": payload},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	id, err := s.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", s.name, err)
	}
	return id, nil
}
