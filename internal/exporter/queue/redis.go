package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/exporter3/internal/common"
	"github.com/redis/go-redis/v9"
)

const bodyField = "body"

// RedisSource reads a Redis stream through a consumer group. Entries that
// stay un-acknowledged for longer than redeliverAfter are claimed again,
// which is how failed exports get redelivered.
type RedisSource struct {
	client         *redis.Client
	stream         string
	group          string
	consumer       string
	redeliverAfter time.Duration
}

func NewRedisSource(client *redis.Client, stream, group, consumer string, redeliverAfter time.Duration) *RedisSource {
	return &RedisSource{
		client:         client,
		stream:         stream,
		group:          group,
		consumer:       consumer,
		redeliverAfter: redeliverAfter,
	}
}

// EnsureGroup creates the stream and consumer group if missing.
func (s *RedisSource) EnsureGroup(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

func (s *RedisSource) Receive(ctx context.Context, max int, block time.Duration) ([]Delivery, error) {
	if s.redeliverAfter > 0 {
		claimed, _, err := s.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   s.stream,
			Group:    s.group,
			Consumer: s.consumer,
			MinIdle:  s.redeliverAfter,
			Start:    "0-0",
			Count:    int64(max),
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: claim pending: %v", common.ErrTransientUpstream, err)
		}
		if len(claimed) > 0 {
			return toDeliveries(claimed), nil
		}
	}

	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, ">"},
		Count:    int64(max),
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read stream: %v", common.ErrTransientUpstream, err)
	}

	var out []Delivery
	for _, st := range streams {
		out = append(out, toDeliveries(st.Messages)...)
	}
	return out, nil
}

func (s *RedisSource) Ack(ctx context.Context, id string) error {
	if err := s.client.XAck(ctx, s.stream, s.group, id).Err(); err != nil {
		return fmt.Errorf("%w: ack %s: %v", common.ErrTransientUpstream, id, err)
	}
	return nil
}

func (s *RedisSource) Publish(ctx context.Context, msg Message) (string, error) {
	body, err := Encode(msg)
	if err != nil {
		return "", err
	}
	id, err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{bodyField: string(body)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("%w: publish: %v", common.ErrTransientUpstream, err)
	}
	return id, nil
}

// toDeliveries keeps entries without a body so that they get rejected and
// acknowledged instead of looping forever.
func toDeliveries(msgs []redis.XMessage) []Delivery {
	out := make([]Delivery, 0, len(msgs))
	for _, m := range msgs {
		var body []byte
		switch v := m.Values[bodyField].(type) {
		case string:
			body = []byte(v)
		case []byte:
			body = v
		}
		out = append(out, Delivery{ID: m.ID, Body: body})
	}
	return out
}
