package audit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"tg-sanctions/internal/sanction"
)

// RedisJournal stores the latest entry per (target, kind) as a hash that
// expires after window.
type RedisJournal struct {
	client *goredis.Client
	prefix string
	window time.Duration
}

func NewRedisJournal(client *goredis.Client, prefix string, window time.Duration) *RedisJournal {
	return &RedisJournal{client: client, prefix: prefix, window: window}
}

func (j *RedisJournal) key(k entryKey) string {
	return j.prefix + "audit:" + k.String()
}

func (j *RedisJournal) Append(ctx context.Context, e Entry) error {
	if j.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	key := j.key(entryKey{e.TargetID, e.Kind})
	pipe := j.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"actor_id":       e.Actor.ID,
		"actor_name":     e.Actor.Name,
		"actor_username": e.Actor.Username,
		"reason":         e.Reason,
		"created_at":     e.CreatedAt.UnixMilli(),
	})
	pipe.Expire(ctx, key, j.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append audit entry %s: %w", key, err)
	}
	return nil
}

func (j *RedisJournal) Latest(ctx context.Context, targetID int64, kind sanction.Kind, since time.Time) (*Entry, error) {
	if j.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	key := j.key(entryKey{targetID, kind})
	values, err := j.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("read audit entry %s: %w", key, err)
	}
	if len(values) == 0 {
		return nil, nil
	}

	e, err := parseEntry(values)
	if err != nil {
		return nil, fmt.Errorf("parse audit entry %s: %w", key, err)
	}
	if e.CreatedAt.Before(since) {
		return nil, nil
	}
	e.TargetID = targetID
	e.Kind = kind
	return e, nil
}

func parseEntry(values map[string]string) (*Entry, error) {
	actorID, err := strconv.ParseInt(values["actor_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("actor_id: %w", err)
	}
	createdMs, err := strconv.ParseInt(values["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	return &Entry{
		Actor: sanction.Identity{
			ID:       actorID,
			Name:     values["actor_name"],
			Username: values["actor_username"],
		},
		Reason:    values["reason"],
		CreatedAt: time.UnixMilli(createdMs).UTC(),
	}, nil
}
