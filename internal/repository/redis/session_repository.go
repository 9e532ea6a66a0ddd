package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nau-assistant/internal/repository/contract"
	"nau-assistant/pkg/store"
	"nau-assistant/pkg/utils"

	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "nau"
	fieldCreated  = "created"
	fieldFirst    = "first_user"
	fieldLast     = "last_ts"
)

// SessionRepository keeps session logs in redis so several instances can
// share them. Each session is a JSON list, a sequence counter and a meta hash;
// a sorted set indexes sessions by last activity.
type SessionRepository struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ contract.SessionRepository = (*SessionRepository)(nil)

func NewSessionRepository(rdb redis.UniversalClient, prefix string, ttl time.Duration) *SessionRepository {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &SessionRepository{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *SessionRepository) indexKey() string {
	return r.prefix + ":sessions"
}

func (r *SessionRepository) messagesKey(id string) string {
	return fmt.Sprintf("%s:session:%s:messages", r.prefix, id)
}

func (r *SessionRepository) seqKey(id string) string {
	return fmt.Sprintf("%s:session:%s:seq", r.prefix, id)
}

func (r *SessionRepository) metaKey(id string) string {
	return fmt.Sprintf("%s:session:%s:meta", r.prefix, id)
}

func (r *SessionRepository) Create(ctx context.Context, sessionID string) error {
	now := time.Now()
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, r.metaKey(sessionID), fieldCreated, now.Format(time.RFC3339Nano))
		pipe.ZAddNX(ctx, r.indexKey(), redis.Z{Score: float64(now.UnixMilli()), Member: sessionID})
		r.expire(ctx, pipe, sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create session %s: %w", sessionID, err)
	}
	return nil
}

func (r *SessionRepository) Append(ctx context.Context, sessionID string, msg store.Message) (store.Message, error) {
	seq, err := r.rdb.Incr(ctx, r.seqKey(sessionID)).Result()
	if err != nil {
		return msg, fmt.Errorf("next sequence for %s: %w", sessionID, err)
	}
	msg.Seq = seq

	payload, err := json.Marshal(msg)
	if err != nil {
		return msg, fmt.Errorf("marshal message: %w", err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, r.messagesKey(sessionID), payload)
		pipe.HSetNX(ctx, r.metaKey(sessionID), fieldCreated, msg.Timestamp.Format(time.RFC3339Nano))
		pipe.HSet(ctx, r.metaKey(sessionID), fieldLast, msg.Timestamp.Format(time.RFC3339Nano))
		if msg.Role == store.RoleUser {
			pipe.HSetNX(ctx, r.metaKey(sessionID), fieldFirst, msg.Content)
		}
		pipe.ZAdd(ctx, r.indexKey(), redis.Z{Score: float64(msg.Timestamp.UnixMilli()), Member: sessionID})
		r.expire(ctx, pipe, sessionID)
		return nil
	})
	if err != nil {
		return msg, fmt.Errorf("append message to %s: %w", sessionID, err)
	}
	return msg, nil
}

func (r *SessionRepository) expire(ctx context.Context, pipe redis.Pipeliner, sessionID string) {
	if r.ttl <= 0 {
		return
	}
	pipe.Expire(ctx, r.messagesKey(sessionID), r.ttl)
	pipe.Expire(ctx, r.seqKey(sessionID), r.ttl)
	pipe.Expire(ctx, r.metaKey(sessionID), r.ttl)
}

func (r *SessionRepository) Get(ctx context.Context, sessionID string) ([]store.Message, error) {
	raw, err := r.rdb.LRange(ctx, r.messagesKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", sessionID, err)
	}

	messages := make([]store.Message, 0, len(raw))
	for i, item := range raw {
		var m store.Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("decode message %d of %s: %w", i, sessionID, err)
		}
		messages = append(messages, m)
	}
	return messages, nil
}

func (r *SessionRepository) Exists(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.metaKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("check session %s: %w", sessionID, err)
	}
	return n > 0, nil
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.messagesKey(sessionID), r.seqKey(sessionID), r.metaKey(sessionID))
		pipe.ZRem(ctx, r.indexKey(), sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

func (r *SessionRepository) List(ctx context.Context) ([]store.Summary, error) {
	ids, err := r.rdb.ZRevRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	summaries := make([]store.Summary, 0, len(ids))
	var stale []interface{}
	for _, id := range ids {
		vals, err := r.rdb.HMGet(ctx, r.metaKey(id), fieldFirst, fieldLast).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("read session meta %s: %w", id, err)
		}
		if len(vals) < 2 {
			continue
		}
		first, _ := vals[0].(string)
		last, _ := vals[1].(string)
		if last == "" {
			exists, err := r.Exists(ctx, id)
			if err == nil && !exists {
				stale = append(stale, id)
			}
			continue
		}
		if first == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, last)
		if err != nil {
			return nil, fmt.Errorf("parse session timestamp %s: %w", id, err)
		}
		summaries = append(summaries, store.Summary{
			ID:        id,
			Preview:   utils.Truncate(first, store.PreviewLength),
			Timestamp: ts,
		})
	}

	if len(stale) > 0 {
		r.rdb.ZRem(ctx, r.indexKey(), stale...)
	}

	store.SortSummaries(summaries)
	return summaries, nil
}
