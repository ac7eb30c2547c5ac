package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix  = "carecall:session:"
	defaultMaxRetries = 5
)

// RedisStore keeps sessions in Redis so any API replica can serve the next
// webhook of a call. Updates use WATCH/MULTI optimistic transactions.
type RedisStore struct {
	rdb        *redis.Client
	ttl        time.Duration
	prefix     string
	maxRetries int
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisStore{rdb: rdb, ttl: ttl, prefix: defaultKeyPrefix, maxRetries: defaultMaxRetries}
}

func (s *RedisStore) key(callID string) string { return s.prefix + callID }

func (s *RedisStore) Create(ctx context.Context, sess Session) error {
	if sess.CallID == "" {
		return ErrNotFound
	}
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("sessions: encode: %w", err)
	}
	ok, err := s.rdb.SetNX(ctx, s.key(sess.CallID), b, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("sessions: create: %w", err)
	}
	if !ok {
		return ErrExists
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, callID string) (Session, error) {
	raw, err := s.rdb.Get(ctx, s.key(callID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("sessions: get: %w", err)
	}
	return decode(raw)
}

func (s *RedisStore) Update(ctx context.Context, callID string, fn func(*Session) error) (Session, error) {
	key := s.key(callID)
	var out Session

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		sess, err := decode(raw)
		if err != nil {
			return err
		}
		if err := fn(&sess); err != nil {
			return err
		}
		b, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("sessions: encode: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, s.ttl)
			return nil
		})
		if err == nil {
			out = sess
		}
		return err
	}

	for i := 0; i < s.maxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return Session{}, err
	}
	return Session{}, ErrConflict
}

func (s *RedisStore) Take(ctx context.Context, callID string) (Session, bool, error) {
	raw, err := s.rdb.GetDel(ctx, s.key(callID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("sessions: take: %w", err)
	}
	sess, err := decode(raw)
	if err != nil {
		// The key is gone either way; the caller still owns finalization.
		return Session{CallID: callID}, true, err
	}
	return sess, true, nil
}

func decode(raw []byte) (Session, error) {
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, fmt.Errorf("sessions: decode: %w", err)
	}
	return sess, nil
}
