package session

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "coldeye:"

// putRetries bounds optimistic-lock retries when two logins race for one user.
const putRetries = 5

// RedisStore implements Store on Redis.
//
// Layout:
//
//	<prefix>token:<hash> -> JSON row, expiring at the row's expire time
//	<prefix>user:<id>    -> current token hash of that user
//
// Expiry is delegated to Redis, so DeleteExpired is a no-op.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps client. The client is owned by the caller. An empty prefix means "coldeye:".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

type redisRow struct {
	UserID     int64     `json:"user_id,string"`
	TokenHash  string    `json:"token_hash"`
	ExpireTime time.Time `json:"expire_time"`
	UpdateTime time.Time `json:"update_time"`
}

func (s *RedisStore) tokenKey(hash string) string { return s.prefix + "token:" + hash }

func (s *RedisStore) userKey(userID int64) string {
	return s.prefix + "user:" + strconv.FormatInt(userID, 10)
}

func (s *RedisStore) Put(ctx context.Context, row Row) error {
	const op = "session.redis.put"

	payload, err := json.Marshal(redisRow(row))
	if err != nil {
		return storeErr(op, err)
	}

	userKey := s.userKey(row.UserID)
	txn := func(tx *redis.Tx) error {
		prev, err := tx.Get(ctx, userKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			if prev != "" && prev != row.TokenHash {
				p.Del(ctx, s.tokenKey(prev))
			}
			p.Set(ctx, s.tokenKey(row.TokenHash), payload, 0)
			p.ExpireAt(ctx, s.tokenKey(row.TokenHash), row.ExpireTime)
			p.Set(ctx, userKey, row.TokenHash, 0)
			p.ExpireAt(ctx, userKey, row.ExpireTime)
			return nil
		})
		return err
	}

	for i := 0; i < putRetries; i++ {
		err = s.client.Watch(ctx, txn, userKey)
		if !errors.Is(err, redis.TxFailedErr) {
			return storeErr(op, err)
		}
	}
	return storeErr(op, err)
}

func (s *RedisStore) GetByHash(ctx context.Context, tokenHash string) (Row, error) {
	const op = "session.redis.get"

	raw, err := s.client.Get(ctx, s.tokenKey(tokenHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Row{}, ErrTokenNotFound
	}
	if err != nil {
		return Row{}, storeErr(op, err)
	}

	var rr redisRow
	if err := json.Unmarshal(raw, &rr); err != nil {
		return Row{}, storeErr(op, err)
	}
	return Row(rr), nil
}

// deleteScript removes a token key and clears the user index only if it still
// points at that token, so a concurrent re-login is never undone.
var deleteScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then return 0 end
redis.call('DEL', KEYS[1])
local row = cjson.decode(v)
local ukey = ARGV[1] .. row['user_id']
if redis.call('GET', ukey) == ARGV[2] then
  redis.call('DEL', ukey)
end
return 1
`)

func (s *RedisStore) DeleteByHash(ctx context.Context, tokenHash string) error {
	err := deleteScript.Run(ctx, s.client,
		[]string{s.tokenKey(tokenHash)},
		s.prefix+"user:", tokenHash,
	).Err()
	if errors.Is(err, redis.Nil) {
		err = nil
	}
	return storeErr("session.redis.delete", err)
}

func (s *RedisStore) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// Ping checks connectivity for readiness probes.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
