package session

import (
	"context"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
)

// State expires with the browser session; two hours matches the host's
// default session lifetime.
const redisTTL = 2 * time.Hour

const (
	fieldOrderID      = "order_id"
	fieldOrderToken   = "order_token"
	fieldCheckOrderID = "check_order_id"
	fieldCheckToken   = "check_token"
	fieldCheckCounter = "check_counter"
)

// RedisStore keeps session state in redis so multiple instances can serve the
// same visitor.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(sessionID string) string {
	return "paygate:session:" + sessionID
}

func (s *RedisStore) IssueOrderToken(ctx context.Context, sessionID string, orderID snowflake.ID) (string, error) {
	token, err := NewToken()
	if err != nil {
		return "", err
	}

	key := sessionKey(sessionID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fieldOrderID, orderID.String(), fieldOrderToken, token)
	pipe.Expire(ctx, key, redisTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return token, nil
}

func (s *RedisStore) ConsumeOrderToken(ctx context.Context, sessionID string, orderID snowflake.ID, token string) (bool, error) {
	key := sessionKey(sessionID)
	values, err := s.client.HMGet(ctx, key, fieldOrderID, fieldOrderToken).Result()
	if err != nil {
		return false, err
	}
	if err := s.client.HDel(ctx, key, fieldOrderID, fieldOrderToken).Err(); err != nil {
		return false, err
	}

	storedID, _ := values[0].(string)
	storedToken, _ := values[1].(string)
	return storedToken != "" && storedID == orderID.String() && storedToken == token, nil
}

func (s *RedisStore) IssueCheckToken(ctx context.Context, sessionID string, orderID snowflake.ID) (string, error) {
	token, err := NewToken()
	if err != nil {
		return "", err
	}

	key := sessionKey(sessionID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key,
		fieldCheckOrderID, orderID.String(),
		fieldCheckToken, token,
		fieldCheckCounter, checkAttempts,
	)
	pipe.Expire(ctx, key, redisTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return token, nil
}

func (s *RedisStore) CheckOrderID(ctx context.Context, sessionID string, token string) (snowflake.ID, bool, error) {
	key := sessionKey(sessionID)
	values, err := s.client.HMGet(ctx, key, fieldCheckOrderID, fieldCheckToken).Result()
	if err != nil {
		return 0, false, err
	}

	storedID, _ := values[0].(string)
	storedToken, _ := values[1].(string)
	if storedToken == "" || storedToken != token {
		return 0, false, nil
	}
	parsed, err := strconv.ParseInt(storedID, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return snowflake.ParseInt64(parsed), true, nil
}

func (s *RedisStore) ConsumeCheckAttempt(ctx context.Context, sessionID string) (bool, error) {
	key := sessionKey(sessionID)
	exists, err := s.client.HExists(ctx, key, fieldCheckCounter).Result()
	if err != nil {
		return false, err
	}
	if !exists {
		return false, ErrNoSession
	}
	remaining, err := s.client.HIncrBy(ctx, key, fieldCheckCounter, -1).Result()
	if err != nil {
		return false, err
	}
	return remaining > 0, nil
}
