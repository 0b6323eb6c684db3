package redis_repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shoplens/shoplens/models"
)

const (
	productKeyPrefix = "product:"
	analysisSuffix   = ":analysis"
	chatKeyPrefix    = "chat_history:"
)

// redisProductCache implements repository.ProductCache using Redis. Product
// and analysis entries are whole-record JSON values with a TTL; chat history
// is a list of per-message JSON values with no expiry, so concurrent turns
// append without clobbering each other.
type redisProductCache struct {
	client *redis.Client
}

func NewRedisProductCache(client *redis.Client) *redisProductCache {
	return &redisProductCache{client: client}
}

func productKey(k models.ProductKey) string { return productKeyPrefix + k.String() }

func analysisKey(k models.ProductKey) string { return productKey(k) + analysisSuffix }

func chatKey(sessionID string) string { return chatKeyPrefix + sessionID }

func (r *redisProductCache) GetProduct(ctx context.Context, key models.ProductKey) (models.ProductRecord, error) {
	val, err := r.client.Get(ctx, productKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.ProductRecord{}, models.ErrNotCached
		}
		return models.ProductRecord{}, err
	}

	var rec models.ProductRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return models.ProductRecord{}, err
	}
	return rec, nil
}

func (r *redisProductCache) SetProduct(ctx context.Context, rec models.ProductRecord, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, productKey(rec.Key), data, ttl).Err()
}

func (r *redisProductCache) GetAnalysis(ctx context.Context, key models.ProductKey) (models.AnalysisRecord, error) {
	val, err := r.client.Get(ctx, analysisKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.AnalysisRecord{}, models.ErrNotCached
		}
		return models.AnalysisRecord{}, err
	}

	var rec models.AnalysisRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return models.AnalysisRecord{}, err
	}
	return rec, nil
}

func (r *redisProductCache) SetAnalysis(ctx context.Context, rec models.AnalysisRecord, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, analysisKey(rec.Key), data, ttl).Err()
}

func (r *redisProductCache) GetChatHistory(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	vals, err := r.client.LRange(ctx, chatKey(sessionID), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil // a session with no turns yet is not an error
	}

	msgs := make([]models.ChatMessage, 0, len(vals))
	for _, val := range vals {
		var msg models.ChatMessage
		if err := json.Unmarshal([]byte(val), &msg); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (r *redisProductCache) AppendChatHistory(ctx context.Context, sessionID string, msgs ...models.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	vals := make([]interface{}, 0, len(msgs))
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		vals = append(vals, data)
	}
	return r.client.RPush(ctx, chatKey(sessionID), vals...).Err()
}

func (r *redisProductCache) ClearChatHistory(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, chatKey(sessionID)).Err()
}
