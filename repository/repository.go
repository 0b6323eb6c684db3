package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shoplens/shoplens/config"
	"github.com/shoplens/shoplens/models"
	"github.com/shoplens/shoplens/repository/redis_repository"
)

// ProductCache is the shared key-value store consumed by the orchestrator and
// the chat manager. Records are read and written whole; per-key last-write-wins
// semantics come from the store itself. A missing entry is reported as
// models.ErrNotCached, never as a store failure.
type ProductCache interface {
	GetProduct(ctx context.Context, key models.ProductKey) (models.ProductRecord, error)
	SetProduct(ctx context.Context, rec models.ProductRecord, ttl time.Duration) error
	GetAnalysis(ctx context.Context, key models.ProductKey) (models.AnalysisRecord, error)
	SetAnalysis(ctx context.Context, rec models.AnalysisRecord, ttl time.Duration) error

	GetChatHistory(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
	AppendChatHistory(ctx context.Context, sessionID string, msgs ...models.ChatMessage) error
	ClearChatHistory(ctx context.Context, sessionID string) error
}

type CacheType string

const (
	CacheTypeRedis CacheType = "redis"
)

func NewProductCache(ctx context.Context, t CacheType, cfg config.RedisConfig) (ProductCache, error) {
	switch t {
	case CacheTypeRedis:
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		c, err := redis_repository.Conn(ctx, cfg.Host, cfg.Port, cfg.Password, cfg.DB, timeout)
		if err != nil {
			return nil, err
		}
		return redis_repository.NewRedisProductCache(c), nil
	}
	return nil, fmt.Errorf("invalid cache type: %s", t)
}
