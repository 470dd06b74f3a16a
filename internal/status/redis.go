package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/event-sync/internal/config"
	"github.com/jonesrussell/north-cloud/event-sync/internal/domain"
)

const (
	reportKey         = "event-sync:last-report"
	reportTTL         = 7 * 24 * time.Hour
	connectionTimeout = 5 * time.Second
)

// ErrEmptyAddress is returned when Redis is enabled without an address.
var ErrEmptyAddress = errors.New("redis address is required")

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	if cfg.Address == "" {
		return nil, ErrEmptyAddress
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// RedisStore keeps the report as JSON under a single key, so every replica serves the same status.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Save writes the report.
func (s *RedisStore) Save(ctx context.Context, report *domain.SyncReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if setErr := s.client.Set(ctx, reportKey, data, reportTTL).Err(); setErr != nil {
		return fmt.Errorf("save report: %w", setErr)
	}
	return nil
}

// Latest reads the report.
func (s *RedisStore) Latest(ctx context.Context) (*domain.SyncReport, error) {
	data, err := s.client.Get(ctx, reportKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoReport
	}
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}

	var report domain.SyncReport
	if unmarshalErr := json.Unmarshal(data, &report); unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal report: %w", unmarshalErr)
	}
	return &report, nil
}

// Ping checks the connection, for health checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
