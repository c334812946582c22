package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dragon-treasure/internal/config"
	"dragon-treasure/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

type RedisService struct {
	client *redis.Client
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisServiceWithClient(client), nil
}

func NewRedisServiceWithClient(client *redis.Client) *RedisService {
	return &RedisService{client: client}
}

func (s *RedisService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) StorePlayerSession(ctx context.Context, session *models.PlayerSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	key := fmt.Sprintf(KeySessionInfo, session.ID)
	if err := s.client.Set(ctx, key, data, TTLSession).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetPlayerSession loads a session and refreshes its TTL along with the keys
// that belong to it.
func (s *RedisService) GetPlayerSession(ctx context.Context, sessionID string) (*models.PlayerSession, error) {
	key := fmt.Sprintf(KeySessionInfo, sessionID)

	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session models.PlayerSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	session.LastAccessed = time.Now()
	updated, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key, updated, TTLSession)
	for _, k := range sessionKeys(sessionID)[1:] {
		pipe.Expire(ctx, k, TTLSession)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}

	return &session, nil
}

func (s *RedisService) DeletePlayerSession(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKeys(sessionID)...).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func sessionKeys(sessionID string) []string {
	return []string{
		fmt.Sprintf(KeySessionInfo, sessionID),
		fmt.Sprintf(KeySessionKey, sessionID),
		fmt.Sprintf(KeySessionContract, sessionID),
		fmt.Sprintf(KeySessionHistory, sessionID),
	}
}

func (s *RedisService) StoreAccountKey(ctx context.Context, sessionID, key string) error {
	return s.setString(ctx, fmt.Sprintf(KeySessionKey, sessionID), key)
}

// GetAccountKey returns "" when the session has no key yet.
func (s *RedisService) GetAccountKey(ctx context.Context, sessionID string) (string, error) {
	return s.getString(ctx, fmt.Sprintf(KeySessionKey, sessionID))
}

func (s *RedisService) StoreContractAddress(ctx context.Context, sessionID, address string) error {
	return s.setString(ctx, fmt.Sprintf(KeySessionContract, sessionID), address)
}

// GetContractAddress returns "" when no contract has been connected.
func (s *RedisService) GetContractAddress(ctx context.Context, sessionID string) (string, error) {
	return s.getString(ctx, fmt.Sprintf(KeySessionContract, sessionID))
}

func (s *RedisService) setString(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, TTLSession).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (s *RedisService) getString(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

// PushHistory prepends an entry and keeps the newest MaxHistoryEntries.
func (s *RedisService) PushHistory(ctx context.Context, sessionID string, entry *models.GameHistoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	key := fmt.Sprintf(KeySessionHistory, sessionID)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, models.MaxHistoryEntries-1)
	pipe.Expire(ctx, key, TTLSession)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save history entry: %w", err)
	}
	return nil
}

// GetHistory returns entries newest first. Entries that fail to decode are
// skipped.
func (s *RedisService) GetHistory(ctx context.Context, sessionID string, limit int64) ([]*models.GameHistoryEntry, error) {
	if limit <= 0 || limit > models.MaxHistoryEntries {
		limit = models.MaxHistoryEntries
	}

	key := fmt.Sprintf(KeySessionHistory, sessionID)
	items, err := s.client.LRange(ctx, key, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	history := make([]*models.GameHistoryEntry, 0, len(items))
	for _, item := range items {
		var entry models.GameHistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		history = append(history, &entry)
	}
	return history, nil
}

func (s *RedisService) CheckRateLimit(ctx context.Context, sessionID, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, sessionID, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	if count == 1 {
		s.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

func (s *RedisService) ClearRateLimit(ctx context.Context, sessionID, action string) error {
	key := fmt.Sprintf(KeyRateLimit, sessionID, action)
	return s.client.Del(ctx, key).Err()
}
