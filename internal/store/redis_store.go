package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"threatcomposer/pkg/models"
)

// RedisConfig configures Redis access for composed-threat persistence.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// ThreatState is the latest composed form of one threat.
type ThreatState struct {
	Key         string    `json:"key"`
	NumericID   int       `json:"numeric_id,omitempty"`
	Statement   string    `json:"statement"`
	Suggestions []string  `json:"suggestions,omitempty"`
	Combination int       `json:"field_combination"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// RedisStore keeps the latest composed threat per key.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore constructs a Redis-backed threat store.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	if strings.TrimSpace(cfg.KeyPrefix) == "" {
		cfg.KeyPrefix = "threatcomposer"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis threat store: %w", err)
	}

	return &RedisStore{client: client, prefix: strings.TrimSpace(cfg.KeyPrefix)}, nil
}

// WriteThreats upserts composed threats and marks them updated.
func (s *RedisStore) WriteThreats(threats []*models.ComposedThreat) error {
	if len(threats) == 0 {
		return nil
	}
	ctx := context.Background()
	pipe := s.client.Pipeline()

	for _, th := range threats {
		if th == nil {
			continue
		}
		key := th.Key()
		if key == "" {
			continue
		}
		values, err := hashValues(th)
		if err != nil {
			return err
		}
		pipe.HSet(ctx, s.threatKey(key), values...)
		pipe.ZAdd(ctx, s.updatedSetKey(), redis.Z{Score: float64(th.ComposedAt.Unix()), Member: key})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("update threat redis keys: %w", err)
	}
	return nil
}

// FetchUpdatedSince returns threats updated at or after since, oldest first.
func (s *RedisStore) FetchUpdatedSince(since time.Time, limit int64) ([]ThreatState, error) {
	if limit <= 0 {
		limit = 1000
	}
	ctx := context.Background()
	members, err := s.client.ZRangeByScore(ctx, s.updatedSetKey(), &redis.ZRangeBy{
		Min:   strconv.FormatInt(since.Unix(), 10),
		Max:   "+inf",
		Count: limit,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("read updated threat members: %w", err)
	}

	states := make([]ThreatState, 0, len(members))
	for _, key := range members {
		hash, err := s.client.HGetAll(ctx, s.threatKey(key)).Result()
		if err != nil || len(hash) == 0 {
			continue
		}
		states = append(states, stateFromHash(key, hash))
	}
	return states, nil
}

// Close closes Redis resources.
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *RedisStore) threatKey(key string) string {
	return s.prefix + ":threat:" + key
}

func (s *RedisStore) updatedSetKey() string {
	return s.prefix + ":updated"
}

func hashValues(th *models.ComposedThreat) ([]interface{}, error) {
	suggestions, err := json.Marshal(th.Result.Suggestions)
	if err != nil {
		return nil, fmt.Errorf("encode suggestions for threat %s: %w", th.Key(), err)
	}
	return []interface{}{
		"numeric_id", strconv.Itoa(th.NumericID),
		"statement", th.Result.Statement,
		"suggestions", string(suggestions),
		"field_combination", strconv.Itoa(th.Combination),
		"updated_at", strconv.FormatInt(th.ComposedAt.Unix(), 10),
	}, nil
}

func stateFromHash(key string, hash map[string]string) ThreatState {
	numericID, _ := strconv.Atoi(hash["numeric_id"])
	combination, _ := strconv.Atoi(hash["field_combination"])
	updatedUnix, _ := strconv.ParseInt(hash["updated_at"], 10, 64)

	st := ThreatState{
		Key:         key,
		NumericID:   numericID,
		Statement:   hash["statement"],
		Combination: combination,
	}
	if raw := hash["suggestions"]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &st.Suggestions)
	}
	if updatedUnix > 0 {
		st.UpdatedAt = time.Unix(updatedUnix, 0).UTC()
	}
	return st
}
