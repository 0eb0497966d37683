package redis

import (
	"context"
	"errors"
	"fmt"

	"card-quiz/internal/domain"
	"card-quiz/internal/infra/document"
	"github.com/redis/go-redis/v9"
)

// Each document lives under a single string key, so a SET replaces it atomically.
//
//	SET {prefix}:leaderboard  <json array>
//	SET {prefix}:answer-key   <json object>
const DefaultPrefix = "quiz"

// LeaderboardStore keeps the leaderboard document in Redis.
type LeaderboardStore struct {
	client *redis.Client
	key    string
}

func NewLeaderboardStore(client *redis.Client, prefix string) *LeaderboardStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &LeaderboardStore{client: client, key: prefix + ":leaderboard"}
}

func (s *LeaderboardStore) Load(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	data, err := getDocument(ctx, s.client, s.key)
	if err != nil {
		return nil, err
	}
	return document.DecodeLeaderboard(data)
}

func (s *LeaderboardStore) Save(ctx context.Context, entries []domain.LeaderboardEntry) error {
	data, err := document.EncodeLeaderboard(entries)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

// AnswerKeyStore keeps the answer key document in Redis.
type AnswerKeyStore struct {
	client *redis.Client
	key    string
}

func NewAnswerKeyStore(client *redis.Client, prefix string) *AnswerKeyStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &AnswerKeyStore{client: client, key: prefix + ":answer-key"}
}

func (s *AnswerKeyStore) Load(ctx context.Context) (domain.AnswerKey, error) {
	data, err := getDocument(ctx, s.client, s.key)
	if err != nil {
		return domain.AnswerKey{}, err
	}
	return document.DecodeAnswerKey(data)
}

func (s *AnswerKeyStore) Save(ctx context.Context, key domain.AnswerKey) error {
	data, err := document.EncodeAnswerKey(key)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

// getDocument maps a missing key to empty data.
func getDocument(ctx context.Context, client *redis.Client, key string) ([]byte, error) {
	data, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}
