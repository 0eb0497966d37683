package redis

import (
	"context"
	"errors"
	"testing"

	"card-quiz/internal/app"
	"card-quiz/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLeaderboardStoreInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewLeaderboardStore(newClient(mr), "")

	if _, err := store.Load(ctx); !errors.Is(err, app.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}

	entries := []domain.LeaderboardEntry{
		{Name: "Alice", Category: domain.Category1, OriginalTime: 100, FinalTime: 160, Penalty: 60, Answers: domain.Answers{1: domain.AnswerA}},
	}
	if err := store.Save(ctx, entries); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("quiz:leaderboard") {
		t.Fatalf("expected quiz:leaderboard key")
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Alice" || got[0].FinalTime != 160 {
		t.Fatalf("unexpected entries %+v", got)
	}

	if err := mr.Set("quiz:leaderboard", "nope"); err != nil {
		t.Fatalf("seed corrupt: %v", err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, app.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestAnswerKeyStoreInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewAnswerKeyStore(newClient(mr), "event")

	key := domain.AnswerKey{
		PenaltyPerIncorrect: 60,
		Categories: map[domain.CategoryID]domain.Answers{
			domain.Category2: {1: domain.AnswerB, 2: domain.AnswerC},
		},
		Version: 7,
	}
	if err := store.Save(ctx, key); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("event:answer-key") {
		t.Fatalf("expected prefixed key")
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Version != 7 || got.Categories[domain.Category2][2] != domain.AnswerC {
		t.Fatalf("unexpected key %+v", got)
	}
}

func TestStoreSurfacesConnectionErrors(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := newClient(mr)
	mr.Close()

	_, err = NewLeaderboardStore(client, "").Load(context.Background())
	if err == nil || errors.Is(err, app.ErrNoData) || errors.Is(err, app.ErrCorrupt) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:       mr.Addr(),
		MaxRetries: -1,
	})
}
