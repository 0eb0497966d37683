package integration

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"card-quiz/internal/app"
	"card-quiz/internal/cards"
	"card-quiz/internal/domain"
	"card-quiz/internal/infra/postgres"
	infraredis "card-quiz/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestCollectorOnPostgres(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()

	if err := postgres.Migrate(ctx, pgURL); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// Applying twice is a no-op.
	if err := postgres.Migrate(ctx, pgURL); err != nil {
		t.Fatalf("migrate again: %v", err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	exerciseCollector(t, ctx, postgres.NewLeaderboardStore(pool), postgres.NewAnswerKeyStore(pool))
}

func TestCollectorOnRedis(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	client, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer client.Close()

	exerciseCollector(t, ctx, infraredis.NewLeaderboardStore(client, "it"), infraredis.NewAnswerKeyStore(client, "it"))
}

// exerciseCollector runs submissions and a key replacement through a
// collector, then checks a fresh collector on the same stores sees the result.
func exerciseCollector(t *testing.T, ctx context.Context, board app.LeaderboardStore, keys app.AnswerKeyStore) {
	t.Helper()

	collector := app.NewCollector(app.NewLeaderboard(board), keys)
	if err := collector.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	uid := cards.CategoryUID(domain.Category1)
	runs := []domain.SubmittedRun{
		{Name: "Alice", Time: 100, CategoryUID: uid, Answers: domain.Answers{1: domain.AnswerA, 2: domain.AnswerC}},
		{Name: "Bob", Time: 120, CategoryUID: uid, Answers: domain.Answers{1: domain.AnswerA, 2: domain.AnswerB}},
		{Name: "Alice", Time: 130, CategoryUID: uid, Answers: domain.Answers{1: domain.AnswerA, 2: domain.AnswerB}},
	}
	if _, err := collector.SaveAnswerKey(ctx, domain.AnswerKey{
		PenaltyPerIncorrect: 60,
		Categories:          map[domain.CategoryID]domain.Answers{domain.Category1: {1: domain.AnswerA, 2: domain.AnswerB}},
	}); err != nil {
		t.Fatalf("save key: %v", err)
	}
	for _, run := range runs {
		if _, err := collector.Submit(ctx, run); err != nil {
			t.Fatalf("submit %s: %v", run.Name, err)
		}
	}

	// Alice: 160 then 130, so the second run wins. Bob: 120.
	want := []struct {
		name  string
		final float64
	}{{"Bob", 120}, {"Alice", 130}}
	assertBoard(t, collector.Leaderboard(domain.Category1).Entries, want)

	// Question 1 now expects B: both stored runs pick up one penalty.
	key, err := collector.SaveAnswerKey(ctx, domain.AnswerKey{
		PenaltyPerIncorrect: 60,
		Categories:          map[domain.CategoryID]domain.Answers{domain.Category1: {1: domain.AnswerB, 2: domain.AnswerB}},
	})
	if err != nil {
		t.Fatalf("replace key: %v", err)
	}
	if key.Version != 2 {
		t.Fatalf("expected key version 2, got %d", key.Version)
	}
	want = []struct {
		name  string
		final float64
	}{{"Bob", 180}, {"Alice", 190}}
	assertBoard(t, collector.Leaderboard(domain.Category1).Entries, want)

	reloaded := app.NewCollector(app.NewLeaderboard(board), keys)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := reloaded.AnswerKey().Version; got != 2 {
		t.Fatalf("expected persisted key version 2, got %d", got)
	}
	assertBoard(t, reloaded.Leaderboard(domain.Category1).Entries, want)

	if err := reloaded.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	entries, err := board.Load(ctx)
	if err != nil {
		t.Fatalf("load after reset: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty leaderboard after reset, got %+v", entries)
	}
}

func assertBoard(t *testing.T, got []domain.LeaderboardEntry, want []struct {
	name  string
	final float64
}) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %+v", len(want), got)
	}
	for i := range want {
		if got[i].Name != want[i].name || got[i].FinalTime != want[i].final {
			t.Fatalf("position %d: expected %s/%v, got %s/%v", i, want[i].name, want[i].final, got[i].Name, got[i].FinalTime)
		}
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
