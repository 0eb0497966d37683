package device

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"card-quiz/internal/cards"
	"card-quiz/internal/domain"
	"github.com/jonboulle/clockwork"
)

type readResult struct {
	uid []byte
	err error
}

type scriptedReader struct {
	mu    sync.Mutex
	reads []readResult
	calls chan struct{}
}

func (r *scriptedReader) ReadUID(context.Context) ([]byte, error) {
	r.mu.Lock()
	var res readResult
	if len(r.reads) > 0 {
		res = r.reads[0]
		r.reads = r.reads[1:]
	}
	r.mu.Unlock()
	r.calls <- struct{}{}
	return res.uid, res.err
}

type recordingHandler struct {
	mu      sync.Mutex
	actions []domain.CardAction
	err     error
}

func (h *recordingHandler) Handle(_ context.Context, a domain.CardAction) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.actions = append(h.actions, a)
	return h.err
}

func (h *recordingHandler) seen() []domain.CardAction {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.CardAction(nil), h.actions...)
}

func mustUID(t *testing.T, name string) []byte {
	t.Helper()
	uid, ok := cards.UIDByName(name)
	if !ok {
		t.Fatalf("no card %q", name)
	}
	return uid
}

func runScripted(t *testing.T, cfg RunnerConfig, handler Handler, indicator Indicator, steps []time.Duration, reads ...readResult) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	reader := &scriptedReader{reads: reads, calls: make(chan struct{}, 64)}
	runner := NewRunner(reader, handler, clock, indicator, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	if err := clock.BlockUntilContext(waitCtx, 1); err != nil {
		t.Fatalf("runner never started: %v", err)
	}
	// One extra empty tick guarantees the previous poll has finished.
	for _, d := range append(steps, cfg.PollInterval) {
		clock.Advance(d)
		select {
		case <-reader.calls:
		case <-time.After(time.Second):
			t.Fatalf("reader not polled")
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestRunnerClassifiesCards(t *testing.T) {
	cfg := RunnerConfig{PollInterval: 100 * time.Millisecond, RescanGuard: time.Second}
	handler := &recordingHandler{}
	step := cfg.PollInterval

	runScripted(t, cfg, handler, &recordingIndicator{}, []time.Duration{step, step, step, step},
		readResult{uid: mustUID(t, "category1")},
		readResult{},
		readResult{uid: mustUID(t, "start")},
		readResult{uid: mustUID(t, "q7")},
	)

	got := handler.seen()
	want := []domain.CardAction{domain.SelectCategory(domain.Category1), domain.StartTimer(), domain.AnswerQuestion(7)}
	if len(got) != len(want) {
		t.Fatalf("unexpected actions %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("action %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestRunnerRescanGuard(t *testing.T) {
	cfg := RunnerConfig{PollInterval: 100 * time.Millisecond, RescanGuard: time.Second}
	handler := &recordingHandler{}
	uid := mustUID(t, "q2")

	runScripted(t, cfg, handler, &recordingIndicator{},
		[]time.Duration{100 * time.Millisecond, 100 * time.Millisecond, 100 * time.Millisecond, 2 * time.Second},
		readResult{uid: uid},
		readResult{uid: uid},
		readResult{uid: uid},
		readResult{uid: uid},
	)

	if got := handler.seen(); len(got) != 2 {
		t.Fatalf("held card should fire once per guard window, got %v", got)
	}
}

func TestRunnerSurvivesErrors(t *testing.T) {
	cfg := RunnerConfig{PollInterval: 100 * time.Millisecond}
	handler := &recordingHandler{err: domain.ErrInvalidTransition}
	indicator := &recordingIndicator{}
	step := cfg.PollInterval

	runScripted(t, cfg, handler, indicator, []time.Duration{step, step, step},
		readResult{err: errors.New("crc mismatch")},
		readResult{uid: mustUID(t, "stop")},
		readResult{uid: []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00}},
	)

	got := handler.seen()
	if len(got) != 2 || got[0] != domain.StopTimer() || got[1].Kind != domain.ActionUnknown {
		t.Fatalf("unexpected actions %v", got)
	}
	if indicator.signals[0] != SignalFailure {
		t.Fatalf("read error should signal failure, got %v", indicator.signals)
	}
}
