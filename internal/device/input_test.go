package device

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"card-quiz/internal/domain"
	"github.com/jonboulle/clockwork"
)

type scriptedPanel struct {
	mu      sync.Mutex
	presses []Button
	calls   chan struct{}
}

func newScriptedPanel(presses ...Button) *scriptedPanel {
	return &scriptedPanel{presses: presses, calls: make(chan struct{}, 64)}
}

func (p *scriptedPanel) Pressed() (Button, error) {
	p.mu.Lock()
	b := ButtonNone
	if len(p.presses) > 0 {
		b = p.presses[0]
		p.presses = p.presses[1:]
	}
	p.mu.Unlock()
	p.calls <- struct{}{}
	return b, nil
}

type awaitResult struct {
	answer domain.Answer
	ok     bool
	err    error
}

func startAwait(t *testing.T, prompt *AnswerPrompt, clock *clockwork.FakeClock, waiters int) <-chan awaitResult {
	t.Helper()
	out := make(chan awaitResult, 1)
	go func() {
		a, ok, err := prompt.Await(context.Background(), 1)
		out <- awaitResult{a, ok, err}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := clock.BlockUntilContext(ctx, waiters); err != nil {
		t.Fatalf("prompt never started waiting: %v", err)
	}
	return out
}

func tick(t *testing.T, clock *clockwork.FakeClock, panel *scriptedPanel, d time.Duration) {
	t.Helper()
	clock.Advance(d)
	select {
	case <-panel.calls:
	case <-time.After(time.Second):
		t.Fatalf("panel not sampled after tick")
	}
}

func TestAwaitSelectThenConfirm(t *testing.T) {
	clock := clockwork.NewFakeClock()
	panel := newScriptedPanel(ButtonNone, ButtonC, ButtonConfirm)
	prompt := NewAnswerPrompt(panel, clock, PromptConfig{PollInterval: 100 * time.Millisecond})

	out := startAwait(t, prompt, clock, 1)
	for i := 0; i < 3; i++ {
		tick(t, clock, panel, 100*time.Millisecond)
	}
	res := <-out
	if res.err != nil || !res.ok || res.answer != domain.AnswerC {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestAwaitConfirmWithoutSelectionSkips(t *testing.T) {
	clock := clockwork.NewFakeClock()
	panel := newScriptedPanel(ButtonConfirm)
	prompt := NewAnswerPrompt(panel, clock, PromptConfig{PollInterval: 100 * time.Millisecond})

	out := startAwait(t, prompt, clock, 1)
	tick(t, clock, panel, 100*time.Millisecond)
	if res := <-out; res.err != nil || res.ok {
		t.Fatalf("expected skip, got %+v", res)
	}
}

func TestAwaitDebounce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	panel := newScriptedPanel(ButtonA, ButtonB, ButtonConfirm)
	prompt := NewAnswerPrompt(panel, clock, PromptConfig{
		PollInterval: 100 * time.Millisecond,
		Debounce:     300 * time.Millisecond,
	})

	out := startAwait(t, prompt, clock, 1)
	for i := 0; i < 3; i++ {
		tick(t, clock, panel, 100*time.Millisecond)
	}
	if res := <-out; res.answer != domain.AnswerA {
		t.Fatalf("change inside debounce window must be ignored, got %+v", res)
	}
}

func TestAwaitChangeAfterDebounce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	panel := newScriptedPanel(ButtonA, ButtonNone, ButtonNone, ButtonB, ButtonConfirm)
	prompt := NewAnswerPrompt(panel, clock, PromptConfig{
		PollInterval: 100 * time.Millisecond,
		Debounce:     300 * time.Millisecond,
	})

	out := startAwait(t, prompt, clock, 1)
	for i := 0; i < 5; i++ {
		tick(t, clock, panel, 100*time.Millisecond)
	}
	if res := <-out; res.answer != domain.AnswerB || !res.ok {
		t.Fatalf("expected B, got %+v", res)
	}
}

func TestAwaitMaxWaitSkips(t *testing.T) {
	clock := clockwork.NewFakeClock()
	panel := newScriptedPanel()
	prompt := NewAnswerPrompt(panel, clock, PromptConfig{
		PollInterval: 100 * time.Millisecond,
		MaxWait:      time.Second,
	})

	out := startAwait(t, prompt, clock, 2)
	clock.Advance(time.Second)
	select {
	case res := <-out:
		if res.err != nil || res.ok {
			t.Fatalf("expected skip on timeout, got %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatalf("prompt did not give up after max wait")
	}
}

func TestAwaitContextCancel(t *testing.T) {
	prompt := NewAnswerPrompt(newScriptedPanel(), clockwork.NewFakeClock(), PromptConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := prompt.Await(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestAwaitIgnoresPressesBeforePrompt(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	console := NewConsole()
	if err := console.Exec(ctx, "ok"); err != nil {
		t.Fatalf("exec: %v", err)
	}

	prompt := NewAnswerPrompt(console, clock, PromptConfig{PollInterval: 100 * time.Millisecond})
	out := make(chan awaitResult, 1)
	go func() {
		a, ok, err := prompt.Await(ctx, 4)
		out <- awaitResult{a, ok, err}
	}()
	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := clock.BlockUntilContext(waitCtx, 1); err != nil {
		t.Fatalf("prompt never started waiting: %v", err)
	}

	for _, cmd := range []string{"b", "ok"} {
		if err := console.Exec(ctx, cmd); err != nil {
			t.Fatalf("exec %s: %v", cmd, err)
		}
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case res := <-out:
			if res.err != nil || !res.ok || res.answer != domain.AnswerB {
				t.Fatalf("expected B, got %+v", res)
			}
			return
		case <-deadline:
			t.Fatal("prompt did not return")
		case <-time.After(10 * time.Millisecond):
			clock.Advance(100 * time.Millisecond)
		}
	}
}

func TestConsoleDrainDropsQueuedPresses(t *testing.T) {
	c := NewConsole()
	for _, cmd := range []string{"a", "ok"} {
		if err := c.Exec(context.Background(), cmd); err != nil {
			t.Fatalf("exec %s: %v", cmd, err)
		}
	}
	c.Drain()
	if b, _ := c.Pressed(); b != ButtonNone {
		t.Fatalf("expected no press after drain, got %v", b)
	}
}
