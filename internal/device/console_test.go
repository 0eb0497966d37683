package device

import (
	"context"
	"strings"
	"testing"

	"card-quiz/internal/cards"
	"card-quiz/internal/domain"
)

func TestConsoleFeed(t *testing.T) {
	c := NewConsole()
	script := "card category3\nb\nok\ncard 0xF30xC70x1A0x130x3D\nbogus\n"
	if err := c.Feed(context.Background(), strings.NewReader(script)); err != nil {
		t.Fatalf("feed: %v", err)
	}

	uid, _ := c.ReadUID(context.Background())
	if got := cards.Classify(uid); got != domain.SelectCategory(domain.Category3) {
		t.Fatalf("unexpected first card %v", got)
	}
	uid, _ = c.ReadUID(context.Background())
	if got := cards.Classify(uid); got != domain.SelectCategory(domain.Category1) {
		t.Fatalf("raw uid not parsed, got %v", got)
	}
	if uid, _ := c.ReadUID(context.Background()); uid != nil {
		t.Fatalf("expected no more cards")
	}

	if b, _ := c.Pressed(); b != ButtonB {
		t.Fatalf("expected B, got %v", b)
	}
	if b, _ := c.Pressed(); b != ButtonConfirm {
		t.Fatalf("expected confirm, got %v", b)
	}
	if b, _ := c.Pressed(); b != ButtonNone {
		t.Fatalf("expected no press, got %v", b)
	}
}

func TestConsoleRejectsBadCard(t *testing.T) {
	c := NewConsole()
	if err := c.Exec(context.Background(), "card nothex"); err == nil {
		t.Fatalf("expected parse error")
	}
}
