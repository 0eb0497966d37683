package device

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"card-quiz/internal/cards"
	"github.com/rs/zerolog/log"
)

// Console simulates the card reader and the button panel from text lines:
//
//	card <label|uid>   scan a card, e.g. "card category1", "card q3", "card 0xF30xC7..."
//	a | b | c | d      press an answer button
//	ok                 press confirm
type Console struct {
	cardsCh   chan []byte
	buttonsCh chan Button
}

func NewConsole() *Console {
	return &Console{
		cardsCh:   make(chan []byte, 16),
		buttonsCh: make(chan Button, 16),
	}
}

// Feed reads commands from in until EOF or ctx is done.
func (c *Console) Feed(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if err := c.Exec(ctx, sc.Text()); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn().Err(err).Msg("console")
		}
	}
	return sc.Err()
}

// Exec applies one command line.
func (c *Console) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "card":
		if len(fields) != 2 {
			return fmt.Errorf("usage: card <label|uid>")
		}
		uid, ok := cards.UIDByName(fields[1])
		if !ok {
			var err error
			if uid, err = cards.ParseUID(fields[1]); err != nil {
				return err
			}
		}
		select {
		case c.cardsCh <- uid:
		case <-ctx.Done():
			return ctx.Err()
		}
	case "a", "b", "c", "d", "ok":
		b := map[string]Button{"a": ButtonA, "b": ButtonB, "c": ButtonC, "d": ButtonD, "ok": ButtonConfirm}[fields[0]]
		select {
		case c.buttonsCh <- b:
		case <-ctx.Done():
			return ctx.Err()
		}
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
	return nil
}

func (c *Console) ReadUID(_ context.Context) ([]byte, error) {
	select {
	case uid := <-c.cardsCh:
		return uid, nil
	default:
		return nil, nil
	}
}

func (c *Console) Pressed() (Button, error) {
	select {
	case b := <-c.buttonsCh:
		return b, nil
	default:
		return ButtonNone, nil
	}
}

// Drain discards button presses queued while no prompt was open.
func (c *Console) Drain() {
	for {
		select {
		case <-c.buttonsCh:
		default:
			return
		}
	}
}
