// Package confirm puts destructive actions behind a yes/no dialog.
//
// A Gate answers true only on an explicit affirmative. Cancel, dismiss,
// a cancelled context and a closed session all answer false; none of them
// is an error.
package confirm

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/vango-dev/gigmarket/pkg/notify"
)

// Prompt is the content of a confirmation dialog.
type Prompt struct {
	Title             string      `json:"title"`
	Text              string      `json:"text,omitempty"`
	HTML              string      `json:"html,omitempty"`
	Icon              notify.Icon `json:"icon,omitempty"`
	ConfirmButtonText string      `json:"confirmButtonText,omitempty"`
	CancelButtonText  string      `json:"cancelButtonText,omitempty"`
}

// Popup renders the prompt as a dialog with a cancel button.
func (p Prompt) Popup() notify.Popup {
	icon := p.Icon
	if icon == "" {
		icon = notify.IconQuestion
	}
	return notify.Popup{
		Icon:              icon,
		Title:             p.Title,
		Text:              p.Text,
		HTML:              p.HTML,
		ConfirmButtonText: p.ConfirmButtonText,
		ShowCancelButton:  true,
	}
}

// Gate asks the user to confirm.
type Gate interface {
	Confirm(ctx context.Context, p Prompt) bool
}

// GateFunc adapts a function to Gate.
type GateFunc func(ctx context.Context, p Prompt) bool

func (f GateFunc) Confirm(ctx context.Context, p Prompt) bool {
	return f(ctx, p)
}

// Always answers every prompt with ok.
func Always(ok bool) Gate {
	return GateFunc(func(context.Context, Prompt) bool { return ok })
}

// Guard runs action only if the user confirms. ran reports whether it ran.
func Guard(ctx context.Context, gate Gate, p Prompt, action func() error) (ran bool, err error) {
	if !gate.Confirm(ctx, p) {
		return false, nil
	}
	return true, action()
}

// Request is sent to the browser to open a dialog. The browser answers
// with the same ID.
type Request struct {
	ID     string `json:"id"`
	Prompt Prompt `json:"prompt"`
}

// ErrBrokerClosed is returned by Resolve after Close.
var ErrBrokerClosed = errors.New("confirm: broker closed")

// Broker matches dialog answers from the browser to waiting Confirm calls.
type Broker struct {
	send   func(Request) error
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]chan bool
	closed  bool
	done    chan struct{}
}

// NewBroker creates a broker that delivers requests with send.
func NewBroker(send func(Request) error, logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		send:    send,
		logger:  logger.With("component", "confirm"),
		pending: make(map[string]chan bool),
		done:    make(chan struct{}),
	}
}

// Confirm implements Gate using the broker's send function.
func (b *Broker) Confirm(ctx context.Context, p Prompt) bool {
	return b.Ask(ctx, p, b.send)
}

// Ask sends p with send and waits for the answer.
func (b *Broker) Ask(ctx context.Context, p Prompt, send func(Request) error) bool {
	id := uuid.NewString()
	answer := make(chan bool, 1)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	b.pending[id] = answer
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}()

	if send == nil {
		return false
	}
	if err := send(Request{ID: id, Prompt: p}); err != nil {
		b.logger.Warn("confirm request not delivered", "prompt", id, "error", err)
		return false
	}

	select {
	case ok := <-answer:
		return ok
	case <-ctx.Done():
		return false
	case <-b.done:
		return false
	}
}

// Resolve delivers the browser's answer. It reports whether a prompt with
// that id was waiting.
func (b *Broker) Resolve(id string, ok bool) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false, ErrBrokerClosed
	}
	answer, found := b.pending[id]
	if !found {
		return false, nil
	}
	delete(b.pending, id)
	answer <- ok
	return true, nil
}

// Pending returns the number of unanswered prompts.
func (b *Broker) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Close answers every waiting prompt with false.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.done)
}
