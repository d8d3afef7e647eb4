package notify_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/vango-dev/gigmarket/pkg/notify"
)

// mockEmitter captures emitted events for verification.
type mockEmitter struct {
	emittedEvents []emittedEvent
	err           error
}

type emittedEvent struct {
	name string
	data any
}

func (m *mockEmitter) Emit(name string, data any) error {
	m.emittedEvents = append(m.emittedEvents, emittedEvent{name, data})
	return m.err
}

func TestHelpers(t *testing.T) {
	tests := []struct {
		name  string
		popup notify.Popup
		icon  notify.Icon
	}{
		{"success", notify.Success("Saved", "ok"), notify.IconSuccess},
		{"error", notify.Error("Failed", "boom"), notify.IconError},
		{"warning", notify.Warning("Limit reached", "max 3"), notify.IconWarning},
		{"info", notify.Info("FYI", "hello"), notify.IconInfo},
		{"question", notify.New(notify.IconQuestion, "Sure?", ""), notify.IconQuestion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.popup.Icon != tt.icon {
				t.Errorf("expected icon %q, got %q", tt.icon, tt.popup.Icon)
			}
		})
	}
}

func TestEmitterNotifier(t *testing.T) {
	em := &mockEmitter{}
	n := notify.EmitterNotifier{Emitter: em}

	n.Notify(notify.Warning("Limit reached", "You can star up to 3 documents."))

	if len(em.emittedEvents) != 1 {
		t.Fatalf("expected 1 event, got %d", len(em.emittedEvents))
	}
	event := em.emittedEvents[0]
	if event.name != notify.EventName {
		t.Errorf("expected event name %q, got %q", notify.EventName, event.name)
	}

	raw, err := json.Marshal(event.data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if data["icon"] != "warning" {
		t.Errorf("expected icon warning, got %v", data["icon"])
	}
	if data["title"] != "Limit reached" {
		t.Errorf("expected title 'Limit reached', got %v", data["title"])
	}
	if _, ok := data["html"]; ok {
		t.Error("empty html should be omitted")
	}
}

func TestEmitterNotifierError(t *testing.T) {
	em := &mockEmitter{err: errors.New("closed")}
	var got error
	n := notify.EmitterNotifier{Emitter: em, OnError: func(err error) { got = err }}

	n.Notify(notify.Info("a", "b"))
	if got == nil {
		t.Error("expected OnError to receive the emit failure")
	}
}

func TestPopupBuilders(t *testing.T) {
	p := notify.Error("Delete failed", "plain").
		WithHTML("<b>Server error</b>").
		WithConfirmButton("OK").
		WithCancelButton()

	if p.HTML != "<b>Server error</b>" || p.Text != "" {
		t.Errorf("WithHTML: html=%q text=%q", p.HTML, p.Text)
	}
	if p.ConfirmButtonText != "OK" {
		t.Errorf("ConfirmButtonText = %q", p.ConfirmButtonText)
	}
	if !p.ShowCancelButton {
		t.Error("ShowCancelButton not set")
	}
}

func TestRecorder(t *testing.T) {
	var r notify.Recorder

	if _, ok := r.Last(); ok {
		t.Error("empty recorder returned a popup")
	}

	r.Notify(notify.Warning("w", ""))
	r.Notify(notify.Error("e1", ""))
	r.Notify(notify.Error("e2", ""))

	if got := r.Count(notify.IconError); got != 2 {
		t.Errorf("Count(error) = %d, want 2", got)
	}
	if last, _ := r.Last(); last.Title != "e2" {
		t.Errorf("Last() = %q, want e2", last.Title)
	}
	if len(r.Popups()) != 3 {
		t.Errorf("Popups() = %d, want 3", len(r.Popups()))
	}

	r.Reset()
	if len(r.Popups()) != 0 {
		t.Error("Reset() kept popups")
	}
}
