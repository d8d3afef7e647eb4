package notify

import "sync"

// EventName is the message type the browser listens for.
const EventName = "popup"

// Icon selects the pop-up style.
type Icon string

const (
	IconSuccess  Icon = "success"
	IconError    Icon = "error"
	IconWarning  Icon = "warning"
	IconInfo     Icon = "info"
	IconQuestion Icon = "question"
)

// Popup is a generic dialog: icon, title, text or HTML body, buttons.
type Popup struct {
	Icon              Icon   `json:"icon"`
	Title             string `json:"title,omitempty"`
	Text              string `json:"text,omitempty"`
	HTML              string `json:"html,omitempty"`
	ConfirmButtonText string `json:"confirmButtonText,omitempty"`
	ShowCancelButton  bool   `json:"showCancelButton,omitempty"`
}

// New creates a popup with the given icon.
func New(icon Icon, title, text string) Popup {
	return Popup{Icon: icon, Title: title, Text: text}
}

// Success creates a success popup.
//
//	n.Notify(notify.Success("Saved", "Your profile was updated."))
func Success(title, text string) Popup {
	return New(IconSuccess, title, text)
}

// Error creates an error popup.
func Error(title, text string) Popup {
	return New(IconError, title, text)
}

// Warning creates a warning popup.
//
//	n.Notify(notify.Warning("Limit reached", "You can star up to 3 documents."))
func Warning(title, text string) Popup {
	return New(IconWarning, title, text)
}

// Info creates an info popup.
func Info(title, text string) Popup {
	return New(IconInfo, title, text)
}

// WithHTML replaces the text body with HTML.
func (p Popup) WithHTML(html string) Popup {
	p.HTML = html
	p.Text = ""
	return p
}

// WithConfirmButton sets the confirm button label.
func (p Popup) WithConfirmButton(text string) Popup {
	p.ConfirmButtonText = text
	return p
}

// WithCancelButton shows a cancel button.
func (p Popup) WithCancelButton() Popup {
	p.ShowCancelButton = true
	return p
}

// Notifier displays popups.
type Notifier interface {
	Notify(Popup)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Popup)

func (f NotifierFunc) Notify(p Popup) {
	f(p)
}

// Emitter sends a named event with a JSON-serialisable payload to the
// browser. *session.Session implements it.
type Emitter interface {
	Emit(name string, data any) error
}

// EmitterNotifier forwards popups to an Emitter.
type EmitterNotifier struct {
	Emitter Emitter
	OnError func(error)
}

func (n EmitterNotifier) Notify(p Popup) {
	if err := n.Emitter.Emit(EventName, p); err != nil && n.OnError != nil {
		n.OnError(err)
	}
}

// Discard drops every popup.
var Discard Notifier = NotifierFunc(func(Popup) {})

// Recorder keeps every popup in memory. Tests use it in place of a session.
type Recorder struct {
	mu     sync.Mutex
	popups []Popup
}

func (r *Recorder) Notify(p Popup) {
	r.mu.Lock()
	r.popups = append(r.popups, p)
	r.mu.Unlock()
}

// Popups returns a copy of the recorded popups.
func (r *Recorder) Popups() []Popup {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Popup(nil), r.popups...)
}

// Last returns the most recent popup.
func (r *Recorder) Last() (Popup, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.popups) == 0 {
		return Popup{}, false
	}
	return r.popups[len(r.popups)-1], true
}

// Count returns how many popups with icon were recorded.
func (r *Recorder) Count(icon Icon) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.popups {
		if p.Icon == icon {
			n++
		}
	}
	return n
}

// Reset forgets every recorded popup.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.popups = nil
	r.mu.Unlock()
}
