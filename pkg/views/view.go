package views

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/vango-dev/gigmarket/pkg/api"
	"github.com/vango-dev/gigmarket/pkg/confirm"
	"github.com/vango-dev/gigmarket/pkg/form"
	"github.com/vango-dev/gigmarket/pkg/modal"
	"github.com/vango-dev/gigmarket/pkg/notify"
	"github.com/vango-dev/gigmarket/pkg/optimistic"
	"github.com/vango-dev/gigmarket/pkg/resource"
	"github.com/vango-dev/gigmarket/pkg/search"
	"github.com/vango-dev/gigmarket/pkg/upload"
)

var (
	// ErrUnknownAction is returned by Handle for actions a view does not know.
	ErrUnknownAction = errors.New("views: unknown action")

	// ErrUnknownView is returned when an intent names no mounted view.
	ErrUnknownView = errors.New("views: unknown view")

	// ErrUnknownItem is returned for intents naming an item the view does not show.
	ErrUnknownItem = errors.New("views: unknown item")

	// ErrBusy is returned when a confirmation the action needs is already
	// showing for another item.
	ErrBusy = errors.New("views: another confirmation is pending")

	// ErrUnavailable is returned when a collaborator the view needs is not configured.
	ErrUnavailable = errors.New("views: not available")
)

// Env carries everything a view needs from its session.
type Env struct {
	Client *api.Client
	UserID string
	Role   api.Role

	Notifier notify.Notifier
	Gate     confirm.Gate
	Modals   *modal.Controller
	Registry *resource.Registry

	// Optional collaborators.
	Uploader *upload.Uploader
	Searcher search.Searcher
	Indexer  search.Indexer
	Observer optimistic.Observer

	// Dispatch runs completion callbacks on the session event loop.
	// nil runs them on the writing goroutine.
	Dispatch func(func())

	// Limits. Zero uses DefaultPageSize and MaxStarred.
	PageSize   int
	MaxStarred int

	WriteTimeout time.Duration
	Logger       *slog.Logger
}

func (e Env) withDefaults() Env {
	if e.Notifier == nil {
		e.Notifier = notify.Discard
	}
	if e.Gate == nil {
		e.Gate = confirm.Always(false)
	}
	if e.Modals == nil {
		e.Modals = modal.NewController()
	}
	if e.Registry == nil {
		e.Registry = resource.NewRegistry()
	}
	if e.Logger == nil {
		e.Logger = slog.Default()
	}
	if e.PageSize <= 0 {
		e.PageSize = DefaultPageSize
	}
	if e.MaxStarred <= 0 {
		e.MaxStarred = MaxStarred
	}
	return e
}

// Intent is a user action sent by the browser.
type Intent struct {
	View   string            `json:"view"`
	Action string            `json:"action"`
	Args   map[string]string `json:"args,omitempty"`
}

// Arg returns a string argument.
func (in Intent) Arg(name string) string {
	return in.Args[name]
}

// ArgOr returns a string argument, or fallback when it was not sent.
func (in Intent) ArgOr(name, fallback string) string {
	if v, ok := in.Args[name]; ok {
		return v
	}
	return fallback
}

// Bool parses a boolean argument. Missing or malformed values are false.
func (in Intent) Bool(name string) bool {
	b, _ := strconv.ParseBool(in.Args[name])
	return b
}

// Int parses an integer argument, returning fallback when missing.
func (in Intent) Int(name string, fallback int) int {
	n, err := strconv.Atoi(in.Args[name])
	if err != nil {
		return fallback
	}
	return n
}

// View is a mounted dashboard component.
type View interface {
	Name() string
	Snapshot() any
	Handle(ctx context.Context, in Intent) error
	Subscribe(fn func()) func()
	Close()
}

// base holds what every view shares: its environment, change subscribers
// and the cleanups to run on Close.
type base struct {
	name   string
	env    Env
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	subMu   sync.Mutex
	subs    map[uint64]func()
	nextSub uint64

	closeMu sync.Mutex
	closers []func()
	closed  bool
}

func newBase(name string, env Env) *base {
	env = env.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &base{
		name:   name,
		env:    env,
		logger: env.Logger.With("component", "views", "view", name),
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[uint64]func()),
	}
}

func (b *base) Name() string {
	return b.name
}

// Subscribe registers fn to run whenever the snapshot may have changed.
func (b *base) Subscribe(fn func()) func() {
	b.subMu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn
	b.subMu.Unlock()

	return func() {
		b.subMu.Lock()
		delete(b.subs, id)
		b.subMu.Unlock()
	}
}

func (b *base) changed() {
	b.subMu.Lock()
	subs := make([]func(), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.subMu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// onClose registers cleanups. They run in reverse order.
func (b *base) onClose(fns ...func()) {
	b.closeMu.Lock()
	defer b.closeMu.Unlock()
	b.closers = append(b.closers, fns...)
}

// Close unmounts the view. Pending writes are abandoned silently.
func (b *base) Close() {
	b.closeMu.Lock()
	if b.closed {
		b.closeMu.Unlock()
		return
	}
	b.closed = true
	closers := b.closers
	b.closers = nil
	b.closeMu.Unlock()

	b.cancel()
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
	b.subMu.Lock()
	b.subs = make(map[uint64]func())
	b.subMu.Unlock()
}

// async runs fn off the caller's goroutine, bound to the view's lifetime.
func (b *base) async(fn func(ctx context.Context)) {
	go fn(b.ctx)
}

// warn shows a rejection to the user.
func (b *base) warn(err error) {
	var rejected *optimistic.RejectedError
	if errors.As(err, &rejected) {
		title := rejected.Title
		if title == "" {
			title = "Not allowed"
		}
		b.env.Notifier.Notify(notify.Warning(title, rejected.Notice))
		return
	}
	msg, ok := invalidMessage(err)
	if !ok {
		msg = err.Error()
	}
	b.env.Notifier.Notify(notify.Warning("Check your input", msg))
}

// fail shows the error dialog for a rolled back operation.
func (b *base) fail(title string, err error) {
	if optimistic.IsRejected(err) {
		b.warn(err)
		return
	}
	b.env.Notifier.Notify(notify.Error(title, describe(err)))
}

// describe turns a write failure into text for the error dialog.
func describe(err error) string {
	var status *api.StatusError
	if errors.As(err, &status) && status.Message != "" && status.Status < 500 {
		return status.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The server took too long to answer. Your change was not saved."
	}
	return "Your change could not be saved. Please try again."
}

// expected reports whether err was already shown to the user, so Handle
// does not report it again.
func expected(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, optimistic.ErrNoop) || optimistic.IsRejected(err) {
		return true
	}
	_, ok := invalidMessage(err)
	return ok
}

// invalidMessage extracts the first message of a form validation error.
func invalidMessage(err error) (string, bool) {
	var ve form.ValidationError
	if errors.As(err, &ve) {
		return ve.Message, true
	}
	var errs form.Errors
	if errors.As(err, &errs) && len(errs) > 0 {
		return errs[0].Message, true
	}
	return "", false
}

func unknownAction(view string, in Intent) error {
	return fmt.Errorf("%w: %s.%s", ErrUnknownAction, view, in.Action)
}
