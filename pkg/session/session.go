package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/gigmarket/pkg/confirm"
	"github.com/vango-dev/gigmarket/pkg/modal"
	"github.com/vango-dev/gigmarket/pkg/notify"
	"github.com/vango-dev/gigmarket/pkg/views"
)

// ErrClosed is returned by Emit after the session closed.
var ErrClosed = errors.New("session: closed")

// Config holds the connection limits of a session.
type Config struct {
	// ReadLimit is the largest frame accepted from the browser.
	ReadLimit int64

	// ReadTimeout closes the session when nothing, not even a pong, arrives
	// for this long.
	ReadTimeout time.Duration

	WriteTimeout      time.Duration
	HeartbeatInterval time.Duration

	// SendBuffer is the number of outgoing messages queued before Emit blocks.
	SendBuffer int

	// MountTimeout bounds the initial load of the dashboard.
	MountTimeout time.Duration
}

// DefaultConfig returns the limits used when a field is zero.
func DefaultConfig() Config {
	return Config{
		ReadLimit:         64 * 1024,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		SendBuffer:        64,
		MountTimeout:      15 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ReadLimit <= 0 {
		c.ReadLimit = d.ReadLimit
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = d.HeartbeatInterval
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = d.SendBuffer
	}
	if c.MountTimeout <= 0 {
		c.MountTimeout = d.MountTimeout
	}
	return c
}

// Hooks observes the connection lifecycle. *middleware.Metrics implements it.
type Hooks interface {
	SessionOpened()
	SessionClosed()
	WebSocketError(err error)
}

type noHooks struct{}

func (noHooks) SessionOpened()       {}
func (noHooks) SessionClosed()       {}
func (noHooks) WebSocketError(error) {}

// Options configures New.
type Options struct {
	Config Config

	// Env is the template for the dashboard environment. The session fills
	// in the user, the notifier, the confirmation gate, the modals and the
	// dispatcher.
	Env views.Env

	Hooks  Hooks
	Logger *slog.Logger

	// Resumed is reported to the browser in the hello message.
	Resumed bool

	// OnClose runs once after the session closed.
	OnClose func(*Session)
}

// Session is one browser connection and the dashboard it drives.
//
// Three goroutines serve a session: ReadLoop decodes frames, WriteLoop owns
// writes to the connection and EventLoop runs intents, completion callbacks
// and renders one at a time.
type Session struct {
	conn    *websocket.Conn
	config  Config
	hooks   Hooks
	logger  *slog.Logger
	resumed bool
	onClose func(*Session)

	env    views.Env
	broker *confirm.Broker
	modals *modal.Controller
	dash   *views.Dashboard
	unsubs []func()

	mu  sync.Mutex
	rec *Record

	events   chan func()
	send     chan []byte
	renderCh chan struct{}
	seq      uint64

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	started   atomic.Bool
}

// New creates a session for rec on conn. Call Start to load the dashboard
// and serve the connection.
func New(conn *websocket.Conn, rec *Record, opts Options) *Session {
	cfg := opts.Config.withDefaults()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hooks := opts.Hooks
	if hooks == nil {
		hooks = noHooks{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		conn:     conn,
		config:   cfg,
		hooks:    hooks,
		logger:   logger.With("component", "session", "session_id", rec.ID, "user_id", rec.UserID),
		resumed:  opts.Resumed,
		onClose:  opts.OnClose,
		modals:   modal.NewController(),
		rec:      rec.Clone(),
		events:   make(chan func(), cfg.SendBuffer),
		send:     make(chan []byte, cfg.SendBuffer),
		renderCh: make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	s.broker = confirm.NewBroker(func(r confirm.Request) error {
		return s.Emit(TypeConfirm, r)
	}, s.logger)

	env := opts.Env
	env.UserID = rec.UserID
	env.Role = rec.Role
	if env.Client != nil && rec.Token != "" {
		env.Client = env.Client.WithToken(rec.Token)
	}
	env.Notifier = notify.EmitterNotifier{Emitter: s, OnError: func(err error) {
		s.logger.Debug("popup not delivered", "error", err)
	}}
	env.Gate = s.broker
	env.Modals = s.modals
	env.Dispatch = s.Dispatch
	env.Registry = nil
	env.Logger = s.logger
	s.env = env
	return s
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.rec.ID
}

// UserID returns the signed-in user.
func (s *Session) UserID() string {
	return s.rec.UserID
}

// Record returns a copy of the resumable state.
func (s *Session) Record() *Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Clone()
}

// Dashboard returns the mounted dashboard, or nil before Start succeeded.
func (s *Session) Dashboard() *views.Dashboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dash
}

// Done is closed when the session closes.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Start mounts the dashboard and starts the loops. If the dashboard cannot
// be loaded the error is sent to the browser and the session is closed.
func (s *Session) Start(ctx context.Context) error {
	if s.started.Swap(true) {
		return errors.New("session: already started")
	}
	s.hooks.SessionOpened()
	go s.EventLoop()

	mountCtx, cancel := context.WithTimeout(ctx, s.config.MountTimeout)
	dash, err := views.NewDashboard(mountCtx, s.env)
	cancel()
	if err != nil {
		s.logger.Warn("dashboard mount failed", "error", err)
		if data, encErr := encode(TypeError, errorMessage(err)); encErr == nil {
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			_ = s.conn.WriteMessage(websocket.TextMessage, data)
		}
		s.Close()
		return err
	}
	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		dash.Close()
		return ErrClosed
	default:
	}
	s.dash = dash
	s.unsubs = append(s.unsubs,
		dash.Subscribe(s.requestRender),
		s.modals.Subscribe(func(c modal.Change) {
			if err := s.Emit(TypeModal, c); err != nil {
				s.logger.Debug("modal change not delivered", "modal", c.ID, "error", err)
			}
		}),
	)
	s.mu.Unlock()

	go s.WriteLoop()

	rec := s.Record()
	if err := s.Emit(TypeHello, Hello{SessionID: rec.ID, UserID: rec.UserID, Role: rec.Role, Resumed: s.resumed}); err != nil {
		return err
	}
	s.replay(rec)
	s.requestRender()

	go s.ReadLoop()
	s.logger.Info("session started", "role", rec.Role, "resumed", s.resumed, "views", dash.Names())
	return nil
}

// replay restores the remembered preferences of a resumed session.
func (s *Session) replay(rec *Record) {
	keys := make([]string, 0, len(rec.Preferences))
	for k := range rec.Preferences {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		in := rec.Preferences[k]
		s.enqueue(func() {
			if err := s.dash.Handle(s.ctx, in); err != nil {
				s.logger.Debug("preference not restored", "view", in.View, "action", in.Action, "error", err)
			}
		})
	}
}

// Emit queues a named message for the browser.
func (s *Session) Emit(name string, data any) error {
	msg, err := encode(name, data)
	if err != nil {
		return err
	}
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.send <- msg:
		return nil
	case <-s.done:
		return ErrClosed
	}
}

// Dispatch runs fn on the event loop. It does not wait for fn, so it is safe
// to call from the event loop itself.
func (s *Session) Dispatch(fn func()) {
	select {
	case s.events <- fn:
		return
	case <-s.done:
		return
	default:
	}
	go func() {
		select {
		case s.events <- fn:
		case <-s.done:
		}
	}()
}

func (s *Session) enqueue(fn func()) {
	select {
	case s.events <- fn:
	case <-s.done:
	}
}

func (s *Session) requestRender() {
	select {
	case s.renderCh <- struct{}{}:
	default:
	}
}

// ReadLoop decodes frames until the connection fails or the session closes.
func (s *Session) ReadLoop() {
	defer s.Close()

	s.conn.SetReadLimit(s.config.ReadLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Warn("read error", "error", err)
				s.hooks.WebSocketError(err)
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		s.mu.Lock()
		s.rec.LastActive = time.Now()
		s.mu.Unlock()

		if err := s.handleFrame(data); err != nil {
			s.report(err)
		}
	}
}

func (s *Session) handleFrame(data []byte) error {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %v", errInvalid, err)
	}

	switch msg.Type {
	case TypeIntent:
		var in views.Intent
		if err := json.Unmarshal(msg.Data, &in); err != nil {
			return fmt.Errorf("%w: intent: %v", errInvalid, err)
		}
		if in.View == "" || in.Action == "" {
			return fmt.Errorf("%w: intent needs a view and an action", errInvalid)
		}
		s.enqueue(func() { s.handleIntent(in) })

	case TypeConfirm:
		var answer ConfirmAnswer
		if err := json.Unmarshal(msg.Data, &answer); err != nil {
			return fmt.Errorf("%w: confirm: %v", errInvalid, err)
		}
		found, err := s.broker.Resolve(answer.ID, answer.Confirmed)
		if err != nil {
			return err
		}
		if !found {
			s.logger.Debug("stale confirmation", "prompt", answer.ID)
		}

	case TypeModal:
		var cmd ModalCommand
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			return fmt.Errorf("%w: modal: %v", errInvalid, err)
		}
		s.enqueue(func() {
			if !cmd.Open {
				s.modals.Close(cmd.ID)
				return
			}
			var payload any
			if cmd.Payload != "" {
				payload = cmd.Payload
			}
			if err := s.modals.Open(cmd.ID, payload); err != nil {
				s.report(fmt.Errorf("%w: %v", errInvalid, err))
			}
		})

	default:
		return fmt.Errorf("%w: unknown type %q", errInvalid, msg.Type)
	}
	return nil
}

func (s *Session) handleIntent(in views.Intent) {
	if err := s.dash.Handle(s.ctx, in); err != nil {
		s.report(err)
		return
	}
	s.mu.Lock()
	s.rec.Remember(in)
	s.mu.Unlock()
}

// report sends err to the browser.
func (s *Session) report(err error) {
	msg := errorMessage(err)
	s.logger.Debug("request failed", "code", msg.Code, "error", err)
	if emitErr := s.Emit(TypeError, msg); emitErr != nil {
		s.logger.Debug("error not delivered", "error", emitErr)
	}
}

// WriteLoop writes queued messages and heartbeats. It is the only writer of
// data frames.
func (s *Session) WriteLoop() {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.logger.Warn("write error", "error", err)
				s.hooks.WebSocketError(err)
				s.Close()
				return
			}

		case <-ticker.C:
			deadline := time.Now().Add(s.config.WriteTimeout)
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				s.logger.Debug("ping error", "error", err)
				s.Close()
				return
			}

		case <-s.done:
			return
		}
	}
}

// EventLoop runs queued functions and renders until the session closes.
func (s *Session) EventLoop() {
	for {
		select {
		case fn := <-s.events:
			s.execute(fn)

		case <-s.renderCh:
			s.render()

		case <-s.done:
			return
		}
	}
}

func (s *Session) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("event loop panic", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn()
}

func (s *Session) render() {
	if s.dash == nil {
		return
	}
	s.seq++
	if err := s.Emit(TypeState, StateMessage{Seq: s.seq, Dashboard: s.dash.Snapshot()}); err != nil && !errors.Is(err, ErrClosed) {
		s.logger.Error("render failed", "error", err)
	}
}

// Close ends the session. Pending confirmations are answered with false and
// pending writes are abandoned. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		close(s.done)
		dash, unsubs := s.dash, s.unsubs
		s.unsubs = nil
		s.mu.Unlock()

		s.cancel()
		s.broker.Close()
		for _, unsub := range unsubs {
			unsub()
		}
		if dash != nil {
			dash.Close()
		}

		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = s.conn.Close()

		if s.started.Load() {
			s.hooks.SessionClosed()
		}
		s.logger.Debug("session closed")
		if s.onClose != nil {
			s.onClose(s)
		}
	})
}
