package session

import (
	"container/list"
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vango-dev/gigmarket/pkg/api"
)

// Manager tracks live sessions and keeps the records of disconnected ones so
// a reconnecting browser gets its preferences back. Detached records are
// held in memory in LRU order and written to the Store.
type Manager struct {
	mu sync.Mutex

	live map[string]*liveSession

	// Detached records, front = most recently detached.
	detachedQueue *list.List
	detachedIndex map[string]*list.Element

	sessionsByIP map[string]int

	config ManagerConfig
	store  Store
	logger *slog.Logger

	done    chan struct{}
	stopped bool
}

type liveSession struct {
	sess *Session
	ip   string
}

type detachedRecord struct {
	rec        *Record
	detachedAt time.Time
}

// ManagerConfig configures the session manager.
type ManagerConfig struct {
	// MaxDetachedSessions is the number of detached records kept in memory.
	// The least recently detached are dropped first; the Store keeps them.
	// Default: 10000.
	MaxDetachedSessions int

	// MaxSessionsPerIP limits live sessions per client address. 0 disables
	// the limit. Default: 100.
	MaxSessionsPerIP int

	// ResumeWindow is how long a detached session remains resumable.
	// Default: 5 minutes.
	ResumeWindow time.Duration

	// CleanupInterval is how often expired detached records are dropped.
	// Default: 1 minute.
	CleanupInterval time.Duration

	// StoreTimeout bounds each Store call made on disconnect.
	// Default: 5 seconds.
	StoreTimeout time.Duration
}

// DefaultManagerConfig returns a ManagerConfig with sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		MaxDetachedSessions: 10000,
		MaxSessionsPerIP:    100,
		ResumeWindow:        5 * time.Minute,
		CleanupInterval:     time.Minute,
		StoreTimeout:        5 * time.Second,
	}
}

func (c ManagerConfig) withDefaults() ManagerConfig {
	d := DefaultManagerConfig()
	if c.MaxDetachedSessions <= 0 {
		c.MaxDetachedSessions = d.MaxDetachedSessions
	}
	if c.MaxSessionsPerIP < 0 {
		c.MaxSessionsPerIP = 0
	}
	if c.ResumeWindow <= 0 {
		c.ResumeWindow = d.ResumeWindow
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = d.CleanupInterval
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = d.StoreTimeout
	}
	return c
}

var (
	// ErrTooManySessionsFromIP is returned when the per-IP session limit is exceeded.
	ErrTooManySessionsFromIP = errors.New("too many sessions from this IP address")

	// ErrManagerStopped is returned when operations are attempted on a stopped manager.
	ErrManagerStopped = errors.New("session manager is stopped")

	// ErrSessionActive is returned by Register for an ID that is already live.
	ErrSessionActive = errors.New("session is already connected")
)

// NewManager creates a session manager. store may be nil, in which case
// records only survive in memory.
func NewManager(store Store, config ManagerConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		live:          make(map[string]*liveSession),
		detachedQueue: list.New(),
		detachedIndex: make(map[string]*list.Element),
		sessionsByIP:  make(map[string]int),
		config:        config.withDefaults(),
		store:         store,
		logger:        logger.With("component", "session_manager"),
		done:          make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

// ResumeWindow returns how long detached sessions stay resumable.
func (m *Manager) ResumeWindow() time.Duration {
	return m.config.ResumeWindow
}

// OpenRequest describes a connecting browser.
type OpenRequest struct {
	// SessionID is the session the browser wants to resume, if any.
	SessionID string

	UserID string
	Role   api.Role
	Token  string
	IP     string
}

// Open returns the record for a connecting browser. A detached session of
// the same user and role is resumed; otherwise a new record is created.
// A resumed session that is still live is closed first.
func (m *Manager) Open(ctx context.Context, req OpenRequest) (rec *Record, resumed bool, err error) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil, false, ErrManagerStopped
	}
	if m.config.MaxSessionsPerIP > 0 && m.sessionsByIP[req.IP] >= m.config.MaxSessionsPerIP {
		m.mu.Unlock()
		return nil, false, ErrTooManySessionsFromIP
	}
	var stale *Session
	if l, ok := m.live[req.SessionID]; ok && req.SessionID != "" {
		stale = l.sess
	}
	m.mu.Unlock()

	if stale != nil {
		// the old connection has not timed out yet
		stale.Close()
	}

	if req.SessionID != "" {
		prev, err := m.lookup(ctx, req.SessionID)
		if err != nil {
			m.logger.Warn("session lookup failed", "session_id", req.SessionID, "error", err)
		}
		if prev != nil && prev.UserID == req.UserID && prev.Role == req.Role {
			prev.Token = req.Token
			prev.LastActive = time.Now()
			m.logger.Debug("session resumed", "session_id", prev.ID)
			return prev, true, nil
		}
	}

	now := time.Now()
	rec = &Record{
		ID:         uuid.NewString(),
		UserID:     req.UserID,
		Role:       req.Role,
		Token:      req.Token,
		CreatedAt:  now,
		LastActive: now,
		Version:    CurrentVersion,
	}
	if err := rec.Validate(); err != nil {
		return nil, false, err
	}
	return rec, false, nil
}

// lookup takes a detached record out of memory, falling back to the store.
func (m *Manager) lookup(ctx context.Context, id string) (*Record, error) {
	m.mu.Lock()
	if elem, ok := m.detachedIndex[id]; ok {
		d := elem.Value.(*detachedRecord)
		m.detachedQueue.Remove(elem)
		delete(m.detachedIndex, id)
		m.mu.Unlock()
		if time.Since(d.detachedAt) > m.config.ResumeWindow {
			return nil, nil
		}
		return d.rec, nil
	}
	m.mu.Unlock()

	if m.store == nil {
		return nil, nil
	}
	return m.store.Load(ctx, id)
}

// Register adds a started or starting session. The manager detaches it when
// it closes, so Options.OnClose should call Detach.
func (m *Manager) Register(sess *Session, ip string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return ErrManagerStopped
	}
	if _, ok := m.live[sess.ID()]; ok {
		return ErrSessionActive
	}
	if m.config.MaxSessionsPerIP > 0 && m.sessionsByIP[ip] >= m.config.MaxSessionsPerIP {
		return ErrTooManySessionsFromIP
	}

	m.live[sess.ID()] = &liveSession{sess: sess, ip: ip}
	m.sessionsByIP[ip]++

	m.logger.Debug("session registered",
		"session_id", sess.ID(),
		"ip", ip,
		"ip_session_count", m.sessionsByIP[ip])
	return nil
}

// Detach moves a closed session to the detached records and saves its
// record to the store.
func (m *Manager) Detach(sess *Session) {
	rec := sess.Record()

	m.mu.Lock()
	l, ok := m.live[rec.ID]
	if !ok || l.sess != sess {
		m.mu.Unlock()
		return
	}
	delete(m.live, rec.ID)
	m.releaseIPLocked(l.ip)
	if m.stopped {
		// Shutdown saves every record at once
		m.mu.Unlock()
		return
	}

	now := time.Now()
	if elem, ok := m.detachedIndex[rec.ID]; ok {
		m.detachedQueue.Remove(elem)
	}
	m.detachedIndex[rec.ID] = m.detachedQueue.PushFront(&detachedRecord{rec: rec, detachedAt: now})
	for m.detachedQueue.Len() > m.config.MaxDetachedSessions {
		m.evictOldestLocked()
	}
	detached := m.detachedQueue.Len()
	m.mu.Unlock()

	if m.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), m.config.StoreTimeout)
		defer cancel()
		if err := m.store.Save(ctx, rec, now.Add(m.config.ResumeWindow)); err != nil {
			m.logger.Warn("failed to persist detached session",
				"session_id", rec.ID,
				"error", err)
		}
	}

	m.logger.Debug("session detached",
		"session_id", rec.ID,
		"detached_count", detached)
}

// Remove forgets a session entirely, e.g. on sign-out. A live session is
// closed.
func (m *Manager) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	var sess *Session
	if l, ok := m.live[id]; ok {
		sess = l.sess
	}
	m.mu.Unlock()

	if sess != nil {
		sess.Close()
	}

	m.mu.Lock()
	if elem, ok := m.detachedIndex[id]; ok {
		m.detachedQueue.Remove(elem)
		delete(m.detachedIndex, id)
	}
	m.mu.Unlock()

	if m.store != nil {
		return m.store.Delete(ctx, id)
	}
	return nil
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.live[id]
	if !ok {
		return nil, false
	}
	return l.sess, true
}

func (m *Manager) releaseIPLocked(ip string) {
	m.sessionsByIP[ip]--
	if m.sessionsByIP[ip] <= 0 {
		delete(m.sessionsByIP, ip)
	}
}

// evictOldestLocked drops the least recently detached record from memory.
// The store still holds it until its TTL runs out.
func (m *Manager) evictOldestLocked() {
	back := m.detachedQueue.Back()
	if back == nil {
		return
	}
	d := m.detachedQueue.Remove(back).(*detachedRecord)
	delete(m.detachedIndex, d.rec.ID)

	m.logger.Debug("evicted session",
		"session_id", d.rec.ID,
		"reason", "detached_limit_exceeded")
}

func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanupExpired()
		case <-m.done:
			return
		}
	}
}

// cleanupExpired drops detached records older than ResumeWindow.
func (m *Manager) cleanupExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-m.config.ResumeWindow)
	removed := 0
	// the queue is ordered by detach time, so expired records sit at the back
	for back := m.detachedQueue.Back(); back != nil; back = m.detachedQueue.Back() {
		d := back.Value.(*detachedRecord)
		if d.detachedAt.After(cutoff) {
			break
		}
		m.detachedQueue.Remove(back)
		delete(m.detachedIndex, d.rec.ID)
		removed++
	}

	if removed > 0 {
		m.logger.Debug("cleaned up expired sessions",
			"count", removed,
			"remaining", m.detachedQueue.Len())
	}
}

// Shutdown closes every live session and saves all records, live and
// detached, to the store.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	close(m.done)

	sessions := make([]*Session, 0, len(m.live))
	for _, l := range m.live {
		sessions = append(sessions, l.sess)
	}
	records := make([]*Record, 0, len(m.live)+m.detachedQueue.Len())
	for e := m.detachedQueue.Front(); e != nil; e = e.Next() {
		records = append(records, e.Value.(*detachedRecord).rec)
	}
	m.mu.Unlock()

	for _, sess := range sessions {
		records = append(records, sess.Record())
		sess.Close()
	}

	if m.store == nil || len(records) == 0 {
		return nil
	}
	if err := m.store.SaveAll(ctx, records, time.Now().Add(m.config.ResumeWindow)); err != nil {
		m.logger.Warn("failed to persist sessions on shutdown",
			"error", err,
			"count", len(records))
		return err
	}
	m.logger.Info("persisted sessions on shutdown", "count", len(records))
	return nil
}

// Stats returns manager statistics.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ManagerStats{
		Connected: len(m.live),
		Detached:  m.detachedQueue.Len(),
		UniqueIPs: len(m.sessionsByIP),
	}
}

// ManagerStats contains session manager statistics.
type ManagerStats struct {
	// Connected is the number of sessions with a live WebSocket.
	Connected int

	// Detached is the number of records held in memory for resumption.
	Detached int

	// UniqueIPs is the number of client addresses with a live session.
	UniqueIPs int
}
