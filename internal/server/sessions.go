package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/speakwell/speakwell/internal/observe"
)

// ErrSessionActive is returned by [SessionManager.Start] when the user
// already has a recording session open.
var ErrSessionActive = errors.New("server: a recording session is already active")

// ErrNoSession is returned by [SessionManager.Stop] when the user has no
// open session, or the given session ID does not match the open one.
var ErrNoSession = errors.New("server: no matching recording session")

// SessionInfo holds metadata about an open recording session.
type SessionInfo struct {
	// ID uniquely identifies the session.
	ID string `json:"session_id"`

	// Username is the account the session belongs to.
	Username string `json:"-"`

	// StartedAt is when the session was opened.
	StartedAt time.Time `json:"started_at"`
}

// SessionManager tracks open recording sessions, one per user at most.
// A session is opened when the client starts recording and closed when the
// finished recording is submitted for analysis. All exported methods are
// safe for concurrent use.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]SessionInfo

	metrics *observe.Metrics
	now     func() time.Time
}

// NewSessionManager creates an empty SessionManager. Session counts are
// reported through m's active-sessions gauge.
func NewSessionManager(m *observe.Metrics) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]SessionInfo),
		metrics:  m,
		now:      time.Now,
	}
}

// Start opens a new recording session for username and returns its metadata.
// Returns [ErrSessionActive] if the user already has one open.
func (sm *SessionManager) Start(ctx context.Context, username string) (SessionInfo, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, ok := sm.sessions[username]; ok {
		return SessionInfo{}, ErrSessionActive
	}

	info := SessionInfo{
		ID:        uuid.NewString(),
		Username:  username,
		StartedAt: sm.now().UTC(),
	}
	sm.sessions[username] = info
	sm.metrics.ActiveSessions.Add(ctx, 1)
	return info, nil
}

// Stop closes the user's open session. The given sessionID must match the
// open session's ID; otherwise [ErrNoSession] is returned and the open
// session, if any, stays open.
func (sm *SessionManager) Stop(ctx context.Context, username, sessionID string) (SessionInfo, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	info, ok := sm.sessions[username]
	if !ok || info.ID != sessionID {
		return SessionInfo{}, ErrNoSession
	}

	delete(sm.sessions, username)
	sm.metrics.ActiveSessions.Add(ctx, -1)
	return info, nil
}

// Active returns the user's open session, if any.
func (sm *SessionManager) Active(username string) (SessionInfo, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	info, ok := sm.sessions[username]
	return info, ok
}
