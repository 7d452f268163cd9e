package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Role tags one conversational turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

var ErrInvalidRole = errors.New("invalid turn role")

// Turn is one utterance in a call's conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type call struct {
	mu             sync.Mutex
	turns          []Turn
	startedAt      time.Time
	lastActivityAt time.Time
}

// Manager owns the mapping from telephony call SID to conversation history.
// Calls are created lazily on first use and expired by the janitor once idle;
// the telephony layer never tells us explicitly that a call hung up.
type Manager struct {
	mu                sync.RWMutex
	calls             map[string]*call
	inactivityTimeout time.Duration
	onExpire          func(callSID string)
}

func NewManager(inactivityTimeout time.Duration) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 10 * time.Minute
	}
	return &Manager{
		calls:             make(map[string]*call),
		inactivityTimeout: inactivityTimeout,
	}
}

func (m *Manager) SetExpireHook(hook func(callSID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

// Append records a turn for callSID, creating the call if it is new.
// Mutation is serialized per call so duplicate delivery from the telephony
// layer cannot interleave appends for the same SID.
func (m *Manager) Append(callSID string, role Role, content string) error {
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	c := m.getOrCreate(callSID)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, Turn{Role: role, Content: content})
	c.lastActivityAt = time.Now().UTC()
	return nil
}

// History returns a copy of the ordered turn sequence for callSID.
// A previously-unseen SID yields an empty history without creating state.
func (m *Manager) History(callSID string) []Turn {
	m.mu.RLock()
	c, ok := m.calls[callSID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

func (m *Manager) getOrCreate(callSID string) *call {
	m.mu.RLock()
	c, ok := m.calls[callSID]
	m.mu.RUnlock()
	if ok {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.calls[callSID]; ok {
		return c
	}
	now := time.Now().UTC()
	c = &call{startedAt: now, lastActivityAt: now}
	m.calls[callSID] = c
	return c
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.calls)
}

// StartJanitor evicts calls idle longer than the inactivity timeout.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *Manager) expireInactive() {
	now := time.Now().UTC()
	var expired []string

	m.mu.Lock()
	for sid, c := range m.calls {
		c.mu.Lock()
		idle := now.Sub(c.lastActivityAt)
		c.mu.Unlock()
		if idle < m.inactivityTimeout {
			continue
		}
		delete(m.calls, sid)
		expired = append(expired, sid)
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, sid := range expired {
			hook(sid)
		}
	}
}
