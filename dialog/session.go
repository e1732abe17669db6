package dialog

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/apibridge/apibridge/internal/metrics"
	"github.com/apibridge/apibridge/internal/sched"
)

// SessionManagerConfig configures conversation tracking.
type SessionManagerConfig struct {
	// IdleTimeout removes conversations with no activity for this long.
	IdleTimeout time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	// SweepInterval is how often the idle sweep runs. Non-positive disables
	// the background sweep; Sweep can still be called directly.
	SweepInterval time.Duration `yaml:"sweep_interval" json:"sweep_interval"`
}

// DefaultSessionManagerConfig returns the session manager defaults.
func DefaultSessionManagerConfig() SessionManagerConfig {
	return SessionManagerConfig{
		IdleTimeout:   30 * time.Minute,
		SweepInterval: 5 * time.Minute,
	}
}

// SessionManager tracks conversation state by id and evicts idle
// conversations on a periodic sweep. The map itself is guarded by a mutex,
// but per-conversation call serialization is the caller's contract.
type SessionManager struct {
	mu            sync.Mutex
	conversations map[string]*ConversationState

	cfg     SessionManagerConfig
	clock   sched.Clock
	metrics *metrics.Collector
	logger  *zap.Logger

	sweepTask *sched.Task
}

// NewSessionManager creates a manager and starts its idle sweep.
func NewSessionManager(cfg SessionManagerConfig, clock sched.Clock, collector *metrics.Collector, logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = sched.RealClock{}
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultSessionManagerConfig().IdleTimeout
	}

	m := &SessionManager{
		conversations: make(map[string]*ConversationState),
		cfg:           cfg,
		clock:         clock,
		metrics:       collector,
		logger:        logger.With(zap.String("component", "session_manager")),
	}
	m.sweepTask = sched.NewTask("conversation_sweep", cfg.SweepInterval, m.Sweep, clock, logger)
	m.sweepTask.Start()
	return m
}

// Start creates a new conversation and returns its id.
func (m *SessionManager) Start() string {
	id := uuid.NewString()
	now := m.clock.Now()

	m.mu.Lock()
	m.conversations[id] = &ConversationState{
		ID:           id,
		State:        StateNew,
		Parameters:   make(map[string]any),
		LastActivity: now,
		CreatedAt:    now,
	}
	size := len(m.conversations)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.ActiveConversations.Set(float64(size))
	}
	m.logger.Debug("conversation started", zap.String("conversation_id", id))
	return id
}

// Get returns the conversation and refreshes its activity timestamp.
func (m *SessionManager) Get(id string) (*ConversationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	conv.LastActivity = m.clock.Now()
	return conv, nil
}

// End removes the conversation. Ending an unknown id is a no-op.
func (m *SessionManager) End(id string) {
	m.mu.Lock()
	delete(m.conversations, id)
	size := len(m.conversations)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.ActiveConversations.Set(float64(size))
	}
}

// Len returns the number of tracked conversations.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conversations)
}

// Sweep removes conversations idle past the configured timeout.
func (m *SessionManager) Sweep() {
	cutoff := m.clock.Now().Add(-m.cfg.IdleTimeout)

	m.mu.Lock()
	var removed int
	for id, conv := range m.conversations {
		if conv.LastActivity.Before(cutoff) {
			delete(m.conversations, id)
			removed++
		}
	}
	size := len(m.conversations)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.ConversationSweeps.Inc()
		m.metrics.ActiveConversations.Set(float64(size))
	}
	if removed > 0 {
		m.logger.Info("idle conversations removed",
			zap.Int("removed", removed),
			zap.Int("remaining", size))
	}
}

// Shutdown stops the idle sweep.
func (m *SessionManager) Shutdown() {
	m.sweepTask.Stop()
}
