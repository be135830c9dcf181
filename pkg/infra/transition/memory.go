package transition

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/pdfdesk/pkg/domain/model"
	"github.com/m-mizutani/pdfdesk/pkg/domain/types"
)

// DefaultReplayTTL is how long a read token is remembered as already used
const DefaultReplayTTL = 24 * time.Hour

type entry struct {
	transition model.Transition
	redeemed   bool
	expiresAt  time.Time
}

// Memory keeps transition tokens in process memory
type Memory struct {
	mu        sync.Mutex
	entries   map[types.TransitionToken]*entry
	replayTTL time.Duration
	now       func() time.Time
}

// MemoryOption configures Memory
type MemoryOption func(*Memory)

// WithReplayTTL sets how long redeemed tokens are remembered
func WithReplayTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) {
		m.replayTTL = ttl
	}
}

// WithClock replaces the time source
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// NewMemory creates an in-memory transition store
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries:   make(map[types.TransitionToken]*entry),
		replayTTL: DefaultReplayTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Issue(ctx context.Context, tr *model.Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[tr.Token] = &entry{
		transition: *tr,
		expiresAt:  tr.ExpiresAt,
	}
	return nil
}

func (m *Memory) Redeem(ctx context.Context, token types.TransitionToken) (*model.Redemption, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[token]
	if !ok {
		return nil, nil
	}
	if now.After(e.expiresAt) {
		delete(m.entries, token)
		return nil, nil
	}

	tool := e.transition.Reference.Tool
	if e.redeemed {
		return &model.Redemption{Replayed: true, Tool: tool}, nil
	}

	ref := e.transition.Reference
	e.redeemed = true
	e.expiresAt = now.Add(m.replayTTL)
	e.transition.Reference = model.ResultReference{Tool: tool}
	return &model.Redemption{Reference: &ref, Tool: tool}, nil
}

// Sweep drops expired tokens
func (m *Memory) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var n int
	for token, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, token)
			n++
		}
	}
	return n
}
