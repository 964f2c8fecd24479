package session

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"nanobanana/internal/workflow"
)

type memoryEntry struct {
	state   workflow.State
	expires time.Time
}

// sessionLock is shared by every caller that asked for it; refs counts
// them so the sweeper never drops a mutex someone is about to take.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// MemoryStore keeps session states in process. Entries expire after the
// configured TTL of inactivity and are swept by a cron job.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	locks   map[string]*sessionLock
	ttl     time.Duration
	now     func() time.Time
	cron    *cron.Cron
	log     zerolog.Logger
}

func NewMemoryStore(ttl time.Duration, log zerolog.Logger) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		locks:   make(map[string]*sessionLock),
		ttl:     ttl,
		now:     time.Now,
		log:     log,
	}
}

// Load returns a copy of the stored state or a fresh state.
func (m *MemoryStore) Load(ctx context.Context, id string) (*workflow.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || m.now().After(e.expires) {
		return workflow.NewState(), nil
	}
	st := e.state
	return &st, nil
}

func (m *MemoryStore) Save(ctx context.Context, id string, st *workflow.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = &memoryEntry{state: *st, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func (m *MemoryStore) Lock(ctx context.Context, id string) (func(), error) {
	l := m.ref(id)
	l.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			m.unref(id, l)
		})
	}, nil
}

func (m *MemoryStore) ref(id string) *sessionLock {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sessionLock{}
		m.locks[id] = l
	}
	l.refs++
	return l
}

func (m *MemoryStore) unref(id string, l *sessionLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 && m.locks[id] == l {
		delete(m.locks, id)
	}
}

// Len reports the number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Sweep removes expired sessions and returns how many were dropped.
// Sessions with a transform in flight are kept until it completes.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for id, e := range m.entries {
		if now.After(e.expires) && !e.state.InFlight {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

// StartSweeper schedules Sweep every minute until Stop is called.
func (m *MemoryStore) StartSweeper() error {
	c := cron.New()
	if _, err := c.AddFunc("@every 1m", func() {
		if n := m.Sweep(); n > 0 {
			m.log.Debug().Int("removed", n).Msg("expired sessions swept")
		}
	}); err != nil {
		return err
	}
	c.Start()
	m.cron = c
	return nil
}

// Stop halts the sweeper.
func (m *MemoryStore) Stop() {
	if m.cron != nil {
		<-m.cron.Stop().Done()
	}
}
