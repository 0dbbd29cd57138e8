package cache

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	list      [][]byte
	isList    bool
	expiresAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Memory is an in-process Store used by tests and --dev runs. It honors TTLs
// lazily: expired entries are dropped on access, not by a background sweeper.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// SetClock overrides the time source so tests can drive expiry.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) get(key string) *memoryEntry {
	e, ok := m.entries[key]
	if !ok {
		return nil
	}
	if e.expired(m.now()) {
		delete(m.entries, key)
		return nil
	}
	return e
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.get(key)
	if e == nil || e.isList {
		return nil, ErrCacheMiss
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := &memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *Memory) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

func (m *Memory) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	if e := m.get(key); e != nil && !e.isList {
		n, _ = strconv.ParseInt(string(e.value), 10, 64)
	}
	n++
	e := &memoryEntry{value: []byte(strconv.FormatInt(n, 10))}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = e
	return n, nil
}

func (m *Memory) Counter(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.get(key)
	if e == nil || e.isList {
		return 0, nil
	}
	n, err := strconv.ParseInt(string(e.value), 10, 64)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (m *Memory) ListPush(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.get(key)
	if e == nil || !e.isList {
		e = &memoryEntry{isList: true}
		m.entries[key] = e
	}
	e.list = append(e.list, append([]byte(nil), value...))
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	return nil
}

func (m *Memory) ListRange(ctx context.Context, key string) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.get(key)
	if e == nil || !e.isList {
		return nil, nil
	}
	out := make([][]byte, len(e.list))
	for i, v := range e.list {
		out[i] = append([]byte(nil), v...)
	}
	return out, nil
}

func (m *Memory) ListPop(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.get(key)
	if e == nil || !e.isList || len(e.list) == 0 {
		return nil, ErrCacheMiss
	}
	head := e.list[0]
	e.list = e.list[1:]
	if len(e.list) == 0 {
		delete(m.entries, key)
	}
	return head, nil
}

func (m *Memory) Scan(ctx context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	now := m.now()
	for k, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, k)
			continue
		}
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}
