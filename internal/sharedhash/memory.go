package sharedhash

import (
	"context"
	"sync"
)

// Memory is an in-process SharedHash, useful for tests that exercise the
// remote Fixed Window store's wire-format parsing without a live Redis or
// Memcached server, and as the healthy counterpart to Unavailable in
// fail-open/fail-closed tests.
type Memory struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

// NewMemory creates an empty in-process shared hash.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string]string)}
}

func (m *Memory) GetField(_ context.Context, hashName, field string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fields, ok := m.data[hashName]
	if !ok {
		return "", false, nil
	}
	v, ok := fields[field]
	return v, ok, nil
}

func (m *Memory) SetField(_ context.Context, hashName, field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fields, ok := m.data[hashName]
	if !ok {
		fields = make(map[string]string)
		m.data[hashName] = fields
	}
	fields[field] = value
	return nil
}

func (m *Memory) Close() error { return nil }

// Unavailable is a SharedHash whose GetField and SetField calls always
// fail with Err, for exercising the remote store's fail-open /
// fail-closed paths deterministically in tests.
type Unavailable struct {
	Err error
}

func (u *Unavailable) GetField(context.Context, string, string) (string, bool, error) {
	return "", false, u.Err
}

func (u *Unavailable) SetField(context.Context, string, string, string) error {
	return u.Err
}

func (u *Unavailable) Close() error { return nil }
