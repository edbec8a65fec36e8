package sharedhash

import (
	"context"
	"fmt"

	"github.com/bradfitz/gomemcache/memcache"
)

// Memcached backs SharedHash by emulating a hash with flat keys of the
// form "hashName:field", since Memcached has no native hash type. The
// wire format of each value is unchanged from the Redis backend.
type Memcached struct {
	client *memcache.Client
}

// NewMemcached wraps an existing *memcache.Client.
func NewMemcached(client *memcache.Client) *Memcached {
	return &Memcached{client: client}
}

// DialMemcached connects to addr and pings it.
func DialMemcached(addr string) (*Memcached, error) {
	client := memcache.New(addr)
	if err := client.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to memcached: %w", err)
	}
	return NewMemcached(client), nil
}

func (m *Memcached) GetField(_ context.Context, hashName, field string) (string, bool, error) {
	item, err := m.client.Get(fieldKey(hashName, field))
	if err == memcache.ErrCacheMiss {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(item.Value), true, nil
}

func (m *Memcached) SetField(_ context.Context, hashName, field, value string) error {
	return m.client.Set(&memcache.Item{
		Key:   fieldKey(hashName, field),
		Value: []byte(value),
	})
}

func (m *Memcached) Close() error {
	return nil
}

func fieldKey(hashName, field string) string {
	return hashName + ":" + field
}
