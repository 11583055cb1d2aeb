package store

import (
	"sync"

	"github.com/retrofit-labs/carcomms"
)

// Memory is a volatile Store. The zero value is ready to use.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
	puts int
	err  error
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Get(namespace, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.data[namespace+"/"+key]
	if !ok {
		return nil, carcomms.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *Memory) Put(namespace, key string, b []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.data[namespace+"/"+key] = append([]byte(nil), b...)
	m.puts++
	return nil
}

// Puts returns the number of successful Put calls.
func (m *Memory) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

// FailPuts makes subsequent Put calls return err, or succeed again if err is nil.
func (m *Memory) FailPuts(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}
