package mqtt

import (
	"errors"
	"sync"

	"github.com/parkpulse/parkpulse/simulator"
)

var errPublishFailed = errors.New("publish failed")

// Publisher mirrors the simulator publisher interface.
type Publisher = simulator.Publisher

var (
	_ Publisher = (*Client)(nil)
	_ Publisher = (*MockPublisher)(nil)
)

// MockPublisher records published messages, for tests.
type MockPublisher struct {
	mu       sync.Mutex
	Messages map[string][][]byte
	Fail     bool
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{Messages: make(map[string][][]byte)}
}

// Publish records the message or fails when configured to.
func (m *MockPublisher) Publish(topic string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return errPublishFailed
	}
	m.Messages[topic] = append(m.Messages[topic], payload)
	return nil
}

// Published returns the messages recorded for a topic.
func (m *MockPublisher) Published(topic string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Messages[topic]
}
