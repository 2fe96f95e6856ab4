package mqtt

import (
	"context"
	"fmt"
	"sync"

	coremqtt "github.com/mishra-lab/scheduler/core/mqtt"
)

// MockPublisher records published assignments for tests.
type MockPublisher struct {
	Messages      []coremqtt.Assignment
	FailDivisions map[string]bool
	mu            sync.Mutex
}

var _ coremqtt.Publisher = (*MockPublisher)(nil)

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{FailDivisions: make(map[string]bool)}
}

// Publish records the assignment or fails for divisions listed in FailDivisions.
func (m *MockPublisher) Publish(_ context.Context, a coremqtt.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDivisions[a.Division] {
		return fmt.Errorf("publish failed")
	}
	m.Messages = append(m.Messages, a)
	return nil
}

// Published returns a copy of the recorded assignments.
func (m *MockPublisher) Published() []coremqtt.Assignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]coremqtt.Assignment(nil), m.Messages...)
}
