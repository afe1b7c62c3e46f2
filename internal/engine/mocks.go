package engine

import (
	"context"
	"sync"

	"github.com/taxpadi/taxpadi/internal/llm"
	"github.com/taxpadi/taxpadi/internal/model"
	"github.com/taxpadi/taxpadi/internal/pattern"
)

// MockGateway is a scripted AIGateway for tests.
type MockGateway struct {
	Responses map[llm.Role]llm.ClassificationResponse
	Errors    map[llm.Role]error
	calls     map[llm.Role]int
	mu        sync.Mutex
}

// NewMockGateway creates an empty mock gateway; with no scripted entries
// every role reports ErrProviderUnavailable.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		Responses: make(map[llm.Role]llm.ClassificationResponse),
		Errors:    make(map[llm.Role]error),
		calls:     make(map[llm.Role]int),
	}
}

// Classify returns the scripted response or error for the role.
func (m *MockGateway) Classify(_ context.Context, role llm.Role, _ string) (llm.ClassificationResponse, error) {
	m.mu.Lock()
	m.calls[role]++
	m.mu.Unlock()

	if err, ok := m.Errors[role]; ok {
		return llm.ClassificationResponse{}, err
	}
	if response, ok := m.Responses[role]; ok {
		return response, nil
	}
	return llm.ClassificationResponse{}, llm.ErrProviderUnavailable
}

// Calls reports how many times a role was invoked.
func (m *MockGateway) Calls(role llm.Role) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[role]
}

// TotalCalls reports invocations across all roles.
func (m *MockGateway) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// MockMatcher is a scripted PatternMatcher for tests.
type MockMatcher struct {
	Match *pattern.Match
	calls int
	mu    sync.Mutex
}

// Find returns the scripted match, if any.
func (m *MockMatcher) Find(_ context.Context, _, _ string, _ model.SignalFlags) *pattern.Match {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.Match
}

// Calls reports how many times Find was invoked.
func (m *MockMatcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
