package mocks

import (
	"sync"

	"github.com/kevin07696/revenue-share-service/internal/domain/ports"
)

// MockLogger captures log calls for assertions. Safe for concurrent use.
type MockLogger struct {
	mu         sync.Mutex
	InfoCalls  []LogCall
	ErrorCalls []LogCall
	WarnCalls  []LogCall
	DebugCalls []LogCall
}

// LogCall represents a captured log call
type LogCall struct {
	Message string
	Fields  []ports.Field
}

// Field returns the value of the named field, or nil
func (c LogCall) Field(key string) interface{} {
	for _, f := range c.Fields {
		if f.Key == key {
			return f.Value
		}
	}
	return nil
}

// NewMockLogger creates a new mock logger
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

// Info logs an info message
func (m *MockLogger) Info(msg string, fields ...ports.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InfoCalls = append(m.InfoCalls, LogCall{Message: msg, Fields: fields})
}

// Error logs an error message
func (m *MockLogger) Error(msg string, fields ...ports.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ErrorCalls = append(m.ErrorCalls, LogCall{Message: msg, Fields: fields})
}

// Warn logs a warning message
func (m *MockLogger) Warn(msg string, fields ...ports.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WarnCalls = append(m.WarnCalls, LogCall{Message: msg, Fields: fields})
}

// Debug logs a debug message
func (m *MockLogger) Debug(msg string, fields ...ports.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DebugCalls = append(m.DebugCalls, LogCall{Message: msg, Fields: fields})
}

// Errors returns a snapshot of the captured error calls
func (m *MockLogger) Errors() []LogCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LogCall(nil), m.ErrorCalls...)
}

// Warnings returns a snapshot of the captured warn calls
func (m *MockLogger) Warnings() []LogCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LogCall(nil), m.WarnCalls...)
}

// Reset clears all captured calls
func (m *MockLogger) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InfoCalls = nil
	m.ErrorCalls = nil
	m.WarnCalls = nil
	m.DebugCalls = nil
}
