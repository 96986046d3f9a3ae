package shared

import (
	"context"
	"sync"
)

// MockStatement is a statement captured by MockConnection.
type MockStatement struct {
	Query string
	Args  []interface{}
}

// MockConnection is a Connector that records each statement instead of running it.
// Errors queued in ExecErrors are returned by successive Exec calls; a nil entry means success.
type MockConnection struct {
	DbType       string
	ExecErrors   []error
	RowsAffected int64
	PingErr      error
	mu           sync.Mutex
	statements   []MockStatement
	execCount    int
	closed       bool
}

// NewMockConnection returns a MockConnection whose statements all succeed.
func NewMockConnection(dbType string) *MockConnection {
	return &MockConnection{DbType: dbType}
}

func (m *MockConnection) ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statements = append(m.statements, MockStatement{Query: query, Args: args})
	idx := m.execCount
	m.execCount++
	if idx < len(m.ExecErrors) && m.ExecErrors[idx] != nil {
		return nil, m.ExecErrors[idx]
	}
	return mockResult{rows: m.RowsAffected}, nil
}

func (m *MockConnection) PingContext(ctx context.Context) error {
	return m.PingErr
}

func (m *MockConnection) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *MockConnection) GetType() string {
	return m.DbType
}

// Statements returns a copy of the statements executed so far.
func (m *MockConnection) Statements() []MockStatement {
	m.mu.Lock()
	defer m.mu.Unlock()
	retval := make([]MockStatement, len(m.statements))
	copy(retval, m.statements)
	return retval
}

// IsClosed reports whether Close was called.
func (m *MockConnection) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

type mockResult struct {
	rows int64
}

func (r mockResult) LastInsertId() (int64, error) { return 0, nil }
func (r mockResult) RowsAffected() (int64, error) { return r.rows, nil }
