package shared

import (
	"context"
	"errors"
	"testing"
)

func TestMockConnection(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockConnection("snowflake")
	m.ExecErrors = []error{nil, boom}
	m.RowsAffected = 3

	// Test 1 - first exec succeeds and reports rows affected.
	res, err := m.ExecContext(context.Background(), "select 1", 1)
	if err != nil {
		t.Fatalf("test 1: unexpected error: %v", err)
	}
	if n, _ := res.RowsAffected(); n != 3 {
		t.Fatalf("test 1: expected 3 rows affected; got %v", n)
	}
	// Test 2 - second exec returns the queued error but is still recorded.
	if _, err = m.ExecContext(context.Background(), "select 2"); err != boom {
		t.Fatalf("test 2: expected boom; got %v", err)
	}
	s := m.Statements()
	if len(s) != 2 || s[0].Query != "select 1" || s[1].Query != "select 2" || s[0].Args[0] != 1 {
		t.Fatalf("test 2: unexpected statements %#v", s)
	}
	// Test 3 - close is tracked.
	m.Close()
	if !m.IsClosed() {
		t.Fatal("test 3: expected connection to be closed")
	}
	if m.GetType() != "snowflake" {
		t.Fatalf("test 3: unexpected type %v", m.GetType())
	}
}
