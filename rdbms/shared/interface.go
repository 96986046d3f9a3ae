package shared

import (
	"context"
)

// Connector abstracts all access to Go SQL functionality.
// There is deliberately no Begin: statements run in autocommit mode one after another.
type Connector interface {
	// Go SQL entry points:
	ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error)
	PingContext(ctx context.Context) error
	Close()
	// Engagement functionality:
	GetType() string
}

// Result abstracts sql.Result so mock connections can report rows affected.
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}
