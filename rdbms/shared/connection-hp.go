package shared

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// HpConnection is a wrapper around the Go native sql.DB.
type HpConnection struct {
	DbSql  *sql.DB
	DbType string
}

func (c *HpConnection) ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error) {
	if c.DbSql == nil {
		return nil, errors.New("HpConnection was not configured correctly: DbSql is missing")
	}
	return c.DbSql.ExecContext(ctx, query, args...)
}

func (c *HpConnection) PingContext(ctx context.Context) error {
	if c.DbSql == nil {
		return errors.New("HpConnection was not configured correctly: DbSql is missing")
	}
	return c.DbSql.PingContext(ctx)
}

func (c *HpConnection) Close() {
	if c.DbSql != nil {
		_ = c.DbSql.Close()
	}
}

func (c *HpConnection) GetType() string {
	return c.DbType
}
