package rdbms

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/engagement/config"
	"github.com/relloyd/engagement/constants"
	"github.com/relloyd/engagement/logger"
	"github.com/relloyd/engagement/rdbms/shared"
	sf "github.com/snowflakedb/gosnowflake"
)

const snowflakeApplicationName = "engagement-refresh"

var reSnowflakeScheme = regexp.MustCompile("^snowflake://")

// SnowflakeConfig converts the warehouse settings into a gosnowflake config.
func SnowflakeConfig(w *config.WarehouseConfig) *sf.Config {
	return &sf.Config{
		Account:     w.Account,
		Database:    w.Database,
		Schema:      w.Schema,
		User:        w.User,
		Password:    w.Password,
		Warehouse:   w.Warehouse,
		Role:        w.Role,
		Application: snowflakeApplicationName,
	}
}

// SnowflakeGetDSN constructs a DSN based on the warehouse settings.
// The prefix 'snowflake://' is added to the DSN.
func SnowflakeGetDSN(w *config.WarehouseConfig) (string, error) {
	if w == nil {
		return "", errors.New("nil warehouse config supplied")
	}
	dsn, err := sf.DSN(SnowflakeConfig(w))
	if err != nil {
		return "", err
	}
	if !reSnowflakeScheme.MatchString(dsn) { // if the prefix is missing...
		dsn = fmt.Sprintf("snowflake://%v", dsn)
	}
	return dsn, nil
}

// NewSnowflakeConnection opens and pings a Snowflake connection using the supplied settings.
// Driver errors are returned as-is so callers see the original failure.
func NewSnowflakeConnection(ctx context.Context, log logger.Logger, w *config.WarehouseConfig) (shared.Connector, error) {
	dsn, err := SnowflakeGetDSN(w)
	if err != nil {
		return nil, err
	}
	log.Debug("opening Snowflake connection ", w) // String() redacts the password.
	conn := &shared.HpConnection{
		DbType: constants.ConnectionTypeSnowflake,
	}
	conn.DbSql, err = sql.Open("snowflake", strings.TrimPrefix(dsn, "snowflake://"))
	if err != nil {
		return nil, err
	}
	// Keep a single session so both statements share it.
	conn.DbSql.SetMaxOpenConns(1)
	if err = conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	log.Info("Successful database connection to Snowflake.")
	return conn, nil
}
