package rdbms

import (
	"context"

	"github.com/relloyd/engagement/logger"
	"github.com/relloyd/engagement/rdbms/shared"
)

// SqlExec runs a single statement and returns the number of rows it affected.
// Any error from the driver is returned unmodified.
func SqlExec(ctx context.Context, log logger.Logger, db shared.Connector, sqltext string, args ...interface{}) (int64, error) {
	log.Debug("executing SQL: ", sqltext, " args: ", args)
	res, err := db.ExecContext(ctx, sqltext, args...)
	if err != nil {
		return 0, err
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil { // if the driver could not report rows affected...
		log.Debug("unable to fetch rows affected: ", err)
		return -1, nil
	}
	return rowsAffected, nil
}
