// Package engagement refreshes the hourly engagement metrics fact table.
//
// A run copies source events for one hour bucket into a staging table and then
// merges aggregates over the whole staging table into the fact table. The two
// statements run one after the other on one connection without a transaction:
// if the merge fails, the staged rows from the same run stay in place.
package engagement

import (
	"context"

	"github.com/relloyd/engagement/logger"
	"github.com/relloyd/engagement/rdbms"
	"github.com/relloyd/engagement/rdbms/shared"
)

// Job runs the extract and merge statements against one warehouse connection.
type Job struct {
	Log        logger.Logger
	Db         shared.Connector
	Statements Statements
}

// Result reports the rows affected by each statement.
type Result struct {
	Tick       Tick
	RowsStaged int64
	RowsMerged int64
}

// Refresh runs the staging load for tick followed by the fact merge.
// Errors from the warehouse are returned unmodified and the merge is skipped if the load fails.
func (j *Job) Refresh(ctx context.Context, tick Tick) (Result, error) {
	res := Result{Tick: tick}
	var err error
	j.Log.Info("loading staging rows for hour bucket ", tick.HourBucket().Format("2006-01-02T15:04"), " (tick ", tick, ")")
	res.RowsStaged, err = rdbms.SqlExec(ctx, j.Log, j.Db, j.Statements.LoadStaging, tick.WarehouseValue())
	if err != nil {
		return res, err
	}
	j.Log.Info("staged ", res.RowsStaged, " rows; merging fact table")
	res.RowsMerged, err = rdbms.SqlExec(ctx, j.Log, j.Db, j.Statements.MergeFact)
	if err != nil {
		return res, err
	}
	j.Log.Info("merged ", res.RowsMerged, " fact rows")
	return res, nil
}
