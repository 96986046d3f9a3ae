package actions

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/engagement/config"
	"github.com/relloyd/engagement/engagement"
	"github.com/relloyd/engagement/helper"
	"github.com/relloyd/engagement/logger"
	"github.com/relloyd/engagement/rdbms"
)

type RefreshConfig struct {
	LogLevel         string `errorTxt:"log level" mandatory:"yes"`
	Date             string `errorTxt:"<date>" mandatory:"yes"`
	DryRun           bool
	StackDumpOnPanic bool
	EnvFile          string
	Tables           engagement.Tables
	Env              map[string]string // warehouse secrets; read from the process environment when nil
	Opener           ConnectionOpener  // defaults to rdbms.NewSnowflakeConnection
	Out              io.Writer         // dry-run output; defaults to stdout
}

// RunRefresh refreshes the engagement metrics for the tick in cfg.Date.
// The date is parsed before any connection is attempted. Warehouse errors are returned unmodified.
func RunRefresh(ctx context.Context, cfg *RefreshConfig) (engagement.Result, error) {
	if cfg == nil {
		return engagement.Result{}, errors.New("nil pointer to refresh config supplied")
	}
	if cfg.Tables == (engagement.Tables{}) {
		cfg.Tables = engagement.DefaultTables()
	}
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return engagement.Result{}, err
	}
	log := logger.NewLogger("engagement", cfg.LogLevel, cfg.StackDumpOnPanic)
	tick, err := engagement.ParseTick(cfg.Date)
	if err != nil {
		return engagement.Result{}, err
	}
	stmts, err := engagement.NewStatements(cfg.Tables)
	if err != nil {
		return engagement.Result{}, err
	}
	if cfg.DryRun {
		out := cfg.Out
		if out == nil {
			out = os.Stdout
		}
		printStatements(out, tick, stmts)
		return engagement.Result{Tick: tick}, nil
	}
	// Load secrets.
	env := cfg.Env
	if env == nil {
		if err = config.LoadEnvFile(cfg.EnvFile); err != nil {
			return engagement.Result{}, err
		}
		env = helper.EnvironToMap(os.Environ())
	}
	w, err := config.LoadLoaderConfig(env)
	if err != nil {
		return engagement.Result{}, err
	}
	// Connect.
	opener := cfg.Opener
	if opener == nil {
		opener = rdbms.NewSnowflakeConnection
	}
	db, err := opener(ctx, log, w)
	if err != nil {
		return engagement.Result{}, err
	}
	defer db.Close()
	// Run.
	job := &engagement.Job{Log: log, Db: db, Statements: stmts}
	res, err := job.Refresh(ctx, tick)
	if err != nil {
		return res, err
	}
	log.Info(fmt.Sprintf("refresh complete for %v: %v row(s) staged, %v row(s) merged", tick, res.RowsStaged, res.RowsMerged))
	return res, nil
}

func printStatements(w io.Writer, tick engagement.Tick, stmts engagement.Statements) {
	fmt.Fprintf(w, "-- tick %v, hour bucket %v\n", tick, tick.HourBucket().Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "-- bind 1: %v\n", tick.WarehouseValue())
	fmt.Fprintln(w, strings.TrimSpace(stmts.LoadStaging)+";")
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.TrimSpace(stmts.MergeFact)+";")
}
