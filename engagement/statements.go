package engagement

import (
	"fmt"
	"regexp"

	"github.com/pkg/errors"
	c "github.com/relloyd/engagement/constants"
)

// reTableName accepts [database.][schema.]table using unquoted identifiers.
var reTableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*){0,2}$`)

// Tables names the three warehouse tables used by the job.
type Tables struct {
	Source  string `errorTxt:"source table" mandatory:"yes"`
	Staging string `errorTxt:"staging table" mandatory:"yes"`
	Fact    string `errorTxt:"fact table" mandatory:"yes"`
}

// DefaultTables returns the production table names.
func DefaultTables() Tables {
	return Tables{
		Source:  c.DefaultSourceTable,
		Staging: c.DefaultStagingTable,
		Fact:    c.DefaultFactTable,
	}
}

// Validate checks each table name is a plain identifier so it can be put into SQL text.
func (t Tables) Validate() error {
	for _, n := range []struct{ kind, name string }{
		{"source", t.Source},
		{"staging", t.Staging},
		{"fact", t.Fact},
	} {
		if !reTableName.MatchString(n.name) {
			return errors.Errorf("invalid %v table name %q", n.kind, n.name)
		}
	}
	return nil
}

// Statements holds the SQL run by the job, in execution order.
type Statements struct {
	// LoadStaging copies source rows whose updated_at falls in the tick's hour into staging.
	// It takes one bind argument: the tick as a timestamp string.
	// Rows are appended without any check for rows already copied by an earlier run.
	LoadStaging string
	// MergeFact recomputes hourly aggregates over the whole staging table and upserts them.
	MergeFact string
}

// NewStatements builds the SQL for the supplied tables.
func NewStatements(t Tables) (Statements, error) {
	if err := t.Validate(); err != nil {
		return Statements{}, err
	}
	return Statements{
		LoadStaging: fmt.Sprintf(sqlLoadStaging, t.Staging, t.Source),
		MergeFact:   fmt.Sprintf(sqlMergeFact, t.Fact, t.Staging),
	}, nil
}

const sqlLoadStaging = `INSERT INTO %v
SELECT
    user_id,
    server_id,
    session_date,
    feature_used,
    interaction_count,
    duration_minutes
FROM %v
WHERE DATE_TRUNC('hour', updated_at) = DATE_TRUNC('hour', TO_TIMESTAMP_NTZ(?))`

const sqlMergeFact = `MERGE INTO %v AS target
USING (
    SELECT
        server_id,
        DATE_TRUNC('hour', session_date) AS metric_hour,
        COUNT(DISTINCT user_id) AS active_users,
        SUM(interaction_count) AS total_interactions,
        SUM(duration_minutes) AS total_duration
    FROM %v
    GROUP BY server_id, DATE_TRUNC('hour', session_date)
) AS source
ON target.server_id = source.server_id
   AND target.metric_hour = source.metric_hour
WHEN MATCHED THEN
    UPDATE SET
        active_users = source.active_users,
        total_interactions = source.total_interactions,
        total_duration = source.total_duration,
        updated_at = CURRENT_TIMESTAMP()
WHEN NOT MATCHED THEN
    INSERT (server_id, metric_hour, active_users, total_interactions, total_duration, updated_at)
    VALUES (source.server_id, source.metric_hour, source.active_users,
            source.total_interactions, source.total_duration, CURRENT_TIMESTAMP())`
