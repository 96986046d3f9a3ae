package engagement

import (
	"regexp"
	"strings"
	"testing"
)

func TestNewStatements(t *testing.T) {
	s, err := NewStatements(DefaultTables())
	if err != nil {
		t.Fatal(err)
	}
	// Test 1 - the load copies from source into staging filtered on the hour bucket.
	if !strings.HasPrefix(s.LoadStaging, "INSERT INTO analytics.engagement.raw_engagement_metrics") {
		t.Fatalf("test 1: unexpected insert target: %v", s.LoadStaging)
	}
	if !strings.Contains(s.LoadStaging, "FROM analytics.source.engagement_events") {
		t.Fatalf("test 1: unexpected source: %v", s.LoadStaging)
	}
	if !strings.Contains(s.LoadStaging, "DATE_TRUNC('hour', updated_at) = DATE_TRUNC('hour', TO_TIMESTAMP_NTZ(?))") {
		t.Fatalf("test 1: expected hour-truncation equality filter: %v", s.LoadStaging)
	}
	if strings.Count(s.LoadStaging, "?") != 1 {
		t.Fatalf("test 1: expected exactly one bind variable: %v", s.LoadStaging)
	}
	// Test 2 - the merge aggregates the whole staging table per server and hour.
	if !strings.HasPrefix(s.MergeFact, "MERGE INTO analytics.engagement.fct_engagement_metrics AS target") {
		t.Fatalf("test 2: unexpected merge target: %v", s.MergeFact)
	}
	for _, frag := range []string{
		"FROM analytics.engagement.raw_engagement_metrics\n",
		"COUNT(DISTINCT user_id) AS active_users",
		"SUM(interaction_count) AS total_interactions",
		"SUM(duration_minutes) AS total_duration",
		"GROUP BY server_id, DATE_TRUNC('hour', session_date)",
		"ON target.server_id = source.server_id\n   AND target.metric_hour = source.metric_hour",
		"WHEN MATCHED THEN",
		"WHEN NOT MATCHED THEN",
	} {
		if !strings.Contains(s.MergeFact, frag) {
			t.Fatalf("test 2: merge is missing %q", frag)
		}
	}
	if strings.Contains(s.MergeFact, "WHERE") {
		t.Fatal("test 2: merge must not filter staging to the current tick")
	}
	if n := len(regexp.MustCompile(`CURRENT_TIMESTAMP\(\)`).FindAllString(s.MergeFact, -1)); n != 2 {
		t.Fatalf("test 2: expected updated_at to be stamped on update and insert; got %v", n)
	}
}

func TestTablesValidate(t *testing.T) {
	good := []Tables{
		DefaultTables(),
		{Source: "events", Staging: "stg.raw", Fact: "DB.SCH.FCT_1"},
	}
	for _, tb := range good {
		if err := tb.Validate(); err != nil {
			t.Fatalf("unexpected error for %#v: %v", tb, err)
		}
	}
	bad := []Tables{
		{Source: "", Staging: "a", Fact: "b"},
		{Source: "a", Staging: "a.b.c.d", Fact: "b"},
		{Source: "a", Staging: "b", Fact: "c; drop table x"},
		{Source: "1abc", Staging: "b", Fact: "c"},
	}
	for _, tb := range bad {
		if _, err := NewStatements(tb); err == nil {
			t.Fatalf("expected error for %#v", tb)
		}
	}
}
