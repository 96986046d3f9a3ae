package scheduler

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
	"github.com/relloyd/engagement/alert"
	c "github.com/relloyd/engagement/constants"
	"github.com/robfig/cron/v3"
)

const (
	EngagementMetricsRefreshID = "engagement_metrics_refresh"
	EngagementExtractTaskID    = "extract_engagement_metrics"
)

// Duration is a time.Duration that is written as a string such as "5m0s".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// DefaultArgs apply to every task instance of a Definition.
type DefaultArgs struct {
	Owner         string   `json:"owner"`
	DependsOnPast bool     `json:"dependsOnPast"`
	Retries       int      `json:"retries"`
	RetryDelay    Duration `json:"retryDelay"`
}

// TaskDefinition describes the worker launched on each tick.
type TaskDefinition struct {
	ID      string   `json:"taskId"`
	Name    string   `json:"name"`
	Command []string `json:"command"`
	Secrets []string `json:"secrets"`
}

// Definition is a periodic task registration.
type Definition struct {
	ID            string         `json:"dagId"`
	Description   string         `json:"description"`
	Schedule      string         `json:"schedule"`
	StartDate     time.Time      `json:"startDate"`
	Catchup       bool           `json:"catchup"`
	MaxActiveRuns int            `json:"maxActiveRuns"`
	DefaultArgs   DefaultArgs    `json:"defaultArgs"`
	Task          TaskDefinition `json:"task"`
	OnFailure     alert.Alerter  `json:"-"`
}

// EngagementMetricsRefresh returns the registration for the engagement metrics refresh.
// command is the worker argv; the logical timestamp is appended to it on launch.
func EngagementMetricsRefresh(command []string, onFailure alert.Alerter) Definition {
	return Definition{
		ID:            EngagementMetricsRefreshID,
		Description:   "Refresh engagement metrics from source analytics pipeline",
		Schedule:      "*/15 * * * *",
		StartDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Catchup:       false,
		MaxActiveRuns: 1,
		DefaultArgs: DefaultArgs{
			Owner:         "airflow",
			DependsOnPast: false,
			Retries:       1,
			RetryDelay:    Duration(5 * time.Minute),
		},
		Task: TaskDefinition{
			ID:      EngagementExtractTaskID,
			Name:    "extract-engagement-metrics",
			Command: command,
			Secrets: []string{
				c.EnvVarSnowflakeLoadUser,
				c.EnvVarSnowflakeLoadPassword,
				c.EnvVarSnowflakeAccount,
				c.EnvVarSnowflakeLoadDatabase,
				c.EnvVarSnowflakeLoadWarehouse,
			},
		},
		OnFailure: onFailure,
	}
}

// ParseSchedule parses a standard five field cron expression.
func ParseSchedule(spec string) (cron.Schedule, error) {
	s, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid schedule %q", spec)
	}
	return s, nil
}

// Validate checks the definition only asks for behaviour the scheduler supports.
func (d Definition) Validate() error {
	errs := make([]string, 0)
	if strings.TrimSpace(d.ID) == "" {
		errs = append(errs, "missing id")
	}
	if _, err := ParseSchedule(d.Schedule); err != nil {
		errs = append(errs, err.Error())
	}
	if d.MaxActiveRuns != 1 {
		errs = append(errs, fmt.Sprintf("maxActiveRuns must be 1, got %v", d.MaxActiveRuns))
	}
	if d.Catchup {
		errs = append(errs, "catchup is not supported")
	}
	if d.DefaultArgs.DependsOnPast {
		errs = append(errs, "dependsOnPast is not supported")
	}
	if d.DefaultArgs.Retries < 0 {
		errs = append(errs, "retries must not be negative")
	}
	if d.DefaultArgs.RetryDelay < 0 {
		errs = append(errs, "retryDelay must not be negative")
	}
	if strings.TrimSpace(d.Task.ID) == "" {
		errs = append(errs, "missing task id")
	}
	if len(d.Task.Command) == 0 || d.Task.Command[0] == "" {
		errs = append(errs, "missing task command")
	}
	if len(errs) > 0 {
		return errors.Errorf("invalid definition %q: %v", d.ID, strings.Join(errs, "; "))
	}
	return nil
}

// MaxAttempts is the number of launches allowed per run.
func (d Definition) MaxAttempts() int {
	return d.DefaultArgs.Retries + 1
}

// Marshal renders the definition as "json" or "yaml".
func (d Definition) Marshal(format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json":
		return json.MarshalIndent(d, "", "  ")
	case "yaml":
		return yaml.Marshal(d)
	default:
		return nil, errors.Errorf("unsupported output format %q", format)
	}
}
