package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/relloyd/engagement/alert"
	"github.com/relloyd/engagement/config"
	"github.com/relloyd/engagement/engagement"
	"github.com/relloyd/engagement/helper"
	"github.com/relloyd/engagement/logger"
	"github.com/relloyd/engagement/scheduler"
)

type ScheduleConfig struct {
	LogLevel         string   `errorTxt:"log level" mandatory:"yes"`
	Command          []string // worker argv; the logical date is appended on launch
	WorkerEnv        []string // extra KEY=value pairs for workers
	EnvFile          string   // optional .env file loaded into the scheduler's environment, inherited by workers
	WebhookURL       string
	AlertChannel     string
	Port             int // status server port; 0 disables it
	StackDumpOnPanic bool
	Launcher         scheduler.Launcher // defaults to a ProcessLauncher running Command
}

type ScheduleTriggerConfig struct {
	LogLevel         string `errorTxt:"log level" mandatory:"yes"`
	ServerURL        string `errorTxt:"scheduler server URL" mandatory:"yes"`
	StackDumpOnPanic bool
	Client           *http.Client // defaults to a client with a 30 second timeout
}

type ScheduleShowConfig struct {
	Command []string
	Output  string `errorTxt:"output format" mandatory:"yes"`
	Out     io.Writer
}

// newScheduler wires the engagement metrics refresh definition to its launcher and alerts.
func newScheduler(log logger.Logger, cfg *ScheduleConfig, reg prometheus.Registerer) (*scheduler.Scheduler, error) {
	if len(cfg.Command) == 0 {
		return nil, errors.New("please supply the worker command")
	}
	alerter := alert.Multi{&alert.LogAlerter{Log: log}}
	if cfg.WebhookURL != "" {
		alerter = append(alerter, alert.NewWebhookAlerter(cfg.WebhookURL, cfg.AlertChannel))
	}
	def := scheduler.EngagementMetricsRefresh(cfg.Command, alerter)
	launcher := cfg.Launcher
	if launcher == nil {
		launcher = &scheduler.ProcessLauncher{
			Log:     log,
			Command: def.Task.Command,
			Secrets: def.Task.Secrets,
			Env:     cfg.WorkerEnv,
		}
	}
	opts := make([]scheduler.Option, 0)
	if reg != nil {
		opts = append(opts, scheduler.WithMetrics(scheduler.NewMetrics(reg, def.ID)))
	}
	return scheduler.New(log, def, launcher, opts...)
}

// RunSchedule runs the engagement metrics refresh every 15 minutes until ctx is cancelled.
// When cfg.Port is set, a server exposes /health, /runs and /metrics and accepts
// manual runs on POST /runs, subject to the same single-flight rule as ticks.
func RunSchedule(ctx context.Context, cfg *ScheduleConfig) error {
	if cfg == nil {
		return errors.New("nil pointer to schedule config supplied")
	}
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	log := logger.NewLogger("engagement", cfg.LogLevel, cfg.StackDumpOnPanic)
	if err := config.LoadEnvFile(cfg.EnvFile); err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	s, err := newScheduler(log, cfg, reg)
	if err != nil {
		return err
	}
	if cfg.Port > 0 {
		srv, err := runServer(log, &WebServerConfig{Port: cfg.Port, Runs: s, Submitter: s, RunCtx: ctx, Gatherer: reg})
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdownServer(log, srv); err != nil {
				log.Error("web server shutdown: ", err)
			}
		}()
	}
	return s.Start(ctx)
}

// RunScheduleTrigger asks the running scheduler at cfg.ServerURL to start a run for the logical date.
// It returns the run in its running state, or an error wrapping scheduler.ErrRunActive if
// the scheduler already has a run in progress.
func RunScheduleTrigger(ctx context.Context, cfg *ScheduleTriggerConfig, date string) (scheduler.Run, error) {
	if cfg == nil {
		return scheduler.Run{}, errors.New("nil pointer to schedule trigger config supplied")
	}
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return scheduler.Run{}, err
	}
	tick, err := engagement.ParseTick(date)
	if err != nil {
		return scheduler.Run{}, err
	}
	log := logger.NewLogger("engagement", cfg.LogLevel, cfg.StackDumpOnPanic)
	b, err := json.Marshal(RequestRunLaunch{LogicalDate: tick.Time.Format(time.RFC3339)})
	if err != nil {
		return scheduler.Run{}, err
	}
	url := strings.TrimRight(cfg.ServerURL, "/") + urlContextRuns
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(b))
	if err != nil {
		return scheduler.Run{}, errors.Wrapf(err, "unable to build request for %v", url)
	}
	req.Header.Set("Content-Type", "application/json")
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	log.Debug("posting to url = ", url)
	resp, err := client.Do(req)
	if err != nil {
		return scheduler.Run{}, errors.Wrapf(err, "unable to reach the scheduler at %v", cfg.ServerURL)
	}
	defer resp.Body.Close()
	r := ResponseRunLaunch{}
	if err = json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return scheduler.Run{}, errors.Wrapf(err, "unable to decode response from %v, received HTTP status code %v", url, resp.StatusCode)
	}
	switch {
	case resp.StatusCode == http.StatusConflict:
		return scheduler.Run{}, errors.Wrap(scheduler.ErrRunActive, "scheduler refused the run")
	case resp.StatusCode != http.StatusAccepted || r.Run == nil:
		return scheduler.Run{}, errors.Errorf("error triggering run, received HTTP status code %v: %v", resp.StatusCode, r.Message)
	}
	return *r.Run, nil
}

// RunScheduleShow writes the engagement metrics refresh definition as yaml or json.
func RunScheduleShow(cfg *ScheduleShowConfig) error {
	if cfg == nil {
		return errors.New("nil pointer to schedule show config supplied")
	}
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	def := scheduler.EngagementMetricsRefresh(cfg.Command, nil)
	b, err := def.Marshal(cfg.Output)
	if err != nil {
		return err
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}
