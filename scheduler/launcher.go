package scheduler

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	c "github.com/relloyd/engagement/constants"
	"github.com/relloyd/engagement/helper"
	"github.com/relloyd/engagement/logger"
)

// LaunchRequest identifies one attempt of a run.
type LaunchRequest struct {
	RunID        string
	DefinitionID string
	TaskID       string
	LogicalDate  time.Time
	Attempt      int
}

// Launcher starts one worker for a run attempt and blocks until it exits.
// A nil error means the worker succeeded.
type Launcher interface {
	Launch(ctx context.Context, req LaunchRequest) error
}

// ProcessLauncher runs the worker as a child process.
// The logical date is appended to Command as the only positional argument.
type ProcessLauncher struct {
	Log     logger.Logger
	Command []string
	Secrets []string // environment variables the worker needs, from the process env or Env; launch fails fast if any are unset
	Env     []string // extra KEY=value pairs
	Stdout  io.Writer
	Stderr  io.Writer
}

func (p *ProcessLauncher) Launch(ctx context.Context, req LaunchRequest) error {
	if len(p.Command) == 0 {
		return errors.New("no command configured for process launcher")
	}
	env := append(os.Environ(), p.Env...)
	vars := helper.EnvironToMap(env)
	missing := make([]string, 0)
	for _, k := range p.Secrets {
		if vars[k] == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return errors.Errorf("missing secrets for task %v: %v", req.TaskID, strings.Join(missing, ", "))
	}
	args := make([]string, 0, len(p.Command))
	args = append(args, p.Command[1:]...)
	args = append(args, req.LogicalDate.Format(time.RFC3339))
	cmd := exec.CommandContext(ctx, p.Command[0], args...)
	cmd.Env = append(env,
		c.EnvVarRunId+"="+req.RunID,
		c.EnvVarTryNumber+"="+strconv.Itoa(req.Attempt),
	)
	cmd.Stdout = p.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = p.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	p.Log.Debug("launching ", cmd.Args)
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return errors.Wrapf(err, "task %v exited with code %v", req.TaskID, exitErr.ExitCode())
		}
		return errors.Wrapf(err, "unable to launch task %v", req.TaskID)
	}
	return nil
}
