package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/engagement/engagement"
	"github.com/relloyd/engagement/logger"
	"github.com/relloyd/engagement/scheduler"
)

type WebServerResponse uint32

const (
	Okay WebServerResponse = iota + 1
	Error
)

func (w WebServerResponse) MarshalJSON() ([]byte, error) {
	var retval string
	switch w {
	case Okay:
		retval = "ok"
	case Error:
		retval = "error"
	default:
		err := errors.New("unhandled WebServerResponse value in MarshalJSON() conversion")
		return nil, err
	}
	return json.Marshal(retval)
}

func (w *WebServerResponse) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "ok":
		*w = Okay
	case "error":
		*w = Error
	default:
		return errors.Errorf("unhandled WebServerResponse value %q", s)
	}
	return nil
}

type ResponseSimple struct {
	ServerStatus WebServerResponse `json:"status"`
}

type ResponseRunList struct {
	Status WebServerResponse `json:"status"`
	Active bool              `json:"active"`
	Runs   []scheduler.Run   `json:"runs"`
}

// RequestRunLaunch is the body of POST /runs.
type RequestRunLaunch struct {
	LogicalDate string `json:"logicalDate"`
}

type ResponseRunLaunch struct {
	Status  WebServerResponse `json:"status"`
	Message string            `json:"message"`
	Run     *scheduler.Run    `json:"run,omitempty"`
}

func GetHandlerHealth(log logger.Logger) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		respond(log, w, ResponseSimple{ServerStatus: Okay})
	}
}

func GetHandlerRunList(log logger.Logger, runs RunLister) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if runs == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			respond(log, w, ResponseRunList{Status: Error, Runs: []scheduler.Run{}})
			return
		}
		w.WriteHeader(http.StatusOK)
		respond(log, w, ResponseRunList{Status: Okay, Active: runs.IsActive(), Runs: runs.Runs()})
	}
}

// GetHandlerRunLaunch starts a run for the logical date in the request body.
// It answers 202 with the running run, 409 if a run is already active and 503 while stopping.
func GetHandlerRunLaunch(ctx context.Context, log logger.Logger, sub RunSubmitter) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		b, err := io.ReadAll(r.Body)
		if err != nil {
			logAndRespond(log, err, w, http.StatusBadRequest, ResponseRunLaunch{Status: Error, Message: fmt.Sprintf("error reading request: %v", err)})
			return
		}
		req := RequestRunLaunch{}
		if err = json.Unmarshal(b, &req); err != nil {
			logAndRespond(log, err, w, http.StatusBadRequest, ResponseRunLaunch{Status: Error, Message: fmt.Sprintf("error unmarshalling JSON: %v", err)})
			return
		}
		tick, err := engagement.ParseTick(req.LogicalDate)
		if err != nil {
			logAndRespond(log, err, w, http.StatusBadRequest, ResponseRunLaunch{Status: Error, Message: err.Error()})
			return
		}
		run, err := sub.Submit(ctx, tick.Time)
		switch {
		case errors.Is(err, scheduler.ErrRunActive):
			logAndRespond(log, err, w, http.StatusConflict, ResponseRunLaunch{Status: Error, Message: err.Error()})
			return
		case errors.Is(err, scheduler.ErrStopped):
			logAndRespond(log, err, w, http.StatusServiceUnavailable, ResponseRunLaunch{Status: Error, Message: err.Error()})
			return
		case err != nil:
			logAndRespond(log, err, w, http.StatusInternalServerError, ResponseRunLaunch{Status: Error, Message: err.Error()})
			return
		}
		log.Info("submitted run ", run.ID, " for logical date ", run.LogicalDate.Format(time.RFC3339))
		w.WriteHeader(http.StatusAccepted)
		respond(log, w, ResponseRunLaunch{Status: Okay, Message: "run started", Run: &run})
	}
}

// logAndRespond will log the error, write status and r to w.
func logAndRespond(log logger.Logger, err error, w http.ResponseWriter, status int, r ResponseRunLaunch) {
	log.Warn(err)
	w.WriteHeader(status)
	respond(log, w, r)
}

// respond will marshal i to a string and write it to w.
func respond(log logger.Logger, w http.ResponseWriter, i interface{}) {
	j, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		log.Error(err)
		return
	}
	if _, err = fmt.Fprint(w, string(j)); err != nil {
		log.Error(err)
	}
}
