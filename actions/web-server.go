package actions

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/relloyd/engagement/logger"
	"github.com/relloyd/engagement/scheduler"
)

// RunLister supplies the run history served on /runs.
type RunLister interface {
	Runs() []scheduler.Run
	IsActive() bool
}

// RunSubmitter starts a run in the background; see scheduler.Scheduler.Submit.
type RunSubmitter interface {
	Submit(ctx context.Context, logical time.Time) (scheduler.Run, error)
}

const urlContextRuns = "/runs"

type WebServerConfig struct {
	Addr      net.IP
	Port      int
	Runs      RunLister
	Submitter RunSubmitter
	RunCtx    context.Context // bounds runs started by POST /runs
	Gatherer  prometheus.Gatherer
}

// newRouter creates the status routes, plus POST /runs when a Submitter is set.
func newRouter(log logger.Logger, web *WebServerConfig) *mux.Router {
	r := mux.NewRouter()
	r.Path("/health").Methods(http.MethodGet).HandlerFunc(GetHandlerHealth(log))
	r.Path(urlContextRuns).Methods(http.MethodGet).HandlerFunc(GetHandlerRunList(log, web.Runs))
	if web.Submitter != nil {
		ctx := web.RunCtx
		if ctx == nil {
			ctx = context.Background()
		}
		r.Path(urlContextRuns).Methods(http.MethodPost).HandlerFunc(GetHandlerRunLaunch(ctx, log, web.Submitter))
	}
	if web.Gatherer != nil {
		r.Path("/metrics").Methods(http.MethodGet).Handler(promhttp.HandlerFor(web.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// runServer starts the status server in the background.
// It fails if the listener cannot be opened.
func runServer(log logger.Logger, web *WebServerConfig) (*http.Server, error) {
	addr := ""
	if web.Addr != nil {
		addr = web.Addr.String()
	}
	srv := &http.Server{ // Good practice to set timeouts to avoid Slowloris attacks.
		Addr:         fmt.Sprintf("%v:%v", addr, web.Port),
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      newRouter(log, web),
	}
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to listen on %v", srv.Addr)
	}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error(err)
		}
	}()
	log.Info(fmt.Sprintf("Listening on http://%v", ln.Addr()))
	return srv, nil
}

func shutdownServer(log logger.Logger, srv *http.Server) error {
	log.Info("Shutting down web server...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(ctx) // waits for open connections until the deadline.
}
