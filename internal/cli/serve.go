package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roach88/artisync/internal/synchronizer"
)

// shutdownTimeout bounds the graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

// ServerStatus is the body of GET /status.
type ServerStatus struct {
	Running bool                  `json:"running"`
	RunID   string                `json:"run_id,omitempty"`
	Last    *synchronizer.Report  `json:"last,omitempty"`
	Summary *synchronizer.Summary `json:"summary,omitempty"`
}

// Server exposes a Runner over HTTP and drives periodic runs.
//
//	GET  /status   active run and the last published report
//	POST /sync     run now; 409 while another run is active
//	GET  /metrics  Prometheus metrics
type Server struct {
	runner *synchronizer.Runner
	mux    *http.ServeMux
}

// NewServer creates a server for runner. Metrics are served from gatherer.
func NewServer(runner *synchronizer.Runner, gatherer prometheus.Gatherer) *Server {
	s := &Server{runner: runner, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("POST /sync", s.handleSync)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var status ServerStatus
	status.RunID, status.Running = s.runner.Running()
	if last, ok := s.runner.Last(); ok {
		summary := last.Summary()
		status.Last = last
		status.Summary = &summary
	}
	writeJSON(w, http.StatusOK, status)
}

// handleSync runs a triggered synchronization to completion even when the
// client goes away.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	report, err := s.runner.Run(context.WithoutCancel(r.Context()))
	switch {
	case synchronizer.IsRunInProgress(err):
		writeJSON(w, http.StatusConflict, CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: errorCode(err), Message: err.Error()},
		})
	case report == nil:
		writeJSON(w, http.StatusInternalServerError, CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: errorCode(err), Message: err.Error()},
		})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, CLIResponse{
			Status: "error",
			RunID:  report.RunID,
			Data:   report,
			Error:  &CLIError{Code: errorCode(err), Message: err.Error()},
		})
	default:
		writeJSON(w, http.StatusOK, CLIResponse{Status: "ok", RunID: report.RunID, Data: report})
	}
}

// Loop runs a synchronization immediately and then every interval until ctx
// is done. A tick that finds a run in progress is skipped.
func (s *Server) Loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.runOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) runOnce(ctx context.Context) {
	report, err := s.runner.Run(ctx)
	switch {
	case synchronizer.IsRunInProgress(err):
		slog.Debug("scheduled run skipped", "error", err)
	case err != nil:
		if ctx.Err() == nil {
			slog.Error("scheduled run failed", "error", err)
		}
	case report.HasErrors():
		slog.Warn("scheduled run recorded errors", "run_id", report.RunID, "errors", len(report.Errors))
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response", "error", err)
	}
}

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen   string
	Interval time.Duration
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Synchronize periodically and serve status and metrics",
		Long: `Run a synchronization at startup and then every interval, and serve
the run status, an on-demand trigger and Prometheus metrics over HTTP.

Example:
  artisync serve --listen 127.0.0.1:8080 --interval 1m`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (overrides config)")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "delay between runs (overrides config)")
	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	setupLogging(cmd.ErrOrStderr(), opts.RootOptions, slog.LevelInfo)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app, err := openApp(opts.RootOptions, reg)
	if err != nil {
		return err
	}
	defer app.Close()

	listen := app.Config.Listen
	if opts.Listen != "" {
		listen = opts.Listen
	}
	interval := app.Config.Interval
	if opts.Interval > 0 {
		interval = opts.Interval
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	server := NewServer(app.Runner, reg)
	httpServer := &http.Server{
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Serve(ln)
	}()

	slog.Info("serving", "addr", ln.Addr().String(), "interval", interval, "repository", app.Config.Repository)
	fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s. Press Ctrl-C to stop.\n", ln.Addr())

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		server.Loop(ctx, interval)
	}()

	var result error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			result = WrapExitError(ExitCommandError, "server failed", err)
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("error shutting down server", "error", err)
	}
	<-loopDone

	slog.Info("server stopped")
	return result
}
