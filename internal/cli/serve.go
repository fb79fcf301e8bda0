package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/studydesk/storedoctor/internal/sweep"
	"github.com/studydesk/storedoctor/pkg/errclass"
	"github.com/studydesk/storedoctor/pkg/logging"
	"github.com/studydesk/storedoctor/pkg/metrics"
	"github.com/studydesk/storedoctor/pkg/model"
)

var (
	serveAddr     string
	serveInterval time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Sweep periodically and expose Prometheus metrics",
	Long: `Run sweeps on a fixed interval and serve:

  /metrics  Prometheus metrics
  /healthz  the latest sweep record as JSON
  /sweep    POST to request a sweep now (409 while one is running)

A tick that arrives while a sweep is still running is skipped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.logger.Close()

		addr := a.cfg.Serve.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		interval := a.cfg.Serve.Interval
		if serveInterval > 0 {
			interval = serveInterval
		}

		s, err := a.openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		reg := metrics.Default()
		sv := &server{
			trigger: sweep.NewTrigger(a.engine(s, a.checker(), false, reg)),
			metrics: reg,
			lease:   a.lease,
			logger:  a.logger,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		httpSrv := &http.Server{Addr: addr, Handler: sv.mux(ctx), ReadHeaderTimeout: 10 * time.Second}
		errCh := make(chan error, 1)
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
		a.logger.Info("serving", map[string]any{"addr": addr, "interval": interval.String()})

		sv.sweep(ctx)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return httpSrv.Shutdown(shutdownCtx)
			case err := <-errCh:
				return err
			case <-ticker.C:
				sv.sweep(ctx)
			}
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default serve.addr)")
	serveCmd.Flags().DurationVar(&serveInterval, "interval", 0, "time between sweeps (default serve.interval)")
	rootCmd.AddCommand(serveCmd)
}

// server holds the state shared by the ticker and the HTTP handlers.
type server struct {
	trigger *sweep.Trigger
	metrics *metrics.Registry
	lease   func(purpose string) (func(), error)
	logger  *logging.Logger

	mu   sync.RWMutex
	last *model.SweepRecord
}

// sweep runs one sweep under the lease. Overlapping requests are dropped.
func (sv *server) sweep(ctx context.Context) (*model.Report, error) {
	release, err := sv.lease("serve")
	if err != nil {
		sv.logger.Warn("sweep skipped", map[string]any{"reason": err.Error()})
		return nil, err
	}
	defer release()

	report, err := sv.trigger.Fire(ctx)
	if errors.Is(err, errclass.ErrSweepInProgress) {
		sv.logger.Info("sweep skipped", map[string]any{"reason": "already running"})
		return nil, err
	}
	if report != nil && err == nil {
		sv.mu.Lock()
		rec := report.Record
		sv.last = &rec
		sv.mu.Unlock()
	}
	return report, err
}

func (sv *server) mux(ctx context.Context) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", sv.metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		sv.mu.RLock()
		last := sv.last
		sv.mu.RUnlock()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "ok",
			"sweeping":   sv.trigger.Running(),
			"last_sweep": last,
		})
	})
	mux.HandleFunc("/sweep", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		report, err := sv.sweep(ctx)
		switch {
		case errors.Is(err, errclass.ErrSweepInProgress), errors.Is(err, errclass.ErrLockConflict):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		case err != nil:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		default:
			writeJSON(w, http.StatusOK, report)
		}
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
