package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/srediag/plugin-qshm/adapter"
	"github.com/srediag/plugin-qshm/api"
	"github.com/srediag/plugin-qshm/pkg/registry"
)

var serveCmd = &cobra.Command{
	Use:   "serve <uri>...",
	Short: "Hold regions open and serve health checks and metrics.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		listen, _ := cmd.Flags().GetString("listen")
		shmDir, _ := cmd.Flags().GetString("shm-dir")
		wait, _ := cmd.Flags().GetBool("wait")
		writable, _ := cmd.Flags().GetBool("rw")
		auditLog, _ := cmd.Flags().GetBool("audit")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		promReg := prometheus.NewRegistry()
		var audit api.Audit = api.NopAudit{}
		if auditLog {
			audit = adapter.NewAuditWriter(cmd.OutOrStdout())
		}
		reg, err := newRegistry(promReg, audit, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer reg.CloseAll() //nolint:errcheck // reported through the audit log

		for _, uri := range args {
			if wait {
				_, err = reg.OpenWait(ctx, uri, accessMode(writable), 0, registry.DefaultWaitBackOff())
			} else {
				_, err = reg.Open(uri, accessMode(writable), 0)
			}
			if err != nil {
				return err
			}
		}

		mux := http.NewServeMux()
		health := adapter.NewHealthHandler(reg, shmDir)
		mux.HandleFunc("/live", health.LiveEndpoint)
		mux.HandleFunc("/ready", health.ReadyEndpoint)
		mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))

		srv := &http.Server{Addr: listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		errc := make(chan error, 1)
		go func() {
			errc <- srv.ListenAndServe()
		}()

		select {
		case err := <-errc:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().String("listen", ":9464", "address for /live, /ready and /metrics")
	serveCmd.Flags().String("shm-dir", adapter.DefaultShmDir, "directory holding shared memory files")
	serveCmd.Flags().Bool("wait", false, "wait for regions the emulator has not created yet")
	serveCmd.Flags().Bool("rw", false, "map regions read-write")
	serveCmd.Flags().Bool("audit", false, "print audit events to stdout")
	rootCmd.AddCommand(serveCmd)
}
